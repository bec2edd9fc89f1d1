package main

import (
	"os"

	"github.com/dshills/smellscan/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
