package output

import (
	"fmt"
	"io"
	"os"

	"github.com/dshills/smellscan/internal/pipeline"
)

// Writer writes a run summary in a specific format.
type Writer interface {
	Write(w io.Writer, summary pipeline.Summary) error
}

// GetWriter returns a writer for the specified format.
func GetWriter(format string) (Writer, error) {
	switch format {
	case "text", "":
		return &TextWriter{}, nil
	case "json":
		return &JSONWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteSummary writes the summary to outPath, or to stdout when outPath is
// empty.
func WriteSummary(stdout io.Writer, summary pipeline.Summary, format, outPath string) error {
	writer, err := GetWriter(format)
	if err != nil {
		return err
	}
	return ToDestination(stdout, outPath, func(w io.Writer) error { return writer.Write(w, summary) })
}

// ToDestination runs fn against a file created at outPath, or against stdout
// when outPath is empty.
func ToDestination(stdout io.Writer, outPath string, fn func(io.Writer) error) error {
	if outPath == "" {
		return fn(stdout)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}
