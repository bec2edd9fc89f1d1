package output

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/dshills/smellscan/internal/checkpoint"
)

// WriteArtifacts lists artifacts as a table.
func WriteArtifacts(w io.Writer, infos []checkpoint.ArtifactInfo) error {
	if len(infos) == 0 {
		_, err := fmt.Fprintln(w, "No artifacts found.")
		return err
	}
	tbl := newTable(w)
	tbl.AppendHeader(table.Row{"Artifact", "Tag", "Model", "Entries", "OK", "Errors", "Size", "Modified"})
	for _, a := range infos {
		if a.Invalid != "" {
			tbl.AppendRow(table.Row{a.Name, "", "", "", "", "", humanize.IBytes(uint64(a.Bytes)), "invalid: " + a.Invalid})
			continue
		}
		tbl.AppendRow(table.Row{
			a.Name, a.Tag, a.Model,
			humanize.Comma(int64(a.Entries)), humanize.Comma(int64(a.OK)), humanize.Comma(int64(a.Errors)),
			humanize.IBytes(uint64(a.Bytes)), humanize.Time(a.ModTime),
		})
	}
	tbl.Render()
	return nil
}

// WriteStats writes aggregate artifact statistics.
func WriteStats(w io.Writer, s checkpoint.Stats) error {
	ew := &errWriter{w: w}
	ew.printf("Directory:  %s\n", s.Dir)
	ew.printf("Artifacts:  %s\n", humanize.Comma(int64(s.Artifacts)))
	ew.printf("Entries:    %s (%s ok, %s errors)\n",
		humanize.Comma(int64(s.Entries)), humanize.Comma(int64(s.OK)), humanize.Comma(int64(s.Errors)))
	if s.Entries > 0 {
		ew.printf("Success:    %.1f%%\n", float64(s.OK)/float64(s.Entries)*100)
	}
	ew.printf("Total size: %s\n", humanize.IBytes(uint64(s.TotalBytes)))
	return ew.err
}
