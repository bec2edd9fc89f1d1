package output

import (
	"io"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/dshills/smellscan/internal/gitctx"
)

// WriteRevisions lists revisions newest first, marking the selected ones.
func WriteRevisions(w io.Writer, revs []gitctx.Revision, selected []gitctx.Revision) error {
	chosen := make(map[string]bool, len(selected))
	for _, r := range selected {
		chosen[r.Name] = true
	}
	tbl := newTable(w)
	tbl.AppendHeader(table.Row{"", "Tag", "Committed", "Age"})
	for _, r := range gitctx.SelectTop(revs, 0) {
		mark := ""
		if chosen[r.Name] {
			mark = "*"
		}
		tbl.AppendRow(table.Row{mark, r.Name, r.Committed.UTC().Format("2006-01-02 15:04"), humanize.Time(r.Committed)})
	}
	tbl.Render()
	return nil
}
