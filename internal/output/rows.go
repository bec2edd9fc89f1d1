package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/dshills/smellscan/internal/analysis"
)

// OtherCategory groups smells whose category is not one of the five.
const OtherCategory = "Other"

// Row is one reported smell joined with where it was found.
type Row struct {
	Tag      string `json:"tag"`
	Model    string `json:"model"`
	File     string `json:"file"`
	Category string `json:"category"`
	Name     string `json:"name"`
	Impact   string `json:"impact"`
}

// RowStats counts what Rows read and left out.
type RowStats struct {
	Results int `json:"results"`
	Errors  int `json:"errors"`
	// Undecodable counts successful results whose analysis could not be read.
	Undecodable int `json:"undecodable"`
	// Dropped counts code_smells entries that were not objects.
	Dropped int `json:"dropped"`
}

// Rows flattens results into one row per smell, ordered by tag, model and
// file. Error results contribute no rows. Categories are normalized when
// they match one of the five groups and kept verbatim otherwise.
func Rows(results []analysis.Result) ([]Row, RowStats) {
	sorted := make([]analysis.Result, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Tag != b.Tag {
			return a.Tag < b.Tag
		}
		if a.Model != b.Model {
			return a.Model < b.Model
		}
		return a.File < b.File
	})

	var (
		rows  []Row
		stats RowStats
	)
	for _, r := range sorted {
		stats.Results++
		if !r.OK() {
			stats.Errors++
			continue
		}
		rep, err := analysis.DecodeReport(r.Analysis)
		if err != nil {
			stats.Undecodable++
			continue
		}
		stats.Dropped += rep.Dropped
		for _, smell := range rep.CodeSmells {
			category := string(smell.Category)
			if c, ok := smell.CanonicalCategory(); ok {
				category = string(c)
			}
			rows = append(rows, Row{
				Tag:      r.Tag,
				Model:    r.Model,
				File:     r.File,
				Category: category,
				Name:     string(smell.Name),
				Impact:   string(smell.Impact),
			})
		}
	}
	return rows, stats
}

// RowFormats lists the formats accepted by WriteRows.
var RowFormats = []string{"table", "csv", "json"}

// WriteRows writes rows in the given format.
func WriteRows(w io.Writer, rows []Row, format string) error {
	switch format {
	case "csv":
		return writeRowsCSV(w, rows)
	case "json":
		if rows == nil {
			rows = []Row{}
		}
		return writeJSON(w, rows)
	case "table", "":
		tbl := newTable(w)
		tbl.AppendHeader(table.Row{"Tag", "Model", "File", "Category", "Smell", "Impact"})
		for _, r := range rows {
			tbl.AppendRow(table.Row{r.Tag, r.Model, r.File, r.Category, r.Name, r.Impact})
		}
		tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d smells", len(rows))})
		tbl.Render()
		return nil
	default:
		return fmt.Errorf("unsupported report format: %s", format)
	}
}

func writeRowsCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"tag", "model", "file", "category", "name", "impact"}); err != nil {
		return fmt.Errorf("writing CSV: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.Tag, r.Model, r.File, r.Category, r.Name, r.Impact}); err != nil {
			return fmt.Errorf("writing CSV: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("writing CSV: %w", err)
	}
	return nil
}

// Tally counts smells per model and category. Unknown categories are
// counted under OtherCategory.
type Tally struct {
	Models []string
	Counts map[string]map[string]int
}

// NewTally counts rows.
func NewTally(rows []Row) Tally {
	t := Tally{Counts: map[string]map[string]int{}}
	for _, r := range rows {
		byCat, ok := t.Counts[r.Model]
		if !ok {
			byCat = map[string]int{}
			t.Counts[r.Model] = byCat
			t.Models = append(t.Models, r.Model)
		}
		category := OtherCategory
		if c, ok := analysis.ParseCategory(r.Category); ok {
			category = string(c)
		}
		byCat[category]++
	}
	sort.Strings(t.Models)
	return t
}

// Columns returns the tally's category columns: the five groups, then Other
// when any smell fell outside them.
func (t Tally) Columns() []string {
	cols := make([]string, 0, len(analysis.Categories)+1)
	for _, c := range analysis.Categories {
		cols = append(cols, string(c))
	}
	for _, byCat := range t.Counts {
		if byCat[OtherCategory] > 0 {
			return append(cols, OtherCategory)
		}
	}
	return cols
}

// WriteTally writes the tally as a model by category table.
func WriteTally(w io.Writer, t Tally) error {
	cols := t.Columns()
	header := table.Row{"Model"}
	for _, c := range cols {
		header = append(header, c)
	}
	header = append(header, "Total")

	tbl := newTable(w)
	tbl.AppendHeader(header)
	for _, m := range t.Models {
		row := table.Row{m}
		total := 0
		for _, c := range cols {
			n := t.Counts[m][c]
			total += n
			row = append(row, n)
		}
		tbl.AppendRow(append(row, total))
	}
	tbl.Render()
	return nil
}

func newTable(w io.Writer) table.Writer {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Format.Footer = text.FormatDefault
	return tbl
}
