package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dshills/smellscan/internal/pipeline"
)

// JSONWriter outputs the summary and its totals as JSON.
type JSONWriter struct{}

func (j *JSONWriter) Write(w io.Writer, summary pipeline.Summary) error {
	doc := struct {
		pipeline.Summary
		Totals pipeline.Totals `json:"totals"`
	}{summary, summary.Totals()}
	return writeJSON(w, doc)
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing JSON: %w", err)
	}
	_, err = fmt.Fprintln(w)
	return err
}
