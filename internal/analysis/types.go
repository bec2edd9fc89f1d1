package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dshills/smellscan/internal/collect"
	"github.com/dshills/smellscan/internal/config"
)

// Category is one of the five Refactoring Guru code smell groups.
type Category string

const (
	CategoryBloaters                 Category = "Bloaters"
	CategoryObjectOrientationAbusers Category = "Object-Orientation Abusers"
	CategoryChangePreventers         Category = "Change Preventers"
	CategoryDispensables             Category = "Dispensables"
	CategoryCouplers                 Category = "Couplers"
)

// Categories lists every Category in presentation order.
var Categories = []Category{
	CategoryBloaters,
	CategoryObjectOrientationAbusers,
	CategoryChangePreventers,
	CategoryDispensables,
	CategoryCouplers,
}

// ParseCategory maps free-form model output onto a Category. Case, spaces and
// hyphens are ignored, so "object orientation abusers" is accepted.
func ParseCategory(s string) (Category, bool) {
	key := normalizeCategory(s)
	for _, c := range Categories {
		if normalizeCategory(string(c)) == key {
			return c, true
		}
	}
	return "", false
}

func normalizeCategory(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("-", "", " ", "", "_", "").Replace(s)
}

// Text is a string field that accepts any JSON value. Non-string values keep
// their compact JSON text; null becomes empty.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = Text(s)
		return nil
	}
	trimmed := bytes.TrimSpace(b)
	if bytes.Equal(trimmed, []byte("null")) {
		*t = ""
		return nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return err
	}
	*t = Text(buf.String())
	return nil
}

// CodeSmell is one entry of a model's code_smells list.
type CodeSmell struct {
	Name          Text `json:"name"`
	Category      Text `json:"category"`
	Snippet       Text `json:"snippet"`
	Justification Text `json:"justification"`
	Impact        Text `json:"impact"`
	Refactoring   Text `json:"refactoring"`
}

// CanonicalCategory returns the normalized category, if it is one of the five.
func (c CodeSmell) CanonicalCategory() (Category, bool) {
	return ParseCategory(string(c.Category))
}

// Report is the decoded analysis of one file.
type Report struct {
	CodeSmells []CodeSmell
	// Dropped counts list entries that were not JSON objects.
	Dropped int
}

// DecodeReport reads an analysis object. A missing or null code_smells key is
// an empty report; a single object instead of a list is accepted.
func DecodeReport(raw json.RawMessage) (Report, error) {
	var envelope struct {
		CodeSmells json.RawMessage `json:"code_smells"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return Report{}, fmt.Errorf("decoding analysis: %w", err)
	}
	body := bytes.TrimSpace(envelope.CodeSmells)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return Report{}, nil
	}

	var items []json.RawMessage
	switch body[0] {
	case '[':
		if err := json.Unmarshal(body, &items); err != nil {
			return Report{}, fmt.Errorf("decoding code_smells: %w", err)
		}
	case '{':
		items = []json.RawMessage{body}
	default:
		return Report{}, fmt.Errorf("code_smells is neither a list nor an object")
	}

	var rep Report
	for _, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) == 0 || item[0] != '{' {
			rep.Dropped++
			continue
		}
		var smell CodeSmell
		if err := json.Unmarshal(item, &smell); err != nil {
			rep.Dropped++
			continue
		}
		rep.CodeSmells = append(rep.CodeSmells, smell)
	}
	return rep, nil
}

// Result is the persisted outcome of one task. Exactly one of Analysis and
// Error is set.
type Result struct {
	Tag      string          `json:"tag"`
	Model    string          `json:"model"`
	File     string          `json:"file"`
	Analysis json.RawMessage `json:"analysis,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// OK reports whether the result carries an analysis.
func (r Result) OK() bool { return r.Error == "" && len(r.Analysis) > 0 }

// Task is one (file, revision, model) unit of work.
type Task struct {
	File     collect.SourceFile
	Revision string
	Model    config.Model
}

func (t Task) result() Result {
	return Result{Tag: t.Revision, Model: t.Model.Alias, File: t.File.RelPath}
}

func (t Task) errorResult(err error) Result {
	r := t.result()
	r.Error = err.Error()
	return r
}

// Tasks builds one task per file for a revision and model, in file order.
func Tasks(files []collect.SourceFile, revision string, model config.Model) []Task {
	tasks := make([]Task, len(files))
	for i, f := range files {
		tasks[i] = Task{File: f, Revision: revision, Model: model}
	}
	return tasks
}

// Status is the terminal state of a task.
type Status string

const (
	StatusOK      Status = "ok"
	StatusError   Status = "error"
	StatusSkipped Status = "skipped"
)
