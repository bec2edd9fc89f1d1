package pipeline

import (
	"errors"
	"time"
)

// StageReport is the outcome of one (revision, model) stage.
type StageReport struct {
	Model      string `json:"model"`
	Artifact   string `json:"artifact,omitempty"`
	OK         int    `json:"ok"`
	Failed     int    `json:"failed"`
	Skipped    int    `json:"skipped"`
	Tokens     int    `json:"tokens"`
	DurationMs int64  `json:"durationMs"`
	Error      string `json:"error,omitempty"`
}

// RevisionReport is the outcome of one revision.
type RevisionReport struct {
	Revision string `json:"revision"`
	// Commit is the workspace HEAD after checkout.
	Commit string        `json:"commit,omitempty"`
	Files  int           `json:"files"`
	Stages []StageReport `json:"stages,omitempty"`
	// Error is set when the revision could not be checked out or collected.
	Error string `json:"error,omitempty"`
}

func (r RevisionReport) err() error {
	if r.Error != "" {
		return errors.New(r.Error)
	}
	for _, s := range r.Stages {
		if s.Error != "" {
			return errors.New(s.Error)
		}
	}
	return nil
}

// Summary describes a whole run.
type Summary struct {
	RunID      string           `json:"runId"`
	Started    time.Time        `json:"started"`
	DurationMs int64            `json:"durationMs"`
	Revisions  []RevisionReport `json:"revisions"`
}

// Totals are counts across a Summary.
type Totals struct {
	Revisions         int `json:"revisions"`
	FailedRevisions   int `json:"failedRevisions"`
	Artifacts         int `json:"artifacts"`
	FailedCheckpoints int `json:"failedCheckpoints"`
	OK                int `json:"ok"`
	Failed            int `json:"failed"`
	Skipped           int `json:"skipped"`
	Tokens            int `json:"tokens"`
}

// Totals aggregates the summary.
func (s Summary) Totals() Totals {
	var t Totals
	for _, r := range s.Revisions {
		t.Revisions++
		if r.Error != "" {
			t.FailedRevisions++
		}
		for _, st := range r.Stages {
			if st.Artifact != "" {
				t.Artifacts++
			} else if st.Error != "" {
				t.FailedCheckpoints++
			}
			t.OK += st.OK
			t.Failed += st.Failed
			t.Skipped += st.Skipped
			t.Tokens += st.Tokens
		}
	}
	return t
}
