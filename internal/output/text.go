package output

import (
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/dshills/smellscan/internal/pipeline"
)

var (
	okColor   = color.New(color.FgGreen)
	failColor = color.New(color.FgRed, color.Bold)
	dimColor  = color.New(color.Faint)
)

// TextWriter outputs a human-readable run summary.
type TextWriter struct{}

func (t *TextWriter) Write(w io.Writer, summary pipeline.Summary) error {
	ew := &errWriter{w: w}
	totals := summary.Totals()

	ew.printf("smellscan run %s\n", summary.RunID)
	ew.println(strings.Repeat("─", 60))

	if len(summary.Revisions) == 0 {
		ew.println("No revisions processed.")
	}

	for _, rev := range summary.Revisions {
		if rev.Error != "" {
			ew.printf("%s  %s %s\n", rev.Revision, failColor.Sprint("[!!]"), rev.Error)
			continue
		}
		ew.printf("%s  %s\n", rev.Revision, dimColor.Sprintf("(%s%s files)", shortCommit(rev.Commit), humanize.Comma(int64(rev.Files))))
		for _, st := range rev.Stages {
			dur := (time.Duration(st.DurationMs) * time.Millisecond).Round(time.Millisecond)
			if st.Artifact == "" {
				ew.printf("  %s %-14s %s\n", failColor.Sprint("[!!]"), st.Model, st.Error)
				continue
			}
			icon := okColor.Sprint("[ok]")
			if st.Failed > 0 {
				icon = failColor.Sprint("[! ]")
			}
			ew.printf("  %s %-14s %s ok, %s failed, %s skipped  %s %s\n",
				icon, st.Model,
				humanize.Comma(int64(st.OK)), humanize.Comma(int64(st.Failed)), humanize.Comma(int64(st.Skipped)),
				st.Artifact, dimColor.Sprintf("(%s)", dur))
		}
	}

	ew.println(strings.Repeat("─", 60))
	ew.printf("Revisions: %d", totals.Revisions)
	if totals.FailedRevisions > 0 {
		ew.printf(" (%s)", failColor.Sprintf("%d failed", totals.FailedRevisions))
	}
	ew.printf(" | Artifacts: %d", totals.Artifacts)
	if totals.FailedCheckpoints > 0 {
		ew.printf(" (%s)", failColor.Sprintf("%d failed", totals.FailedCheckpoints))
	}
	ew.printf(" | Results: %s ok, %s failed, %s skipped\n",
		humanize.Comma(int64(totals.OK)), humanize.Comma(int64(totals.Failed)), humanize.Comma(int64(totals.Skipped)))
	if totals.Tokens > 0 {
		ew.printf("Tokens: %s\n", humanize.Comma(int64(totals.Tokens)))
	}
	ew.printf("Completed in %s\n", (time.Duration(summary.DurationMs) * time.Millisecond).Round(time.Millisecond))

	return ew.err
}

// shortCommit abbreviates a SHA for display, with a trailing separator.
func shortCommit(sha string) string {
	if sha == "" {
		return ""
	}
	if len(sha) > 7 {
		sha = sha[:7]
	}
	return sha + ", "
}
