package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/dshills/smellscan/internal/analysis"
	"github.com/dshills/smellscan/internal/gitctx"
	"github.com/dshills/smellscan/internal/pipeline"
)

const progressLogInterval = 10 * time.Second

// progress renders batch progress as a live status line on a terminal and
// as periodic log lines otherwise.
type progress struct {
	mu      sync.Mutex
	w       io.Writer
	live    bool
	logger  *slog.Logger
	lastLog time.Time
	header  *color.Color
}

func newProgress(w io.Writer, logger *slog.Logger) *progress {
	return &progress{w: w, live: isTerminal(w), logger: logger, header: color.New(color.FgCyan, color.Bold)}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (p *progress) observe(pr analysis.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.live {
		fmt.Fprintf(p.w, "\r\033[K  %s %s  %d/%d  ok=%d failed=%d skipped=%d",
			pr.Task.Revision, pr.Task.Model.Alias, pr.Done, pr.Total, pr.OK, pr.Failed, pr.Skipped)
		return
	}
	if pr.Done == pr.Total || time.Since(p.lastLog) >= progressLogInterval {
		p.lastLog = time.Now()
		p.logger.Info("progress", "tag", pr.Task.Revision, "model", pr.Task.Model.Alias,
			"done", pr.Done, "total", pr.Total, "ok", pr.OK, "failed", pr.Failed, "skipped", pr.Skipped)
	}
}

func (p *progress) hooks() pipeline.Hooks {
	return pipeline.Hooks{
		RevisionStarted: func(rev gitctx.Revision, index, total int) {
			if !p.live {
				return
			}
			p.mu.Lock()
			defer p.mu.Unlock()
			fmt.Fprintf(p.w, "\r\033[K%s\n", p.header.Sprintf("[%d/%d] %s", index+1, total, rev.Name))
		},
		StageFinished: func(pipeline.StageReport) {
			p.finish()
		},
	}
}

// finish ends the live line.
func (p *progress) finish() {
	if !p.live {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprint(p.w, "\r\033[K")
}
