package batch

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/mattn/go-isatty"
)

// Progress reports row-by-row advancement to the operator. On a
// terminal it renders a single carriage-return line with count and
// ETA; otherwise it emits structured log lines so non-interactive
// runs (CI, nohup) still show movement.
type Progress struct {
	w     io.Writer
	tty   bool
	total int
	done  int
	start time.Time
}

func NewProgress(w io.Writer) *Progress {
	tty := false
	if f, ok := w.(*os.File); ok {
		tty = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Progress{w: w, tty: tty}
}

func (p *Progress) Start(total int) {
	p.total = total
	p.done = 0
	p.start = time.Now()
	if !p.tty {
		slog.Info("Processing files", "total", total)
	}
}

func (p *Progress) Advance() {
	p.done++
	eta := p.eta()
	if p.tty {
		fmt.Fprintf(p.w, "\rProcessing files: %d/%d (%d%%) eta %s ",
			p.done, p.total, p.percent(), eta)
		return
	}
	slog.Info("Progress", "done", p.done, "total", p.total, "eta", eta.String())
}

func (p *Progress) Finish() {
	if p.tty && p.total > 0 {
		fmt.Fprintln(p.w)
	}
	slog.Info("Processing complete", "rows", p.done, "elapsed", time.Since(p.start).Round(time.Second).String())
}

func (p *Progress) percent() int {
	if p.total == 0 {
		return 100
	}
	return p.done * 100 / p.total
}

func (p *Progress) eta() time.Duration {
	if p.done == 0 {
		return 0
	}
	perRow := time.Since(p.start) / time.Duration(p.done)
	return (perRow * time.Duration(p.total-p.done)).Round(time.Second)
}
