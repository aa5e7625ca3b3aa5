// Package progress renders shard progress for a terminal or a log file.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"

	"github.com/phpmtseed/phpmtseed/internal/shard"
)

// Printer writes "progress: NNN / 256" lines. On a terminal the line is
// redrawn in place and seed lines printed in between start with a carriage
// return so they overwrite it.
type Printer struct {
	mu      sync.Mutex
	w       io.Writer
	inPlace bool
	pending bool
}

// NewPrinter returns a printer for w. In-place redraw is enabled when w is
// an *os.File attached to a terminal.
func NewPrinter(w io.Writer) *Printer {
	p := &Printer{w: w}
	if f, ok := w.(*os.File); ok {
		fd := f.Fd()
		p.inPlace = isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	}
	return p
}

// Progress draws p.
func (p *Printer) Progress(pr shard.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inPlace {
		fmt.Fprintf(p.w, "\r%s", pr)
		p.pending = true
		return
	}
	fmt.Fprintln(p.w, pr)
}

// Line prints a full line without corrupting an in-place progress line.
func (p *Printer) Line(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending {
		fmt.Fprint(p.w, "\r")
	}
	fmt.Fprintf(p.w, format+"\n", args...)
	// The progress line is redrawn on the next update.
	p.pending = false
}

// Finish terminates an in-place progress line.
func (p *Printer) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending {
		fmt.Fprintln(p.w)
		p.pending = false
	}
}
