package main

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"katalog/internal/katalog"
)

// progress redraws a single status line while a scan runs. When the output
// is not a terminal it stays silent.
type progress struct {
	w     io.Writer
	tty   bool
	width int
	drawn bool
}

func newProgress(f *os.File) *progress {
	p := &progress{w: f, width: 80}
	fd := int(f.Fd())
	if term.IsTerminal(fd) {
		p.tty = true
		if w, _, err := term.GetSize(fd); err == nil && w > 0 {
			p.width = w
		}
	}
	return p
}

func (p *progress) update(ev katalog.Event) {
	if !p.tty || ev.Kind != katalog.EventProgress {
		return
	}
	fmt.Fprintf(p.w, "\r\033[K%s", progressLine(ev, p.width))
	p.drawn = true
}

func (p *progress) done() {
	if p.drawn {
		fmt.Fprint(p.w, "\r\033[K")
	}
}

// progressLine renders counts followed by the current path, cut from the
// left so the line fits in width columns.
func progressLine(ev katalog.Event, width int) string {
	line := fmt.Sprintf("%d dirs  %d files  %s", ev.Directories, ev.Files, formatBytes(ev.Bytes))
	room := width - len(line) - 3
	if ev.Path == "" || room < 8 {
		return line
	}
	path := []rune(ev.Path)
	if len(path) > room {
		path = append([]rune("..."), path[len(path)-room+3:]...)
	}
	return line + "  " + string(path)
}

// formatBytes renders n in binary units with one decimal.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
