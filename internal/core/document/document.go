// # internal/core/document/document.go
package document

import (
	"os"
	"strings"
	"sync"

	"proscope/internal/core/errors"
	"proscope/internal/core/ports"
)

// Document is an in-memory editor buffer. It holds the text of every opened
// file and tracks which one is current, the way an editor with tabs does.
type Document struct {
	mu      sync.RWMutex
	current string
	texts   map[string]string
	caret   int
	visible ports.LineRange
}

var _ ports.CaretEditor = (*Document)(nil)

func New() *Document {
	return &Document{texts: make(map[string]string)}
}

// Load reads path from disk, stores its text and makes it current.
func (d *Document) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		code := errors.CodeIO
		if os.IsNotExist(err) {
			code = errors.CodeNotFound
		}
		return errors.AddContext(errors.Wrap(err, code, "load document"), errors.CtxPath, path)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.texts[path] = string(data)
	d.switchLocked(path)
	return nil
}

// SetText replaces the text of path without changing the current file.
func (d *Document) SetText(path, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.texts[path] = text
	if path == d.current {
		d.clampCaretLocked()
	}
}

// Switch makes path current. Unknown paths read as empty text.
func (d *Document) Switch(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.switchLocked(path)
}

func (d *Document) switchLocked(path string) {
	if path == d.current {
		return
	}
	d.current = path
	d.caret = 0
	d.visible = ports.LineRange{}
}

func (d *Document) CurrentFilePath() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.current
}

func (d *Document) Text() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.texts[d.current]
}

// TextOf returns the stored text of path.
func (d *Document) TextOf(path string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	text, ok := d.texts[path]
	return text, ok
}

func (d *Document) SetCaret(pos int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.caret = pos
	d.clampCaretLocked()
}

func (d *Document) CaretPosition() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.caret
}

func (d *Document) SetVisibleLines(r ports.LineRange) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r.End < r.Start {
		r.Start, r.End = r.End, r.Start
	}
	d.visible = r
}

// VisibleLines returns the viewport, defaulting to the whole current text.
func (d *Document) VisibleLines() ports.LineRange {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.visible != (ports.LineRange{}) {
		return d.visible
	}
	text := d.texts[d.current]
	return ports.LineRange{Start: 0, End: strings.Count(text, "\n")}
}

func (d *Document) clampCaretLocked() {
	if n := len(d.texts[d.current]); d.caret > n {
		d.caret = n
	}
	if d.caret < 0 {
		d.caret = 0
	}
}
