// # internal/engine/propath/locator.go
package propath

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"proscope/internal/core/ports"
	"proscope/internal/shared/observability"
	"proscope/internal/shared/util"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/singleflight"
)

// Locator finds source files by name the way the ABL runtime resolves RUN
// targets and include references: each propath directory in order, then a
// walk of the base local path.
type Locator struct {
	entries []string
	base    string
	exts    []string

	mu    sync.RWMutex
	dirs  []string // expanded entries, nil until first use
	found map[string]string

	group singleflight.Group
}

var _ ports.FileLocator = (*Locator)(nil)

// New creates a locator. Relative entries resolve against baseLocalPath, or
// the working directory when it is empty. Entries containing wildcards are
// doublestar patterns expanded to the directories they match.
func New(entries []string, baseLocalPath string, exts []string) *Locator {
	base := strings.TrimSpace(baseLocalPath)
	if base != "" {
		if abs, err := filepath.Abs(base); err == nil {
			base = abs
		}
	}
	return &Locator{
		entries: append([]string(nil), entries...),
		base:    base,
		exts:    util.NormalizeExtensions(exts),
		found:   make(map[string]string),
	}
}

// Directories returns the expanded propath in search order.
func (l *Locator) Directories() []string {
	l.mu.RLock()
	dirs := l.dirs
	l.mu.RUnlock()
	if dirs != nil {
		return dirs
	}

	dirs = l.expand()
	l.mu.Lock()
	l.dirs = dirs
	l.mu.Unlock()
	return dirs
}

func (l *Locator) expand() []string {
	root := l.base
	if root == "" {
		root, _ = os.Getwd()
	}
	dirs := make([]string, 0, len(l.entries))
	seen := make(map[string]bool)
	add := func(dir string) {
		dir = filepath.Clean(dir)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	for _, entry := range l.entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if !filepath.IsAbs(entry) {
			entry = filepath.Join(root, entry)
		}
		if !strings.ContainsAny(entry, "*?[]{}") {
			add(entry)
			continue
		}
		matches, err := doublestar.FilepathGlob(entry)
		if err != nil {
			slog.Warn("invalid propath pattern", "entry", entry, "error", err)
			continue
		}
		for _, m := range matches {
			if info, err := os.Stat(m); err == nil && info.IsDir() {
				add(m)
			}
		}
	}
	return dirs
}

// FindFile returns the first file matching name. When name carries no
// extension each of exts (or the locator defaults) is tried in order.
func (l *Locator) FindFile(name string, extensions []string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}
	candidates := l.candidates(name, extensions)
	key := strings.ToLower(strings.Join(candidates, "|"))

	l.mu.RLock()
	path, ok := l.found[key]
	l.mu.RUnlock()
	if ok {
		observability.LocatorLookupsTotal.WithLabelValues("cached").Inc()
		return path, true
	}

	v, _, _ := l.group.Do(key, func() (interface{}, error) {
		return l.search(name, candidates), nil
	})
	path = v.(string)
	if path == "" {
		observability.LocatorLookupsTotal.WithLabelValues("miss").Inc()
		return "", false
	}

	observability.LocatorLookupsTotal.WithLabelValues("hit").Inc()
	l.mu.Lock()
	l.found[key] = path
	l.mu.Unlock()
	return path, true
}

// FindFiles returns every match of name across the propath, in search order,
// without consulting the fallback walk.
func (l *Locator) FindFiles(name string, extensions []string) []string {
	var out []string
	if filepath.IsAbs(name) {
		if isFile(name) {
			out = append(out, name)
		}
		return out
	}
	for _, dir := range l.Directories() {
		for _, c := range l.candidates(name, extensions) {
			if p := filepath.Join(dir, c); isFile(p) {
				out = append(out, p)
			}
		}
	}
	return out
}

// Invalidate forgets cached lookups and re-expands the propath on next use.
func (l *Locator) Invalidate() {
	l.mu.Lock()
	l.dirs = nil
	l.found = make(map[string]string)
	l.mu.Unlock()
}

func (l *Locator) candidates(name string, extensions []string) []string {
	name = filepath.FromSlash(util.NormalizePatternPath(name))
	if filepath.Ext(name) != "" {
		return []string{name}
	}
	exts := util.NormalizeExtensions(extensions)
	if len(exts) == 0 {
		exts = l.exts
	}
	out := make([]string, 0, len(exts)+1)
	for _, ext := range exts {
		out = append(out, name+ext)
	}
	if len(out) == 0 {
		out = append(out, name)
	}
	return out
}

func (l *Locator) search(name string, candidates []string) string {
	if filepath.IsAbs(name) {
		for _, c := range candidates {
			if isFile(c) {
				return c
			}
		}
		return ""
	}
	for _, dir := range l.Directories() {
		for _, c := range candidates {
			if p := filepath.Join(dir, c); isFile(p) {
				return p
			}
		}
	}
	if l.base == "" {
		return ""
	}
	return l.walk(candidates)
}

// walk searches the base local path for a file whose trailing path segments
// equal a candidate, ignoring case.
func (l *Locator) walk(candidates []string) string {
	wanted := make([]string, len(candidates))
	for i, c := range candidates {
		wanted[i] = strings.ToLower(filepath.ToSlash(c))
	}
	var hit string
	_ = filepath.WalkDir(l.base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != l.base && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		rel := strings.ToLower(filepath.ToSlash(path))
		for _, w := range wanted {
			if rel == w || strings.HasSuffix(rel, "/"+w) {
				hit = path
				return fs.SkipAll
			}
		}
		return nil
	})
	return hit
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
