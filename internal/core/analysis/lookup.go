package analysis

import (
	"os"
	"strings"

	"proscope/internal/engine/index"
	"proscope/internal/engine/parser"
)

var (
	procedureExtensions = []string{".p", ".w"}
	includeExtensions   = []string{".i"}
)

// Snapshot returns the latest published snapshot. It is never nil.
func (s *Session) Snapshot() *Snapshot {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	return s.snap
}

func (s *Session) Completions() []index.CompletionItem {
	return s.Snapshot().Index.Completions()
}

// Complete returns the completion entries visible from line that match prefix.
func (s *Session) Complete(prefix string, line int) []index.CompletionItem {
	return s.Snapshot().Index.Complete(prefix, line)
}

func (s *Session) Outline() *index.OutlineNode {
	return s.Snapshot().Index.Outline()
}

func (s *Session) FindTableOrBuffer(name string) (*parser.Definition, bool) {
	return s.Snapshot().Index.FindTableOrBuffer(name)
}

func (s *Session) FindDefinition(name string, line int) (*parser.Definition, bool) {
	return s.Snapshot().Index.FindDefinition(name, line)
}

// LineScope returns the name of the scope owning line, "" for file scope.
func (s *Session) LineScope(line int) string {
	return s.Snapshot().Index.LineScope(line)
}

// CanIndent reports whether the last parse balanced every block, which is
// what indentation needs to trust the line depths.
func (s *Session) CanIndent() bool {
	return s.Snapshot().ParsingOk
}

// LineInfo returns the per-line scope and depth of the last parse.
func (s *Session) LineInfo() []parser.LineInfo {
	lines := s.Snapshot().Lines
	out := make([]parser.LineInfo, len(lines))
	copy(out, lines)
	return out
}

func (s *Session) Parameters(owner string) []*parser.Definition {
	return s.Snapshot().Index.Parameters(owner)
}

// ProcedureParameters returns the parameters of the procedure or function
// behind a completion entry. Entries from another file are read and parsed
// from disk.
func (s *Session) ProcedureParameters(item index.CompletionItem) []*parser.Definition {
	if item.Item == nil {
		return nil
	}
	snap := s.Snapshot()
	filePath := item.Item.Base().FilePath
	if filePath == "" || filePath == snap.FilePath {
		return snap.Index.Parameters(item.Text)
	}
	idx, ok := s.parseFile(filePath)
	if !ok {
		return nil
	}
	return idx.Parameters(item.Text)
}

// RunParameters returns the file-level parameters of the external procedure
// a RUN statement targets. Internal procedures of the current file are
// resolved from the snapshot first.
func (s *Session) RunParameters(use *parser.UsePoint) ([]*parser.Definition, bool) {
	if use == nil {
		return nil, false
	}
	snap := s.Snapshot()
	for _, c := range snap.Index.Completions() {
		if c.Type == index.CompletionProcedure && strings.EqualFold(c.Text, use.Name) {
			return snap.Index.Parameters(c.Text), true
		}
	}
	if s.locator == nil {
		return nil, false
	}
	path, ok := s.locator.FindFile(use.Name, procedureExtensions)
	if !ok {
		return nil, false
	}
	idx, ok := s.parseFile(path)
	if !ok {
		return nil, false
	}
	return idx.Parameters(""), true
}

// ResolveInclude maps an include reference to a file through the locator.
func (s *Session) ResolveInclude(inc *parser.Include) (string, bool) {
	if inc == nil || s.locator == nil {
		return "", false
	}
	return s.locator.FindFile(inc.Name, includeExtensions)
}

func (s *Session) parseFile(path string) (*index.Index, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Debug("cannot read file for parameter lookup", "path", path, "error", err)
		return nil, false
	}
	return s.files.Load(path, string(data)), true
}
