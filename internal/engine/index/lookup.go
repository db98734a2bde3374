// # internal/engine/index/lookup.go
package index

import (
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"

	"proscope/internal/engine/parser"
)

// fuzzyThreshold is the minimum Jaro-Winkler similarity for a completion
// entry that does not start with the typed prefix.
const fuzzyThreshold = 0.8

const maxLikeDepth = 8

func (x *Index) FilePath() string { return x.filePath }

// Completions returns every completion entry in document order.
func (x *Index) Completions() []CompletionItem {
	out := make([]CompletionItem, len(x.completions))
	copy(out, x.completions)
	return out
}

// Outline returns the root of the outline tree.
func (x *Index) Outline() *OutlineNode {
	return x.outline
}

// LineScope returns the scope owning line, or "" for file scope and lines
// outside the document.
func (x *Index) LineScope(line int) string {
	if line < 0 || line >= len(x.lines) {
		return ""
	}
	return x.lines[line].Scope
}

// visibleFrom reports whether a definition owned by owner can be seen from
// code inside scope (directly or through enclosing scopes).
func (x *Index) visibleFrom(owner, scope string) bool {
	if owner == "" {
		return true
	}
	for i := 0; scope != "" && i < 64; i++ {
		if strings.EqualFold(owner, scope) {
			return true
		}
		scope = x.parents[strings.ToUpper(scope)]
	}
	return false
}

type scored struct {
	item  CompletionItem
	score float32
	order int
}

// Complete returns the entries visible from line that match prefix:
// case-insensitive prefix matches first in document order, then fuzzy
// matches by decreasing similarity.
func (x *Index) Complete(prefix string, line int) []CompletionItem {
	scope := x.LineScope(line)
	lower := strings.ToLower(prefix)

	var exact, fuzzy []scored
	for i, c := range x.completions {
		if !x.visibleFrom(c.Owner, scope) {
			continue
		}
		text := strings.ToLower(c.Text)
		if strings.HasPrefix(text, lower) {
			exact = append(exact, scored{item: c, order: i})
			continue
		}
		score, err := edlib.StringsSimilarity(lower, text, edlib.JaroWinkler)
		if err != nil || score < fuzzyThreshold {
			continue
		}
		fuzzy = append(fuzzy, scored{item: c, score: score, order: i})
	}
	sort.SliceStable(fuzzy, func(i, j int) bool {
		if fuzzy[i].score != fuzzy[j].score {
			return fuzzy[i].score > fuzzy[j].score
		}
		return fuzzy[i].order < fuzzy[j].order
	})

	out := make([]CompletionItem, 0, len(exact)+len(fuzzy))
	for _, s := range exact {
		out = append(out, s.item)
	}
	for _, s := range fuzzy {
		out = append(out, s.item)
	}
	return out
}

// FindTableOrBuffer finds a temp-table by name, or the table behind a buffer
// of that name. A broken buffer chain reports false.
func (x *Index) FindTableOrBuffer(name string) (*parser.Definition, bool) {
	key := strings.ToUpper(strings.TrimSpace(name))
	if t, ok := x.tables[key]; ok {
		return t, true
	}
	if b, ok := x.buffers[key]; ok {
		t, ok := x.tables[strings.ToUpper(b.BufferFor)]
		return t, ok
	}
	return nil, false
}

// FindDefinition returns the definition of name visible from line. A
// definition of the line's own scope wins over enclosing ones.
func (x *Index) FindDefinition(name string, line int) (*parser.Definition, bool) {
	scope := x.LineScope(line)
	var best *parser.Definition
	for _, d := range x.defs[strings.ToUpper(name)] {
		if !x.visibleFrom(d.Owner, scope) {
			continue
		}
		if best == nil || (best.Owner == "" && d.Owner != "") || strings.EqualFold(d.Owner, scope) {
			best = d
		}
	}
	return best, best != nil
}

// Parameters returns the parameters of owner in declaration order.
func (x *Index) Parameters(owner string) []*parser.Definition {
	src := x.params[strings.ToUpper(owner)]
	out := make([]*parser.Definition, len(src))
	copy(out, src)
	return out
}

// ResolveType returns the primitive type of d, following LIKE references
// through variables and temp-table fields.
func (x *Index) ResolveType(d *parser.Definition) parser.PrimitiveType {
	return x.resolveType(d, 0)
}

func (x *Index) resolveType(d *parser.Definition, depth int) parser.PrimitiveType {
	if d == nil || depth > maxLikeDepth {
		return parser.PrimitiveUnknown
	}
	if !d.IsLike {
		return d.PrimitiveType
	}
	target := d.DataType
	if dot := strings.LastIndex(target, "."); dot > 0 {
		table, field := target[:dot], target[dot+1:]
		if i := strings.LastIndex(table, "."); i >= 0 {
			table = table[i+1:]
		}
		t, ok := x.FindTableOrBuffer(table)
		if !ok {
			return parser.PrimitiveUnknown
		}
		for _, f := range t.Fields {
			if strings.EqualFold(f.Name, field) {
				return f.PrimitiveType
			}
		}
		return parser.PrimitiveUnknown
	}
	for _, other := range x.defs[strings.ToUpper(target)] {
		if other != d && (other.Type == parser.DefineVariable || other.Type == parser.DefineParameter) {
			return x.resolveType(other, depth+1)
		}
	}
	return parser.PrimitiveUnknown
}
