// # internal/engine/index/builder.go
package index

import (
	"path/filepath"
	"strings"

	"proscope/internal/engine/parser"
)

// Index holds the structures derived from one parse. It is read-only once
// Build returns and shares no collection with any other Index.
type Index struct {
	filePath    string
	lines       []parser.LineInfo
	completions []CompletionItem
	outline     *OutlineNode

	tables  map[string]*parser.Definition
	buffers map[string]*parser.Definition
	defs    map[string][]*parser.Definition
	params  map[string][]*parser.Definition
	parents map[string]string // scope name -> owner scope name
}

// builder is the scratch state of one Build call.
type builder struct {
	idx       *Index
	stack     []outlineFrame
	functions map[string]int // completion slot of each function name
	likes     []int          // completion slots whose type needs LIKE resolution
}

type outlineFrame struct {
	node  *OutlineNode
	scope *parser.Scope
}

// Build walks the parsed items once and derives completion, outline, name
// and parameter indices.
func Build(res parser.Result) *Index {
	name := filepath.Base(res.FilePath)
	if res.FilePath == "" {
		name = "(untitled)"
	}
	root := &OutlineNode{Name: name, Kind: OutlineFile}
	b := &builder{
		idx: &Index{
			filePath: res.FilePath,
			lines:    res.Lines,
			outline:  root,
			tables:   make(map[string]*parser.Definition),
			buffers:  make(map[string]*parser.Definition),
			defs:     make(map[string][]*parser.Definition),
			params:   make(map[string][]*parser.Definition),
			parents:  make(map[string]string),
		},
		stack:     []outlineFrame{{node: root}},
		functions: make(map[string]int),
	}
	for _, it := range res.Items {
		b.visit(it)
	}
	b.resolveLikes()
	return b.idx
}

func (b *builder) visit(it parser.Item) {
	base := it.Base()
	b.unwind(base.Position.Offset)

	switch v := it.(type) {
	case *parser.Scope:
		b.visitScope(v)
	case *parser.Definition:
		b.visitDefinition(v)
	case *parser.Include:
		b.attach(&OutlineNode{Name: v.Name, Kind: OutlineInclude, Line: v.Position.Line, Item: v})
	case *parser.UsePoint:
		b.attach(&OutlineNode{Name: v.Name, Kind: OutlineRun, Line: v.Position.Line, Item: v})
	}
}

// unwind pops outline frames whose scope no longer contains offset.
func (b *builder) unwind(offset int) {
	for len(b.stack) > 1 {
		top := b.stack[len(b.stack)-1]
		if top.scope.Contains(offset) {
			return
		}
		b.stack = b.stack[:len(b.stack)-1]
	}
}

func (b *builder) attach(n *OutlineNode) {
	top := b.stack[len(b.stack)-1].node
	top.Children = append(top.Children, n)
}

func (b *builder) visitScope(s *parser.Scope) {
	kind := OutlineProcedure
	switch s.Kind {
	case parser.ScopeFunction:
		kind = OutlineFunction
	case parser.ScopeTrigger:
		kind = OutlineTrigger
	}
	node := &OutlineNode{Name: s.Name, Kind: kind, Line: s.StartLine, Item: s}
	b.attach(node)
	if !s.Prototype {
		b.stack = append(b.stack, outlineFrame{node: node, scope: s})
		b.idx.parents[strings.ToUpper(s.Name)] = s.Owner
	}

	switch s.Kind {
	case parser.ScopeProcedure:
		b.addCompletion(CompletionItem{Text: s.Name, Type: CompletionProcedure, Line: s.StartLine, Item: s})
	case parser.ScopeFunction:
		key := strings.ToUpper(s.Name)
		if slot, ok := b.functions[key]; ok {
			// the implementation supersedes its forward declaration
			if !s.Prototype {
				b.idx.completions[slot].Item = s
				b.idx.completions[slot].Line = s.StartLine
			}
			return
		}
		b.functions[key] = len(b.idx.completions)
		b.addCompletion(CompletionItem{Text: s.Name, Type: CompletionFunction, Line: s.StartLine, Item: s})
	}
}

func (b *builder) visitDefinition(d *parser.Definition) {
	b.attach(&OutlineNode{Name: d.Name, Kind: OutlineDefinition, Line: d.Position.Line, Item: d})

	key := strings.ToUpper(d.Name)
	b.idx.defs[key] = append(b.idx.defs[key], d)

	switch d.Type {
	case parser.DefineTempTable:
		if _, ok := b.idx.tables[key]; !ok {
			b.idx.tables[key] = d
		}
	case parser.DefineBuffer:
		if _, ok := b.idx.buffers[key]; !ok {
			b.idx.buffers[key] = d
		}
	case parser.DefineParameter:
		owner := strings.ToUpper(d.Owner)
		b.idx.params[owner] = append(b.idx.params[owner], d)
	}

	item := CompletionItem{Text: d.Name, Type: completionType(d), Owner: d.Owner, Line: d.Position.Line, Item: d}
	if d.IsLike && d.Type == parser.DefineVariable {
		b.likes = append(b.likes, len(b.idx.completions))
	}
	b.addCompletion(item)
}

func (b *builder) addCompletion(c CompletionItem) {
	b.idx.completions = append(b.idx.completions, c)
}

// resolveLikes fixes the class of variables declared LIKE another variable
// or field, now that every table is known.
func (b *builder) resolveLikes() {
	for _, slot := range b.likes {
		c := &b.idx.completions[slot]
		d := c.Item.(*parser.Definition)
		if b.idx.ResolveType(d).IsComplex() {
			c.Type = CompletionVariableComplex
		}
	}
}

func completionType(d *parser.Definition) CompletionType {
	switch d.Type {
	case parser.DefineVariable:
		if d.PrimitiveType.IsComplex() {
			return CompletionVariableComplex
		}
		return CompletionVariablePrimitive
	case parser.DefineParameter:
		return CompletionParameter
	case parser.DefineTempTable:
		return CompletionTempTable
	case parser.DefineBuffer:
		return CompletionBuffer
	case parser.DefineWidget, parser.DefineFrame:
		return CompletionWidget
	case parser.DefinePreprocessor:
		return CompletionPreprocessor
	default:
		return CompletionOther
	}
}
