// # internal/engine/index/types.go
package index

import "proscope/internal/engine/parser"

// CompletionType is the coarse class used to group completion entries.
type CompletionType int

const (
	CompletionVariablePrimitive CompletionType = iota
	CompletionVariableComplex
	CompletionWidget
	CompletionTempTable
	CompletionBuffer
	CompletionParameter
	CompletionProcedure
	CompletionFunction
	CompletionPreprocessor
	CompletionOther
)

func (t CompletionType) String() string {
	switch t {
	case CompletionVariablePrimitive:
		return "variable"
	case CompletionVariableComplex:
		return "object"
	case CompletionWidget:
		return "widget"
	case CompletionTempTable:
		return "temp-table"
	case CompletionBuffer:
		return "buffer"
	case CompletionParameter:
		return "parameter"
	case CompletionProcedure:
		return "procedure"
	case CompletionFunction:
		return "function"
	case CompletionPreprocessor:
		return "preprocessor"
	default:
		return "other"
	}
}

// CompletionItem is one autocomplete entry.
type CompletionItem struct {
	Text  string
	Type  CompletionType
	Owner string
	Line  int
	Item  parser.Item
}

type OutlineKind int

const (
	OutlineFile OutlineKind = iota
	OutlineProcedure
	OutlineFunction
	OutlineTrigger
	OutlineDefinition
	OutlineInclude
	OutlineRun
)

func (k OutlineKind) String() string {
	switch k {
	case OutlineFile:
		return "file"
	case OutlineProcedure:
		return "procedure"
	case OutlineFunction:
		return "function"
	case OutlineTrigger:
		return "trigger"
	case OutlineDefinition:
		return "definition"
	case OutlineInclude:
		return "include"
	default:
		return "run"
	}
}

// OutlineNode is a node of the code outline. Children are in document order.
type OutlineNode struct {
	Name     string
	Kind     OutlineKind
	Line     int
	Item     parser.Item
	Children []*OutlineNode
}

// Walk visits n and its descendants depth-first, in document order.
func (n *OutlineNode) Walk(fn func(node *OutlineNode, depth int)) {
	n.walk(fn, 0)
}

func (n *OutlineNode) walk(fn func(*OutlineNode, int), depth int) {
	fn(n, depth)
	for _, c := range n.Children {
		c.walk(fn, depth+1)
	}
}
