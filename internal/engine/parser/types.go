// # internal/engine/parser/types.go
package parser

// Position locates an item in its source file.
type Position struct {
	Offset int
	Line   int
	Column int
}

// ItemBase holds the attributes every parsed item shares.
type ItemBase struct {
	Name     string
	Owner    string // enclosing scope name, "" at file scope
	Position Position
	FilePath string
}

// Item is one entry of the parse model. The concrete types are *Definition,
// *Scope, *Include and *UsePoint.
type Item interface {
	Base() *ItemBase
	item()
}

func (b *ItemBase) Base() *ItemBase { return b }
func (*ItemBase) item()              {}

type DefineType int

const (
	DefineVariable DefineType = iota
	DefineParameter
	DefineTempTable
	DefineBuffer
	DefineQuery
	DefineDataset
	DefineStream
	DefineFrame
	DefineWidget
	DefinePreprocessor
	DefineOther
)

func (t DefineType) String() string {
	switch t {
	case DefineVariable:
		return "variable"
	case DefineParameter:
		return "parameter"
	case DefineTempTable:
		return "temp-table"
	case DefineBuffer:
		return "buffer"
	case DefineQuery:
		return "query"
	case DefineDataset:
		return "dataset"
	case DefineStream:
		return "stream"
	case DefineFrame:
		return "frame"
	case DefineWidget:
		return "widget"
	case DefinePreprocessor:
		return "preprocessor"
	default:
		return "other"
	}
}

// Direction is the mode of a parameter.
type Direction int

const (
	DirNone Direction = iota
	DirInput
	DirOutput
	DirInputOutput
	DirReturn
)

func (d Direction) String() string {
	switch d {
	case DirInput:
		return "INPUT"
	case DirOutput:
		return "OUTPUT"
	case DirInputOutput:
		return "INPUT-OUTPUT"
	case DirReturn:
		return "RETURN"
	default:
		return ""
	}
}

// Field is a column of a temp-table definition.
type Field struct {
	Name          string
	DataType      string
	PrimitiveType PrimitiveType
	Line          int
}

// Definition is a DEFINE statement (or an inferred equivalent such as a
// function-header parameter).
type Definition struct {
	ItemBase
	Type          DefineType
	Subtype       string // widget/other keyword, e.g. BUTTON
	DataType      string // text after AS, or the LIKE target
	IsLike        bool
	PrimitiveType PrimitiveType
	Direction     Direction
	BufferFor     string // buffers and TABLE parameters
	LikeTable     string // temp-table LIKE source
	Fields        []Field
	Scope         string // NEW GLOBAL SHARED / SHARED / PRIVATE ... flags joined
	Explicit      bool
}

type ScopeKind int

const (
	ScopeProcedure ScopeKind = iota
	ScopeFunction
	ScopeTrigger
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeProcedure:
		return "procedure"
	case ScopeFunction:
		return "function"
	default:
		return "trigger"
	}
}

// Scope is a procedure, function or trigger block. End is the byte offset of
// the end of its closing statement, or of the text when it was never closed.
type Scope struct {
	ItemBase
	Kind       ScopeKind
	ReturnType string // functions
	External   string // PROCEDURE ... EXTERNAL "lib"
	Private    bool
	Prototype  bool // FUNCTION ... FORWARD / IN handle; has no body
	Closed     bool
	StartLine  int
	EndLine    int
	Start      int
	End        int
}

// Contains reports whether offset lies inside the scope's span.
func (s *Scope) Contains(offset int) bool {
	return offset >= s.Start && offset < s.End
}

// Include is a {file.i ...} reference. It is recorded, never expanded.
type Include struct {
	ItemBase
	Raw string // full reference text including braces
}

// UsePoint is a RUN target.
type UsePoint struct {
	ItemBase
	Persistent bool
}

// LineInfo describes one source line.
type LineInfo struct {
	Scope      string
	BlockDepth int
}

// Result is the output of one parse.
type Result struct {
	Items     []Item
	Lines     []LineInfo
	ParsingOk bool
	FilePath  string
}
