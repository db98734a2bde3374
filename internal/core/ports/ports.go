package ports

// Editor is the host editor seen as a text oracle. Implementations must be
// safe for concurrent use; the analysis session pulls from it at pass start
// and again when the pass completes.
type Editor interface {
	CurrentFilePath() string
	Text() string
}

// CaretEditor is an optional extension exposing caret and viewport state.
type CaretEditor interface {
	Editor
	CaretPosition() int
	VisibleLines() LineRange
}

// ErrorReporter receives unexpected faults caught at a pass boundary.
type ErrorReporter interface {
	Report(err error, context string)
}

// FileLocator finds a source file by name in an ordered search path.
// A miss reports false and never an error.
type FileLocator interface {
	FindFile(name string, extensions []string) (string, bool)
}

// LineRange represents a 0-based inclusive line span.
type LineRange struct {
	Start int
	End   int
}
