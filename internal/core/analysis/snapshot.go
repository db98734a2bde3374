package analysis

import (
	"time"

	"proscope/internal/engine/index"
	"proscope/internal/engine/lexer"
	"proscope/internal/engine/parser"

	"github.com/cespare/xxhash/v2"
)

// Snapshot is the published result of one analysis pass. It is never
// mutated after publication, so readers may keep using an old one.
type Snapshot struct {
	FilePath  string
	Tokens    []lexer.Token
	Items     []parser.Item
	Lines     []parser.LineInfo
	ParsingOk bool
	Index     *index.Index
	TextHash  uint64
	Version   uint64
	PassID    string
	Stale     bool // the document kept switching and the rerun cap was hit
	CreatedAt time.Time
}

func emptySnapshot() *Snapshot {
	res := parser.Result{ParsingOk: true}
	return &Snapshot{
		ParsingOk: true,
		Index:     index.Build(res),
		TextHash:  xxhash.Sum64String(""),
		CreatedAt: time.Now(),
	}
}

// LineCount is the number of lines the snapshot describes.
func (s *Snapshot) LineCount() int {
	return len(s.Lines)
}
