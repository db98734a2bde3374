// # internal/engine/lexer/token.go
package lexer

import "strings"

// Kind classifies a token.
type Kind int

const (
	KindWhitespace Kind = iota
	KindEOL
	KindComment
	KindLineComment
	KindString
	KindInclude
	KindPreprocessor
	KindNumber
	KindIdentifier
	KindKeyword
	KindSymbol
	KindStatementEnd
)

var kindNames = [...]string{
	KindWhitespace:   "whitespace",
	KindEOL:          "eol",
	KindComment:      "comment",
	KindLineComment:  "line-comment",
	KindString:       "string",
	KindInclude:      "include",
	KindPreprocessor: "preprocessor",
	KindNumber:       "number",
	KindIdentifier:   "identifier",
	KindKeyword:      "keyword",
	KindSymbol:       "symbol",
	KindStatementEnd: "statement-end",
}

func (k Kind) String() string {
	if int(k) < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Token is a span [Start, End) of the source text. Offsets are bytes,
// Line and Column are zero-based.
type Token struct {
	Kind   Kind
	Start  int
	End    int
	Line   int
	Column int
	Value  string
}

// IsTrivia reports whether the token carries no syntax (blank or comment).
func (t Token) IsTrivia() bool {
	switch t.Kind {
	case KindWhitespace, KindEOL, KindComment, KindLineComment:
		return true
	}
	return false
}

// Is reports whether the token is a word equal to one of the given keywords
// after abbreviation expansion, case-insensitively.
func (t Token) Is(keywords ...string) bool {
	if t.Kind != KindKeyword && t.Kind != KindIdentifier {
		return false
	}
	canon := Canonical(t.Value)
	for _, kw := range keywords {
		if canon == kw {
			return true
		}
	}
	return false
}

// Upper returns the token value in upper case.
func (t Token) Upper() string {
	return strings.ToUpper(t.Value)
}

// Contains reports whether byte offset pos lies inside the token.
func (t Token) Contains(pos int) bool {
	return pos >= t.Start && pos < t.End
}
