// # internal/engine/highlight/highlight.go
package highlight

import (
	"sort"

	"proscope/internal/core/ports"
	"proscope/internal/engine/lexer"
)

type Style int

const (
	StyleDefault Style = iota
	StyleComment
	StyleCommentLine
	StyleString
	StyleInclude
	StylePreprocessor
	StyleNumber
	StyleKeyword
	StyleOperator
)

func (s Style) String() string {
	switch s {
	case StyleComment:
		return "comment"
	case StyleCommentLine:
		return "comment-line"
	case StyleString:
		return "string"
	case StyleInclude:
		return "include"
	case StylePreprocessor:
		return "preprocessor"
	case StyleNumber:
		return "number"
	case StyleKeyword:
		return "keyword"
	case StyleOperator:
		return "operator"
	default:
		return "default"
	}
}

// IsNormal reports whether completion may trigger inside text of this style.
func (s Style) IsNormal() bool {
	switch s {
	case StyleComment, StyleCommentLine, StyleString, StyleInclude:
		return false
	}
	return true
}

// StyleSpan styles the byte range [Start, End) of one line.
type StyleSpan struct {
	Line  int
	Start int
	End   int
	Style Style
}

func styleOf(k lexer.Kind) Style {
	switch k {
	case lexer.KindComment:
		return StyleComment
	case lexer.KindLineComment:
		return StyleCommentLine
	case lexer.KindString:
		return StyleString
	case lexer.KindInclude:
		return StyleInclude
	case lexer.KindPreprocessor:
		return StylePreprocessor
	case lexer.KindNumber:
		return StyleNumber
	case lexer.KindKeyword:
		return StyleKeyword
	case lexer.KindSymbol, lexer.KindStatementEnd:
		return StyleOperator
	default:
		return StyleDefault
	}
}

// Colorize re-tokenizes the whole text and returns style spans for the
// tokens overlapping lines [fromLine, toLine]. Tokens spanning several lines
// are split into one span per line inside the range. Blank tokens are not
// emitted.
func Colorize(text string, fromLine, toLine int) []StyleSpan {
	if toLine < fromLine {
		fromLine, toLine = toLine, fromLine
	}
	var spans []StyleSpan
	for _, tok := range lexer.Tokenize(text) {
		if tok.Kind == lexer.KindWhitespace || tok.Kind == lexer.KindEOL {
			continue
		}
		if tok.Line > toLine {
			break
		}
		style := styleOf(tok.Kind)
		line, start := tok.Line, tok.Start
		for i := tok.Start; i < tok.End; i++ {
			c := text[i]
			if c != '\n' && c != '\r' {
				continue
			}
			if line >= fromLine && line <= toLine && i > start {
				spans = append(spans, StyleSpan{Line: line, Start: start, End: i, Style: style})
			}
			if c == '\r' && i+1 < tok.End && text[i+1] == '\n' {
				i++
			}
			line++
			start = i + 1
		}
		if line >= fromLine && line <= toLine && tok.End > start {
			spans = append(spans, StyleSpan{Line: line, Start: start, End: tok.End, Style: style})
		}
	}
	return spans
}

// IsCaretInNormalContext reports whether pos is outside strings, comments
// and include references. A caret right behind such a token (pos-1 normal)
// still counts as normal.
func IsCaretInNormalContext(text string, pos int) bool {
	if pos <= 0 {
		return true
	}
	tokens := lexer.Tokenize(text)
	if styleAt(tokens, pos).IsNormal() {
		return true
	}
	return styleAt(tokens, pos-1).IsNormal()
}

func styleAt(tokens []lexer.Token, pos int) Style {
	i := sort.Search(len(tokens), func(i int) bool { return tokens[i].End > pos })
	if i >= len(tokens) {
		if n := len(tokens); n > 0 && tokens[n-1].End == pos {
			// caret at end of input extends the last token
			return styleOf(tokens[n-1].Kind)
		}
		return StyleDefault
	}
	return styleOf(tokens[i].Kind)
}

// Highlighter binds the highlight pass to the editor's current text.
type Highlighter struct {
	Editor ports.Editor
}

func (h Highlighter) Colorize(fromLine, toLine int) []StyleSpan {
	return Colorize(h.Editor.Text(), fromLine, toLine)
}

func (h Highlighter) IsCaretInNormalContext(pos int) bool {
	return IsCaretInNormalContext(h.Editor.Text(), pos)
}
