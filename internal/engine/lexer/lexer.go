// # internal/engine/lexer/lexer.go
package lexer

import (
	"unicode"
	"unicode/utf8"
)

type state int

const (
	stateNormal state = iota
	stateLineComment
	stateBlockComment
	stateString
	stateInclude
)

// Tokenize splits text into a total token stream: spans never overlap, are
// ordered by start and cover every byte of text. Malformed input never fails;
// an unterminated string, comment or include reference closes at end of
// input.
func Tokenize(text string) []Token {
	l := &lexer{src: text, tokens: make([]Token, 0, len(text)/4+1)}
	l.run()
	return l.tokens
}

type lexer struct {
	src    string
	pos    int
	tokens []Token

	// start of the pending token
	start     int
	startLine int
	startCol  int

	line int
	col  int

	st       state
	quote    rune
	depth    int
	stmtHead bool // next word starts a statement
	lineHead bool // only blanks seen so far on this line
}

func (l *lexer) peek(offset int) rune {
	p := l.pos
	for i := 0; i < offset; i++ {
		if p >= len(l.src) {
			return -1
		}
		_, w := utf8.DecodeRuneInString(l.src[p:])
		p += w
	}
	if p >= len(l.src) {
		return -1
	}
	r, _ := utf8.DecodeRuneInString(l.src[p:])
	return r
}

// advance consumes one rune and keeps line/column bookkeeping.
func (l *lexer) advance() rune {
	r, w := utf8.DecodeRuneInString(l.src[l.pos:])
	l.pos += w
	switch {
	case r == '\n':
		l.line++
		l.col = 0
	case r == '\r' && l.peek(0) != '\n':
		l.line++
		l.col = 0
	default:
		l.col += w
	}
	return r
}

func (l *lexer) begin() {
	l.start = l.pos
	l.startLine = l.line
	l.startCol = l.col
}

func (l *lexer) emit(kind Kind) {
	if l.pos == l.start {
		return
	}
	value := l.src[l.start:l.pos]
	if kind == KindIdentifier && IsKeyword(value) {
		kind = KindKeyword
	}
	l.tokens = append(l.tokens, Token{
		Kind:   kind,
		Start:  l.start,
		End:    l.pos,
		Line:   l.startLine,
		Column: l.startCol,
		Value:  value,
	})
	switch kind {
	case KindStatementEnd:
		l.stmtHead = true
		l.lineHead = false
	case KindEOL:
		l.lineHead = true
	case KindWhitespace, KindComment, KindLineComment:
	default:
		l.stmtHead = false
		l.lineHead = false
	}
	l.begin()
}

func (l *lexer) run() {
	l.stmtHead = true
	l.lineHead = true
	l.begin()
	for l.pos < len(l.src) {
		switch l.st {
		case stateNormal:
			l.normal()
		case stateLineComment:
			l.lineComment()
		case stateBlockComment:
			l.blockComment()
		case stateString:
			l.str()
		case stateInclude:
			l.include()
		}
	}
	// close whatever is still open at end of input
	switch l.st {
	case stateLineComment:
		l.emit(KindLineComment)
	case stateBlockComment:
		l.emit(KindComment)
	case stateString:
		l.emit(KindString)
	case stateInclude:
		l.emit(KindInclude)
	}
}

func (l *lexer) normal() {
	r := l.peek(0)
	switch {
	case r == '\r' || r == '\n':
		l.advance()
		if r == '\r' && l.peek(0) == '\n' {
			l.advance()
		}
		l.emit(KindEOL)
	case r == ' ' || r == '\t' || r == '\f' || r == '\v':
		for c := l.peek(0); c == ' ' || c == '\t' || c == '\f' || c == '\v'; c = l.peek(0) {
			l.advance()
		}
		l.emit(KindWhitespace)
	case r == '/' && l.peek(1) == '*':
		l.advance()
		l.advance()
		l.depth = 1
		l.st = stateBlockComment
	case r == '/' && l.peek(1) == '/':
		l.advance()
		l.advance()
		l.st = stateLineComment
	case r == '"' || r == '\'':
		l.quote = l.advance()
		l.st = stateString
	case r == '{':
		l.advance()
		l.depth = 1
		l.st = stateInclude
	case r == '&' && (l.stmtHead || l.lineHead) && isWordStart(l.peek(1)):
		l.advance()
		l.word()
		l.emit(KindPreprocessor)
	case unicode.IsDigit(r):
		l.number()
		l.emit(KindNumber)
	case isWordStart(r):
		l.word()
		l.emit(KindIdentifier)
	case r == '.' || r == ':':
		l.advance()
		if isTerminatorFollow(l.peek(0), l.peek(1)) {
			l.emit(KindStatementEnd)
		} else {
			l.emit(KindSymbol)
		}
	default:
		l.advance()
		l.emit(KindSymbol)
	}
}

func (l *lexer) word() {
	for isWordPart(l.peek(0)) {
		l.advance()
	}
}

func (l *lexer) number() {
	for unicode.IsDigit(l.peek(0)) {
		l.advance()
	}
	if l.peek(0) == '.' && unicode.IsDigit(l.peek(1)) {
		l.advance()
		for unicode.IsDigit(l.peek(0)) {
			l.advance()
		}
	}
}

func (l *lexer) lineComment() {
	r := l.peek(0)
	if r == '\r' || r == '\n' {
		l.emit(KindLineComment)
		l.st = stateNormal
		return
	}
	l.advance()
}

func (l *lexer) blockComment() {
	r := l.advance()
	switch {
	case r == '/' && l.peek(0) == '*':
		l.advance()
		l.depth++
	case r == '*' && l.peek(0) == '/':
		l.advance()
		l.depth--
		if l.depth == 0 {
			l.emit(KindComment)
			l.st = stateNormal
		}
	}
}

func (l *lexer) str() {
	r := l.advance()
	switch {
	case r == '~':
		if l.pos < len(l.src) {
			l.advance()
		}
	case r == l.quote:
		if l.peek(0) == l.quote {
			l.advance()
			return
		}
		l.emit(KindString)
		l.st = stateNormal
	}
}

func (l *lexer) include() {
	r := l.advance()
	switch r {
	case '{':
		l.depth++
	case '}':
		l.depth--
		if l.depth == 0 {
			l.emit(KindInclude)
			l.st = stateNormal
		}
	}
}

func isWordStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isWordPart(r rune) bool {
	switch r {
	case '-', '_', '#', '$', '%', '&':
		return true
	}
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// isTerminatorFollow reports whether a '.' or ':' followed by r (and then
// next) ends a statement or block header.
func isTerminatorFollow(r, next rune) bool {
	switch r {
	case -1, ' ', '\t', '\r', '\n', '\f', '\v':
		return true
	case '/':
		return next == '*' || next == '/'
	}
	return false
}
