// # internal/engine/parser/parser.go
package parser

import (
	"strings"

	"proscope/internal/engine/lexer"
)

// block is one entry of the scope stack. Anonymous blocks (DO:, FOR EACH:,
// REPEAT:, CASE: ...) have a nil scope; they only keep END matching and block
// depth right.
type block struct {
	scope *Scope
}

type parser struct {
	tokens      []lexer.Token
	filePath    string
	prior       []LineInfo
	interactive bool

	items []Item
	stack []block
	ok    bool

	lines    []LineInfo
	nextLine int // first line not tagged yet
}

// ParseText tokenizes and parses text in one step.
func ParseText(text, filePath string) Result {
	return Parse(lexer.Tokenize(text), filePath, nil, false)
}

// Parse builds the parse model of a token stream. It never fails: unbalanced
// blocks clear ParsingOk but the items and line table are still produced.
// prior is the line table of a previous parse of the same document; in
// interactive mode trailing lines without tokens keep their prior block depth.
func Parse(tokens []lexer.Token, filePath string, prior []LineInfo, interactive bool) Result {
	p := &parser{
		tokens:      tokens,
		filePath:    filePath,
		prior:       prior,
		interactive: interactive,
		ok:          true,
	}
	p.lines = make([]LineInfo, lineCount(tokens))
	p.run()
	return Result{
		Items:     p.items,
		Lines:     p.lines,
		ParsingOk: p.ok,
		FilePath:  filePath,
	}
}

func (p *parser) run() {
	var stmt []lexer.Token
	for _, tok := range p.tokens {
		if !tok.IsTrivia() && tok.Line >= p.nextLine {
			p.tagLines(tok, len(stmt) == 0)
		}

		switch tok.Kind {
		case lexer.KindWhitespace, lexer.KindComment, lexer.KindLineComment:
			continue
		case lexer.KindEOL:
			// preprocessor directives end with their line
			if len(stmt) > 0 && stmt[0].Kind == lexer.KindPreprocessor {
				p.statement(stmt, tok)
				stmt = stmt[:0]
			}
			continue
		case lexer.KindInclude:
			p.include(tok)
			continue
		case lexer.KindStatementEnd:
			if len(stmt) > 0 {
				p.statement(stmt, tok)
				stmt = stmt[:0]
			}
			continue
		}
		stmt = append(stmt, tok)
	}
	if len(stmt) > 0 {
		last := stmt[len(stmt)-1]
		p.statement(stmt, lexer.Token{Kind: lexer.KindEOL, Start: last.End, End: last.End, Line: last.Line})
	}
	p.finish()
}

// tagLines records line info for every untagged line up to tok's line. The
// state is taken before tok is processed, so a closing END line still belongs
// to the block it closes.
func (p *parser) tagLines(tok lexer.Token, stmtHead bool) {
	scope, depth := p.currentScopeName(), len(p.stack)
	for l := p.nextLine; l < tok.Line && l < len(p.lines); l++ {
		p.lines[l] = LineInfo{Scope: scope, BlockDepth: depth}
	}
	if tok.Line < len(p.lines) {
		d := depth
		if stmtHead && tok.Is("END") && d > 0 {
			d--
		}
		p.lines[tok.Line] = LineInfo{Scope: scope, BlockDepth: d}
	}
	p.nextLine = tok.Line + 1
}

func (p *parser) finish() {
	scope, depth := p.currentScopeName(), len(p.stack)
	for l := p.nextLine; l < len(p.lines); l++ {
		info := LineInfo{Scope: scope, BlockDepth: depth}
		if p.interactive && l < len(p.prior) {
			info.BlockDepth = p.prior[l].BlockDepth
		}
		p.lines[l] = info
	}
	p.nextLine = len(p.lines)

	if len(p.stack) == 0 {
		return
	}
	p.ok = false
	end, lastLine := 0, len(p.lines)-1
	if n := len(p.tokens); n > 0 {
		end = p.tokens[n-1].End
	}
	for _, b := range p.stack {
		if b.scope != nil {
			b.scope.End = end
			b.scope.EndLine = lastLine
		}
	}
	p.stack = nil
}

func (p *parser) currentScope() *Scope {
	for i := len(p.stack) - 1; i >= 0; i-- {
		if p.stack[i].scope != nil {
			return p.stack[i].scope
		}
	}
	return nil
}

func (p *parser) currentScopeName() string {
	if s := p.currentScope(); s != nil {
		return s.Name
	}
	return ""
}

func (p *parser) base(name string, at lexer.Token) ItemBase {
	return ItemBase{
		Name:     name,
		Owner:    p.currentScopeName(),
		Position: Position{Offset: at.Start, Line: at.Line, Column: at.Column},
		FilePath: p.filePath,
	}
}

func (p *parser) statement(st []lexer.Token, term lexer.Token) {
	head := st[0]
	isBlock := term.Kind == lexer.KindStatementEnd && term.Value == ":"

	switch {
	case head.Kind == lexer.KindPreprocessor:
		p.preprocessor(st)
		return
	case head.Is("END"):
		p.closeBlock(st, term)
		return
	case head.Is("PROCEDURE") && isBlock:
		p.procedure(st, term)
		return
	case head.Is("FUNCTION"):
		if p.function(st, term, isBlock) {
			return
		}
	case head.Is("ON") && isBlock && st[len(st)-1].Is("DO"):
		p.trigger(st, term)
		return
	case head.Is("DEFINE"):
		p.define(st)
	case head.Is("RUN"):
		p.runStatement(st)
	}

	if !isBlock {
		return
	}
	// a lone identifier before ':' is a block label
	if len(st) == 1 && st[0].Kind == lexer.KindIdentifier {
		return
	}
	p.stack = append(p.stack, block{})
}

func (p *parser) push(s *Scope, st []lexer.Token, term lexer.Token) {
	s.StartLine = st[0].Line
	s.Start = st[0].Start
	s.EndLine = term.Line
	s.End = term.End
	p.items = append(p.items, s)
	p.stack = append(p.stack, block{scope: s})
	// the header lines belong to the scope they open
	for l := st[0].Line; l <= term.Line && l < len(p.lines); l++ {
		p.lines[l].Scope = s.Name
	}
}

func (p *parser) closeBlock(st []lexer.Token, term lexer.Token) {
	if len(p.stack) == 0 {
		p.ok = false
		return
	}

	want := -1
	if len(st) > 1 {
		switch {
		case st[1].Is("PROCEDURE"):
			want = int(ScopeProcedure)
		case st[1].Is("FUNCTION"):
			want = int(ScopeFunction)
		}
	}

	if want >= 0 {
		top := p.stack[len(p.stack)-1].scope
		if top == nil || int(top.Kind) != want {
			p.ok = false
			idx := -1
			for i := len(p.stack) - 1; i >= 0; i-- {
				if s := p.stack[i].scope; s != nil && int(s.Kind) == want {
					idx = i
					break
				}
			}
			if idx < 0 {
				return
			}
			for len(p.stack)-1 > idx {
				p.pop(term)
			}
		}
	}
	p.pop(term)
}

func (p *parser) pop(term lexer.Token) {
	b := p.stack[len(p.stack)-1]
	p.stack = p.stack[:len(p.stack)-1]
	if b.scope != nil {
		b.scope.Closed = true
		b.scope.EndLine = term.Line
		b.scope.End = term.End
	}
}

func (p *parser) procedure(st []lexer.Token, term lexer.Token) {
	name, i := joinAdjacent(st, 1)
	s := &Scope{ItemBase: p.base(unquote(name), st[0]), Kind: ScopeProcedure}
	for ; i < len(st); i++ {
		switch {
		case st[i].Is("EXTERNAL") && i+1 < len(st):
			s.External = unquote(st[i+1].Value)
		case st[i].Is("PRIVATE"):
			s.Private = true
		}
	}
	p.push(s, st, term)
}

// function handles FUNCTION headers and reports whether the statement was
// consumed. Prototypes (FORWARD, IN handle, or '.'-terminated) are recorded
// without opening a block.
func (p *parser) function(st []lexer.Token, term lexer.Token, isBlock bool) bool {
	if len(st) < 2 {
		return false
	}
	name, i := joinAdjacent(st, 1)
	s := &Scope{ItemBase: p.base(name, st[0]), Kind: ScopeFunction}
	if i < len(st) && st[i].Is("RETURNS", "RETURN") {
		i++
	}
	if i < len(st) && st[i].Is("CLASS") {
		i++
	}
	if i < len(st) && st[i].Value != "(" {
		s.ReturnType, i = joinAdjacent(st, i)
	}

	var params []*Definition
	for ; i < len(st); i++ {
		switch {
		case st[i].Is("PRIVATE"):
			s.Private = true
		case st[i].Is("FORWARD", "IN", "MAP"):
			s.Prototype = true
		case st[i].Value == "(":
			var next int
			params, next = p.functionParams(st, i+1, name)
			i = next
		}
	}

	if !isBlock || s.Prototype {
		s.Prototype = true
		s.Closed = true
		s.StartLine, s.EndLine = st[0].Line, term.Line
		s.Start, s.End = st[0].Start, term.End
		p.items = append(p.items, s)
		return true
	}
	p.push(s, st, term)
	for _, d := range params {
		p.items = append(p.items, d)
	}
	return true
}

// functionParams parses "(INPUT a AS CHAR, OUTPUT TABLE FOR tt)" starting
// after the opening parenthesis and returns the index of the closing one.
func (p *parser) functionParams(st []lexer.Token, i int, owner string) ([]*Definition, int) {
	var out []*Definition
	var cur []lexer.Token
	depth := 0
	flush := func() {
		if d := p.paramFromTokens(cur, owner); d != nil {
			out = append(out, d)
		}
		cur = cur[:0]
	}
	for ; i < len(st); i++ {
		t := st[i]
		switch {
		case t.Value == "(":
			depth++
		case t.Value == ")" && depth == 0:
			flush()
			return out, i
		case t.Value == ")":
			depth--
		case t.Value == "," && depth == 0:
			flush()
			continue
		}
		cur = append(cur, t)
	}
	flush()
	return out, i
}

func (p *parser) paramFromTokens(ts []lexer.Token, owner string) *Definition {
	if len(ts) == 0 {
		return nil
	}
	d := &Definition{Type: DefineParameter, Direction: DirInput}
	i := 0
	if dir, ok := direction(ts[0]); ok {
		d.Direction = dir
		i++
	}
	if !p.parameterBody(d, ts, i) {
		return nil
	}
	d.ItemBase.Owner = owner
	return d
}

// parameterBody fills a parameter definition from the tokens following the
// direction keyword (and PARAMETER, for DEFINE statements).
func (p *parser) parameterBody(d *Definition, ts []lexer.Token, i int) bool {
	if i >= len(ts) {
		return false
	}
	switch {
	case ts[i].Is("TABLE", "DATASET") && i+1 < len(ts) && ts[i+1].Is("FOR"):
		if i+2 >= len(ts) {
			return false
		}
		name, _ := joinAdjacent(ts, i+2)
		d.ItemBase = p.base(name, ts[i+2])
		d.DataType = ts[i].Upper()
		d.BufferFor = name
		return true
	case ts[i].Is("TABLE-HANDLE", "DATASET-HANDLE"):
		if i+1 >= len(ts) {
			return false
		}
		name, _ := joinAdjacent(ts, i+1)
		d.ItemBase = p.base(name, ts[i+1])
		d.DataType = ts[i].Upper()
		d.PrimitiveType = PrimitiveHandle
		return true
	case ts[i].Is("BUFFER"):
		if i+1 >= len(ts) {
			return false
		}
		name, j := joinAdjacent(ts, i+1)
		d.ItemBase = p.base(name, ts[i+1])
		d.DataType = "BUFFER"
		if j < len(ts) && ts[j].Is("FOR") && j+1 < len(ts) {
			d.BufferFor, _ = joinAdjacent(ts, j+1)
		}
		return true
	}
	name, j := joinAdjacent(ts, i)
	d.ItemBase = p.base(name, ts[i])
	p.typeClause(d, ts, j)
	return true
}

// typeClause reads "AS [CLASS] type" or "LIKE field" anywhere after i.
func (p *parser) typeClause(d *Definition, ts []lexer.Token, i int) {
	for ; i < len(ts); i++ {
		switch {
		case ts[i].Is("AS") && i+1 < len(ts):
			j := i + 1
			if ts[j].Is("CLASS") && j+1 < len(ts) {
				j++
			}
			d.DataType, _ = joinAdjacent(ts, j)
			d.PrimitiveType = PrimitiveTypeOf(d.DataType)
			return
		case ts[i].Is("LIKE") && i+1 < len(ts):
			d.DataType, _ = joinAdjacent(ts, i+1)
			d.IsLike = true
			return
		}
	}
}

func (p *parser) trigger(st []lexer.Token, term lexer.Token) {
	parts := make([]string, 0, len(st))
	for i := 1; i < len(st)-1; {
		word, next := joinAdjacent(st, i)
		parts = append(parts, word)
		i = next
	}
	s := &Scope{ItemBase: p.base(strings.Join(parts, " "), st[0]), Kind: ScopeTrigger}
	p.push(s, st, term)
}

var defineModifiers = map[string]bool{
	"NEW": true, "GLOBAL": true, "SHARED": true, "PRIVATE": true, "PROTECTED": true,
	"PUBLIC": true, "STATIC": true, "ABSTRACT": true, "OVERRIDE": true,
	"SERIALIZABLE": true, "NON-SERIALIZABLE": true, "PACKAGE-PRIVATE": true,
	"PACKAGE-PROTECTED": true,
}

var widgetKinds = map[string]bool{
	"BUTTON": true, "IMAGE": true, "MENU": true, "SUB-MENU": true, "RECTANGLE": true,
	"BROWSE": true, "MENU-ITEM": true,
}

func (p *parser) define(st []lexer.Token) {
	d := &Definition{Explicit: true}
	var flags []string
	i := 1
	for ; i < len(st); i++ {
		canon := lexer.Canonical(st[i].Value)
		if defineModifiers[canon] {
			flags = append(flags, canon)
			continue
		}
		if dir, ok := direction(st[i]); ok {
			d.Direction = dir
			continue
		}
		break
	}
	if i+1 >= len(st) {
		return
	}
	d.Scope = strings.Join(flags, " ")
	kind := lexer.Canonical(st[i].Value)
	i++

	switch kind {
	case "VARIABLE", "PROPERTY":
		d.Type = DefineVariable
		if kind == "PROPERTY" {
			d.Subtype = kind
		}
	case "PARAMETER":
		d.Type = DefineParameter
		if d.Direction == DirNone {
			d.Direction = DirInput
		}
		if p.parameterBody(d, st, i) {
			d.Explicit = true
			p.items = append(p.items, d)
		}
		return
	case "TEMP-TABLE", "WORK-TABLE", "WORKFILE":
		d.Type = DefineTempTable
		d.Subtype = kind
	case "BUFFER":
		d.Type = DefineBuffer
	case "QUERY":
		d.Type = DefineQuery
	case "DATASET", "DATA-SOURCE":
		d.Type = DefineDataset
		d.Subtype = kind
	case "STREAM":
		d.Type = DefineStream
	case "FRAME":
		d.Type = DefineFrame
	default:
		if widgetKinds[kind] {
			d.Type = DefineWidget
		} else {
			d.Type = DefineOther
		}
		d.Subtype = kind
	}

	name, j := joinAdjacent(st, i)
	d.ItemBase = p.base(name, st[i])

	switch d.Type {
	case DefineVariable:
		p.typeClause(d, st, j)
	case DefineBuffer:
		for ; j < len(st); j++ {
			if st[j].Is("FOR") && j+1 < len(st) {
				k := j + 1
				if st[k].Is("TEMP-TABLE") && k+1 < len(st) {
					k++
				}
				d.BufferFor, _ = joinAdjacent(st, k)
				break
			}
		}
	case DefineTempTable:
		p.tableBody(d, st, j)
	}
	p.items = append(p.items, d)
}

// tableBody reads LIKE and FIELD clauses of a temp-table definition.
func (p *parser) tableBody(d *Definition, st []lexer.Token, i int) {
	for ; i < len(st); i++ {
		switch {
		case st[i].Is("LIKE") && i+1 < len(st) && len(d.Fields) == 0 && d.LikeTable == "":
			d.LikeTable, _ = joinAdjacent(st, i+1)
		case st[i].Is("FIELD") && i+1 < len(st):
			name, j := joinAdjacent(st, i+1)
			f := Field{Name: name, Line: st[i+1].Line}
			for ; j < len(st) && !st[j].Is("FIELD", "INDEX"); j++ {
				if st[j].Is("AS") && j+1 < len(st) {
					f.DataType, _ = joinAdjacent(st, j+1)
					f.PrimitiveType = PrimitiveTypeOf(f.DataType)
					break
				}
				if st[j].Is("LIKE") && j+1 < len(st) {
					f.DataType, _ = joinAdjacent(st, j+1)
					break
				}
			}
			d.Fields = append(d.Fields, f)
		}
	}
}

func (p *parser) preprocessor(st []lexer.Token) {
	switch lexer.Canonical(st[0].Value) {
	case "&GLOBAL-DEFINE", "&SCOPED-DEFINE":
	default:
		return
	}
	if len(st) < 2 {
		return
	}
	name, j := joinAdjacent(st, 1)
	d := &Definition{
		ItemBase: p.base(name, st[1]),
		Type:     DefinePreprocessor,
		Subtype:  strings.TrimPrefix(lexer.Canonical(st[0].Value), "&"),
		Explicit: true,
	}
	if j < len(st) {
		values := make([]string, 0, len(st)-j)
		for _, t := range st[j:] {
			values = append(values, t.Value)
		}
		d.DataType = strings.Join(values, " ")
	}
	p.items = append(p.items, d)
}

func (p *parser) runStatement(st []lexer.Token) {
	if len(st) < 2 || st[1].Is("VALUE") {
		return
	}
	name, j := joinAdjacent(st, 1)
	u := &UsePoint{ItemBase: p.base(unquote(name), st[1])}
	for ; j < len(st); j++ {
		if st[j].Is("PERSISTENT") {
			u.Persistent = true
		}
	}
	p.items = append(p.items, u)
}

func (p *parser) include(tok lexer.Token) {
	inner := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(tok.Value, "{"), "}"))
	if inner == "" {
		return
	}
	switch c := inner[0]; {
	case c == '&', c == '*', c >= '0' && c <= '9':
		// preprocessor or argument reference
		return
	}
	name := strings.Fields(inner)[0]
	p.items = append(p.items, &Include{ItemBase: p.base(unquote(name), tok), Raw: tok.Value})
}

func direction(t lexer.Token) (Direction, bool) {
	switch {
	case t.Is("INPUT"):
		return DirInput, true
	case t.Is("OUTPUT"):
		return DirOutput, true
	case t.Is("INPUT-OUTPUT"):
		return DirInputOutput, true
	case t.Is("RETURN"):
		return DirReturn, true
	}
	return DirNone, false
}

// joinAdjacent concatenates the tokens starting at i that touch each other
// (no blank between them), so "db.customer.name" or "Progress.Lang.Object"
// come back as one word. It returns the word and the index after it.
func joinAdjacent(ts []lexer.Token, i int) (string, int) {
	if i >= len(ts) {
		return "", i
	}
	var b strings.Builder
	b.WriteString(ts[i].Value)
	j := i + 1
	for ; j < len(ts) && ts[j].Start == ts[j-1].End && !isBracket(ts[j].Value); j++ {
		b.WriteString(ts[j].Value)
	}
	return b.String(), j
}

func isBracket(v string) bool {
	return v == "(" || v == ")" || v == ","
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

// lineCount returns the number of lines covered by the token stream; an
// empty stream still has one line.
func lineCount(tokens []lexer.Token) int {
	if len(tokens) == 0 {
		return 1
	}
	last := tokens[len(tokens)-1]
	return last.Line + newlines(last.Value) + 1
}

func newlines(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\n':
			n++
		case '\r':
			if i+1 >= len(s) || s[i+1] != '\n' {
				n++
			}
		}
	}
	return n
}
