package lexer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requireTotal checks that tokens are ordered, never overlap and cover text.
func requireTotal(t *testing.T, text string, tokens []Token) {
	t.Helper()
	pos := 0
	var b strings.Builder
	for i, tok := range tokens {
		require.Equal(t, pos, tok.Start, "token %d (%s %q) starts late or overlaps", i, tok.Kind, tok.Value)
		require.Greater(t, tok.End, tok.Start, "token %d is empty", i)
		require.Equal(t, text[tok.Start:tok.End], tok.Value)
		b.WriteString(tok.Value)
		pos = tok.End
	}
	require.Equal(t, len(text), pos)
	require.Equal(t, text, b.String())
}

func kinds(tokens []Token) []Kind {
	out := make([]Kind, 0, len(tokens))
	for _, tok := range tokens {
		out = append(out, tok.Kind)
	}
	return out
}

func significant(tokens []Token) []Token {
	var out []Token
	for _, tok := range tokens {
		if tok.Kind != KindWhitespace && tok.Kind != KindEOL {
			out = append(out, tok)
		}
	}
	return out
}

func TestTokenize_Total(t *testing.T) {
	inputs := []string{
		"",
		" ",
		"DEFINE VARIABLE x AS INTEGER NO-UNDO.",
		"/* never closed",
		"\"never closed",
		"{inc.i &a=1",
		"PROCEDURE foo:\r\n  RUN bar.\rEND.\n",
		"x = 'it''s' + \"a~\"b\".",
		"/* a /* b */ c */ DISPLAY 1.5 obj:Method() db.table.field.",
		"// trailing line comment",
		"&SCOPED-DEFINE X 1\n&IF DEFINED(X) &THEN\n&ENDIF",
		"MESSAGE \"héllo wörld\" VIEW-AS ALERT-BOX.",
		"\x00\xff weird bytes",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			requireTotal(t, in, Tokenize(in))
		})
	}
}

func TestTokenize_Empty(t *testing.T) {
	assert.Empty(t, Tokenize(""))
}

func TestTokenize_NestedBlockComment(t *testing.T) {
	text := "/* a /* b */ c */ x"
	tokens := Tokenize(text)
	requireTotal(t, text, tokens)
	require.Len(t, tokens, 3)
	assert.Equal(t, KindComment, tokens[0].Kind)
	assert.Equal(t, "/* a /* b */ c */", tokens[0].Value)
}

func TestTokenize_UnterminatedComment(t *testing.T) {
	text := "x. /* open /* nested */\nstill comment"
	tokens := Tokenize(text)
	requireTotal(t, text, tokens)
	last := tokens[len(tokens)-1]
	assert.Equal(t, KindComment, last.Kind)
	assert.Equal(t, "/* open /* nested */\nstill comment", last.Value)
}

func TestTokenize_Strings(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{`"plain"`, `"plain"`},
		{`'single'`, `'single'`},
		{`"dou""bled"`, `"dou""bled"`},
		{`"tilde~"quote"`, `"tilde~"quote"`},
		{"\"multi\nline\"", "\"multi\nline\""},
		{`"open`, `"open`},
	}
	for _, tt := range tests {
		tokens := Tokenize(tt.text)
		requireTotal(t, tt.text, tokens)
		require.Len(t, tokens, 1, tt.text)
		assert.Equal(t, KindString, tokens[0].Kind)
		assert.Equal(t, tt.want, tokens[0].Value)
	}
}

func TestTokenize_StringAttribute(t *testing.T) {
	tokens := significant(Tokenize(`MESSAGE "x":U.`))
	require.Len(t, tokens, 5)
	assert.Equal(t, KindString, tokens[1].Kind)
	assert.Equal(t, KindSymbol, tokens[2].Kind)
	assert.Equal(t, KindIdentifier, tokens[3].Kind)
	assert.Equal(t, KindStatementEnd, tokens[4].Kind)
}

func TestTokenize_Include(t *testing.T) {
	text := "{inc/defs.i &tt={&table} }\nDISPLAY 1."
	tokens := Tokenize(text)
	requireTotal(t, text, tokens)
	assert.Equal(t, KindInclude, tokens[0].Kind)
	assert.Equal(t, "{inc/defs.i &tt={&table} }", tokens[0].Value)
}

func TestTokenize_StatementEnd(t *testing.T) {
	tokens := significant(Tokenize("FIND db.customer. obj:Run(). DO:\nEND./* c */"))
	var got []string
	for _, tok := range tokens {
		if tok.Kind == KindStatementEnd {
			got = append(got, tok.Value)
		}
	}
	assert.Equal(t, []string{".", ".", ":", "."}, got)
	assert.Equal(t, "db", tokens[1].Value)
	assert.Equal(t, KindSymbol, tokens[2].Kind)
}

func TestTokenize_EOL(t *testing.T) {
	text := "a\r\nb\nc\rd"
	tokens := Tokenize(text)
	requireTotal(t, text, tokens)
	assert.Equal(t, []Kind{
		KindIdentifier, KindEOL, KindIdentifier, KindEOL, KindIdentifier, KindEOL, KindIdentifier,
	}, kinds(tokens))
	assert.Equal(t, "\r\n", tokens[1].Value)
	for i, want := range []int{0, 0, 1, 1, 2, 2, 3} {
		assert.Equal(t, want, tokens[i].Line, "token %d", i)
	}
}

func TestTokenize_Preprocessor(t *testing.T) {
	tokens := significant(Tokenize("&GLOBAL-DEFINE x 1\nDISPLAY {&x} a&b."))
	assert.Equal(t, KindPreprocessor, tokens[0].Kind)
	assert.Equal(t, "&GLOBAL-DEFINE", tokens[0].Value)
	for _, tok := range tokens[1:] {
		assert.NotEqual(t, KindPreprocessor, tok.Kind, tok.Value)
	}
}

func TestTokenize_KeywordsAndNumbers(t *testing.T) {
	tokens := significant(Tokenize("def var cnt as int initial 12.5 no-undo."))
	require.Len(t, tokens, 9)
	assert.Equal(t, KindKeyword, tokens[0].Kind)
	assert.Equal(t, KindKeyword, tokens[1].Kind)
	assert.Equal(t, KindIdentifier, tokens[2].Kind)
	assert.Equal(t, KindKeyword, tokens[4].Kind)
	assert.Equal(t, KindNumber, tokens[6].Kind)
	assert.Equal(t, "12.5", tokens[6].Value)
	assert.Equal(t, KindStatementEnd, tokens[len(tokens)-1].Kind)
}

func TestTokenize_Columns(t *testing.T) {
	tokens := Tokenize("a\n  bc")
	last := tokens[len(tokens)-1]
	assert.Equal(t, 1, last.Line)
	assert.Equal(t, 2, last.Column)
}

func TestCanonical(t *testing.T) {
	tests := map[string]string{
		"def":            "DEFINE",
		"DEFI":           "DEFINE",
		"var":            "VARIABLE",
		"proc":           "PROCEDURE",
		"func":           "FUNCTION",
		"param":          "PARAMETER",
		"int":            "INTEGER",
		"char":           "CHARACTER",
		"int64":          "INT64",
		"&glob":          "&GLOBAL-DEFINE",
		"&scoped-define": "&SCOPED-DEFINE",
		"de":             "DE",
		"customer":       "CUSTOMER",
	}
	for in, want := range tests {
		assert.Equal(t, want, Canonical(in), in)
	}
	assert.True(t, IsKeyword("No-Undo"))
	assert.False(t, IsKeyword("customer"))
}

func TestToken_Helpers(t *testing.T) {
	tok := Token{Kind: KindKeyword, Start: 2, End: 5, Value: "Def"}
	assert.True(t, tok.Is("VARIABLE", "DEFINE"))
	assert.False(t, tok.Is("END"))
	assert.Equal(t, "DEF", tok.Upper())
	assert.True(t, tok.Contains(2))
	assert.False(t, tok.Contains(5))
	assert.False(t, Token{Kind: KindString, Value: "def"}.Is("DEFINE"))
	assert.True(t, Token{Kind: KindLineComment}.IsTrivia())
	assert.Equal(t, "keyword", KindKeyword.String())
}
