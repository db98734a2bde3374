// # internal/engine/parser/parser_test.go
package parser

import (
	"testing"

	"proscope/internal/engine/lexer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func definitions(res Result) []*Definition {
	var out []*Definition
	for _, it := range res.Items {
		if d, ok := it.(*Definition); ok {
			out = append(out, d)
		}
	}
	return out
}

func scopes(res Result) []*Scope {
	var out []*Scope
	for _, it := range res.Items {
		if s, ok := it.(*Scope); ok {
			out = append(out, s)
		}
	}
	return out
}

func findDef(t *testing.T, res Result, name string) *Definition {
	t.Helper()
	for _, d := range definitions(res) {
		if d.Name == name {
			return d
		}
	}
	t.Fatalf("definition %q not found", name)
	return nil
}

func TestParse_ProcedureScope(t *testing.T) {
	res := ParseText("PROCEDURE foo:\n  DEFINE VARIABLE x AS INTEGER.\nEND PROCEDURE.", "a.p")

	require.True(t, res.ParsingOk)
	require.Len(t, res.Items, 2)

	s := scopes(res)
	require.Len(t, s, 1)
	assert.Equal(t, "foo", s[0].Name)
	assert.Equal(t, ScopeProcedure, s[0].Kind)
	assert.Equal(t, 0, s[0].StartLine)
	assert.Equal(t, 2, s[0].EndLine)
	assert.True(t, s[0].Closed)
	assert.Equal(t, "a.p", s[0].FilePath)

	x := findDef(t, res, "x")
	assert.Equal(t, "foo", x.Owner)
	assert.Equal(t, DefineVariable, x.Type)
	assert.Equal(t, PrimitiveInteger, x.PrimitiveType)
	assert.True(t, x.Explicit)
	assert.Equal(t, 1, x.Position.Line)

	require.Len(t, res.Lines, 3)
	for i, li := range res.Lines {
		assert.Equal(t, "foo", li.Scope, "line %d", i)
	}
	assert.Equal(t, []int{0, 1, 0}, []int{res.Lines[0].BlockDepth, res.Lines[1].BlockDepth, res.Lines[2].BlockDepth})
}

func TestParse_FileScopeDefinition(t *testing.T) {
	res := ParseText("DEFINE VARIABLE x AS INTEGER.", "")

	require.True(t, res.ParsingOk)
	x := findDef(t, res, "x")
	assert.Equal(t, "", x.Owner)
	require.Len(t, res.Lines, 1)
	assert.Equal(t, "", res.Lines[0].Scope)
}

func TestParse_TruncatedProcedure(t *testing.T) {
	text := "PROCEDURE foo:\n  DEFINE VARIABLE x AS INTEGER."
	res := ParseText(text, "")

	assert.False(t, res.ParsingOk)
	x := findDef(t, res, "x")
	assert.Equal(t, "foo", x.Owner)

	s := scopes(res)[0]
	assert.False(t, s.Closed)
	assert.Equal(t, len(text), s.End)
	assert.Equal(t, 1, s.EndLine)
}

func TestParse_Functions(t *testing.T) {
	text := "FUNCTION getName RETURNS CHARACTER (INPUT pId AS INTEGER) FORWARD.\n" +
		"FUNCTION getName RETURNS CHARACTER (INPUT pId AS INTEGER, OUTPUT TABLE FOR ttOrder):\n" +
		"  RETURN \"x\".\n" +
		"END FUNCTION."
	res := ParseText(text, "")

	require.True(t, res.ParsingOk)
	s := scopes(res)
	require.Len(t, s, 2)
	assert.True(t, s[0].Prototype)
	assert.False(t, s[1].Prototype)
	assert.Equal(t, "CHARACTER", s[1].ReturnType)
	assert.Equal(t, ScopeFunction, s[1].Kind)

	params := definitions(res)
	require.Len(t, params, 2, "prototype parameters are not recorded")
	assert.Equal(t, "pId", params[0].Name)
	assert.Equal(t, "getName", params[0].Owner)
	assert.Equal(t, DirInput, params[0].Direction)
	assert.Equal(t, PrimitiveInteger, params[0].PrimitiveType)
	assert.False(t, params[0].Explicit)

	assert.Equal(t, "ttOrder", params[1].Name)
	assert.Equal(t, DirOutput, params[1].Direction)
	assert.Equal(t, "TABLE", params[1].DataType)
	assert.Equal(t, "ttOrder", params[1].BufferFor)

	assert.Equal(t, "", res.Lines[0].Scope)
	assert.Equal(t, "getName", res.Lines[1].Scope)
	assert.Equal(t, "getName", res.Lines[3].Scope)
}

func TestParse_UnbalancedBlocks(t *testing.T) {
	t.Run("end procedure inside do block", func(t *testing.T) {
		res := ParseText("PROCEDURE p:\n  DO:\nEND PROCEDURE.\nDEFINE VARIABLE y AS INT.", "")
		assert.False(t, res.ParsingOk)
		assert.True(t, scopes(res)[0].Closed)
		assert.Equal(t, "", findDef(t, res, "y").Owner)
	})

	t.Run("end without opener", func(t *testing.T) {
		res := ParseText("END.\nDEFINE VARIABLE y AS INT.", "")
		assert.False(t, res.ParsingOk)
		assert.Equal(t, "", findDef(t, res, "y").Owner)
	})

	t.Run("end function without function", func(t *testing.T) {
		res := ParseText("DO:\nEND FUNCTION.\nEND.", "")
		assert.False(t, res.ParsingOk)
	})
}

func TestParse_Trigger(t *testing.T) {
	res := ParseText("ON CHOOSE OF btnOk DO:\n  MESSAGE \"x\".\nEND.", "")

	require.True(t, res.ParsingOk)
	s := scopes(res)
	require.Len(t, s, 1)
	assert.Equal(t, ScopeTrigger, s[0].Kind)
	assert.Equal(t, "CHOOSE OF btnOk", s[0].Name)
	assert.Equal(t, "CHOOSE OF btnOk", res.Lines[1].Scope)
}

func TestParse_AnonymousBlocksAndLabels(t *testing.T) {
	text := "DO:\n" +
		"  FOR EACH customer NO-LOCK:\n" +
		"    DISPLAY customer.name.\n" +
		"  END.\n" +
		"END.\n" +
		"blk: REPEAT:\n" +
		"  LEAVE blk.\n" +
		"END."
	res := ParseText(text, "")

	require.True(t, res.ParsingOk)
	assert.Empty(t, scopes(res))
	depths := make([]int, len(res.Lines))
	for i, li := range res.Lines {
		depths[i] = li.BlockDepth
		assert.Equal(t, "", li.Scope)
	}
	assert.Equal(t, []int{0, 1, 2, 1, 0, 0, 1, 0}, depths)
}

func TestParse_Definitions(t *testing.T) {
	text := "DEFINE NEW SHARED TEMP-TABLE ttOrder NO-UNDO\n" +
		"  FIELD id AS INTEGER\n" +
		"  FIELD name AS CHARACTER.\n" +
		"DEFINE BUFFER bOrder FOR TEMP-TABLE ttOrder.\n" +
		"DEFINE INPUT PARAMETER TABLE FOR ttOrder.\n" +
		"DEFINE BUTTON btnOk LABEL \"OK\".\n" +
		"DEFINE VARIABLE cName LIKE ttOrder.name NO-UNDO.\n" +
		"&GLOBAL-DEFINE MAX 10\n" +
		"DEF VAR h AS HANDLE.\n" +
		"DEFINE OUTPUT PARAMETER pOk AS LOGICAL.\n" +
		"DEFINE QUERY qOrder FOR ttOrder.\n"
	res := ParseText(text, "")
	require.True(t, res.ParsingOk)

	tt := findDef(t, res, "ttOrder")
	assert.Equal(t, DefineTempTable, tt.Type)
	assert.Equal(t, "NEW SHARED", tt.Scope)
	require.Len(t, tt.Fields, 2)
	assert.Equal(t, "id", tt.Fields[0].Name)
	assert.Equal(t, PrimitiveInteger, tt.Fields[0].PrimitiveType)
	assert.Equal(t, "name", tt.Fields[1].Name)
	assert.Equal(t, PrimitiveCharacter, tt.Fields[1].PrimitiveType)

	b := findDef(t, res, "bOrder")
	assert.Equal(t, DefineBuffer, b.Type)
	assert.Equal(t, "ttOrder", b.BufferFor)

	btn := findDef(t, res, "btnOk")
	assert.Equal(t, DefineWidget, btn.Type)
	assert.Equal(t, "BUTTON", btn.Subtype)

	c := findDef(t, res, "cName")
	assert.True(t, c.IsLike)
	assert.Equal(t, "ttOrder.name", c.DataType)

	m := findDef(t, res, "MAX")
	assert.Equal(t, DefinePreprocessor, m.Type)
	assert.Equal(t, "GLOBAL-DEFINE", m.Subtype)
	assert.Equal(t, "10", m.DataType)

	h := findDef(t, res, "h")
	assert.Equal(t, PrimitiveHandle, h.PrimitiveType)

	ok := findDef(t, res, "pOk")
	assert.Equal(t, DefineParameter, ok.Type)
	assert.Equal(t, DirOutput, ok.Direction)
	assert.True(t, ok.Explicit)

	assert.Equal(t, DefineQuery, findDef(t, res, "qOrder").Type)
}

func TestParse_ProcedureModifiers(t *testing.T) {
	res := ParseText("PROCEDURE GetTick EXTERNAL \"kernel32.dll\":\nEND PROCEDURE.\n"+
		"PROCEDURE helper PRIVATE:\nEND PROCEDURE.", "")

	s := scopes(res)
	require.Len(t, s, 2)
	assert.Equal(t, "kernel32.dll", s[0].External)
	assert.True(t, s[1].Private)
}

func TestParse_IncludesAndRun(t *testing.T) {
	res := ParseText("{inc/defs.i &tt=ttOrder}\n{&x}\n{1}\n"+
		"RUN proc.p PERSISTENT SET h.\nRUN VALUE(cProc).\nRUN \"quoted.p\".", "main.p")

	var incs []*Include
	var runs []*UsePoint
	for _, it := range res.Items {
		switch v := it.(type) {
		case *Include:
			incs = append(incs, v)
		case *UsePoint:
			runs = append(runs, v)
		}
	}
	require.Len(t, incs, 1)
	assert.Equal(t, "inc/defs.i", incs[0].Name)
	assert.Equal(t, "{inc/defs.i &tt=ttOrder}", incs[0].Raw)

	require.Len(t, runs, 2)
	assert.Equal(t, "proc.p", runs[0].Name)
	assert.True(t, runs[0].Persistent)
	assert.Equal(t, "quoted.p", runs[1].Name)
	assert.False(t, runs[1].Persistent)
}

func TestParse_PriorLineInfo(t *testing.T) {
	text := "DO:\n  x = 1.\n\n"
	prior := []LineInfo{{BlockDepth: 0}, {BlockDepth: 1}, {BlockDepth: 5}, {BlockDepth: 7}}

	interactive := Parse(lexer.Tokenize(text), "", prior, true)
	require.Len(t, interactive.Lines, 4)
	assert.Equal(t, 5, interactive.Lines[2].BlockDepth)
	assert.Equal(t, 7, interactive.Lines[3].BlockDepth)

	batch := Parse(lexer.Tokenize(text), "", prior, false)
	assert.Equal(t, 1, batch.Lines[2].BlockDepth)
	assert.Equal(t, 1, batch.Lines[3].BlockDepth)
}

func TestParse_LineInfoCoversEveryLine(t *testing.T) {
	inputs := map[string]int{
		"":                     1,
		"x":                    1,
		"x\n":                  2,
		"a\r\nb\rc\n":          4,
		"/* a\nb\nc */":        3,
		"\"open\nstring":       2,
		"PROCEDURE p:\n\n\n\n": 5,
	}
	for text, want := range inputs {
		res := ParseText(text, "")
		assert.Len(t, res.Lines, want, "%q", text)
	}
}

func TestParse_Idempotent(t *testing.T) {
	text := "DEFINE TEMP-TABLE tt FIELD a AS INT.\n" +
		"FUNCTION f RETURNS INT (p AS CHAR):\n  RETURN 1.\nEND.\n" +
		"PROCEDURE q:\n  DEFINE BUFFER b FOR tt.\nEND PROCEDURE."
	first := ParseText(text, "x.p")
	second := ParseText(text, "x.p")
	assert.Equal(t, first, second)
}

func TestPrimitiveTypeOf(t *testing.T) {
	tests := map[string]PrimitiveType{
		"CHARACTER":            PrimitiveCharacter,
		"char":                 PrimitiveCharacter,
		"int":                  PrimitiveInteger,
		"INT64":                PrimitiveInt64,
		"dec":                  PrimitiveDecimal,
		"log":                  PrimitiveLogical,
		"date":                 PrimitiveDate,
		"datetime-tz":          PrimitiveDatetimeTz,
		"widget-handle":        PrimitiveHandle,
		"com-handle":           PrimitiveComHandle,
		"longchar":             PrimitiveLongchar,
		"memptr":               PrimitiveMemptr,
		"Progress.Lang.Object": PrimitiveClass,
		"":                     PrimitiveUnknown,
	}
	for in, want := range tests {
		assert.Equal(t, want, PrimitiveTypeOf(in), in)
	}
	assert.True(t, PrimitiveClass.IsComplex())
	assert.False(t, PrimitiveInteger.IsComplex())
	assert.Equal(t, "INTEGER", PrimitiveInteger.String())
}
