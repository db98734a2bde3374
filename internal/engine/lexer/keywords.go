// # internal/engine/lexer/keywords.go
package lexer

import "strings"

// abbrev is a keyword that may be shortened down to minLen characters.
type abbrev struct {
	word   string
	minLen int
}

var abbreviations = []abbrev{
	{"DEFINE", 3},
	{"VARIABLE", 3},
	{"PARAMETER", 5},
	{"PROCEDURE", 4},
	{"FUNCTION", 4},
	{"CHARACTER", 4},
	{"INTEGER", 3},
	{"DECIMAL", 3},
	{"LOGICAL", 3},
	{"GLOBAL-DEFINE", 4},
	{"SCOPED-DEFINE", 4},
	{"TRIGGERS", 7},
	{"EXTERNAL", 8},
	{"PERSISTENT", 7},
	{"EXCLUSIVE-LOCK", 9},
	{"DISPLAY", 4},
	{"INITIAL", 4},
	{"PRIVATE", 7},
	{"RETURNS", 7},
}

var keywords = map[string]struct{}{}

func init() {
	for _, kw := range []string{
		"DEFINE", "VARIABLE", "PARAMETER", "TEMP-TABLE", "WORK-TABLE", "WORKFILE",
		"BUFFER", "QUERY", "DATASET", "DATA-SOURCE", "STREAM", "FRAME", "BROWSE",
		"BUTTON", "IMAGE", "MENU", "SUB-MENU", "RECTANGLE", "EVENT", "PROPERTY",
		"NEW", "GLOBAL", "SHARED", "PRIVATE", "PROTECTED", "PUBLIC", "STATIC",
		"INPUT", "OUTPUT", "INPUT-OUTPUT", "RETURN", "RETURNS", "AS", "LIKE",
		"FOR", "EACH", "FIRST", "LAST", "WHERE", "NO-LOCK", "SHARE-LOCK",
		"EXCLUSIVE-LOCK", "NO-UNDO", "UNDO", "INITIAL", "EXTENT", "FORMAT",
		"LABEL", "FIELD", "INDEX", "IS", "PRIMARY", "UNIQUE",
		"PROCEDURE", "FUNCTION", "FORWARD", "IN", "SUPER", "EXTERNAL",
		"PERSISTENT", "END", "TRIGGERS", "ON", "OF", "ANYWHERE", "DO", "REPEAT",
		"CASE", "WHEN", "OTHERWISE", "IF", "THEN", "ELSE", "RUN", "VALUE",
		"CATCH", "FINALLY", "CLASS", "INTERFACE", "METHOD", "CONSTRUCTOR",
		"DESTRUCTOR", "GET", "SET", "USING", "INHERITS", "IMPLEMENTS",
		"ASSIGN", "DISPLAY", "MESSAGE", "VIEW-AS", "ALERT-BOX", "WITH",
		"LEAVE", "NEXT", "ERROR", "NO-ERROR", "TRANSACTION", "FIND", "CREATE",
		"DELETE", "RELEASE", "AVAILABLE", "NOT", "AND", "OR", "BEGINS",
		"MATCHES", "EQ", "NE", "LT", "LE", "GT", "GE", "TRUE", "FALSE", "YES",
		"NO", "TABLE", "TABLE-HANDLE", "DATASET-HANDLE", "BY", "BREAK", "TO",
		"WHILE", "APPLY", "PUBLISH", "SUBSCRIBE", "UNSUBSCRIBE", "OPEN", "CLOSE",
		"GLOBAL-DEFINE", "SCOPED-DEFINE", "UNDEFINE", "ANALYZE-SUSPEND",
		"ANALYZE-RESUME", "PROCEDURE-COMPLETE",
		"CHARACTER", "INTEGER", "INT64", "DECIMAL", "LOGICAL", "DATE", "DATETIME",
		"DATETIME-TZ", "HANDLE", "COM-HANDLE", "ROWID", "RECID", "MEMPTR", "RAW",
		"LONGCHAR", "CLOB", "BLOB",
	} {
		keywords[kw] = struct{}{}
	}
}

// Canonical upper-cases word and expands known abbreviations, so that
// "def", "DEFI" and "define" all yield "DEFINE". Preprocessor words keep
// their leading '&'.
func Canonical(word string) string {
	upper := strings.ToUpper(word)
	if strings.HasPrefix(upper, "&") {
		return "&" + Canonical(upper[1:])
	}
	if _, ok := keywords[upper]; ok {
		return upper
	}
	for _, a := range abbreviations {
		if len(upper) >= a.minLen && len(upper) <= len(a.word) && strings.HasPrefix(a.word, upper) {
			return a.word
		}
	}
	return upper
}

// IsKeyword reports whether word is a reserved ABL keyword or one of its
// abbreviations.
func IsKeyword(word string) bool {
	_, ok := keywords[Canonical(word)]
	return ok
}
