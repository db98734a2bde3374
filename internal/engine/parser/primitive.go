// # internal/engine/parser/primitive.go
package parser

import (
	"strings"

	"proscope/internal/engine/lexer"
)

type PrimitiveType int

const (
	PrimitiveUnknown PrimitiveType = iota
	PrimitiveCharacter
	PrimitiveInteger
	PrimitiveInt64
	PrimitiveDecimal
	PrimitiveLogical
	PrimitiveDate
	PrimitiveDatetime
	PrimitiveDatetimeTz
	PrimitiveHandle
	PrimitiveComHandle
	PrimitiveRowid
	PrimitiveRecid
	PrimitiveMemptr
	PrimitiveRaw
	PrimitiveLongchar
	PrimitiveClob
	PrimitiveBlob
	PrimitiveClass
)

var primitiveNames = map[string]PrimitiveType{
	"CHARACTER":     PrimitiveCharacter,
	"INTEGER":       PrimitiveInteger,
	"INT64":         PrimitiveInt64,
	"DECIMAL":       PrimitiveDecimal,
	"LOGICAL":       PrimitiveLogical,
	"DATE":          PrimitiveDate,
	"DATETIME":      PrimitiveDatetime,
	"DATETIME-TZ":   PrimitiveDatetimeTz,
	"HANDLE":        PrimitiveHandle,
	"WIDGET-HANDLE": PrimitiveHandle,
	"COM-HANDLE":    PrimitiveComHandle,
	"ROWID":         PrimitiveRowid,
	"RECID":         PrimitiveRecid,
	"MEMPTR":        PrimitiveMemptr,
	"RAW":           PrimitiveRaw,
	"LONGCHAR":      PrimitiveLongchar,
	"CLOB":          PrimitiveClob,
	"BLOB":          PrimitiveBlob,
	"CLASS":         PrimitiveClass,
}

func (p PrimitiveType) String() string {
	for name, v := range primitiveNames {
		if v == p && name != "WIDGET-HANDLE" {
			return name
		}
	}
	return "UNKNOWN"
}

// IsComplex reports whether values of the type are references rather than
// scalar data.
func (p PrimitiveType) IsComplex() bool {
	switch p {
	case PrimitiveHandle, PrimitiveComHandle, PrimitiveMemptr, PrimitiveClass:
		return true
	}
	return false
}

// PrimitiveTypeOf converts a declared type name, abbreviations included, to
// its PrimitiveType. Any other non-empty name is taken to be a class type.
func PrimitiveTypeOf(name string) PrimitiveType {
	name = strings.TrimSpace(name)
	if name == "" {
		return PrimitiveUnknown
	}
	canon := lexer.Canonical(name)
	if p, ok := primitiveNames[canon]; ok {
		return p
	}
	return PrimitiveClass
}
