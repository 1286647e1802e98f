// Package chtype models ClickHouse column type expressions as a
// tagged tree and parses them from their textual form.
package chtype

import (
	"fmt"
	"strings"
)

// Kind tags one node of a Type tree.
type Kind int

const (
	KindInt8 Kind = iota
	KindInt16
	KindInt32
	KindInt64
	KindInt128
	KindUInt8
	KindUInt16
	KindUInt32
	KindUInt64
	KindUInt128
	KindFloat32
	KindFloat64
	KindString
	KindFixedString
	KindDate
	KindDate32
	KindDateTime
	KindDateTime64
	KindDecimal
	KindEnum8
	KindEnum16
	KindUUID
	KindIPv4
	KindIPv6
	KindNothing
	KindArray
	KindNullable
	KindTuple
	KindMap
	KindLowCardinality
)

var kindNames = map[Kind]string{
	KindInt8: "Int8", KindInt16: "Int16", KindInt32: "Int32", KindInt64: "Int64",
	KindInt128: "Int128",
	KindUInt8:  "UInt8", KindUInt16: "UInt16", KindUInt32: "UInt32", KindUInt64: "UInt64",
	KindUInt128: "UInt128",
	KindFloat32: "Float32", KindFloat64: "Float64",
	KindString: "String", KindFixedString: "FixedString",
	KindDate: "Date", KindDate32: "Date32",
	KindDateTime: "DateTime", KindDateTime64: "DateTime64",
	KindDecimal: "Decimal", KindEnum8: "Enum8", KindEnum16: "Enum16",
	KindUUID: "UUID", KindIPv4: "IPv4", KindIPv6: "IPv6", KindNothing: "Nothing",
	KindArray: "Array", KindNullable: "Nullable", KindTuple: "Tuple", KindMap: "Map",
	KindLowCardinality: "LowCardinality",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// EnumItem is one (name, value) pair of an Enum8/Enum16 declaration.
type EnumItem struct {
	Name  string
	Value int64
}

// Type is a tagged node in a type expression tree. Which fields are
// meaningful depends on Kind:
//
//	FixedString: Size
//	DateTime: TZ (optional)
//	DateTime64: Precision, TZ (optional)
//	Decimal: Precision, Scale
//	Enum8/Enum16: Items
//	Array/Nullable/LowCardinality: Elem
//	Tuple: Tuple (unnamed elements, in declaration order)
//	Map: Key, Elem (value)
type Type struct {
	Kind      Kind
	Size      int        // FixedString
	Precision int        // DateTime64, Decimal
	Scale     int        // Decimal
	TZ        string     // DateTime, DateTime64
	Items     []EnumItem // Enum8, Enum16
	Elem      *Type      // Array, Nullable, LowCardinality, Map value
	Key       *Type      // Map key
	Tuple     []*Type    // Tuple elements, in declaration order
}

// Simple builds a leaf type with no parameters.
func Simple(k Kind) *Type { return &Type{Kind: k} }

// Name renders the canonical textual form of t. Parse(t.Name()) must
// reproduce an equivalent tree.
func (t *Type) Name() string {
	if t == nil {
		return ""
	}
	switch t.Kind {
	case KindFixedString:
		return fmt.Sprintf("FixedString(%d)", t.Size)
	case KindDateTime:
		if t.TZ != "" {
			return fmt.Sprintf("DateTime(%s)", quote(t.TZ))
		}
		return "DateTime"
	case KindDateTime64:
		if t.TZ != "" {
			return fmt.Sprintf("DateTime64(%d, %s)", t.Precision, quote(t.TZ))
		}
		return fmt.Sprintf("DateTime64(%d)", t.Precision)
	case KindDecimal:
		return fmt.Sprintf("Decimal(%d, %d)", t.Precision, t.Scale)
	case KindEnum8, KindEnum16:
		parts := make([]string, len(t.Items))
		for i, it := range t.Items {
			parts[i] = fmt.Sprintf("%s = %d", quote(it.Name), it.Value)
		}
		return fmt.Sprintf("%s(%s)", t.Kind, strings.Join(parts, ", "))
	case KindArray:
		return fmt.Sprintf("Array(%s)", t.Elem.Name())
	case KindNullable:
		return fmt.Sprintf("Nullable(%s)", t.Elem.Name())
	case KindLowCardinality:
		return fmt.Sprintf("LowCardinality(%s)", t.Elem.Name())
	case KindTuple:
		parts := make([]string, len(t.Tuple))
		for i, e := range t.Tuple {
			parts[i] = e.Name()
		}
		return fmt.Sprintf("Tuple(%s)", strings.Join(parts, ", "))
	case KindMap:
		return fmt.Sprintf("Map(%s, %s)", t.Key.Name(), t.Elem.Name())
	default:
		return t.Kind.String()
	}
}

func quote(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range s {
		if r == '\'' {
			b.WriteString("''")
		} else {
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

// Composite reports whether t is a container type (Array, Nullable,
// Tuple, Map, LowCardinality).
func (t *Type) Composite() bool {
	switch t.Kind {
	case KindArray, KindNullable, KindTuple, KindMap, KindLowCardinality:
		return true
	}
	return false
}

// IsNullable reports whether t is Nullable(X).
func (t *Type) IsNullable() bool { return t.Kind == KindNullable }

// Equal reports structural equality of two type trees.
func (t *Type) Equal(o *Type) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.Kind != o.Kind || t.Size != o.Size || t.Precision != o.Precision ||
		t.Scale != o.Scale || t.TZ != o.TZ {
		return false
	}
	if len(t.Items) != len(o.Items) {
		return false
	}
	for i := range t.Items {
		if t.Items[i] != o.Items[i] {
			return false
		}
	}
	if !t.Elem.Equal(o.Elem) || !t.Key.Equal(o.Key) {
		return false
	}
	if len(t.Tuple) != len(o.Tuple) {
		return false
	}
	for i := range t.Tuple {
		if !t.Tuple[i].Equal(o.Tuple[i]) {
			return false
		}
	}
	return true
}
