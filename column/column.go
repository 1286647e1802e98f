// Package column implements one codec per ClickHouse column kind: a
// contiguous in-memory vector plus whatever auxiliary arrays its type
// requires (offsets, null bitmap, child columns, dictionary+indices).
//
// Columns are represented as a tagged family of concrete types behind
// a single small interface rather than a deep class hierarchy.
// Composite columns exclusively own their children; there are no
// back-references or cycles.
package column

import (
	"io"

	"github.com/alfa07/chnative/chtype"
	"github.com/alfa07/chnative/wire"
)

// Column is the capability set every column codec exposes: prefix/body
// load and save, size bookkeeping, and untyped append/read for the
// block layer, which does not know concrete column kinds. Typed
// accessors (NumericColumn[T].Append/Get, AppendRow on composites,
// etc.) live on the concrete types for callers who do know their kind.
type Column interface {
	Type() *chtype.Type
	Len() int
	Clear()
	Reserve(n int)

	// LoadPrefix/SavePrefix handle the optional per-column preamble
	// that only LowCardinality (and composites containing it) carry.
	LoadPrefix(r wire.Reader) error
	SavePrefix(w io.Writer) error

	LoadBody(r wire.Reader, n int) error
	SaveBody(w io.Writer) error

	// AppendAny appends a single value whose concrete Go type must
	// match the column's kind; *WrongKindError otherwise.
	AppendAny(v any) error
	// At returns the logical value at row i as its natural Go type.
	At(i int) any
}

// New builds a zero-length Column for the given type.
func New(t *chtype.Type) (Column, error) {
	switch t.Kind {
	case chtype.KindInt8:
		return newNumeric[int8](t, 1, wire.ReadI8, wire.WriteI8), nil
	case chtype.KindInt16:
		return newNumeric[int16](t, 2, wire.ReadI16, wire.WriteI16), nil
	case chtype.KindInt32:
		return newNumeric[int32](t, 4, wire.ReadI32, wire.WriteI32), nil
	case chtype.KindInt64:
		return newNumeric[int64](t, 8, wire.ReadI64, wire.WriteI64), nil
	case chtype.KindUInt8:
		return newNumeric[uint8](t, 1, wire.ReadU8, wire.WriteU8), nil
	case chtype.KindUInt16:
		return newNumeric[uint16](t, 2, wire.ReadU16, wire.WriteU16), nil
	case chtype.KindUInt32:
		return newNumeric[uint32](t, 4, wire.ReadU32, wire.WriteU32), nil
	case chtype.KindUInt64:
		return newNumeric[uint64](t, 8, wire.ReadU64, wire.WriteU64), nil
	case chtype.KindInt128:
		return newFixedWidth(t, 16), nil
	case chtype.KindUInt128:
		return newFixedWidth(t, 16), nil
	case chtype.KindFloat32:
		return newNumeric[float32](t, 4, wire.ReadF32, wire.WriteF32), nil
	case chtype.KindFloat64:
		return newNumeric[float64](t, 8, wire.ReadF64, wire.WriteF64), nil
	case chtype.KindDate:
		return newNumeric[uint16](t, 2, wire.ReadU16, wire.WriteU16), nil
	case chtype.KindDate32:
		return newNumeric[int32](t, 4, wire.ReadI32, wire.WriteI32), nil
	case chtype.KindDateTime:
		return newNumeric[uint32](t, 4, wire.ReadU32, wire.WriteU32), nil
	case chtype.KindDateTime64:
		return newNumeric[int64](t, 8, wire.ReadI64, wire.WriteI64), nil
	case chtype.KindIPv4:
		return newNumeric[uint32](t, 4, wire.ReadU32, wire.WriteU32), nil
	case chtype.KindEnum8:
		return newNumeric[int8](t, 1, wire.ReadI8, wire.WriteI8), nil
	case chtype.KindEnum16:
		return newNumeric[int16](t, 2, wire.ReadI16, wire.WriteI16), nil
	case chtype.KindDecimal:
		return newDecimalColumn(t), nil
	case chtype.KindUUID:
		return newFixedWidth(t, 16), nil
	case chtype.KindIPv6:
		return newFixedWidth(t, 16), nil
	case chtype.KindNothing:
		return newNothing(t), nil
	case chtype.KindString:
		return newString(t), nil
	case chtype.KindFixedString:
		return newFixedString(t), nil
	case chtype.KindArray:
		return newArray(t)
	case chtype.KindNullable:
		return newNullable(t)
	case chtype.KindTuple:
		return newTuple(t)
	case chtype.KindMap:
		return newMap(t)
	case chtype.KindLowCardinality:
		return newLowCardinality(t)
	default:
		return nil, &UnsupportedKindError{Kind: t.Kind}
	}
}
