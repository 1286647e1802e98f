package column

import (
	"io"

	"github.com/alfa07/chnative/chtype"
	"github.com/alfa07/chnative/wire"
)

// decimalColumn stores Decimal(P,S) values as their underlying scaled
// integer, width chosen by precision: P<=9 is Int32, P<=18 is Int64,
// P<=38 is Int128 (16 raw bytes), else Int256 (32 raw bytes).
type decimalColumn struct {
	typ   *chtype.Type
	width int
	i32   *NumericColumn[int32]
	i64   *NumericColumn[int64]
	wide  *fixedWidthColumn
}

func newDecimalColumn(t *chtype.Type) *decimalColumn {
	d := &decimalColumn{typ: t}
	switch {
	case t.Precision <= 9:
		d.width = 4
		d.i32 = newNumeric[int32](t, 4, wire.ReadI32, wire.WriteI32)
	case t.Precision <= 18:
		d.width = 8
		d.i64 = newNumeric[int64](t, 8, wire.ReadI64, wire.WriteI64)
	case t.Precision <= 38:
		d.width = 16
		d.wide = newFixedWidth(t, 16)
	default:
		d.width = 32
		d.wide = newFixedWidth(t, 32)
	}
	return d
}

func (c *decimalColumn) Type() *chtype.Type { return c.typ }

func (c *decimalColumn) Len() int {
	switch {
	case c.i32 != nil:
		return c.i32.Len()
	case c.i64 != nil:
		return c.i64.Len()
	default:
		return c.wide.Len()
	}
}

func (c *decimalColumn) Clear() {
	switch {
	case c.i32 != nil:
		c.i32.Clear()
	case c.i64 != nil:
		c.i64.Clear()
	default:
		c.wide.Clear()
	}
}

func (c *decimalColumn) Reserve(n int) {
	switch {
	case c.i32 != nil:
		c.i32.Reserve(n)
	case c.i64 != nil:
		c.i64.Reserve(n)
	default:
		c.wide.Reserve(n)
	}
}

func (c *decimalColumn) LoadPrefix(r wire.Reader) error { return nil }
func (c *decimalColumn) SavePrefix(w io.Writer) error   { return nil }

func (c *decimalColumn) LoadBody(r wire.Reader, n int) error {
	switch {
	case c.i32 != nil:
		return c.i32.LoadBody(r, n)
	case c.i64 != nil:
		return c.i64.LoadBody(r, n)
	default:
		return c.wide.LoadBody(r, n)
	}
}

func (c *decimalColumn) SaveBody(w io.Writer) error {
	switch {
	case c.i32 != nil:
		return c.i32.SaveBody(w)
	case c.i64 != nil:
		return c.i64.SaveBody(w)
	default:
		return c.wide.SaveBody(w)
	}
}

// AppendScaled appends a scaled integer in its narrow form (int32 or
// int64); only valid when precision <= 18.
func (c *decimalColumn) AppendScaled(v int64) error {
	switch {
	case c.i32 != nil:
		c.i32.Append(int32(v))
	case c.i64 != nil:
		c.i64.Append(v)
	default:
		return &WrongKindError{Kind: c.typ.Kind, Got: v}
	}
	return nil
}

func (c *decimalColumn) AppendAny(v any) error {
	switch tv := v.(type) {
	case int64:
		return c.AppendScaled(tv)
	case int32:
		return c.AppendScaled(int64(tv))
	case []byte:
		if c.wide == nil {
			return &WrongKindError{Kind: c.typ.Kind, Got: v}
		}
		return c.wide.Append(tv)
	default:
		return &WrongKindError{Kind: c.typ.Kind, Got: v}
	}
}

func (c *decimalColumn) At(i int) any {
	switch {
	case c.i32 != nil:
		return c.i32.At(i)
	case c.i64 != nil:
		return c.i64.At(i)
	default:
		return c.wide.At(i)
	}
}
