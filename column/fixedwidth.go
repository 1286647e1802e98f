package column

import (
	"io"

	"github.com/alfa07/chnative/chtype"
	"github.com/alfa07/chnative/wire"
)

// fixedWidthColumn stores N raw little-endian byte slots of a
// constant width: UUID, IPv6, Int128/UInt128, and Decimal128/256 all
// share this representation since Go has no native wide-integer type.
type fixedWidthColumn struct {
	typ   *chtype.Type
	width int
	data  [][]byte
}

func newFixedWidth(t *chtype.Type, width int) *fixedWidthColumn {
	return &fixedWidthColumn{typ: t, width: width}
}

func (c *fixedWidthColumn) Type() *chtype.Type { return c.typ }
func (c *fixedWidthColumn) Len() int           { return len(c.data) }
func (c *fixedWidthColumn) Clear()             { c.data = c.data[:0] }
func (c *fixedWidthColumn) Reserve(n int) {
	if cap(c.data)-len(c.data) < n {
		grown := make([][]byte, len(c.data), len(c.data)+n)
		copy(grown, c.data)
		c.data = grown
	}
}

func (c *fixedWidthColumn) LoadPrefix(r wire.Reader) error { return nil }
func (c *fixedWidthColumn) SavePrefix(w io.Writer) error   { return nil }

func (c *fixedWidthColumn) LoadBody(r wire.Reader, n int) error {
	c.data = make([][]byte, n)
	for i := 0; i < n; i++ {
		b, err := wire.ReadBytes(r, c.width)
		if err != nil {
			return err
		}
		c.data[i] = b
	}
	return nil
}

func (c *fixedWidthColumn) SaveBody(w io.Writer) error {
	for _, b := range c.data {
		if err := wire.WriteBytes(w, b); err != nil {
			return err
		}
	}
	return nil
}

// Append appends a raw little-endian value; v must have length width.
func (c *fixedWidthColumn) Append(v []byte) error {
	if len(v) != c.width {
		return &WrongKindError{Kind: c.typ.Kind, Got: v}
	}
	cp := make([]byte, c.width)
	copy(cp, v)
	c.data = append(c.data, cp)
	return nil
}

func (c *fixedWidthColumn) Get(i int) []byte { return c.data[i] }

func (c *fixedWidthColumn) AppendAny(v any) error {
	b, ok := v.([]byte)
	if !ok {
		return &WrongKindError{Kind: c.typ.Kind, Got: v}
	}
	return c.Append(b)
}

func (c *fixedWidthColumn) At(i int) any {
	if i < 0 || i >= len(c.data) {
		return nil
	}
	return c.data[i]
}
