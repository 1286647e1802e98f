package column

import (
	"io"

	"github.com/alfa07/chnative/chtype"
	"github.com/alfa07/chnative/wire"
)

// fixedStringColumn: body is N*size bytes, each slot zero-padded on
// the right if the appended value is shorter. Reads return the raw
// slot; truncation is the caller's discretion.
type fixedStringColumn struct {
	typ  *chtype.Type
	size int
	data [][]byte
}

func newFixedString(t *chtype.Type) *fixedStringColumn {
	return &fixedStringColumn{typ: t, size: t.Size}
}

func (c *fixedStringColumn) Type() *chtype.Type { return c.typ }
func (c *fixedStringColumn) Len() int           { return len(c.data) }
func (c *fixedStringColumn) Clear()             { c.data = c.data[:0] }
func (c *fixedStringColumn) Reserve(n int) {
	if cap(c.data)-len(c.data) < n {
		grown := make([][]byte, len(c.data), len(c.data)+n)
		copy(grown, c.data)
		c.data = grown
	}
}

func (c *fixedStringColumn) LoadPrefix(r wire.Reader) error { return nil }
func (c *fixedStringColumn) SavePrefix(w io.Writer) error   { return nil }

func (c *fixedStringColumn) LoadBody(r wire.Reader, n int) error {
	c.data = make([][]byte, n)
	for i := 0; i < n; i++ {
		b, err := wire.ReadBytes(r, c.size)
		if err != nil {
			return err
		}
		c.data[i] = b
	}
	return nil
}

func (c *fixedStringColumn) SaveBody(w io.Writer) error {
	for _, b := range c.data {
		if err := wire.WriteBytes(w, b); err != nil {
			return err
		}
	}
	return nil
}

// Append zero-pads v on the right to size, or returns an error if v is
// longer than size.
func (c *fixedStringColumn) Append(v []byte) error {
	if len(v) > c.size {
		return &WrongKindError{Kind: c.typ.Kind, Got: v}
	}
	slot := make([]byte, c.size)
	copy(slot, v)
	c.data = append(c.data, slot)
	return nil
}

func (c *fixedStringColumn) Get(i int) []byte { return c.data[i] }

func (c *fixedStringColumn) AppendAny(v any) error {
	switch tv := v.(type) {
	case string:
		return c.Append([]byte(tv))
	case []byte:
		return c.Append(tv)
	default:
		return &WrongKindError{Kind: c.typ.Kind, Got: v}
	}
}

func (c *fixedStringColumn) At(i int) any {
	if i < 0 || i >= len(c.data) {
		return nil
	}
	return c.data[i]
}
