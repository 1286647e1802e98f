package column

import (
	"io"

	"github.com/alfa07/chnative/chtype"
	"github.com/alfa07/chnative/wire"
)

// nullableColumn: body is N null markers (0/1) followed by the inner
// column's body of length N; null slots still occupy an (unspecified)
// inner value.
type nullableColumn struct {
	typ   *chtype.Type
	nulls []bool
	inner Column
}

func newNullable(t *chtype.Type) (*nullableColumn, error) {
	inner, err := New(t.Elem)
	if err != nil {
		return nil, err
	}
	return &nullableColumn{typ: t, inner: inner}, nil
}

func (c *nullableColumn) Type() *chtype.Type { return c.typ }
func (c *nullableColumn) Len() int           { return len(c.nulls) }
func (c *nullableColumn) Clear() {
	c.nulls = c.nulls[:0]
	c.inner.Clear()
}
func (c *nullableColumn) Reserve(n int) {
	if cap(c.nulls)-len(c.nulls) < n {
		grown := make([]bool, len(c.nulls), len(c.nulls)+n)
		copy(grown, c.nulls)
		c.nulls = grown
	}
	c.inner.Reserve(n)
}

func (c *nullableColumn) LoadPrefix(r wire.Reader) error { return c.inner.LoadPrefix(r) }
func (c *nullableColumn) SavePrefix(w io.Writer) error   { return c.inner.SavePrefix(w) }

func (c *nullableColumn) LoadBody(r wire.Reader, n int) error {
	nulls := make([]bool, n)
	for i := 0; i < n; i++ {
		b, err := wire.ReadU8(r)
		if err != nil {
			return err
		}
		nulls[i] = b != 0
	}
	if err := c.inner.LoadBody(r, n); err != nil {
		return err
	}
	c.nulls = nulls
	return nil
}

func (c *nullableColumn) SaveBody(w io.Writer) error {
	for _, isNull := range c.nulls {
		if err := wire.WriteBool(w, isNull); err != nil {
			return err
		}
	}
	return c.inner.SaveBody(w)
}

// AppendValue appends a present (non-null) value to the inner column.
func (c *nullableColumn) AppendValue(v any) error {
	if err := c.inner.AppendAny(v); err != nil {
		return err
	}
	c.nulls = append(c.nulls, false)
	return nil
}

// AppendNull appends a null row. The inner column still needs a slot
// filled with an unspecified value to keep lengths aligned.
func (c *nullableColumn) AppendNull(placeholder any) error {
	if err := c.inner.AppendAny(placeholder); err != nil {
		return err
	}
	c.nulls = append(c.nulls, true)
	return nil
}

func (c *nullableColumn) AppendAny(v any) error {
	if v == nil {
		return c.AppendNull(zeroValue(c.inner.Type()))
	}
	return c.AppendValue(v)
}

// IsNull reports whether row i is null.
func (c *nullableColumn) IsNull(i int) bool { return c.nulls[i] }

// Inner returns the wrapped column.
func (c *nullableColumn) Inner() Column { return c.inner }

func (c *nullableColumn) At(i int) any {
	if i < 0 || i >= len(c.nulls) {
		return nil
	}
	if c.nulls[i] {
		return nil
	}
	return c.inner.At(i)
}
