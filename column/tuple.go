package column

import (
	"io"

	"github.com/alfa07/chnative/chtype"
	"github.com/alfa07/chnative/wire"
)

// tupleColumn: each child column's body/prefix concatenated in
// declaration order, every child read with the same N.
type tupleColumn struct {
	typ      *chtype.Type
	children []Column
	n        int
}

func newTuple(t *chtype.Type) (*tupleColumn, error) {
	children := make([]Column, len(t.Tuple))
	for i, et := range t.Tuple {
		c, err := New(et)
		if err != nil {
			return nil, err
		}
		children[i] = c
	}
	return &tupleColumn{typ: t, children: children}, nil
}

func (c *tupleColumn) Type() *chtype.Type { return c.typ }
func (c *tupleColumn) Len() int           { return c.n }
func (c *tupleColumn) Clear() {
	c.n = 0
	for _, ch := range c.children {
		ch.Clear()
	}
}
func (c *tupleColumn) Reserve(n int) {
	for _, ch := range c.children {
		ch.Reserve(n)
	}
}

func (c *tupleColumn) LoadPrefix(r wire.Reader) error {
	for _, ch := range c.children {
		if err := ch.LoadPrefix(r); err != nil {
			return err
		}
	}
	return nil
}

func (c *tupleColumn) SavePrefix(w io.Writer) error {
	for _, ch := range c.children {
		if err := ch.SavePrefix(w); err != nil {
			return err
		}
	}
	return nil
}

func (c *tupleColumn) LoadBody(r wire.Reader, n int) error {
	for _, ch := range c.children {
		if err := ch.LoadBody(r, n); err != nil {
			return err
		}
	}
	c.n = n
	return nil
}

func (c *tupleColumn) SaveBody(w io.Writer) error {
	for _, ch := range c.children {
		if err := ch.SaveBody(w); err != nil {
			return err
		}
	}
	return nil
}

// Children returns the child columns in declaration order.
func (c *tupleColumn) Children() []Column { return c.children }

// AppendRow appends one tuple-typed row: vals[i] goes to children[i].
func (c *tupleColumn) AppendRow(vals []any) error {
	if len(vals) != len(c.children) {
		return &WrongKindError{Kind: c.typ.Kind, Got: vals}
	}
	for i, v := range vals {
		if err := c.children[i].AppendAny(v); err != nil {
			return err
		}
	}
	c.n++
	return nil
}

func (c *tupleColumn) AppendAny(v any) error {
	vals, ok := v.([]any)
	if !ok {
		return &WrongKindError{Kind: c.typ.Kind, Got: v}
	}
	return c.AppendRow(vals)
}

func (c *tupleColumn) At(i int) any {
	if i < 0 || i >= c.n {
		return nil
	}
	out := make([]any, len(c.children))
	for j, ch := range c.children {
		out[j] = ch.At(i)
	}
	return out
}
