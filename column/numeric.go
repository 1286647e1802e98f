package column

import (
	"io"

	"github.com/alfa07/chnative/chtype"
	"github.com/alfa07/chnative/wire"
)

// numericScalar is the set of Go types backing fixed-width numeric
// ClickHouse columns: signed/unsigned ints up to 64 bits and both
// float widths. Int128/UInt128 use fixedWidthColumn instead, since Go
// has no native 128-bit integer.
type numericScalar interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~float32 | ~float64
}

// NumericColumn is a contiguous vector of fixed-width scalars: every
// signed/unsigned int and float column, plus the numeric encodings of
// Date, Date32, DateTime, DateTime64, IPv4, Enum8 and Enum16. The body
// is N scalars, little-endian, contiguous.
type NumericColumn[T numericScalar] struct {
	typ   *chtype.Type
	data  []T
	width int
	read  func(wire.Reader) (T, error)
	write func(io.Writer, T) error
}

func newNumeric[T numericScalar](t *chtype.Type, width int, read func(wire.Reader) (T, error), write func(io.Writer, T) error) *NumericColumn[T] {
	return &NumericColumn[T]{typ: t, width: width, read: read, write: write}
}

func (c *NumericColumn[T]) Type() *chtype.Type { return c.typ }
func (c *NumericColumn[T]) Len() int           { return len(c.data) }
func (c *NumericColumn[T]) Clear()             { c.data = c.data[:0] }
func (c *NumericColumn[T]) Reserve(n int) {
	if cap(c.data)-len(c.data) < n {
		grown := make([]T, len(c.data), len(c.data)+n)
		copy(grown, c.data)
		c.data = grown
	}
}

func (c *NumericColumn[T]) LoadPrefix(r wire.Reader) error { return nil }
func (c *NumericColumn[T]) SavePrefix(w io.Writer) error   { return nil }

func (c *NumericColumn[T]) LoadBody(r wire.Reader, n int) error {
	c.data = make([]T, n)
	for i := 0; i < n; i++ {
		v, err := c.read(r)
		if err != nil {
			return err
		}
		c.data[i] = v
	}
	return nil
}

func (c *NumericColumn[T]) SaveBody(w io.Writer) error {
	for _, v := range c.data {
		if err := c.write(w, v); err != nil {
			return err
		}
	}
	return nil
}

// Append appends a natively typed value.
func (c *NumericColumn[T]) Append(v T) { c.data = append(c.data, v) }

// Get returns the value at row i.
func (c *NumericColumn[T]) Get(i int) T { return c.data[i] }

func (c *NumericColumn[T]) AppendAny(v any) error {
	tv, ok := v.(T)
	if !ok {
		return &WrongKindError{Kind: c.typ.Kind, Got: v}
	}
	c.Append(tv)
	return nil
}

func (c *NumericColumn[T]) At(i int) any {
	if i < 0 || i >= len(c.data) {
		return nil
	}
	return c.data[i]
}
