package column

import (
	"fmt"
	"io"

	"github.com/alfa07/chnative/chtype"
	"github.com/alfa07/chnative/wire"
)

// ErrNonMonotonicOffsets is returned when decoded Array offsets are
// not non-decreasing.
var ErrNonMonotonicOffsets = fmt.Errorf("column: array offsets are not non-decreasing")

// ErrOffsetLengthMismatch is returned when the final offset does not
// match the inner column's decoded length.
var ErrOffsetLengthMismatch = fmt.Errorf("column: final array offset does not match inner column length")

// arrayColumn: body is N u64 cumulative-end offsets followed by the
// inner column's body of length offsets[N-1].
type arrayColumn struct {
	typ     *chtype.Type
	offsets []uint64
	inner   Column
}

func newArray(t *chtype.Type) (*arrayColumn, error) {
	inner, err := New(t.Elem)
	if err != nil {
		return nil, err
	}
	return &arrayColumn{typ: t, inner: inner}, nil
}

func (c *arrayColumn) Type() *chtype.Type { return c.typ }
func (c *arrayColumn) Len() int           { return len(c.offsets) }
func (c *arrayColumn) Clear() {
	c.offsets = c.offsets[:0]
	c.inner.Clear()
}
func (c *arrayColumn) Reserve(n int) {
	if cap(c.offsets)-len(c.offsets) < n {
		grown := make([]uint64, len(c.offsets), len(c.offsets)+n)
		copy(grown, c.offsets)
		c.offsets = grown
	}
}

func (c *arrayColumn) LoadPrefix(r wire.Reader) error { return c.inner.LoadPrefix(r) }
func (c *arrayColumn) SavePrefix(w io.Writer) error   { return c.inner.SavePrefix(w) }

func (c *arrayColumn) LoadBody(r wire.Reader, n int) error {
	offsets := make([]uint64, n)
	var prev uint64
	for i := 0; i < n; i++ {
		v, err := wire.ReadU64(r)
		if err != nil {
			return err
		}
		if v < prev {
			return ErrNonMonotonicOffsets
		}
		offsets[i] = v
		prev = v
	}
	childLen := 0
	if n > 0 {
		childLen = int(offsets[n-1])
	}
	if err := c.inner.LoadBody(r, childLen); err != nil {
		return err
	}
	if c.inner.Len() != childLen {
		return ErrOffsetLengthMismatch
	}
	c.offsets = offsets
	return nil
}

func (c *arrayColumn) SaveBody(w io.Writer) error {
	for _, off := range c.offsets {
		if err := wire.WriteU64(w, off); err != nil {
			return err
		}
	}
	return c.inner.SaveBody(w)
}

// AppendRow appends one array-typed row: each element of vals is
// appended to the inner column, and the running offset is advanced.
func (c *arrayColumn) AppendRow(vals []any) error {
	for _, v := range vals {
		if err := c.inner.AppendAny(v); err != nil {
			return err
		}
	}
	c.offsets = append(c.offsets, uint64(c.inner.Len()))
	return nil
}

func (c *arrayColumn) AppendAny(v any) error {
	vals, ok := v.([]any)
	if !ok {
		return &WrongKindError{Kind: c.typ.Kind, Got: v}
	}
	return c.AppendRow(vals)
}

// Inner returns the wrapped element column.
func (c *arrayColumn) Inner() Column { return c.inner }

// RowBounds returns the [start,end) index range into Inner() for row i.
func (c *arrayColumn) RowBounds(i int) (int, int) {
	start := 0
	if i > 0 {
		start = int(c.offsets[i-1])
	}
	return start, int(c.offsets[i])
}

func (c *arrayColumn) At(i int) any {
	if i < 0 || i >= len(c.offsets) {
		return nil
	}
	start, end := c.RowBounds(i)
	out := make([]any, 0, end-start)
	for j := start; j < end; j++ {
		out = append(out, c.inner.At(j))
	}
	return out
}
