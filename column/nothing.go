package column

import (
	"io"

	"github.com/alfa07/chnative/chtype"
	"github.com/alfa07/chnative/wire"
)

// nothingColumn backs the Nothing type: on read its body is N zero
// bytes that are discarded; on write, appending or saving is a usage
// error.
type nothingColumn struct {
	typ *chtype.Type
	n   int
}

func newNothing(t *chtype.Type) *nothingColumn { return &nothingColumn{typ: t} }

func (c *nothingColumn) Type() *chtype.Type { return c.typ }
func (c *nothingColumn) Len() int           { return c.n }
func (c *nothingColumn) Clear()             { c.n = 0 }
func (c *nothingColumn) Reserve(int)        {}

func (c *nothingColumn) LoadPrefix(r wire.Reader) error { return nil }
func (c *nothingColumn) SavePrefix(w io.Writer) error   { return nil }

func (c *nothingColumn) LoadBody(r wire.Reader, n int) error {
	if _, err := wire.ReadBytes(r, n); err != nil {
		return err
	}
	c.n = n
	return nil
}

func (c *nothingColumn) SaveBody(w io.Writer) error {
	return ErrNothingNotWritable
}

func (c *nothingColumn) AppendAny(v any) error { return ErrNothingNotWritable }

func (c *nothingColumn) At(i int) any {
	if i < 0 || i >= c.n {
		return nil
	}
	return nil
}
