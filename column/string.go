package column

import (
	"io"

	"github.com/alfa07/chnative/chtype"
	"github.com/alfa07/chnative/wire"
)

// stringColumn: body is N occurrences of (varint length, raw bytes),
// no terminator.
type stringColumn struct {
	typ  *chtype.Type
	data []string
}

func newString(t *chtype.Type) *stringColumn { return &stringColumn{typ: t} }

func (c *stringColumn) Type() *chtype.Type { return c.typ }
func (c *stringColumn) Len() int           { return len(c.data) }
func (c *stringColumn) Clear()             { c.data = c.data[:0] }
func (c *stringColumn) Reserve(n int) {
	if cap(c.data)-len(c.data) < n {
		grown := make([]string, len(c.data), len(c.data)+n)
		copy(grown, c.data)
		c.data = grown
	}
}

func (c *stringColumn) LoadPrefix(r wire.Reader) error { return nil }
func (c *stringColumn) SavePrefix(w io.Writer) error   { return nil }

func (c *stringColumn) LoadBody(r wire.Reader, n int) error {
	c.data = make([]string, n)
	for i := 0; i < n; i++ {
		s, err := wire.ReadString(r)
		if err != nil {
			return err
		}
		c.data[i] = s
	}
	return nil
}

func (c *stringColumn) SaveBody(w io.Writer) error {
	for _, s := range c.data {
		if err := wire.WriteString(w, s); err != nil {
			return err
		}
	}
	return nil
}

func (c *stringColumn) Append(s string)  { c.data = append(c.data, s) }
func (c *stringColumn) Get(i int) string { return c.data[i] }

func (c *stringColumn) AppendAny(v any) error {
	s, ok := v.(string)
	if !ok {
		return &WrongKindError{Kind: c.typ.Kind, Got: v}
	}
	c.Append(s)
	return nil
}

func (c *stringColumn) At(i int) any {
	if i < 0 || i >= len(c.data) {
		return nil
	}
	return c.data[i]
}
