package column

import (
	"io"

	"github.com/alfa07/chnative/chtype"
	"github.com/alfa07/chnative/wire"
)

// mapColumn is implemented via the Array(Tuple(K,V)) equivalence: the
// wire layout is exactly an Array column whose element is a 2-tuple.
// Only the type parser
// and this wrapper know Map exists; the block codec sees an ordinary
// composite.
type mapColumn struct {
	typ   *chtype.Type
	array *arrayColumn
}

func newMap(t *chtype.Type) (*mapColumn, error) {
	tupleType := &chtype.Type{Kind: chtype.KindTuple, Tuple: []*chtype.Type{t.Key, t.Elem}}
	arrayType := &chtype.Type{Kind: chtype.KindArray, Elem: tupleType}
	arr, err := newArray(arrayType)
	if err != nil {
		return nil, err
	}
	return &mapColumn{typ: t, array: arr}, nil
}

func (c *mapColumn) Type() *chtype.Type { return c.typ }
func (c *mapColumn) Len() int           { return c.array.Len() }
func (c *mapColumn) Clear()             { c.array.Clear() }
func (c *mapColumn) Reserve(n int)      { c.array.Reserve(n) }

func (c *mapColumn) LoadPrefix(r wire.Reader) error      { return c.array.LoadPrefix(r) }
func (c *mapColumn) SavePrefix(w io.Writer) error        { return c.array.SavePrefix(w) }
func (c *mapColumn) LoadBody(r wire.Reader, n int) error { return c.array.LoadBody(r, n) }
func (c *mapColumn) SaveBody(w io.Writer) error          { return c.array.SaveBody(w) }

// MapEntry is one key/value pair appended to a Map row.
type MapEntry struct {
	Key, Value any
}

// AppendRow appends one map-typed row as a slice of entries.
func (c *mapColumn) AppendRow(entries []MapEntry) error {
	rowVals := make([]any, len(entries))
	for i, e := range entries {
		rowVals[i] = []any{e.Key, e.Value}
	}
	return c.array.AppendRow(rowVals)
}

func (c *mapColumn) AppendAny(v any) error {
	entries, ok := v.([]MapEntry)
	if !ok {
		return &WrongKindError{Kind: c.typ.Kind, Got: v}
	}
	return c.AppendRow(entries)
}

func (c *mapColumn) At(i int) any {
	rows, ok := c.array.At(i).([]any)
	if !ok {
		return nil
	}
	out := make([]MapEntry, 0, len(rows))
	for _, r := range rows {
		pair, _ := r.([]any)
		if len(pair) != 2 {
			continue
		}
		out = append(out, MapEntry{Key: pair[0], Value: pair[1]})
	}
	return out
}
