package column

import (
	"bytes"
	"fmt"
	"io"

	"github.com/alfa07/chnative/chtype"
	"github.com/alfa07/chnative/wire"
)

const (
	lcVersion = uint64(1) // shared dictionaries with additional keys

	lcFlagHasAdditionalKeys    = uint64(1) << 8
	lcFlagNeedUpdateDictionary = uint64(1) << 9
)

var lcIndexByteWidth = [4]int{1, 2, 4, 8}

// ErrIndexOutOfRange is returned when a decoded LowCardinality index
// is >= the dictionary size.
var ErrIndexOutOfRange = fmt.Errorf("column: LowCardinality index out of range")

// lowCardinalityColumn dictionary-encodes values with a width-promoted
// index vector. If the wrapped type is Nullable(X), the
// dictionary stores X directly and index 0 is the null sentinel.
type lowCardinalityColumn struct {
	typ        *chtype.Type
	nullable   bool
	valueType  *chtype.Type // X if Nullable(X), else typ.Elem
	dict       Column
	indices    []uint64
	valueIndex map[string]uint64 // canonical byte key -> dictionary index, append-side dedup
}

func newLowCardinality(t *chtype.Type) (*lowCardinalityColumn, error) {
	valueType := t.Elem
	nullable := false
	if t.Elem.Kind == chtype.KindNullable {
		nullable = true
		valueType = t.Elem.Elem
	}
	// the dictionary holds plain values; a composite inner type has no
	// valid dictionary encoding.
	if valueType.Composite() {
		return nil, &UnsupportedKindError{Kind: valueType.Kind}
	}
	dict, err := New(valueType)
	if err != nil {
		return nil, err
	}
	c := &lowCardinalityColumn{
		typ:        t,
		nullable:   nullable,
		valueType:  valueType,
		dict:       dict,
		valueIndex: make(map[string]uint64),
	}
	if nullable {
		// index 0 is reserved for null; seed a placeholder dictionary entry.
		if err := c.dict.AppendAny(zeroValue(valueType)); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// zeroValue returns an appendable zero value for t: used to seed the
// LowCardinality null-sentinel dictionary slot, and reused by
// nullableColumn.AppendAny to fill the inner column's unspecified slot
// for a null row.
func zeroValue(t *chtype.Type) any {
	switch t.Kind {
	case chtype.KindString:
		return ""
	case chtype.KindFixedString:
		return make([]byte, t.Size)
	case chtype.KindInt8:
		return int8(0)
	case chtype.KindInt16:
		return int16(0)
	case chtype.KindInt32:
		return int32(0)
	case chtype.KindInt64:
		return int64(0)
	case chtype.KindUInt8:
		return uint8(0)
	case chtype.KindUInt16:
		return uint16(0)
	case chtype.KindUInt32:
		return uint32(0)
	case chtype.KindUInt64:
		return uint64(0)
	case chtype.KindFloat32:
		return float32(0)
	case chtype.KindFloat64:
		return float64(0)
	case chtype.KindDate, chtype.KindDateTime, chtype.KindIPv4:
		return uint32FromKind(t.Kind)
	case chtype.KindDate32:
		return int32(0)
	case chtype.KindDateTime64:
		return int64(0)
	case chtype.KindEnum8:
		return int8(0)
	case chtype.KindEnum16:
		return int16(0)
	case chtype.KindUUID, chtype.KindIPv6:
		return make([]byte, 16)
	case chtype.KindInt128, chtype.KindUInt128:
		return make([]byte, 16)
	case chtype.KindDecimal:
		switch {
		case t.Precision <= 9:
			return int32(0)
		case t.Precision <= 18:
			return int64(0)
		case t.Precision <= 38:
			return make([]byte, 16)
		default:
			return make([]byte, 32)
		}
	default:
		return make([]byte, 0)
	}
}

func uint32FromKind(k chtype.Kind) any {
	if k == chtype.KindDate {
		return uint16(0)
	}
	return uint32(0)
}

func (c *lowCardinalityColumn) Type() *chtype.Type { return c.typ }
func (c *lowCardinalityColumn) Len() int           { return len(c.indices) }
func (c *lowCardinalityColumn) Clear() {
	c.indices = c.indices[:0]
	c.dict.Clear()
	c.valueIndex = make(map[string]uint64)
	if c.nullable {
		c.dict.AppendAny(zeroValue(c.valueType))
	}
}
func (c *lowCardinalityColumn) Reserve(n int) {
	if cap(c.indices)-len(c.indices) < n {
		grown := make([]uint64, len(c.indices), len(c.indices)+n)
		copy(grown, c.indices)
		c.indices = grown
	}
}

// LoadPrefix reads the fixed version tag.
func (c *lowCardinalityColumn) LoadPrefix(r wire.Reader) error {
	v, err := wire.ReadU64(r)
	if err != nil {
		return err
	}
	if v != lcVersion {
		return fmt.Errorf("column: unsupported LowCardinality version %d", v)
	}
	return nil
}

func (c *lowCardinalityColumn) SavePrefix(w io.Writer) error {
	return wire.WriteU64(w, lcVersion)
}

func (c *lowCardinalityColumn) LoadBody(r wire.Reader, n int) error {
	flags, err := wire.ReadU64(r)
	if err != nil {
		return err
	}
	widthCode := int(flags & 0xff)
	if widthCode < 0 || widthCode > 3 {
		return fmt.Errorf("column: invalid LowCardinality index width code %d", widthCode)
	}
	byteWidth := lcIndexByteWidth[widthCode]

	dsize, err := wire.ReadU64(r)
	if err != nil {
		return err
	}
	if err := c.dict.LoadBody(r, int(dsize)); err != nil {
		return err
	}

	count, err := wire.ReadU64(r)
	if err != nil {
		return err
	}
	indices := make([]uint64, count)
	for i := uint64(0); i < count; i++ {
		idx, err := readIndexWidth(r, byteWidth)
		if err != nil {
			return err
		}
		if idx >= dsize {
			return ErrIndexOutOfRange
		}
		indices[i] = idx
	}
	c.indices = indices
	return nil
}

func readIndexWidth(r wire.Reader, width int) (uint64, error) {
	switch width {
	case 1:
		v, err := wire.ReadU8(r)
		return uint64(v), err
	case 2:
		v, err := wire.ReadU16(r)
		return uint64(v), err
	case 4:
		v, err := wire.ReadU32(r)
		return uint64(v), err
	default:
		return wire.ReadU64(r)
	}
}

func writeIndexWidth(w io.Writer, width int, v uint64) error {
	switch width {
	case 1:
		return wire.WriteU8(w, uint8(v))
	case 2:
		return wire.WriteU16(w, uint16(v))
	case 4:
		return wire.WriteU32(w, uint32(v))
	default:
		return wire.WriteU64(w, v)
	}
}

// chooseIndexWidth returns (widthCode, byteWidth) for dictionary size d,
// the smallest width such that d <= 2^(8*2^W).
func chooseIndexWidth(d int) (code int, byteWidth int) {
	switch {
	case d <= 1<<8:
		return 0, 1
	case d <= 1<<16:
		return 1, 2
	default:
		// int can't exceed 1<<32 on most platforms in practice for a
		// single block; treat anything larger as needing u64.
		if uint64(d) <= 1<<32 {
			return 2, 4
		}
		return 3, 8
	}
}

func (c *lowCardinalityColumn) SaveBody(w io.Writer) error {
	d := c.dict.Len()
	code, byteWidth := chooseIndexWidth(d)
	flags := uint64(code) | lcFlagHasAdditionalKeys | lcFlagNeedUpdateDictionary
	if err := wire.WriteU64(w, flags); err != nil {
		return err
	}
	if err := wire.WriteU64(w, uint64(d)); err != nil {
		return err
	}
	if err := c.dict.SaveBody(w); err != nil {
		return err
	}
	if err := wire.WriteU64(w, uint64(len(c.indices))); err != nil {
		return err
	}
	for _, idx := range c.indices {
		if err := writeIndexWidth(w, byteWidth, idx); err != nil {
			return err
		}
	}
	return nil
}

func (c *lowCardinalityColumn) canonicalKey(v any) (string, error) {
	tmp, err := New(c.valueType)
	if err != nil {
		return "", err
	}
	if err := tmp.AppendAny(v); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmp.SaveBody(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// AppendValue dictionary-encodes v, reusing an existing dictionary
// entry when the canonical byte encoding matches one already present.
func (c *lowCardinalityColumn) AppendValue(v any) error {
	key, err := c.canonicalKey(v)
	if err != nil {
		return err
	}
	if idx, ok := c.valueIndex[key]; ok {
		c.indices = append(c.indices, idx)
		return nil
	}
	if err := c.dict.AppendAny(v); err != nil {
		return err
	}
	idx := uint64(c.dict.Len() - 1)
	c.valueIndex[key] = idx
	c.indices = append(c.indices, idx)
	return nil
}

// AppendNull appends index 0 without touching the dictionary or the
// dedup map.
func (c *lowCardinalityColumn) AppendNull() error {
	if !c.nullable {
		return fmt.Errorf("column: LowCardinality inner type is not nullable")
	}
	c.indices = append(c.indices, 0)
	return nil
}

func (c *lowCardinalityColumn) AppendAny(v any) error {
	if v == nil {
		return c.AppendNull()
	}
	return c.AppendValue(v)
}

// DictionarySize returns the current dictionary length.
func (c *lowCardinalityColumn) DictionarySize() int { return c.dict.Len() }

func (c *lowCardinalityColumn) At(i int) any {
	if i < 0 || i >= len(c.indices) {
		return nil
	}
	idx := c.indices[i]
	if c.nullable && idx == 0 {
		return nil
	}
	return c.dict.At(int(idx))
}
