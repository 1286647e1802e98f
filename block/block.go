// Package block implements the Data packet's payload: a named, typed
// set of equal-length columns, framed as header fields followed by
// per-column payloads.
package block

import (
	"io"

	"github.com/alfa07/chnative/cherrors"
	"github.com/alfa07/chnative/chtype"
	"github.com/alfa07/chnative/column"
	"github.com/alfa07/chnative/proto"
	"github.com/alfa07/chnative/wire"
)

// ColumnEntry pairs a column's name with its decoded values.
type ColumnEntry struct {
	Name   string
	Column column.Column
}

// Block is one Data packet's payload: zero or more named columns, all
// of the same row count.
type Block struct {
	Columns []ColumnEntry
}

// NumRows returns the block's row count, or 0 for an empty block (the
// INSERT schema reply and the terminal empty Data marker both carry
// zero rows).
func (b *Block) NumRows() int {
	if len(b.Columns) == 0 {
		return 0
	}
	return b.Columns[0].Column.Len()
}

// AppendColumn adds a named column to b. It fails if the block
// already holds a column of a different length, or a column with the
// same name.
func (b *Block) AppendColumn(name string, c column.Column) error {
	if len(b.Columns) > 0 && c.Len() != b.NumRows() {
		return &cherrors.SchemaError{Msg: "block: column " + name + " length does not match block row count"}
	}
	if b.ByName(name) != nil {
		return &cherrors.SchemaError{Msg: "block: duplicate column name " + name}
	}
	b.Columns = append(b.Columns, ColumnEntry{Name: name, Column: c})
	return nil
}

// ByName returns the column with the given name, or nil.
func (b *Block) ByName(name string) column.Column {
	for _, c := range b.Columns {
		if c.Name == name {
			return c.Column
		}
	}
	return nil
}

const (
	blockInfoFieldOverflows = 1
	blockInfoFieldBucketNum = 2
	blockInfoFieldEnd       = 0
)

// writeBlockInfo always emits the client defaults: is_overflows=0,
// bucket_num=-1.
func writeBlockInfo(w io.Writer) error {
	if err := wire.WriteVarint(w, blockInfoFieldOverflows); err != nil {
		return err
	}
	if err := wire.WriteU8(w, 0); err != nil {
		return err
	}
	if err := wire.WriteVarint(w, blockInfoFieldBucketNum); err != nil {
		return err
	}
	if err := wire.WriteI32(w, -1); err != nil {
		return err
	}
	return wire.WriteVarint(w, blockInfoFieldEnd)
}

func readBlockInfo(r wire.Reader) error {
	for {
		field, err := wire.ReadVarint(r)
		if err != nil {
			return err
		}
		switch field {
		case blockInfoFieldEnd:
			return nil
		case blockInfoFieldOverflows:
			if _, err := wire.ReadU8(r); err != nil {
				return err
			}
		case blockInfoFieldBucketNum:
			if _, err := wire.ReadI32(r); err != nil {
				return err
			}
		default:
			// unknown field: the server is expected to only ever send
			// fields the client understands at its negotiated revision,
			// so treat anything else as a protocol error rather than
			// guessing a width to skip.
			return &blockInfoUnknownFieldError{field: field}
		}
	}
}

type blockInfoUnknownFieldError struct{ field uint64 }

func (e *blockInfoUnknownFieldError) Error() string {
	return "block: unknown block-info field"
}

// Write encodes b onto w at effective revision r.
func Write(w io.Writer, b *Block, r uint64) error {
	if err := wire.WriteVarint(w, uint64(len(b.Columns))); err != nil {
		return err
	}
	if err := wire.WriteVarint(w, uint64(b.NumRows())); err != nil {
		return err
	}
	if r >= proto.RevisionBlockInfo {
		if err := writeBlockInfo(w); err != nil {
			return err
		}
	}
	for _, c := range b.Columns {
		if err := wire.WriteString(w, c.Name); err != nil {
			return err
		}
		if err := wire.WriteString(w, c.Column.Type().Name()); err != nil {
			return err
		}
		if r >= proto.RevisionCustomSerialization {
			if err := wire.WriteU8(w, 0); err != nil {
				return err
			}
		}
		if err := c.Column.SavePrefix(w); err != nil {
			return err
		}
		if err := c.Column.SaveBody(w); err != nil {
			return err
		}
	}
	return nil
}

// Read decodes a Block from r at effective revision revision.
func Read(r wire.Reader, revision uint64) (*Block, error) {
	numCols, err := wire.ReadVarint(r)
	if err != nil {
		return nil, err
	}
	numRows, err := wire.ReadVarint(r)
	if err != nil {
		return nil, err
	}
	if revision >= proto.RevisionBlockInfo {
		if err := readBlockInfo(r); err != nil {
			return nil, err
		}
	}
	b := &Block{Columns: make([]ColumnEntry, 0, numCols)}
	for i := uint64(0); i < numCols; i++ {
		name, err := wire.ReadString(r)
		if err != nil {
			return nil, err
		}
		typeName, err := wire.ReadString(r)
		if err != nil {
			return nil, err
		}
		t, err := chtype.Parse(typeName)
		if err != nil {
			return nil, err
		}
		if revision >= proto.RevisionCustomSerialization {
			flag, err := wire.ReadU8(r)
			if err != nil {
				return nil, err
			}
			if flag != 0 {
				return nil, &customSerializationError{column: name}
			}
		}
		col, err := column.New(t)
		if err != nil {
			return nil, err
		}
		if err := col.LoadPrefix(r); err != nil {
			return nil, err
		}
		if err := col.LoadBody(r, int(numRows)); err != nil {
			return nil, err
		}
		b.Columns = append(b.Columns, ColumnEntry{Name: name, Column: col})
	}
	return b, nil
}

type customSerializationError struct{ column string }

func (e *customSerializationError) Error() string {
	return "block: column " + e.column + " uses an unsupported custom serialization"
}
