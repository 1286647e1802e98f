package proto

import "github.com/alfa07/chnative/wire"

// ProfileInfo mirrors the server's ProfileInfo packet: a fixed tuple
// of varints/bools describing the query's result shape, consumed
// silently by the dispatcher.
type ProfileInfo struct {
	Rows                      uint64
	Blocks                    uint64
	Bytes                     uint64
	AppliedLimit              bool
	RowsBeforeLimit           uint64
	CalculatedRowsBeforeLimit bool
}

// ReadProfileInfo decodes a ProfileInfo packet's fixed field sequence.
func ReadProfileInfo(r wire.Reader) (ProfileInfo, error) {
	var p ProfileInfo
	var err error
	if p.Rows, err = wire.ReadVarint(r); err != nil {
		return p, err
	}
	if p.Blocks, err = wire.ReadVarint(r); err != nil {
		return p, err
	}
	if p.Bytes, err = wire.ReadVarint(r); err != nil {
		return p, err
	}
	applied, err := wire.ReadU8(r)
	if err != nil {
		return p, err
	}
	p.AppliedLimit = applied != 0
	if p.RowsBeforeLimit, err = wire.ReadVarint(r); err != nil {
		return p, err
	}
	calculated, err := wire.ReadU8(r)
	if err != nil {
		return p, err
	}
	p.CalculatedRowsBeforeLimit = calculated != 0
	return p, nil
}

// TableColumns mirrors the server's TableColumns packet: a table name
// paired with its textual column description, consumed silently by
// the dispatcher.
type TableColumns struct {
	TableName string
	Columns   string
}

// ReadTableColumns decodes a TableColumns packet.
func ReadTableColumns(r wire.Reader) (TableColumns, error) {
	var t TableColumns
	var err error
	if t.TableName, err = wire.ReadString(r); err != nil {
		return t, err
	}
	if t.Columns, err = wire.ReadString(r); err != nil {
		return t, err
	}
	return t, nil
}
