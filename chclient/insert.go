package chclient

import (
	"github.com/alfa07/chnative/block"
	"github.com/alfa07/chnative/cherrors"
	"github.com/alfa07/chnative/chlog"
	"github.com/alfa07/chnative/column"
	"github.com/alfa07/chnative/proto"
	"github.com/alfa07/chnative/session"
	"github.com/alfa07/chnative/wire"
)

// NewInsertBlock builds an empty, appendable Block matching schema's
// column names and types, ready for AppendRow/column-level appends
// before it is handed to Client.Insert.
func NewInsertBlock(schema *block.Block) (*block.Block, error) {
	out := &block.Block{Columns: make([]block.ColumnEntry, 0, len(schema.Columns))}
	for _, c := range schema.Columns {
		col, err := column.New(c.Column.Type())
		if err != nil {
			return nil, err
		}
		if err := out.AppendColumn(c.Name, col); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Insert runs the INSERT protocol: sends the Query, reads the server's
// schema-only Data reply, hands it to build so the caller can populate
// rows, then writes exactly one Data block of rows followed by the
// terminal empty Data, and drains to EndOfStream. As with Query, a
// server Exception followed by EndOfStream leaves the client reusable.
func (c *Client) Insert(queryText string, build func(schema *block.Block) (*block.Block, error)) error {
	if _, err := c.sendQuery(Query{Text: queryText}); err != nil {
		return err
	}
	if err := c.sess.Transition(session.ReceivingHeader); err != nil {
		return err
	}
	var schema *block.Block
	var schemaEx *cherrors.ServerException
	err := c.conn.WithReadDeadline(func() error {
		code, err := wire.ReadVarint(c.conn.Reader())
		if err != nil {
			return err
		}
		switch code {
		case proto.ServerData:
			schema, err = block.Read(c.conn.Reader(), c.sess.Revision)
			return err
		case proto.ServerException:
			schemaEx, err = proto.ReadException(c.conn.Reader())
			return err
		default:
			return &cherrors.ProtocolError{Msg: "expected Data schema reply for INSERT"}
		}
	})
	if err != nil {
		return c.poison(cherrors.Classify("read insert schema reply", err))
	}
	if schemaEx != nil {
		// the server rejected the INSERT before sending a schema (e.g.
		// readonly mode, missing table); drain and surface its exception.
		if err := c.sess.Transition(session.Draining); err != nil {
			return err
		}
		if err := c.drainToEndOfStream(); err != nil {
			return err
		}
		if err := c.sess.Transition(session.Idle); err != nil {
			return err
		}
		c.sess.ResetCancel()
		return schemaEx
	}
	if schema.NumRows() != 0 {
		return c.poison(&cherrors.ProtocolError{Msg: "INSERT schema reply carried rows"})
	}

	rows, err := build(schema)
	if err != nil {
		return err
	}
	if err := validateAgainstSchema(schema, rows); err != nil {
		return c.poison(err)
	}

	if err := c.sess.Transition(session.Draining); err != nil {
		return err
	}
	if err := wire.WriteVarint(c.conn.Writer(), proto.ClientData); err != nil {
		return c.poison(&cherrors.IoError{Op: "write insert data", Err: err})
	}
	if err := block.Write(c.conn.Writer(), rows, c.sess.Revision); err != nil {
		return c.poison(&cherrors.IoError{Op: "write insert rows", Err: err})
	}
	if err := wire.WriteVarint(c.conn.Writer(), proto.ClientData); err != nil {
		return c.poison(&cherrors.IoError{Op: "write insert terminator", Err: err})
	}
	if err := block.Write(c.conn.Writer(), &block.Block{}, c.sess.Revision); err != nil {
		return c.poison(&cherrors.IoError{Op: "write insert terminator block", Err: err})
	}
	if err := c.conn.Flush(); err != nil {
		return c.poison(&cherrors.IoError{Op: "flush insert", Err: err})
	}
	c.opts.Logger.Debug("chclient: insert block flushed, draining to end of stream", chlog.F("rows", rows.NumRows()))

	var serverEx *cherrors.ServerException
	sink := &QueryResult{}
	cancelSent := false
	for {
		if err := c.maybeSendCancel(&cancelSent); err != nil {
			return err
		}
		done, ex, err := c.dispatchOnePacket(sink)
		if err != nil {
			return err
		}
		if ex != nil {
			serverEx = ex
		}
		if done {
			break
		}
	}
	if err := c.sess.Transition(session.Idle); err != nil {
		return err
	}
	c.sess.ResetCancel()
	if serverEx != nil {
		return serverEx
	}
	if cancelSent {
		return cherrors.ErrCancelled
	}
	return nil
}

// InsertBlock inserts an already-built block into table. The block's
// column names and types must match the schema the server replies
// with; use Insert with a build callback to construct the block from
// the server's schema instead.
func (c *Client) InsertBlock(table string, rows *block.Block) error {
	return c.Insert("INSERT INTO "+table+" VALUES", func(*block.Block) (*block.Block, error) {
		return rows, nil
	})
}

// drainToEndOfStream consumes and discards packets until EndOfStream.
func (c *Client) drainToEndOfStream() error {
	sink := &QueryResult{}
	for {
		done, _, err := c.dispatchOnePacket(sink)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

func validateAgainstSchema(schema, rows *block.Block) error {
	if len(schema.Columns) != len(rows.Columns) {
		return &cherrors.SchemaError{Msg: "insert block column count does not match schema"}
	}
	for i, sc := range schema.Columns {
		rc := rows.Columns[i]
		if sc.Name != rc.Name {
			return &cherrors.SchemaError{Msg: "insert block column name does not match schema: " + rc.Name}
		}
		if !sc.Column.Type().Equal(rc.Column.Type()) {
			return &cherrors.SchemaError{Msg: "insert block column type does not match schema: " + rc.Name}
		}
	}
	n := rows.NumRows()
	for _, rc := range rows.Columns {
		if rc.Column.Len() != n {
			return &cherrors.SchemaError{Msg: "insert block columns have mismatched lengths"}
		}
	}
	return nil
}
