package chclient

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/alfa07/chnative/block"
	"github.com/alfa07/chnative/cherrors"
	"github.com/alfa07/chnative/chlog"
	"github.com/alfa07/chnative/proto"
	"github.com/alfa07/chnative/session"
	"github.com/alfa07/chnative/wire"
)

// Query configures a single query invocation. An empty QueryID gets a
// fresh one generated at send time.
type Query struct {
	QueryID    string
	Text       string
	Settings   map[string]SettingValue
	Parameters map[string]string

	TraceID    [16]byte
	SpanID     uint64
	TraceState string
	TraceFlags uint8
	hasTrace   bool
}

// SettingValue pairs a setting's text value with whether the server
// must reject it outright if unrecognized.
type SettingValue struct {
	Value     string
	Important bool
}

// WithTracing attaches an OpenTelemetry context to the query. Sending
// the query fails with *cherrors.Unsupported if the negotiated
// revision is below proto.RevisionOpenTelemetry.
func (q *Query) WithTracing(traceID [16]byte, spanID uint64, traceState string, flags uint8) {
	q.TraceID = traceID
	q.SpanID = spanID
	q.TraceState = traceState
	q.TraceFlags = flags
	q.hasTrace = true
}

// QueryResult accumulates every Data block a SELECT produced.
type QueryResult struct {
	Blocks    []*block.Block
	TotalRows int
}

func (c *Client) requireConnected() error {
	if c.conn == nil {
		return cherrors.ErrNotConnected
	}
	if poisoned, err := c.sess.Errored(); poisoned {
		return err
	}
	return nil
}

func (c *Client) settingsSlice(q Query) []proto.Setting {
	out := make([]proto.Setting, 0, len(q.Settings))
	for name, v := range q.Settings {
		out = append(out, proto.Setting{Name: name, Value: v.Value, Important: v.Important})
	}
	return out
}

func (c *Client) sendQuery(q Query) (string, error) {
	if err := c.requireConnected(); err != nil {
		return "", err
	}
	if q.QueryID == "" {
		q.QueryID = uuid.NewString()
	}
	c.opts.Logger.Debug("chclient: sending query", chlog.F("query_id", q.QueryID), chlog.F("text", q.Text))
	if q.hasTrace && c.sess.Revision < proto.RevisionOpenTelemetry {
		return "", &cherrors.Unsupported{Feature: fmt.Sprintf("OpenTelemetry tracing requires server revision >= %d", proto.RevisionOpenTelemetry)}
	}
	info := proto.DefaultClientInfo()
	info.InitialQueryID = q.QueryID
	if q.hasTrace {
		info.Tracing = &proto.Tracing{
			TraceID:    q.TraceID,
			SpanID:     q.SpanID,
			TraceState: q.TraceState,
			TraceFlags: q.TraceFlags,
		}
	}
	packet := proto.QueryPacket{
		QueryID:     q.QueryID,
		Info:        info,
		Settings:    c.settingsSlice(q),
		Parameters:  q.Parameters,
		Stage:       proto.StageComplete,
		Compression: 0,
		Text:        q.Text,
	}
	if err := c.sess.Transition(session.SentQuery); err != nil {
		return "", err
	}
	if err := proto.WriteQuery(c.conn.Writer(), packet, c.sess.Revision); err != nil {
		return "", c.poison(&cherrors.IoError{Op: "write query", Err: err})
	}
	// empty Data packet: no external tables/bound parameters.
	if err := wire.WriteVarint(c.conn.Writer(), proto.ClientData); err != nil {
		return "", c.poison(&cherrors.IoError{Op: "write data header", Err: err})
	}
	if err := block.Write(c.conn.Writer(), &block.Block{}, c.sess.Revision); err != nil {
		return "", c.poison(&cherrors.IoError{Op: "write empty block", Err: err})
	}
	if err := c.conn.Flush(); err != nil {
		return "", c.poison(&cherrors.IoError{Op: "flush query", Err: err})
	}
	return q.QueryID, nil
}

// Query sends q and accumulates every Data block into a QueryResult
// until EndOfStream. A server Exception does not poison the
// connection by itself: the stream is still drained to EndOfStream,
// after which the client is reusable and the exception is returned.
func (c *Client) Query(q Query) (*QueryResult, error) {
	queryID, err := c.sendQuery(q)
	if err != nil {
		return nil, err
	}
	if err := c.sess.Transition(session.ReceivingData); err != nil {
		return nil, err
	}
	result := &QueryResult{}
	var serverEx *cherrors.ServerException
	cancelSent := false
	for {
		if err := c.maybeSendCancel(&cancelSent); err != nil {
			return nil, err
		}
		done, ex, err := c.dispatchOnePacket(result)
		if err != nil {
			return nil, err
		}
		if ex != nil {
			serverEx = ex
		}
		if done {
			break
		}
	}
	if err := c.sess.Transition(session.Draining); err != nil {
		return nil, err
	}
	c.opts.Logger.Debug("chclient: query complete",
		chlog.F("query_id", queryID), chlog.F("rows", result.TotalRows), chlog.F("blocks", len(result.Blocks)))
	if err := c.sess.Transition(session.Idle); err != nil {
		return nil, err
	}
	c.sess.ResetCancel()
	if serverEx != nil {
		return result, serverEx
	}
	if cancelSent {
		return result, cherrors.ErrCancelled
	}
	return result, nil
}

// maybeSendCancel writes a single Cancel packet once the session's
// cancellation flag is set. The receive loop still drains to
// EndOfStream afterward; only the first call per query writes.
func (c *Client) maybeSendCancel(cancelSent *bool) error {
	if *cancelSent || !c.sess.Cancelled() {
		return nil
	}
	if err := proto.WriteCancel(c.conn.Writer()); err != nil {
		return c.poison(&cherrors.IoError{Op: "write cancel", Err: err})
	}
	if err := c.conn.Flush(); err != nil {
		return c.poison(&cherrors.IoError{Op: "flush cancel", Err: err})
	}
	*cancelSent = true
	return nil
}

// dispatchOnePacket reads and handles a single server packet, feeding
// Data blocks into result. It returns done=true on EndOfStream. A
// decoded server Exception is returned as ex, not err: the caller must
// keep draining until EndOfStream, and only transport or framing
// failures poison the connection.
func (c *Client) dispatchOnePacket(result *QueryResult) (done bool, ex *cherrors.ServerException, err error) {
	err = c.conn.WithReadDeadline(func() error {
		code, err := wire.ReadVarint(c.conn.Reader())
		if err != nil {
			return err
		}
		switch code {
		case proto.ServerData:
			b, err := block.Read(c.conn.Reader(), c.sess.Revision)
			if err != nil {
				return err
			}
			if b.NumRows() > 0 {
				result.Blocks = append(result.Blocks, b)
				result.TotalRows += b.NumRows()
			}
			return nil
		case proto.ServerProgress:
			_, err := proto.ReadProgress(c.conn.Reader(), c.sess.Revision)
			return err
		case proto.ServerEndOfStream:
			done = true
			return nil
		case proto.ServerException:
			e, err := proto.ReadException(c.conn.Reader())
			if err != nil {
				return err
			}
			ex = e
			return nil
		case proto.ServerProfileInfo, proto.ServerTotals, proto.ServerExtremes,
			proto.ServerLog, proto.ServerTableColumns, proto.ServerProfileEvents:
			return c.skipUnhandled(code)
		default:
			return &cherrors.ProtocolError{Msg: "unknown server packet code"}
		}
	})
	if err != nil {
		classified := cherrors.Classify("dispatch server packet", err)
		c.poison(classified)
		return false, nil, classified
	}
	return done, ex, nil
}

// skipUnhandled consumes packets this client surfaces to no one: it
// decodes each one fully (so the stream stays framed for whatever
// follows) and discards the content. These are known packet codes,
// consumed silently; they never poison the connection.
func (c *Client) skipUnhandled(code uint64) error {
	switch code {
	case proto.ServerProfileInfo:
		_, err := proto.ReadProfileInfo(c.conn.Reader())
		return err
	case proto.ServerTotals, proto.ServerExtremes, proto.ServerLog, proto.ServerProfileEvents:
		_, err := block.Read(c.conn.Reader(), c.sess.Revision)
		return err
	case proto.ServerTableColumns:
		_, err := proto.ReadTableColumns(c.conn.Reader())
		return err
	}
	return nil
}

// Ping sends a Ping and waits for Pong.
func (c *Client) Ping() error {
	if err := c.requireConnected(); err != nil {
		return err
	}
	if err := proto.WritePing(c.conn.Writer()); err != nil {
		return c.poison(&cherrors.IoError{Op: "write ping", Err: err})
	}
	if err := c.conn.Flush(); err != nil {
		return c.poison(&cherrors.IoError{Op: "flush ping", Err: err})
	}
	return c.conn.WithReadDeadline(func() error {
		code, err := wire.ReadVarint(c.conn.Reader())
		if err != nil {
			return c.poison(&cherrors.IoError{Op: "read pong", Err: err})
		}
		if code != proto.ServerPong {
			return c.poison(&cherrors.ProtocolError{Msg: "expected Pong"})
		}
		return nil
	})
}

// Cancel requests that the in-flight query stop. The receive loop
// still drains to EndOfStream.
func (c *Client) Cancel() { c.sess.Cancel() }
