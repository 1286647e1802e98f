// Package chclient is the thin user-facing facade wrapping the
// transport/codec layers below it behind a small set of methods.
// Callers work with block and column values for results and insert
// rows, but never write proto packets or touch the connection directly.
package chclient

import (
	"fmt"
	"net"
	"time"

	"github.com/alfa07/chnative/cherrors"
	"github.com/alfa07/chnative/chlog"
	"github.com/alfa07/chnative/chnet"
	"github.com/alfa07/chnative/proto"
	"github.com/alfa07/chnative/session"
	"github.com/alfa07/chnative/wire"
)

// ClientOptions configures a Client before Connect.
type ClientOptions struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string

	ConnectTimeout time.Duration
	SendTimeout    time.Duration
	RecvTimeout    time.Duration
	TCPKeepAlive   time.Duration

	Logger *chlog.Logger
}

// Validate checks required fields and fills in defaults.
func (o *ClientOptions) Validate() error {
	if o.Host == "" {
		return &cherrors.SchemaError{Msg: "chclient: Host is required"}
	}
	if o.Port <= 0 || o.Port > 65535 {
		return &cherrors.SchemaError{Msg: "chclient: Port must be in 1..65535"}
	}
	if o.Database == "" {
		o.Database = "default"
	}
	if o.User == "" {
		o.User = "default"
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 10 * time.Second
	}
	if o.SendTimeout <= 0 {
		o.SendTimeout = 30 * time.Second
	}
	if o.RecvTimeout <= 0 {
		o.RecvTimeout = 30 * time.Second
	}
	if o.Logger == nil {
		o.Logger = chlog.NewDiscard()
	}
	return nil
}

// ServerInfo is the negotiated handshake summary.
type ServerInfo struct {
	Name         string
	VersionMajor uint64
	VersionMinor uint64
	Revision     uint64
	Timezone     string
	DisplayName  string
}

// Client is one connection to a server.
type Client struct {
	opts ClientOptions
	conn *chnet.Conn
	sess *session.Session
	info ServerInfo
}

// New builds an unconnected Client. Call Connect before issuing
// queries.
func New(opts ClientOptions) (*Client, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Client{opts: opts, sess: session.New()}, nil
}

// Connect dials the server and performs the Hello handshake.
func (c *Client) Connect() error {
	addr := fmt.Sprintf("%s:%d", c.opts.Host, c.opts.Port)
	nc, err := chnet.Dial(addr, chnet.DialOptions{
		ConnectTimeout: c.opts.ConnectTimeout,
		KeepAlive:      c.opts.TCPKeepAlive,
	})
	if err != nil {
		return &cherrors.IoError{Op: "dial", Err: err}
	}
	return c.handshakeOverConn(nc)
}

// ConnectOverConn performs the Hello handshake over an
// already-established net.Conn, skipping Dial. Exercised directly by
// tests against a net.Pipe() fake server; production callers should
// use Connect.
func (c *Client) ConnectOverConn(nc net.Conn) error {
	return c.handshakeOverConn(nc)
}

func (c *Client) handshakeOverConn(nc net.Conn) error {
	c.conn = chnet.New(nc, c.opts.SendTimeout, c.opts.RecvTimeout)
	c.opts.Logger.Debugf("chclient: sending hello to %s as %s/%s", nc.RemoteAddr(), c.opts.Database, c.opts.User)

	hello := proto.DefaultClientHello(c.opts.Database, c.opts.User, c.opts.Password)
	if err := proto.WriteClientHello(c.conn.Writer(), hello); err != nil {
		return c.poison(&cherrors.IoError{Op: "write hello", Err: err})
	}
	if err := c.conn.Flush(); err != nil {
		return c.poison(&cherrors.IoError{Op: "flush hello", Err: err})
	}

	var serverHello proto.ServerHelloPacket
	err := c.conn.WithReadDeadline(func() error {
		code, err := wire.ReadVarint(c.conn.Reader())
		if err != nil {
			return err
		}
		if code == proto.ServerException {
			ex, err := proto.ReadException(c.conn.Reader())
			if err != nil {
				return err
			}
			return ex
		}
		if code != proto.ServerHello {
			return &cherrors.ProtocolError{Msg: "expected Hello reply"}
		}
		serverHello, err = proto.ReadServerHello(c.conn.Reader(), proto.ClientRevision)
		return err
	})
	if err != nil {
		return c.poison(cherrors.Classify("read hello reply", err))
	}

	c.sess.Revision = proto.EffectiveRevision(proto.ClientRevision, serverHello.ServerRevision)
	c.info = ServerInfo{
		Name:         serverHello.ServerName,
		VersionMajor: serverHello.VersionMajor,
		VersionMinor: serverHello.VersionMinor,
		Revision:     serverHello.ServerRevision,
		Timezone:     serverHello.Timezone,
		DisplayName:  serverHello.DisplayName,
	}
	c.opts.Logger.Info("chclient: handshake complete",
		chlog.F("server", c.info.Name),
		chlog.F("server_revision", c.info.Revision),
		chlog.F("effective_revision", c.sess.Revision))
	return nil
}

// ServerInfo returns the negotiated handshake summary.
func (c *Client) ServerInfo() ServerInfo { return c.info }

// Close closes the underlying connection. The Client must not be
// reused afterward; any later operation fails fast with
// ErrConnectionClosed.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	c.sess.Fail(cherrors.ErrConnectionClosed)
	return c.conn.Close()
}

func (c *Client) poison(err error) error {
	c.sess.Fail(err)
	c.opts.Logger.Warn("chclient: connection poisoned", chlog.F("err", err))
	return err
}
