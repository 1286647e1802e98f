// Package chnet wraps the raw TCP connection to a server: net.Dialer
// based dialing with connect timeout and keepalive, plus a buffered
// reader/writer pair around the socket with timeouts set and cleared
// around individual operations and explicit Flush points.
package chnet

import (
	"bufio"
	"net"
	"time"
)

const (
	defaultReadBufferSize  = 1 << 16
	defaultWriteBufferSize = 1 << 16
	defaultKeepAlivePeriod = 30 * time.Second
)

// DialOptions configures how Dial reaches the server.
type DialOptions struct {
	ConnectTimeout time.Duration
	KeepAlive      time.Duration
	TCPNoDelay     bool
}

func (o DialOptions) withDefaults() DialOptions {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 10 * time.Second
	}
	if o.KeepAlive <= 0 {
		o.KeepAlive = defaultKeepAlivePeriod
	}
	return o
}

// Dial opens a TCP connection to addr using the supplied options.
func Dial(addr string, opts DialOptions) (net.Conn, error) {
	opts = opts.withDefaults()
	dlr := net.Dialer{
		Timeout:   opts.ConnectTimeout,
		KeepAlive: opts.KeepAlive,
	}
	conn, err := dlr.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	if tc, ok := conn.(*net.TCPConn); ok && opts.TCPNoDelay {
		tc.SetNoDelay(true)
	}
	return conn, nil
}

// Conn pairs a net.Conn with buffered readers/writers and the
// read/write deadline discipline the block and proto layers rely on:
// set a deadline immediately before a blocking call, clear it after,
// rather than holding one deadline for the connection's whole life.
type Conn struct {
	nc net.Conn
	br *bufio.Reader
	bw *bufio.Writer

	sendTimeout time.Duration
	recvTimeout time.Duration
}

// New wraps an already-established net.Conn.
func New(nc net.Conn, sendTimeout, recvTimeout time.Duration) *Conn {
	return &Conn{
		nc:          nc,
		br:          bufio.NewReaderSize(nc, defaultReadBufferSize),
		bw:          bufio.NewWriterSize(nc, defaultWriteBufferSize),
		sendTimeout: sendTimeout,
		recvTimeout: recvTimeout,
	}
}

// Reader returns the buffered reader used for all packet decoding.
func (c *Conn) Reader() *bufio.Reader { return c.br }

// Writer returns the buffered writer used for all packet encoding.
// Callers must call Flush to push bytes out.
func (c *Conn) Writer() *bufio.Writer { return c.bw }

// Flush applies the write deadline, flushes buffered bytes, then
// clears the deadline.
func (c *Conn) Flush() error {
	if c.sendTimeout > 0 {
		c.nc.SetWriteDeadline(time.Now().Add(c.sendTimeout))
		defer c.nc.SetWriteDeadline(time.Time{})
	}
	return c.bw.Flush()
}

// WithReadDeadline applies the connection's receive timeout around fn,
// clearing the deadline afterward regardless of outcome.
func (c *Conn) WithReadDeadline(fn func() error) error {
	if c.recvTimeout > 0 {
		c.nc.SetReadDeadline(time.Now().Add(c.recvTimeout))
		defer c.nc.SetReadDeadline(time.Time{})
	}
	return fn()
}

// Close closes the underlying socket. Any buffered, unflushed writes
// are lost.
func (c *Conn) Close() error { return c.nc.Close() }

// RemoteAddr reports the peer address, used in log lines and errors.
func (c *Conn) RemoteAddr() net.Addr { return c.nc.RemoteAddr() }
