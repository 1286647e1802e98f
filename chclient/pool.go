package chclient

import (
	"sync"

	"golang.org/x/sync/errgroup"
)

// Pool is a minimal round-robin set of connected Clients for callers
// that need parallel queries; a single Client serializes all its
// packet I/O.
type Pool struct {
	mu      sync.Mutex
	clients []*Client
	next    int
}

// NewPool connects n clients using opts and returns a Pool over them.
// On any Connect failure, every already-opened client is closed before
// the error is returned.
func NewPool(opts ClientOptions, n int) (*Pool, error) {
	p := &Pool{clients: make([]*Client, 0, n)}
	for i := 0; i < n; i++ {
		c, err := New(opts)
		if err != nil {
			p.closeAll()
			return nil, err
		}
		if err := c.Connect(); err != nil {
			p.closeAll()
			return nil, err
		}
		p.clients = append(p.clients, c)
	}
	return p, nil
}

func (p *Pool) closeAll() {
	for _, c := range p.clients {
		c.Close()
	}
}

// Next returns the next client in round-robin order.
func (p *Pool) Next() *Client {
	p.mu.Lock()
	defer p.mu.Unlock()
	c := p.clients[p.next]
	p.next = (p.next + 1) % len(p.clients)
	return c
}

// Broadcast runs fn concurrently against every pooled client and
// returns the first error encountered, cancelling no in-flight calls
// (errgroup.Group's default semantics) since a Cancel on one
// connection must not touch another's session state.
func (p *Pool) Broadcast(fn func(*Client) error) error {
	var g errgroup.Group
	for _, c := range p.clients {
		c := c
		g.Go(func() error { return fn(c) })
	}
	return g.Wait()
}

// Ping broadcasts a Ping across every pooled connection.
func (p *Pool) Ping() error {
	return p.Broadcast(func(c *Client) error { return c.Ping() })
}

// Close closes every pooled client.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var first error
	for _, c := range p.clients {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
