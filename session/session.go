// Package session tracks one connection's position in the query
// lifecycle and its poisoned state behind a mutex, plus a lock-free
// cancellation flag, rather than scattering booleans across the caller.
package session

import (
	"sync"
	"sync/atomic"
)

// State is one point in the per-connection lifecycle.
type State int

const (
	Idle State = iota
	SentQuery
	ReceivingHeader
	ReceivingData
	Draining
	Errored
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case SentQuery:
		return "SentQuery"
	case ReceivingHeader:
		return "ReceivingHeader"
	case ReceivingData:
		return "ReceivingData"
	case Draining:
		return "Draining"
	case Errored:
		return "Errored"
	default:
		return "Unknown"
	}
}

// transitions enumerates the legal State -> State edges. Any edge not
// listed here, plus every edge out of Errored, is rejected by
// Transition.
var transitions = map[State]map[State]bool{
	Idle:            {SentQuery: true},
	SentQuery:       {ReceivingHeader: true, ReceivingData: true, Draining: true, Errored: true},
	ReceivingHeader: {Draining: true, Errored: true},
	ReceivingData:   {ReceivingData: true, Draining: true, Errored: true},
	Draining:        {Idle: true, Errored: true},
	Errored:         {},
}

// ErrInvalidTransition marks an attempted state change that the
// lifecycle diagram does not allow.
type ErrInvalidTransition struct {
	From, To State
}

func (e *ErrInvalidTransition) Error() string {
	return "session: invalid transition " + e.From.String() + " -> " + e.To.String()
}

// Session tracks one connection's lifecycle state, cancellation flag,
// and error-poisoning, guarded independently so a cancel from another
// goroutine never blocks on the state mutex.
type Session struct {
	mu        sync.Mutex
	state     State
	lastErr   error
	cancelled atomic.Bool

	Revision uint64 // effective revision R, set once at handshake
}

func New() *Session {
	return &Session{state: Idle}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Transition moves the session to `to`, or poisons it with
// ErrInvalidTransition if the edge is not legal.
func (s *Session) Transition(to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Errored {
		return s.lastErr
	}
	if !transitions[s.state][to] {
		err := &ErrInvalidTransition{From: s.state, To: to}
		s.state = Errored
		s.lastErr = err
		return err
	}
	s.state = to
	return nil
}

// Fail poisons the session with err: once failed, a connection is
// never reused.
func (s *Session) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Errored {
		s.state = Errored
		s.lastErr = err
	}
}

// Errored reports whether the session is poisoned, and the error that
// poisoned it.
func (s *Session) Errored() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == Errored, s.lastErr
}

// Cancel sets the cancellation flag; the client's receive loop checks
// it before each packet, writes one Cancel packet on the first check
// that sees it set, and keeps draining until EndOfStream.
func (s *Session) Cancel() { s.cancelled.Store(true) }

// Cancelled reports whether Cancel has been called on this session.
func (s *Session) Cancelled() bool { return s.cancelled.Load() }

// ResetCancel clears the cancellation flag once the cancelled query
// has fully drained. A drained connection is reusable; without the
// reset the stale flag would cancel every later query on it.
func (s *Session) ResetCancel() { s.cancelled.Store(false) }
