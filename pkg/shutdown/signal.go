package shutdown

import "context"

// Signal is a single-slot shutdown request shared by every session of a
// server. Any number of goroutines may Send; one consumer receives.
//
// The slot holds at most one pending request, so Send never blocks: once a
// request is pending, further requests are dropped.
type Signal struct {
	c chan struct{}
}

// NewSignal returns an empty Signal.
func NewSignal() *Signal {
	return &Signal{c: make(chan struct{}, 1)}
}

// Send requests shutdown. It reports false if a request was already pending
// and this one was dropped.
func (s *Signal) Send() bool {
	select {
	case s.c <- struct{}{}:
		return true
	default:
		return false
	}
}

// C returns the receive side of the signal for use in a select statement.
// A receive consumes the pending request.
func (s *Signal) C() <-chan struct{} {
	return s.c
}

// Wait blocks until a shutdown request arrives or ctx is done.
func (s *Signal) Wait(ctx context.Context) error {
	select {
	case <-s.c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
