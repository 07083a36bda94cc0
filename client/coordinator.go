package client

import (
	"context"
	"errors"
	"sync"
)

// ErrLoggedOut is returned by Renew once the coordinator has entered the
// logged-out state: either a renewal failed or the caller logged out
// explicitly. A successful login resets the state.
var ErrLoggedOut = errors.New("logged out")

// RefreshFunc performs the actual renewal round-trip.
type RefreshFunc func(ctx context.Context) error

// renewal is the shared in-flight handle. err is written before done is
// closed, so every waiter observing the close also observes the result.
type renewal struct {
	done chan struct{}
	err  error
}

// Coordinator collapses concurrent "access token rejected" events into a
// single renewal round-trip. However many calls observe a rejection in
// the same window, exactly one invokes the refresh function; the rest
// suspend on the in-flight handle and share its outcome. The handle is
// always cleared when the refresh resolves, including on timeout, so the
// coordinator can never get stuck treating a renewal as in-flight.
type Coordinator struct {
	refresh RefreshFunc

	// onJoin, when set, runs once a caller has attached to the in-flight
	// handle. Hook for concurrency tests; must be set before first use.
	onJoin func()

	mu        sync.Mutex
	inflight  *renewal
	loggedOut bool
}

func NewCoordinator(refresh RefreshFunc) (*Coordinator, error) {
	if refresh == nil {
		return nil, errors.New("[NewCoordinator] refresh function is required")
	}
	return &Coordinator{refresh: refresh}, nil
}

// Renew triggers or joins a renewal. If a renewal is already in flight the
// call suspends until it resolves and returns its outcome; otherwise this
// call becomes the one that performs the round-trip. A failed renewal
// transitions the coordinator to logged-out and propagates the failure to
// every waiter.
func (c *Coordinator) Renew(ctx context.Context) error {
	c.mu.Lock()
	if c.loggedOut {
		c.mu.Unlock()
		return ErrLoggedOut
	}
	if h := c.inflight; h != nil {
		c.mu.Unlock()
		if c.onJoin != nil {
			c.onJoin()
		}
		select {
		case <-h.done:
			return h.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	h := &renewal{done: make(chan struct{})}
	c.inflight = h
	c.mu.Unlock()

	err := c.refresh(ctx)

	c.mu.Lock()
	c.inflight = nil
	if err != nil {
		c.loggedOut = true
	}
	c.mu.Unlock()

	h.err = err
	close(h.done)

	return err
}

// LoggedOut reports whether the coordinator is in the logged-out state.
func (c *Coordinator) LoggedOut() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loggedOut
}

// Reset returns the coordinator to the idle authenticated state, e.g.
// after a fresh login.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loggedOut = false
}

// SetLoggedOut forces the logged-out state, e.g. on explicit logout.
func (c *Coordinator) SetLoggedOut() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loggedOut = true
}
