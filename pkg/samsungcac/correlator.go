package samsungcac

import (
	"sync"

	"golang.org/x/sync/semaphore"
)

// result is what a waiting request receives. Side effects of the reply
// (registry rebuild, state merge) have already been applied by the read
// goroutine when it is delivered.
type result struct {
	msg     Message
	devices []*Device
	device  *Device
	err     error
}

// pending is the single outstanding request and its completion slot.
type pending struct {
	req Request
	ch  chan result
}

func (p *pending) deliver(r result) {
	p.ch <- r
}

// correlator holds the single outstanding request. The protocol carries
// no request identifier, so a reply is matched to whatever is pending.
// The semaphore turns a second concurrent request into
// ErrRequestInFlight instead of silently replacing the first.
type correlator struct {
	sem *semaphore.Weighted

	mu      sync.Mutex
	pending *pending
}

func newCorrelator() *correlator {
	return &correlator{sem: semaphore.NewWeighted(1)}
}

func (c *correlator) acquire() error {
	if !c.sem.TryAcquire(1) {
		return ErrRequestInFlight
	}
	return nil
}

func (c *correlator) release() {
	c.sem.Release(1)
}

// park installs a fresh completion slot for req and returns it.
func (c *correlator) park(req Request) *pending {
	p := &pending{req: req, ch: make(chan result, 1)}
	c.mu.Lock()
	c.pending = p
	c.mu.Unlock()
	return p
}

// abandon clears the slot if it still belongs to p.
func (c *correlator) abandon(p *pending) {
	c.mu.Lock()
	if c.pending == p {
		c.pending = nil
	}
	c.mu.Unlock()
}

// claim takes the pending slot if match accepts its request. A nil match
// accepts any request. The slot channel is buffered, so delivering to a
// claimed slot never blocks even if the caller has since given up.
func (c *correlator) claim(match func(Request) bool) (*pending, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.pending
	if p == nil || (match != nil && !match(p.req)) {
		return nil, false
	}
	c.pending = nil
	return p, true
}

func (c *correlator) reject(err error) bool {
	p, ok := c.claim(nil)
	if ok {
		p.deliver(result{err: err})
	}
	return ok
}

func (c *correlator) hasPending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending != nil
}
