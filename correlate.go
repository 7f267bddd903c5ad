package tmi

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// The correlator matches a sent command to the inbound event(s) that confirm
// or reject it. Each outstanding command holds one pending entry in an arena
// keyed by id; the entry subscribes one-shot listeners on every expected
// event name and the first to fire resolves it. Entries are removed on first
// match or timeout so no subscription outlives its command.
type correlator struct {
	mu      sync.Mutex
	d       *dispatcher
	pending map[string]*pendingReply
}

// A pendingReply is one outstanding command awaiting confirmation.
type pendingReply struct {
	id       string
	channel  string
	names    []string
	ch       chan *Event
	offs     []func()
	resolved bool
}

func newCorrelator(d *dispatcher) *correlator {
	return &correlator{
		d:       d,
		pending: make(map[string]*pendingReply),
	}
}

// expect registers a pending entry for the given channel-scoped event names,
// first match wins. Names are full hierarchy prefixes without the channel
// level; the channel is appended here. An empty name set resolves on nothing
// and should not be awaited.
func (c *correlator) expect(channel string, names ...string) *pendingReply {
	reply := &pendingReply{
		id:      uuid.NewString(),
		channel: channel,
		names:   names,
		ch:      make(chan *Event, 1),
	}

	c.mu.Lock()
	c.pending[reply.id] = reply
	c.mu.Unlock()

	for _, name := range names {
		scoped := name
		if channel != "" {
			scoped += "/" + channel
		}

		off := c.d.Once(scoped, func(event *Event) {
			c.resolve(reply, event)
		})
		reply.offs = append(reply.offs, off)
	}

	return reply
}

func (c *correlator) resolve(reply *pendingReply, event *Event) {
	c.mu.Lock()
	if reply.resolved {
		c.mu.Unlock()
		return
	}
	reply.resolved = true
	delete(c.pending, reply.id)
	offs := reply.offs
	c.mu.Unlock()

	for _, off := range offs {
		off()
	}

	reply.ch <- event
}

// drop removes the entry and its listeners without resolving it.
func (c *correlator) drop(reply *pendingReply) {
	c.mu.Lock()
	if reply.resolved {
		c.mu.Unlock()
		return
	}
	reply.resolved = true
	delete(c.pending, reply.id)
	offs := reply.offs
	c.mu.Unlock()

	for _, off := range offs {
		off()
	}
}

// await blocks until the entry resolves, the timeout elapses, or ctx is
// cancelled. On timeout the entry is dropped and a TimeoutError returned;
// a confirmation arriving later is ignored.
func (c *correlator) await(ctx context.Context, reply *pendingReply, op string, timeout time.Duration) (*Event, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case event := <-reply.ch:
		return event, nil
	case <-timer.C:
		c.drop(reply)
		return nil, &TimeoutError{Op: op, After: timeout}
	case <-ctx.Done():
		c.drop(reply)
		return nil, ctx.Err()
	}
}
