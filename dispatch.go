package tmi

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// A Handler is a function subscribed to one level of the event hierarchy.
// Handlers run on the client's dispatch goroutine, in subscription order;
// they must not block.
type Handler func(event *Event)

type subscription struct {
	id   string
	name string
	once bool
	fn   Handler
}

// dispatcher fans a dispatched event out to every prefix level of its
// hierarchical name plus the universal "*" key. It is the routing half of
// the client; all mutation of subscriber lists is guarded so handlers may
// subscribe from any goroutine.
type dispatcher struct {
	mu   sync.Mutex
	subs map[string][]*subscription
}

func newDispatcher() *dispatcher {
	return &dispatcher{subs: make(map[string][]*subscription)}
}

// On subscribes fn to an event name, which may be any prefix level of a
// hierarchical name (e.g. "PRIVMSG", "PRIVMSG/CHEER", "PRIVMSG/CHEER/#c")
// or "*" for everything. The returned function removes the subscription.
func (d *dispatcher) On(name string, fn Handler) (off func()) {
	return d.subscribe(name, fn, false)
}

// Once is On for a single delivery.
func (d *dispatcher) Once(name string, fn Handler) (off func()) {
	return d.subscribe(name, fn, true)
}

func (d *dispatcher) subscribe(name string, fn Handler, once bool) (off func()) {
	sub := &subscription{
		id:   uuid.NewString(),
		name: name,
		once: once,
		fn:   fn,
	}

	d.mu.Lock()
	d.subs[name] = append(d.subs[name], sub)
	d.mu.Unlock()

	return func() { d.remove(sub) }
}

func (d *dispatcher) remove(sub *subscription) {
	d.mu.Lock()
	defer d.mu.Unlock()

	list := d.subs[sub.name]
	for i := range list {
		if list[i].id == sub.id {
			d.subs[sub.name] = append(list[:i], list[i+1:]...)
			break
		}
	}

	if len(d.subs[sub.name]) == 0 {
		delete(d.subs, sub.name)
	}
}

// dispatch emits the event once per prefix level of its name, then once
// under "*".
func (d *dispatcher) dispatch(event *Event) {
	parts := event.nameParts()
	for i := range parts {
		d.emit(strings.Join(parts[:i+1], "/"), event)
	}

	d.emit(EventAll, event)
}

func (d *dispatcher) emit(name string, event *Event) {
	d.mu.Lock()
	list := d.subs[name]
	fire := make([]*subscription, len(list))
	copy(fire, list)

	var kept []*subscription
	for _, sub := range list {
		if !sub.once {
			kept = append(kept, sub)
		}
	}
	if len(kept) == 0 {
		delete(d.subs, name)
	} else {
		d.subs[name] = kept
	}
	d.mu.Unlock()

	for _, sub := range fire {
		sub.fn(event)
	}
}
