package tmitest

import (
	"strings"
	"sync"

	"github.com/gissleh/tmi"
)

// An EventLog records every dispatched event for later inspection. Attach
// Handler with client.On("*", ...).
type EventLog struct {
	mu     sync.Mutex
	events []*tmi.Event
}

func (l *EventLog) Handler(event *tmi.Event) {
	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()
}

// First returns the earliest recorded event at or under the given name
// prefix, or nil.
func (l *EventLog) First(name string) *tmi.Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, e := range l.events {
		if matchesName(e, name) {
			return e
		}
	}

	return nil
}

// Last returns the latest recorded event at or under the given name prefix,
// or nil.
func (l *EventLog) Last(name string) *tmi.Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := len(l.events) - 1; i >= 0; i-- {
		if matchesName(l.events[i], name) {
			return l.events[i]
		}
	}

	return nil
}

// Len returns the number of recorded events.
func (l *EventLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.events)
}

func matchesName(event *tmi.Event, name string) bool {
	full := event.Name()
	return full == name || strings.HasPrefix(full, name+"/")
}
