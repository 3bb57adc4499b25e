// Package logtest provides a recording Logger for tests.
package logtest

import (
	"sync"

	"github.com/lteconn/lteconn-go/pkg/log"
)

// Recorder stores every logged event. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []log.Event
}

// Log records the event.
func (r *Recorder) Log(event log.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of the recorded events in order.
func (r *Recorder) Events() []log.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]log.Event(nil), r.events...)
}

// ByCategory returns the recorded events of category c.
func (r *Recorder) ByCategory(c log.Category) []log.Event {
	var out []log.Event
	for _, e := range r.Events() {
		if e.Category == c {
			out = append(out, e)
		}
	}
	return out
}

// StateChanges returns the NewState values of state events for entity,
// in order.
func (r *Recorder) StateChanges(entity log.StateEntity) []string {
	var out []string
	for _, e := range r.Events() {
		if e.StateChange != nil && e.StateChange.Entity == entity {
			out = append(out, e.StateChange.NewState)
		}
	}
	return out
}

var _ log.Logger = (*Recorder)(nil)
