package testutil

import (
	"sync"

	"github.com/roach88/formgraph/internal/engine"
)

// Recorder captures every event published on a bus, in publish order.
// Safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []engine.Event
	cancel func()
}

// NewRecorder subscribes a recorder to all events on the bus.
func NewRecorder(bus engine.Bus) *Recorder {
	r := &Recorder{}
	r.cancel = bus.Subscribe("*", func(ev engine.Event) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, ev)
	})
	return r
}

// Events returns a copy of the captured events.
func (r *Recorder) Events() []engine.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]engine.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Kinds returns the captured event kinds in publish order.
func (r *Recorder) Kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]string, len(r.events))
	for i, ev := range r.events {
		kinds[i] = ev.Kind
	}
	return kinds
}

// Reset drops the captured events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// Close unsubscribes the recorder from the bus.
func (r *Recorder) Close() {
	r.cancel()
}
