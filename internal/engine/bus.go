package engine

import (
	"log/slog"
	"sync"

	"github.com/roach88/formgraph/internal/ir"
)

// Event is the output of every engine mutation. Kind is a past-tense
// dotted name such as "entity.created"; Payload is the event body; Meta
// carries the trace span recorded when the event was emitted.
type Event struct {
	Kind    string
	Payload ir.Object
	Meta    Meta
}

// Handler consumes published events. Handlers run synchronously on the
// publisher's goroutine.
type Handler func(Event)

// Bus is the pub/sub SPI between engines and their observers.
// Subscribe registers a handler for one event kind ("*" matches all) and
// returns an unsubscribe func. Publishing never fails: a panicking
// subscriber is isolated and must not corrupt bus state or starve other
// subscribers.
type Bus interface {
	Publish(evt Event)
	Subscribe(kind string, h Handler) (unsubscribe func())
}

// MemoryBus is an in-process Bus. Safe for concurrent use.
type MemoryBus struct {
	mu   sync.RWMutex
	subs map[string]map[int]Handler
	next int
	log  *slog.Logger
}

// NewMemoryBus creates an empty bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		subs: make(map[string]map[int]Handler),
		log:  slog.Default(),
	}
}

func (b *MemoryBus) Subscribe(kind string, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	if b.subs[kind] == nil {
		b.subs[kind] = make(map[int]Handler)
	}
	b.subs[kind][id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[kind], id)
	}
}

func (b *MemoryBus) Publish(evt Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[evt.Kind])+len(b.subs["*"]))
	for _, h := range b.subs[evt.Kind] {
		handlers = append(handlers, h)
	}
	for _, h := range b.subs["*"] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.deliver(evt, h)
	}
}

// deliver runs one handler, swallowing panics so a bad subscriber cannot
// take down the publisher.
func (b *MemoryBus) deliver(evt Event, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event subscriber panicked",
				"kind", evt.Kind,
				"panic", r)
		}
	}()
	h(evt)
}
