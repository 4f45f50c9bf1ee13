package engine

import (
	"sync"

	"github.com/google/uuid"
)

// TokenGenerator generates trace and span tokens.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type TokenGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 tokens.
//
// UUIDv7 embeds a timestamp in the most significant bits, making tokens
// sortable by creation time. Helpful for debugging and trace visualization.
//
// Thread-safety: stateless, safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined tokens for testing.
// Enables deterministic trace output and golden comparison.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewFixedGenerator creates a generator that returns tokens in order.
//
// Panics once all tokens are consumed. Fail-fast to catch test
// misconfiguration.
func NewFixedGenerator(tokens ...string) *FixedGenerator {
	return &FixedGenerator{tokens: tokens}
}

// Generate returns the next predetermined token.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.tokens) {
		panic("FixedGenerator: all tokens exhausted")
	}
	token := g.tokens[g.idx]
	g.idx++
	return token
}

// Meta is the trace metadata attached to every emitted event.
// A root span is started per incoming command; each emitted event records
// a child span of that root.
type Meta struct {
	TraceID     string `json:"trace_id"`
	SpanID      string `json:"span_id"`
	ParentSpan  string `json:"parent_span,omitempty"`
	Action      string `json:"action,omitempty"`
	Scope       string `json:"scope,omitempty"`
	Correlation string `json:"correlation,omitempty"`
}

// StartTrace opens the root span for one command. correlation is the
// caller-supplied correlation id, propagated to every child span.
func StartTrace(gen TokenGenerator, scope, correlation string) Meta {
	return Meta{
		TraceID:     gen.Generate(),
		SpanID:      gen.Generate(),
		Scope:       scope,
		Correlation: correlation,
	}
}

// ChildSpan derives the span recorded on one emitted event.
func ChildSpan(base Meta, gen TokenGenerator, action string) Meta {
	return Meta{
		TraceID:     base.TraceID,
		SpanID:      gen.Generate(),
		ParentSpan:  base.SpanID,
		Action:      action,
		Scope:       base.Scope,
		Correlation: base.Correlation,
	}
}
