package testutil

import (
	"fmt"
	"sync"
)

// SeqGenerator produces an unbounded deterministic token sequence:
// prefix-1, prefix-2, and so on. Unlike a fixed token list it never
// exhausts, which suits scenarios whose event count is not known up
// front. Safe for concurrent use.
type SeqGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSeqGenerator creates a generator with the given token prefix.
// An empty prefix defaults to "tok".
func NewSeqGenerator(prefix string) *SeqGenerator {
	if prefix == "" {
		prefix = "tok"
	}
	return &SeqGenerator{prefix: prefix}
}

// Generate returns the next token in the sequence.
func (g *SeqGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

// Reset rewinds the sequence so the next token is prefix-1 again.
func (g *SeqGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
