// # internal/engine/parser/pool.go
package parser

import (
	"sync"
	"sync/atomic"
	"time"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// ParserPool recycles tree-sitter parsers for one grammar. A document holds
// many small fragments, and each would otherwise pay for NewParser and
// Close.
//
//	sp := pool.Get()
//	defer pool.Put(sp)
//
// Safe for concurrent use.
type ParserPool struct {
	lang   *sitter.Language
	pool   sync.Pool
	leases atomic.Uint64

	mu     sync.Mutex
	leased map[*sitter.Parser]time.Time
}

// Stats is a snapshot of pool usage, reported by the health check.
type Stats struct {
	Leased int
	Oldest time.Duration
	Leases uint64
}

// NewParserPool creates a pool for lang, which must outlive the pool.
func NewParserPool(lang *sitter.Language) *ParserPool {
	p := &ParserPool{lang: lang, leased: make(map[*sitter.Parser]time.Time)}
	p.pool.New = func() any {
		sp := sitter.NewParser()
		_ = sp.SetLanguage(lang)
		return sp
	}
	return p
}

// Get leases a parser configured for the pool's grammar.
func (p *ParserPool) Get() *sitter.Parser {
	sp := p.pool.Get().(*sitter.Parser)
	_ = sp.SetLanguage(p.lang)
	p.leases.Add(1)

	p.mu.Lock()
	p.leased[sp] = time.Now()
	p.mu.Unlock()
	return sp
}

// Put resets sp and returns it to the pool. sp must not be used afterwards.
func (p *ParserPool) Put(sp *sitter.Parser) {
	if sp == nil {
		return
	}
	p.mu.Lock()
	delete(p.leased, sp)
	p.mu.Unlock()

	sp.Reset()
	p.pool.Put(sp)
}

func (p *ParserPool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Stats{Leased: len(p.leased), Leases: p.leases.Load()}
	now := time.Now()
	for _, at := range p.leased {
		s.Oldest = max(s.Oldest, now.Sub(at))
	}
	return s
}
