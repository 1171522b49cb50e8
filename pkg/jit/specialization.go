package jit

import (
	"sync"
	"sync/atomic"
)

// Cache holds every CompiledExpr built for one expression fingerprint
// (ast.StructuralHash), keyed further by the schema it was specialized
// against. Grounded on the teacher's pkg/jit/specialization.go
// (SpecializationCache: multiple specializations per route, bounded by
// maxPerRoute, with per-entry hit/miss counters and eviction) — narrowed
// from "route x argument types" to "expression x schema", since the same
// rule expression is routinely evaluated against more than one message
// shape (a discount rule that runs against both an "order" and a "cart"
// schema, say) and each shape needs its own compiled closure tree.
type Cache struct {
	mu          sync.RWMutex
	byExpr      map[uint64][]*entry
	maxPerExpr  int
}

type entry struct {
	compiled *CompiledExpr
	hits     atomic.Uint64
	valid    atomic.Bool
}

// NewCache creates an empty Cache. maxPerExpr bounds how many distinct
// schema-specializations are kept per expression fingerprint before the
// least-hit one is evicted to make room.
func NewCache(maxPerExpr int) *Cache {
	if maxPerExpr <= 0 {
		maxPerExpr = 5
	}
	return &Cache{byExpr: make(map[uint64][]*entry), maxPerExpr: maxPerExpr}
}

// Get returns a previously compiled closure for exprFingerprint specialized
// against a schema whose fingerprint equals schemaFingerprint, if one exists
// and hasn't been invalidated.
func (c *Cache) Get(exprFingerprint, schemaFingerprint uint64) (*CompiledExpr, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, e := range c.byExpr[exprFingerprint] {
		if e.valid.Load() && e.compiled.Fingerprint == schemaFingerprint {
			e.hits.Add(1)
			return e.compiled, true
		}
	}
	return nil, false
}

// Put stores compiled under exprFingerprint, evicting the least-hit entry
// first if the per-expression cap has been reached.
func (c *Cache) Put(exprFingerprint uint64, compiled *CompiledExpr) {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := c.byExpr[exprFingerprint]
	if len(list) >= c.maxPerExpr {
		list = evictLeastHit(list)
	}
	e := &entry{compiled: compiled}
	e.valid.Store(true)
	c.byExpr[exprFingerprint] = append(list, e)
}

func evictLeastHit(list []*entry) []*entry {
	if len(list) == 0 {
		return list
	}
	minIdx := 0
	minHits := list[0].hits.Load()
	for i, e := range list {
		if h := e.hits.Load(); h < minHits {
			minHits = h
			minIdx = i
		}
	}
	return append(list[:minIdx], list[minIdx+1:]...)
}

// Invalidate drops every specialization cached for exprFingerprint, e.g.
// after a config reload changes registry semantics for a pure function the
// expression calls.
func (c *Cache) Invalidate(exprFingerprint uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byExpr, exprFingerprint)
}

// Stats summarizes one expression fingerprint's cache entries.
type Stats struct {
	Specializations int
	TotalHits       uint64
}

// GetStats reports cache occupancy for exprFingerprint.
func (c *Cache) GetStats(exprFingerprint uint64) Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	list := c.byExpr[exprFingerprint]
	var s Stats
	s.Specializations = len(list)
	for _, e := range list {
		s.TotalHits += e.hits.Load()
	}
	return s
}
