// Package resulttable implements the map from DepGraph node identity to
// its computed SSV (C6): every node the fixpoint analyzer visits gets one
// entry, which SCC widening may overwrite until the table is frozen, and
// which is read many times by downstream nodes and by the grouping stage. Modeled as a
// concurrency-safe cache in the shape of the retrieved automaton
// library's lazy DFA state cache (one RWMutex-guarded map, Get/Insert,
// no eviction) rather than an LRU: a single DepGraph's result set is
// small and never needs to shrink mid-analysis.
package resulttable

import (
	"sync"

	"github.com/christiankrug/sanitizer-checker/depgraph"
	"github.com/christiankrug/sanitizer-checker/ssv"
)

// Table is a per-DepGraph result cache keyed by NodeId. Safe for
// concurrent access: the analyzer may evaluate independent subgraphs (e.g.
// forward and backward passes over the same file) on separate goroutines.
type Table struct {
	mu      sync.RWMutex
	results map[depgraph.NodeId]ssv.SSV
	frozen  bool
}

// New returns an empty Table.
func New() *Table {
	return &Table{results: make(map[depgraph.NodeId]ssv.SSV)}
}

// Get returns the value stored for id, and whether one is present.
func (t *Table) Get(id depgraph.NodeId) (ssv.SSV, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.results[id]
	return v, ok
}

// Set records v as the result for id. Overwriting an existing entry is
// permitted only before the table is frozen — the analyzer calls Set once
// per node in topological order, but SCC widening may revise a node's
// value across iterations before that SCC is finalized.
func (t *Table) Set(id depgraph.NodeId, v ssv.SSV) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.frozen {
		panic("resulttable: Set called on a frozen Table")
	}
	t.results[id] = v
}

// Freeze takes an immutable snapshot: further Set calls panic, and Get
// remains safe for unsynchronized concurrent reads from the grouping and
// reporting stages once analysis of this DepGraph has completed.
func (t *Table) Freeze() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frozen = true
}

// Frozen reports whether Freeze has been called.
func (t *Table) Frozen() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.frozen
}

// Len returns the number of recorded results.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.results)
}

// All returns every (NodeId, SSV) pair currently recorded. Intended for use
// after Freeze, when the map is stable and a full snapshot is wanted.
func (t *Table) All() map[depgraph.NodeId]ssv.SSV {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[depgraph.NodeId]ssv.SSV, len(t.results))
	for k, v := range t.results {
		out[k] = v
	}
	return out
}
