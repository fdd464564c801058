// Package grouping implements the Automaton Grouping container (C7): an
// equivalence-classed bucket of per-file analysis results, keyed by
// regular-language equality rather than by any syntactic DepGraph
// property. Mirrors the retrieved lazy DFA cache's locking shape (one
// mutex, fingerprint-first lookup) but the key here is SSV equivalence,
// not a literal state-set hash.
package grouping

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/christiankrug/sanitizer-checker/ssv"
)

// GroupID uniquely identifies a Group for the lifetime of a Groups
// container (spec §3: groups, unlike DepGraph nodes, are model-level
// entities with no natural external identity, so they get a UUID).
type GroupID uuid.UUID

// String returns the UUID's canonical string form.
func (id GroupID) String() string { return uuid.UUID(id).String() }

// Result is one file's contribution to a group: the post-image SSV it
// produced plus the file it came from, kept for the report's file list.
type Result struct {
	File string
	SSV  ssv.SSV
}

// Group is a pair (representative SSV, contributing results) (spec §3,
// §4.7). Name is empty unless the group was seeded by CreateNamed or later
// matched a named representative.
type Group struct {
	ID             GroupID
	Name           string
	Representative ssv.SSV
	Results        []Result
}

// Groups is the equivalence-classed container: within one instance no two
// groups have equivalent representative SSVs (spec §3 invariant).
// Fingerprint buckets narrow the equivalence search from O(#groups) to
// O(#groups sharing a fingerprint), since two equal languages always share
// a fingerprint but two equal fingerprints need not be equal languages
// (spec §3: "fingerprint... accelerates lookup; the full equivalence check
// is the authoritative tiebreak on collision").
type Groups struct {
	mu      sync.Mutex
	byFP    map[uint64][]GroupID
	groups  map[GroupID]*Group
	order   []GroupID // insertion order, for deterministic report iteration
}

// New returns an empty Groups container.
func New() *Groups {
	return &Groups{
		byFP:   map[uint64][]GroupID{},
		groups: map[GroupID]*Group{},
	}
}

// Add inserts result into the existing group whose representative is
// equivalent to v, or creates a new (unnamed) group (spec §4.7 "add(ssv,
// result)"). Returns the group it landed in.
func (g *Groups) Add(v ssv.SSV, result Result) *Group {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addLocked(v, result, "")
}

// CreateNamed pre-registers a group for v under name with no initial
// results, so that later post-images equivalent to v are filed under a
// familiar label instead of an anonymous group id (spec §4.7; grounded on
// the original tool's fillCommonPatterns, which pre-registers the same
// common sanitizer residues by name before any file is analyzed). Calling
// it for an already-equivalent representative is a no-op beyond assigning
// the name if the existing group is still unnamed.
func (g *Groups) CreateNamed(v ssv.SSV, name string) *Group {
	g.mu.Lock()
	defer g.mu.Unlock()
	if existing := g.findLocked(v); existing != nil {
		if existing.Name == "" {
			existing.Name = name
		}
		return existing
	}
	grp := &Group{ID: GroupID(uuid.New()), Name: name, Representative: v}
	g.insertLocked(v, grp)
	return grp
}

func (g *Groups) addLocked(v ssv.SSV, result Result, name string) *Group {
	if existing := g.findLocked(v); existing != nil {
		existing.Results = append(existing.Results, result)
		return existing
	}
	grp := &Group{ID: GroupID(uuid.New()), Name: name, Representative: v, Results: []Result{result}}
	g.insertLocked(v, grp)
	return grp
}

// findLocked returns the group equivalent to v, or nil. Caller must hold
// g.mu.
func (g *Groups) findLocked(v ssv.SSV) *Group {
	fp := v.Fingerprint()
	for _, id := range g.byFP[fp] {
		grp := g.groups[id]
		if ssv.Equals(grp.Representative, v) {
			return grp
		}
	}
	return nil
}

func (g *Groups) insertLocked(v ssv.SSV, grp *Group) {
	fp := v.Fingerprint()
	g.byFP[fp] = append(g.byFP[fp], grp.ID)
	g.groups[grp.ID] = grp
	g.order = append(g.order, grp.ID)
}

// All returns every group sorted by result count, largest first; groups
// with equal counts keep their insertion order. Deterministic enough for
// reporting, though spec §4.8 guarantees no ordering across files within
// a single run.
func (g *Groups) All() []*Group {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*Group, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.groups[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].Results) > len(out[j].Results)
	})
	return out
}

// Len returns the number of distinct equivalence groups.
func (g *Groups) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.groups)
}
