package automaton

import (
	"sort"

	"github.com/christiankrug/sanitizer-checker/internal/sparse"
)

// node is one vertex of the generic epsilon-NFA used internally by
// determinizeGraph. Both FromNFA (compiling a regex-derived Thompson NFA)
// and Concat (gluing two already-deterministic acceptors at their
// accept/start boundary) build a graph of these and hand it to the same
// subset-construction routine — concatenation is the one operation that
// cannot be expressed as a product of two DFAs and genuinely needs this.
type node struct {
	trans  []Edge // byte-consuming edges, To indexes into the same node slice
	eps    []int  // epsilon successors
	accept bool
}

type graph struct {
	nodes []node
	start []int // one or more start nodes (epsilon-joined)
}

// epsilonClosure returns the sorted, deduplicated set of nodes reachable
// from ids via epsilon edges (including ids themselves). Membership is
// tracked with a sparse.SparseSet sized to the graph's node count rather
// than a map[int]bool: closures are recomputed on every subset-construction
// step, and a state universe that is known and small up front is exactly
// what SparseSet is built for.
func epsilonClosure(g *graph, ids []int) []int {
	seen := sparse.NewSparseSet(uint32(len(g.nodes)))
	var stack, out []int
	for _, id := range ids {
		if !seen.Contains(uint32(id)) {
			seen.Insert(uint32(id))
			stack = append(stack, id)
			out = append(out, id)
		}
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range g.nodes[id].eps {
			if !seen.Contains(uint32(e)) {
				seen.Insert(uint32(e))
				stack = append(stack, e)
				out = append(out, e)
			}
		}
	}
	sort.Ints(out)
	return out
}

func setKey(ids []int) string {
	b := make([]byte, 0, len(ids)*5)
	for _, id := range ids {
		b = append(b, byte(id), byte(id>>8), byte(id>>16), byte(id>>24), ',')
	}
	return string(b)
}

func setAccept(g *graph, ids []int) bool {
	for _, id := range ids {
		if g.nodes[id].accept {
			return true
		}
	}
	return false
}

// breakpoints returns the sorted set of interval boundaries (0..256) induced
// by the Lo/Hi ranges of the given edge lists, so that within any resulting
// interval every edge either fully covers it or fully excludes it.
func breakpoints(edgeLists ...[]Edge) []int {
	set := map[int]bool{0: true, 256: true}
	for _, edges := range edgeLists {
		for _, e := range edges {
			set[int(e.Lo)] = true
			set[int(e.Hi)+1] = true
		}
	}
	pts := make([]int, 0, len(set))
	for p := range set {
		pts = append(pts, p)
	}
	sort.Ints(pts)
	return pts
}

func targetFor(edges []Edge, b byte) (int, bool) {
	for _, e := range edges {
		if b >= e.Lo && b <= e.Hi {
			return e.To, true
		}
	}
	return 0, false
}

// determinizeGraph runs subset construction over g and returns a
// size-bounded Automaton. The result is not minimized.
func determinizeGraph(g *graph, lim Limits) (*Automaton, error) {
	startSet := epsilonClosure(g, g.start)
	idOf := map[string]int{}
	var states []State
	var queue [][]int

	key := setKey(startSet)
	idOf[key] = 0
	states = append(states, State{Accept: setAccept(g, startSet)})
	queue = append(queue, startSet)

	for i := 0; i < len(queue); i++ {
		cur := queue[i]
		var edgeLists [][]Edge
		for _, id := range cur {
			edgeLists = append(edgeLists, g.nodes[id].trans)
		}
		pts := breakpoints(edgeLists...)
		var edges []Edge
		for k := 0; k+1 < len(pts); k++ {
			lo, hi := pts[k], pts[k+1]-1
			if lo > 255 || hi < 0 || lo > hi {
				continue
			}
			rep := byte(lo)
			var raw []int
			for _, id := range cur {
				if to, ok := targetFor(g.nodes[id].trans, rep); ok {
					raw = append(raw, to)
				}
			}
			if len(raw) == 0 {
				continue
			}
			next := epsilonClosure(g, raw)
			nk := setKey(next)
			id, ok := idOf[nk]
			if !ok {
				id = len(states)
				idOf[nk] = id
				states = append(states, State{Accept: setAccept(g, next)})
				queue = append(queue, next)
			}
			edges = append(edges, Edge{Lo: byte(lo), Hi: byte(hi), To: id})
		}
		states[i].Trans = mergeAdjacent(edges)
		if len(states) > lim.MaxStates {
			return nil, &ResourceExhaustedError{Kind: "states", Count: len(states), Limit: lim.MaxStates}
		}
	}

	out := &Automaton{states: states, start: 0}
	if err := checkLimits(out, lim); err != nil {
		return nil, err
	}
	return out, nil
}

// mergeAdjacent merges touching or overlapping ranges that share the same
// target, producing the canonical compact edge list a state should carry.
func mergeAdjacent(edges []Edge) []Edge {
	if len(edges) == 0 {
		return nil
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Lo != edges[j].Lo {
			return edges[i].Lo < edges[j].Lo
		}
		return edges[i].To < edges[j].To
	})
	out := []Edge{edges[0]}
	for _, e := range edges[1:] {
		last := &out[len(out)-1]
		if e.To == last.To && int(e.Lo) <= int(last.Hi)+1 {
			if e.Hi > last.Hi {
				last.Hi = e.Hi
			}
			continue
		}
		out = append(out, e)
	}
	return out
}
