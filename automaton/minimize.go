package automaton

import "sort"

// complete returns a is total over the byte alphabet: every state has a
// transition defined for every byte 0-255, introducing a single non-
// accepting trap state to absorb the rest. Needed before product
// construction (Union/Intersect/Complement) so missing edges never need
// special-casing.
func (a *Automaton) complete() *Automaton {
	out := a.clone()
	trapNeeded := false
	for _, s := range out.states {
		merged := mergeAdjacent(append([]Edge{}, s.Trans...))
		if len(merged) != 1 || merged[0].Lo != 0 || merged[0].Hi != 255 {
			trapNeeded = true
			break
		}
	}
	if !trapNeeded {
		return out
	}
	trap := len(out.states)
	out.states = append(out.states, State{Accept: false, Trans: []Edge{{Lo: 0, Hi: 255, To: trap}}})
	for i := 0; i < trap; i++ {
		s := &out.states[i]
		pts := breakpoints(s.Trans)
		var edges []Edge
		for k := 0; k+1 < len(pts); k++ {
			lo, hi := pts[k], pts[k+1]-1
			if lo > 255 || hi < 0 || lo > hi {
				continue
			}
			if to, ok := targetFor(s.Trans, byte(lo)); ok {
				edges = append(edges, Edge{Lo: byte(lo), Hi: byte(hi), To: to})
			} else {
				edges = append(edges, Edge{Lo: byte(lo), Hi: byte(hi), To: trap})
			}
		}
		s.Trans = mergeAdjacent(edges)
	}
	return out
}

// reachable returns the states reachable from the start, in BFS order,
// along with a mapping from old index to new (compacted) index.
func (a *Automaton) reachable() (order []int, remap map[int]int) {
	remap = map[int]int{a.start: 0}
	order = []int{a.start}
	for i := 0; i < len(order); i++ {
		for _, e := range a.states[order[i]].Trans {
			if _, ok := remap[e.To]; !ok {
				remap[e.To] = len(order)
				order = append(order, e.To)
			}
		}
	}
	return order, remap
}

func (a *Automaton) trim() *Automaton {
	order, remap := a.reachable()
	states := make([]State, len(order))
	for newID, oldID := range order {
		old := a.states[oldID]
		trans := make([]Edge, len(old.Trans))
		for i, e := range old.Trans {
			trans[i] = Edge{Lo: e.Lo, Hi: e.Hi, To: remap[e.To]}
		}
		states[newID] = State{Trans: mergeAdjacent(trans), Accept: old.Accept}
	}
	return &Automaton{states: states, start: 0}
}

// coTrim removes states that cannot reach any accepting state — dead
// states, the canonical example being the trap complete() adds — and drops
// any edge into one, leaving the transition simply absent (implicit
// reject, same as everywhere else in this package). Without this, a
// completed-then-minimized acceptor keeps its trap state forever (trim()
// only removes *unreachable* states, and the trap is very much reachable),
// so every non-accepting state looks like it has a full 256-wide fan-out
// instead of the sparse one-edge-per-real-transition shape IsSingleton and
// friends expect.
func (a *Automaton) coTrim() *Automaton {
	n := len(a.states)
	preds := make([][]int, n)
	for i, s := range a.states {
		for _, e := range s.Trans {
			preds[e.To] = append(preds[e.To], i)
		}
	}
	live := make([]bool, n)
	var queue []int
	for i, s := range a.states {
		if s.Accept {
			live[i] = true
			queue = append(queue, i)
		}
	}
	for i := 0; i < len(queue); i++ {
		for _, p := range preds[queue[i]] {
			if !live[p] {
				live[p] = true
				queue = append(queue, p)
			}
		}
	}
	if !live[a.start] {
		return &Automaton{states: []State{{Accept: false}}, start: 0}
	}
	remap := map[int]int{}
	var order []int
	for i := 0; i < n; i++ {
		if live[i] {
			remap[i] = len(order)
			order = append(order, i)
		}
	}
	states := make([]State, len(order))
	for newID, oldID := range order {
		old := a.states[oldID]
		var trans []Edge
		for _, e := range old.Trans {
			if live[e.To] {
				trans = append(trans, Edge{Lo: e.Lo, Hi: e.Hi, To: remap[e.To]})
			}
		}
		states[newID] = State{Trans: mergeAdjacent(trans), Accept: old.Accept}
	}
	return &Automaton{states: states, start: remap[a.start]}
}

// Minimize returns the minimal, trimmed acceptor for the same language as a,
// via Moore-style partition refinement to a fixpoint. The alphabet is small
// (256 bytes) and acceptors are bounded by ResourceExhausted limits, so the
// naive per-iteration O(n*256) signature pass is not a performance concern.
func (a *Automaton) Minimize() *Automaton {
	c := a.complete()
	n := len(c.states)
	class := make([]int, n)
	for i, s := range c.states {
		if s.Accept {
			class[i] = 1
		}
	}
	for {
		sigToClass := map[string]int{}
		next := make([]int, n)
		changed := false
		// stable order: iterate states, assign ids in first-seen order of
		// their signature so the resulting numbering is deterministic.
		order := make([]int, 0, n)
		for i := 0; i < n; i++ {
			order = append(order, i)
		}
		sort.Ints(order) // already 0..n-1, kept explicit for clarity
		for _, i := range order {
			sig := stateSignature(c, i, class)
			id, ok := sigToClass[sig]
			if !ok {
				id = len(sigToClass)
				sigToClass[sig] = id
			}
			next[i] = id
		}
		for i := range class {
			if class[i] != next[i] {
				changed = true
			}
		}
		class = next
		if !changed {
			break
		}
	}

	numClasses := 0
	for _, cl := range class {
		if cl+1 > numClasses {
			numClasses = cl + 1
		}
	}
	rep := make([]int, numClasses)
	seen := make([]bool, numClasses)
	for i, cl := range class {
		if !seen[cl] {
			seen[cl] = true
			rep[cl] = i
		}
	}
	states := make([]State, numClasses)
	for cl := 0; cl < numClasses; cl++ {
		s := c.states[rep[cl]]
		var edges []Edge
		for _, e := range s.Trans {
			edges = append(edges, Edge{Lo: e.Lo, Hi: e.Hi, To: class[e.To]})
		}
		states[cl] = State{Trans: mergeAdjacent(edges), Accept: s.Accept}
	}
	out := &Automaton{states: states, start: class[c.start]}
	return out.trim().coTrim()
}

func stateSignature(a *Automaton, i int, class []int) string {
	s := a.states[i]
	buf := make([]byte, 0, 64)
	if s.Accept {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	for b := 0; ; b++ {
		cl := -1
		if t, ok := targetFor(s.Trans, byte(b)); ok {
			cl = class[t]
		}
		buf = append(buf, byte(cl), byte(cl>>8))
		if b == 255 {
			break
		}
	}
	return string(buf)
}
