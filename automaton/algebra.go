package automaton

// product runs the standard two-DFA product construction over the completed
// (total) forms of a and b, combining acceptance per keep, then minimizes
// the result. It implements both Union (keep = OR) and Intersect (keep =
// AND) — the only difference between the two operations once both operands
// are total.
func product(a, b *Automaton, keep func(aAccept, bAccept bool) bool, lim Limits) (*Automaton, error) {
	ca, cb := a.complete(), b.complete()
	type pair struct{ i, j int }
	idOf := map[pair]int{}
	var states []State
	var queue []pair

	start := pair{ca.start, cb.start}
	idOf[start] = 0
	states = append(states, State{Accept: keep(ca.states[ca.start].Accept, cb.states[cb.start].Accept)})
	queue = append(queue, start)

	for i := 0; i < len(queue); i++ {
		cur := queue[i]
		sa, sb := ca.states[cur.i], cb.states[cur.j]
		pts := breakpoints(sa.Trans, sb.Trans)
		var edges []Edge
		for k := 0; k+1 < len(pts); k++ {
			lo, hi := pts[k], pts[k+1]-1
			if lo > 255 || hi < 0 || lo > hi {
				continue
			}
			ta, okA := targetFor(sa.Trans, byte(lo))
			tb, okB := targetFor(sb.Trans, byte(lo))
			if !okA || !okB {
				continue
			}
			np := pair{ta, tb}
			id, ok := idOf[np]
			if !ok {
				id = len(states)
				idOf[np] = id
				states = append(states, State{Accept: keep(ca.states[ta].Accept, cb.states[tb].Accept)})
				queue = append(queue, np)
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
	return out.Minimize(), nil
}

// Union returns the acceptor for L(a) ∪ L(b), or a ResourceExhaustedError
// if the product construction exceeds the default size bounds (spec §5:
// exceeding the limits "raises ResourceExhausted and aborts the enclosing
// job" — it must not be silently approximated away).
func Union(a, b *Automaton) (*Automaton, error) {
	return product(a, b, func(x, y bool) bool { return x || y }, DefaultLimits())
}

// Intersect returns the acceptor for L(a) ∩ L(b); Empty() when disjoint.
// Silently substituting AnyString() on overflow would be unsound here (it
// widens instead of narrows), so this also raises ResourceExhausted.
func Intersect(a, b *Automaton) (*Automaton, error) {
	return product(a, b, func(x, y bool) bool { return x && y }, DefaultLimits())
}

// Complement returns the acceptor for Sigma* \ L(a).
func Complement(a *Automaton) *Automaton {
	c := a.complete()
	states := make([]State, len(c.states))
	for i, s := range c.states {
		states[i] = State{Trans: s.Trans, Accept: !s.Accept}
	}
	out := &Automaton{states: states, start: c.start}
	return out.Minimize()
}

// Concat returns the acceptor for {xy : x in L(a), y in L(b)}. Unlike
// Union/Intersect/Complement this cannot be expressed as a product of two
// already-deterministic acceptors: it genuinely needs an epsilon-glue NFA
// (accept states of a reach the start of b for free) followed by subset
// construction — see determinize.go.
func Concat(a, b *Automaton) (*Automaton, error) {
	offset := len(a.states)
	g := &graph{nodes: make([]node, len(a.states)+len(b.states))}
	for i, s := range a.states {
		n := node{accept: false}
		for _, e := range s.Trans {
			n.trans = append(n.trans, Edge{Lo: e.Lo, Hi: e.Hi, To: e.To})
		}
		if s.Accept {
			n.eps = append(n.eps, offset+b.start)
		}
		g.nodes[i] = n
	}
	for i, s := range b.states {
		n := node{accept: s.Accept}
		for _, e := range s.Trans {
			n.trans = append(n.trans, Edge{Lo: e.Lo, Hi: e.Hi, To: offset + e.To})
		}
		g.nodes[offset+i] = n
	}
	g.start = []int{a.start}
	out, err := determinizeGraph(g, DefaultLimits())
	if err != nil {
		return nil, err
	}
	return out.Minimize(), nil
}

// Star returns the acceptor for L(a)*: zero or more concatenations of
// strings from L(a). Built the same way as Concat — an epsilon-glue NFA
// (accept states loop back to a's start) subset-constructed — plus one
// extra always-accepting entry node so the empty string is in the
// language even when a's own start state is not accepting.
func Star(a *Automaton) (*Automaton, error) {
	g := &graph{nodes: make([]node, len(a.states)+1)}
	for i, s := range a.states {
		n := node{accept: false}
		for _, e := range s.Trans {
			n.trans = append(n.trans, Edge{Lo: e.Lo, Hi: e.Hi, To: e.To})
		}
		if s.Accept {
			n.eps = append(n.eps, a.start)
		}
		g.nodes[i] = n
	}
	entry := len(a.states)
	g.nodes[entry] = node{accept: true, eps: []int{a.start}}
	g.start = []int{entry}
	out, err := determinizeGraph(g, DefaultLimits())
	if err != nil {
		return nil, err
	}
	return out.Minimize(), nil
}

// IsEmpty reports whether L(a) = ∅: no accepting state reachable from start.
func IsEmpty(a *Automaton) bool {
	order, _ := a.reachable()
	for _, id := range order {
		if a.states[id].Accept {
			return false
		}
	}
	return true
}

// IsSingleton reports whether L(a) is exactly one string, returning it.
func IsSingleton(a *Automaton) (string, bool) {
	m := a.Minimize()
	var s []byte
	cur := m.start
	for {
		st := m.states[cur]
		if st.Accept {
			if len(st.Trans) != 0 {
				return "", false // accepts s and some longer string too
			}
			return string(s), true
		}
		if len(st.Trans) != 1 {
			return "", false
		}
		e := st.Trans[0]
		if e.Lo != e.Hi {
			return "", false
		}
		s = append(s, e.Lo)
		if len(s) > 1<<20 {
			return "", false // guards against a pathological self-loop
		}
		cur = e.To
	}
}

// Contains reports whether L(b) is a subset of L(a). Built from Intersect,
// which can raise ResourceExhausted on pathologically large operands; every
// caller of Contains (ssv.Contains, used only from test fixtures and small
// catalogue/registry patterns, never from the forward/backward fixpoint
// hot path) passes already-bounded acceptors, so a ResourceExhausted here
// would itself be a programming error rather than an expected runtime
// condition — hence the panic instead of another threaded error return.
func Contains(a, b *Automaton) bool {
	i, err := Intersect(b, Complement(a))
	if err != nil {
		panic(err)
	}
	return IsEmpty(i)
}

// Equals reports whether L(a) = L(b). Equivalence is the authoritative
// tiebreak on Fingerprint collisions (spec §3).
func Equals(a, b *Automaton) bool {
	ma, mb := a.Minimize(), b.Minimize()
	if len(ma.states) != len(mb.states) {
		return false
	}
	// Minimal complete DFAs for the same language are isomorphic; walk both
	// in lockstep from their starts and confirm a consistent bijection.
	mapping := map[int]int{ma.start: mb.start}
	queue := []int{ma.start}
	for i := 0; i < len(queue); i++ {
		ia := queue[i]
		ib := mapping[ia]
		sa, sb := ma.states[ia], mb.states[ib]
		if sa.Accept != sb.Accept {
			return false
		}
		if len(sa.Trans) != len(sb.Trans) {
			return false
		}
		for k := range sa.Trans {
			ea, eb := sa.Trans[k], sb.Trans[k]
			if ea.Lo != eb.Lo || ea.Hi != eb.Hi {
				return false
			}
			if existing, ok := mapping[ea.To]; ok {
				if existing != eb.To {
					return false
				}
			} else {
				mapping[ea.To] = eb.To
				queue = append(queue, ea.To)
			}
		}
	}
	return true
}
