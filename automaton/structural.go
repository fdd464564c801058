package automaton

// LengthRestrict returns the acceptor for L(a) intersected with the
// strings whose length lies in [min, max]. max < 0 means unbounded.
func LengthRestrict(a *Automaton, min, max int) (*Automaton, error) {
	return Intersect(a, lengthAutomaton(min, max))
}

// lengthAutomaton builds the acceptor for { s : min <= len(s) <= max } (or
// len(s) >= min when max < 0), counting consumed bytes up to a small cap
// and then looping once the upper bound no longer matters.
func lengthAutomaton(min, max int) *Automaton {
	ceiling := max
	if ceiling < 0 {
		ceiling = min
	}
	states := make([]State, ceiling+1)
	for i := 0; i <= ceiling; i++ {
		accept := i >= min && (max < 0 || i <= max)
		next := i + 1
		switch {
		case i < ceiling:
			// next already i+1
		case max < 0:
			next = i // unbounded: stay, keep accepting past min
		default:
			next = -1 // dead: exceeded max
		}
		if next >= 0 {
			states[i] = State{Accept: accept, Trans: []Edge{{Lo: 0, Hi: 255, To: next}}}
		} else {
			states[i] = State{Accept: accept}
		}
	}
	return (&Automaton{states: states, start: 0}).Minimize()
}

// fromState returns the acceptor reachable by treating state id as the
// start of a (same transition table, same accept marks) — used to build
// "skip a prefix, then continue from wherever that left us" operations
// like TrimLeft.
func (a *Automaton) fromState(id int) *Automaton {
	out := &Automaton{states: a.states, start: id}
	return out.trim()
}

// LeadingRunStates returns the set of states reachable from a's start by
// consuming zero or more bytes that are all members of class, i.e. the
// positions "after skipping a leading run of class bytes".
func LeadingRunStates(a *Automaton, class func(byte) bool) []int {
	seen := map[int]bool{a.start: true}
	order := []int{a.start}
	for i := 0; i < len(order); i++ {
		s := a.states[order[i]]
		for _, e := range s.Trans {
			if !coveredByClass(e, class) {
				continue
			}
			if !seen[e.To] {
				seen[e.To] = true
				order = append(order, e.To)
			}
		}
	}
	return order
}

func coveredByClass(e Edge, class func(byte) bool) bool {
	for b := int(e.Lo); b <= int(e.Hi); b++ {
		if !class(byte(b)) {
			return false
		}
	}
	return true
}

// TrimLeftByClass returns the acceptor for { strip-leading-run(s) : s in
// L(a) }, where the run consists of bytes satisfying class (trim_ws and
// trim_left in the registry specialize class to whitespace bytes).
func TrimLeftByClass(a *Automaton, class func(byte) bool) (*Automaton, error) {
	starts := LeadingRunStates(a, class)
	acc := Empty()
	for _, st := range starts {
		u, err := Union(acc, a.fromState(st))
		if err != nil {
			return nil, err
		}
		acc = u
	}
	notLeadingClass := Complement(leadingClassPrefix(class))
	return Intersect(acc, notLeadingClass)
}

// leadingClassPrefix returns the acceptor for "starts with at least one
// class byte", used to filter a trim result so it never still begins with
// a byte that should have been stripped.
func leadingClassPrefix(class func(byte) bool) *Automaton {
	var edges []Edge
	for b := 0; b < 256; b++ {
		if class(byte(b)) {
			edges = append(edges, Edge{Lo: byte(b), Hi: byte(b), To: 1})
		}
	}
	return &Automaton{
		states: []State{{Trans: mergeAdjacent(edges)}, {Accept: true, Trans: []Edge{{Lo: 0, Hi: 255, To: 1}}}},
		start:  0,
	}
}

// TrimRightByClass mirrors TrimLeftByClass for a trailing run. Computing "ends with a class run" needs the predecessor
// relation rather than successors, so it is built directly rather than by
// reusing LeadingRunStates.
func TrimRightByClass(a *Automaton, class func(byte) bool) *Automaton {
	c := a.complete()
	// pred[s] = states with an edge into s on a class byte.
	pred := make(map[int][]int)
	for i, s := range c.states {
		for _, e := range s.Trans {
			if coveredByClass(e, class) {
				pred[e.To] = append(pred[e.To], i)
			}
		}
	}
	trimmed := make([]bool, len(c.states)) // true if state is reachable by trimming a trailing run ending in an accept state
	queue := []int{}
	for i, s := range c.states {
		if s.Accept {
			trimmed[i] = true
			queue = append(queue, i)
		}
	}
	for i := 0; i < len(queue); i++ {
		for _, p := range pred[queue[i]] {
			if !trimmed[p] {
				trimmed[p] = true
				queue = append(queue, p)
			}
		}
	}
	states := make([]State, len(c.states))
	for i, s := range c.states {
		states[i] = State{Trans: s.Trans, Accept: trimmed[i]}
	}
	out := &Automaton{states: states, start: c.start}
	return out.Minimize()
}

// Reverse returns the acceptor for { reverse(s) : s in L(a) }: an NFA with
// one start node per a-accept-state and edges run backward, subset
// constructed the same way Concat and Star build their glue NFAs.
func Reverse(a *Automaton) (*Automaton, error) {
	g := &graph{nodes: make([]node, len(a.states)+1)}
	entry := len(a.states)
	for i := range a.states {
		g.nodes[i] = node{accept: i == a.start}
	}
	var starts []int
	for i, s := range a.states {
		if s.Accept {
			starts = append(starts, i)
		}
		for _, e := range s.Trans {
			g.nodes[e.To].trans = append(g.nodes[e.To].trans, Edge{Lo: e.Lo, Hi: e.Hi, To: i})
		}
	}
	g.nodes[entry] = node{eps: starts}
	g.start = []int{entry}
	out, err := determinizeGraph(g, DefaultLimits())
	if err != nil {
		return nil, err
	}
	return out.Minimize(), nil
}

// QuotientByPrefixLiteral returns { x : prefix+x in L(a) }, computed by
// deterministically walking a from its start along prefix's bytes (exact;
// used by registry's concat backward transfer when a concat operand is a
// literal, so the other operand's pre-image can be read off directly
// instead of over-approximated).
func QuotientByPrefixLiteral(a *Automaton, prefix string) *Automaton {
	cur := a.start
	for i := 0; i < len(prefix); i++ {
		to, ok := targetFor(a.states[cur].Trans, prefix[i])
		if !ok {
			return Empty()
		}
		cur = to
	}
	return a.fromState(cur)
}

// QuotientBySuffixLiteral returns { x : x+suffix in L(a) }, computed via
// Reverse: reverse(a) accepts exactly the reversed strings of L(a), so
// quotienting reverse(a) by reverse(suffix) as a prefix and reversing the
// result back gives the suffix quotient.
func QuotientBySuffixLiteral(a *Automaton, suffix string) (*Automaton, error) {
	rev, err := Reverse(a)
	if err != nil {
		return nil, err
	}
	reversedSuffix := reverseString(suffix)
	q := QuotientByPrefixLiteral(rev, reversedSuffix)
	return Reverse(q)
}

func reverseString(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}
