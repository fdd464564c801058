package automaton

// Homomorphism maps every input byte to its (possibly empty, possibly
// multi-byte) image string. It models the character-wise sanitizers named
// in spec §4.1/§4.2 (escaping, case folding, ...): each replaces a byte with
// a fixed replacement string independent of context, which is exactly a
// string homomorphism and keeps both directions in the regular class.
type Homomorphism [256][]byte

// NewHomomorphism builds an identity homomorphism (every byte maps to
// itself), to be customized via Set.
func NewHomomorphism() *Homomorphism {
	var h Homomorphism
	for b := 0; b < 256; b++ {
		h[b] = []byte{byte(b)}
	}
	return &h
}

// Set overrides the image of byte b.
func (h *Homomorphism) Set(b byte, image []byte) { h[b] = image }

// Image returns the acceptor for h(L(m)): every transition of m is expanded
// into a chain realizing the homomorphic image of its label, then the
// result is subset-constructed and minimized.
func Image(h *Homomorphism, m *Automaton) (*Automaton, error) {
	g := &graph{nodes: make([]node, len(m.states))}
	for i, s := range m.states {
		g.nodes[i].accept = s.Accept
	}
	addChain := func(from, to int, img []byte) {
		if len(img) == 0 {
			g.nodes[from].eps = append(g.nodes[from].eps, to)
			return
		}
		cur := from
		for k := 0; k < len(img)-1; k++ {
			nid := len(g.nodes)
			g.nodes = append(g.nodes, node{})
			g.nodes[cur].trans = append(g.nodes[cur].trans, Edge{Lo: img[k], Hi: img[k], To: nid})
			cur = nid
		}
		g.nodes[cur].trans = append(g.nodes[cur].trans, Edge{Lo: img[len(img)-1], Hi: img[len(img)-1], To: to})
	}
	for i, s := range m.states {
		for _, e := range s.Trans {
			for b := int(e.Lo); b <= int(e.Hi); b++ {
				addChain(i, e.To, h[b])
			}
		}
	}
	g.start = []int{m.start}
	out, err := determinizeGraph(g, DefaultLimits())
	if err != nil {
		return nil, err
	}
	return out.Minimize(), nil
}

// Preimage returns the acceptor for { s : h(s) in L(m) }: an exact backward
// image for any character-wise homomorphism. State q of the result tracks
// "the state m would be in after consuming h(prefix-read-so-far)"; reading
// byte c walks h(c) through m from q. Dies (no transition) if that walk
// falls off m, i.e. no completion of the input byte's image is accepted.
func Preimage(h *Homomorphism, m *Automaton) *Automaton {
	c := m.complete()
	states := make([]State, len(c.states))
	for i, s := range c.states {
		states[i] = State{Accept: s.Accept}
	}
	for from := range c.states {
		var edges []Edge
		for b := 0; b < 256; b++ {
			cur := from
			dead := false
			for _, ch := range h[b] {
				to, ok := targetFor(c.states[cur].Trans, ch)
				if !ok {
					dead = true
					break
				}
				cur = to
			}
			if !dead {
				edges = append(edges, Edge{Lo: byte(b), Hi: byte(b), To: cur})
			}
		}
		states[from].Trans = mergeAdjacent(edges)
	}
	out := &Automaton{states: states, start: c.start}
	return out.Minimize()
}
