package automaton

import (
	"regexp/syntax"

	"github.com/christiankrug/sanitizer-checker/nfa"
)

// OfRegex compiles r (Go/Perl regex syntax, as accepted by regexp/syntax)
// into a minimized acceptor over the byte alphabet. It is the construction
// path behind SSV.OfRegex; the attack pattern catalogue is built from SSV
// combinators instead and does not go through it.
func OfRegex(r string) (*Automaton, error) {
	return OfRegexWithLimits(r, DefaultLimits())
}

// OfRegexWithLimits is OfRegex with explicit resource bounds.
func OfRegexWithLimits(r string, lim Limits) (*Automaton, error) {
	compiler := nfa.NewDefaultCompiler()
	n, err := compiler.Compile(r)
	if err != nil {
		return nil, err
	}
	return FromNFA(n, lim)
}

// FromNFA subset-constructs and bounds a minimized Automaton from a
// compiled Thompson NFA (package nfa). This is the one place the symbolic
// engine crosses from the retrieved automaton library's NFA representation
// into this package's DFA algebra: nfa.Compile builds the byte-range
// Thompson construction, FromNFA determinizes it — the retrieved library
// stops at lazy, on-demand DFA construction for matching and never exposes
// a minimal total acceptor, so that half is implemented here.
func FromNFA(n *nfa.NFA, lim Limits) (*Automaton, error) {
	g := &graph{nodes: make([]node, n.States())}
	for id := 0; id < n.States(); id++ {
		st := n.State(nfa.StateID(id))
		if st == nil {
			continue
		}
		switch st.Kind() {
		case nfa.StateMatch:
			g.nodes[id].accept = true
		case nfa.StateByteRange:
			lo, hi, next := st.ByteRange()
			g.nodes[id].trans = []Edge{{Lo: lo, Hi: hi, To: int(next)}}
		case nfa.StateSparse:
			for _, t := range st.Transitions() {
				g.nodes[id].trans = append(g.nodes[id].trans, Edge{Lo: t.Lo, Hi: t.Hi, To: int(t.Next)})
			}
		case nfa.StateSplit:
			l, r := st.Split()
			g.nodes[id].eps = []int{int(l), int(r)}
		case nfa.StateEpsilon:
			g.nodes[id].eps = []int{int(st.Epsilon())}
		case nfa.StateCapture:
			_, _, next := st.Capture()
			g.nodes[id].eps = []int{int(next)}
		case nfa.StateFail:
			// no transitions, not accepting: dead by construction.
		}
	}
	g.start = []int{int(n.StartAnchored())}
	a, err := determinizeGraph(g, lim)
	if err != nil {
		return nil, err
	}
	return a.Minimize(), nil
}

// quoteLiteral escapes s so that regexp/syntax treats it as a literal
// string; used by constructors that build a regex fragment programmatically.
func quoteLiteral(s string) string {
	return syntax.QuoteMeta(s)
}
