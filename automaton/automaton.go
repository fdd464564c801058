// Package automaton implements the deterministic finite acceptor layer that
// backs the symbolic string engine: construction from a Thompson NFA (see
// package nfa), minimization, and the regular-language algebra (union,
// intersection, complement, concatenation, equivalence) the analyzer needs.
//
// The alphabet is the extended ASCII byte range 0-255 (spec symbol alphabet).
// Every exported operation returns a minimized, completed-then-trimmed
// acceptor unless documented otherwise.
package automaton

import "fmt"

// Edge is a transition over an inclusive byte range [Lo, Hi] to state To.
// Edges within one state's Trans list are kept sorted and non-overlapping.
type Edge struct {
	Lo, Hi byte
	To     int
}

// State is one node of a deterministic acceptor.
type State struct {
	Trans  []Edge
	Accept bool
}

// Limits bounds the size of an acceptor produced by any operation in this
// package. Exceeding them yields a *ResourceExhaustedError.
type Limits struct {
	MaxStates      int
	MaxTransitions int
}

// DefaultLimits mirrors the bounds used throughout the analyzer unless a
// caller overrides them explicitly.
func DefaultLimits() Limits {
	return Limits{MaxStates: 20000, MaxTransitions: 200000}
}

// Automaton is an immutable deterministic finite acceptor over the byte
// alphabet. The zero value is not usable; construct one via the New*
// functions or the algebra functions in this package.
type Automaton struct {
	states []State
	start  int
}

// States returns the number of states in the acceptor (diagnostic use).
func (a *Automaton) States() int { return len(a.states) }

// Start returns the start state index (diagnostic use).
func (a *Automaton) Start() int { return a.start }

func (a *Automaton) totalTransitions() int {
	n := 0
	for _, s := range a.states {
		n += len(s.Trans)
	}
	return n
}

func checkLimits(a *Automaton, lim Limits) error {
	if len(a.states) > lim.MaxStates {
		return &ResourceExhaustedError{Kind: "states", Count: len(a.states), Limit: lim.MaxStates}
	}
	if n := a.totalTransitions(); n > lim.MaxTransitions {
		return &ResourceExhaustedError{Kind: "transitions", Count: n, Limit: lim.MaxTransitions}
	}
	return nil
}

// ResourceExhaustedError reports that an acceptor exceeded a configured
// state or transition bound (spec §4.1 ResourceExhausted).
type ResourceExhaustedError struct {
	Kind  string // "states" or "transitions"
	Count int
	Limit int
}

func (e *ResourceExhaustedError) Error() string {
	return fmt.Sprintf("automaton: resource exhausted: %d %s exceeds limit %d", e.Count, e.Kind, e.Limit)
}

// Empty returns the acceptor for the empty language.
func Empty() *Automaton {
	return &Automaton{states: []State{{Accept: false}}, start: 0}
}

// Epsilon returns the acceptor for the language containing only "".
func Epsilon() *Automaton {
	return &Automaton{states: []State{{Accept: true}}, start: 0}
}

// AnyString returns the acceptor for Sigma*.
func AnyString() *Automaton {
	return &Automaton{
		states: []State{{Accept: true, Trans: []Edge{{Lo: 0, Hi: 255, To: 0}}}},
		start:  0,
	}
}

// OfLiteral returns the acceptor for the single-string language {s}.
func OfLiteral(s string) *Automaton {
	states := make([]State, len(s)+1)
	for i := 0; i < len(s); i++ {
		states[i] = State{Trans: []Edge{{Lo: s[i], Hi: s[i], To: i + 1}}}
	}
	states[len(s)] = State{Accept: true}
	return &Automaton{states: states, start: 0}
}

// OfByteRange returns the acceptor for the one-symbol-word language made of
// the single bytes in [lo, hi].
func OfByteRange(lo, hi byte) *Automaton {
	return &Automaton{
		states: []State{
			{Trans: []Edge{{Lo: lo, Hi: hi, To: 1}}},
			{Accept: true},
		},
		start: 0,
	}
}

// clone makes a deep, independent copy (used before in-place surgery like
// completion so inputs are never mutated — Automaton values are immutable
// once returned from this package).
func (a *Automaton) clone() *Automaton {
	out := make([]State, len(a.states))
	for i, s := range a.states {
		trans := make([]Edge, len(s.Trans))
		copy(trans, s.Trans)
		out[i] = State{Trans: trans, Accept: s.Accept}
	}
	return &Automaton{states: out, start: a.start}
}
