// Package ssv implements the Symbolic String Value (C1): an immutable
// handle to a regular language, backed by package automaton, with the
// string-semantic constructors and combinators the fixpoint analyzer needs.
package ssv

import (
	"github.com/christiankrug/sanitizer-checker/automaton"
)

// SSV is an immutable regular-language value. The zero value is not usable;
// build one via the constructors in this package.
type SSV struct {
	dfa  *automaton.Automaton
	// tag attributes an intermediate result to the DepGraph node it came
	// from for diagnostics only; it is never part of equivalence (spec §3).
	tag string
	// approx marks a backward-image result that is a sound
	// over-approximation rather than the exact pre-image (spec §4.1).
	approx bool
}

func wrap(a *automaton.Automaton) SSV { return SSV{dfa: a} }

// Empty returns the SSV for the empty language.
func Empty() SSV { return wrap(automaton.Empty()) }

// Epsilon returns the SSV for {""}.
func Epsilon() SSV { return wrap(automaton.Epsilon()) }

// AnyString returns the SSV for Sigma*.
func AnyString() SSV { return wrap(automaton.AnyString()) }

// OfLiteral returns the SSV for {s}.
func OfLiteral(s string) SSV { return wrap(automaton.OfLiteral(s)) }

// OfCharRange returns the SSV for the one-symbol-word language over [lo,hi].
func OfCharRange(lo, hi byte) SSV { return wrap(automaton.OfByteRange(lo, hi)) }

// OfRegex compiles r (regexp/syntax grammar) into an SSV.
func OfRegex(r string) (SSV, error) {
	a, err := automaton.OfRegex(r)
	if err != nil {
		return SSV{}, err
	}
	return wrap(a), nil
}

// WithTag returns a copy of v tagged with the given source-node id. The tag
// never participates in Equals/Fingerprint.
func (v SSV) WithTag(tag string) SSV {
	v.tag = tag
	return v
}

// Tag returns the source-node tag, or "" if untagged.
func (v SSV) Tag() string { return v.tag }

// Approximate marks v as a sound over-approximation of a true backward
// image (spec §4.1: "the analyzer is allowed to use approximate results but
// must not claim exactness").
func (v SSV) Approximate() SSV {
	v.approx = true
	return v
}

// IsApproximate reports whether v is known to be an over-approximation.
func (v SSV) IsApproximate() bool { return v.approx }

func approxOf(results ...SSV) bool {
	for _, r := range results {
		if r.approx {
			return true
		}
	}
	return false
}

// Union returns L(a) ∪ L(b), or a ResourceExhausted error if the product
// construction exceeds the configured size bounds (spec §5/§7): the caller
// must fail the enclosing job rather than paper over the overflow.
func Union(a, b SSV) (SSV, error) {
	d, err := automaton.Union(a.dfa, b.dfa)
	if err != nil {
		return SSV{}, err
	}
	r := wrap(d)
	r.approx = approxOf(a, b)
	return r, nil
}

// Intersect returns L(a) ∩ L(b), or a ResourceExhausted error (see Union).
func Intersect(a, b SSV) (SSV, error) {
	d, err := automaton.Intersect(a.dfa, b.dfa)
	if err != nil {
		return SSV{}, err
	}
	r := wrap(d)
	r.approx = approxOf(a, b)
	return r, nil
}

// Complement returns Sigma* \ L(a).
func Complement(a SSV) SSV {
	r := wrap(automaton.Complement(a.dfa))
	r.approx = a.approx
	return r
}

// Concat returns {xy : x in L(a), y in L(b)}, or a ResourceExhausted error
// (see Union).
func Concat(a, b SSV) (SSV, error) {
	d, err := automaton.Concat(a.dfa, b.dfa)
	if err != nil {
		return SSV{}, err
	}
	r := wrap(d)
	r.approx = approxOf(a, b)
	return r, nil
}

// Star returns L(a)*, the language of zero or more concatenations of
// strings drawn from L(a), or a ResourceExhausted error (see Union).
func Star(a SSV) (SSV, error) {
	d, err := automaton.Star(a.dfa)
	if err != nil {
		return SSV{}, err
	}
	r := wrap(d)
	r.approx = a.approx
	return r, nil
}

// Must panics if err is non-nil, otherwise returns v. For use only where the
// operands are fixed, process-global, bounded-by-construction data — the
// catalogue's pattern literals, never attacker-influenced DepGraph values —
// so a ResourceExhausted here would itself be a programming error, the same
// convention regexp.MustCompile and template.Must use for fixed inputs.
func Must(v SSV, err error) SSV {
	if err != nil {
		panic(err)
	}
	return v
}

// Equals reports L(a) = L(b); reflexive, symmetric, transitive.
func Equals(a, b SSV) bool { return automaton.Equals(a.dfa, b.dfa) }

// Contains reports L(b) ⊆ L(a).
func Contains(a, b SSV) bool { return automaton.Contains(a.dfa, b.dfa) }

// IsEmpty reports L(a) = ∅.
func IsEmpty(a SSV) bool { return automaton.IsEmpty(a.dfa) }

// IsSingleton reports whether L(a) = {s} for some unique s, returning it.
func IsSingleton(a SSV) (string, bool) { return automaton.IsSingleton(a.dfa) }

// Fingerprint returns a to v's content-addressed hash (spec §3); an
// equality check is still required to resolve collisions.
func (v SSV) Fingerprint() uint64 { return v.dfa.Fingerprint() }

// Automaton exposes the underlying acceptor for packages (registry,
// catalogue) that need to build new SSVs with automaton-level primitives
// not otherwise exposed here (homomorphism image/preimage, length
// restriction, trimming).
func (v SSV) Automaton() *automaton.Automaton { return v.dfa }

// FromAutomaton wraps a raw acceptor as an SSV (used by registry transfer
// functions after automaton-level surgery).
func FromAutomaton(a *automaton.Automaton) SSV { return wrap(a) }

// SampleString returns an arbitrary string accepted by v, or "" and false
// if v is empty. Used by the reporter to produce overlap samples (spec §6).
func (v SSV) SampleString() (string, bool) {
	return sampleFrom(v.dfa)
}
