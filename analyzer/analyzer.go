// Package analyzer implements the symbolic fixpoint analyzer (C5): the
// four analysis modes spec §4.5 names, walking the acyclic condensation of
// a DepGraph (package depgraph) in topological order and delegating
// per-node transfer functions to the operation registry (package
// registry). Configured with functional options the way the retrieved
// NFA builder configures its Build call (nfa.BuildOption).
package analyzer

import (
	"fmt"

	"github.com/christiankrug/sanitizer-checker/automaton"
	"github.com/christiankrug/sanitizer-checker/depgraph"
	"github.com/christiankrug/sanitizer-checker/errkind"
	"github.com/christiankrug/sanitizer-checker/metrics"
	"github.com/christiankrug/sanitizer-checker/registry"
	"github.com/christiankrug/sanitizer-checker/resulttable"
	"github.com/christiankrug/sanitizer-checker/ssv"
)

// maxSCCIterations bounds the Kleene iteration spec §4.5 requires for any
// strongly-connected component before widening kicks in. Unnumbered in the
// spec ("the iteration bound"); chosen generously since each iteration is
// cheap relative to one DFA minimization and cycles in real DepGraphs are
// shallow (loop concatenation, not deep recursion).
const maxSCCIterations = 64

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithCollector injects a metrics.StageCollector (spec §9: "implement as
// an injected collector... not as ambient state"). The default is
// metrics.NoopCollector{}.
func WithCollector(c metrics.StageCollector) Option {
	return func(a *Analyzer) { a.collector = c }
}

// Analyzer runs the four analysis modes over a single DepGraph.
type Analyzer struct {
	collector metrics.StageCollector
}

// New returns an Analyzer configured by opts.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{collector: metrics.NoopCollector{}}
	for _, o := range opts {
		o(a)
	}
	return a
}

// ForwardImage evaluates every node of g in topological order, returning
// the frozen result table and the sink's post-image (spec §4.5 mode 1).
// initial supplies starting SSVs for uninit input nodes named by input
// name; any input not present defaults to any_string().
func (a *Analyzer) ForwardImage(g *depgraph.Graph, initial map[string]ssv.SSV) (*resulttable.Table, ssv.SSV, error) {
	end := a.collector.Begin("forward")
	defer end()

	acyclic := g.Condense()
	order := depgraph.TopologicalOrder(acyclic)
	table := resulttable.New()

	for _, rep := range order {
		if err := a.evalForwardSCC(acyclic, rep, table, initial); err != nil {
			return nil, ssv.SSV{}, err
		}
	}
	table.Freeze()

	sinkID, ok := g.Sink()
	if !ok {
		return table, ssv.AnyString(), nil
	}
	post, ok := table.Get(sinkID)
	if !ok {
		return table, ssv.AnyString(), nil
	}
	return table, post, nil
}

func (a *Analyzer) evalForwardSCC(acyclic *depgraph.AcyclicGraph, rep depgraph.NodeId, table *resulttable.Table, initial map[string]ssv.SSV) error {
	if acyclic.IsTrivial(rep) {
		v, err := a.evalForwardNode(acyclic, rep, table, initial)
		if err != nil {
			return err
		}
		table.Set(rep, v)
		return nil
	}

	// Seeded at epsilon(), not empty(): a self-referential operation like
	// concat(n, "a") has concat's own empty()-absorbing behavior as its
	// only fixpoint if the iteration starts at empty() (concat(empty(),
	// anything) is always empty()), which is a degenerate least fixpoint
	// that never reflects what the loop it models actually produces.
	// epsilon() is concat's identity element, so the first iteration
	// already advances toward the true answer (spec §8 scenario 6: "n =
	// concat(n, a) starting from epsilon").
	members := acyclic.Members(rep)
	for _, m := range members {
		table.Set(m, ssv.Epsilon())
	}

	var prev ssv.SSV
	fixed := false
	for iter := 0; iter < maxSCCIterations; iter++ {
		for _, m := range members {
			v, err := a.evalForwardNode(acyclic, m, table, initial)
			if err != nil {
				return err
			}
			table.Set(m, v)
		}
		cur, _ := table.Get(rep)
		if iter > 0 && ssv.Equals(prev, cur) {
			fixed = true
			break
		}
		prev = cur
	}
	if !fixed {
		widen, err := alphabetStar(table, members)
		if err != nil {
			return err
		}
		for _, m := range members {
			v, _ := table.Get(m)
			u, err := ssv.Union(v, widen)
			if err != nil {
				return err
			}
			table.Set(m, u.Approximate())
		}
	}
	return nil
}

func (a *Analyzer) evalForwardNode(acyclic *depgraph.AcyclicGraph, id depgraph.NodeId, table *resulttable.Table, initial map[string]ssv.SSV) (ssv.SSV, error) {
	n := acyclic.Node(id)
	switch n.Kind {
	case depgraph.KindInput:
		if v, ok := initial[n.Name]; ok {
			return v, nil
		}
		return ssv.AnyString(), nil
	case depgraph.KindLiteral:
		return ssv.OfLiteral(n.Literal), nil
	case depgraph.KindSink:
		if len(n.Children) == 0 {
			return ssv.AnyString(), nil
		}
		v, ok := table.Get(n.Children[0])
		if !ok {
			return ssv.Empty(), nil
		}
		return v, nil
	case depgraph.KindOperation:
		children := make([]ssv.SSV, len(n.Children))
		for i, c := range n.Children {
			v, ok := table.Get(c)
			if !ok {
				v = ssv.Empty()
			}
			children[i] = v
		}
		v, err := registry.Apply(n.Op, children)
		if err != nil {
			return ssv.SSV{}, annotate(err, string(id))
		}
		return v, nil
	default:
		return ssv.SSV{}, errkind.New(errkind.InternalInvariant, "", fmt.Errorf("node %q has unknown kind", id))
	}
}

func annotate(err error, nodeID string) error {
	if ae, ok := err.(*errkind.AnalysisError); ok && ae.File == "" {
		ae.File = nodeID
		return ae
	}
	return err
}

// alphabetStar builds the widening term for spec §4.5's "union with
// any_string() restricted to the reachable alphabet": the union of every
// byte appearing on any transition of members' current (pre-widening)
// automata, repeated via Kleene star so the widened value remains a safe
// superset of however many more iterations would have added.
func alphabetStar(table *resulttable.Table, members []depgraph.NodeId) (ssv.SSV, error) {
	seen := make([]bool, 256)
	any := false
	for _, id := range members {
		v, ok := table.Get(id)
		if !ok {
			continue
		}
		a := v.Automaton()
		for s := 0; s < a.States(); s++ {
			for _, e := range automaton.StateEdges(a, s) {
				for b := int(e.Lo); b <= int(e.Hi); b++ {
					seen[b] = true
					any = true
				}
			}
		}
	}
	if !any {
		for b := range seen {
			seen[b] = true
		}
	}
	u, err := rangeUnion(seen)
	if err != nil {
		return ssv.SSV{}, err
	}
	return ssv.Star(u)
}

func rangeUnion(seen []bool) (ssv.SSV, error) {
	result := ssv.Empty()
	i := 0
	for i < 256 {
		if !seen[i] {
			i++
			continue
		}
		j := i
		for j < 256 && seen[j] {
			j++
		}
		u, err := ssv.Union(result, ssv.OfCharRange(byte(i), byte(j-1)))
		if err != nil {
			return ssv.SSV{}, err
		}
		result = u
		i = j
	}
	return result, nil
}
