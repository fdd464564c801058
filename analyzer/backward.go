package analyzer

import (
	"fmt"

	"github.com/christiankrug/sanitizer-checker/depgraph"
	"github.com/christiankrug/sanitizer-checker/errkind"
	"github.com/christiankrug/sanitizer-checker/registry"
	"github.com/christiankrug/sanitizer-checker/resulttable"
	"github.com/christiankrug/sanitizer-checker/ssv"
)

// BackwardImage propagates sink constraint c backward through g given a
// completed forward pass (spec §4.5 mode 2). Returns a table mapping every
// node to its current constraint; the pre-image for a given input node is
// read back from it by the caller via NodeId. Nodes with no computed
// constraint default to any_string() — an unconstrained node places no
// restriction on what reaches it.
func (a *Analyzer) BackwardImage(g *depgraph.Graph, c ssv.SSV, forward *resulttable.Table) (*resulttable.Table, error) {
	end := a.collector.Begin("backward")
	defer end()

	acyclic := g.Condense()
	order := depgraph.TopologicalOrder(acyclic)
	constraints := resulttable.New()

	sinkID, ok := g.Sink()
	if ok {
		constraints.Set(sinkID, c)
	}

	for i := len(order) - 1; i >= 0; i-- {
		if err := a.evalBackwardSCC(acyclic, order[i], constraints, forward); err != nil {
			return nil, err
		}
	}
	constraints.Freeze()
	return constraints, nil
}

func (a *Analyzer) evalBackwardSCC(acyclic *depgraph.AcyclicGraph, rep depgraph.NodeId, constraints, forward *resulttable.Table) error {
	if acyclic.IsTrivial(rep) {
		return a.propagateBackward(acyclic, rep, constraints, forward)
	}

	members := acyclic.Members(rep)
	var prev ssv.SSV
	fixed := false
	for iter := 0; iter < maxSCCIterations; iter++ {
		for _, m := range members {
			if err := a.propagateBackward(acyclic, m, constraints, forward); err != nil {
				return err
			}
		}
		cur, _ := constraints.Get(rep)
		if iter > 0 && ssv.Equals(prev, cur) {
			fixed = true
			break
		}
		prev = cur
	}
	if !fixed {
		widen, err := alphabetStar(constraints, members)
		if err != nil {
			return err
		}
		for _, m := range members {
			v, ok := constraints.Get(m)
			if !ok {
				v = ssv.AnyString()
			}
			u, err := ssv.Union(v, widen)
			if err != nil {
				return err
			}
			constraints.Set(m, u.Approximate())
		}
	}
	return nil
}

// propagateBackward computes id's own current constraint's effect on each
// of its children and intersects it into their running constraint. Input
// and literal nodes have no children and are left as-is; their own
// constraint was already set either as the sink seed or by an ancestor's
// propagation.
func (a *Analyzer) propagateBackward(acyclic *depgraph.AcyclicGraph, id depgraph.NodeId, constraints, forward *resulttable.Table) error {
	n := acyclic.Node(id)
	if n.Kind != depgraph.KindOperation && n.Kind != depgraph.KindSink {
		return nil
	}
	parent, ok := constraints.Get(id)
	if !ok {
		parent = ssv.AnyString()
	}
	if n.Kind == depgraph.KindSink {
		if len(n.Children) == 1 {
			if err := intersectInto(constraints, n.Children[0], parent); err != nil {
				return annotate(err, string(id))
			}
		}
		return nil
	}

	childForward := make([]ssv.SSV, len(n.Children))
	for i, c := range n.Children {
		v, ok := forward.Get(c)
		if !ok {
			v = ssv.AnyString()
		}
		childForward[i] = v
	}

	d, ok := registry.Lookup(n.Op)
	if !ok {
		return nil // UnsupportedOp already surfaced during the forward pass
	}
	for i, c := range n.Children {
		newC, err := d.Bwd(parent, childForward, i)
		if err != nil {
			return annotate(err, string(id))
		}
		if err := intersectInto(constraints, c, newC); err != nil {
			return annotate(err, string(id))
		}
	}
	return nil
}

func intersectInto(constraints *resulttable.Table, id depgraph.NodeId, v ssv.SSV) error {
	if existing, ok := constraints.Get(id); ok {
		narrowed, err := ssv.Intersect(existing, v)
		if err != nil {
			return err
		}
		v = narrowed
	}
	constraints.Set(id, v)
	return nil
}

// ValidationPatch computes the negative validation patch (spec §4.5 mode
// 3): a backward pass seeded with empty() at the sink (reject everything),
// whose complement per input node is "what the program's existing
// validation currently lets through that it should not".
func (a *Analyzer) ValidationPatch(g *depgraph.Graph, forward *resulttable.Table) (map[depgraph.NodeId]ssv.SSV, error) {
	constraints, err := a.BackwardImage(g, ssv.Empty(), forward)
	if err != nil {
		return nil, err
	}
	out := map[depgraph.NodeId]ssv.SSV{}
	for _, id := range g.UninitNodes() {
		accepted, ok := constraints.Get(id)
		if !ok {
			accepted = ssv.Empty()
		}
		out[id] = ssv.Complement(accepted)
	}
	return out, nil
}

// SanitizationDiff runs two forward passes — over a patcher graph and a
// patchee graph whose named input is seeded with the patcher's validation
// patch — and returns the set-difference of their post-images: strings the
// patchee's sanitizer now admits that the patcher's does not (spec §4.5
// mode 4).
func (a *Analyzer) SanitizationDiff(patcher, patchee *depgraph.Graph, patcheeInput string) (ssv.SSV, error) {
	if _, ok := patchee.FindInput(patcheeInput); !ok {
		return ssv.SSV{}, errkind.New(errkind.InputNotFound, "",
			fmt.Errorf("input %q not found in patchee graph", patcheeInput))
	}
	_, patcherPost, err := a.ForwardImage(patcher, nil)
	if err != nil {
		return ssv.SSV{}, err
	}
	patcherForward, err := a.forwardTableOnly(patcher, nil)
	if err != nil {
		return ssv.SSV{}, err
	}
	patch, err := a.ValidationPatch(patcher, patcherForward)
	if err != nil {
		return ssv.SSV{}, err
	}
	var seed ssv.SSV
	if id, ok := patcher.FindInput(patcheeInput); ok {
		if v, ok := patch[id]; ok {
			seed = v
		}
	}
	if seed.Automaton() == nil {
		seed = ssv.AnyString()
	}

	// The patcher's own uninit inputs default to any_string() (ForwardImage's
	// ordinary default: an unconstrained input places no restriction on the
	// sink). The patchee's uninit inputs other than patcheeInput default to
	// epsilon() instead — spec §9's open question records the source doing
	// exactly this and leaving the rationale undocumented; epsilon() is kept
	// here because it is the narrower, more conservative seed: any genuine
	// difference the patchee's *own* sanitizer introduces around patcheeInput
	// should show up in the diff without an unrelated uninit input widening
	// the patchee's post-image into Σ* and manufacturing one.
	patcheeInitial := map[string]ssv.SSV{patcheeInput: seed}
	for _, id := range patchee.UninitNodes() {
		name := patchee.Node(id).Name
		if name == patcheeInput {
			continue
		}
		patcheeInitial[name] = ssv.Epsilon()
	}

	_, patcheePost, err := a.ForwardImage(patchee, patcheeInitial)
	if err != nil {
		return ssv.SSV{}, err
	}
	return ssv.Intersect(patcheePost, ssv.Complement(patcherPost))
}

func (a *Analyzer) forwardTableOnly(g *depgraph.Graph, initial map[string]ssv.SSV) (*resulttable.Table, error) {
	table, _, err := a.ForwardImage(g, initial)
	return table, err
}
