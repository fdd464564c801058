package depgraph

import "sort"

// Edge is a plain (from, to) pair, used here only to record the back-edge
// set Condense attaches to each SCC (spec §4.3).
type Edge struct {
	From, To NodeId
}

// AcyclicGraph is the acyclic condensation of a Graph (spec §4.3
// "condense() -> AcyclicGraph — Tarjan SCCs, one node per SCC, back-edge
// set attached"). The analyzer walks this, not the raw Graph, so that
// cycles never defeat fixpoint control.
type AcyclicGraph struct {
	g         *Graph
	sccOf     map[NodeId]NodeId   // node -> representative
	members   map[NodeId][]NodeId // representative -> sorted members (incl. itself)
	backEdges map[NodeId][]Edge   // representative -> back edges internal to that SCC
}

// Representative returns the SCC representative for id.
func (a *AcyclicGraph) Representative(id NodeId) NodeId { return a.sccOf[id] }

// Members returns every node in the SCC represented by rep, sorted.
func (a *AcyclicGraph) Members(rep NodeId) []NodeId { return a.members[rep] }

// IsTrivial reports whether rep's SCC has exactly one member and no
// self-loop — i.e. it can be evaluated once, with no Kleene iteration.
func (a *AcyclicGraph) IsTrivial(rep NodeId) bool {
	return len(a.members[rep]) == 1 && len(a.backEdges[rep]) == 0
}

// BackEdges returns the edges internal to rep's SCC that close a cycle.
func (a *AcyclicGraph) BackEdges(rep NodeId) []Edge { return a.backEdges[rep] }

// Node delegates to the underlying Graph, so callers that already have an
// AcyclicGraph can still read node kind/op/children without holding onto
// the original Graph separately.
func (a *AcyclicGraph) Node(id NodeId) *Node { return a.g.Node(id) }

// Condense computes the Tarjan SCCs of g and returns the acyclic
// condensation (spec §4.3).
func (g *Graph) Condense() *AcyclicGraph {
	t := &tarjan{
		g:       g,
		index:   map[NodeId]int{},
		lowlink: map[NodeId]int{},
		onStack: map[NodeId]bool{},
	}
	for _, id := range g.order {
		if _, visited := t.index[id]; !visited {
			t.strongconnect(id)
		}
	}

	a := &AcyclicGraph{
		g:         g,
		sccOf:     map[NodeId]NodeId{},
		members:   map[NodeId][]NodeId{},
		backEdges: map[NodeId][]Edge{},
	}
	for _, scc := range t.sccs {
		sort.Slice(scc, func(i, j int) bool { return scc[i] < scc[j] })
		rep := scc[0]
		a.members[rep] = scc
		for _, m := range scc {
			a.sccOf[m] = rep
		}
	}
	for _, id := range g.order {
		rep := a.sccOf[id]
		n := g.nodes[id]
		for _, c := range n.Children {
			if a.sccOf[c] == rep {
				a.backEdges[rep] = append(a.backEdges[rep], Edge{From: c, To: id})
			}
		}
	}
	return a
}

// tarjan is a standard recursive Tarjan SCC computation over Graph.nodes
// (the "uninit -> ... -> sink" child-points-to-parent edge direction; a
// child's children is its own upstream dependencies).
type tarjan struct {
	g       *Graph
	counter int
	index   map[NodeId]int
	lowlink map[NodeId]int
	onStack map[NodeId]bool
	stack   []NodeId
	sccs    [][]NodeId
}

func (t *tarjan) strongconnect(v NodeId) {
	t.index[v] = t.counter
	t.lowlink[v] = t.counter
	t.counter++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, w := range t.g.nodes[v].Children {
		if _, visited := t.index[w]; !visited {
			t.strongconnect(w)
			if t.lowlink[w] < t.lowlink[v] {
				t.lowlink[v] = t.lowlink[w]
			}
		} else if t.onStack[w] {
			if t.index[w] < t.lowlink[v] {
				t.lowlink[v] = t.index[w]
			}
		}
	}

	if t.lowlink[v] == t.index[v] {
		var scc []NodeId
		for {
			n := len(t.stack) - 1
			w := t.stack[n]
			t.stack = t.stack[:n]
			t.onStack[w] = false
			scc = append(scc, w)
			if w == v {
				break
			}
		}
		t.sccs = append(t.sccs, scc)
	}
}

// TopologicalOrder returns the SCC representatives of acyclic in dependency
// order, leaves (nodes with no children, i.e. inputs/literals) first, with
// ties broken by representative NodeId (spec §4.3).
func TopologicalOrder(acyclic *AcyclicGraph) []NodeId {
	indegree := map[NodeId]int{}
	edgesTo := map[NodeId]map[NodeId]bool{}
	for rep := range acyclic.members {
		indegree[rep] = 0
	}
	for _, id := range acyclic.g.order {
		rep := acyclic.sccOf[id]
		for _, c := range acyclic.g.nodes[id].Children {
			crep := acyclic.sccOf[c]
			if crep == rep {
				continue // internal SCC edge, not part of the condensed DAG
			}
			if edgesTo[crep] == nil {
				edgesTo[crep] = map[NodeId]bool{}
			}
			if !edgesTo[crep][rep] {
				edgesTo[crep][rep] = true
				indegree[rep]++
			}
		}
	}

	var ready []NodeId
	for rep, d := range indegree {
		if d == 0 {
			ready = append(ready, rep)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })

	var out []NodeId
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })
		cur := ready[0]
		ready = ready[1:]
		out = append(out, cur)
		for rep := range edgesTo[cur] {
			indegree[rep]--
			if indegree[rep] == 0 {
				ready = append(ready, rep)
			}
		}
	}
	return out
}
