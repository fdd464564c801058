// Package depgraph implements the DepGraph Model (C3): an in-memory typed
// graph of input, literal, operation and sink nodes, with SCC condensation
// and topological ordering for the fixpoint analyzer to walk.
package depgraph

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/christiankrug/sanitizer-checker/errkind"
	"github.com/christiankrug/sanitizer-checker/internal/dotgraph"
)

// NodeId is the stable identifier of a DepGraph node: the id the node
// carried in its source .dot file. Node ids are compared lexicographically
// as the topological sort's tie-breaker (spec §4.3).
type NodeId string

// Kind is the closed set of DepGraph node kinds (spec §3, §9: "best
// modeled as a tagged variant... avoid inheritance hierarchies").
type Kind int

const (
	KindInput Kind = iota
	KindLiteral
	KindOperation
	KindSink
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindLiteral:
		return "literal"
	case KindOperation:
		return "operation"
	case KindSink:
		return "sink"
	default:
		return "unknown"
	}
}

// Node is a single DepGraph node. Only the fields relevant to its Kind are
// populated: Name for input nodes, Literal for literal nodes, Op (plus
// Children, in child-edge-index order) for operation nodes.
type Node struct {
	ID       NodeId
	Kind     Kind
	Name     string
	Literal  string
	Op       string
	Children []NodeId
}

// Graph is the parsed, typed DepGraph (spec §3).
type Graph struct {
	nodes map[NodeId]*Node
	order []NodeId // file order, for deterministic iteration before any sort
	sink  NodeId
}

// Parse reads a .dot file at path and builds the typed Graph (spec §4.3
// "parse(file) -> DepGraph", delegated here to internal/dotgraph for the
// lexical layer).
func Parse(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errkind.New(errkind.ParseError, path, fmt.Errorf("depgraph: %w", err))
	}
	defer f.Close()

	raw, err := dotgraph.Parse(f)
	if err != nil {
		return nil, errkind.New(errkind.ParseError, path, fmt.Errorf("depgraph: %w", err))
	}
	g, err := build(raw)
	if err != nil {
		return nil, errkind.New(errkind.ParseError, path, err)
	}
	return g, nil
}

func build(raw *dotgraph.Raw) (*Graph, error) {
	g := &Graph{nodes: make(map[NodeId]*Node, len(raw.Nodes))}
	for _, n := range raw.Nodes {
		id := NodeId(n.ID)
		node, err := classify(id, n.Label)
		if err != nil {
			return nil, err
		}
		g.nodes[id] = node
		g.order = append(g.order, id)
		if node.Kind == KindSink {
			g.sink = id
		}
	}

	childEdges := make(map[NodeId][]dotgraph.Edge)
	for _, e := range raw.Edges {
		if _, ok := g.nodes[NodeId(e.From)]; !ok {
			return nil, fmt.Errorf("depgraph: edge references unknown node %q", e.From)
		}
		parent := NodeId(e.To)
		if _, ok := g.nodes[parent]; !ok {
			return nil, fmt.Errorf("depgraph: edge references unknown node %q", e.To)
		}
		childEdges[parent] = append(childEdges[parent], e)
	}
	for parent, edges := range childEdges {
		sort.SliceStable(edges, func(i, j int) bool { return edges[i].Index < edges[j].Index })
		node := g.nodes[parent]
		for _, e := range edges {
			node.Children = append(node.Children, NodeId(e.From))
		}
	}
	return g, nil
}

// classify turns a raw label into a typed Node. Label grammar (this
// reader's own, since the format is an external-collaborator concern spec
// leaves unspecified — see DESIGN.md): "input:<name>", "literal:<value>",
// "op:<name>", or "sink".
func classify(id NodeId, label string) (*Node, error) {
	switch {
	case label == "sink":
		return &Node{ID: id, Kind: KindSink}, nil
	case strings.HasPrefix(label, "input:"):
		return &Node{ID: id, Kind: KindInput, Name: strings.TrimPrefix(label, "input:")}, nil
	case strings.HasPrefix(label, "literal:"):
		return &Node{ID: id, Kind: KindLiteral, Literal: strings.TrimPrefix(label, "literal:")}, nil
	case strings.HasPrefix(label, "op:"):
		return &Node{ID: id, Kind: KindOperation, Op: strings.TrimPrefix(label, "op:")}, nil
	default:
		return nil, fmt.Errorf("depgraph: node %q has unrecognized label %q", id, label)
	}
}

// Node returns the node with the given id, or nil if absent.
func (g *Graph) Node(id NodeId) *Node { return g.nodes[id] }

// Sink returns the graph's distinguished sink marker node id, and false if
// the graph has none.
func (g *Graph) Sink() (NodeId, bool) {
	if g.sink == "" {
		return "", false
	}
	return g.sink, true
}

// FindInput returns the input node named name, and false if none exists
// (spec §4.3 "find_input(name) -> NodeId | NotFound").
func (g *Graph) FindInput(name string) (NodeId, bool) {
	for _, id := range g.order {
		n := g.nodes[id]
		if n.Kind == KindInput && n.Name == name {
			return id, true
		}
	}
	return "", false
}

// UninitNodes returns the input nodes with no upstream definition — by
// construction every input node, since inputs are always leaves (spec
// §4.3 "inputs with no upstream definition").
func (g *Graph) UninitNodes() []NodeId {
	var out []NodeId
	for _, id := range g.order {
		if g.nodes[id].Kind == KindInput {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ProjectOnInput returns the sub-graph that transitively reaches or is
// reached by id, preserving child order and edge multiplicity (spec §4.3).
func (g *Graph) ProjectOnInput(id NodeId) *Graph {
	keep := map[NodeId]bool{}
	g.markReachableFrom(id, keep, true) // downstream: id -> ... -> sink
	up := map[NodeId]bool{}
	g.markReachableFrom(id, up, false) // upstream: id's own ancestry, if any
	for nid := range up {
		keep[nid] = true
	}
	out :=&Graph{nodes: make(map[NodeId]*Node, len(keep)), sink: g.sink}
	for _, nid := range g.order {
		if !keep[nid] {
			continue
		}
		n := *g.nodes[nid]
		var kept []NodeId
		for _, c := range n.Children {
			if keep[c] {
				kept = append(kept, c)
			}
		}
		n.Children = kept
		out.nodes[nid] = &n
		out.order = append(out.order, nid)
	}
	if !keep[g.sink] {
		out.sink = ""
	}
	return out
}

func (g *Graph) markReachableFrom(id NodeId, keep map[NodeId]bool, downstream bool) {
	if keep[id] {
		return
	}
	keep[id] = true
	if downstream {
		for _, nid := range g.order {
			n := g.nodes[nid]
			for _, c := range n.Children {
				if c == id {
					g.markReachableFrom(nid, keep, downstream)
				}
			}
		}
		return
	}
	if n, ok := g.nodes[id]; ok {
		for _, c := range n.Children {
			g.markReachableFrom(c, keep, downstream)
		}
	}
}

// Nodes returns every node id in file order.
func (g *Graph) Nodes() []NodeId {
	out := make([]NodeId, len(g.order))
	copy(out, g.order)
	return out
}
