package depgraph

import (
	"os"
	"path/filepath"
	"testing"
)

func writeDot(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.dot")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestParseSimpleChain(t *testing.T) {
	path := writeDot(t, `
digraph g {
  n1 [label="input:user_input"];
  n2 [label="op:html_escape"];
  n3 [label="sink"];
  n1 -> n2 [index=0];
  n2 -> n3;
}
`)
	g, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if len(g.Nodes()) != 3 {
		t.Fatalf("Nodes() len = %d, want 3", len(g.Nodes()))
	}
	in, ok := g.FindInput("user_input")
	if !ok {
		t.Fatalf("FindInput(user_input) not found")
	}
	if g.Node(in).Kind != KindInput {
		t.Errorf("node %s Kind = %v, want KindInput", in, g.Node(in).Kind)
	}
	op := g.Node("n2")
	if op.Kind != KindOperation || op.Op != "html_escape" {
		t.Errorf("n2 = %+v, want op:html_escape", op)
	}
	if len(op.Children) != 1 || op.Children[0] != "n1" {
		t.Errorf("n2.Children = %v, want [n1]", op.Children)
	}
	sink, ok := g.Sink()
	if !ok || sink != "n3" {
		t.Errorf("Sink() = (%s, %v), want (n3, true)", sink, ok)
	}
}

func TestParseUnrecognizedLabel(t *testing.T) {
	path := writeDot(t, `
digraph g {
  n1 [label="mystery:thing"];
}
`)
	if _, err := Parse(path); err == nil {
		t.Fatalf("Parse should fail on an unrecognized label")
	}
}

func TestParseMissingFile(t *testing.T) {
	if _, err := Parse(filepath.Join(t.TempDir(), "nope.dot")); err == nil {
		t.Fatalf("Parse should fail for a nonexistent file")
	}
}

func TestFindInputNotFound(t *testing.T) {
	path := writeDot(t, `
digraph g {
  n1 [label="input:x"];
  n2 [label="sink"];
  n1 -> n2;
}
`)
	g, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if _, ok := g.FindInput("not_here"); ok {
		t.Fatalf("FindInput(not_here) ok = true, want false")
	}
}

func TestCondenseAcyclic(t *testing.T) {
	path := writeDot(t, `
digraph g {
  n1 [label="input:x"];
  n2 [label="op:to_upper"];
  n3 [label="sink"];
  n1 -> n2 [index=0];
  n2 -> n3;
}
`)
	g, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	acyclic := g.Condense()
	for _, id := range g.Nodes() {
		if !acyclic.IsTrivial(acyclic.Representative(id)) {
			t.Errorf("node %s should be in a trivial (acyclic) SCC", id)
		}
	}
	order := TopologicalOrder(acyclic)
	if len(order) != 3 {
		t.Fatalf("TopologicalOrder len = %d, want 3", len(order))
	}
	pos := map[NodeId]int{}
	for i, id := range order {
		pos[id] = i
	}
	if pos["n1"] > pos["n2"] || pos["n2"] > pos["n3"] {
		t.Errorf("TopologicalOrder = %v, want n1 before n2 before n3", order)
	}
}

func TestCondenseCycle(t *testing.T) {
	// n2 = concat(n2, "a") — a self-referential operation node, the
	// minimal cyclic DepGraph shape.
	path := writeDot(t, `
digraph g {
  n1 [label="literal:a"];
  n2 [label="op:concat"];
  n3 [label="sink"];
  n2 -> n2 [index=0];
  n1 -> n2 [index=1];
  n2 -> n3;
}
`)
	g, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	acyclic := g.Condense()
	rep := acyclic.Representative("n2")
	if acyclic.IsTrivial(rep) {
		t.Fatalf("n2's self-loop SCC should not be trivial")
	}
	if len(acyclic.BackEdges(rep)) == 0 {
		t.Fatalf("n2's SCC should carry a back edge")
	}
	order := TopologicalOrder(acyclic)
	if len(order) != 3 {
		t.Fatalf("TopologicalOrder len = %d, want 3 (one representative per SCC: n1, n2, n3)", len(order))
	}
	pos := map[NodeId]int{}
	for i, id := range order {
		pos[id] = i
	}
	if pos["n1"] > pos["n2"] || pos["n2"] > pos["n3"] {
		t.Errorf("TopologicalOrder = %v, want n1 before n2 before n3", order)
	}
}

func TestUninitNodes(t *testing.T) {
	path := writeDot(t, `
digraph g {
  a [label="input:first"];
  b [label="input:second"];
  s [label="sink"];
  a -> s [index=0];
  b -> s [index=1];
}
`)
	g, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	got := g.UninitNodes()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("UninitNodes() = %v, want [a b]", got)
	}
}

func TestProjectOnInput(t *testing.T) {
	path := writeDot(t, `
digraph g {
  a [label="input:used"];
  b [label="input:unused"];
  op [label="op:to_upper"];
  s [label="sink"];
  a -> op [index=0];
  op -> s;
  b -> s [index=1];
}
`)
	g, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	in, _ := g.FindInput("used")
	proj := g.ProjectOnInput(in)
	if proj.Node("b") != nil {
		t.Errorf("ProjectOnInput(used) should not retain the unrelated input b")
	}
	if proj.Node("op") == nil || proj.Node("s") == nil {
		t.Errorf("ProjectOnInput(used) should retain op and the sink")
	}
}
