package analyzer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/christiankrug/sanitizer-checker/catalogue"
	"github.com/christiankrug/sanitizer-checker/depgraph"
	"github.com/christiankrug/sanitizer-checker/ssv"
)

func parseGraph(t *testing.T, body string) *depgraph.Graph {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.dot")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	g, err := depgraph.Parse(path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return g
}

// Scenario 1: sink = input directly. The post-image is Sigma*, which
// overlaps the HTML attack pattern (e.g. a sample containing "<").
func TestForwardImage_UnsanitizedInputOverlapsHTMLAttack(t *testing.T) {
	g := parseGraph(t, `
digraph g {
  in [label="input:user_input"];
  s [label="sink"];
  in -> s;
}
`)
	a := New()
	_, post, err := a.ForwardImage(g, nil)
	if err != nil {
		t.Fatalf("ForwardImage error: %v", err)
	}
	attack, _ := catalogue.PatternFor(catalogue.HTML)
	overlap := ssv.Must(ssv.Intersect(post, attack))
	if ssv.IsEmpty(overlap) {
		t.Fatalf("unsanitized input should overlap the HTML attack pattern")
	}
	sample, ok := overlap.SampleString()
	if !ok {
		t.Fatalf("overlap should produce a sample")
	}
	// every string in the HTML attack language contains at least one
	// forbidden byte or a malformed '&' — the shortest ones are single
	// bytes such as "<".
	if sample == "" {
		t.Errorf("expected a non-empty overlap sample, got empty string")
	}
}

// Scenario 2: sink = htmlspecialchars(input). The post-image must be
// contained in HTML_ESCAPED and must not overlap the HTML attack pattern.
func TestForwardImage_HtmlspecialcharsEliminatesHTMLOverlap(t *testing.T) {
	g := parseGraph(t, `
digraph g {
  in [label="input:user_input"];
  op [label="op:htmlspecialchars"];
  s [label="sink"];
  in -> op [index=0];
  op -> s;
}
`)
	a := New()
	_, post, err := a.ForwardImage(g, nil)
	if err != nil {
		t.Fatalf("ForwardImage error: %v", err)
	}
	escaped, _ := catalogue.Comparator("HTML_ESCAPED")
	if !ssv.Contains(escaped, post) {
		t.Fatalf("htmlspecialchars(input) post-image should be contained in HTML_ESCAPED")
	}
	attack, _ := catalogue.PatternFor(catalogue.HTML)
	if !ssv.IsEmpty(ssv.Must(ssv.Intersect(post, attack))) {
		t.Fatalf("htmlspecialchars(input) post-image should not overlap the HTML attack pattern")
	}
}

// Scenario 3: sink = concat("pre-", input, "-post"). Backward from a
// constraint mentioning "<script>" should exactly quotient away the known
// literal neighbors.
func TestBackwardImage_ConcatLiteralNeighborsExact(t *testing.T) {
	g := parseGraph(t, `
digraph g {
  pre [label="literal:pre-"];
  in [label="input:user_input"];
  post [label="literal:-post"];
  op [label="op:concat"];
  s [label="sink"];
  pre -> op [index=0];
  in -> op [index=1];
  post -> op [index=2];
  op -> s;
}
`)
	a := New()
	forward, _, err := a.ForwardImage(g, nil)
	if err != nil {
		t.Fatalf("ForwardImage error: %v", err)
	}
	attackSample := ssv.Must(ssv.Concat(ssv.AnyString(), ssv.Must(ssv.Concat(ssv.OfLiteral("<script>"), ssv.AnyString()))))
	constraints, err := a.BackwardImage(g, attackSample, forward)
	if err != nil {
		t.Fatalf("BackwardImage error: %v", err)
	}
	inID, _ := g.FindInput("user_input")
	got, ok := constraints.Get(inID)
	if !ok {
		t.Fatalf("BackwardImage produced no constraint for user_input")
	}
	if !ssv.Contains(got, ssv.OfLiteral("<script>")) {
		t.Fatalf("input constraint should admit <script> itself (the exact quotiented pre-image)")
	}
	if got.IsApproximate() {
		t.Fatalf("concat backward with literal neighbors should not be approximate")
	}
}

// Scenario 5: a validation graph whose input is constrained to
// [A-Za-z]* by the time it reaches the sink. Backward from that
// constraint, then complemented, the patch is exactly Sigma* minus
// [A-Za-z]*: non-empty, and it admits any string containing a digit.
func TestBackwardImage_ValidationPatchForLetterOnlyConstraint(t *testing.T) {
	g := parseGraph(t, `
digraph g {
  in [label="input:user_input"];
  s [label="sink"];
  in -> s;
}
`)
	a := New()
	forward, _, err := a.ForwardImage(g, nil)
	if err != nil {
		t.Fatalf("ForwardImage error: %v", err)
	}
	lettersOnly, err := ssv.OfRegex("[A-Za-z]*")
	if err != nil {
		t.Fatalf("OfRegex error: %v", err)
	}
	constraints, err := a.BackwardImage(g, lettersOnly, forward)
	if err != nil {
		t.Fatalf("BackwardImage error: %v", err)
	}
	inID, _ := g.FindInput("user_input")
	accepted, ok := constraints.Get(inID)
	if !ok {
		t.Fatalf("BackwardImage produced no constraint for user_input")
	}
	if !ssv.Equals(accepted, lettersOnly) {
		t.Fatalf("a direct input->sink edge should pass the sink constraint through unchanged")
	}
	patch := ssv.Complement(accepted)
	if ssv.IsEmpty(patch) {
		t.Fatalf("Sigma* minus [A-Za-z]* should not be empty")
	}
	if !ssv.Contains(patch, ssv.OfLiteral("1")) {
		t.Fatalf("the validation patch should admit a string containing a digit")
	}
}

// Scenario 6: n = concat(n, "a") — a self-referential operation feeding
// the sink. The fixpoint loop must terminate (via widening) rather than
// iterate forever, and the resulting post-image must be a superset of
// every individual unrolling ("a", "aa", "aaa", ...).
func TestForwardImage_CyclicConcatTerminatesAndWidens(t *testing.T) {
	g := parseGraph(t, `
digraph g {
  lit [label="literal:a"];
  n [label="op:concat"];
  s [label="sink"];
  n -> n [index=0];
  lit -> n [index=1];
  n -> s;
}
`)
	a := New()
	_, post, err := a.ForwardImage(g, nil)
	if err != nil {
		t.Fatalf("ForwardImage error: %v", err)
	}
	for _, s := range []string{"a", "aa", "aaa", "aaaa"} {
		if !ssv.Contains(post, ssv.OfLiteral(s)) {
			t.Errorf("widened post-image should admit %q", s)
		}
	}
}

func TestSanitizationDiff_IdenticalPatchersHasEmptyDiff(t *testing.T) {
	g := parseGraph(t, `
digraph g {
  in [label="input:x"];
  op [label="op:htmlspecialchars"];
  s [label="sink"];
  in -> op [index=0];
  op -> s;
}
`)
	a := New()
	diff, err := a.SanitizationDiff(g, g, "x")
	if err != nil {
		t.Fatalf("SanitizationDiff error: %v", err)
	}
	if !ssv.IsEmpty(diff) {
		t.Fatalf("diffing a sanitizer against itself should be empty")
	}
}

// ValidationPatch exercises the full forward-then-seeded-backward wiring:
// for an exact (non-approximating) sanitizer the patch is the complement
// of what the backward pass finds reaches the sink, and double complement
// must round-trip.
func TestValidationPatch_ExactSanitizerRoundTrips(t *testing.T) {
	g := parseGraph(t, `
digraph g {
  in [label="input:user_input"];
  op [label="op:to_upper"];
  s [label="sink"];
  in -> op [index=0];
  op -> s;
}
`)
	a := New()
	forward, _, err := a.ForwardImage(g, nil)
	if err != nil {
		t.Fatalf("ForwardImage error: %v", err)
	}
	patch, err := a.ValidationPatch(g, forward)
	if err != nil {
		t.Fatalf("ValidationPatch error: %v", err)
	}
	inID, _ := g.FindInput("user_input")
	p, ok := patch[inID]
	if !ok {
		t.Fatalf("ValidationPatch produced no entry for user_input")
	}
	if !ssv.Equals(ssv.Complement(p), ssv.Empty()) {
		// to_upper is exact and the sink is seeded at empty(), so the
		// backward pre-image at every node, including the input, is
		// empty() and the patch is its complement, any_string().
		t.Fatalf("expected the patch for an unconstrained exact sanitizer to be any_string()")
	}
}
