package ssv

import "testing"

func TestEmptyEpsilonAnyString(t *testing.T) {
	if !IsEmpty(Empty()) {
		t.Fatalf("Empty() should be empty")
	}
	if IsEmpty(Epsilon()) {
		t.Fatalf("Epsilon() should not be empty")
	}
	s, ok := IsSingleton(Epsilon())
	if !ok || s != "" {
		t.Fatalf("IsSingleton(Epsilon()) = (%q, %v), want (\"\", true)", s, ok)
	}
	if !Contains(AnyString(), OfLiteral("whatever")) {
		t.Fatalf("AnyString() should contain any literal")
	}
}

func TestUnionIntersectComplement(t *testing.T) {
	ab := Must(Union(OfLiteral("a"), OfLiteral("b")))
	if !Contains(ab, OfLiteral("a")) || !Contains(ab, OfLiteral("b")) {
		t.Fatalf("Union(a,b) should contain both a and b")
	}
	if Contains(ab, OfLiteral("c")) {
		t.Fatalf("Union(a,b) should not contain c")
	}

	onlyA := Must(Intersect(ab, OfLiteral("a")))
	if !Equals(onlyA, OfLiteral("a")) {
		t.Fatalf("Intersect(Union(a,b), a) should equal {a}")
	}

	notA := Complement(OfLiteral("a"))
	if Contains(notA, OfLiteral("a")) {
		t.Fatalf("Complement(a) should not contain a")
	}
	if !Equals(Complement(Complement(OfLiteral("a"))), OfLiteral("a")) {
		t.Fatalf("double complement should be identity")
	}
}

func TestConcatStar(t *testing.T) {
	c := Must(Concat(OfLiteral("ab"), OfLiteral("cd")))
	if !Equals(c, OfLiteral("abcd")) {
		t.Fatalf("Concat(ab,cd) should equal {abcd}")
	}

	s := Must(Star(OfLiteral("x")))
	if !Contains(s, Epsilon()) || !Contains(s, OfLiteral("xxx")) {
		t.Fatalf("Star(x) should contain epsilon and xxx")
	}
}

func TestFingerprintConsistentWithEquals(t *testing.T) {
	a := Must(Union(OfLiteral("a"), OfLiteral("b")))
	b := Must(Union(OfLiteral("b"), OfLiteral("a")))
	if !Equals(a, b) {
		t.Fatalf("precondition: a and b should be equal languages")
	}
	if a.Fingerprint() != b.Fingerprint() {
		t.Fatalf("equal SSVs must share a fingerprint")
	}
}

func TestApproximatePropagation(t *testing.T) {
	approx := OfLiteral("a").Approximate()
	if !approx.IsApproximate() {
		t.Fatalf("Approximate() should mark IsApproximate true")
	}
	if !Must(Union(approx, OfLiteral("b"))).IsApproximate() {
		t.Fatalf("Union should propagate approximate-ness from either operand")
	}
	if !Must(Concat(OfLiteral("b"), approx)).IsApproximate() {
		t.Fatalf("Concat should propagate approximate-ness from either operand")
	}
	if Must(Union(OfLiteral("a"), OfLiteral("b"))).IsApproximate() {
		t.Fatalf("Union of two exact SSVs should not be approximate")
	}
}

func TestWithTagDoesNotAffectEquals(t *testing.T) {
	a := OfLiteral("x").WithTag("node-1")
	b := OfLiteral("x")
	if !Equals(a, b) {
		t.Fatalf("tagging should not affect Equals")
	}
	if a.Fingerprint() != b.Fingerprint() {
		t.Fatalf("tagging should not affect Fingerprint")
	}
	if a.Tag() != "node-1" {
		t.Fatalf("Tag() = %q, want node-1", a.Tag())
	}
}

func TestSampleString(t *testing.T) {
	if _, ok := Empty().SampleString(); ok {
		t.Fatalf("SampleString on Empty() should report ok=false")
	}
	s, ok := OfLiteral("hello").SampleString()
	if !ok || s != "hello" {
		t.Fatalf("SampleString(OfLiteral(hello)) = (%q, %v), want (hello, true)", s, ok)
	}
	s, ok = Must(Star(OfLiteral("ab"))).SampleString()
	if !ok {
		t.Fatalf("SampleString on a nonempty star should succeed")
	}
	if s != "" {
		t.Errorf("SampleString(Star(ab)) = %q, expected the shortest accepted string (empty)", s)
	}
}

func TestOfCharRange(t *testing.T) {
	r := OfCharRange('a', 'z')
	if !Contains(r, OfLiteral("m")) || Contains(r, OfLiteral("A")) || Contains(r, OfLiteral("ab")) {
		t.Fatalf("OfCharRange(a,z) should accept single lowercase letters only")
	}
}

func TestOfRegex(t *testing.T) {
	v, err := OfRegex("[A-Za-z]+")
	if err != nil {
		t.Fatalf("OfRegex returned error: %v", err)
	}
	if !Contains(v, OfLiteral("Hello")) {
		t.Fatalf("OfRegex([A-Za-z]+) should accept Hello")
	}
	if Contains(v, OfLiteral("Hello1")) {
		t.Fatalf("OfRegex([A-Za-z]+) should not accept Hello1")
	}
}

func TestFromAutomatonRoundtrip(t *testing.T) {
	v := OfLiteral("z")
	rt := FromAutomaton(v.Automaton())
	if !Equals(v, rt) {
		t.Fatalf("FromAutomaton(v.Automaton()) should equal v")
	}
}
