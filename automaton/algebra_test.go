package automaton

import "testing"

func must(a *Automaton, err error) *Automaton {
	if err != nil {
		panic(err)
	}
	return a
}

func TestUnionIntersectComplement(t *testing.T) {
	ab := must(Union(OfLiteral("a"), OfLiteral("b")))
	if !accepts(ab, "a") || !accepts(ab, "b") || accepts(ab, "c") {
		t.Fatalf("Union(a,b) accepted wrong set")
	}

	both := must(Intersect(ab, OfLiteral("a")))
	if !accepts(both, "a") || accepts(both, "b") {
		t.Fatalf("Intersect(Union(a,b), a) should accept only a")
	}

	notA := Complement(OfLiteral("a"))
	if accepts(notA, "a") || !accepts(notA, "b") || !accepts(notA, "") {
		t.Fatalf("Complement(a) should reject exactly a")
	}
	if !Equals(Complement(Complement(OfLiteral("a"))), OfLiteral("a")) {
		t.Fatalf("complement(complement(a)) should equal a")
	}
}

func TestConcat(t *testing.T) {
	c := must(Concat(OfLiteral("pre-"), OfLiteral("post")))
	if !accepts(c, "pre-post") {
		t.Fatalf("Concat should accept pre-post")
	}
	if accepts(c, "pre-") || accepts(c, "post") {
		t.Fatalf("Concat should not accept either half alone")
	}
}

func TestStar(t *testing.T) {
	s := must(Star(OfLiteral("ab")))
	for _, in := range []string{"", "ab", "abab", "ababab"} {
		if !accepts(s, in) {
			t.Errorf("Star(ab) should accept %q", in)
		}
	}
	for _, in := range []string{"a", "aba", "abc"} {
		if accepts(s, in) {
			t.Errorf("Star(ab) should not accept %q", in)
		}
	}
}

func TestStarOfEmptyStartIncludesEpsilon(t *testing.T) {
	// a's start state is not itself accepting but Star must still admit "".
	s := must(Star(OfLiteral("x")))
	if !accepts(s, "") {
		t.Fatalf("Star(x) must accept the empty string")
	}
}

func TestReverse(t *testing.T) {
	r := must(Reverse(OfLiteral("abc")))
	if !accepts(r, "cba") {
		t.Fatalf("Reverse(abc) should accept cba")
	}
	if accepts(r, "abc") {
		t.Fatalf("Reverse(abc) should not accept abc")
	}
}

func TestReverseUnion(t *testing.T) {
	u := must(Union(OfLiteral("ab"), OfLiteral("xy")))
	r := must(Reverse(u))
	if !accepts(r, "ba") || !accepts(r, "yx") {
		t.Fatalf("Reverse(Union(ab,xy)) should accept ba and yx")
	}
	if accepts(r, "ab") || accepts(r, "xy") {
		t.Fatalf("Reverse(Union(ab,xy)) should not accept the originals")
	}
}

func TestIsEmptyIsSingleton(t *testing.T) {
	if !IsEmpty(Empty()) {
		t.Fatalf("Empty() should be empty")
	}
	if IsEmpty(Epsilon()) {
		t.Fatalf("Epsilon() should not be empty")
	}
	s, ok := IsSingleton(OfLiteral("hello"))
	if !ok || s != "hello" {
		t.Fatalf("IsSingleton(hello) = (%q, %v), want (hello, true)", s, ok)
	}
	if _, ok := IsSingleton(must(Union(OfLiteral("a"), OfLiteral("b")))); ok {
		t.Fatalf("IsSingleton should reject a two-element language")
	}
}

func TestContainsEquals(t *testing.T) {
	a := must(Union(OfLiteral("a"), OfLiteral("b")))
	if !Contains(a, OfLiteral("a")) {
		t.Fatalf("Union(a,b) should contain a")
	}
	if Contains(OfLiteral("a"), a) {
		t.Fatalf("a should not contain Union(a,b)")
	}
	if !Equals(a, must(Union(OfLiteral("b"), OfLiteral("a")))) {
		t.Fatalf("union should be order-independent")
	}
}

func TestUnionEmptyIdentity(t *testing.T) {
	a := OfLiteral("z")
	if !Equals(must(Union(a, Empty())), a) {
		t.Fatalf("union(a, empty()) should equal a")
	}
}

func TestIntersectAnyStringIdentity(t *testing.T) {
	a := OfLiteral("z")
	if !Equals(must(Intersect(a, AnyString())), a) {
		t.Fatalf("intersect(a, any_string()) should equal a")
	}
}

func TestConcatEpsilonIdentity(t *testing.T) {
	a := OfLiteral("z")
	if !Equals(must(Concat(Epsilon(), a)), a) || !Equals(must(Concat(a, Epsilon())), a) {
		t.Fatalf("concat(epsilon(), a) and concat(a, epsilon()) should both equal a")
	}
}

func TestQuotientByPrefixLiteral(t *testing.T) {
	a := must(Concat(OfLiteral("pre-"), must(Union(OfLiteral("x"), OfLiteral("y")))))
	q := QuotientByPrefixLiteral(a, "pre-")
	if !accepts(q, "x") || !accepts(q, "y") || accepts(q, "pre-x") {
		t.Fatalf("QuotientByPrefixLiteral should strip the known prefix")
	}
	if !IsEmpty(QuotientByPrefixLiteral(a, "nope")) {
		t.Fatalf("QuotientByPrefixLiteral with a prefix not present should be empty")
	}
}

func TestQuotientBySuffixLiteral(t *testing.T) {
	a := must(Concat(must(Union(OfLiteral("x"), OfLiteral("y"))), OfLiteral("-post")))
	q := must(QuotientBySuffixLiteral(a, "-post"))
	if !accepts(q, "x") || !accepts(q, "y") || accepts(q, "x-post") {
		t.Fatalf("QuotientBySuffixLiteral should strip the known suffix")
	}
}

func accepts(a *Automaton, s string) bool {
	cur := a.start
	for i := 0; i < len(s); i++ {
		to, ok := targetFor(a.states[cur].Trans, s[i])
		if !ok {
			return false
		}
		cur = to
	}
	return a.states[cur].Accept
}
