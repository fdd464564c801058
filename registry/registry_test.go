package registry

import (
	"errors"
	"testing"

	"github.com/christiankrug/sanitizer-checker/errkind"
	"github.com/christiankrug/sanitizer-checker/ssv"
)

func kindOf(t *testing.T, err error) errkind.Kind {
	t.Helper()
	var ae *errkind.AnalysisError
	if !errors.As(err, &ae) {
		t.Fatalf("error %v is not an *errkind.AnalysisError", err)
	}
	return ae.Kind
}

func TestLookupUnknownOp(t *testing.T) {
	if _, ok := Lookup("not_an_op"); ok {
		t.Fatalf("Lookup(not_an_op) ok = true, want false")
	}
}

func TestApplyUnsupportedOp(t *testing.T) {
	_, err := Apply("not_an_op", nil)
	if err == nil {
		t.Fatalf("Apply(not_an_op) returned nil error")
	}
	if k := kindOf(t, err); k != errkind.UnsupportedOp {
		t.Fatalf("Apply(not_an_op) kind = %v, want UnsupportedOp", k)
	}
}

func TestApplyArityMismatch(t *testing.T) {
	_, err := Apply("to_upper", []ssv.SSV{ssv.OfLiteral("a"), ssv.OfLiteral("b")})
	if err == nil {
		t.Fatalf("Apply(to_upper, 2 children) returned nil error")
	}
	if k := kindOf(t, err); k != errkind.ArityMismatch {
		t.Fatalf("Apply(to_upper, 2 children) kind = %v, want ArityMismatch", k)
	}
}

func TestApplyConcatVariadic(t *testing.T) {
	out, err := Apply("concat", []ssv.SSV{ssv.OfLiteral("a"), ssv.OfLiteral("b"), ssv.OfLiteral("c")})
	if err != nil {
		t.Fatalf("Apply(concat, 3 literal children) error: %v", err)
	}
	if !ssv.Equals(out, ssv.OfLiteral("abc")) {
		t.Fatalf("Apply(concat, a,b,c) should equal {abc}")
	}
}

func TestApplyConcatEmpty(t *testing.T) {
	out, err := Apply("concat", nil)
	if err != nil {
		t.Fatalf("Apply(concat, no children) error: %v", err)
	}
	if !ssv.Equals(out, ssv.Epsilon()) {
		t.Fatalf("Apply(concat, no children) should equal epsilon")
	}
}

func TestConcatBackwardExactWithLiteralNeighbors(t *testing.T) {
	d, _ := Lookup("concat")
	parent := ssv.Must(ssv.Union(
		ssv.OfLiteral("pre-x-post"),
		ssv.OfLiteral("pre-y-post"),
	))
	childForward := []ssv.SSV{ssv.OfLiteral("pre-"), ssv.Must(ssv.Union(ssv.OfLiteral("x"), ssv.OfLiteral("y"))), ssv.OfLiteral("-post")}
	got, err := d.Bwd(parent, childForward, 1)
	if err != nil {
		t.Fatalf("Bwd error: %v", err)
	}
	want := ssv.Must(ssv.Union(ssv.OfLiteral("x"), ssv.OfLiteral("y")))
	if !ssv.Equals(got, want) {
		t.Fatalf("concat backward with literal neighbors should exactly quotient prefix/suffix")
	}
	if got.IsApproximate() {
		t.Fatalf("concat backward with literal neighbors should not be marked approximate")
	}
}

func TestConcatBackwardApproximateWithNonLiteralNeighbor(t *testing.T) {
	d, _ := Lookup("concat")
	parent := ssv.AnyString()
	childForward := []ssv.SSV{ssv.AnyString(), ssv.OfLiteral("mid")}
	got, err := d.Bwd(parent, childForward, 1)
	if err != nil {
		t.Fatalf("Bwd error: %v", err)
	}
	if !got.IsApproximate() {
		t.Fatalf("concat backward with a non-literal neighbor should be marked approximate")
	}
}

func TestToUpperRoundTrip(t *testing.T) {
	out, err := Apply("to_upper", []ssv.SSV{ssv.OfLiteral("abc")})
	if err != nil {
		t.Fatalf("Apply(to_upper) error: %v", err)
	}
	if !ssv.Equals(out, ssv.OfLiteral("ABC")) {
		t.Fatalf("Apply(to_upper, abc) should equal {ABC}")
	}

	d, _ := Lookup("to_upper")
	pre, err := d.Bwd(ssv.OfLiteral("ABC"), nil, 0)
	if err != nil {
		t.Fatalf("Bwd error: %v", err)
	}
	if !ssv.Equals(pre, ssv.OfLiteral("abc")) {
		t.Fatalf("to_upper backward pre-image of {ABC} should be {abc}")
	}
}

func TestHTMLEscapeForward(t *testing.T) {
	out, err := Apply("html_escape", []ssv.SSV{ssv.OfLiteral("<b>")})
	if err != nil {
		t.Fatalf("Apply(html_escape) error: %v", err)
	}
	if !ssv.Equals(out, ssv.OfLiteral("&lt;b&gt;")) {
		t.Fatalf("Apply(html_escape, <b>) should equal {&lt;b&gt;}")
	}
}

func TestHTMLEscapeBackwardExcludesRawAngleBracket(t *testing.T) {
	d, _ := Lookup("html_escape")
	pre, err := d.Bwd(ssv.AnyString(), nil, 0)
	if err != nil {
		t.Fatalf("Bwd error: %v", err)
	}
	if ssv.Contains(pre, ssv.OfLiteral("<")) {
		t.Fatalf("html_escape pre-image of Sigma* should not admit a raw <, since no input produces it")
	}
}

func TestUrlEncodeDecodeRoundTrip(t *testing.T) {
	enc, err := Apply("url_encode", []ssv.SSV{ssv.OfLiteral("a b")})
	if err != nil {
		t.Fatalf("Apply(url_encode) error: %v", err)
	}
	if !ssv.Equals(enc, ssv.OfLiteral("a%20b")) {
		t.Fatalf("Apply(url_encode, \"a b\") should equal {a%%20b}")
	}
	dec, err := Apply("url_decode", []ssv.SSV{enc})
	if err != nil {
		t.Fatalf("Apply(url_decode) error: %v", err)
	}
	if !ssv.Contains(dec, ssv.OfLiteral("a b")) {
		t.Fatalf("url_decode(url_encode(\"a b\")) should admit \"a b\"")
	}
}

func TestAddslashes(t *testing.T) {
	out, err := Apply("addslashes", []ssv.SSV{ssv.OfLiteral(`it's`)})
	if err != nil {
		t.Fatalf("Apply(addslashes) error: %v", err)
	}
	if !ssv.Equals(out, ssv.OfLiteral(`it\'s`)) {
		t.Fatalf("Apply(addslashes, it's) should equal {it\\'s}")
	}
}

func TestLengthRestrictExact(t *testing.T) {
	children := []ssv.SSV{ssv.Must(ssv.Star(ssv.OfCharRange('a', 'z'))), ssv.OfLiteral("2"), ssv.OfLiteral("4")}
	out, err := Apply("length_restrict", children)
	if err != nil {
		t.Fatalf("Apply(length_restrict) error: %v", err)
	}
	if ssv.Contains(out, ssv.OfLiteral("a")) {
		t.Fatalf("length_restrict(2,4) should reject length-1 strings")
	}
	if !ssv.Contains(out, ssv.OfLiteral("abc")) {
		t.Fatalf("length_restrict(2,4) should accept length-3 strings")
	}
	if ssv.Contains(out, ssv.OfLiteral("abcde")) {
		t.Fatalf("length_restrict(2,4) should reject length-5 strings")
	}
}

func TestTrimWsBackwardApproximate(t *testing.T) {
	d, _ := Lookup("trim_ws")
	out, err := d.Bwd(ssv.OfLiteral("x"), nil, 0)
	if err != nil {
		t.Fatalf("Bwd error: %v", err)
	}
	if !out.IsApproximate() {
		t.Fatalf("trim_ws backward should be marked approximate")
	}
	if !ssv.Contains(out, ssv.OfLiteral("  x  ")) {
		t.Fatalf("trim_ws backward pre-image of {x} should admit whitespace-padded variants")
	}
}

func TestReplaceIsApproximate(t *testing.T) {
	out, err := Apply("replace", []ssv.SSV{ssv.OfLiteral("a"), ssv.OfLiteral("a"), ssv.OfLiteral("b")})
	if err != nil {
		t.Fatalf("Apply(replace) error: %v", err)
	}
	if !out.IsApproximate() {
		t.Fatalf("replace forward should be marked approximate")
	}
}

func TestStripTagsIsApproximate(t *testing.T) {
	out, err := Apply("strip_tags", []ssv.SSV{ssv.OfLiteral("<b>hi</b>")})
	if err != nil {
		t.Fatalf("Apply(strip_tags) error: %v", err)
	}
	if !out.IsApproximate() {
		t.Fatalf("strip_tags forward should be marked approximate")
	}
}

func TestNullByteStrip(t *testing.T) {
	out, err := Apply("null_byte_strip", []ssv.SSV{ssv.OfLiteral("a\x00b")})
	if err != nil {
		t.Fatalf("Apply(null_byte_strip) error: %v", err)
	}
	if !ssv.Equals(out, ssv.OfLiteral("ab")) {
		t.Fatalf("null_byte_strip should delete the NUL byte")
	}
}
