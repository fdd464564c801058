package catalogue

import (
	"testing"

	"github.com/christiankrug/sanitizer-checker/ssv"
)

func TestPatternForKnownContexts(t *testing.T) {
	for _, ctx := range []Context{HTML, HTMLAttr, Javascript, URL, SQL, MFE} {
		if _, ok := PatternFor(ctx); !ok {
			t.Errorf("PatternFor(%s) ok = false, want true", ctx)
		}
	}
}

func TestPatternForUnknownContext(t *testing.T) {
	if _, ok := PatternFor(Context("NOT_A_CONTEXT")); ok {
		t.Fatalf("PatternFor(unknown) ok = true, want false")
	}
}

func TestHTMLAttackMatchesRawAngleBracket(t *testing.T) {
	p, _ := PatternFor(HTML)
	if !ssv.Contains(p, ssv.OfLiteral("<script>")) {
		t.Errorf("HTML attack pattern should match a raw <script> tag")
	}
	if ssv.Contains(p, ssv.OfLiteral("hello world")) {
		t.Errorf("HTML attack pattern should not match plain text")
	}
	if ssv.Contains(p, ssv.OfLiteral("&amp;")) {
		t.Errorf("HTML attack pattern should not match a well-formed entity")
	}
}

func TestHTMLAttrAttackRejectsAlnum(t *testing.T) {
	p, _ := PatternFor(HTMLAttr)
	if ssv.Contains(p, ssv.OfLiteral("abc123")) {
		t.Errorf("HTML_ATTR attack pattern should not match alnum-only text")
	}
	if !ssv.Contains(p, ssv.OfLiteral("\"onmouseover=alert(1)")) {
		t.Errorf("HTML_ATTR attack pattern should match an attribute breakout")
	}
}

func TestJavascriptAttackAllowsEscapes(t *testing.T) {
	p, _ := PatternFor(Javascript)
	if ssv.Contains(p, ssv.OfLiteral("\\x3c")) {
		t.Errorf("JS attack pattern should not flag a well-formed \\x escape")
	}
	if !ssv.Contains(p, ssv.OfLiteral("</script>")) {
		t.Errorf("JS attack pattern should flag a raw </script> breakout")
	}
}

func TestURLAttackAllowsPercentEscapes(t *testing.T) {
	p, _ := PatternFor(URL)
	if ssv.Contains(p, ssv.OfLiteral("%3Cscript%3E")) {
		t.Errorf("URL attack pattern should not flag fully percent-encoded input")
	}
	if !ssv.Contains(p, ssv.OfLiteral("<script>")) {
		t.Errorf("URL attack pattern should flag a raw angle bracket")
	}
}

func TestSQLAndMFEAttack(t *testing.T) {
	sql, _ := PatternFor(SQL)
	if !ssv.Contains(sql, ssv.OfLiteral("' OR '1'='1")) {
		t.Errorf("SQL attack pattern should flag a raw quote")
	}
	if ssv.Contains(sql, ssv.OfLiteral("plain value")) {
		t.Errorf("SQL attack pattern should not flag plain text")
	}

	mfe, _ := PatternFor(MFE)
	if !ssv.Contains(mfe, ssv.OfLiteral("to: a@b\r\nBcc: victim")) {
		t.Errorf("MFE attack pattern should flag a raw CRLF")
	}
	if ssv.Contains(mfe, ssv.OfLiteral("plain subject line")) {
		t.Errorf("MFE attack pattern should not flag plain text")
	}
}

func TestComparatorKnownNames(t *testing.T) {
	names := []string{
		"HTML_ESCAPED", "HTML_REMOVED", "HTML_REMOVED_NO_SLASH",
		"ENCODE_HTML_COMPAT", "ENCODE_HTML_NO_QUOTES", "ENCODE_HTML_QUOTES",
		"ENCODE_HTML_SLASH", "ENCODE_HTML_TAGS_ONLY", "HTML_BACKTICK",
		"HTML_NO_SLASHES", "HTML_ATTR_ESCAPED", "JAVASCRIPT_ESCAPED",
		"URL_ESCAPED", "URL_COMPONENT_ENCODED",
	}
	if len(names) != 14 {
		t.Fatalf("test table lists %d names, spec names 14", len(names))
	}
	for _, name := range names {
		if _, ok := Comparator(name); !ok {
			t.Errorf("Comparator(%q) ok = false, want true", name)
		}
	}
}

func TestComparatorUnknownName(t *testing.T) {
	if _, ok := Comparator("NOT_A_COMPARATOR"); ok {
		t.Fatalf("Comparator(unknown) ok = true, want false")
	}
}

func TestHTMLEscapedComparatorAcceptsEntityNotRawAmpersand(t *testing.T) {
	c, _ := Comparator("HTML_ESCAPED")
	if !ssv.Contains(c, ssv.OfLiteral("Tom &amp; Jerry")) {
		t.Errorf("HTML_ESCAPED should accept a well-formed &amp; entity")
	}
	if ssv.Contains(c, ssv.OfLiteral("Tom & Jerry")) {
		t.Errorf("HTML_ESCAPED should reject a raw unescaped &")
	}
	if ssv.Contains(c, ssv.OfLiteral("<b>")) {
		t.Errorf("HTML_ESCAPED should reject a raw angle bracket")
	}
}

func TestEncodeHTMLTagsOnlyAllowsAmpersand(t *testing.T) {
	c, _ := Comparator("ENCODE_HTML_TAGS_ONLY")
	if !ssv.Contains(c, ssv.OfLiteral("Tom & Jerry")) {
		t.Errorf("ENCODE_HTML_TAGS_ONLY should allow a raw & (only <, > are escaped)")
	}
	if ssv.Contains(c, ssv.OfLiteral("<b>")) {
		t.Errorf("ENCODE_HTML_TAGS_ONLY should still reject raw angle brackets")
	}
}

func TestURLEscapedComparator(t *testing.T) {
	c, _ := Comparator("URL_ESCAPED")
	if !ssv.Contains(c, ssv.OfLiteral("a-b_c.d~e%20f")) {
		t.Errorf("URL_ESCAPED should accept unreserved chars plus percent escapes")
	}
	if ssv.Contains(c, ssv.OfLiteral("a b")) {
		t.Errorf("URL_ESCAPED should reject a raw space")
	}
}
