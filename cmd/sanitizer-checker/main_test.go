package main

import (
	"testing"

	"github.com/christiankrug/sanitizer-checker/catalogue"
)

func TestParseContextsAll(t *testing.T) {
	got, err := parseContexts("HTML,HTML_ATTR,JS,URL,SQL,MFE")
	if err != nil {
		t.Fatalf("parseContexts error: %v", err)
	}
	want := []catalogue.Context{
		catalogue.HTML, catalogue.HTMLAttr, catalogue.Javascript,
		catalogue.URL, catalogue.SQL, catalogue.MFE,
	}
	if len(got) != len(want) {
		t.Fatalf("parseContexts len = %d, want %d", len(got), len(want))
	}
	for i, c := range want {
		if got[i] != c {
			t.Errorf("parseContexts[%d] = %q, want %q", i, got[i], c)
		}
	}
}

func TestParseContextsJSShorthand(t *testing.T) {
	got, err := parseContexts("JS")
	if err != nil {
		t.Fatalf("parseContexts error: %v", err)
	}
	if len(got) != 1 || got[0] != catalogue.Javascript {
		t.Fatalf("parseContexts(JS) = %v, want [JAVASCRIPT]", got)
	}
}

func TestParseContextsLowercaseAndWhitespace(t *testing.T) {
	got, err := parseContexts(" html , sql ")
	if err != nil {
		t.Fatalf("parseContexts error: %v", err)
	}
	if len(got) != 2 || got[0] != catalogue.HTML || got[1] != catalogue.SQL {
		t.Fatalf("parseContexts(' html , sql ') = %v, want [HTML SQL]", got)
	}
}

func TestParseContextsEmptyTokensSkipped(t *testing.T) {
	got, err := parseContexts("HTML,,SQL,")
	if err != nil {
		t.Fatalf("parseContexts error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("parseContexts should skip empty tokens, got %v", got)
	}
}

func TestParseContextsUnknown(t *testing.T) {
	_, err := parseContexts("NOT_A_CONTEXT")
	if err == nil {
		t.Fatalf("parseContexts should reject an unknown context name")
	}
}
