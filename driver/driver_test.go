package driver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/christiankrug/sanitizer-checker/catalogue"
)

func writeGraphFile(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

const unsanitizedGraph = `
digraph g {
  in [label="input:user_input"];
  s [label="sink"];
  in -> s;
}
`

const htmlEscapedGraph = `
digraph g {
  in [label="input:user_input"];
  op [label="op:htmlspecialchars"];
  s [label="sink"];
  in -> op [index=0];
  op -> s;
}
`

func TestRunMissingRoot(t *testing.T) {
	_, err := Run(Config{Root: filepath.Join(t.TempDir(), "nope")})
	if err == nil {
		t.Fatalf("Run should fail for a missing root directory")
	}
}

func TestRunEmptyRoot(t *testing.T) {
	_, err := Run(Config{Root: t.TempDir()})
	if err == nil {
		t.Fatalf("Run should fail when no .dot files are found")
	}
}

func TestRunSingleFile(t *testing.T) {
	dir := t.TempDir()
	writeGraphFile(t, dir, "a.dot", unsanitizedGraph)

	rep, err := Run(Config{
		Root:       dir,
		InputField: "user_input",
		Contexts:   []catalogue.Context{catalogue.HTML},
		Threads:    2,
	})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(rep.Failed) != 0 {
		t.Fatalf("Failed = %v, want none", rep.Failed)
	}
	if len(rep.Results) != 1 {
		t.Fatalf("Results len = %d, want 1", len(rep.Results))
	}
	if len(rep.Results[0].Overlaps) != 1 {
		t.Fatalf("Overlaps len = %d, want 1", len(rep.Results[0].Overlaps))
	}
	if rep.Results[0].Overlaps[0].Empty {
		t.Errorf("an unsanitized input reaching the sink should overlap HTML")
	}
	if rep.Groups.Len() == 0 {
		t.Errorf("Groups should contain at least one entry")
	}
}

func TestRunGroupsEquivalentFiles(t *testing.T) {
	dir := t.TempDir()
	writeGraphFile(t, dir, "a.dot", htmlEscapedGraph)
	writeGraphFile(t, dir, "b.dot", htmlEscapedGraph)

	rep, err := Run(Config{
		Root:       dir,
		InputField: "user_input",
		Contexts:   []catalogue.Context{catalogue.HTML},
		Threads:    2,
	})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(rep.Results) != 2 {
		t.Fatalf("Results len = %d, want 2", len(rep.Results))
	}
	var found bool
	for _, grp := range rep.Groups.All() {
		if len(grp.Results) == 2 {
			found = true
			if grp.Name != "HTML_ESCAPED" && grp.Name != "HTML_NO_SLASHES" {
				t.Errorf("two identical htmlspecialchars files should land in a pre-registered named group, got %q", grp.Name)
			}
		}
	}
	if !found {
		t.Fatalf("expected one group containing both equivalent files")
	}
}

func TestRunIsolatesParseFailures(t *testing.T) {
	dir := t.TempDir()
	writeGraphFile(t, dir, "good.dot", unsanitizedGraph)
	writeGraphFile(t, dir, "bad.dot", "not a dot file at all")

	rep, err := Run(Config{
		Root:       dir,
		InputField: "user_input",
		Contexts:   []catalogue.Context{catalogue.HTML},
	})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(rep.Results) != 1 {
		t.Fatalf("Results len = %d, want 1 (the good file)", len(rep.Results))
	}
	if len(rep.Failed) != 1 {
		t.Fatalf("Failed len = %d, want 1 (the bad file)", len(rep.Failed))
	}
}
