package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/christiankrug/sanitizer-checker/catalogue"
	"github.com/christiankrug/sanitizer-checker/driver"
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

func runReport(t *testing.T, files map[string]string, contexts []catalogue.Context) *driver.Report {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		writeGraphFile(t, dir, name, body)
	}
	rep, err := driver.Run(driver.Config{
		Root:       dir,
		InputField: "user_input",
		Contexts:   contexts,
	})
	if err != nil {
		t.Fatalf("driver.Run error: %v", err)
	}
	return rep
}

func TestWriteListsGroupAndFiles(t *testing.T) {
	rep := runReport(t, map[string]string{"a.dot": unsanitizedGraph}, []catalogue.Context{catalogue.HTML})
	var buf strings.Builder
	if err := Write(&buf, rep); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "a.dot") {
		t.Errorf("report should list the analyzed file, got:\n%s", out)
	}
	if !strings.Contains(out, "1 equivalence group(s) across 1 analyzed file(s)") {
		t.Errorf("report should summarize group and file counts, got:\n%s", out)
	}
}

func TestWriteReportsOverlap(t *testing.T) {
	rep := runReport(t, map[string]string{"a.dot": unsanitizedGraph}, []catalogue.Context{catalogue.HTML})
	var buf strings.Builder
	if err := Write(&buf, rep); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "OVERLAP") {
		t.Errorf("an unsanitized input reaching the sink should be reported as overlapping, got:\n%s", out)
	}
}

func TestWriteReportsNoOverlap(t *testing.T) {
	htmlEscaped := `
digraph g {
  in [label="input:user_input"];
  op [label="op:htmlspecialchars"];
  s [label="sink"];
  in -> op [index=0];
  op -> s;
}
`
	rep := runReport(t, map[string]string{"a.dot": htmlEscaped}, []catalogue.Context{catalogue.HTML})
	var buf strings.Builder
	if err := Write(&buf, rep); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "no overlap") {
		t.Errorf("htmlspecialchars(input) should report no overlap with HTML, got:\n%s", out)
	}
}

func TestWriteReportsFailedFiles(t *testing.T) {
	rep := runReport(t, map[string]string{
		"good.dot": unsanitizedGraph,
		"bad.dot":  "not a dot file at all",
	}, []catalogue.Context{catalogue.HTML})
	var buf strings.Builder
	if err := Write(&buf, rep); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Failed files (1):") {
		t.Errorf("report should mention exactly one failed file, got:\n%s", out)
	}
	if !strings.Contains(out, "bad.dot") {
		t.Errorf("report should name the failed file, got:\n%s", out)
	}
}

func TestWriteOmitsFailedSectionWhenNoneFailed(t *testing.T) {
	rep := runReport(t, map[string]string{"a.dot": unsanitizedGraph}, []catalogue.Context{catalogue.HTML})
	var buf strings.Builder
	if err := Write(&buf, rep); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if strings.Contains(buf.String(), "Failed files") {
		t.Errorf("report should not mention a failed-files section when nothing failed")
	}
}
