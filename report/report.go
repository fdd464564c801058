// Package report renders a driver.Report as a human-readable textual
// report: per equivalence group holding at least one file, its name (if
// any), contributing file count and file list; then, per analyzed file,
// its per-context overlap summaries; followed by a section listing any
// file whose analysis failed. Overlap summaries are listed per file, not
// per group.
package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/christiankrug/sanitizer-checker/driver"
)

// Write renders rep to w.
func Write(w io.Writer, rep *driver.Report) error {
	groups := rep.Groups.All()
	nonEmpty := groups[:0]
	for _, grp := range groups {
		if len(grp.Results) > 0 {
			nonEmpty = append(nonEmpty, grp)
		}
	}
	groups = nonEmpty
	fmt.Fprintf(w, "%d equivalence group(s) across %d analyzed file(s)\n\n", len(groups), len(rep.Results))

	for _, grp := range groups {
		name := grp.Name
		if name == "" {
			name = fmt.Sprintf("group-%s", grp.ID.String()[:8])
		}
		fmt.Fprintf(w, "== %s ==\n", name)
		fmt.Fprintf(w, "  files: %d\n", len(grp.Results))
		files := make([]string, 0, len(grp.Results))
		for _, r := range grp.Results {
			files = append(files, r.File)
		}
		sort.Strings(files)
		for _, f := range files {
			fmt.Fprintf(w, "    - %s\n", f)
		}
		fmt.Fprintln(w)
	}

	for _, fr := range rep.Results {
		if len(fr.Overlaps) == 0 {
			continue
		}
		fmt.Fprintf(w, "-- %s --\n", fr.File)
		for _, ov := range fr.Overlaps {
			if ov.Empty {
				fmt.Fprintf(w, "  %s: no overlap\n", ov.Context)
				continue
			}
			fmt.Fprintf(w, "  %s: OVERLAP, e.g. %q\n", ov.Context, ov.Sample)
		}
		fmt.Fprintln(w)
	}

	if len(rep.Failed) > 0 {
		fmt.Fprintf(w, "Failed files (%d):\n", len(rep.Failed))
		for _, f := range rep.Failed {
			fmt.Fprintf(w, "  %s: %s\n", f.File, f.Err.Error())
		}
	}
	return nil
}
