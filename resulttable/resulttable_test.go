package resulttable

import (
	"testing"

	"github.com/christiankrug/sanitizer-checker/depgraph"
	"github.com/christiankrug/sanitizer-checker/ssv"
)

func TestSetGet(t *testing.T) {
	tbl := New()
	if _, ok := tbl.Get("n1"); ok {
		t.Fatalf("Get on empty table should report ok=false")
	}
	tbl.Set("n1", ssv.OfLiteral("x"))
	v, ok := tbl.Get("n1")
	if !ok {
		t.Fatalf("Get(n1) ok = false after Set")
	}
	if !ssv.Equals(v, ssv.OfLiteral("x")) {
		t.Fatalf("Get(n1) did not return the set value")
	}
	if tbl.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", tbl.Len())
	}
}

func TestFreezePreventsSet(t *testing.T) {
	tbl := New()
	tbl.Set("n1", ssv.OfLiteral("x"))
	tbl.Freeze()
	if !tbl.Frozen() {
		t.Fatalf("Frozen() = false after Freeze()")
	}
	defer func() {
		if recover() == nil {
			t.Fatalf("Set on a frozen table should panic")
		}
	}()
	tbl.Set("n2", ssv.OfLiteral("y"))
}

func TestAllReturnsSnapshot(t *testing.T) {
	tbl := New()
	tbl.Set("n1", ssv.OfLiteral("x"))
	snap := tbl.All()
	if len(snap) != 1 {
		t.Fatalf("All() len = %d, want 1", len(snap))
	}
	snap[depgraph.NodeId("n2")] = ssv.OfLiteral("z")
	if _, ok := tbl.Get("n2"); ok {
		t.Fatalf("mutating the All() snapshot should not affect the table")
	}
}
