package fusion

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/campuskit/discovery/core"
	"github.com/campuskit/discovery/pkg/utils"
)

func mkItem(id, campus string) *core.Item {
	it := core.NewItem(id, core.KindPost)
	it.CampusID = campus
	return it
}

func labelOf(value string) utils.Label {
	return utils.Label{Value: value, Source: "retrieve"}
}

func TestFuse_RRFScoring(t *testing.T) {
	lists := []SourceList{
		{Name: "keyword", Weight: 1.0, Items: []*core.Item{mkItem("a", "c1"), mkItem("b", "c1")}},
		{Name: "vector", Weight: 1.0, Items: []*core.Item{mkItem("b", "c1"), mkItem("c", "c1")}},
	}

	out := Fuse("c1", lists, DefaultRRFK, nil)
	if len(out) != 3 {
		t.Fatalf("expected 3 fused items, got %d", len(out))
	}

	// b appears in both lists (rank 1 + rank 0) and must win over
	// single-source rank-0 items
	if out[0].ID != "b" {
		t.Fatalf("expected multi-source item b first, got %s", out[0].ID)
	}
	wantB := 1.0/(60+2) + 1.0/(60+1)
	if math.Abs(out[0].Score-wantB) > 1e-9 {
		t.Fatalf("score for b = %v, want %v", out[0].Score, wantB)
	}
}

func TestFuse_Determinism(t *testing.T) {
	build := func() []SourceList {
		return []SourceList{
			{Name: "keyword", Items: []*core.Item{mkItem("a", "c1"), mkItem("b", "c1"), mkItem("c", "c1")}},
			{Name: "vector", Items: []*core.Item{mkItem("c", "c1"), mkItem("d", "c1")}},
			{Name: "temporal", Items: []*core.Item{mkItem("d", "c1"), mkItem("a", "c1")}},
		}
	}

	baseline := Fuse("c1", build(), 0, nil)

	// list arrival order must not matter (goroutine completion order varies)
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 20; trial++ {
		lists := build()
		rng.Shuffle(len(lists), func(i, j int) { lists[i], lists[j] = lists[j], lists[i] })
		got := Fuse("c1", lists, 0, nil)

		if len(got) != len(baseline) {
			t.Fatalf("trial %d: length %d != %d", trial, len(got), len(baseline))
		}
		for i := range got {
			if got[i].ID != baseline[i].ID {
				t.Fatalf("trial %d: position %d got %s, want %s", trial, i, got[i].ID, baseline[i].ID)
			}
			if got[i].Score != baseline[i].Score {
				t.Fatalf("trial %d: score drift for %s", trial, got[i].ID)
			}
		}
	}
}

func TestFuse_TieBreakByID(t *testing.T) {
	// two items with identical single-source rank get identical scores;
	// order must fall back to lexicographic ID
	lists := []SourceList{
		{Name: "s1", Items: []*core.Item{mkItem("zeta", "c1")}},
		{Name: "s2", Items: []*core.Item{mkItem("alpha", "c1")}},
	}
	out := Fuse("c1", lists, 0, nil)
	if len(out) != 2 || out[0].ID != "alpha" || out[1].ID != "zeta" {
		t.Fatalf("tie-break order wrong: %v, %v", out[0].ID, out[1].ID)
	}
}

func TestFuse_CampusIsolation(t *testing.T) {
	monitor := NewQualityMonitor()

	// fuzz: random mix of matching and leaking candidates across sources
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 50; trial++ {
		var lists []SourceList
		leaked := 0
		for s := 0; s < 3; s++ {
			var items []*core.Item
			for i := 0; i < 10; i++ {
				campus := "c1"
				if rng.Intn(3) == 0 {
					campus = fmt.Sprintf("other-%d", rng.Intn(5))
					leaked++
				}
				items = append(items, mkItem(fmt.Sprintf("s%d-i%d", s, i), campus))
			}
			lists = append(lists, SourceList{Name: fmt.Sprintf("src%d", s), Items: items})
		}

		out := Fuse("c1", lists, 0, monitor)
		for _, it := range out {
			if it.CampusID != "c1" {
				t.Fatalf("trial %d: cross-campus item %s (%s) in output", trial, it.ID, it.CampusID)
			}
		}
		if len(out) != 30-leaked {
			t.Fatalf("trial %d: expected %d survivors, got %d", trial, 30-leaked, len(out))
		}
	}
	var drops int64
	for _, n := range monitor.Snapshot().CrossCampusDrops {
		drops += n
	}
	if drops == 0 {
		t.Fatal("cross-campus drops not recorded in quality monitor")
	}
}

func TestFuse_MergesLabelsOnMultiSourceHit(t *testing.T) {
	a1 := mkItem("a", "c1")
	a1.PutLabel("retriever", labelOf("keyword"))
	a2 := mkItem("a", "c1")
	a2.PutLabel("retriever", labelOf("vector"))

	out := Fuse("c1", []SourceList{
		{Name: "keyword", Items: []*core.Item{a1}},
		{Name: "vector", Items: []*core.Item{a2}},
	}, 0, nil)

	if len(out) != 1 {
		t.Fatalf("expected 1 item, got %d", len(out))
	}
	got := out[0].Labels["retriever"].Value
	if got != "keyword|vector" {
		t.Fatalf("labels not merged, got %q", got)
	}
}

func TestFuse_DoesNotMutateSourceItems(t *testing.T) {
	a1 := mkItem("a", "c1")
	a1.PutLabel("retriever", labelOf("keyword"))
	a1.Score = 0.42
	a2 := mkItem("a", "c1")
	a2.PutLabel("retriever", labelOf("vector"))

	out := Fuse("c1", []SourceList{
		{Name: "keyword", Items: []*core.Item{a1}},
		{Name: "vector", Items: []*core.Item{a2}},
	}, 0, nil)
	if len(out) != 1 {
		t.Fatalf("expected 1 item, got %d", len(out))
	}

	// the fused item has its own label map: the retrievers' originals
	// keep their score, their single-source label, and no fusion label
	if a1.Score != 0.42 {
		t.Fatalf("source item score mutated: %v", a1.Score)
	}
	for name, it := range map[string]*core.Item{"keyword": a1, "vector": a2} {
		if _, ok := it.Labels["fusion"]; ok {
			t.Fatalf("%s source item gained fusion label", name)
		}
		if got := it.Labels["retriever"].Value; got != name {
			t.Fatalf("%s source item label merged in place: %q", name, got)
		}
	}
}
