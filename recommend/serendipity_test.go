package recommend

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/campuskit/discovery/core"
)

func testRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

func hotTasteProfile() *core.UserSignalProfile {
	p := core.NewUserSignalProfile("u1", "c1")
	p.ExplicitInterests = map[string]float64{
		"photography": 1.0,
		"music":       0.8,
		"climbing":    0.6,
	}
	return p
}

func TestSerendipity_FloorAcrossSizes(t *testing.T) {
	for _, size := range []int{5, 10, 12, 20} {
		t.Run(fmt.Sprintf("size %d", size), func(t *testing.T) {
			rctx := &core.RankingContext{
				UserID: "u1", CampusID: "c1", Surface: core.SurfaceRecommend,
				Limit:   size,
				Profile: hotTasteProfile(),
				Now:     time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
			}

			// plenty of in-taste candidates plus an off-taste pool
			var items []*core.Item
			for i := 0; i < size; i++ {
				it := candidate(fmt.Sprintf("in-%02d", i), "photography")
				it.Score = 1.0 - float64(i)*0.01
				items = append(items, it)
			}
			for i := 0; i < size; i++ {
				it := candidate(fmt.Sprintf("out-%02d", i), "chess")
				it.Score = 0.05
				items = append(items, it)
			}

			node := &Serendipity{Rand: testRand(11)}
			out, err := node.Process(context.Background(), rctx, items)
			if err != nil {
				t.Fatalf("process: %v", err)
			}
			if len(out) != size {
				t.Fatalf("output size = %d, want %d", len(out), size)
			}

			floor := (size + 4) / 5
			tagged := 0
			for _, it := range out {
				if it.HasReason(core.ReasonSerendipity) {
					tagged++
				}
			}
			if tagged < floor {
				t.Fatalf("serendipity floor violated: %d tagged, need >= %d", tagged, floor)
			}

			// every consecutive 5-slot window carries at least one quota item
			for start := 0; start+5 <= len(out); start += 5 {
				hit := false
				for _, it := range out[start : start+5] {
					if it.HasReason(core.ReasonSerendipity) {
						hit = true
						break
					}
				}
				if !hit {
					t.Fatalf("window [%d,%d) has no serendipity slot", start, start+5)
				}
			}
		})
	}
}

func TestSerendipity_DrawsOutsideTopCategories(t *testing.T) {
	rctx := &core.RankingContext{
		UserID: "u1", CampusID: "c1", Surface: core.SurfaceRecommend,
		Limit:   10,
		Profile: hotTasteProfile(),
		Now:     time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}

	var items []*core.Item
	for i := 0; i < 10; i++ {
		it := candidate(fmt.Sprintf("in-%02d", i), "photography")
		it.Score = 1.0
		items = append(items, it)
	}
	for i := 0; i < 5; i++ {
		it := candidate(fmt.Sprintf("out-%02d", i), "astronomy")
		items = append(items, it)
	}

	out, err := (&Serendipity{Rand: testRand(3)}).Process(context.Background(), rctx, items)
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	topThree := map[string]bool{"photography": true, "music": true, "climbing": true}
	for _, it := range out {
		if it.HasReason(core.ReasonSerendipity) && topThree[it.Category] {
			t.Fatalf("quota item %s drawn from a top-3 interest category %q", it.ID, it.Category)
		}
	}
}

func TestSerendipity_ReproducibleWithSeed(t *testing.T) {
	build := func() []*core.Item {
		var items []*core.Item
		for i := 0; i < 8; i++ {
			it := candidate(fmt.Sprintf("in-%02d", i), "photography")
			it.Score = 1.0 - float64(i)*0.1
			items = append(items, it)
		}
		for i := 0; i < 6; i++ {
			it := candidate(fmt.Sprintf("out-%02d", i), "chess")
			it.Score = 0.1
			items = append(items, it)
		}
		return items
	}
	rctx := func() *core.RankingContext {
		return &core.RankingContext{
			UserID: "u1", CampusID: "c1", Surface: core.SurfaceRecommend,
			Limit:   10,
			Profile: hotTasteProfile(),
		}
	}

	first, err := (&Serendipity{Rand: testRand(99)}).Process(context.Background(), rctx(), build())
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	second, err := (&Serendipity{Rand: testRand(99)}).Process(context.Background(), rctx(), build())
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("same seed produced different output at %d: %s vs %s", i, first[i].ID, second[i].ID)
		}
	}
}
