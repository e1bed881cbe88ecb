package recommend

import (
	"context"
	"testing"
	"time"

	"github.com/campuskit/discovery/core"
)

func coldProfile(interests map[string]float64) *core.UserSignalProfile {
	p := core.NewUserSignalProfile("u1", "c1")
	p.ExplicitInterests = interests
	return p
}

func candidate(id, category string) *core.Item {
	it := core.NewItem(id, core.KindSpace)
	it.CampusID = "c1"
	it.Category = category
	return it
}

func TestStrategy_StageDispatch(t *testing.T) {
	tests := []struct {
		name       string
		eventCount int
		wantStage  core.ProfileStage
	}{
		{name: "no behavior is cold", eventCount: 0, wantStage: core.StageCold},
		{name: "single event is warm", eventCount: 1, wantStage: core.StageWarm},
		{name: "threshold events is hot", eventCount: core.DefaultHotThreshold, wantStage: core.StageHot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := coldProfile(map[string]float64{"photography": 1})
			if tt.eventCount > 0 {
				p.Behavior = &core.BehaviorSummary{EventCount: tt.eventCount}
			}
			if got := p.Stage(0); got != tt.wantStage {
				t.Fatalf("stage = %v, want %v", got, tt.wantStage)
			}
			if _, ok := Strategies[tt.wantStage]; !ok {
				t.Fatalf("no scoring strategy registered for %v", tt.wantStage)
			}
		})
	}
}

func TestStrategy_ColdProfileScoring(t *testing.T) {
	// cold user interested in photography, one matching candidate and
	// one off-interest candidate the serendipity quota must rescue
	rctx := &core.RankingContext{
		UserID:   "u1",
		CampusID: "c1",
		Surface:  core.SurfaceRecommend,
		Limit:    2,
		Profile:  coldProfile(map[string]float64{"photography": 1.0}),
		Now:      time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	photo := candidate("p1", "photography")
	music := candidate("m1", "music")

	strategy := &Strategy{}
	scored, err := strategy.Process(context.Background(), rctx, []*core.Item{music, photo})
	if err != nil {
		t.Fatalf("strategy: %v", err)
	}
	if scored[0].ID != "p1" {
		t.Fatalf("interest match should rank first, got %s", scored[0].ID)
	}
	if !scored[0].HasReason(core.ReasonInterestMatch) {
		t.Fatalf("photography item missing interest_match: %v", scored[0].Reasons)
	}

	ser := &Serendipity{Rand: testRand(1)}
	out, err := ser.Process(context.Background(), rctx, scored)
	if err != nil {
		t.Fatalf("serendipity: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("output size = %d, want 2", len(out))
	}

	found := map[string]*core.Item{}
	for _, it := range out {
		found[it.ID] = it
	}
	if found["p1"] == nil || found["m1"] == nil {
		t.Fatalf("both candidates must be emitted, got %v", found)
	}
	if !found["m1"].HasReason(core.ReasonSerendipity) {
		t.Fatalf("off-interest item missing serendipity: %v", found["m1"].Reasons)
	}
}

func TestStrategy_WarmUsesBehavior(t *testing.T) {
	p := coldProfile(map[string]float64{})
	p.Behavior = &core.BehaviorSummary{
		EventCount:     5,
		CategoryCounts: map[string]float64{"climbing": 5},
		SourceCounts:   map[string]float64{"space-x": 5},
		KindCounts:     map[core.ContentKind]float64{core.KindSpace: 5},
	}
	rctx := &core.RankingContext{
		UserID: "u1", CampusID: "c1", Surface: core.SurfaceRecommend,
		Profile: p,
		Now:     time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}

	affine := candidate("aff", "climbing")
	affine.SourceID = "space-x"
	stranger := candidate("str", "chess")

	out, err := (&Strategy{}).Process(context.Background(), rctx, []*core.Item{stranger, affine})
	if err != nil {
		t.Fatalf("strategy: %v", err)
	}
	if out[0].ID != "aff" {
		t.Fatalf("behaviorally affine candidate should rank first, got %s", out[0].ID)
	}
	if !out[0].HasReason(core.ReasonBehavioral) {
		t.Fatalf("expected behavioral_affinity attribution: %v", out[0].Reasons)
	}
	if lbl := out[0].Labels["stage"].Value; lbl != "warm" {
		t.Fatalf("stage label = %q, want warm", lbl)
	}
}

func TestVectorSimilarity_FallsBackToTagOverlap(t *testing.T) {
	f := &Factors{}

	p := coldProfile(map[string]float64{"photography": 1.0, "music": 0.5})
	match := candidate("m", "photography")
	miss := candidate("x", "chess")

	// no interest vector: Jaccard overlap against explicit tags
	if got := f.VectorSimilarity(context.Background(), p, match); got <= 0 {
		t.Fatalf("expected positive overlap for matching category, got %v", got)
	}
	if got := f.VectorSimilarity(context.Background(), p, miss); got != 0 {
		t.Fatalf("expected zero overlap for unrelated category, got %v", got)
	}
}
