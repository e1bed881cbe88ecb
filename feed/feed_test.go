package feed

import (
	"context"
	"testing"
	"time"

	"github.com/campuskit/discovery/core"
)

func TestLookback(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	floor := now.Add(-48 * time.Hour)

	tests := []struct {
		name      string
		lastVisit time.Time
		want      time.Time
	}{
		{name: "no last visit falls back to 48h floor", lastVisit: time.Time{}, want: floor},
		{name: "recent visit still bounded by floor", lastVisit: now.Add(-1 * time.Hour), want: floor},
		{name: "older visit extends the window", lastVisit: now.Add(-5 * 24 * time.Hour), want: now.Add(-5 * 24 * time.Hour)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Lookback(tt.lastVisit, now); !got.Equal(tt.want) {
				t.Fatalf("Lookback = %v, want %v", got, tt.want)
			}
		})
	}
}

func feedItem(id string, createdAt time.Time) *core.Item {
	it := core.NewItem(id, core.KindPost)
	it.CampusID = "c1"
	it.Meta["created_at"] = createdAt
	return it
}

func TestPaginate_CaughtUpTermination(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	lookback := Lookback(time.Time{}, now)

	// fixtured content entirely older than the 48h window: any page,
	// any limit, must come back terminal and empty
	var stale []*core.Item
	for i := 0; i < 10; i++ {
		stale = append(stale, feedItem("old", now.Add(-72*time.Hour)))
	}

	for _, limit := range []int{1, 5, 100} {
		page := Paginate(stale, "", limit, lookback)
		if !page.CaughtUp {
			t.Fatalf("limit %d: expected caught-up marker", limit)
		}
		if len(page.Items) != 0 {
			t.Fatalf("limit %d: stale items leaked into page", limit)
		}
	}
}

func TestPaginate_StopsAtBoundaryMidPage(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	lookback := Lookback(time.Time{}, now)

	items := []*core.Item{
		feedItem("fresh-1", now.Add(-1*time.Hour)),
		feedItem("fresh-2", now.Add(-2*time.Hour)),
		feedItem("stale", now.Add(-80*time.Hour)),
		feedItem("fresh-3", now.Add(-3*time.Hour)),
	}

	page := Paginate(items, "", 10, lookback)
	if !page.CaughtUp {
		t.Fatal("expected terminal marker once boundary content is reached")
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected 2 fresh items before boundary, got %d", len(page.Items))
	}
}

func TestPaginate_CursorRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	lookback := Lookback(now.Add(-10*24*time.Hour), now)

	var items []*core.Item
	for i := 0; i < 5; i++ {
		items = append(items, feedItem("it", now.Add(-time.Duration(i)*time.Hour)))
	}

	first := Paginate(items, "", 2, lookback)
	if first.CaughtUp || len(first.Items) != 2 {
		t.Fatalf("first page wrong: caughtUp=%v len=%d", first.CaughtUp, len(first.Items))
	}

	second := Paginate(items, first.NextCursor, 2, lookback)
	if second.CaughtUp || len(second.Items) != 2 {
		t.Fatalf("second page wrong: caughtUp=%v len=%d", second.CaughtUp, len(second.Items))
	}

	last := Paginate(items, second.NextCursor, 2, lookback)
	if !last.CaughtUp || len(last.Items) != 1 {
		t.Fatalf("last page wrong: caughtUp=%v len=%d", last.CaughtUp, len(last.Items))
	}

	// terminal cursor stays terminal
	again := Paginate(items, CaughtUpCursor, 2, lookback)
	if !again.CaughtUp || len(again.Items) != 0 {
		t.Fatal("caught-up cursor must yield an empty terminal page")
	}
}

func TestScorer_AttributionAndOrder(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	engaging := core.NewItem("engaging", core.KindSpace)
	engaging.CampusID = "c1"
	engaging.Features["engagement"] = 1.0
	engaging.Meta["created_at"] = now.Add(-60 * 24 * time.Hour)

	useful := core.NewItem("useful", core.KindPost)
	useful.CampusID = "c1"
	useful.Features["tool_value"] = 0.4
	useful.Meta["created_at"] = now.Add(-60 * 24 * time.Hour)

	scorer := &Scorer{}
	rctx := &core.RankingContext{UserID: "u1", CampusID: "c1", Surface: core.SurfaceFeed, Now: now}

	out, err := scorer.Process(context.Background(), rctx, []*core.Item{useful, engaging})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if out[0].ID != "engaging" {
		t.Fatalf("expected engagement-heavy item first, got %s", out[0].ID)
	}
	if !out[0].HasReason(core.ReasonEngagement) {
		t.Fatalf("dominant factor not attributed: %v", out[0].Reasons)
	}
	for _, it := range out {
		if len(it.Reasons) == 0 {
			t.Fatalf("item %s surfaced without attribution", it.ID)
		}
	}
}

func TestScorer_DiversityPenaltyDemotesRepeats(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	rctx := &core.RankingContext{UserID: "u1", CampusID: "c1", Surface: core.SurfaceFeed, Now: now}

	mk := func(id string, kind core.ContentKind, source string, engagement float64) *core.Item {
		it := core.NewItem(id, kind)
		it.CampusID = "c1"
		it.SourceID = source
		it.Features["engagement"] = engagement
		it.Meta["created_at"] = now.Add(-60 * 24 * time.Hour)
		return it
	}

	// three near-identical posts from one space vs a slightly weaker
	// event from another: the repeat penalty should lift the outsider
	items := []*core.Item{
		mk("a1", core.KindPost, "space-a", 0.90),
		mk("a2", core.KindPost, "space-a", 0.89),
		mk("a3", core.KindPost, "space-a", 0.88),
		mk("b1", core.KindEvent, "space-b", 0.86),
	}

	out, err := (&Scorer{}).Process(context.Background(), rctx, items)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	pos := map[string]int{}
	for i, it := range out {
		pos[it.ID] = i
	}
	if pos["b1"] >= pos["a3"] {
		t.Fatalf("diversity penalty did not demote repeated source: order %v", pos)
	}
}
