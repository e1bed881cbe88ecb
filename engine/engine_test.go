package engine

import (
	"context"
	"testing"
	"time"

	"github.com/campuskit/discovery/core"
	"github.com/campuskit/discovery/retrieve"
	"github.com/campuskit/discovery/signal"
	"github.com/campuskit/discovery/store"
)

func TestNew_RequiresStore(t *testing.T) {
	if _, err := New(Options{}); !core.IsInvalidInput(err) {
		t.Fatalf("expected invalid-input error without a store, got %v", err)
	}
}

func TestMalformedRequests(t *testing.T) {
	e, err := New(Options{Store: store.NewMemoryStore()})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	if _, err := e.Search(ctx, "bouldering", "", "u1", 10); !core.IsInvalidInput(err) {
		t.Fatalf("search without campus: got %v", err)
	}
	if _, err := e.GetFeed(ctx, "", "c1", "", 10); !core.IsInvalidInput(err) {
		t.Fatalf("feed without user: got %v", err)
	}
	if _, err := e.GetFeed(ctx, "u1", "", "", 10); !core.IsInvalidInput(err) {
		t.Fatalf("feed without campus: got %v", err)
	}
	if _, err := e.GetRecommendations(ctx, "", "c1", "", 10); !core.IsInvalidInput(err) {
		t.Fatalf("recommend without user: got %v", err)
	}
	if _, err := e.ScheduleNotification(ctx, nil); !core.IsInvalidInput(err) {
		t.Fatalf("nil trigger: got %v", err)
	}
}

// 冷启动端到端：显式兴趣 photography 的新用户，候选为一个 photography
// 活动、一个 music 活动，再混入一个声称属于其他校区的活动。
// 两个本校候选都要输出：photography 按兴趣匹配归因，
// music 作为 serendipity 配额项归因；跨校区候选被静默丢弃并计数。
func TestGetRecommendations_ColdStartEndToEnd(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryStore()
	signals := signal.NewStore(kv)

	if err := signals.SetExplicitInterests(ctx, "u1", map[string]float64{"photography": 1}); err != nil {
		t.Fatalf("set interests: %v", err)
	}

	now := time.Now()
	events := []struct {
		id       string
		category string
		campus   string
		start    time.Time
	}{
		{"ev-photo-walk", "photography", "c1", now.Add(2 * time.Hour)},
		{"ev-open-mic", "music", "c1", now.Add(4 * time.Hour)},
		{"ev-intruder", "photography", "c2", now.Add(3 * time.Hour)},
	}
	for _, ev := range events {
		if err := retrieve.IndexEvent(ctx, kv, "c1", ev.id, ev.start); err != nil {
			t.Fatalf("index event: %v", err)
		}
		meta := retrieve.ContentMeta{Kind: core.KindEvent, Category: ev.category, CampusID: ev.campus}
		if err := retrieve.IndexMeta(ctx, kv, "c1", ev.id, meta); err != nil {
			t.Fatalf("index meta: %v", err)
		}
	}

	e, err := New(Options{Store: kv, Signals: signals, Seed: 11})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	out, err := e.GetRecommendations(ctx, "u1", "c1", "", 2)
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected both campus items, got %d", len(out))
	}

	if out[0].ID != "ev-photo-walk" {
		t.Fatalf("expected interest-matched item first, got %s", out[0].ID)
	}
	if !out[0].HasReason(core.ReasonInterestMatch) {
		t.Fatalf("photography item reasons = %v, want interest_match", out[0].Reasons)
	}
	if got := out[0].Labels["stage"].Value; got != "cold" {
		t.Fatalf("stage label = %q, want cold", got)
	}

	var music *core.Item
	for _, it := range out {
		if it.ID == "ev-open-mic" {
			music = it
		}
	}
	if music == nil {
		t.Fatal("serendipity item missing from output")
	}
	if !music.HasReason(core.ReasonSerendipity) {
		t.Fatalf("music item reasons = %v, want serendipity", music.Reasons)
	}

	for _, it := range out {
		if it.CampusID != "c1" {
			t.Fatalf("cross-campus item %s leaked into output", it.ID)
		}
		if len(it.Reasons) == 0 {
			t.Fatalf("item %s emitted without attribution", it.ID)
		}
	}
	if drops := e.Monitor().Snapshot().CrossCampusDrops["temporal"]; drops != 1 {
		t.Fatalf("cross-campus drop counter = %d, want 1", drops)
	}
}
