package signal

import (
	"context"
	"testing"
	"time"

	"github.com/campuskit/discovery/core"
	"github.com/campuskit/discovery/store"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestStore_ProfileAbsentIsNotAnError(t *testing.T) {
	s := NewStore(store.NewMemoryStore())
	p, err := s.Profile(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != nil {
		t.Fatal("expected nil profile for user with no signals")
	}
}

func TestStore_AggregatesBehavior(t *testing.T) {
	now := time.Date(2026, 3, 10, 21, 0, 0, 0, time.UTC)
	s := NewStore(store.NewMemoryStore()).WithClock(fixedClock(now))
	ctx := context.Background()

	events := []core.SignalEvent{
		{Type: core.EventJoin, ItemID: "sp1", Kind: core.KindSpace, Category: "climbing", SourceID: "sp1", At: now.Add(-2 * time.Hour)},
		{Type: core.EventView, ItemID: "ev1", Kind: core.KindEvent, Category: "climbing", SourceID: "sp1", At: now.Add(-26 * time.Hour)},
		{Type: core.EventRSVP, ItemID: "ev2", Kind: core.KindEvent, Category: "music", SourceID: "sp2", At: now.Add(-3 * 24 * time.Hour)},
	}
	for _, ev := range events {
		if err := s.Append(ctx, "u1", "c1", ev); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	p, err := s.Profile(ctx, "u1")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if p == nil || p.Behavior == nil {
		t.Fatal("expected behavior summary")
	}
	if p.CampusID != "c1" {
		t.Fatalf("campus = %q", p.CampusID)
	}
	if p.Behavior.EventCount != 3 {
		t.Fatalf("event count = %d, want 3", p.Behavior.EventCount)
	}
	if p.Behavior.CategoryCounts["climbing"] != 2 {
		t.Fatalf("climbing count = %v", p.Behavior.CategoryCounts["climbing"])
	}
	if !p.Behavior.LastVisit.Equal(now.Add(-2 * time.Hour)) {
		t.Fatalf("last visit = %v", p.Behavior.LastVisit)
	}
	if p.Stage(0) != core.StageWarm {
		t.Fatalf("stage = %v, want warm", p.Stage(0))
	}
}

func TestStore_ThirtyDayWindowIsLazy(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	kv := store.NewMemoryStore()
	s := NewStore(kv).WithClock(fixedClock(now))
	ctx := context.Background()

	// one stale event outside the window, one inside
	if err := s.Append(ctx, "u1", "c1", core.SignalEvent{
		Type: core.EventJoin, Kind: core.KindSpace, Category: "chess", At: now.Add(-40 * 24 * time.Hour),
	}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.Append(ctx, "u1", "c1", core.SignalEvent{
		Type: core.EventView, Kind: core.KindPost, Category: "climbing", At: now.Add(-time.Hour),
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	p, err := s.Profile(ctx, "u1")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if p.Behavior.EventCount != 1 {
		t.Fatalf("stale event counted: EventCount = %d", p.Behavior.EventCount)
	}
	if _, ok := p.Behavior.CategoryCounts["chess"]; ok {
		t.Fatal("stale category leaked into aggregates")
	}

	// lazy discard: the log itself is untouched
	members, err := kv.ZRangeByScore(ctx, "sig:log:u1", 0, float64(now.UnixNano()))
	if err != nil {
		t.Fatalf("zrange: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("append-only log was rewritten: %d entries", len(members))
	}
}

func TestStore_ResetKeepsExplicitSignals(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	s := NewStore(store.NewMemoryStore()).WithClock(fixedClock(now))
	ctx := context.Background()

	if err := s.SetExplicitInterests(ctx, "u1", map[string]float64{"photography": 1}); err != nil {
		t.Fatalf("set interests: %v", err)
	}
	if err := s.SetCohort(ctx, "u1", core.Cohort{Year: 2025, Major: "physics"}); err != nil {
		t.Fatalf("set cohort: %v", err)
	}
	if err := s.Append(ctx, "u1", "c1", core.SignalEvent{Type: core.EventJoin, Kind: core.KindSpace, Category: "chess", At: now.Add(-time.Hour)}); err != nil {
		t.Fatalf("append: %v", err)
	}

	if err := s.ResetBehavior(ctx, "u1"); err != nil {
		t.Fatalf("reset: %v", err)
	}

	p, err := s.Profile(ctx, "u1")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if p == nil {
		t.Fatal("profile must survive a behavior reset")
	}
	if p.Behavior != nil {
		t.Fatal("behavior not cleared")
	}
	if p.ExplicitInterests["photography"] != 1 {
		t.Fatal("explicit interests lost on reset")
	}
	if p.Cohort.Major != "physics" {
		t.Fatal("cohort lost on reset")
	}
	if p.Stage(0) != core.StageCold {
		t.Fatalf("stage after reset = %v, want cold", p.Stage(0))
	}
}

func TestStore_MuteEventsBecomeMutedSources(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	s := NewStore(store.NewMemoryStore()).WithClock(fixedClock(now))
	ctx := context.Background()

	if err := s.Append(ctx, "u1", "c1", core.SignalEvent{
		Type: core.EventMute, SourceID: "noisy-space", At: now.Add(-time.Hour),
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	p, err := s.Profile(ctx, "u1")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if p == nil {
		t.Fatal("expected profile")
	}
	if !p.IsMuted("noisy-space") {
		t.Fatal("mute event not reflected in muted sources")
	}
	// mute events are not qualifying behavioral events
	if p.Stage(0) != core.StageCold {
		t.Fatalf("stage = %v, want cold", p.Stage(0))
	}
}
