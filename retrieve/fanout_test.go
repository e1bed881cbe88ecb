package retrieve

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/campuskit/discovery/core"
	"github.com/campuskit/discovery/fusion"
)

// fakeSource is a scripted retrieval source for fan-out tests.
type fakeSource struct {
	name  string
	items []*core.Item
	err   error
	delay time.Duration
}

func (s *fakeSource) Name() string { return s.name }

func (s *fakeSource) Retrieve(ctx context.Context, _ *core.RankingContext) ([]*core.Item, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.items, nil
}

func campusItem(id, campus string) *core.Item {
	it := core.NewItem(id, core.KindSpace)
	it.CampusID = campus
	return it
}

func rankingCtx() *core.RankingContext {
	return &core.RankingContext{
		UserID:   "u1",
		CampusID: "c1",
		Surface:  core.SurfaceSearch,
		Query:    "climbing",
		Limit:    10,
	}
}

func TestFanout_FailSoft(t *testing.T) {
	monitor := fusion.NewQualityMonitor()
	n := &Fanout{
		Sources: []Source{
			&fakeSource{name: "good", items: []*core.Item{campusItem("a", "c1"), campusItem("b", "c1")}},
			&fakeSource{name: "broken", err: errors.New("index offline")},
		},
		Monitor: monitor,
	}

	out, err := n.Process(context.Background(), rankingCtx(), nil)
	if err != nil {
		t.Fatalf("a failing source must not fail the request: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("healthy source contribution lost: got %d items", len(out))
	}
	if monitor.Snapshot().SourceErrors["broken"] == 0 {
		t.Fatal("source error not recorded")
	}
}

func TestFanout_SlowSourceTimesOut(t *testing.T) {
	monitor := fusion.NewQualityMonitor()
	n := &Fanout{
		Sources: []Source{
			&fakeSource{name: "fast", items: []*core.Item{campusItem("a", "c1")}},
			&fakeSource{name: "slow", delay: 200 * time.Millisecond, items: []*core.Item{campusItem("late", "c1")}},
		},
		SourceTimeout: 20 * time.Millisecond,
		Monitor:       monitor,
	}

	out, err := n.Process(context.Background(), rankingCtx(), nil)
	if err != nil {
		t.Fatalf("timeout must be recovered locally: %v", err)
	}
	for _, it := range out {
		if it.ID == "late" {
			t.Fatal("result arriving after deadline was consumed")
		}
	}
	if monitor.Snapshot().SourceTimeouts["slow"] == 0 {
		t.Fatal("source timeout not recorded")
	}
}

func TestFanout_CallerCancellation(t *testing.T) {
	n := &Fanout{
		Sources: []Source{
			&fakeSource{name: "s1", delay: 50 * time.Millisecond, items: []*core.Item{campusItem("a", "c1")}},
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := n.Process(ctx, rankingCtx(), nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(out) != 0 {
		t.Fatal("no retriever result may be consumed after cancellation")
	}
}

func TestFanout_CampusIsolationFuzz(t *testing.T) {
	rng := rand.New(rand.NewSource(5))

	for trial := 0; trial < 30; trial++ {
		var sources []Source
		for s := 0; s < 4; s++ {
			var items []*core.Item
			for i := 0; i < 8; i++ {
				campus := "c1"
				if rng.Intn(2) == 0 {
					campus = "intruder"
				}
				items = append(items, campusItem(fmt.Sprintf("s%d-i%d", s, i), campus))
			}
			sources = append(sources, &fakeSource{name: fmt.Sprintf("src%d", s), items: items})
		}

		out, err := (&Fanout{Sources: sources}).Process(context.Background(), rankingCtx(), nil)
		if err != nil {
			t.Fatalf("trial %d: %v", trial, err)
		}
		for _, it := range out {
			if it.CampusID != "c1" {
				t.Fatalf("trial %d: cross-campus candidate %s escaped fusion", trial, it.ID)
			}
		}
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Climbing Club", []string{"climbing", "club"}},
		{"intro-to-go, part 2!", []string{"intro", "to", "go", "part"}},
		{"a b", nil},
		{"", nil},
	}
	for _, tt := range tests {
		got := Tokenize(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("Tokenize(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.in, got, tt.want)
				break
			}
		}
	}
}
