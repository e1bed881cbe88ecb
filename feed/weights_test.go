package feed

import (
	"math"
	"testing"
)

func TestWeightsApply(t *testing.T) {
	tests := []struct {
		name   string
		deltas map[string]float64
	}{
		{name: "nil profile", deltas: nil},
		{name: "small boost", deltas: map[string]float64{FactorRecency: 0.05}},
		{name: "delta at bound", deltas: map[string]float64{FactorEngagement: 0.1, FactorQuality: -0.1}},
		{
			name: "extreme deltas clamped",
			deltas: map[string]float64{
				FactorEngagement: 5.0,
				FactorQuality:    -3.0,
				FactorRecency:    0.9,
			},
		},
		{
			name: "all negative beyond weight",
			deltas: map[string]float64{
				FactorTemporal:         -1.0,
				FactorCreatorInfluence: -1.0,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p *WeightProfile
			if tt.deltas != nil {
				p = &WeightProfile{UserID: "u1", Deltas: tt.deltas}
			}
			got := DefaultWeights().Apply(p)

			if sum := got.Sum(); math.Abs(sum-1.0) > 1e-6 {
				t.Fatalf("effective weights sum = %v, want 1.0", sum)
			}
			for name, w := range map[string]float64{
				"engagement":        got.Engagement,
				"quality":           got.Quality,
				"recency":           got.Recency,
				"tool_value":        got.ToolValue,
				"temporal":          got.Temporal,
				"creator_influence": got.CreatorInfluence,
				"diversity_penalty": got.DiversityPenalty,
			} {
				if w < 0 {
					t.Fatalf("factor %s went negative: %v", name, w)
				}
			}
		})
	}
}

func TestWeightsApply_ClampNotReject(t *testing.T) {
	// a delta beyond the bound must behave exactly like the bound itself
	base := DefaultWeights()
	extreme := base.Apply(&WeightProfile{Deltas: map[string]float64{FactorEngagement: 99}})
	bounded := base.Apply(&WeightProfile{Deltas: map[string]float64{FactorEngagement: MaxDelta}})

	if math.Abs(extreme.Engagement-bounded.Engagement) > 1e-9 {
		t.Fatalf("extreme delta not clamped: %v vs %v", extreme.Engagement, bounded.Engagement)
	}
}

func TestScaleDelta(t *testing.T) {
	tests := []struct {
		deviation float64
		want      float64
	}{
		{0, 0},
		{0.25, 0.05},
		{0.5, MaxDelta},
		{2.0, MaxDelta},
		{-2.0, -MaxDelta},
	}
	for _, tt := range tests {
		if got := scaleDelta(tt.deviation); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("scaleDelta(%v) = %v, want %v", tt.deviation, got, tt.want)
		}
	}
}
