package feed

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/campuskit/discovery/core"
	"github.com/campuskit/discovery/pipeline"
	"github.com/campuskit/discovery/pkg/utils"
)

const (
	// RecencyHalfLife 是新鲜度衰减的半衰期。
	RecencyHalfLife = 14 * 24 * time.Hour

	// TemporalWindow 是时效加权窗口：窗口内开始的内容获得满额时效分。
	TemporalWindow = 48 * time.Hour
)

// Scorer 是 Feed 打分 Node：对调用方给定的有界候选集（用户可见内容）
// 按多因子公式打分并降序排序。
//
// 打分是纯函数：只读候选与权重，不触碰共享可变状态，天然可并发。
type Scorer struct {
	// Base 是业务面的基准权重（零值时使用 DefaultWeights）。
	Base Weights

	// Profiles 提供按用户的调权档案，可为空（不调权）。
	Profiles *ProfileStore
}

func (n *Scorer) Name() string        { return "feed.scorer" }
func (n *Scorer) Kind() pipeline.Kind { return pipeline.KindScore }

func (n *Scorer) Process(
	ctx context.Context,
	rctx *core.RankingContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	base := n.Base
	if base.Sum() == 0 {
		base = DefaultWeights()
	}
	// 最低个性化级别的用户不应用按用户调权，只用基准权重。
	var profile *WeightProfile
	if n.Profiles != nil && rctx != nil && rctx.UserID != "" && !minimalPersonalization(rctx) {
		p, err := n.Profiles.Get(ctx, rctx.UserID)
		if err == nil {
			profile = p
		}
	}
	weights := base.Apply(profile)

	now := time.Now()
	if rctx != nil {
		now = rctx.At()
	}

	// 第一遍：不含多样性惩罚的因子打分
	type contribution struct {
		factor string
		value  float64
		reason core.ReasonCode
	}
	raw := make(map[string][]contribution, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		contribs := []contribution{
			{FactorEngagement, weights.Engagement * it.Features["engagement"], core.ReasonEngagement},
			{FactorQuality, weights.Quality * it.Features["quality"], core.ReasonQuality},
			{FactorRecency, weights.Recency * recencyScore(it, now), core.ReasonRecency},
			{FactorToolValue, weights.ToolValue * it.Features["tool_value"], core.ReasonToolValue},
			{FactorTemporal, weights.Temporal * temporalScore(it, now), core.ReasonTemporalFit},
			{FactorCreatorInfluence, weights.CreatorInfluence * it.Features["creator_influence"], core.ReasonSocialProof},
		}
		var total float64
		for _, c := range contribs {
			total += c.value
		}
		it.Score = total
		raw[it.ID] = contribs
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i] == nil {
			return false
		}
		if items[j] == nil {
			return true
		}
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].ID < items[j].ID
	})

	// 第二遍：按初排顺序做多样性惩罚——同类型/同空间反复出现的内容掉分。
	// 惩罚做减法施加，不参与加法因子。
	kindSeen := make(map[core.ContentKind]int)
	sourceSeen := make(map[string]int)
	for _, it := range items {
		if it == nil {
			continue
		}
		repeats := float64(kindSeen[it.Kind] + sourceSeen[it.SourceID])
		if repeats > 0 {
			penalty := weights.DiversityPenalty * math.Min(1, repeats/3)
			it.Score -= penalty
		}
		kindSeen[it.Kind]++
		if it.SourceID != "" {
			sourceSeen[it.SourceID]++
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i] == nil {
			return false
		}
		if items[j] == nil {
			return true
		}
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].ID < items[j].ID
	})

	// 归因：贡献占比 >= 30% 的因子进 ReasonCodes；
	// 都不达标时取最大贡献因子，保证个性化输出永远可归因。
	for _, it := range items {
		if it == nil {
			continue
		}
		contribs := raw[it.ID]
		var total float64
		for _, c := range contribs {
			total += c.value
		}
		attributed := false
		var top contribution
		for _, c := range contribs {
			if c.value > top.value {
				top = c
			}
			if total > 0 && c.value/total >= 0.30 {
				it.AddReason(c.reason)
				attributed = true
			}
		}
		if !attributed && top.factor != "" {
			it.AddReason(top.reason)
		}
		it.PutLabel("score_stage", utils.Label{Value: "feed", Source: "score"})
	}

	return items, nil
}

func minimalPersonalization(rctx *core.RankingContext) bool {
	return rctx.Profile != nil && rctx.Profile.Personalization == core.PersonalizationMinimal
}

// recencyScore 按创建时间指数衰减：0.5^(ageDays/14)。
func recencyScore(it *core.Item, now time.Time) float64 {
	createdAt, ok := it.Meta["created_at"].(time.Time)
	if !ok {
		return 0
	}
	ageDays := now.Sub(createdAt).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	return math.Pow(0.5, ageDays/(RecencyHalfLife.Hours()/24))
}

// temporalScore 对 48 小时内开始的内容给满额时效分，线性退到窗口边界。
func temporalScore(it *core.Item, now time.Time) float64 {
	startAt, ok := it.Meta["start_at"].(time.Time)
	if !ok {
		return 0
	}
	until := startAt.Sub(now)
	if until < 0 || until > TemporalWindow {
		return 0
	}
	return 1 - until.Hours()/TemporalWindow.Hours()*0.5
}
