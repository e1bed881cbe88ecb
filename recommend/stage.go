package recommend

import (
	"context"
	"time"

	"github.com/campuskit/discovery/core"
)

// Contribution 是打分公式中一项已加权的因子贡献，
// 归因（reasonCodes）直接由贡献占比推出。
type Contribution struct {
	Code   core.ReasonCode
	Weight float64
	Value  float64
}

// Weighted 返回该项对最终分数的贡献值。
func (c Contribution) Weighted() float64 {
	return c.Weight * c.Value
}

// ScoreFn 按某一画像阶段的公式计算候选的全部因子贡献。
// 公式中的 serendipity 权重不在此体现：serendipity 是输出位的强制
// 配额（rerank 阶段），不是逐条候选的学习信号。
type ScoreFn func(
	ctx context.Context,
	f *Factors,
	p *core.UserSignalProfile,
	it *core.Item,
	now time.Time,
) []Contribution

// Strategies 是画像阶段到打分公式的策略表。
// 三套公式共享 Factors 工具箱，互不派生。
var Strategies = map[core.ProfileStage]ScoreFn{
	core.StageCold: scoreCold,
	core.StageWarm: scoreWarm,
	core.StageHot:  scoreHot,
}

// scoreCold 只依赖显式信号与群体信号：
// 0.50 兴趣匹配 + 0.20 品类命中 + 0.20 群体热度。
func scoreCold(ctx context.Context, f *Factors, p *core.UserSignalProfile, it *core.Item, _ time.Time) []Contribution {
	return []Contribution{
		{Code: core.ReasonInterestMatch, Weight: 0.50, Value: f.InterestSimilarity(p, it)},
		{Code: core.ReasonCategoryMatch, Weight: 0.20, Value: f.CategoryMatch(p, it)},
		{Code: core.ReasonCohortPopularity, Weight: 0.20, Value: f.CohortPopularity(ctx, p, it)},
	}
}

// scoreWarm 引入初步行为信号：
// 0.30 兴趣匹配 + 0.30 行为亲和 + 0.20 社交证明 + 0.10 时间贴合。
func scoreWarm(_ context.Context, f *Factors, p *core.UserSignalProfile, it *core.Item, now time.Time) []Contribution {
	return []Contribution{
		{Code: core.ReasonInterestMatch, Weight: 0.30, Value: f.InterestSimilarity(p, it)},
		{Code: core.ReasonBehavioral, Weight: 0.30, Value: f.BehavioralAffinity(p, it)},
		{Code: core.ReasonSocialProof, Weight: 0.20, Value: f.SocialProof(it)},
		{Code: core.ReasonTemporalFit, Weight: 0.10, Value: f.TemporalFit(it, now)},
	}
}

// scoreHot 行为样本充足后转向向量与社交图：
// 0.25 向量相似 + 0.25 行为亲和 + 0.20 社交图距离 + 0.10 动量 + 0.10 时间贴合。
func scoreHot(ctx context.Context, f *Factors, p *core.UserSignalProfile, it *core.Item, now time.Time) []Contribution {
	return []Contribution{
		{Code: core.ReasonVectorSimilarity, Weight: 0.25, Value: f.VectorSimilarity(ctx, p, it)},
		{Code: core.ReasonBehavioral, Weight: 0.25, Value: f.BehavioralAffinity(p, it)},
		{Code: core.ReasonSocialGraph, Weight: 0.20, Value: f.SocialGraphProximity(it)},
		{Code: core.ReasonMomentum, Weight: 0.10, Value: f.Momentum(it, now)},
		{Code: core.ReasonTemporalFit, Weight: 0.10, Value: f.TemporalFit(it, now)},
	}
}
