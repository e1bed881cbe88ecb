// Package feed 实现个性化 Feed 的多因子打分、调权与分页。
package feed

import (
	"context"
	"encoding/json"
	"time"

	"github.com/campuskit/discovery/core"
)

// 因子名称，调权 delta 与配置统一使用。
const (
	FactorEngagement       = "engagement"
	FactorQuality          = "quality"
	FactorRecency          = "recency"
	FactorToolValue        = "tool_value"
	FactorTemporal         = "temporal"
	FactorCreatorInfluence = "creator_influence"
	FactorDiversityPenalty = "diversity_penalty"
)

// MaxDelta 是单因子调权的上限；派生输入再极端也只 clamp，不拒绝。
const MaxDelta = 0.1

// Weights 是 Feed 打分的因子权重表。每个业务面加载一份不可变配置，
// 请求内绝不原地修改。
//
// 社交互动信号（点赞/评论）权重刻意为 0：这是产品层面的既定不变量，
// 不是遗漏，禁止悄悄引入。
type Weights struct {
	Engagement       float64 `yaml:"engagement"`        // 空间参与度
	Quality          float64 `yaml:"quality"`           // 内容质量
	Recency          float64 `yaml:"recency"`           // 新鲜度（指数衰减，半衰期 14 天）
	ToolValue        float64 `yaml:"tool_value"`        // 工具交互价值
	Temporal         float64 `yaml:"temporal"`          // 时效相关（48 小时内开始的内容加权）
	CreatorInfluence float64 `yaml:"creator_influence"` // 创建者影响力
	DiversityPenalty float64 `yaml:"diversity_penalty"` // 多样性惩罚（做减法，不做加法）
}

// DefaultWeights 返回基准权重，各项之和为 1。
func DefaultWeights() Weights {
	return Weights{
		Engagement:       0.30,
		Quality:          0.20,
		Recency:          0.15,
		ToolValue:        0.15,
		Temporal:         0.10,
		CreatorInfluence: 0.05,
		DiversityPenalty: 0.05,
	}
}

// Sum 返回权重向量各项之和。
func (w Weights) Sum() float64 {
	return w.Engagement + w.Quality + w.Recency + w.ToolValue +
		w.Temporal + w.CreatorInfluence + w.DiversityPenalty
}

// WeightProfile 是按用户派生的小幅调权（±0.1 以内），每周批量重算。
type WeightProfile struct {
	UserID  string             `json:"user_id"`
	Deltas  map[string]float64 `json:"deltas"`
	Updated time.Time          `json:"updated"`
}

// Apply 叠加用户调权并把完整权重向量重新归一到 1。
// delta 超界时 clamp 到 ±MaxDelta；归一发生在叠加之后，
// 所以无论 delta 组合如何，打分使用的有效权重之和恒为 1。
func (w Weights) Apply(p *WeightProfile) Weights {
	out := w
	if p != nil {
		out.Engagement += clampDelta(p.Deltas[FactorEngagement])
		out.Quality += clampDelta(p.Deltas[FactorQuality])
		out.Recency += clampDelta(p.Deltas[FactorRecency])
		out.ToolValue += clampDelta(p.Deltas[FactorToolValue])
		out.Temporal += clampDelta(p.Deltas[FactorTemporal])
		out.CreatorInfluence += clampDelta(p.Deltas[FactorCreatorInfluence])
		out.DiversityPenalty += clampDelta(p.Deltas[FactorDiversityPenalty])
	}

	// 负权重没有意义，先截断再归一
	out.Engagement = nonNegative(out.Engagement)
	out.Quality = nonNegative(out.Quality)
	out.Recency = nonNegative(out.Recency)
	out.ToolValue = nonNegative(out.ToolValue)
	out.Temporal = nonNegative(out.Temporal)
	out.CreatorInfluence = nonNegative(out.CreatorInfluence)
	out.DiversityPenalty = nonNegative(out.DiversityPenalty)

	sum := out.Sum()
	if sum <= 0 {
		return DefaultWeights()
	}
	out.Engagement /= sum
	out.Quality /= sum
	out.Recency /= sum
	out.ToolValue /= sum
	out.Temporal /= sum
	out.CreatorInfluence /= sum
	out.DiversityPenalty /= sum
	return out
}

func clampDelta(d float64) float64 {
	if d > MaxDelta {
		return MaxDelta
	}
	if d < -MaxDelta {
		return -MaxDelta
	}
	return d
}

func nonNegative(f float64) float64 {
	if f < 0 {
		return 0
	}
	return f
}

const weightProfileKeyPrefix = "feed:weights:"

// ProfileStore 读写按用户的调权档案（KeyValueStore 上的 JSON）。
type ProfileStore struct {
	KV core.KeyValueStore
}

// Get 读取调权档案；不存在时返回 (nil, nil)。
func (s *ProfileStore) Get(ctx context.Context, userID string) (*WeightProfile, error) {
	if s == nil || s.KV == nil {
		return nil, nil
	}
	raw, err := s.KV.Get(ctx, weightProfileKeyPrefix+userID)
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var p WeightProfile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, nil
	}
	return &p, nil
}

// Put 覆盖写入调权档案。
func (s *ProfileStore) Put(ctx context.Context, p *WeightProfile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.KV.Set(ctx, weightProfileKeyPrefix+p.UserID, data)
}
