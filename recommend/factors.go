package recommend

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/campuskit/discovery/core"
)

// VectorLookup 按内容 ID 取兴趣向量，热阶段向量相似度使用。
// 返回 false 表示该内容没有向量（或向量索引不可用）。
type VectorLookup func(ctx context.Context, campusID, itemID string) ([]float64, bool)

// Factors 是冷/温/热三套打分公式共享的因子计算工具箱。
// 全部因子输出归一到 [0, 1]，策略表只负责加权组合。
type Factors struct {
	// Store 提供群体热度 zset（cohort:pop:{campus}:{year}:{major}）。
	Store core.KeyValueStore

	// Vectors 取内容向量；nil 或未命中时向量相似度降级为标签重叠。
	Vectors VectorLookup
}

// InterestSimilarity 是显式兴趣与候选品类的匹配强度，
// 综合显式声明权重与行为推导权重（取较大者）。
func (f *Factors) InterestSimilarity(p *core.UserSignalProfile, it *core.Item) float64 {
	if p == nil || it.Category == "" {
		return 0
	}
	return p.InterestWeight(it.Category)
}

// CategoryMatch 是显式兴趣的精确命中（0/1），冷启动公式使用。
func (f *Factors) CategoryMatch(p *core.UserSignalProfile, it *core.Item) float64 {
	if p == nil || it.Category == "" {
		return 0
	}
	if _, ok := p.ExplicitInterests[it.Category]; ok {
		return 1
	}
	return 0
}

// CohortPopularity 是候选在同群体（入学年份+专业）内的热度，
// 冷启动时用群体行为替代个体行为。计数经饱和归一：s/(s+10)。
func (f *Factors) CohortPopularity(ctx context.Context, p *core.UserSignalProfile, it *core.Item) float64 {
	if f.Store == nil || p == nil {
		return 0
	}
	score, err := f.Store.ZScore(ctx, CohortKey(it.CampusID, p.Cohort), it.ID)
	if err != nil || score <= 0 {
		return 0
	}
	return score / (score + 10)
}

// BehavioralAffinity 是候选与 30 天行为聚合的贴合度：
// 品类偏好为主，来源与内容类型偏好为辅。
func (f *Factors) BehavioralAffinity(p *core.UserSignalProfile, it *core.Item) float64 {
	if p == nil || p.Behavior == nil {
		return 0
	}
	b := p.Behavior
	return 0.5*maxShare(b.CategoryCounts, it.Category) +
		0.3*maxShare(b.SourceCounts, it.SourceID) +
		0.2*kindShare(b.KindCounts, it.Kind)
}

// SocialProof 是候选的大盘互动热度（参与/报名等），检索或内容侧
// 以 engagement 特征注入。
func (f *Factors) SocialProof(it *core.Item) float64 {
	e := it.Features["engagement"]
	if e <= 0 {
		return 0
	}
	if e > 1 {
		e = e / (e + 20)
	}
	return clamp01(e)
}

// SocialGraphProximity 是候选与用户社交圈的距离，社交检索源以
// friend_members 特征注入（几位好友在该空间/活动中）。
func (f *Factors) SocialGraphProximity(it *core.Item) float64 {
	n := it.Features["friend_members"]
	if n <= 0 {
		return 0
	}
	return n / (n + 3)
}

// Momentum 是候选近期的热度增速；内容侧注入 momentum 特征，
// 缺失时以互动×新鲜度近似。
func (f *Factors) Momentum(it *core.Item, now time.Time) float64 {
	if m, ok := it.Features["momentum"]; ok && m > 0 {
		return clamp01(m)
	}
	return f.SocialProof(it) * recencyDecay(it, now)
}

// TemporalFit 是候选的时间贴合度：未来 7 天内的活动按临近程度得分，
// 其余内容为 0。
func (f *Factors) TemporalFit(it *core.Item, now time.Time) float64 {
	start, ok := startAt(it)
	if !ok || start.Before(now) {
		return 0
	}
	until := start.Sub(now)
	const horizon = 7 * 24 * time.Hour
	if until > horizon {
		return 0
	}
	return 1 - float64(until)/float64(horizon)
}

// VectorSimilarity 是兴趣向量与内容向量的余弦相似度。
// 兴趣向量缺失（嵌入服务不可用）或内容无向量时，降级为显式兴趣
// 标签与候选品类的 Jaccard 重叠，保证请求总能出结果。
func (f *Factors) VectorSimilarity(ctx context.Context, p *core.UserSignalProfile, it *core.Item) float64 {
	if p != nil && len(p.InterestVector) > 0 && f.Vectors != nil {
		if vec, ok := f.Vectors(ctx, it.CampusID, it.ID); ok {
			return clamp01(cosine(p.InterestVector, vec))
		}
	}
	return tagJaccard(p, it)
}

// CohortKey 是群体热度 zset 的键，摄入侧与打分侧共用。
func CohortKey(campusID string, c Cohort) string {
	return "cohort:pop:" + campusID + ":" + strconv.Itoa(c.Year) + ":" + c.Major
}

// Cohort 是 core.Cohort 的别名，方便摄入侧引用。
type Cohort = core.Cohort

// tagJaccard 计算显式兴趣集合与候选品类集合（单元素）的 Jaccard 相似度。
func tagJaccard(p *core.UserSignalProfile, it *core.Item) float64 {
	if p == nil || len(p.ExplicitInterests) == 0 || it.Category == "" {
		return 0
	}
	if _, ok := p.ExplicitInterests[it.Category]; ok {
		return 1 / float64(len(p.ExplicitInterests))
	}
	return 0
}

func cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// maxShare 返回 counts[key] 相对最大计数的占比。
func maxShare(counts map[string]float64, key string) float64 {
	if len(counts) == 0 || key == "" {
		return 0
	}
	var maxCount float64
	for _, c := range counts {
		if c > maxCount {
			maxCount = c
		}
	}
	if maxCount == 0 {
		return 0
	}
	return counts[key] / maxCount
}

func kindShare(counts map[core.ContentKind]float64, kind core.ContentKind) float64 {
	if len(counts) == 0 {
		return 0
	}
	var maxCount float64
	for _, c := range counts {
		if c > maxCount {
			maxCount = c
		}
	}
	if maxCount == 0 {
		return 0
	}
	return counts[kind] / maxCount
}

func recencyDecay(it *core.Item, now time.Time) float64 {
	created, ok := createdAt(it)
	if !ok {
		return 0.5
	}
	ageDays := now.Sub(created).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	return math.Pow(0.5, ageDays/7)
}

func startAt(it *core.Item) (time.Time, bool) {
	return metaTime(it, "start_at")
}

func createdAt(it *core.Item) (time.Time, bool) {
	return metaTime(it, "created_at")
}

func metaTime(it *core.Item, key string) (time.Time, bool) {
	if it.Meta == nil {
		return time.Time{}, false
	}
	switch v := it.Meta[key].(type) {
	case time.Time:
		return v, true
	case int64:
		return time.Unix(v, 0), true
	case float64:
		return time.Unix(int64(v), 0), true
	}
	return time.Time{}, false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
