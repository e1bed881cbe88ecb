package core

import (
	"context"
	"sort"
	"time"
)

// PersonalizationLevel 是用户选择的个性化程度。
type PersonalizationLevel string

const (
	PersonalizationMinimal  PersonalizationLevel = "minimal"
	PersonalizationStandard PersonalizationLevel = "standard"
	PersonalizationFull     PersonalizationLevel = "full"
)

// ProfileStage 是画像成熟度，决定推荐打分策略（冷/温/热）。
// 由行为样本量推导，不接受调用方显式指定。
type ProfileStage string

const (
	StageCold ProfileStage = "cold" // 仅有显式信号
	StageWarm ProfileStage = "warm" // 至少 1 条行为信号
	StageHot  ProfileStage = "hot"  // 行为样本量达到阈值
)

// DefaultHotThreshold 是进入 Hot 阶段的默认合格事件数。
const DefaultHotThreshold = 20

// SignalWindow 是行为计数的滑动窗口；窗口外的事件在读取时惰性丢弃，
// 从不回写改动历史。
const SignalWindow = 30 * 24 * time.Hour

// SignalEventType 是合格行为事件类型。
type SignalEventType string

const (
	EventJoin  SignalEventType = "join"
	EventView  SignalEventType = "view"
	EventRSVP  SignalEventType = "rsvp"
	EventDwell SignalEventType = "dwell"
	EventMute  SignalEventType = "mute"
)

// SignalEvent 是行为事件日志的一条记录（仅追加，由外部摄入钩子写入）。
type SignalEvent struct {
	Type     SignalEventType `json:"type"`
	ItemID   string          `json:"item_id"`
	Kind     ContentKind     `json:"kind"`
	Category string          `json:"category"`
	SourceID string          `json:"source_id,omitempty"`
	At       time.Time       `json:"at"`
}

// Cohort 是用户群体标签（入学年份 / 专业 / 住宿状态），用于冷启动。
type Cohort struct {
	Year         int    `json:"year"`
	Major        string `json:"major"`
	LivingStatus string `json:"living_status"`
}

// BehaviorSummary 是行为事件在 30 天窗口内的派生聚合。
// 读取方只依赖聚合，不回放原始日志。
type BehaviorSummary struct {
	// CategoryCounts / KindCounts 是窗口内按品类与内容类型的计数。
	CategoryCounts map[string]float64
	KindCounts     map[ContentKind]float64

	// SourceCounts 是窗口内按来源（空间/创建者）的计数，社交与亲和度信号使用。
	SourceCounts map[string]float64

	// EventCount 是窗口内合格事件总数，阶段判定使用。
	EventCount int

	// HourHistogram 是 0..23 各小时的活跃计数，通知投放时机使用。
	HourHistogram [24]int

	// LastVisit 是窗口内最近一次事件时间；Feed 的 "已读完" 边界使用。
	LastVisit time.Time
}

// PeakHours 返回活跃度最高的小时，按计数降序、同计数按小时升序。
func (b *BehaviorSummary) PeakHours(n int) []int {
	type hc struct {
		hour  int
		count int
	}
	hcs := make([]hc, 0, 24)
	for h, c := range b.HourHistogram {
		if c > 0 {
			hcs = append(hcs, hc{hour: h, count: c})
		}
	}
	sort.Slice(hcs, func(i, j int) bool {
		if hcs[i].count != hcs[j].count {
			return hcs[i].count > hcs[j].count
		}
		return hcs[i].hour < hcs[j].hour
	})
	if n > 0 && len(hcs) > n {
		hcs = hcs[:n]
	}
	out := make([]int, 0, len(hcs))
	for _, e := range hcs {
		out = append(out, e.hour)
	}
	return out
}

// UserSignalProfile 是用户信号画像：排序引擎与通知时机策略共享的唯一数据模型。
//
// 维度与用途：
//
//	显式兴趣      冷启动打分核心
//	群体标签      冷启动群体热度
//	行为聚合      温/热阶段打分、Feed 调权、通知时机
//	兴趣向量      热阶段向量相似度（缺失时降级为标签重叠）
//
// 生命周期：首次行为事件时创建；摄入钩子（外部）在每个合格事件后更新；
// 用户主动重置时仅清空行为部分，显式信号保留。
type UserSignalProfile struct {
	UserID   string
	CampusID string

	// ExplicitInterests 是用户显式声明的兴趣，key 为品类，value 为权重 (0-1]。
	ExplicitInterests map[string]float64

	Cohort Cohort

	// Behavior 是 30 天窗口聚合；全新用户为 nil。
	Behavior *BehaviorSummary

	// MutedSources 是用户静音的来源，命中即不出现在任何个性化结果中。
	MutedSources map[string]bool

	// InterestVector 是外部嵌入服务产出的兴趣向量；nil 表示缺失。
	InterestVector []float64

	Personalization PersonalizationLevel

	UpdateTime time.Time
}

func NewUserSignalProfile(userID, campusID string) *UserSignalProfile {
	return &UserSignalProfile{
		UserID:            userID,
		CampusID:          campusID,
		ExplicitInterests: make(map[string]float64),
		MutedSources:      make(map[string]bool),
		Personalization:   PersonalizationStandard,
		UpdateTime:        time.Now(),
	}
}

// Stage 根据行为样本量推导画像阶段。
func (p *UserSignalProfile) Stage(hotThreshold int) ProfileStage {
	if hotThreshold <= 0 {
		hotThreshold = DefaultHotThreshold
	}
	if p == nil || p.Behavior == nil || p.Behavior.EventCount == 0 {
		return StageCold
	}
	if p.Behavior.EventCount >= hotThreshold {
		return StageHot
	}
	return StageWarm
}

// IsMuted 检查来源是否被静音。
func (p *UserSignalProfile) IsMuted(sourceID string) bool {
	if p == nil || p.MutedSources == nil || sourceID == "" {
		return false
	}
	return p.MutedSources[sourceID]
}

// InterestWeight 返回品类的综合兴趣权重：显式声明与行为计数归一后的较大值。
func (p *UserSignalProfile) InterestWeight(category string) float64 {
	if p == nil {
		return 0
	}
	w := p.ExplicitInterests[category]
	if p.Behavior != nil && len(p.Behavior.CategoryCounts) > 0 {
		var maxCount float64
		for _, c := range p.Behavior.CategoryCounts {
			if c > maxCount {
				maxCount = c
			}
		}
		if maxCount > 0 {
			if bw := p.Behavior.CategoryCounts[category] / maxCount; bw > w {
				w = bw
			}
		}
	}
	return w
}

// TopCategories 返回预测兴趣最高的 n 个品类（serendipity 池的排除集）。
func (p *UserSignalProfile) TopCategories(n int) []string {
	if p == nil {
		return nil
	}
	weights := make(map[string]float64)
	for c := range p.ExplicitInterests {
		weights[c] = p.InterestWeight(c)
	}
	if p.Behavior != nil {
		for c := range p.Behavior.CategoryCounts {
			weights[c] = p.InterestWeight(c)
		}
	}
	cats := make([]string, 0, len(weights))
	for c := range weights {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool {
		if weights[cats[i]] != weights[cats[j]] {
			return weights[cats[i]] > weights[cats[j]]
		}
		return cats[i] < cats[j]
	})
	if n > 0 && len(cats) > n {
		cats = cats[:n]
	}
	return cats
}

// SignalProfileReader 是行为画像的只读接口，排序引擎与通知时机策略共同消费。
// 聚合逻辑只实现一次（signal 包），禁止在消费方重复实现。
type SignalProfileReader interface {
	// Profile 读取用户画像；用户无任何信号时返回 nil（不是错误）。
	Profile(ctx context.Context, userID string) (*UserSignalProfile, error)
}
