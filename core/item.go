package core

import "github.com/campuskit/discovery/pkg/utils"

// ContentKind 是可被发现的内容类型（空间 / 活动 / 人 / 帖子）。
type ContentKind string

const (
	KindSpace  ContentKind = "space"
	KindEvent  ContentKind = "event"
	KindPerson ContentKind = "person"
	KindPost   ContentKind = "post"
)

// ValidContentKind 校验内容类型是否合法。
func ValidContentKind(k ContentKind) bool {
	switch k {
	case KindSpace, KindEvent, KindPerson, KindPost:
		return true
	default:
		return false
	}
}

// ReasonCode 是可归因信号的封闭枚举。
// 任何经由推荐或个性化 Feed 输出的 Item 必须至少携带一个 ReasonCode，
// 供下游渲染一行 "为什么推荐给你"。
type ReasonCode string

const (
	ReasonInterestMatch    ReasonCode = "interest_match"
	ReasonCategoryMatch    ReasonCode = "category_match"
	ReasonCohortPopularity ReasonCode = "cohort_popularity"
	ReasonBehavioral       ReasonCode = "behavioral_affinity"
	ReasonSocialProof      ReasonCode = "social_proof"
	ReasonSocialGraph      ReasonCode = "social_graph"
	ReasonVectorSimilarity ReasonCode = "vector_similarity"
	ReasonMomentum         ReasonCode = "momentum"
	ReasonTemporalFit      ReasonCode = "temporal_fit"
	ReasonSerendipity      ReasonCode = "serendipity"
	ReasonEngagement       ReasonCode = "engagement"
	ReasonToolValue        ReasonCode = "tool_value"
	ReasonRecency          ReasonCode = "recency"
	ReasonQuality          ReasonCode = "quality"
)

// Item 是排序链路中的统一承载结构：候选项和打分结果共用同一载体。
// 检索阶段填充 RetrieverScore/RetrieverRank；融合与打分阶段覆写 Score；
// Labels 用于链路观测，Reasons 用于面向用户的可解释性。
type Item struct {
	ID       string
	Kind     ContentKind
	CampusID string

	// Category 是内容所属品类（photography / music / sports ...），
	// 多样性与 serendipity 约束基于它执行。
	Category string

	// SourceID 是产生该内容的主体（空间 ID 或创建者 ID），
	// 静音过滤与通知分组基于它执行。
	SourceID string

	Score          float64
	RetrieverScore float64
	RetrieverRank  int

	Features map[string]float64
	Meta     map[string]any
	Labels   map[string]utils.Label
	Reasons  []ReasonCode
}

func NewItem(id string, kind ContentKind) *Item {
	return &Item{
		ID:       id,
		Kind:     kind,
		Features: make(map[string]float64),
		Meta:     make(map[string]any),
		Labels:   make(map[string]utils.Label),
	}
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}

// AddReason 追加一个归因信号，去重。
func (it *Item) AddReason(code ReasonCode) {
	for _, r := range it.Reasons {
		if r == code {
			return
		}
	}
	it.Reasons = append(it.Reasons, code)
}

// HasReason 检查是否携带某个归因信号。
func (it *Item) HasReason(code ReasonCode) bool {
	for _, r := range it.Reasons {
		if r == code {
			return true
		}
	}
	return false
}

// CloneShallow 复制 Item 本体，map/slice 与原 Item 共享。
// 用于融合阶段在不改动召回方切片的前提下重排。
func (it *Item) CloneShallow() *Item {
	cp := *it
	return &cp
}
