package core

import (
	"context"
	"time"
)

// ContentRef 是内容协作方返回的内容引用。
// 排序引擎只读取这些字段打分，内容的存储与可见性归协作方所有。
type ContentRef struct {
	ID       string
	Kind     ContentKind
	CampusID string
	Category string

	// SourceID 是内容所属空间（帖子/活动）或主体自身（空间/人）。
	SourceID string

	// CreatorID 是内容创建者。
	CreatorID string

	CreatedAt time.Time

	// StartAt 仅活动类内容有值；48 小时内开始的内容获得时效加权。
	StartAt *time.Time

	// Tags 是内容的特征标签（品类、主题词），相似度降级时使用。
	Tags map[string]float64

	// 打分因子原始值，由协作方预聚合，均为 [0,1] 归一值。
	Engagement       float64 // 空间参与度
	Quality          float64 // 内容质量
	ToolValue        float64 // 工具交互价值
	CreatorInfluence float64 // 创建者影响力
}

// Item 将 ContentRef 转为排序链路的承载结构。
func (c *ContentRef) Item() *Item {
	it := NewItem(c.ID, c.Kind)
	it.CampusID = c.CampusID
	it.Category = c.Category
	it.SourceID = c.SourceID
	it.Meta["creator_id"] = c.CreatorID
	it.Meta["created_at"] = c.CreatedAt
	if c.StartAt != nil {
		it.Meta["start_at"] = *c.StartAt
	}
	it.Features["engagement"] = c.Engagement
	it.Features["quality"] = c.Quality
	it.Features["tool_value"] = c.ToolValue
	it.Features["creator_influence"] = c.CreatorInfluence
	return it
}

// ContentProvider 是内容协作方的契约。
// 授权与可见性是协作方的责任，排序引擎不做二次鉴权；
// 但 campusId 隔离仍在融合层强制校验，不信任协作方。
type ContentProvider interface {
	// AccessibleContent 返回用户可见的内容集合（Feed 的候选全集）。
	AccessibleContent(ctx context.Context, userID, campusID string, kinds []ContentKind) ([]*ContentRef, error)
}

// EmbeddingService 是嵌入服务的契约（外部、不透明的向量产出方）。
// 不可用是一等返回值而非异常：available 为 false 时调用方降级为标签相似度。
type EmbeddingService interface {
	Embed(ctx context.Context, text string) (vector []float64, available bool)
}

// NotificationClass 是触发事件的投放类别。
type NotificationClass string

const (
	// NotifyTransactional 事务类：绕过所有时机逻辑，立即投递。
	NotifyTransactional NotificationClass = "transactional"
	// NotifyDiscovery 发现类：按用户活跃时段调度，受配额约束。
	NotifyDiscovery NotificationClass = "discovery"
	// NotifyReEngagement 召回类：按用户活跃时段调度，受配额约束。
	NotifyReEngagement NotificationClass = "re_engagement"
)

// Notification 是调度后的通知。同一来源 30 分钟窗口内的多条
// 发现/召回通知必须合并为一条分组通知（GroupCount > 1）。
type Notification struct {
	UserID      string
	SourceID    string
	Class       NotificationClass
	ItemID      string // 代表项
	GroupCount  int    // 合并条数，>= 1
	ScheduledAt time.Time
}

// NotificationTransport 是投递通道的契约，对本引擎而言发后即忘，
// 投递失败是通道自己的责任。
type NotificationTransport interface {
	Deliver(ctx context.Context, n *Notification) error
}
