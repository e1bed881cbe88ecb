// Package retrieve 实现候选检索：关键词、语义向量、社交图、时间四个
// 并行检索源，以及统一的并发 fan-out。
package retrieve

import (
	"context"
	"encoding/json"
	"time"

	"github.com/campuskit/discovery/core"
)

// DefaultSourceTimeout 是单个检索源的默认超时。
// 超时或出错的源贡献空结果，降低的是质量而不是可用性。
const DefaultSourceTimeout = 150 * time.Millisecond

// Source 表示一个可并发 fan-out 的检索源。
// 契约：在 ctx 超时/取消后尽快返回；错误不会冒泡给最终用户。
type Source interface {
	Name() string
	Retrieve(ctx context.Context, rctx *core.RankingContext) ([]*core.Item, error)
}

// ContentMeta 是检索索引侧存储的内容元数据，
// 由内容侧索引作业写入 hash content:meta:{campus}（字段为内容 ID）。
type ContentMeta struct {
	Kind     core.ContentKind `json:"kind"`
	Category string           `json:"category"`
	SourceID string           `json:"source_id"`
	CampusID string           `json:"campus_id"`
}

// metaKey 是内容元数据 hash 的 key。
func metaKey(campusID string) string { return "content:meta:" + campusID }

// loadMeta 按索引声明的校区补全候选的 kind/category/campus。
// 元数据里的 campus_id 原样带出：错误归属的数据由融合层的
// 校区校验拦截，而不是在这里修正。
func loadMeta(ctx context.Context, kv core.KeyValueStore, campusID string, items []*core.Item) {
	if kv == nil || len(items) == 0 {
		return
	}
	for _, it := range items {
		raw, err := kv.HGet(ctx, metaKey(campusID), it.ID)
		if err != nil {
			continue
		}
		var meta ContentMeta
		if json.Unmarshal(raw, &meta) != nil {
			continue
		}
		if meta.Kind != "" {
			it.Kind = meta.Kind
		}
		it.Category = meta.Category
		it.SourceID = meta.SourceID
		if meta.CampusID != "" {
			it.CampusID = meta.CampusID
		}
	}
}
