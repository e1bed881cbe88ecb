package pipeline

import (
	"context"

	"github.com/campuskit/discovery/core"
)

// Kind 用于标记 Node 类型，方便观测/治理/编排（例如按阶段打点）。
type Kind string

const (
	KindRetrieve    Kind = "retrieve"    // 检索阶段：生成候选集
	KindFilter      Kind = "filter"      // 过滤阶段：剔除不符合约束的候选
	KindScore       Kind = "score"       // 打分阶段：对候选打分并排序
	KindReRank      Kind = "rerank"      // 重排阶段：多样性/serendipity 等输出约束
	KindPostProcess Kind = "postprocess" // 后处理阶段：归因补齐、截断等
)

// Node 是 Pipeline 的最小可扩展单元。
// 统一采用"输入 items -> 输出 items"的形态，检索生成、过滤截断、重排均适用。
type Node interface {
	Name() string
	Kind() Kind

	Process(
		ctx context.Context,
		rctx *core.RankingContext,
		items []*core.Item,
	) ([]*core.Item, error)
}

// NodeBuilder 根据配置构建 Node，供配置驱动的编排使用。
type NodeBuilder func(config map[string]any) (Node, error)
