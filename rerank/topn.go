package rerank

import (
	"context"

	"github.com/campuskit/discovery/core"
	"github.com/campuskit/discovery/pipeline"
)

// TopN 在重排之后截取前 N 个物品，控制各 surface 的返回规模。
// N <= 0 时不截断。
type TopN struct {
	N int
}

func (n *TopN) Name() string {
	return "rerank.topn"
}

func (n *TopN) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *TopN) Process(
	_ context.Context,
	_ *core.RankingContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if n.N <= 0 || len(items) <= n.N {
		return items, nil
	}
	return items[:n.N], nil
}
