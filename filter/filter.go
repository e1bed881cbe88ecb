package filter

import (
	"context"

	"github.com/campuskit/discovery/core"
	"github.com/campuskit/discovery/pipeline"
	"github.com/campuskit/discovery/pkg/utils"
)

// Filter 判断一个候选是否应该被剔除。
// 返回 true 表示剔除，false 表示保留。
type Filter interface {
	// Name 返回过滤器名称
	Name() string

	// ShouldFilter 判断候选是否应该被剔除
	ShouldFilter(ctx context.Context, rctx *core.RankingContext, item *core.Item) (bool, error)
}

// Node 是过滤 Node，可以组合多个过滤器。
// 任何一个过滤器命中即剔除；过滤器出错时跳过该过滤器，不中断请求。
type Node struct {
	Filters []Filter
}

func (n *Node) Name() string        { return "filter.node" }
func (n *Node) Kind() pipeline.Kind { return pipeline.KindFilter }

func (n *Node) Process(
	ctx context.Context,
	rctx *core.RankingContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(n.Filters) == 0 || len(items) == 0 {
		return items, nil
	}

	out := make([]*core.Item, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}

		dropped := false
		for _, f := range n.Filters {
			ok, err := f.ShouldFilter(ctx, rctx, item)
			if err != nil {
				continue
			}
			if ok {
				dropped = true
				item.PutLabel("filtered", utils.Label{Value: "true", Source: f.Name()})
				break
			}
		}
		if !dropped {
			out = append(out, item)
		}
	}
	return out, nil
}
