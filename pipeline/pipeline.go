package pipeline

import (
	"context"

	"github.com/campuskit/discovery/core"
)

// Pipeline 是排序链路的核心抽象：把一个业务面的逻辑拆成可组合的 Node 链。
// 每次请求独立执行，Node 之间只通过 items 传递，不共享可变状态。
type Pipeline struct {
	Nodes []Node
}

func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RankingContext,
	items []*core.Item,
) ([]*core.Item, error) {
	cur := items
	for _, node := range p.Nodes {
		if err := ctx.Err(); err != nil {
			// 调用方取消后不再消费任何 Node 结果
			return nil, err
		}
		next, err := node.Process(ctx, rctx, cur)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}
