package rerank

import (
	"context"

	"github.com/campuskit/discovery/core"
	"github.com/campuskit/discovery/pipeline"
)

// Consecutive 限制同一内容类型的连续出现次数（默认 2），用于信息流的
// 节奏控制：连续超限的物品会被顺延到第一个可插入的位置，而不是丢弃。
// 若剩余物品全部同型导致无法满足约束，则按原序输出（宁可破坏节奏也不缺位）。
type Consecutive struct {
	// MaxRun 允许的最大连续同型次数，<=0 时取 2。
	MaxRun int
}

func (n *Consecutive) Name() string {
	return "rerank.consecutive"
}

func (n *Consecutive) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *Consecutive) Process(
	_ context.Context,
	_ *core.RankingContext,
	items []*core.Item,
) ([]*core.Item, error) {
	maxRun := n.MaxRun
	if maxRun <= 0 {
		maxRun = 2
	}
	if len(items) <= maxRun {
		return items, nil
	}

	pending := make([]*core.Item, 0, len(items))
	for _, it := range items {
		if it != nil {
			pending = append(pending, it)
		}
	}

	out := make([]*core.Item, 0, len(pending))
	run := 0
	var runKind core.ContentKind

	for len(pending) > 0 {
		picked := -1
		for i, it := range pending {
			if run >= maxRun && it.Kind == runKind {
				continue
			}
			picked = i
			break
		}
		// 剩余全部同型，约束无法满足：按原序放行。
		if picked < 0 {
			picked = 0
		}

		it := pending[picked]
		pending = append(pending[:picked], pending[picked+1:]...)

		if it.Kind == runKind {
			run++
		} else {
			runKind = it.Kind
			run = 1
		}
		out = append(out, it)
	}

	return out, nil
}
