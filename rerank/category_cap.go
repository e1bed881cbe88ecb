package rerank

import (
	"context"

	"github.com/campuskit/discovery/core"
	"github.com/campuskit/discovery/pipeline"
)

// CategoryCap 限制头部窗口内同类目的数量：窗口（默认前 5）中同一类目
// 最多出现 Cap（默认 2）个，超出的物品被贪心地顺延到窗口之后，
// 窗口外的物品保持原有相对顺序。
//
// 类目来源优先级：
// - item.Category
// - label["category"].Value
type CategoryCap struct {
	// Window 头部窗口大小，<=0 时取 5。
	Window int
	// Cap 窗口内同类目上限，<=0 时取 2。
	Cap int
}

func (n *CategoryCap) Name() string {
	return "rerank.category_cap"
}

func (n *CategoryCap) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *CategoryCap) Process(
	_ context.Context,
	_ *core.RankingContext,
	items []*core.Item,
) ([]*core.Item, error) {
	window := n.Window
	if window <= 0 {
		window = 5
	}
	limit := n.Cap
	if limit <= 0 {
		limit = 2
	}
	if len(items) <= limit {
		return items, nil
	}

	pending := make([]*core.Item, 0, len(items))
	for _, it := range items {
		if it != nil {
			pending = append(pending, it)
		}
	}

	out := make([]*core.Item, 0, len(pending))
	counts := make(map[string]int, 8)

	for len(pending) > 0 && len(out) < window {
		picked := -1
		for i, it := range pending {
			cate := categoryOf(it)
			if cate != "" && counts[cate] >= limit {
				continue
			}
			picked = i
			break
		}
		// 剩余类目全部触顶：放弃约束，按原序填满窗口。
		if picked < 0 {
			picked = 0
		}

		it := pending[picked]
		pending = append(pending[:picked], pending[picked+1:]...)
		if cate := categoryOf(it); cate != "" {
			counts[cate]++
		}
		out = append(out, it)
	}

	return append(out, pending...), nil
}

func categoryOf(it *core.Item) string {
	if it.Category != "" {
		return it.Category
	}
	if it.Labels != nil {
		if lbl, ok := it.Labels["category"]; ok {
			return lbl.Value
		}
	}
	return ""
}
