package recommend

import (
	"context"
	"math/rand"
	"sync"

	"github.com/campuskit/discovery/core"
	"github.com/campuskit/discovery/pipeline"
	"github.com/campuskit/discovery/pkg/utils"
)

// drawFloor 是加权抽签的权重下限：零分候选也有机会被抽中，
// 否则 serendipity 会退化成换了名字的相关性信号。
const drawFloor = 0.05

// Serendipity 是输出位的强制配额节点：每 5 个输出位至少 1 个来自
// 用户 top-3 预测兴趣品类之外的候选池，按加权随机抽取（不取池内最高分，
// 避免配额塌缩回相关性排序）。抽中项标记 serendipity 归因。
//
// 配额按窗口交错铺放（每 4 个相关性位跟 1 个配额位），
// 保证任意连续 5 位中都有配额项。候选池不足时尽量填充，绝不补相关性项冒充。
type Serendipity struct {
	// Size 目标输出规模；<=0 时取 rctx.Limit，再缺省取输入长度。
	Size int

	// TopCategories 计入排除集的预测兴趣品类数，<=0 时取 3。
	TopCategories int

	// Rand 抽签随机源；为空时使用全局源。调用方注入固定种子可复现。
	Rand *rand.Rand

	mu sync.Mutex
}

func (n *Serendipity) Name() string {
	return "recommend.serendipity"
}

func (n *Serendipity) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *Serendipity) Process(
	_ context.Context,
	rctx *core.RankingContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 || rctx == nil {
		return items, nil
	}

	size := n.Size
	if size <= 0 {
		size = rctx.Limit
	}
	if size <= 0 || size > len(items) {
		size = len(items)
	}
	slots := (size + 4) / 5

	topN := n.TopCategories
	if topN <= 0 {
		topN = 3
	}
	excluded := make(map[string]bool, topN)
	if rctx.Profile != nil {
		for _, c := range rctx.Profile.TopCategories(topN) {
			excluded[c] = true
		}
	}

	pool := make([]*core.Item, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		if !excluded[it.Category] {
			pool = append(pool, it)
		}
	}

	drawn := n.draw(pool, slots)
	picked := make(map[*core.Item]bool, len(drawn))
	for _, it := range drawn {
		it.AddReason(core.ReasonSerendipity)
		it.PutLabel("slot", utils.Label{Value: "serendipity", Source: "recommend"})
		picked[it] = true
	}

	relevant := make([]*core.Item, 0, size)
	for _, it := range items {
		if it == nil || picked[it] {
			continue
		}
		relevant = append(relevant, it)
		if len(relevant) >= size-len(drawn) {
			break
		}
	}

	// 交错铺放：每 4 个相关性位跟 1 个配额位。
	out := make([]*core.Item, 0, size)
	ri, di := 0, 0
	for len(out) < size && (ri < len(relevant) || di < len(drawn)) {
		for k := 0; k < 4 && ri < len(relevant) && len(out) < size; k++ {
			out = append(out, relevant[ri])
			ri++
		}
		if di < len(drawn) && len(out) < size {
			out = append(out, drawn[di])
			di++
		} else if ri >= len(relevant) {
			break
		}
	}
	return out, nil
}

// draw 从候选池加权随机抽取 count 个（不放回），权重为分数加下限。
func (n *Serendipity) draw(pool []*core.Item, count int) []*core.Item {
	if count > len(pool) {
		count = len(pool)
	}
	if count <= 0 {
		return nil
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	remaining := make([]*core.Item, len(pool))
	copy(remaining, pool)
	out := make([]*core.Item, 0, count)

	for len(out) < count && len(remaining) > 0 {
		var sum float64
		for _, it := range remaining {
			sum += it.Score + drawFloor
		}
		r := n.float64() * sum
		idx := len(remaining) - 1
		for i, it := range remaining {
			r -= it.Score + drawFloor
			if r <= 0 {
				idx = i
				break
			}
		}
		out = append(out, remaining[idx])
		remaining = append(remaining[:idx], remaining[idx+1:]...)
	}
	return out
}

func (n *Serendipity) float64() float64 {
	if n.Rand != nil {
		return n.Rand.Float64()
	}
	return rand.Float64()
}
