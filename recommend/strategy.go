package recommend

import (
	"context"
	"sort"

	"github.com/campuskit/discovery/core"
	"github.com/campuskit/discovery/pipeline"
	"github.com/campuskit/discovery/pkg/utils"
)

// ReasonShare 是归因门槛：加权贡献占总分比例达到该值的因子
// 进入 reasonCodes；无一达标时取贡献最大的因子兜底。
const ReasonShare = 0.30

// Strategy 是推荐打分节点：按画像阶段从策略表取打分公式，
// 对每个候选计算因子贡献、写分并排序，同时完成归因。
//
// 候选分可能为 0（例如冷启动下与显式兴趣完全无关的候选）；
// 这些候选不在此处丢弃，serendipity 配额依赖它们构成候选池。
type Strategy struct {
	Factors *Factors

	// HotThreshold 进入热阶段的合格事件数，<=0 时取 core.DefaultHotThreshold。
	HotThreshold int
}

func (n *Strategy) Name() string {
	return "recommend.strategy"
}

func (n *Strategy) Kind() pipeline.Kind {
	return pipeline.KindScore
}

func (n *Strategy) Process(
	ctx context.Context,
	rctx *core.RankingContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 || rctx == nil {
		return items, nil
	}

	f := n.Factors
	if f == nil {
		f = &Factors{}
	}

	p := rctx.Profile
	stage := p.Stage(n.HotThreshold)
	scoreFn, ok := Strategies[stage]
	if !ok {
		scoreFn = scoreCold
	}
	now := rctx.At()

	for _, it := range items {
		if it == nil {
			continue
		}
		contribs := scoreFn(ctx, f, p, it, now)
		var total float64
		for _, c := range contribs {
			total += c.Weighted()
		}
		it.Score = total
		it.PutLabel("stage", utils.Label{Value: string(stage), Source: "recommend"})
		attribute(it, contribs, total)
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

// attribute 把主导因子写入 reasonCodes：
// 加权贡献 >= 总分 30% 的因子全部入选；无一达标时取最大贡献因子。
// 总分为 0 的候选不归因，交由后续 serendipity 配额或输出守卫处理。
func attribute(it *core.Item, contribs []Contribution, total float64) {
	if total <= 0 {
		return
	}
	var best Contribution
	hit := false
	for _, c := range contribs {
		w := c.Weighted()
		if w > best.Weighted() {
			best = c
		}
		if w >= total*ReasonShare {
			it.AddReason(c.Code)
			hit = true
		}
	}
	if !hit && best.Weighted() > 0 {
		it.AddReason(best.Code)
	}
}
