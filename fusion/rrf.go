// Package fusion 实现异构候选列表的倒数排名融合（Reciprocal Rank Fusion），
// 搜索与推荐候选生成共用。
package fusion

import (
	"sort"

	"github.com/campuskit/discovery/core"
	"github.com/campuskit/discovery/pkg/utils"
)

// DefaultRRFK 是 RRF 的平滑常数。取 60 使 rank-1 与 rank-2 的差距
// 小于跨源一致性带来的增益：多源同时命中的候选压过单源高位候选。
const DefaultRRFK = 60.0

// SourceList 是一个检索源的有序候选列表及其融合权重。
type SourceList struct {
	Name   string
	Weight float64
	Items  []*core.Item
}

// Fuse 合并多个检索源的候选列表。
//
// 算法：候选在某源列表中处于 0 基排名 r 时，获得 weight/(k+r+1) 的贡献；
// 出现在多个源中的候选贡献求和。
//
// 校区隔离在这里统一校验：来源内容的 campusId 与请求不一致的候选
// 在打分前丢弃（而非打分后过滤），坏掉的检索源不可能把跨校区数据
// 漏进排序结果。丢弃静默进行，仅记入质量监控。
//
// 排序：聚合分降序 → 单源最大贡献降序 → 候选 ID 字典序升序。
// 第三键保证同分时（即使内容类型不同）输出完全确定，
// 与检索源的完成顺序无关。
func Fuse(campusID string, lists []SourceList, k float64, monitor *QualityMonitor) []*core.Item {
	if len(lists) == 0 {
		return nil
	}
	if k <= 0 {
		k = DefaultRRFK
	}

	// 按源名排序，保证标签合并等附带效应与并发完成顺序无关
	sorted := make([]SourceList, len(lists))
	copy(sorted, lists)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	type fused struct {
		item            *core.Item
		score           float64
		maxContribution float64
	}
	agg := make(map[string]*fused)

	for _, list := range sorted {
		weight := list.Weight
		if weight == 0 {
			weight = 1.0
		}
		for rank, it := range list.Items {
			if it == nil {
				continue
			}
			if it.CampusID != campusID {
				// 跨校区候选：打分前丢弃，数据质量信号
				if monitor != nil {
					monitor.RecordCrossCampus(list.Name)
				}
				continue
			}

			contribution := weight / (k + float64(rank) + 1)
			f, ok := agg[it.ID]
			if !ok {
				cp := it.CloneShallow()
				// 标签 map 换成自己的副本：后续的多源合并与 fusion
				// 标签写入不得改动召回方的原始 Item
				cp.Labels = make(map[string]utils.Label, len(it.Labels))
				for key, lbl := range it.Labels {
					cp.Labels[key] = lbl
				}
				f = &fused{item: cp}
				agg[it.ID] = f
			} else {
				// 多源命中：合并观测标签
				for key, lbl := range it.Labels {
					f.item.PutLabel(key, lbl)
				}
			}
			f.score += contribution
			if contribution > f.maxContribution {
				f.maxContribution = contribution
			}
		}
	}

	out := make([]*fused, 0, len(agg))
	for _, f := range agg {
		f.item.Score = f.score
		f.item.PutLabel("fusion", utils.Label{Value: "rrf", Source: "fusion"})
		out = append(out, f)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		if out[i].maxContribution != out[j].maxContribution {
			return out[i].maxContribution > out[j].maxContribution
		}
		return out[i].item.ID < out[j].item.ID
	})

	items := make([]*core.Item, 0, len(out))
	for _, f := range out {
		items = append(items, f.item)
	}
	return items
}
