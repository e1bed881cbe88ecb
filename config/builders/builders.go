// Package builders 注册内置 Node 的配置构建器。
// 在入口处空导入本包即可让 YAML/JSON 配置驱动的 Pipeline 使用这些类型。
package builders

import (
	"fmt"

	"github.com/campuskit/discovery/config"
	"github.com/campuskit/discovery/core"
	"github.com/campuskit/discovery/feed"
	"github.com/campuskit/discovery/filter"
	"github.com/campuskit/discovery/pipeline"
	"github.com/campuskit/discovery/pkg/conv"
	"github.com/campuskit/discovery/recommend"
	"github.com/campuskit/discovery/rerank"
)

func init() {
	config.Register("filter", BuildFilterNode)
	config.Register("rerank.topn", BuildTopN)
	config.Register("rerank.consecutive", BuildConsecutive)
	config.Register("rerank.category_cap", BuildCategoryCap)
	config.Register("feed.scorer", BuildFeedScorer)
	config.Register("recommend.serendipity", BuildSerendipity)
}

// BuildFilterNode 构建组合过滤 Node。
//
// 配置：
//
//	type: filter
//	config:
//	  muted: true
//	  kind: event
//	  rules:
//	    - 'item.kind == "person"'
func BuildFilterNode(cfg map[string]any) (pipeline.Node, error) {
	var filters []filter.Filter
	if conv.ConfigGet(cfg, "muted", false) {
		filters = append(filters, &filter.Muted{})
	}
	if kind := conv.ConfigGet(cfg, "kind", ""); kind != "" {
		filters = append(filters, &filter.KindOnly{Allow: core.ContentKind(kind)})
	}
	if rules, ok := cfg["rules"].([]any); ok {
		for _, r := range rules {
			expr, ok := r.(string)
			if !ok || expr == "" {
				return nil, fmt.Errorf("rule expression must be a non-empty string")
			}
			filters = append(filters, &filter.Rule{Expr: expr})
		}
	}
	return &filter.Node{Filters: filters}, nil
}

// BuildTopN 构建截断 Node。配置：n。
func BuildTopN(cfg map[string]any) (pipeline.Node, error) {
	return &rerank.TopN{N: conv.ConfigGetInt(cfg, "n", 0)}, nil
}

// BuildConsecutive 构建连续同型上限 Node。配置：max_run。
func BuildConsecutive(cfg map[string]any) (pipeline.Node, error) {
	return &rerank.Consecutive{MaxRun: conv.ConfigGetInt(cfg, "max_run", 0)}, nil
}

// BuildCategoryCap 构建头部品类上限 Node。配置：window / cap。
func BuildCategoryCap(cfg map[string]any) (pipeline.Node, error) {
	return &rerank.CategoryCap{
		Window: conv.ConfigGetInt(cfg, "window", 0),
		Cap:    conv.ConfigGetInt(cfg, "cap", 0),
	}, nil
}

// BuildFeedScorer 构建 Feed 打分 Node。
//
// 配置（基准权重，缺省用 feed.DefaultWeights；用户级调权档案
// 需要存储，不从配置构建）：
//
//	config:
//	  engagement: 0.30
//	  quality: 0.20
//	  recency: 0.15
//	  tool_value: 0.15
//	  temporal: 0.10
//	  creator_influence: 0.05
//	  diversity_penalty: 0.05
func BuildFeedScorer(cfg map[string]any) (pipeline.Node, error) {
	base := feed.DefaultWeights()
	base.Engagement = conv.ConfigGetFloat(cfg, "engagement", base.Engagement)
	base.Quality = conv.ConfigGetFloat(cfg, "quality", base.Quality)
	base.Recency = conv.ConfigGetFloat(cfg, "recency", base.Recency)
	base.ToolValue = conv.ConfigGetFloat(cfg, "tool_value", base.ToolValue)
	base.Temporal = conv.ConfigGetFloat(cfg, "temporal", base.Temporal)
	base.CreatorInfluence = conv.ConfigGetFloat(cfg, "creator_influence", base.CreatorInfluence)
	base.DiversityPenalty = conv.ConfigGetFloat(cfg, "diversity_penalty", base.DiversityPenalty)
	return &feed.Scorer{Base: base}, nil
}

// BuildSerendipity 构建 serendipity 配额 Node。配置：size / top_categories。
// 随机源不从配置构建（装配方注入可复现种子）。
func BuildSerendipity(cfg map[string]any) (pipeline.Node, error) {
	return &recommend.Serendipity{
		Size:          conv.ConfigGetInt(cfg, "size", 0),
		TopCategories: conv.ConfigGetInt(cfg, "top_categories", 0),
	}, nil
}
