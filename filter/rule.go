package filter

import (
	"context"

	"github.com/campuskit/discovery/core"
	"github.com/campuskit/discovery/pkg/dsl"
)

// Rule 是规则过滤器：运营侧用 CEL 表达式声明剔除条件，随配置下发。
//
// 示例：
//   - `item.kind == "person"` → 该业务面不出人卡片
//   - `label.retriever == "vector" && item.score < 0.05` → 丢弃低置信语义召回
type Rule struct {
	// Expr 是 CEL 表达式，返回 true 表示剔除。空表达式不剔除任何候选。
	Expr string
}

func (f *Rule) Name() string { return "filter.rule" }

func (f *Rule) ShouldFilter(
	_ context.Context,
	rctx *core.RankingContext,
	item *core.Item,
) (bool, error) {
	if f.Expr == "" || item == nil {
		return false, nil
	}
	matched, err := dsl.NewEval(item, rctx).Evaluate(f.Expr)
	if err != nil {
		// 规则语法错误不把请求搞挂：放行并交由监控发现
		return false, err
	}
	return matched, nil
}
