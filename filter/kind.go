package filter

import (
	"context"

	"github.com/campuskit/discovery/core"
)

// KindOnly 只保留指定内容类型的候选，推荐渠道按类型浏览时使用。
// Allow 为空时不过滤。
type KindOnly struct {
	Allow core.ContentKind
}

func (f *KindOnly) Name() string { return "filter.kind" }

func (f *KindOnly) ShouldFilter(
	_ context.Context,
	_ *core.RankingContext,
	item *core.Item,
) (bool, error) {
	if f.Allow == "" || item == nil {
		return false, nil
	}
	return item.Kind != f.Allow, nil
}
