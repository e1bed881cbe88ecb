package filter

import (
	"context"

	"github.com/campuskit/discovery/core"
)

// Muted 剔除来源命中用户静音集合的候选。
// 静音集合来自信号画像；无画像的请求（匿名搜索）直接放行。
type Muted struct{}

func (f *Muted) Name() string { return "filter.muted" }

func (f *Muted) ShouldFilter(
	_ context.Context,
	rctx *core.RankingContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	if rctx == nil || rctx.Profile == nil {
		return false, nil
	}
	if rctx.Profile.IsMuted(item.SourceID) {
		return true, nil
	}
	// 来源即自身的内容（空间/人卡片）按自身 ID 判静音
	return rctx.Profile.IsMuted(item.ID), nil
}
