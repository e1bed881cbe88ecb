package core

import (
	"time"

	"github.com/campuskit/discovery/pkg/utils"
)

// Surface 标识发起排序请求的业务面。
type Surface string

const (
	SurfaceSearch    Surface = "search"
	SurfaceFeed      Surface = "feed"
	SurfaceRecommend Surface = "recommend"
)

// RankingContext 承载一次排序请求的用户/校区/场景信息，贯穿整个 Pipeline 透传。
//
// CampusID 是隔离边界：任何检索结果不得跨出请求的校区，
// 该约束在融合层统一校验，不信任各检索源自觉遵守。
type RankingContext struct {
	UserID   string
	CampusID string
	Surface  Surface

	// Query 仅搜索场景使用。
	Query string

	// StrategyHint 是调用方的策略提示（如实验分桶），不改变阶段选择逻辑。
	StrategyHint string

	// Limit 期望返回的条数；候选不足时返回更少，绝不填充无关内容。
	Limit int

	// Profile 是只读的用户信号画像；匿名搜索时可以为空。
	Profile *UserSignalProfile

	// Now 固定本次请求的时间基准，保证同一请求内所有时间衰减一致。
	// 为零值时各组件使用 time.Now()。
	Now time.Time

	// Labels 是请求级标签，可驱动 Pipeline 行为（新用户、降级模式等）。
	Labels map[string]utils.Label

	// Params 请求级扩展参数（分页游标、实验参数等）。
	Params map[string]any
}

// At 返回请求的时间基准。
func (rctx *RankingContext) At() time.Time {
	if rctx.Now.IsZero() {
		return time.Now()
	}
	return rctx.Now
}

// Validate 校验请求合法性。缺失 CampusID、或个性化场景缺失 UserID，
// 是整个引擎唯一对调用方可见的失败，在触达任何检索源之前立即返回。
func (rctx *RankingContext) Validate() error {
	if rctx == nil {
		return ErrMalformedRequest
	}
	if rctx.CampusID == "" {
		return ErrMalformedRequest
	}
	switch rctx.Surface {
	case SurfaceFeed, SurfaceRecommend:
		if rctx.UserID == "" {
			return ErrMalformedRequest
		}
	case SurfaceSearch:
		// 搜索允许匿名
	default:
		return ErrMalformedRequest
	}
	return nil
}

// PutLabel 写入请求级 Label。
func (rctx *RankingContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取请求级 Label。
func (rctx *RankingContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}
