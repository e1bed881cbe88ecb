package engine

import (
	"context"
	"time"

	"github.com/campuskit/discovery/core"
	"github.com/campuskit/discovery/feed"
	"github.com/campuskit/discovery/filter"
	"github.com/campuskit/discovery/notify"
	"github.com/campuskit/discovery/pipeline"
	"github.com/campuskit/discovery/rerank"
)

// Search 执行混合检索：关键词 + 语义 + 时效三路并发召回，
// 倒数排名融合出单一有序列表。userID 可为空（匿名搜索无个性化）。
func (e *Engine) Search(ctx context.Context, query, campusID, userID string, limit int) ([]*core.Item, error) {
	rctx := &core.RankingContext{
		UserID:   userID,
		CampusID: campusID,
		Surface:  core.SurfaceSearch,
		Query:    query,
		Limit:    limit,
	}
	if err := rctx.Validate(); err != nil {
		return nil, err
	}
	rctx.Profile = e.profile(ctx, userID)

	p := &pipeline.Pipeline{Nodes: []pipeline.Node{
		e.searchFanout,
		&filter.Node{Filters: e.filters},
		&rerank.TopN{N: rctx.Limit},
	}}
	return p.Run(ctx, rctx, nil)
}

// GetFeed 返回个性化活动流的一页：候选全集来自内容协作方
// （可见性已由其裁剪），多因子打分排序后按游标翻页，
// 翻到"已读完"边界即发终态标记。
func (e *Engine) GetFeed(ctx context.Context, userID, campusID, cursor string, limit int) (*feed.Page, error) {
	rctx := &core.RankingContext{
		UserID:   userID,
		CampusID: campusID,
		Surface:  core.SurfaceFeed,
		Limit:    limit,
	}
	if err := rctx.Validate(); err != nil {
		return nil, err
	}
	rctx.Profile = e.profile(ctx, userID)

	items, err := e.feedCandidates(ctx, rctx)
	if err != nil {
		return nil, err
	}

	p := &pipeline.Pipeline{Nodes: []pipeline.Node{
		&filter.Node{Filters: e.filters},
		e.feedScorer,
		&rerank.Consecutive{},
	}}
	ranked, err := p.Run(ctx, rctx, items)
	if err != nil {
		return nil, err
	}
	ranked = attributable(ranked)

	var lastVisit time.Time
	if rctx.Profile != nil && rctx.Profile.Behavior != nil {
		lastVisit = rctx.Profile.Behavior.LastVisit
	}
	page := feed.Paginate(ranked, cursor, limit, feed.Lookback(lastVisit, rctx.At()))
	return &page, nil
}

// feedCandidates 拉取用户可见内容并转为候选。
// 协作方不被信任：跨校区的内容在此丢弃并计入数据质量信号。
func (e *Engine) feedCandidates(ctx context.Context, rctx *core.RankingContext) ([]*core.Item, error) {
	if e.opts.Content == nil {
		return nil, nil
	}
	refs, err := e.opts.Content.AccessibleContent(ctx, rctx.UserID, rctx.CampusID, nil)
	if err != nil {
		return nil, err
	}
	items := make([]*core.Item, 0, len(refs))
	for _, ref := range refs {
		if ref == nil {
			continue
		}
		if ref.CampusID != rctx.CampusID {
			e.monitor.RecordCrossCampus("content")
			continue
		}
		items = append(items, ref.Item())
	}
	return items, nil
}

// GetRecommendations 返回发现渠道的推荐列表：并发候选生成 → 画像阶段
// 打分 → serendipity 配额 → 头部品类上限 → 截断。每个输出条目
// 必然携带至少一个归因信号。kind 非空时只推该内容类型。
func (e *Engine) GetRecommendations(ctx context.Context, userID, campusID string, kind core.ContentKind, limit int) ([]*core.Item, error) {
	rctx := &core.RankingContext{
		UserID:   userID,
		CampusID: campusID,
		Surface:  core.SurfaceRecommend,
		Limit:    limit,
	}
	if err := rctx.Validate(); err != nil {
		return nil, err
	}
	rctx.Profile = e.profile(ctx, userID)

	filters := e.filters
	if kind != "" {
		filters = append([]filter.Filter{&filter.KindOnly{Allow: kind}}, filters...)
	}

	p := &pipeline.Pipeline{Nodes: []pipeline.Node{
		e.recommendFanout,
		&filter.Node{Filters: filters},
		e.strategy,
		e.serendipity,
		&rerank.CategoryCap{},
		&rerank.TopN{N: rctx.Limit},
	}}
	out, err := p.Run(ctx, rctx, nil)
	if err != nil {
		return nil, err
	}
	return attributable(out), nil
}

// ScheduleNotification 为触发事件决定投放时间。
// 返回零值时间表示被配额静默抑制（合法终态，非错误）。
func (e *Engine) ScheduleNotification(ctx context.Context, trig *notify.Trigger) (time.Time, error) {
	n, err := e.policy.Schedule(ctx, trig)
	if err != nil {
		return time.Time{}, err
	}
	if n == nil {
		return time.Time{}, nil
	}
	return n.ScheduledAt, nil
}
