package engine

import (
	"context"
	"math/rand"
	"time"

	"github.com/campuskit/discovery/core"
	"github.com/campuskit/discovery/feed"
	"github.com/campuskit/discovery/filter"
	"github.com/campuskit/discovery/fusion"
	"github.com/campuskit/discovery/notify"
	"github.com/campuskit/discovery/recommend"
	"github.com/campuskit/discovery/retrieve"
)

// 业务面的全局检索预算。
const (
	SearchBudget    = 300 * time.Millisecond
	RecommendBudget = 500 * time.Millisecond
)

// Options 是引擎装配参数。Store 必填，其余协作方可按部署形态裁剪：
// 缺 Embed/Vectors 时语义检索自动降级，缺 Transport 时通知只调度不投递。
type Options struct {
	// Store 承载检索索引、信号画像、调权档案与通知配额。
	Store core.KeyValueStore

	// Signals 用户信号画像读取端；为空时不加载画像（全员冷启动）。
	Signals core.SignalProfileReader

	// Content 内容协作方，Feed 候选全集的来源。
	Content core.ContentProvider

	Embed   core.EmbeddingService
	Vectors core.VectorService

	// VectorLookup 热阶段逐条向量相似度的取数钩子，可为空（降级标签重叠）。
	VectorLookup recommend.VectorLookup

	// Transport 通知投递通道，可为空。
	Transport core.NotificationTransport

	// Monitor 数据质量监控；为空时自动创建。
	Monitor *fusion.QualityMonitor

	// SourceWeights 检索源融合权重（按源名），缺省 1.0。
	SourceWeights map[string]float64

	// Rules 是 CEL 剔除规则，随配置下发，作用于搜索与推荐候选。
	Rules []string

	// FeedWeights 是 Feed 基准权重，零值取 feed.DefaultWeights。
	FeedWeights feed.Weights

	// HotThreshold 热阶段事件数阈值，<=0 取 core.DefaultHotThreshold。
	HotThreshold int

	// Seed 是 serendipity 抽签种子，0 表示按时间播种。固定种子可复现输出。
	Seed int64
}

// Engine 是查询与排序引擎的对外门面，聚合四个暴露操作：
// Search / GetFeed / GetRecommendations / ScheduleNotification。
//
// 每次请求独立执行且可取消；引擎自身无请求间共享的可变状态
// （监控计数器与 serendipity 随机源各自带锁）。
type Engine struct {
	opts    Options
	monitor *fusion.QualityMonitor

	searchFanout    *retrieve.Fanout
	recommendFanout *retrieve.Fanout

	feedScorer  *feed.Scorer
	strategy    *recommend.Strategy
	serendipity *recommend.Serendipity
	policy      *notify.Policy

	filters []filter.Filter
}

// New 装配引擎。
func New(opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput, "engine: store is required")
	}

	monitor := opts.Monitor
	if monitor == nil {
		monitor = fusion.NewQualityMonitor()
	}

	e := &Engine{opts: opts, monitor: monitor}

	vectorSource := &retrieve.Vector{
		Embed:   opts.Embed,
		Vectors: opts.Vectors,
		Store:   opts.Store,
		Monitor: monitor,
	}
	e.searchFanout = &retrieve.Fanout{
		Sources: []retrieve.Source{
			&retrieve.Keyword{Store: opts.Store},
			vectorSource,
			&retrieve.Temporal{Store: opts.Store},
		},
		Weights: opts.SourceWeights,
		Budget:  SearchBudget,
		Monitor: monitor,
	}
	e.recommendFanout = &retrieve.Fanout{
		Sources: []retrieve.Source{
			vectorSource,
			&retrieve.Social{Store: opts.Store},
			&retrieve.Temporal{Store: opts.Store},
		},
		Weights: opts.SourceWeights,
		Budget:  RecommendBudget,
		Monitor: monitor,
	}

	e.feedScorer = &feed.Scorer{
		Base:     opts.FeedWeights,
		Profiles: &feed.ProfileStore{KV: opts.Store},
	}
	e.strategy = &recommend.Strategy{
		Factors: &recommend.Factors{
			Store:   opts.Store,
			Vectors: opts.VectorLookup,
		},
		HotThreshold: opts.HotThreshold,
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	e.serendipity = &recommend.Serendipity{
		Rand: rand.New(rand.NewSource(seed)),
	}

	e.policy = &notify.Policy{
		Signals:   opts.Signals,
		Store:     opts.Store,
		Transport: opts.Transport,
	}

	e.filters = append(e.filters, &filter.Muted{})
	for _, expr := range opts.Rules {
		e.filters = append(e.filters, &filter.Rule{Expr: expr})
	}

	return e, nil
}

// Monitor 暴露数据质量计数器快照来源。
func (e *Engine) Monitor() *fusion.QualityMonitor {
	return e.monitor
}

// Notifications 暴露通知时机策略（配合外部触发器使用）。
func (e *Engine) Notifications() *notify.Policy {
	return e.policy
}

// profile 读取画像；读取失败不挡请求（按无画像继续）。
func (e *Engine) profile(ctx context.Context, userID string) *core.UserSignalProfile {
	if e.opts.Signals == nil || userID == "" {
		return nil
	}
	p, err := e.opts.Signals.Profile(ctx, userID)
	if err != nil {
		return nil
	}
	return p
}

// attributable 剔除无任何归因信号的条目：不可归因的内容不允许输出。
func attributable(items []*core.Item) []*core.Item {
	out := make([]*core.Item, 0, len(items))
	for _, it := range items {
		if it != nil && len(it.Reasons) > 0 {
			out = append(out, it)
		}
	}
	return out
}
