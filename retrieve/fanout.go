package retrieve

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/campuskit/discovery/core"
	"github.com/campuskit/discovery/fusion"
	"github.com/campuskit/discovery/pipeline"
	"github.com/campuskit/discovery/pkg/utils"
)

// Fanout 是检索 Node：并发执行全部检索源，经倒数排名融合输出单一候选列表。
//
// 失败软化：单个源的超时或错误就地恢复为空贡献，绝不阻塞其他源、
// 绝不让请求失败。全局预算由调用方通过 Budget 或外层 ctx 控制。
// 调用方取消后（搜索按键被新请求取代等），任何源的结果都不再被消费。
type Fanout struct {
	Sources []Source

	// Weights 是各检索源的融合权重（按 Source.Name 取），缺省 1.0。
	Weights map[string]float64

	// SourceTimeout 是单个源的超时，0 表示 DefaultSourceTimeout。
	SourceTimeout time.Duration

	// Budget 是本次 fan-out 的全局预算（搜索 300ms / 推荐候选 500ms），
	// 0 表示完全由外层 ctx 决定。
	Budget time.Duration

	// K 是倒数排名融合的平滑常数，0 表示 fusion.DefaultRRFK。
	K float64

	// Monitor 记录源超时/出错（数据质量信号），可为空。
	Monitor *fusion.QualityMonitor
}

func (n *Fanout) Name() string        { return "retrieve.fanout" }
func (n *Fanout) Kind() pipeline.Kind { return pipeline.KindRetrieve }

func (n *Fanout) Process(
	ctx context.Context,
	rctx *core.RankingContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	if len(n.Sources) == 0 {
		return nil, nil
	}

	if n.Budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.Budget)
		defer cancel()
	}

	srcTimeout := n.SourceTimeout
	if srcTimeout <= 0 {
		srcTimeout = DefaultSourceTimeout
	}

	var (
		mu    sync.Mutex
		lists = make([]fusion.SourceList, 0, len(n.Sources))
		eg, _ = errgroup.WithContext(ctx)
	)

	for _, src := range n.Sources {
		s := src
		eg.Go(func() error {
			srcCtx, cancel := context.WithTimeout(ctx, srcTimeout)
			defer cancel()

			items, err := s.Retrieve(srcCtx, rctx)
			if err != nil {
				// 超时或错误：空贡献，不中断其他源
				if n.Monitor != nil {
					if errors.Is(err, context.DeadlineExceeded) || core.IsTimeout(err) {
						n.Monitor.RecordSourceTimeout(s.Name())
					} else {
						n.Monitor.RecordSourceError(s.Name())
					}
				}
				return nil
			}
			if srcCtx.Err() != nil {
				// 超时后到达的结果不再消费
				if n.Monitor != nil {
					n.Monitor.RecordSourceTimeout(s.Name())
				}
				return nil
			}

			for rank, it := range items {
				if it == nil {
					continue
				}
				it.RetrieverRank = rank
				it.RetrieverScore = it.Score
				it.PutLabel("retriever", utils.Label{Value: s.Name(), Source: "retrieve"})
			}

			weight := 1.0
			if w, ok := n.Weights[s.Name()]; ok {
				weight = w
			}

			mu.Lock()
			lists = append(lists, fusion.SourceList{Name: s.Name(), Weight: weight, Items: items})
			mu.Unlock()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil && errors.Is(err, context.Canceled) {
		// 调用方取消：整次 fan-out 的结果作废
		return nil, err
	}

	return fusion.Fuse(rctx.CampusID, lists, n.K, n.Monitor), nil
}
