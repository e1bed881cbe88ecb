package retrieve

import (
	"context"
	"sort"
	"strings"

	"github.com/campuskit/discovery/core"
	"github.com/campuskit/discovery/fusion"
	"github.com/campuskit/discovery/pkg/utils"
)

// Vector 是语义检索源：查询文本（或用户兴趣向量）经嵌入服务转为向量，
// 到向量索引中检索相近内容。
//
// 嵌入服务不可用是一等状态：此时降级为显式兴趣标签的集合重叠检索，
// 请求照常有结果，质量下降但可用性不变。
type Vector struct {
	Embed   core.EmbeddingService
	Vectors core.VectorService

	// Store 提供元数据补全与降级检索用的品类索引。
	Store core.KeyValueStore

	// Collection 按校区映射向量集合名；为空时使用 "content:" + campusID。
	Collection func(campusID string) string

	// TopK 返回候选上限，0 表示 50。
	TopK int

	// Monitor 记录降级事件，可为空。
	Monitor *fusion.QualityMonitor
}

func (r *Vector) Name() string { return "vector" }

func (r *Vector) Retrieve(ctx context.Context, rctx *core.RankingContext) ([]*core.Item, error) {
	if r.Vectors == nil || rctx == nil {
		return nil, nil
	}

	topK := r.TopK
	if topK <= 0 {
		topK = 50
	}

	vec := r.queryVector(ctx, rctx)
	if vec == nil {
		// 向量不可得：标签重叠降级
		if r.Monitor != nil {
			r.Monitor.RecordEmbeddingFallback()
		}
		return r.tagFallback(ctx, rctx, topK)
	}

	collection := "content:" + rctx.CampusID
	if r.Collection != nil {
		collection = r.Collection(rctx.CampusID)
	}

	result, err := r.Vectors.Search(ctx, &core.VectorSearchRequest{
		Collection: collection,
		Vector:     vec,
		TopK:       topK,
		Metric:     "cosine",
	})
	if err != nil {
		return nil, err
	}

	out := make([]*core.Item, 0, len(result.Items))
	for _, v := range result.Items {
		it := core.NewItem(v.ID, "")
		it.CampusID = rctx.CampusID
		it.Score = v.Score
		out = append(out, it)
	}
	loadMeta(ctx, r.Store, rctx.CampusID, out)
	return out, nil
}

// queryVector 决定检索向量：搜索场景嵌入查询文本；
// 推荐候选生成优先使用画像的兴趣向量，缺失时嵌入显式兴趣文本。
func (r *Vector) queryVector(ctx context.Context, rctx *core.RankingContext) []float64 {
	if rctx.Query != "" {
		if r.Embed == nil {
			return nil
		}
		vec, available := r.Embed.Embed(ctx, rctx.Query)
		if !available {
			return nil
		}
		return vec
	}

	if rctx.Profile != nil && len(rctx.Profile.InterestVector) > 0 {
		return rctx.Profile.InterestVector
	}
	if r.Embed == nil || rctx.Profile == nil || len(rctx.Profile.ExplicitInterests) == 0 {
		return nil
	}
	interests := make([]string, 0, len(rctx.Profile.ExplicitInterests))
	for c := range rctx.Profile.ExplicitInterests {
		interests = append(interests, c)
	}
	sort.Strings(interests)
	vec, available := r.Embed.Embed(ctx, strings.Join(interests, " "))
	if !available {
		return nil
	}
	return vec
}

// tagFallback 按用户显式兴趣品类走品类索引 zset cat:{campus}:{category}，
// 以 Jaccard 思路用品类权重作为候选分。
func (r *Vector) tagFallback(ctx context.Context, rctx *core.RankingContext, topK int) ([]*core.Item, error) {
	if r.Store == nil || rctx.Profile == nil || len(rctx.Profile.ExplicitInterests) == 0 {
		return nil, nil
	}

	categories := make([]string, 0, len(rctx.Profile.ExplicitInterests))
	for c := range rctx.Profile.ExplicitInterests {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	out := make([]*core.Item, 0, topK)
	perCategory := topK / len(categories)
	if perCategory < 1 {
		perCategory = 1
	}
	for _, cat := range categories {
		members, err := r.Store.ZRange(ctx, "cat:"+rctx.CampusID+":"+cat, 0, int64(perCategory-1))
		if err != nil {
			continue
		}
		for _, id := range members {
			it := core.NewItem(id, "")
			it.CampusID = rctx.CampusID
			it.Category = cat
			it.Score = rctx.Profile.ExplicitInterests[cat]
			it.PutLabel("similarity", utils.Label{Value: "tag_overlap", Source: "retrieve"})
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > topK {
		out = out[:topK]
	}
	loadMeta(ctx, r.Store, rctx.CampusID, out)
	return out, nil
}
