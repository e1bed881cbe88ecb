package retrieve

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"github.com/campuskit/discovery/core"
)

// Keyword 是关键词检索源：查询分词后走倒排索引。
//
// 索引约定（由内容侧索引作业维护）：
//   - zset kw:{campus}:{token}，成员为内容 ID，分数为词项权重
//
// 多词命中的内容按词项权重求和，命中词数多的自然靠前。
type Keyword struct {
	Store core.KeyValueStore

	// TopK 是每个词项取回的候选上限，0 表示 50。
	TopK int
}

func (r *Keyword) Name() string { return "keyword" }

func (r *Keyword) Retrieve(ctx context.Context, rctx *core.RankingContext) ([]*core.Item, error) {
	if r.Store == nil || rctx == nil || rctx.Query == "" {
		return nil, nil
	}

	tokens := Tokenize(rctx.Query)
	if len(tokens) == 0 {
		return nil, nil
	}

	topK := r.TopK
	if topK <= 0 {
		topK = 50
	}

	scores := make(map[string]float64)
	for _, tok := range tokens {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		key := "kw:" + rctx.CampusID + ":" + tok
		members, err := r.Store.ZRange(ctx, key, 0, int64(topK-1))
		if err != nil {
			if core.IsStoreNotFound(err) {
				continue
			}
			return nil, err
		}
		for _, id := range members {
			weight, err := r.Store.ZScore(ctx, key, id)
			if err != nil {
				weight = 1.0
			}
			scores[id] += weight
		}
	}
	if len(scores) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if scores[ids[i]] != scores[ids[j]] {
			return scores[ids[i]] > scores[ids[j]]
		}
		return ids[i] < ids[j]
	})
	if len(ids) > topK {
		ids = ids[:topK]
	}

	out := make([]*core.Item, 0, len(ids))
	for _, id := range ids {
		it := core.NewItem(id, "")
		it.CampusID = rctx.CampusID
		it.Score = scores[id]
		out = append(out, it)
	}
	loadMeta(ctx, r.Store, rctx.CampusID, out)
	return out, nil
}

// Tokenize 做最小化分词：小写化并按非字母数字切分，去掉单字符词。
func Tokenize(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	out := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if len(f) < 2 || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}
