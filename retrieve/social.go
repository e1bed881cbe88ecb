package retrieve

import (
	"context"
	"sort"

	"github.com/campuskit/discovery/core"
)

// Social 是社交图检索源：好友加入的空间。
//
// 索引约定（由社交侧索引作业维护）：
//   - zset social:friends:{user}，成员为好友 ID
//   - zset social:spaces:{user}，成员为该用户加入的空间 ID
//
// 候选分 = 加入该空间的好友数（社交证明的原始信号）。
type Social struct {
	Store core.KeyValueStore

	// MaxFriends 是参与统计的好友数上限，0 表示 50。
	MaxFriends int

	// TopK 返回候选上限，0 表示 30。
	TopK int
}

func (r *Social) Name() string { return "social" }

func (r *Social) Retrieve(ctx context.Context, rctx *core.RankingContext) ([]*core.Item, error) {
	if r.Store == nil || rctx == nil || rctx.UserID == "" {
		return nil, nil
	}

	maxFriends := r.MaxFriends
	if maxFriends <= 0 {
		maxFriends = 50
	}
	topK := r.TopK
	if topK <= 0 {
		topK = 30
	}

	friends, err := r.Store.ZRange(ctx, "social:friends:"+rctx.UserID, 0, int64(maxFriends-1))
	if err != nil || len(friends) == 0 {
		return nil, nil
	}

	// 自己已加入的空间不作为候选
	own := make(map[string]bool)
	if spaces, err := r.Store.ZRange(ctx, "social:spaces:"+rctx.UserID, 0, -1); err == nil {
		for _, s := range spaces {
			own[s] = true
		}
	}

	counts := make(map[string]float64)
	for _, friend := range friends {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		spaces, err := r.Store.ZRange(ctx, "social:spaces:"+friend, 0, -1)
		if err != nil {
			continue
		}
		for _, space := range spaces {
			if !own[space] {
				counts[space]++
			}
		}
	}
	if len(counts) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if counts[ids[i]] != counts[ids[j]] {
			return counts[ids[i]] > counts[ids[j]]
		}
		return ids[i] < ids[j]
	})
	if len(ids) > topK {
		ids = ids[:topK]
	}

	out := make([]*core.Item, 0, len(ids))
	for _, id := range ids {
		it := core.NewItem(id, core.KindSpace)
		it.CampusID = rctx.CampusID
		it.Score = counts[id]
		it.Features["friend_members"] = counts[id]
		out = append(out, it)
	}
	loadMeta(ctx, r.Store, rctx.CampusID, out)
	return out, nil
}
