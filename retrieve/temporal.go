package retrieve

import (
	"context"
	"encoding/json"
	"time"

	"github.com/campuskit/discovery/core"
)

// Temporal 是时间检索源：临近开始的活动。
//
// 索引约定（由内容侧索引作业维护）：
//   - zset events:upcoming:{campus}，成员为活动 ID，分数为开始时间（unix 秒）
//
// 结果按开始时间升序；候选分随距离开始的时长衰减，越近越高。
type Temporal struct {
	Store core.KeyValueStore

	// Horizon 是向前看的时间窗口，0 表示 7 天。
	Horizon time.Duration

	// TopK 返回候选上限，0 表示 30。
	TopK int
}

func (r *Temporal) Name() string { return "temporal" }

func (r *Temporal) Retrieve(ctx context.Context, rctx *core.RankingContext) ([]*core.Item, error) {
	if r.Store == nil || rctx == nil {
		return nil, nil
	}

	horizon := r.Horizon
	if horizon <= 0 {
		horizon = 7 * 24 * time.Hour
	}
	topK := r.TopK
	if topK <= 0 {
		topK = 30
	}

	now := rctx.At()
	key := "events:upcoming:" + rctx.CampusID
	members, err := r.Store.ZRangeByScore(ctx, key,
		float64(now.Unix()), float64(now.Add(horizon).Unix()))
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(members) > topK {
		members = members[:topK]
	}

	out := make([]*core.Item, 0, len(members))
	for _, id := range members {
		it := core.NewItem(id, core.KindEvent)
		it.CampusID = rctx.CampusID

		startUnix, err := r.Store.ZScore(ctx, key, id)
		if err == nil {
			start := time.Unix(int64(startUnix), 0)
			hoursUntil := start.Sub(now).Hours()
			if hoursUntil < 0 {
				hoursUntil = 0
			}
			// 1/(1+h) 衰减：马上开始 ≈ 1，一周后 ≈ 0.006
			it.Score = 1.0 / (1.0 + hoursUntil)
			it.Meta["start_at"] = start
			it.Features["hours_to_start"] = hoursUntil
		} else {
			it.Score = 0
		}
		out = append(out, it)
	}
	loadMeta(ctx, r.Store, rctx.CampusID, out)
	return out, nil
}

// IndexEvent 将活动写入时间索引（索引作业的写入口）。
func IndexEvent(ctx context.Context, kv core.KeyValueStore, campusID, eventID string, startAt time.Time) error {
	return kv.ZAdd(ctx, "events:upcoming:"+campusID, float64(startAt.Unix()), eventID)
}

// IndexKeyword 将内容写入关键词倒排索引（索引作业的写入口）。
func IndexKeyword(ctx context.Context, kv core.KeyValueStore, campusID, token, itemID string, weight float64) error {
	return kv.ZAdd(ctx, "kw:"+campusID+":"+token, weight, itemID)
}

// IndexMeta 写入内容元数据，检索源用它补全 kind/category/campus。
func IndexMeta(ctx context.Context, kv core.KeyValueStore, campusID, itemID string, meta ContentMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return kv.HSet(ctx, metaKey(campusID), itemID, data)
}
