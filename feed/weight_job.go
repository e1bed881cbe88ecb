package feed

import (
	"context"
	"math"
	"time"

	"github.com/campuskit/discovery/core"
)

// WeightJob 是调权档案的周期批量重算作业。
// 与实时排序请求完全隔离：排序侧只读"最新已提交"的档案，
// 不做快照隔离，也不需要。
type WeightJob struct {
	Signals  core.SignalProfileReader
	Profiles *ProfileStore

	// Users 枚举需要重算的用户（通常由离线侧提供活跃用户列表）。
	Users func(ctx context.Context) ([]string, error)

	// Interval 是重算周期，0 表示 7 天。
	Interval time.Duration
}

// Run 周期运行直到 ctx 取消。
func (j *WeightJob) Run(ctx context.Context) error {
	interval := j.Interval
	if interval <= 0 {
		interval = 7 * 24 * time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			_ = j.RunOnce(ctx)
		}
	}
}

// RunOnce 重算一轮全部用户；单用户失败跳过，不中断整轮。
func (j *WeightJob) RunOnce(ctx context.Context) error {
	if j.Users == nil || j.Profiles == nil || j.Signals == nil {
		return nil
	}
	users, err := j.Users(ctx)
	if err != nil {
		return err
	}
	for _, userID := range users {
		if err := ctx.Err(); err != nil {
			return err
		}
		_ = j.RecomputeUser(ctx, userID)
	}
	return nil
}

// RecomputeUser 从 30 天行为聚合派生单用户的因子 delta。
//
// 派生规则：内容类型占比偏离均匀分布的部分，映射到对应因子的 delta，
// 线性缩放到 ±MaxDelta 以内；Apply 侧还会再 clamp 一次，
// 双保险之下有效权重永远有界。
func (j *WeightJob) RecomputeUser(ctx context.Context, userID string) error {
	profile, err := j.Signals.Profile(ctx, userID)
	if err != nil {
		return err
	}
	if profile == nil || profile.Behavior == nil || profile.Behavior.EventCount == 0 {
		return nil
	}

	b := profile.Behavior
	total := float64(b.EventCount)
	deltas := make(map[string]float64)

	// 活动偏好 → 时效因子；帖子偏好 → 新鲜度；空间偏好 → 参与度
	deltas[FactorTemporal] = scaleDelta(b.KindCounts[core.KindEvent]/total - 0.25)
	deltas[FactorRecency] = scaleDelta(b.KindCounts[core.KindPost]/total - 0.25)
	deltas[FactorEngagement] = scaleDelta(b.KindCounts[core.KindSpace]/total - 0.25)

	return j.Profiles.Put(ctx, &WeightProfile{
		UserID:  userID,
		Deltas:  deltas,
		Updated: time.Now(),
	})
}

// scaleDelta 把 [-1,1] 的占比偏差压到 ±MaxDelta。
func scaleDelta(deviation float64) float64 {
	d := deviation * MaxDelta * 2
	return math.Max(-MaxDelta, math.Min(MaxDelta, d))
}
