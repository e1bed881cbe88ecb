package notify

import (
	"context"
	"strconv"
	"time"

	"github.com/campuskit/discovery/core"
)

// 非事务类通知的硬性配额。超额触发不是错误，是静默抑制。
const (
	// CapDiscovery 滚动 7 天内发现类通知上限。
	CapDiscovery = 3
	// CapReEngagement 滚动 7 天内召回类通知上限。
	CapReEngagement = 1
	// CapDaily 滚动 24 小时内非事务类通知总量上限。
	CapDaily = 5
)

// GroupWindow 是同来源合并窗口：窗口内同一 (user, source) 的多条
// 发现/召回触发合并为一条分组通知。逐条投递视为策略违规。
const GroupWindow = 30 * time.Minute

// DefaultMinSample 是使用个人活跃时段直方图所需的最小样本量，
// 不足时退回默认投放窗口。
const DefaultMinSample = 10

// fallbackHours 是样本不足时的默认投放窗口（8 点 / 12 点 / 17 点）。
var fallbackHours = []int{8, 12, 17}

// Trigger 是一次通知触发事件。
type Trigger struct {
	UserID   string
	SourceID string
	Class    core.NotificationClass
	ItemID   string
}

// Policy 是通知时机策略：与排序链路并列（不在其中），
// 复用同一份用户信号画像的时段直方图决定投放时间。
//
// 状态全部落在 KeyValueStore：
//
//	notify:log:{user}:{class}   投放日志 zset（member 唯一、score 为秒级时间戳）
//	notify:group:{user}:{source} 合并窗口内的分组状态（JSON，带 TTL）
type Policy struct {
	Signals   core.SignalProfileReader
	Store     core.KeyValueStore
	Transport core.NotificationTransport

	// MinSample 使用个人直方图的最小样本量，<=0 时取 DefaultMinSample。
	MinSample int

	// PeakHours 每天参与候选的活跃小时数，<=0 时取 3。
	PeakHours int

	clock func() time.Time
}

// WithClock 注入时间源，测试用。
func (p *Policy) WithClock(clock func() time.Time) *Policy {
	p.clock = clock
	return p
}

func (p *Policy) now() time.Time {
	if p.clock != nil {
		return p.clock()
	}
	return time.Now()
}

// Schedule 为触发事件决定投放。
//
// 事务类绕过全部时机逻辑并立即投递。发现/召回类依次经过：
// 同来源 30 分钟合并窗口 → 滚动配额 → 下一个活跃时段。
// 被配额抑制时返回 (nil, nil)：抑制是合法的终态，不是错误。
func (p *Policy) Schedule(ctx context.Context, trig *Trigger) (*core.Notification, error) {
	if trig == nil || trig.UserID == "" {
		return nil, core.ErrMalformedRequest
	}
	now := p.now()

	if trig.Class == core.NotifyTransactional {
		n := &core.Notification{
			UserID:      trig.UserID,
			SourceID:    trig.SourceID,
			Class:       trig.Class,
			ItemID:      trig.ItemID,
			GroupCount:  1,
			ScheduledAt: now,
		}
		if p.Transport != nil {
			if err := p.Transport.Deliver(ctx, n); err != nil {
				return nil, err
			}
		}
		return n, nil
	}

	// 合并窗口：命中已有分组时只增加计数，不消耗新的配额。
	if merged, err := p.mergeIntoGroup(ctx, trig, now); err != nil {
		return nil, err
	} else if merged != nil {
		return merged, nil
	}

	allowed, err := p.withinCaps(ctx, trig.UserID, trig.Class, now)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, nil
	}

	at, err := p.nextSlot(ctx, trig.UserID, now)
	if err != nil {
		return nil, err
	}

	n := &core.Notification{
		UserID:      trig.UserID,
		SourceID:    trig.SourceID,
		Class:       trig.Class,
		ItemID:      trig.ItemID,
		GroupCount:  1,
		ScheduledAt: at,
	}
	if err := p.openGroup(ctx, trig, n); err != nil {
		return nil, err
	}
	if err := p.recordDelivery(ctx, trig, now); err != nil {
		return nil, err
	}
	return n, nil
}

// nextSlot 取用户下一个活跃时段：直方图样本充足时用个人峰值小时，
// 否则用默认窗口。当天已无候选小时则顺延到次日最早候选。
func (p *Policy) nextSlot(ctx context.Context, userID string, now time.Time) (time.Time, error) {
	hours := fallbackHours

	if p.Signals != nil {
		profile, err := p.Signals.Profile(ctx, userID)
		if err != nil {
			return time.Time{}, err
		}
		minSample := p.MinSample
		if minSample <= 0 {
			minSample = DefaultMinSample
		}
		if profile != nil && profile.Behavior != nil && histogramSample(profile.Behavior) >= minSample {
			peak := p.PeakHours
			if peak <= 0 {
				peak = 3
			}
			if ph := profile.Behavior.PeakHours(peak); len(ph) > 0 {
				hours = ph
			}
		}
	}

	best := time.Time{}
	for _, h := range hours {
		slot := time.Date(now.Year(), now.Month(), now.Day(), h, 0, 0, 0, now.Location())
		if !slot.After(now) {
			slot = slot.Add(24 * time.Hour)
		}
		if best.IsZero() || slot.Before(best) {
			best = slot
		}
	}
	return best, nil
}

func histogramSample(b *core.BehaviorSummary) int {
	var sum int
	for _, c := range b.HourHistogram {
		sum += c
	}
	return sum
}

// withinCaps 校验滚动配额：7 天类别配额与 24 小时总量配额。
func (p *Policy) withinCaps(ctx context.Context, userID string, class core.NotificationClass, now time.Time) (bool, error) {
	if p.Store == nil {
		return true, nil
	}

	classCap := CapDiscovery
	if class == core.NotifyReEngagement {
		classCap = CapReEngagement
	}
	sevenDays, err := p.countSince(ctx, logKey(userID, class), now.Add(-7*24*time.Hour), now)
	if err != nil {
		return false, err
	}
	if sevenDays >= classCap {
		return false, nil
	}

	dayStart := now.Add(-24 * time.Hour)
	daily, err := p.countSince(ctx, logKey(userID, core.NotifyDiscovery), dayStart, now)
	if err != nil {
		return false, err
	}
	re, err := p.countSince(ctx, logKey(userID, core.NotifyReEngagement), dayStart, now)
	if err != nil {
		return false, err
	}
	return daily+re < CapDaily, nil
}

func (p *Policy) countSince(ctx context.Context, key string, from, to time.Time) (int, error) {
	members, err := p.Store.ZRangeByScore(ctx, key, float64(from.Unix()), float64(to.Unix()))
	if err != nil {
		if core.IsStoreNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	return len(members), nil
}

func (p *Policy) recordDelivery(ctx context.Context, trig *Trigger, now time.Time) error {
	if p.Store == nil {
		return nil
	}
	member := trig.SourceID + "@" + strconv.FormatInt(now.UnixNano(), 10)
	return p.Store.ZAdd(ctx, logKey(trig.UserID, trig.Class), float64(now.Unix()), member)
}

func logKey(userID string, class core.NotificationClass) string {
	return "notify:log:" + userID + ":" + string(class)
}
