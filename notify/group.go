package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/campuskit/discovery/core"
)

// groupState 是一个合并窗口内的分组状态，JSON 存于
// notify:group:{user}:{source}，TTL 即剩余窗口。
type groupState struct {
	ItemID      string                 `json:"item_id"`
	Class       core.NotificationClass `json:"class"`
	Count       int                    `json:"count"`
	OpenedAt    time.Time              `json:"opened_at"`
	ScheduledAt time.Time              `json:"scheduled_at"`
}

// mergeIntoGroup 尝试把触发并入已有分组：命中时计数加一并返回
// 更新后的分组通知（代表项保持首条），未命中返回 (nil, nil)。
func (p *Policy) mergeIntoGroup(ctx context.Context, trig *Trigger, now time.Time) (*core.Notification, error) {
	if p.Store == nil || trig.SourceID == "" {
		return nil, nil
	}

	raw, err := p.Store.Get(ctx, groupKey(trig.UserID, trig.SourceID))
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	var st groupState
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, nil
	}
	remaining := GroupWindow - now.Sub(st.OpenedAt)
	if remaining <= 0 {
		return nil, nil
	}

	st.Count++
	if err := p.saveGroup(ctx, trig, &st, remaining); err != nil {
		return nil, err
	}

	return &core.Notification{
		UserID:      trig.UserID,
		SourceID:    trig.SourceID,
		Class:       st.Class,
		ItemID:      st.ItemID,
		GroupCount:  st.Count,
		ScheduledAt: st.ScheduledAt,
	}, nil
}

// openGroup 以该通知开启一个新的合并窗口。
func (p *Policy) openGroup(ctx context.Context, trig *Trigger, n *core.Notification) error {
	if p.Store == nil || trig.SourceID == "" {
		return nil
	}
	st := &groupState{
		ItemID:      n.ItemID,
		Class:       n.Class,
		Count:       1,
		OpenedAt:    p.now(),
		ScheduledAt: n.ScheduledAt,
	}
	return p.saveGroup(ctx, trig, st, GroupWindow)
}

func (p *Policy) saveGroup(ctx context.Context, trig *Trigger, st *groupState, ttl time.Duration) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	ttlSec := int(ttl / time.Second)
	if ttlSec < 1 {
		ttlSec = 1
	}
	return p.Store.Set(ctx, groupKey(trig.UserID, trig.SourceID), raw, ttlSec)
}

func groupKey(userID, sourceID string) string {
	return "notify:group:" + userID + ":" + sourceID
}
