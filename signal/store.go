// Package signal 实现用户行为信号的存储与聚合。
//
// 行为事件日志仅追加，由外部摄入钩子写入；排序链路与通知时机策略
// 只通过 core.SignalProfileReader 读取，聚合逻辑只存在于此处一份。
package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/campuskit/discovery/core"
)

const (
	logKeyPrefix     = "sig:log:"
	profileKeyPrefix = "sig:profile:"

	fieldCampus    = "campus"
	fieldExplicit  = "explicit"
	fieldCohort    = "cohort"
	fieldMuted     = "muted"
	fieldVector    = "vector"
	fieldPersonal  = "personalization"
	fieldUpdatedAt = "updated_at"
)

// Store 是信号存储：行为事件日志 + 画像静态字段，落在 core.KeyValueStore 上。
//
// 30 天窗口约束在读取侧执行：窗口外的日志条目在聚合时跳过，
// 从不回写或改动历史（仅追加不变量）。
type Store struct {
	kv core.KeyValueStore

	// HotThreshold 是 Hot 阶段的合格事件数阈值，0 表示默认值。
	HotThreshold int

	// now 可注入固定时钟，测试窗口边界用。
	now func() time.Time
}

func NewStore(kv core.KeyValueStore) *Store {
	return &Store{kv: kv, now: time.Now}
}

// WithClock 注入时钟，返回自身便于链式构造。
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

var _ core.SignalProfileReader = (*Store)(nil)

// Append 追加一条行为事件（摄入钩子的写入口）。
// 画像在首个事件到达时隐式产生；mute 事件同时并入静音集合。
func (s *Store) Append(ctx context.Context, userID, campusID string, ev core.SignalEvent) error {
	if ev.At.IsZero() {
		ev.At = s.now()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := s.kv.ZAdd(ctx, logKeyPrefix+userID, float64(ev.At.UnixNano()), string(data)); err != nil {
		return err
	}
	if campusID != "" {
		if err := s.kv.HSet(ctx, profileKeyPrefix+userID, fieldCampus, []byte(campusID)); err != nil {
			return err
		}
	}
	return s.touch(ctx, userID)
}

// ResetBehavior 用户主动重置：清空行为日志，显式信号全部保留。
func (s *Store) ResetBehavior(ctx context.Context, userID string) error {
	if err := s.kv.Delete(ctx, logKeyPrefix+userID); err != nil {
		return err
	}
	return s.touch(ctx, userID)
}

// SetExplicitInterests 写入显式兴趣（key 为品类，value 为权重）。
func (s *Store) SetExplicitInterests(ctx context.Context, userID string, interests map[string]float64) error {
	return s.setJSON(ctx, userID, fieldExplicit, interests)
}

// SetCohort 写入群体标签。
func (s *Store) SetCohort(ctx context.Context, userID string, cohort core.Cohort) error {
	return s.setJSON(ctx, userID, fieldCohort, cohort)
}

// SetMutedSources 覆盖静音来源集合。
func (s *Store) SetMutedSources(ctx context.Context, userID string, sources []string) error {
	return s.setJSON(ctx, userID, fieldMuted, sources)
}

// SetInterestVector 写入嵌入服务产出的兴趣向量；nil 表示清除。
func (s *Store) SetInterestVector(ctx context.Context, userID string, vector []float64) error {
	return s.setJSON(ctx, userID, fieldVector, vector)
}

// SetPersonalization 写入个性化级别。
func (s *Store) SetPersonalization(ctx context.Context, userID string, level core.PersonalizationLevel) error {
	if err := s.kv.HSet(ctx, profileKeyPrefix+userID, fieldPersonal, []byte(level)); err != nil {
		return err
	}
	return s.touch(ctx, userID)
}

// Profile 读取并聚合用户画像，实现 core.SignalProfileReader。
// 用户无任何信号时返回 (nil, nil)：不存在不是错误。
func (s *Store) Profile(ctx context.Context, userID string) (*core.UserSignalProfile, error) {
	fields, err := s.kv.HGetAll(ctx, profileKeyPrefix+userID)
	if err != nil && !core.IsStoreNotFound(err) {
		return nil, err
	}

	behavior, muted, err := s.aggregate(ctx, userID)
	if err != nil {
		return nil, err
	}

	if len(fields) == 0 && behavior == nil {
		return nil, nil
	}

	p := core.NewUserSignalProfile(userID, string(fields[fieldCampus]))
	p.Behavior = behavior
	for src := range muted {
		p.MutedSources[src] = true
	}

	if raw, ok := fields[fieldExplicit]; ok {
		_ = json.Unmarshal(raw, &p.ExplicitInterests)
	}
	if raw, ok := fields[fieldCohort]; ok {
		_ = json.Unmarshal(raw, &p.Cohort)
	}
	if raw, ok := fields[fieldMuted]; ok {
		var sources []string
		if json.Unmarshal(raw, &sources) == nil {
			for _, src := range sources {
				p.MutedSources[src] = true
			}
		}
	}
	if raw, ok := fields[fieldVector]; ok {
		_ = json.Unmarshal(raw, &p.InterestVector)
	}
	if raw, ok := fields[fieldPersonal]; ok && len(raw) > 0 {
		p.Personalization = core.PersonalizationLevel(raw)
	}
	if raw, ok := fields[fieldUpdatedAt]; ok {
		if t, err := time.Parse(time.RFC3339Nano, string(raw)); err == nil {
			p.UpdateTime = t
		}
	}
	return p, nil
}

// aggregate 扫描 30 天窗口内的事件日志，派生行为聚合与事件级静音。
// 窗口外的条目被跳过（惰性丢弃），日志本身不动。
func (s *Store) aggregate(ctx context.Context, userID string) (*core.BehaviorSummary, map[string]bool, error) {
	now := s.now()
	min := float64(now.Add(-core.SignalWindow).UnixNano())
	max := float64(now.UnixNano())

	members, err := s.kv.ZRangeByScore(ctx, logKeyPrefix+userID, min, max)
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	if len(members) == 0 {
		return nil, nil, nil
	}

	b := &core.BehaviorSummary{
		CategoryCounts: make(map[string]float64),
		KindCounts:     make(map[core.ContentKind]float64),
		SourceCounts:   make(map[string]float64),
	}
	muted := make(map[string]bool)

	for _, m := range members {
		var ev core.SignalEvent
		if json.Unmarshal([]byte(m), &ev) != nil {
			continue
		}
		if ev.Type == core.EventMute {
			if ev.SourceID != "" {
				muted[ev.SourceID] = true
			}
			continue
		}
		b.EventCount++
		if ev.Category != "" {
			b.CategoryCounts[ev.Category]++
		}
		if ev.Kind != "" {
			b.KindCounts[ev.Kind]++
		}
		if ev.SourceID != "" {
			b.SourceCounts[ev.SourceID]++
		}
		b.HourHistogram[ev.At.Hour()]++
		if ev.At.After(b.LastVisit) {
			b.LastVisit = ev.At
		}
	}

	if b.EventCount == 0 && len(muted) == 0 {
		return nil, nil, nil
	}
	if b.EventCount == 0 {
		return nil, muted, nil
	}
	return b, muted, nil
}

func (s *Store) setJSON(ctx context.Context, userID, field string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := s.kv.HSet(ctx, profileKeyPrefix+userID, field, data); err != nil {
		return err
	}
	return s.touch(ctx, userID)
}

func (s *Store) touch(ctx context.Context, userID string) error {
	return s.kv.HSet(ctx, profileKeyPrefix+userID, fieldUpdatedAt,
		[]byte(s.now().Format(time.RFC3339Nano)))
}
