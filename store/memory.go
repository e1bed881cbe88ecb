// Package store 只包含实现，接口定义在 core 包。
// 使用 core.Store 与 core.KeyValueStore 接口。
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/campuskit/discovery/core"
)

// MemoryStore 是内存实现的 KeyValueStore，用于测试/开发/原型。
// 支持 TTL，进程重启后数据丢失。
type MemoryStore struct {
	mu       sync.RWMutex
	data     map[string]*entry
	zsets    map[string]map[string]float64 // zset key -> member -> score
	counters map[string]*counter
	clean    *time.Ticker
	done     chan struct{}
}

type entry struct {
	value []byte
	ttl   *time.Time
}

type counter struct {
	value int64
	ttl   *time.Time
}

func NewMemoryStore() *MemoryStore {
	ms := &MemoryStore{
		data:     make(map[string]*entry),
		zsets:    make(map[string]map[string]float64),
		counters: make(map[string]*counter),
		clean:    time.NewTicker(10 * time.Second),
		done:     make(chan struct{}),
	}
	go ms.cleanup()
	return ms
}

func (m *MemoryStore) Name() string { return "memory" }

func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.data[key]
	if !ok {
		return nil, core.ErrStoreNotFound
	}
	if e.ttl != nil && time.Now().After(*e.ttl) {
		return nil, core.ErrStoreNotFound
	}
	return e.value, nil
}

func (m *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl ...int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := &entry{value: value}
	if len(ttl) > 0 && ttl[0] > 0 {
		expire := time.Now().Add(time.Duration(ttl[0]) * time.Second)
		e.ttl = &expire
	}
	m.data[key] = e
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	delete(m.zsets, key)
	delete(m.counters, key)
	return nil
}

func (m *MemoryStore) BatchGet(ctx context.Context, keys []string) (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string][]byte, len(keys))
	now := time.Now()
	for _, k := range keys {
		e, ok := m.data[k]
		if !ok {
			continue
		}
		if e.ttl != nil && now.After(*e.ttl) {
			continue
		}
		result[k] = e.value
	}
	return result, nil
}

func (m *MemoryStore) Close() error {
	m.clean.Stop()
	close(m.done)
	return nil
}

func (m *MemoryStore) cleanup() {
	for {
		select {
		case <-m.clean.C:
			m.mu.Lock()
			now := time.Now()
			for k, e := range m.data {
				if e.ttl != nil && now.After(*e.ttl) {
					delete(m.data, k)
				}
			}
			for k, c := range m.counters {
				if c.ttl != nil && now.After(*c.ttl) {
					delete(m.counters, k)
				}
			}
			m.mu.Unlock()
		case <-m.done:
			return
		}
	}
}

// KeyValueStore 扩展方法

var _ core.KeyValueStore = (*MemoryStore)(nil)

func (m *MemoryStore) ZAdd(ctx context.Context, key string, score float64, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.zsets[key] == nil {
		m.zsets[key] = make(map[string]float64)
	}
	m.zsets[key][member] = score
	return nil
}

func (m *MemoryStore) ZRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pairs := m.sortedPairs(key, true)
	if pairs == nil {
		return nil, nil
	}

	if start < 0 {
		start = 0
	}
	if stop < 0 || stop >= int64(len(pairs)) {
		stop = int64(len(pairs)) - 1
	}
	if start > stop {
		return nil, nil
	}

	result := make([]string, 0, stop-start+1)
	for i := start; i <= stop && i < int64(len(pairs)); i++ {
		result = append(result, pairs[i].member)
	}
	return result, nil
}

func (m *MemoryStore) ZRangeByScore(ctx context.Context, key string, min, max float64) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pairs := m.sortedPairs(key, false)
	if pairs == nil {
		return nil, nil
	}

	result := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if p.score >= min && p.score <= max {
			result = append(result, p.member)
		}
	}
	return result, nil
}

func (m *MemoryStore) ZScore(ctx context.Context, key string, member string) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	zset, ok := m.zsets[key]
	if !ok {
		return 0, core.ErrStoreNotFound
	}
	score, ok := zset[member]
	if !ok {
		return 0, core.ErrStoreNotFound
	}
	return score, nil
}

func (m *MemoryStore) Incr(ctx context.Context, key string, ttl ...int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	c, ok := m.counters[key]
	if ok && c.ttl != nil && now.After(*c.ttl) {
		ok = false
	}
	if !ok {
		c = &counter{}
		if len(ttl) > 0 && ttl[0] > 0 {
			expire := now.Add(time.Duration(ttl[0]) * time.Second)
			c.ttl = &expire
		}
		m.counters[key] = c
	}
	c.value++
	return c.value, nil
}

func (m *MemoryStore) HGet(ctx context.Context, key, field string) ([]byte, error) {
	return m.Get(ctx, "hash:"+key+":"+field)
}

func (m *MemoryStore) HSet(ctx context.Context, key, field string, value []byte) error {
	return m.Set(ctx, "hash:"+key+":"+field, value)
}

func (m *MemoryStore) HGetAll(ctx context.Context, key string) (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	prefix := "hash:" + key + ":"
	result := make(map[string][]byte)
	now := time.Now()
	for k, e := range m.data {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			if e.ttl != nil && now.After(*e.ttl) {
				continue
			}
			result[k[len(prefix):]] = e.value
		}
	}
	return result, nil
}

type zpair struct {
	member string
	score  float64
}

// sortedPairs 返回 zset 的成员列表；desc 为 true 时按分数降序，否则升序。
// 同分按 member 字典序，保证遍历结果确定。
func (m *MemoryStore) sortedPairs(key string, desc bool) []zpair {
	zset, ok := m.zsets[key]
	if !ok || len(zset) == 0 {
		return nil
	}
	pairs := make([]zpair, 0, len(zset))
	for mem, s := range zset {
		pairs = append(pairs, zpair{member: mem, score: s})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].score != pairs[j].score {
			if desc {
				return pairs[i].score > pairs[j].score
			}
			return pairs[i].score < pairs[j].score
		}
		return pairs[i].member < pairs[j].member
	})
	return pairs
}
