package feed

import (
	"strconv"
	"time"

	"github.com/campuskit/discovery/core"
)

// CaughtUpCursor 是终态游标：已读完，调用方停止翻页。
const CaughtUpCursor = "caught_up"

// Page 是一次 Feed 翻页的结果。CaughtUp 为 true 时 NextCursor 无意义，
// 继续翻页只会得到空页。
type Page struct {
	Items      []*core.Item
	NextCursor string
	CaughtUp   bool
}

// Lookback 计算"已读完"边界：min(lastVisit, now-48h)，即上次访问时间
// 与 48 小时前两者中更早的一方。比边界更老的内容视为已读，
// 翻到即终止，绝不无限翻页。lastVisit 缺失时边界取 now-48h。
func Lookback(lastVisit, now time.Time) time.Time {
	floor := now.Add(-TemporalWindow)
	if lastVisit.IsZero() || lastVisit.After(floor) {
		return floor
	}
	return lastVisit
}

// Paginate 在已打分排序的列表上执行游标翻页。
//
// 游标是列表偏移（列表顺序确定，偏移可复现）；一旦遇到比 lookback
// 边界更老的内容就停止并发出终态标记，哪怕 limit 还没填满。
func Paginate(items []*core.Item, cursor string, limit int, lookback time.Time) Page {
	if limit <= 0 {
		limit = 20
	}

	offset := 0
	if cursor != "" && cursor != CaughtUpCursor {
		if n, err := strconv.Atoi(cursor); err == nil && n > 0 {
			offset = n
		}
	}
	if cursor == CaughtUpCursor || offset >= len(items) {
		return Page{CaughtUp: true}
	}

	page := make([]*core.Item, 0, limit)
	i := offset
	for ; i < len(items) && len(page) < limit; i++ {
		it := items[i]
		if it == nil {
			continue
		}
		if createdAt, ok := it.Meta["created_at"].(time.Time); ok && createdAt.Before(lookback) {
			// 已读完边界：停止排序输出，发终态标记
			return Page{Items: page, CaughtUp: true}
		}
		page = append(page, it)
	}

	if i >= len(items) {
		return Page{Items: page, CaughtUp: true}
	}
	return Page{Items: page, NextCursor: strconv.Itoa(i)}
}
