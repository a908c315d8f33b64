package calculator

import (
	"sort"

	"github.com/samber/lo"

	"millscope/internal/model"
)

// RollingWindow 取记录中出现过的最近 n 个不同月份，返回落在这些月份内的记录（保持原顺序）
//
// 窗口按"出现过的月份"计，而不是固定日历区间：中间缺月时窗口会向前延伸。
func RollingWindow(records []*model.MergedRecord, n int) []*model.MergedRecord {
	if len(records) == 0 || n <= 0 {
		return nil
	}
	months := lo.Uniq(lo.Map(records, func(r *model.MergedRecord, _ int) int {
		return r.Date.Index()
	}))
	sort.Sort(sort.Reverse(sort.IntSlice(months)))
	if len(months) > n {
		months = months[:n]
	}
	keep := make(map[int]struct{}, len(months))
	for _, m := range months {
		keep[m] = struct{}{}
	}
	return lo.Filter(records, func(r *model.MergedRecord, _ int) bool {
		_, ok := keep[r.Date.Index()]
		return ok
	})
}

// windowMonths 窗口内的不同月份数
func windowMonths(records []*model.MergedRecord) int {
	return len(lo.UniqBy(records, func(r *model.MergedRecord) int { return r.Date.Index() }))
}

// latestMonth 记录中的最晚月份
func latestMonth(records []*model.MergedRecord) (model.YearMonth, bool) {
	_, max, ok := model.DateBounds(records)
	return max, ok
}

// monthlyBucket 按月分组的取值
type monthlyBucket struct {
	Month  model.YearMonth
	Values []float64
}

// groupByMonth 按月份聚合 pick 返回的值（ok=false 的记录跳过），结果按月份升序
func groupByMonth(records []*model.MergedRecord, pick func(*model.MergedRecord) (float64, bool)) []monthlyBucket {
	idx := make(map[int]int)
	var buckets []monthlyBucket
	for _, r := range records {
		v, ok := pick(r)
		if !ok {
			continue
		}
		key := r.Date.Index()
		pos, exists := idx[key]
		if !exists {
			pos = len(buckets)
			idx[key] = pos
			buckets = append(buckets, monthlyBucket{Month: r.Date})
		}
		buckets[pos].Values = append(buckets[pos].Values, v)
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Month.Before(buckets[j].Month)
	})
	return buckets
}

// nonZeroOERAfter 取非空且非 0 的 oer_after
func nonZeroOERAfter(r *model.MergedRecord) (float64, bool) {
	if !r.HasOERAfter() {
		return 0, false
	}
	return *r.OERAfter, true
}

// monthRangeLabel 形如 "Jan 2024 - Dec 2024"
func monthRangeLabel(start, end model.YearMonth) string {
	return start.Label() + " - " + end.Label()
}
