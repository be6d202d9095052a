package fetcher

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"nifty-oi-sentry/pkg/types"
)

// ResolveWeeklyExpiry 从到期日列表中选出最近的未来到期日，返回其展示字符串。
// 列表里没有未来到期日时退而选取整体最早的一个；列表为空返回空串。
func ResolveWeeklyExpiry(expiries []types.ExpiryInfo, today time.Time) string {
	type candidate struct {
		days int
		date string
	}

	candidates := make([]candidate, 0, len(expiries))
	for _, exp := range expiries {
		ts, err := strconv.ParseInt(exp.Expiry, 10, 64)
		if err != nil {
			continue
		}
		expDate := time.Unix(ts, 0).In(today.Location())
		days := int(truncateToDay(expDate).Sub(truncateToDay(today)).Hours() / 24)
		candidates = append(candidates, candidate{days: days, date: exp.Date})
	}

	if len(candidates) == 0 {
		return ""
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].days < candidates[j].days
	})

	// 优先取未来最近的到期日
	for _, c := range candidates {
		if c.days >= 0 {
			return c.date
		}
	}
	return candidates[0].date
}

// ExpiryToSymbolTag 把 "02-01-2006" 格式的到期日转成Fyers符号中的片段。
// 规则：两位年份 + 不补零的月份 + 两位日期，如 04-09-2025 → "25904"
func ExpiryToSymbolTag(dateStr string) string {
	d, err := time.Parse("02-01-2006", dateStr)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%s%d%s", d.Format("06"), int(d.Month()), d.Format("02"))
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
