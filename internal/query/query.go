package query

import (
	"sort"
	"strings"
	"time"

	"github.com/k-negishi/crm-calendar-sync/internal/domain"
)

// FilterBySearch タイトルと説明に対する大文字小文字を区別しない部分一致
// 空のクエリは入力スライスをそのまま返す
func FilterBySearch(events []domain.Event, query string) []domain.Event {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return events
	}

	out := make([]domain.Event, 0)
	for _, ev := range events {
		if strings.Contains(strings.ToLower(ev.Title), q) ||
			strings.Contains(strings.ToLower(ev.Description), q) {
			out = append(out, ev)
		}
	}
	return out
}

// EventsOnDate 指定日（時刻は無視）のイベント
func EventsOnDate(events []domain.Event, day time.Time) []domain.Event {
	out := make([]domain.Event, 0)
	for _, ev := range events {
		if sameDay(ev.Date, day) {
			out = append(out, ev)
		}
	}
	return out
}

// Upcoming fromの日以降のイベントを日付昇順でlimit件まで返す（limit<=0なら全件）
func Upcoming(events []domain.Event, from time.Time, limit int) []domain.Event {
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())

	out := make([]domain.Event, 0)
	for _, ev := range events {
		if !dayOf(ev.Date).Before(dayOf(start)) {
			out = append(out, ev)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		di, dj := dayOf(out[i].Date), dayOf(out[j].Date)
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return out[i].Time < out[j].Time
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// dayOf 壁時計の年月日だけを比較できるようUTCの日付に揃える
func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
