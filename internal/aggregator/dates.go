package aggregator

import (
	"encoding/json"
	"strings"
	"time"
)

// 日付のみ・タイムゾーンなしの文字列はこのレイアウト順で解析する
var localLayouts = []string{
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseFlexibleDate ISO文字列・{seconds: n}オブジェクト・time.Timeのいずれかを
// locでのカレンダー日付（00:00）に正規化する。解析できなければ false を返す（panicしない）
func ParseFlexibleDate(value any, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}

	instant, ok := toInstant(value, loc)
	if !ok {
		return time.Time{}, false
	}
	local := instant.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc), true
}

func toInstant(value any, loc *time.Location) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, !v.IsZero()
	case *time.Time:
		if v == nil || v.IsZero() {
			return time.Time{}, false
		}
		return *v, true
	case string:
		return parseISO(v, loc)
	case map[string]any:
		return parseEpochObject(v)
	}
	return time.Time{}, false
}

func parseISO(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseEpochObject ドキュメントストアのタイムスタンプ形式 {seconds, nanoseconds} を解析する
func parseEpochObject(m map[string]any) (time.Time, bool) {
	raw, ok := m["seconds"]
	if !ok {
		raw, ok = m["_seconds"]
	}
	if !ok {
		return time.Time{}, false
	}

	var seconds int64
	switch n := raw.(type) {
	case float64:
		seconds = int64(n)
	case int:
		seconds = int64(n)
	case int64:
		seconds = n
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return time.Time{}, false
		}
		seconds = i
	default:
		return time.Time{}, false
	}
	return time.Unix(seconds, 0), true
}
