package domain

import "time"

// Event CRMの元レコードから導出されたカレンダーイベントのドメインエンティティ
//
// IDは同じ元レコード・同じ年に対して常に同じ値になる。同期の冪等性はこの性質に依存する。
type Event struct {
	ID            string    `json:"id"`
	Type          EventType `json:"type"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	Location      string    `json:"location,omitempty"`
	Time          string    `json:"time,omitempty"` // HH:MM、空なら終日
	Date          time.Time `json:"date"`
	Recurring     bool      `json:"recurring"`
	Priority      Priority  `json:"priority,omitempty"`
	ClientID      string    `json:"clientId,omitempty"`
	PropertyID    string    `json:"propertyId,omitempty"`
	OpportunityID string    `json:"opportunityId,omitempty"`
}

// IsAllDay 時刻指定がなければ終日イベント
func (e Event) IsAllDay() bool {
	return e.Time == ""
}

// Meta イベント種別の静的メタデータを返す
func (e Event) Meta() TypeMeta {
	return e.Type.Meta()
}

// StartAt 日付と時刻を合成した開始日時を返す（終日なら日付の00:00）
func (e Event) StartAt() time.Time {
	hour, minute, ok := ParseClock(e.Time)
	if !ok {
		return time.Date(e.Date.Year(), e.Date.Month(), e.Date.Day(), 0, 0, 0, 0, e.Date.Location())
	}
	return time.Date(e.Date.Year(), e.Date.Month(), e.Date.Day(), hour, minute, 0, 0, e.Date.Location())
}

// ParseClock "HH:MM"形式の時刻を解析する
func ParseClock(s string) (hour, minute int, ok bool) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, false
	}
	return t.Hour(), t.Minute(), true
}

// Priority イベントの優先度
type Priority string

const (
	PriorityNone   Priority = ""
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority 文字列を優先度に変換する。不明な値はPriorityNone
func ParsePriority(s string) Priority {
	switch Priority(s) {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return Priority(s)
	}
	return PriorityNone
}

// Record ドキュメントストアから取得した自由形式のレコード
type Record map[string]any

// String 指定キーのうち最初に見つかった空でない文字列値を返す
func (r Record) String(keys ...string) string {
	for _, k := range keys {
		if v, ok := r[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// First 指定キーのうち最初に存在する値を返す
func (r Record) First(keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// CalendarInfo リモートカレンダーの一覧項目
type CalendarInfo struct {
	ID      string `json:"id"`
	Summary string `json:"summary"`
	Primary bool   `json:"primary"`
}
