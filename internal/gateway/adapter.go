package gateway

import (
	"fmt"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/k-negishi/crm-calendar-sync/internal/domain"
	"github.com/k-negishi/crm-calendar-sync/internal/recurrence"
)

const (
	// DefaultTimezone リモートの時刻指定イベントに使うタイムゾーン
	DefaultTimezone = "Europe/Lisbon"
	// DefaultDuration 時刻指定イベントの既定の長さ
	DefaultDuration = time.Hour

	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02T15:04:05"
	sourceTag      = "crm"
	defaultColorID = "1"
)

// 種別ごとのGoogle CalendarのcolorId
var colorIDs = map[domain.EventType]string{
	domain.TypeBirthday:  "5",
	domain.TypeCPCV:      "9",
	domain.TypeEscritura: "10",
	domain.TypeTask:      "7",
	domain.TypeVisit:     "6",
	domain.TypeFollowUp:  "3",
}

// ColorFor 種別に対応するcolorIdを返す。未定義の種別は既定色
func ColorFor(t domain.EventType) string {
	if id, ok := colorIDs[t]; ok {
		return id
	}
	return defaultColorID
}

// Adapter ドメインイベントとGoogle Calendarのイベント形式を相互変換する
type Adapter struct {
	location         *time.Location
	duration         time.Duration
	remoteRecurrence bool
	exclusiveEnd     bool
}

// AdapterOption Adapterの設定
type AdapterOption func(*Adapter)

// WithDuration 時刻指定イベントの長さを指定
func WithDuration(d time.Duration) AdapterOption {
	return func(a *Adapter) {
		if d > 0 {
			a.duration = d
		}
	}
}

// WithRemoteRecurrence 繰り返しイベントにRRULEを付与する
//
// ローカルで年ごとに展開したインスタンスと重複するため既定では無効。
func WithRemoteRecurrence(enabled bool) AdapterOption {
	return func(a *Adapter) {
		a.remoteRecurrence = enabled
	}
}

// WithExclusiveAllDayEnd 終日イベントの終了日を開始日の翌日にする
//
// Google Calendar APIはend.dateを排他的に扱い、開始日と同じ終了日は
// timeRangeEmptyで拒否する。実APIへ書き込む場合は有効にする。
func WithExclusiveAllDayEnd(enabled bool) AdapterOption {
	return func(a *Adapter) {
		a.exclusiveEnd = enabled
	}
}

// NewAdapter Adapterを作成
func NewAdapter(location *time.Location, opts ...AdapterOption) *Adapter {
	if location == nil {
		location = time.UTC
	}
	a := &Adapter{location: location, duration: DefaultDuration}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Location 変換に使うタイムゾーン
func (a *Adapter) Location() *time.Location {
	return a.location
}

// ToRemote ドメインイベントをGoogle Calendarのイベントに変換
func (a *Adapter) ToRemote(ev domain.Event) *calendar.Event {
	remote := &calendar.Event{
		Summary:     ev.Title,
		Description: ev.Description,
		Location:    ev.Location,
		ColorId:     ColorFor(ev.Type),
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: privateProperties(ev),
		},
	}

	if hour, minute, ok := domain.ParseClock(ev.Time); ok {
		start := time.Date(ev.Date.Year(), ev.Date.Month(), ev.Date.Day(), hour, minute, 0, 0, a.location)
		end := start.Add(a.duration)
		remote.Start = &calendar.EventDateTime{DateTime: start.Format(dateTimeLayout), TimeZone: a.location.String()}
		remote.End = &calendar.EventDateTime{DateTime: end.Format(dateTimeLayout), TimeZone: a.location.String()}
	} else {
		end := ev.Date
		if a.exclusiveEnd {
			end = end.AddDate(0, 0, 1)
		}
		remote.Start = &calendar.EventDateTime{Date: ev.Date.Format(dateLayout)}
		remote.End = &calendar.EventDateTime{Date: end.Format(dateLayout)}
	}

	if ev.Recurring && a.remoteRecurrence {
		remote.Recurrence = []string{recurrence.YearlyRule()}
	}
	return remote
}

func privateProperties(ev domain.Event) map[string]string {
	props := map[string]string{
		"localId": ev.ID,
		"type":    string(ev.Type),
		"source":  sourceTag,
	}
	if ev.ClientID != "" {
		props["clientId"] = ev.ClientID
	}
	if ev.PropertyID != "" {
		props["propertyId"] = ev.PropertyID
	}
	if ev.OpportunityID != "" {
		props["opportunityId"] = ev.OpportunityID
	}
	if ev.Priority != domain.PriorityNone {
		props["priority"] = string(ev.Priority)
	}
	return props
}

// FromRemote Google Calendarのイベントをドメインイベントに変換
//
// 拡張プロパティにローカルIDがあればそれを使い、マッピング表なしで逆引きできる。
func (a *Adapter) FromRemote(event *calendar.Event) (domain.Event, error) {
	var props map[string]string
	if event.ExtendedProperties != nil {
		props = event.ExtendedProperties.Private
	}

	ev := domain.Event{
		ID:            event.Id,
		Title:         event.Summary,
		Description:   event.Description,
		Location:      event.Location,
		Type:          domain.EventType(props["type"]),
		ClientID:      props["clientId"],
		PropertyID:    props["propertyId"],
		OpportunityID: props["opportunityId"],
		Priority:      domain.ParsePriority(props["priority"]),
		Recurring:     len(event.Recurrence) > 0,
	}
	if localID := props["localId"]; localID != "" {
		ev.ID = localID
	}
	if ev.Type.Valid() && ev.Type.Meta().Recurring {
		ev.Recurring = true
	}

	// タイトルが空の場合は「(sem título)」に設定
	if ev.Title == "" {
		ev.Title = "(sem título)"
	}

	if event.Start == nil {
		return domain.Event{}, fmt.Errorf("開始時刻が設定されていません")
	}

	switch {
	case event.Start.DateTime != "":
		// 時刻指定ありのイベント
		start, err := a.parseDateTime(event.Start)
		if err != nil {
			return domain.Event{}, fmt.Errorf("開始時刻の解析に失敗しました: %w", err)
		}
		ev.Date = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, a.location)
		ev.Time = start.Format("15:04")
	case event.Start.Date != "":
		// 終日イベント
		day, err := time.ParseInLocation(dateLayout, event.Start.Date, a.location)
		if err != nil {
			return domain.Event{}, fmt.Errorf("開始日の解析に失敗しました: %w", err)
		}
		ev.Date = day
	default:
		return domain.Event{}, fmt.Errorf("開始時刻が設定されていません")
	}

	return ev, nil
}

// parseDateTime オフセット付きRFC3339とTimeZone指定のローカル日時の両方を受け付ける
func (a *Adapter) parseDateTime(dt *calendar.EventDateTime) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, dt.DateTime); err == nil {
		return t.In(a.location), nil
	}
	loc := a.location
	if dt.TimeZone != "" {
		if l, err := time.LoadLocation(dt.TimeZone); err == nil {
			loc = l
		}
	}
	t, err := time.ParseInLocation(dateTimeLayout, dt.DateTime, loc)
	if err != nil {
		return time.Time{}, err
	}
	return t.In(a.location), nil
}
