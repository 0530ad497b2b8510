// Package ics CRMイベント集合をiCalendar形式に書き出す
package ics

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/k-negishi/crm-calendar-sync/internal/domain"
)

const (
	// ContentType ダウンロード時のMIMEタイプ
	ContentType = "text/calendar"

	uidDomain = "crm-calendar-sync"
	productID = "-//CRM Imobiliário//Calendário CRM//PT"
	fileStem  = "crm-calendario"
)

// Export イベントごとに1つのVEVENTを持つVCALENDARを返す
//
// 時刻指定のイベントはUTCの基本形式、終日イベントはVALUE=DATEで出力する。
func Export(events []domain.Event, now time.Time) []byte {
	cal := ical.NewCalendar()
	cal.SetProductId(productID)
	cal.SetCalscale("GREGORIAN")
	cal.SetMethod(ical.MethodPublish)
	cal.SetXWRCalName("CRM")

	stamp := now.UTC()
	for _, ev := range events {
		vevent := cal.AddEvent(UID(ev.ID))
		vevent.SetDtStampTime(stamp)
		if ev.IsAllDay() {
			vevent.SetAllDayStartAt(ev.Date)
		} else {
			vevent.SetStartAt(ev.StartAt().UTC())
		}
		vevent.SetSummary(Summary(ev))
		if ev.Description != "" {
			vevent.SetDescription(ev.Description)
		}
		if ev.Location != "" {
			vevent.SetLocation(ev.Location)
		}
		// 年ごとのインスタンスそれぞれに付くため、取り込み側では系列が重なる
		if ev.Recurring {
			vevent.AddRrule("FREQ=YEARLY")
		}
	}

	return []byte(cal.Serialize())
}

// UID ローカルIDから決まるVEVENTのUID
func UID(eventID string) string {
	return eventID + "@" + uidDomain
}

// Summary 種別の表示名を前置したSUMMARY
func Summary(ev domain.Event) string {
	label := ev.Meta().Label
	if label == "" {
		return ev.Title
	}
	return label + ": " + ev.Title
}

// FileName ダウンロードファイル名（年付き）
func FileName(now time.Time) string {
	return fmt.Sprintf("%s-%d.ics", fileStem, now.Year())
}
