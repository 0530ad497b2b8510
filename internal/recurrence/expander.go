package recurrence

import (
	"time"

	"github.com/teambition/rrule-go"
)

// Mode 起点年より前の年を出力するかどうか
type Mode int

const (
	// Birthday 起点年より前の年も出力する（経過年数が負になる）
	Birthday Mode = iota
	// SinceOrigin 起点年以降のみ出力する（記念日）
	SinceOrigin
)

// Occurrence 年ごとの具体的な発生日
type Occurrence struct {
	Year int
	Date time.Time
}

// Expand 起点日の月日を[yStart, yEnd]の各年に展開する（年の昇順）
//
// 2/29の起点は平年では3/1に正規化され、1年1件は保たれる。
func Expand(anchor time.Time, yStart, yEnd int, mode Mode) []Occurrence {
	if yEnd < yStart {
		return nil
	}
	if mode == SinceOrigin && yStart < anchor.Year() {
		yStart = anchor.Year()
		if yEnd < yStart {
			return nil
		}
	}

	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.YEARLY,
		Dtstart: time.Date(yStart, time.January, 1, 0, 0, 0, 0, time.UTC),
		Until:   time.Date(yEnd, time.January, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		return nil
	}

	years := rule.All()
	out := make([]Occurrence, 0, len(years))
	for _, y := range years {
		year := y.Year()
		out = append(out, Occurrence{
			Year: year,
			Date: time.Date(year, anchor.Month(), anchor.Day(), 0, 0, 0, 0, anchor.Location()),
		})
	}
	return out
}

// Window 基準日を中心とした展開対象年の範囲 [now-2, now+5]
func Window(now time.Time) (int, int) {
	return now.Year() - 2, now.Year() + 5
}

// YearlyRule リモート側に渡す年次繰り返しルール（"RRULE:FREQ=YEARLY"）
func YearlyRule() string {
	opt := rrule.ROption{Freq: rrule.YEARLY}
	return "RRULE:" + opt.RRuleString()
}
