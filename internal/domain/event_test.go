package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEventTypeMeta(t *testing.T) {
	tests := []struct {
		eventType EventType
		editable  bool
		recurring bool
	}{
		{TypeBirthday, false, true},
		{TypeCPCV, false, false},
		{TypeEscritura, false, true},
		{TypeTask, true, false},
		{TypeVisit, true, false},
		{TypeFollowUp, true, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.eventType), func(t *testing.T) {
			meta := tt.eventType.Meta()
			assert.Equal(t, tt.editable, meta.Editable)
			assert.Equal(t, tt.recurring, meta.Recurring)
			assert.NotEmpty(t, meta.Label)
			assert.True(t, tt.eventType.Valid())
		})
	}

	t.Run("未知の種別は編集不可", func(t *testing.T) {
		meta := EventType("unknown").Meta()
		assert.False(t, meta.Editable)
		assert.False(t, EventType("unknown").Valid())
	})
}

func TestEventStartAt(t *testing.T) {
	lisbon := time.FixedZone("WET", 0)
	date := time.Date(2024, 5, 10, 0, 0, 0, 0, lisbon)

	timed := Event{Date: date, Time: "14:30"}
	assert.False(t, timed.IsAllDay())
	assert.Equal(t, time.Date(2024, 5, 10, 14, 30, 0, 0, lisbon), timed.StartAt())

	allDay := Event{Date: date}
	assert.True(t, allDay.IsAllDay())
	assert.Equal(t, date, allDay.StartAt())

	broken := Event{Date: date, Time: "25:99"}
	assert.Equal(t, date, broken.StartAt())
}

func TestNewProgress(t *testing.T) {
	assert.Equal(t, Progress{Current: 1, Total: 3, Percentage: 33}, NewProgress(1, 3))
	assert.Equal(t, Progress{Current: 3, Total: 3, Percentage: 100}, NewProgress(3, 3))
	assert.Equal(t, Progress{}, NewProgress(0, 0))
}

func TestRecordAccessors(t *testing.T) {
	r := Record{"nome": "Ana", "empty": "", "n": nil}
	assert.Equal(t, "Ana", r.String("name", "empty", "nome"))
	_, ok := r.First("n")
	assert.False(t, ok)
	assert.Equal(t, PriorityHigh, ParsePriority("high"))
	assert.Equal(t, PriorityNone, ParsePriority("urgent"))
}
