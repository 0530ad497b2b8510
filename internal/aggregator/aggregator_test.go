package aggregator

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/k-negishi/crm-calendar-sync/internal/domain"
)

func lisbon(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Lisbon")
	require.NoError(t, err)
	return loc
}

func eventsByID(events []domain.Event) map[string]domain.Event {
	out := make(map[string]domain.Event, len(events))
	for _, ev := range events {
		out[ev.ID] = ev
	}
	return out
}

func TestAggregate_Birthday(t *testing.T) {
	loc := lisbon(t)
	agg := New(loc, nil)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, loc)

	records := Records{Clients: []domain.Record{
		{"id": "c1", "name": "Ana", "birthDate": "1990-05-10"},
	}}

	events := agg.Aggregate(records, now)
	require.Len(t, events, 8)

	for i, ev := range events {
		year := 2022 + i
		assert.Equal(t, fmt.Sprintf("birthday-c1-%d", year), ev.ID)
		assert.Equal(t, time.Date(year, 5, 10, 0, 0, 0, 0, loc), ev.Date)
		assert.Equal(t, domain.TypeBirthday, ev.Type)
		assert.True(t, ev.Recurring)
		assert.True(t, ev.IsAllDay())
		assert.Equal(t, "c1", ev.ClientID)
	}
	assert.Equal(t, "🎂 Ana (34 anos)", eventsByID(events)["birthday-c1-2024"].Title)
}

func TestAggregate_BirthdayFieldVariants(t *testing.T) {
	loc := lisbon(t)
	agg := New(loc, nil)
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, loc)

	records := Records{Clients: []domain.Record{
		{"id": "a", "nome": "João", "dataNascimento": "1980-01-02"},
		{"id": "b", "firstName": "Rita", "lastName": "Sousa", "dateOfBirth": map[string]any{"seconds": float64(631152000)}},
		{"id": "c", "name": "Sem data"},
		{"id": "d", "name": "Inválida", "birthday": "not-a-date"},
		{"name": "Sem id", "birthDate": "1990-01-01"},
	}}

	events := agg.Aggregate(records, now)
	byID := eventsByID(events)
	assert.Len(t, events, 16)
	assert.Equal(t, "🎂 João (44 anos)", byID["birthday-a-2024"].Title)
	assert.Equal(t, "🎂 Rita Sousa (34 anos)", byID["birthday-b-2024"].Title)
}

func TestAggregate_BirthdayBeforeOrigin(t *testing.T) {
	loc := lisbon(t)
	agg := New(loc, nil)
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, loc)

	events := agg.Aggregate(Records{Clients: []domain.Record{
		{"id": "baby", "name": "Bebé", "birthDate": "2023-06-01"},
	}}, now)

	require.Len(t, events, 8)
	byID := eventsByID(events)
	assert.Equal(t, "🎂 Bebé", byID["birthday-baby-2022"].Title)
	assert.Equal(t, "🎂 Bebé", byID["birthday-baby-2023"].Title)
	assert.Equal(t, "🎂 Bebé (1 anos)", byID["birthday-baby-2024"].Title)
}

func TestAggregate_Property(t *testing.T) {
	loc := lisbon(t)
	agg := New(loc, nil)
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, loc)

	records := Records{Properties: []domain.Record{
		{
			"id":            "p1",
			"title":         "T2 Alfama",
			"address":       "Rua da Saudade 1",
			"cpcvDate":      "2024-02-01",
			"escrituraDate": "2024-04-20",
		},
	}}

	events := agg.Aggregate(records, now)
	byID := eventsByID(events)

	cpcv, ok := byID["cpcv-p1"]
	require.True(t, ok)
	assert.False(t, cpcv.Recurring)
	assert.Equal(t, "Rua da Saudade 1", cpcv.Location)

	// 2024〜2029 の6件 + CPCV
	assert.Len(t, events, 7)
	for year := 2024; year <= 2029; year++ {
		ev, ok := byID[fmt.Sprintf("escritura-p1-%d", year)]
		require.True(t, ok, year)
		assert.True(t, ev.Recurring)
		if year == 2024 {
			assert.Equal(t, domain.PriorityHigh, ev.Priority)
			assert.Equal(t, "🔑 Escritura - T2 Alfama", ev.Title)
		} else {
			assert.Equal(t, domain.PriorityMedium, ev.Priority)
		}
	}
	_, ok = byID["escritura-p1-2023"]
	assert.False(t, ok)
}

func TestAggregate_OpportunitiesAndTasks(t *testing.T) {
	loc := lisbon(t)
	agg := New(loc, nil)
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, loc)

	records := Records{
		Clients: []domain.Record{{"id": "c1", "name": "Ana"}},
		Opportunities: map[string][]domain.Record{
			"c1": {
				{"id": "o1", "visitDate": "2024-03-05", "visitTime": "10:30", "followUpDate": "2024-03-12", "propertyId": "p9"},
				{"id": "o2", "visitDate": "garbage"},
			},
			"ghost": {{"id": "o3", "visitDate": "2024-03-05"}},
		},
		Tasks: []domain.Record{
			{"id": "t1", "title": "Ligar ao banco", "dueDate": "2024-03-04", "dueTime": "09:00", "priority": "high"},
			{"id": "t2", "title": "Sem prazo"},
		},
	}

	events := agg.Aggregate(records, now)
	byID := eventsByID(events)
	require.Len(t, events, 3)

	visit := byID["visit-o1"]
	assert.Equal(t, domain.TypeVisit, visit.Type)
	assert.Equal(t, "10:30", visit.Time)
	assert.Equal(t, "o1", visit.OpportunityID)
	assert.Equal(t, "c1", visit.ClientID)
	assert.Equal(t, "p9", visit.PropertyID)
	assert.Equal(t, "👁️ Visita - Ana", visit.Title)

	followUp := byID["followup-o1"]
	assert.True(t, followUp.IsAllDay())
	assert.Equal(t, time.Date(2024, 3, 12, 0, 0, 0, 0, loc), followUp.Date)

	task := byID["task-t1"]
	assert.Equal(t, "✅ Ligar ao banco", task.Title)
	assert.Equal(t, domain.PriorityHigh, task.Priority)
	assert.Equal(t, "09:00", task.Time)
}

func TestAggregate_Idempotent(t *testing.T) {
	loc := lisbon(t)
	agg := New(loc, nil)
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, loc)

	client := domain.Record{"id": "c1", "name": "Ana", "birthDate": "1990-05-10"}
	records := Records{
		Clients:    []domain.Record{client},
		Properties: []domain.Record{{"id": "p1", "escrituraDate": "2020-01-01"}},
	}

	first := agg.Aggregate(records, now)
	second := agg.Aggregate(records, now)

	ids := func(evs []domain.Event) []string {
		out := make([]string, 0, len(evs))
		for _, ev := range evs {
			out = append(out, ev.ID)
		}
		return out
	}
	assert.Equal(t, ids(first), ids(second))
	// 元レコードは変更されない
	assert.Equal(t, domain.Record{"id": "c1", "name": "Ana", "birthDate": "1990-05-10"}, client)
}
