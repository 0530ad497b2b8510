package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"

	"github.com/k-negishi/crm-calendar-sync/internal/domain"
)

func lisbon(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(DefaultTimezone)
	require.NoError(t, err)
	return loc
}

func TestAdapter_ToRemote(t *testing.T) {
	loc := lisbon(t)

	t.Run("時刻指定イベントは1時間の枠になる", func(t *testing.T) {
		ev := domain.Event{
			ID:            "visit-o1",
			Type:          domain.TypeVisit,
			Title:         "👁️ Visita - Bruno",
			Time:          "15:00",
			Date:          time.Date(2024, 3, 5, 0, 0, 0, 0, loc),
			ClientID:      "c2",
			OpportunityID: "o1",
		}

		remote := NewAdapter(loc).ToRemote(ev)
		assert.Equal(t, "2024-03-05T15:00:00", remote.Start.DateTime)
		assert.Equal(t, "2024-03-05T16:00:00", remote.End.DateTime)
		assert.Equal(t, "Europe/Lisbon", remote.Start.TimeZone)
		assert.Empty(t, remote.Start.Date)
		assert.Equal(t, "6", remote.ColorId)
		assert.Equal(t, map[string]string{
			"localId":       "visit-o1",
			"type":          "visit",
			"source":        "crm",
			"clientId":      "c2",
			"opportunityId": "o1",
		}, remote.ExtendedProperties.Private)
	})

	t.Run("終日イベントは開始日と終了日が同じ", func(t *testing.T) {
		ev := domain.Event{ID: "cpcv-p1", Type: domain.TypeCPCV, Date: time.Date(2024, 6, 1, 0, 0, 0, 0, loc), Priority: domain.PriorityHigh}
		remote := NewAdapter(loc).ToRemote(ev)
		assert.Equal(t, "2024-06-01", remote.Start.Date)
		assert.Equal(t, "2024-06-01", remote.End.Date)
		assert.Empty(t, remote.Start.DateTime)
		assert.Equal(t, "high", remote.ExtendedProperties.Private["priority"])
	})

	t.Run("終了日を翌日にするオプション", func(t *testing.T) {
		ev := domain.Event{ID: "birthday-c1-2024", Type: domain.TypeBirthday, Date: time.Date(2024, 12, 31, 0, 0, 0, 0, loc)}
		remote := NewAdapter(loc, WithExclusiveAllDayEnd(true)).ToRemote(ev)
		assert.Equal(t, "2024-12-31", remote.Start.Date)
		assert.Equal(t, "2025-01-01", remote.End.Date)

		// 読み戻しは開始日だけを見る
		back, err := NewAdapter(loc, WithExclusiveAllDayEnd(true)).FromRemote(remote)
		require.NoError(t, err)
		assert.True(t, ev.Date.Equal(back.Date))
		assert.Empty(t, back.Time)
	})

	t.Run("不正な時刻は終日扱い", func(t *testing.T) {
		ev := domain.Event{ID: "task-1", Type: domain.TypeTask, Time: "25:99", Date: time.Date(2024, 6, 1, 0, 0, 0, 0, loc)}
		remote := NewAdapter(loc).ToRemote(ev)
		assert.Equal(t, "2024-06-01", remote.Start.Date)
	})

	t.Run("長さの指定", func(t *testing.T) {
		ev := domain.Event{ID: "task-1", Type: domain.TypeTask, Time: "09:30", Date: time.Date(2024, 6, 1, 0, 0, 0, 0, loc)}
		remote := NewAdapter(loc, WithDuration(30*time.Minute)).ToRemote(ev)
		assert.Equal(t, "2024-06-01T10:00:00", remote.End.DateTime)
	})

	t.Run("RRULEは既定では付与しない", func(t *testing.T) {
		ev := domain.Event{ID: "birthday-c1-2024", Type: domain.TypeBirthday, Recurring: true, Date: time.Date(2024, 5, 10, 0, 0, 0, 0, loc)}
		assert.Empty(t, NewAdapter(loc).ToRemote(ev).Recurrence)

		remote := NewAdapter(loc, WithRemoteRecurrence(true)).ToRemote(ev)
		require.Len(t, remote.Recurrence, 1)
		assert.Contains(t, remote.Recurrence[0], "FREQ=YEARLY")
	})

	t.Run("未知の種別は既定色", func(t *testing.T) {
		assert.Equal(t, "1", ColorFor(domain.EventType("meeting")))
		assert.Equal(t, "5", ColorFor(domain.TypeBirthday))
	})
}

func TestAdapter_FromRemote(t *testing.T) {
	loc := lisbon(t)
	adapter := NewAdapter(loc)

	tests := []struct {
		name    string
		event   *calendar.Event
		want    domain.Event
		wantErr string
	}{
		{
			name: "ローカル日時とタイムゾーン",
			event: &calendar.Event{
				Id:      "r1",
				Summary: "✅ Ligar",
				Start:   &calendar.EventDateTime{DateTime: "2024-03-05T09:00:00", TimeZone: "Europe/Lisbon"},
				ExtendedProperties: &calendar.EventExtendedProperties{
					Private: map[string]string{"localId": "task-1", "type": "task", "priority": "high"},
				},
			},
			want: domain.Event{
				ID: "task-1", Type: domain.TypeTask, Title: "✅ Ligar", Time: "09:00",
				Date: time.Date(2024, 3, 5, 0, 0, 0, 0, loc), Priority: domain.PriorityHigh,
			},
		},
		{
			name: "終日イベントで種別が繰り返し",
			event: &calendar.Event{
				Id:    "r2",
				Start: &calendar.EventDateTime{Date: "2024-05-10"},
				ExtendedProperties: &calendar.EventExtendedProperties{
					Private: map[string]string{"localId": "birthday-c1-2024", "type": "birthday", "clientId": "c1"},
				},
			},
			want: domain.Event{
				ID: "birthday-c1-2024", Type: domain.TypeBirthday, Title: "(sem título)",
				Date: time.Date(2024, 5, 10, 0, 0, 0, 0, loc), Recurring: true, ClientID: "c1",
			},
		},
		{
			name: "拡張プロパティなしはリモートIDを使う",
			event: &calendar.Event{
				Id:      "r3",
				Summary: "Almoço",
				Start:   &calendar.EventDateTime{Date: "2024-05-11"},
			},
			want: domain.Event{ID: "r3", Title: "Almoço", Date: time.Date(2024, 5, 11, 0, 0, 0, 0, loc)},
		},
		{
			name:    "開始時刻なし",
			event:   &calendar.Event{Id: "r4"},
			wantErr: "開始時刻が設定されていません",
		},
		{
			name:    "開始日時が空",
			event:   &calendar.Event{Id: "r5", Start: &calendar.EventDateTime{}},
			wantErr: "開始時刻が設定されていません",
		},
		{
			name:    "不正な日時",
			event:   &calendar.Event{Id: "r6", Start: &calendar.EventDateTime{DateTime: "ontem"}},
			wantErr: "開始時刻の解析に失敗しました",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := adapter.FromRemote(tt.event)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.ID, got.ID)
			assert.Equal(t, tt.want.Type, got.Type)
			assert.Equal(t, tt.want.Title, got.Title)
			assert.Equal(t, tt.want.Time, got.Time)
			assert.True(t, tt.want.Date.Equal(got.Date), "date: want %v got %v", tt.want.Date, got.Date)
			assert.Equal(t, tt.want.Recurring, got.Recurring)
			assert.Equal(t, tt.want.Priority, got.Priority)
			assert.Equal(t, tt.want.ClientID, got.ClientID)
		})
	}
}

func TestAdapter_RoundTrip(t *testing.T) {
	loc := lisbon(t)
	adapter := NewAdapter(loc)
	ev := domain.Event{
		ID:    "followup-o2",
		Type:  domain.TypeFollowUp,
		Title: "📞 Follow-up - Carla",
		Time:  "18:15",
		Date:  time.Date(2024, 10, 27, 0, 0, 0, 0, loc),
	}

	got, err := adapter.FromRemote(adapter.ToRemote(ev))
	require.NoError(t, err)
	assert.Equal(t, ev.ID, got.ID)
	assert.Equal(t, ev.Time, got.Time)
	assert.True(t, ev.Date.Equal(got.Date))
}
