package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/k-negishi/crm-calendar-sync/internal/app"
	"github.com/k-negishi/crm-calendar-sync/internal/config"
	"github.com/k-negishi/crm-calendar-sync/internal/domain"
	"github.com/k-negishi/crm-calendar-sync/internal/source"
	"github.com/k-negishi/crm-calendar-sync/internal/store"
)

// setupApp キャッシュにタスクを1件入れたオフラインのAppを用意する
func setupApp(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	a, err := app.New(ctx, &config.Config{
		AccountID:     "acc-1",
		Timezone:      "Europe/Lisbon",
		EventDuration: time.Hour,
		StoreBackend:  "memory",
		AutoSyncCron:  "0 */6 * * *",
	}, nil)
	require.NoError(t, err)

	cache := store.NewRecordCache(a.Store.KV, "acc-1")
	require.NoError(t, cache.SaveRecords(ctx, source.CollectionClients, []domain.Record{}))
	require.NoError(t, cache.SaveRecords(ctx, source.CollectionProperties, []domain.Record{}))
	require.NoError(t, cache.SaveRecords(ctx, source.CollectionTasks, []domain.Record{
		{"id": "t1", "title": "Ligar ao banco", "dueDate": "2024-06-10", "dueTime": "15:00", "priority": "high"},
	}))

	application = a
	t.Cleanup(func() {
		a.Close()
		application = nil
	})
}

func run(t *testing.T, runE func(*cobra.Command, []string) error, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetContext(context.Background())
	err := runE(cmd, args)
	return out.String(), err
}

func TestFormatEvent(t *testing.T) {
	day := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	timed := formatEvent(domain.Event{ID: "task-t1", Type: domain.TypeTask, Title: "✅ Ligar", Time: "15:00", Date: day, Priority: domain.PriorityHigh})
	assert.Equal(t, "2024-06-10 15:00 ! [Tarefa]     ✅ Ligar  (task-t1)", timed)

	allDay := formatEvent(domain.Event{ID: "birthday-c1-2024", Type: domain.TypeBirthday, Title: "🎂 Ana", Date: day})
	assert.True(t, strings.HasPrefix(allDay, "2024-06-10         [Aniversário]"))
}

func TestPrintSyncResult(t *testing.T) {
	var buf bytes.Buffer
	printSyncResult(&buf, domain.SyncResult{RunID: "r-1", State: domain.SyncCompleted, Created: 2, Skipped: 1})
	assert.Contains(t, buf.String(), "Run r-1: completed")
	assert.Contains(t, buf.String(), "created: 2")
	assert.Contains(t, buf.String(), "skipped: 1")
}

func TestRunEvents(t *testing.T) {
	setupApp(t)
	t.Cleanup(func() { eventsSearch, eventsDate, eventsUpcoming, eventsRemote = "", "", -1, false })

	eventsUpcoming = -1
	out, err := run(t, runEvents)
	require.NoError(t, err)
	assert.Contains(t, out, "✅ Ligar ao banco")

	eventsSearch = "nada"
	out, err = run(t, runEvents)
	require.NoError(t, err)
	assert.Contains(t, out, "No events found.")

	eventsSearch, eventsDate = "", "10/06/2024"
	_, err = run(t, runEvents)
	assert.Error(t, err)

	eventsDate, eventsRemote = "2024-06-10", true
	_, err = run(t, runEvents)
	assert.ErrorIs(t, err, app.ErrNoToken)
}

func TestRunExport(t *testing.T) {
	setupApp(t)
	path := filepath.Join(t.TempDir(), "agenda.ics")
	exportOutput = path
	t.Cleanup(func() { exportOutput = "" })

	out, err := run(t, runExport)
	require.NoError(t, err)
	assert.Contains(t, out, "1 events exported")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "UID:task-t1@crm-calendar-sync")
}

func TestRunSyncStatus(t *testing.T) {
	setupApp(t)
	out, err := run(t, runSyncStatus)
	require.NoError(t, err)
	assert.Contains(t, out, "Last sync: never")
	assert.Contains(t, out, "Synced events: 0")
}

func TestRunSync_RequiresToken(t *testing.T) {
	setupApp(t)
	_, err := run(t, runSync)
	assert.ErrorIs(t, err, app.ErrNoToken)
}

func TestAutoSyncCommand(t *testing.T) {
	setupApp(t)

	out, err := run(t, autoSyncCmd.RunE, "on")
	require.NoError(t, err)
	assert.Contains(t, out, "Auto-sync: on")

	out, err = run(t, autoSyncCmd.RunE)
	require.NoError(t, err)
	assert.Contains(t, out, "Auto-sync: on")

	_, err = run(t, autoSyncCmd.RunE, "maybe")
	assert.Error(t, err)
}

func TestNotifyCommand_RequiresLINE(t *testing.T) {
	setupApp(t)
	_, err := run(t, notifyCmd.RunE)
	assert.Error(t, err)
}
