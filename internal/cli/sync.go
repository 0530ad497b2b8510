package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/k-negishi/crm-calendar-sync/internal/domain"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "全イベントをGoogleカレンダーへ同期",
	Long: `導出した全イベントのうち未同期のものをGoogleカレンダーに作成します。

Commands:
  crmcal sync                 # 一括同期
  crmcal sync status          # 最終同期時刻
  crmcal sync push <eventID>  # 1件を作成または更新
  crmcal sync remove <eventID> # 1件をリモートから削除`,
	RunE: runSync,
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "最終同期時刻を表示",
	RunE:  runSyncStatus,
}

var syncPushCmd = &cobra.Command{
	Use:   "push <eventID>",
	Short: "イベント1件を作成または更新",
	Args:  cobra.ExactArgs(1),
	RunE:  runSyncPush,
}

var syncRemoveCmd = &cobra.Command{
	Use:   "remove <eventID>",
	Short: "イベント1件をリモートから削除",
	Args:  cobra.ExactArgs(1),
	RunE:  runSyncRemove,
}

func init() {
	syncCmd.AddCommand(syncStatusCmd)
	syncCmd.AddCommand(syncPushCmd)
	syncCmd.AddCommand(syncRemoveCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	if err := requireCalendar(); err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	result, err := application.SyncAll.Execute(cmd.Context(), func(p domain.Progress) {
		fmt.Fprintf(out, "\r[%3d%%] %d/%d", p.Percentage, p.Current, p.Total)
	})
	fmt.Fprintln(out)
	if result.RunID != "" {
		printSyncResult(out, result)
	}
	return err
}

func runSyncStatus(cmd *cobra.Command, args []string) error {
	last, err := application.Mappings.LastSync(cmd.Context())
	if err != nil {
		return err
	}
	mapping, err := application.Mappings.LoadMapping(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if last.IsZero() {
		fmt.Fprintln(out, "Last sync: never")
	} else {
		fmt.Fprintf(out, "Last sync: %s\n", last.In(application.Location).Format(time.DateTime))
	}
	fmt.Fprintf(out, "Synced events: %d\n", len(mapping))
	return nil
}

func runSyncPush(cmd *cobra.Command, args []string) error {
	if err := requireCalendar(); err != nil {
		return err
	}
	ev, err := findEvent(cmd, args[0])
	if err != nil {
		return err
	}
	remoteID, err := application.Sync.Update(cmd.Context(), ev)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s → %s\n", ev.ID, remoteID)
	return nil
}

func runSyncRemove(cmd *cobra.Command, args []string) error {
	if err := requireCalendar(); err != nil {
		return err
	}
	if err := application.Sync.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s removed\n", args[0])
	return nil
}

func findEvent(cmd *cobra.Command, id string) (domain.Event, error) {
	events, err := application.Events.Execute(cmd.Context())
	if err != nil {
		return domain.Event{}, err
	}
	for _, ev := range events {
		if ev.ID == id {
			return ev, nil
		}
	}
	return domain.Event{}, fmt.Errorf("イベント %s が見つかりません", id)
}

func printSyncResult(w io.Writer, r domain.SyncResult) {
	fmt.Fprintf(w, "Run %s: %s\n", r.RunID, r.State)
	fmt.Fprintf(w, "  created: %d\n  updated: %d\n  skipped: %d\n  errors:  %d\n", r.Created, r.Updated, r.Skipped, r.Errors)
}
