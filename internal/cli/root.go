package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/k-negishi/crm-calendar-sync/internal/app"
	"github.com/k-negishi/crm-calendar-sync/internal/config"
	"github.com/k-negishi/crm-calendar-sync/internal/logging"
)

var (
	logLevel string
	jsonLogs bool

	application *app.App
)

var rootCmd = &cobra.Command{
	Use:   "crmcal",
	Short: "CRMのイベントをGoogleカレンダーへ同期する",
	Long: `crmcal は CRM（顧客・物件・タスク・商談）のレコードからカレンダーイベントを導出し、
Googleカレンダーへの一方向同期・ICSエクスポート・LINEでの予定通知を行います。

Examples:
  crmcal events --upcoming 10
  crmcal sync
  crmcal export -o agenda.ics
  crmcal serve`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}

		logger := logging.New(cfg.LogLevel, jsonLogs)
		a, err := app.New(cmd.Context(), cfg, logger)
		if err != nil {
			logger.Error("初期化に失敗しました", zap.Error(err))
			return err
		}
		application = a
		logger.Debug("crmcal started", zap.String("command", cmd.Name()), zap.String("account", cfg.AccountID))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if application == nil {
			return
		}
		application.Close()
		_ = application.Logger.Sync()
	},
}

// Execute ルートコマンドを実行。SIGINT/SIGTERMでコンテキストをキャンセルする
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (DEBUG, INFO, WARN, ERROR)")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "Output logs as JSON")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(calendarsCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(autoSyncCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(notifyCmd)
}

func requireCalendar() error {
	if err := application.RequireCalendar(); err != nil {
		return fmt.Errorf("%w（GOOGLE_ACCESS_TOKEN を設定するか crmcal token set を実行してください）", err)
	}
	return nil
}
