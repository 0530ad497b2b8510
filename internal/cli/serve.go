package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/k-negishi/crm-calendar-sync/internal/httpapi"
	"github.com/k-negishi/crm-calendar-sync/internal/scheduler"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "HTTP APIと自動同期スケジューラを起動",
	RunE:  runServe,
}

var serveNoScheduler bool

func init() {
	serveCmd.Flags().BoolVar(&serveNoScheduler, "no-scheduler", false, "Do not start the auto-sync scheduler")
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := requireCalendar(); err != nil {
		return err
	}
	ctx := cmd.Context()
	cfg := application.Config
	logger := application.Logger

	if !serveNoScheduler {
		sched, err := scheduler.New(cfg.AutoSyncCron, application.SyncAll, application.Settings, logger)
		if err != nil {
			return err
		}
		sched.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			sched.Stop(stopCtx)
		}()
		logger.Info("自動同期スケジューラを開始しました", zap.String("cron", cfg.AutoSyncCron))
	}

	handler := httpapi.NewHandler(
		application.Events,
		application.SyncAll,
		application.Sync,
		application.Calendar,
		application.Settings,
		application.Location,
		logger,
	)
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("HTTP API listening", zap.String("addr", cfg.HTTPAddr))
	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
	return nil
}
