// Package scheduler 自動同期フラグが有効なアカウントを定期的に同期する
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/k-negishi/crm-calendar-sync/internal/domain"
	"github.com/k-negishi/crm-calendar-sync/internal/usecase"
)

// DefaultRunTimeout 1回の自動同期の上限時間
const DefaultRunTimeout = 10 * time.Minute

// Runner 一括同期を実行する
type Runner interface {
	Execute(ctx context.Context, onProgress usecase.ProgressFunc) (domain.SyncResult, error)
}

// AutoSyncFlag 自動同期の設定
type AutoSyncFlag interface {
	AutoSync(ctx context.Context) (bool, error)
}

// Scheduler cron式に従って自動同期を起動する
type Scheduler struct {
	cron    *cron.Cron
	runner  Runner
	flag    AutoSyncFlag
	logger  *zap.Logger
	timeout time.Duration
}

// New cron式（5フィールド）でSchedulerを作成
func New(spec string, runner Runner, flag AutoSyncFlag, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{
		cron:    cron.New(),
		runner:  runner,
		flag:    flag,
		logger:  logger,
		timeout: DefaultRunTimeout,
	}
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("cron式 %q の解析に失敗しました: %w", spec, err)
	}
	return s, nil
}

// Start バックグラウンドで開始
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop 新規起動を止め、実行中のジョブの終了を待つ
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error("自動同期に失敗しました", zap.Error(err))
	}
}

// RunOnce フラグが有効なら1回同期する。実行しなかった場合はfalse
func (s *Scheduler) RunOnce(ctx context.Context) (bool, error) {
	enabled, err := s.flag.AutoSync(ctx)
	if err != nil {
		return false, fmt.Errorf("自動同期フラグの取得に失敗しました: %w", err)
	}
	if !enabled {
		s.logger.Debug("自動同期は無効です")
		return false, nil
	}

	result, err := s.runner.Execute(ctx, nil)
	if errors.Is(err, usecase.ErrSyncInProgress) {
		s.logger.Info("同期中のため自動同期をスキップしました")
		return false, nil
	}
	if err != nil {
		return true, err
	}
	s.logger.Info("自動同期が完了しました",
		zap.String("runId", result.RunID),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", result.Errors),
	)
	return true, nil
}
