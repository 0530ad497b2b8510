package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/k-negishi/crm-calendar-sync/internal/domain"
	"github.com/k-negishi/crm-calendar-sync/internal/query"
)

// EventCollector 通知対象のイベント集合を返すポート
type EventCollector interface {
	Execute(ctx context.Context) ([]domain.Event, error)
}

// Notifier 通知を送信するポート
type Notifier interface {
	SendScheduleNotification(ctx context.Context, todayEvents, tomorrowEvents []domain.Event) error
}

// NotifyScheduleUseCase CRM予定の通知ユースケース
type NotifyScheduleUseCase struct {
	collector EventCollector
	notifier  Notifier
	logger    *zap.Logger
}

// NewNotifyScheduleUseCase ユースケースを生成
func NewNotifyScheduleUseCase(collector EventCollector, notifier Notifier, logger *zap.Logger) *NotifyScheduleUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotifyScheduleUseCase{
		collector: collector,
		notifier:  notifier,
		logger:    logger,
	}
}

// Execute 今日と明日のCRM予定を抽出し、通知を送信する
func (uc *NotifyScheduleUseCase) Execute(ctx context.Context, today, tomorrow time.Time) (skipped bool, err error) {
	events, err := uc.collector.Execute(ctx)
	if err != nil {
		uc.logger.Error("予定の取得に失敗しました", zap.Error(err))
		return false, err
	}

	todayEvents := query.Upcoming(query.EventsOnDate(events, today), today, 0)
	tomorrowEvents := query.Upcoming(query.EventsOnDate(events, tomorrow), tomorrow, 0)

	// 予定が両日ともない場合はスキップ
	if len(todayEvents) == 0 && len(tomorrowEvents) == 0 {
		return true, nil
	}

	if err := uc.notifier.SendScheduleNotification(ctx, todayEvents, tomorrowEvents); err != nil {
		uc.logger.Error("LINE通知の送信に失敗しました", zap.Error(err))
		return false, err
	}

	return false, nil
}
