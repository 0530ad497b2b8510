package usecase

import (
	"context"

	"github.com/k-negishi/crm-calendar-sync/internal/domain"
)

// SyncAllUseCase 最新のイベント集合を導出して一括同期する
type SyncAllUseCase struct {
	collector EventCollector
	syncer    *SyncCalendarUseCase
}

// NewSyncAllUseCase ユースケースを生成
func NewSyncAllUseCase(collector EventCollector, syncer *SyncCalendarUseCase) *SyncAllUseCase {
	return &SyncAllUseCase{collector: collector, syncer: syncer}
}

// Execute イベントを集約して同期する
func (uc *SyncAllUseCase) Execute(ctx context.Context, onProgress ProgressFunc) (domain.SyncResult, error) {
	events, err := uc.collector.Execute(ctx)
	if err != nil {
		return domain.SyncResult{}, err
	}
	return uc.syncer.Sync(ctx, events, onProgress)
}
