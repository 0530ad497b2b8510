package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/k-negishi/crm-calendar-sync/internal/aggregator"
	"github.com/k-negishi/crm-calendar-sync/internal/domain"
)

// RecordSource CRMのドキュメントストアからレコードを読み出すポート
type RecordSource interface {
	ListClients(ctx context.Context) ([]domain.Record, error)
	ListProperties(ctx context.Context) ([]domain.Record, error)
	ListTasks(ctx context.Context) ([]domain.Record, error)
	ListOpportunities(ctx context.Context, clientID string) ([]domain.Record, error)
}

// CollectEventsUseCase 元レコードを読み出してイベント集合を導出する
type CollectEventsUseCase struct {
	source     RecordSource
	aggregator *aggregator.Aggregator
	clock      func() time.Time
}

// NewCollectEventsUseCase ユースケースを生成
func NewCollectEventsUseCase(source RecordSource, agg *aggregator.Aggregator, clock func() time.Time) *CollectEventsUseCase {
	if clock == nil {
		clock = time.Now
	}
	return &CollectEventsUseCase{source: source, aggregator: agg, clock: clock}
}

// Execute 全レコードを読み出して集約する
func (uc *CollectEventsUseCase) Execute(ctx context.Context) ([]domain.Event, error) {
	records, err := uc.load(ctx)
	if err != nil {
		return nil, err
	}
	return uc.aggregator.Aggregate(records, uc.clock()), nil
}

func (uc *CollectEventsUseCase) load(ctx context.Context) (aggregator.Records, error) {
	clients, err := uc.source.ListClients(ctx)
	if err != nil {
		return aggregator.Records{}, fmt.Errorf("クライアントの取得に失敗しました: %w", err)
	}
	properties, err := uc.source.ListProperties(ctx)
	if err != nil {
		return aggregator.Records{}, fmt.Errorf("物件の取得に失敗しました: %w", err)
	}
	tasks, err := uc.source.ListTasks(ctx)
	if err != nil {
		return aggregator.Records{}, fmt.Errorf("タスクの取得に失敗しました: %w", err)
	}

	opportunities := make(map[string][]domain.Record, len(clients))
	for _, client := range clients {
		id := client.String("id")
		if id == "" {
			continue
		}
		opps, err := uc.source.ListOpportunities(ctx, id)
		if err != nil {
			return aggregator.Records{}, fmt.Errorf("クライアント %s の商談の取得に失敗しました: %w", id, err)
		}
		opportunities[id] = opps
	}

	return aggregator.Records{
		Clients:       clients,
		Properties:    properties,
		Tasks:         tasks,
		Opportunities: opportunities,
	}, nil
}
