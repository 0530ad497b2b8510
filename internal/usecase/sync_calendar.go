package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/k-negishi/crm-calendar-sync/internal/domain"
)

// DefaultSyncDelay リモートAPIへのリクエスト間隔
const DefaultSyncDelay = 100 * time.Millisecond

// ErrSyncInProgress 同じアカウントで同期が実行中
var ErrSyncInProgress = errors.New("このアカウントは同期中です")

// RemoteCalendar リモートカレンダーへの書き込みポート
type RemoteCalendar interface {
	CreateEvent(ctx context.Context, ev domain.Event) (string, error)
	UpdateEvent(ctx context.Context, remoteID string, ev domain.Event) error
	DeleteEvent(ctx context.Context, remoteID string) error
	TokenValid(ctx context.Context, accessToken string) bool
}

// MappingStore 対応表と最終同期時刻の永続化ポート
type MappingStore interface {
	LoadMapping(ctx context.Context) (domain.Mapping, error)
	SaveMapping(ctx context.Context, m domain.Mapping) error
	LastSync(ctx context.Context) (time.Time, error)
	SaveLastSync(ctx context.Context, t time.Time) error
}

// SyncGuard アカウント単位の同期排他ポート
type SyncGuard interface {
	Acquire(ctx context.Context, accountID string) (bool, error)
	Release(ctx context.Context, accountID string) error
}

// ProgressFunc 1イベント処理するごとに呼ばれる
type ProgressFunc func(domain.Progress)

// SyncCalendarUseCase ローカル→リモートの一方向同期ユースケース
type SyncCalendarUseCase struct {
	accountID string
	remote    RemoteCalendar
	mappings  MappingStore
	guard     SyncGuard
	delay     time.Duration
	logger    *zap.Logger
	clock     func() time.Time
	newRunID  func() string

	mu     sync.Mutex
	status domain.SyncResult
}

// SyncOption SyncCalendarUseCaseの設定
type SyncOption func(*SyncCalendarUseCase)

// WithSyncDelay リクエスト間隔を指定。0以下なら待たない
func WithSyncDelay(d time.Duration) SyncOption {
	return func(uc *SyncCalendarUseCase) { uc.delay = d }
}

// WithSyncLogger ロガーを指定
func WithSyncLogger(l *zap.Logger) SyncOption {
	return func(uc *SyncCalendarUseCase) {
		if l != nil {
			uc.logger = l
		}
	}
}

// WithSyncClock 現在時刻の取得方法を指定
func WithSyncClock(clock func() time.Time) SyncOption {
	return func(uc *SyncCalendarUseCase) { uc.clock = clock }
}

// NewSyncCalendarUseCase ユースケースを生成
func NewSyncCalendarUseCase(accountID string, remote RemoteCalendar, mappings MappingStore, guard SyncGuard, opts ...SyncOption) *SyncCalendarUseCase {
	uc := &SyncCalendarUseCase{
		accountID: accountID,
		remote:    remote,
		mappings:  mappings,
		guard:     guard,
		delay:     DefaultSyncDelay,
		logger:    zap.NewNop(),
		clock:     time.Now,
		newRunID:  uuid.NewString,
		status:    domain.SyncResult{State: domain.SyncIdle},
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Status 直近の同期状態
func (uc *SyncCalendarUseCase) Status() domain.SyncResult {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.status
}

func (uc *SyncCalendarUseCase) setStatus(r domain.SyncResult) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.status = r
}

// LastSync 永続化された最終同期時刻
func (uc *SyncCalendarUseCase) LastSync(ctx context.Context) (time.Time, error) {
	return uc.mappings.LastSync(ctx)
}

// Sync 全イベントを順に処理する。対応表にあるものはスキップし、ないものだけ作成する
//
// 個々の作成失敗は件数に数えるだけで処理は続行する。ctxがキャンセルされた場合は
// その時点までの対応表と最終同期時刻を保存し、State=abortedの結果とctx.Err()を返す。
func (uc *SyncCalendarUseCase) Sync(ctx context.Context, events []domain.Event, onProgress ProgressFunc) (domain.SyncResult, error) {
	release, err := uc.acquire(ctx)
	if err != nil {
		return domain.SyncResult{}, err
	}
	defer release()

	mapping, err := uc.mappings.LoadMapping(ctx)
	if err != nil {
		return domain.SyncResult{}, fmt.Errorf("対応表の読み込みに失敗しました: %w", err)
	}

	result := domain.SyncResult{RunID: uc.newRunID(), State: domain.SyncRunning}
	uc.setStatus(result)
	logger := uc.logger.With(zap.String("runId", result.RunID), zap.String("accountId", uc.accountID))
	logger.Info("同期を開始します", zap.Int("total", len(events)))

	limiter := uc.newLimiter()
	total := len(events)
	var runErr error

	for i, ev := range events {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		if _, ok := mapping[ev.ID]; ok {
			result.Skipped++
		} else {
			if err := limiter.Wait(ctx); err != nil {
				runErr = err
				break
			}
			remoteID, err := uc.remote.CreateEvent(ctx, ev)
			if err != nil {
				result.Errors++
				logger.Warn("イベントの作成に失敗しました", zap.String("eventId", ev.ID), zap.Error(err))
			} else {
				mapping[ev.ID] = remoteID
				result.Created++
			}
		}

		if onProgress != nil {
			onProgress(domain.NewProgress(i+1, total))
		}
		uc.setStatus(result)
	}

	result.State = domain.SyncCompleted
	if runErr != nil {
		result.State = domain.SyncAborted
		logger.Warn("同期が中断されました", zap.Error(runErr))
	}

	// 中断時も作成済みの対応を失わないよう、キャンセルされないコンテキストで保存する
	persistCtx := context.WithoutCancel(ctx)
	result.LastSync = uc.clock()
	if err := uc.mappings.SaveMapping(persistCtx, mapping); err != nil {
		result.State = domain.SyncAborted
		uc.setStatus(result)
		return result, fmt.Errorf("対応表の保存に失敗しました: %w", err)
	}
	if err := uc.mappings.SaveLastSync(persistCtx, result.LastSync); err != nil {
		result.State = domain.SyncAborted
		uc.setStatus(result)
		return result, fmt.Errorf("最終同期時刻の保存に失敗しました: %w", err)
	}

	uc.setStatus(result)
	logger.Info("同期が終了しました",
		zap.String("state", string(result.State)),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", result.Errors),
	)
	return result, runErr
}

// Create 1件作成して対応表に記録する
func (uc *SyncCalendarUseCase) Create(ctx context.Context, ev domain.Event) (string, error) {
	release, err := uc.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	mapping, err := uc.mappings.LoadMapping(ctx)
	if err != nil {
		return "", fmt.Errorf("対応表の読み込みに失敗しました: %w", err)
	}
	return uc.createLocked(ctx, mapping, ev)
}

// Update 対応があれば全置換で更新し、なければ作成する
func (uc *SyncCalendarUseCase) Update(ctx context.Context, ev domain.Event) (string, error) {
	release, err := uc.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	mapping, err := uc.mappings.LoadMapping(ctx)
	if err != nil {
		return "", fmt.Errorf("対応表の読み込みに失敗しました: %w", err)
	}

	remoteID, ok := mapping[ev.ID]
	if !ok {
		return uc.createLocked(ctx, mapping, ev)
	}
	if err := uc.remote.UpdateEvent(ctx, remoteID, ev); err != nil {
		return "", err
	}
	return remoteID, nil
}

// Delete 対応があればリモートから削除して対応を外す。なければ何もしない
func (uc *SyncCalendarUseCase) Delete(ctx context.Context, eventID string) error {
	release, err := uc.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	mapping, err := uc.mappings.LoadMapping(ctx)
	if err != nil {
		return fmt.Errorf("対応表の読み込みに失敗しました: %w", err)
	}

	remoteID, ok := mapping[eventID]
	if !ok {
		return nil
	}
	if err := uc.remote.DeleteEvent(ctx, remoteID); err != nil {
		return err
	}
	delete(mapping, eventID)
	if err := uc.mappings.SaveMapping(ctx, mapping); err != nil {
		return fmt.Errorf("対応表の保存に失敗しました: %w", err)
	}
	return nil
}

// TokenValid アクセストークンが有効か確認する
func (uc *SyncCalendarUseCase) TokenValid(ctx context.Context, accessToken string) bool {
	return uc.remote.TokenValid(ctx, accessToken)
}

func (uc *SyncCalendarUseCase) createLocked(ctx context.Context, mapping domain.Mapping, ev domain.Event) (string, error) {
	remoteID, err := uc.remote.CreateEvent(ctx, ev)
	if err != nil {
		return "", err
	}
	mapping[ev.ID] = remoteID
	if err := uc.mappings.SaveMapping(ctx, mapping); err != nil {
		return "", fmt.Errorf("対応表の保存に失敗しました: %w", err)
	}
	return remoteID, nil
}

// acquire 排他を取得し、解放関数を返す
func (uc *SyncCalendarUseCase) acquire(ctx context.Context) (func(), error) {
	ok, err := uc.guard.Acquire(ctx, uc.accountID)
	if err != nil {
		return nil, fmt.Errorf("同期ロックの取得に失敗しました: %w", err)
	}
	if !ok {
		return nil, ErrSyncInProgress
	}
	return func() {
		if err := uc.guard.Release(context.WithoutCancel(ctx), uc.accountID); err != nil {
			uc.logger.Error("同期ロックの解放に失敗しました", zap.Error(err))
		}
	}, nil
}

func (uc *SyncCalendarUseCase) newLimiter() *rate.Limiter {
	if uc.delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(uc.delay), 1)
}
