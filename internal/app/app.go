// Package app 設定から各コンポーネントを組み立てる
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/k-negishi/crm-calendar-sync/internal/aggregator"
	"github.com/k-negishi/crm-calendar-sync/internal/config"
	"github.com/k-negishi/crm-calendar-sync/internal/gateway"
	"github.com/k-negishi/crm-calendar-sync/internal/source"
	"github.com/k-negishi/crm-calendar-sync/internal/store"
	"github.com/k-negishi/crm-calendar-sync/internal/usecase"
)

// ErrNoToken Googleのアクセストークンが設定されていない
var ErrNoToken = errors.New("Googleアクセストークンが設定されていません")

// App 1アカウント分の依存関係
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Location *time.Location

	Store    *store.Opened
	Settings *store.SettingsRepository
	Mappings *store.MappingRepository
	Events   *usecase.CollectEventsUseCase

	// 以下はトークンがある場合のみ設定される
	Calendar *gateway.GoogleCalendarRepository
	Sync     *usecase.SyncCalendarUseCase
	SyncAll  *usecase.SyncAllUseCase

	dial    func(ctx context.Context, token string, adapter *gateway.Adapter) (*gateway.GoogleCalendarRepository, error)
	closers []func()
}

// New 設定からAppを組み立てる
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: logger, Location: cfg.Location()}
	a.dial = func(ctx context.Context, token string, adapter *gateway.Adapter) (*gateway.GoogleCalendarRepository, error) {
		return gateway.NewGoogleCalendarRepository(ctx, token, cfg.CalendarID, adapter, logger)
	}

	opened, err := store.Open(ctx, store.Options{
		Backend:    store.Backend(cfg.StoreBackend),
		SQLitePath: cfg.SQLitePath,
		RedisAddr:  cfg.RedisAddr,
	})
	if err != nil {
		return nil, fmt.Errorf("ストアのオープンに失敗しました: %w", err)
	}
	a.Store = opened
	a.closers = append(a.closers, func() { _ = opened.Close() })

	a.Settings = store.NewSettingsRepository(opened.KV, cfg.AccountID)
	a.Mappings = store.NewMappingRepository(opened.KV, cfg.AccountID)

	primary, err := a.openSource(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	cached := source.NewCachedSource(primary, store.NewRecordCache(opened.KV, cfg.AccountID), logger)
	agg := aggregator.New(a.Location, logger)
	a.Events = usecase.NewCollectEventsUseCase(cached, agg, a.now)

	token := cfg.GoogleAccessToken
	if token == "" {
		if token, err = a.Settings.Token(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}
	if token != "" {
		if err := a.connectCalendar(ctx, token); err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

func (a *App) openSource(ctx context.Context) (source.Source, error) {
	if a.Config.DatabaseURL == "" {
		a.Logger.Info("DATABASE_URLが未設定のためキャッシュのみで動作します")
		return source.Offline{}, nil
	}
	pool, err := source.NewPool(ctx, a.Config.DatabaseURL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, pool.Close)

	pg := source.NewPostgres(pool, a.Config.AccountID)
	if err := pg.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return pg, nil
}

func (a *App) connectCalendar(ctx context.Context, token string) error {
	repo, err := a.dialCalendar(ctx, token)
	if err != nil {
		return err
	}
	a.useCalendar(repo)
	return nil
}

func (a *App) dialCalendar(ctx context.Context, token string) (*gateway.GoogleCalendarRepository, error) {
	adapter := gateway.NewAdapter(a.Location,
		gateway.WithDuration(a.Config.EventDuration),
		gateway.WithRemoteRecurrence(a.Config.RemoteRecurrence),
		gateway.WithExclusiveAllDayEnd(a.Config.ExclusiveAllDayEnd),
	)
	return a.dial(ctx, token, adapter)
}

func (a *App) useCalendar(repo *gateway.GoogleCalendarRepository) {
	a.Calendar = repo
	a.Sync = usecase.NewSyncCalendarUseCase(a.Config.AccountID, repo, a.Mappings, a.Store.Guard,
		usecase.WithSyncDelay(a.Config.SyncDelay),
		usecase.WithSyncLogger(a.Logger),
	)
	a.SyncAll = usecase.NewSyncAllUseCase(a.Events, a.Sync)
}

// RequireCalendar リモートカレンダーが使えなければErrNoToken
func (a *App) RequireCalendar() error {
	if a.Calendar == nil {
		return ErrNoToken
	}
	return nil
}

// Notifier LINE通知が設定されていればユースケースを返す
func (a *App) Notifier() (*usecase.NotifyScheduleUseCase, bool) {
	if !a.Config.LINEEnabled() {
		return nil, false
	}
	notifier := gateway.NewLINENotifier(a.Config.LineChannelAccessToken, a.Config.LineUserID, a.Location)
	return usecase.NewNotifyScheduleUseCase(a.Events, notifier, a.Logger), true
}

// SaveToken トークンを検証して保存し、プロフィールを更新する
//
// 検証に失敗した場合は接続中のカレンダーをそのまま残す。
func (a *App) SaveToken(ctx context.Context, token string) (*store.Profile, error) {
	repo, err := a.dialCalendar(ctx, token)
	if err != nil {
		return nil, err
	}
	if !repo.TokenValid(ctx, token) {
		return nil, fmt.Errorf("アクセストークンが無効です")
	}
	if err := a.Settings.SaveToken(ctx, token); err != nil {
		return nil, err
	}
	a.useCalendar(repo)

	profile := store.Profile{}
	if email, err := repo.TokenEmail(ctx, token); err != nil {
		a.Logger.Warn("メールアドレスを取得できませんでした", zap.Error(err))
	} else {
		profile.Email = email
	}
	if err := a.Settings.SaveProfile(ctx, profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Logout 保存済みのトークンとプロフィールを削除する
func (a *App) Logout(ctx context.Context) error {
	a.Calendar, a.Sync, a.SyncAll = nil, nil, nil
	return a.Settings.ClearToken(ctx)
}

func (a *App) now() time.Time {
	return time.Now().In(a.Location)
}

// Close 開いたリソースを逆順に閉じる
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
