package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"github.com/k-negishi/crm-calendar-sync/internal/domain"
)

// GoogleCalendarRepository Google Calendar APIを使用したリモートカレンダーの実装
type GoogleCalendarRepository struct {
	service    *calendar.Service
	tokenInfo  *oauth2api.Service
	calendarID string
	adapter    *Adapter
	logger     *zap.Logger
}

// NewGoogleCalendarRepository OAuthアクセストークンでGoogle Calendarリポジトリを作成
func NewGoogleCalendarRepository(ctx context.Context, accessToken, calendarID string, adapter *Adapter, logger *zap.Logger) (*GoogleCalendarRepository, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("アクセストークンが設定されていません")
	}

	// Bearerトークン認証でCalendar APIクライアントを作成
	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	service, err := calendar.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("google Calendar APIサービスの作成に失敗しました: %w", err)
	}

	// トークン検証は認証なしで呼び出す
	tokenInfo, err := oauth2api.NewService(ctx, option.WithoutAuthentication())
	if err != nil {
		return nil, fmt.Errorf("トークン検証サービスの作成に失敗しました: %w", err)
	}

	return NewGoogleCalendarRepositoryWithServices(service, tokenInfo, calendarID, adapter, logger), nil
}

// NewGoogleCalendarRepositoryWithServices 作成済みのサービスからリポジトリを作成（テスト用のエンドポイント差し替えに使う）
func NewGoogleCalendarRepositoryWithServices(service *calendar.Service, tokenInfo *oauth2api.Service, calendarID string, adapter *Adapter, logger *zap.Logger) *GoogleCalendarRepository {
	if calendarID == "" {
		calendarID = "primary"
	}
	if adapter == nil {
		adapter = NewAdapter(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GoogleCalendarRepository{
		service:    service,
		tokenInfo:  tokenInfo,
		calendarID: calendarID,
		adapter:    adapter,
		logger:     logger,
	}
}

// ListCalendars 利用可能なカレンダー一覧を取得
func (r *GoogleCalendarRepository) ListCalendars(ctx context.Context) ([]domain.CalendarInfo, error) {
	list, err := r.service.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("カレンダー一覧の取得に失敗しました: %w", err)
	}

	calendars := make([]domain.CalendarInfo, 0, len(list.Items))
	for _, item := range list.Items {
		calendars = append(calendars, domain.CalendarInfo{
			ID:      item.Id,
			Summary: item.Summary,
			Primary: item.Primary,
		})
	}
	return calendars, nil
}

// GetEvents 指定された日の予定を取得
func (r *GoogleCalendarRepository) GetEvents(ctx context.Context, targetDate time.Time) ([]domain.Event, error) {
	loc := r.adapter.Location()

	// 開始時刻: 指定日の00:00:00 - inclusive
	start := time.Date(targetDate.Year(), targetDate.Month(), targetDate.Day(), 0, 0, 0, 0, loc)
	// 終了時刻: 翌日の00:00:00 - exclusive
	end := start.AddDate(0, 0, 1)

	events, err := r.service.Events.List(r.calendarID).
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(end.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(250).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("カレンダーイベントの取得に失敗しました: %w", err)
	}

	domainEvents := make([]domain.Event, 0, len(events.Items))
	for _, event := range events.Items {
		domainEvent, err := r.adapter.FromRemote(event)
		if err != nil {
			r.logger.Warn("イベントの変換をスキップしました", zap.String("remoteId", event.Id), zap.Error(err))
			continue
		}
		domainEvents = append(domainEvents, domainEvent)
	}
	return domainEvents, nil
}

// CreateEvent リモートにイベントを作成し、リモートIDを返す
func (r *GoogleCalendarRepository) CreateEvent(ctx context.Context, ev domain.Event) (string, error) {
	created, err := r.service.Events.Insert(r.calendarID, r.adapter.ToRemote(ev)).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("イベント %s の作成に失敗しました: %w", ev.ID, err)
	}
	return created.Id, nil
}

// UpdateEvent リモートイベントを全置換で更新
func (r *GoogleCalendarRepository) UpdateEvent(ctx context.Context, remoteID string, ev domain.Event) error {
	if _, err := r.service.Events.Update(r.calendarID, remoteID, r.adapter.ToRemote(ev)).Context(ctx).Do(); err != nil {
		return fmt.Errorf("イベント %s の更新に失敗しました: %w", ev.ID, err)
	}
	return nil
}

// DeleteEvent リモートイベントを削除。既に存在しない場合（404/410）は成功とみなす
func (r *GoogleCalendarRepository) DeleteEvent(ctx context.Context, remoteID string) error {
	err := r.service.Events.Delete(r.calendarID, remoteID).Context(ctx).Do()
	if err == nil {
		return nil
	}
	if isGone(err) {
		r.logger.Info("リモートイベントは既に削除されています", zap.String("remoteId", remoteID))
		return nil
	}
	return fmt.Errorf("リモートイベント %s の削除に失敗しました: %w", remoteID, err)
}

// TokenValid トークン検証エンドポイントでアクセストークンの有効性を確認
func (r *GoogleCalendarRepository) TokenValid(ctx context.Context, accessToken string) bool {
	if accessToken == "" || r.tokenInfo == nil {
		return false
	}
	info, err := r.tokenInfo.Tokeninfo().AccessToken(accessToken).Context(ctx).Do()
	if err != nil {
		r.logger.Info("アクセストークンが無効です", zap.Error(err))
		return false
	}
	return info.ExpiresIn > 0
}

// TokenEmail アクセストークンに紐づくメールアドレスを取得
func (r *GoogleCalendarRepository) TokenEmail(ctx context.Context, accessToken string) (string, error) {
	if r.tokenInfo == nil {
		return "", fmt.Errorf("トークン検証サービスが設定されていません")
	}
	info, err := r.tokenInfo.Tokeninfo().AccessToken(accessToken).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("トークン情報の取得に失敗しました: %w", err)
	}
	return info.Email, nil
}

func isGone(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone
	}
	return false
}
