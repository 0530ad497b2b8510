package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/k-negishi/crm-calendar-sync/internal/app"
	"github.com/k-negishi/crm-calendar-sync/internal/config"
	"github.com/k-negishi/crm-calendar-sync/internal/logging"
	"github.com/k-negishi/crm-calendar-sync/internal/scheduler"
)

// LambdaEvent Lambda実行時のイベント構造体
type LambdaEvent struct {
	// EventBridge Schedulerから指定する。空なら同期と通知の両方を行う
	Action string `json:"action"`
}

// LambdaResponse Lambda実行結果のレスポンス
type LambdaResponse struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

const (
	actionSync   = "sync"
	actionNotify = "notify"
)

// handler Lambda関数のメインハンドラー
func handler(ctx context.Context, event LambdaEvent) (LambdaResponse, error) {
	// 設定を読み込み
	cfg, err := config.Load()
	if err != nil {
		return LambdaResponse{
			StatusCode: 500,
			Message:    "設定読み込みエラー",
		}, err
	}

	logger := logging.New(cfg.LogLevel, true)
	defer func() { _ = logger.Sync() }()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return LambdaResponse{
			StatusCode: 500,
			Message:    "初期化エラー",
		}, err
	}
	defer a.Close()

	return process(ctx, a, event, time.Now())
}

// process 自動同期とLINE通知を順に実行
func process(ctx context.Context, a *app.App, event LambdaEvent, now time.Time) (LambdaResponse, error) {
	action := strings.ToLower(strings.TrimSpace(event.Action))
	if action != "" && action != actionSync && action != actionNotify {
		return LambdaResponse{
			StatusCode: 400,
			Message:    fmt.Sprintf("不明なアクション: %s", event.Action),
		}, nil
	}

	var messages []string

	if action == "" || action == actionSync {
		msg, err := runAutoSync(ctx, a)
		if err != nil {
			a.Logger.Error("自動同期に失敗しました", zap.Error(err))
			return LambdaResponse{
				StatusCode: 500,
				Message:    "自動同期エラー",
			}, err
		}
		messages = append(messages, msg)
	}

	if action == "" || action == actionNotify {
		msg, err := runNotify(ctx, a, now)
		if err != nil {
			a.Logger.Error("LINE通知の送信に失敗しました", zap.Error(err))
			return LambdaResponse{
				StatusCode: 500,
				Message:    "LINE通知送信エラー",
			}, err
		}
		messages = append(messages, msg)
	}

	return LambdaResponse{
		StatusCode: 200,
		Message:    strings.Join(messages, " / "),
	}, nil
}

func runAutoSync(ctx context.Context, a *app.App) (string, error) {
	if a.RequireCalendar() != nil {
		return "トークン未設定のため同期スキップ", nil
	}
	// EventBridgeが起動タイミングを決めるのでcronは登録のみで開始しない
	sched, err := scheduler.New(a.Config.AutoSyncCron, a.SyncAll, a.Settings, a.Logger)
	if err != nil {
		return "", err
	}
	ran, err := sched.RunOnce(ctx)
	if err != nil {
		return "", err
	}
	if !ran {
		return "同期スキップ", nil
	}
	return "同期完了", nil
}

func runNotify(ctx context.Context, a *app.App, now time.Time) (string, error) {
	uc, ok := a.Notifier()
	if !ok {
		return "LINE未設定のため通知スキップ", nil
	}

	// アカウントのタイムゾーンで今日と明日の日付を計算
	local := now.In(a.Location)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, a.Location)
	tomorrow := today.AddDate(0, 0, 1)

	skipped, err := uc.Execute(ctx, today, tomorrow)
	if err != nil {
		return "", err
	}
	if skipped {
		return "予定なしのため通知スキップ", nil
	}
	return "通知送信完了", nil
}

func main() {
	lambda.Start(handler)
}
