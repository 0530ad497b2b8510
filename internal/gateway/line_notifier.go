package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/k-negishi/crm-calendar-sync/internal/domain"
)

const lineEndpoint = "https://api.line.me/v2/bot/message/push"

// LINENotifier LINE Messaging APIでCRMの予定を通知するNotifierの実装
type LINENotifier struct {
	channelAccessToken string
	userID             string
	httpClient         *http.Client
	endpoint           string
	location           *time.Location
	clock              func() time.Time
}

// lineMessage LINE APIに送信するメッセージ構造体
type lineMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// linePushRequest LINE Push APIのリクエスト構造体
type linePushRequest struct {
	To       string        `json:"to"`
	Messages []lineMessage `json:"messages"`
}

// lineErrorResponse LINE APIのエラーレスポンス構造体
type lineErrorResponse struct {
	Message string `json:"message"`
	Details []struct {
		Message  string `json:"message"`
		Property string `json:"property"`
	} `json:"details"`
}

// NewLINENotifier LINE通知クライアントを作成
func NewLINENotifier(channelAccessToken, userID string, location *time.Location) *LINENotifier {
	if location == nil {
		location = time.UTC
	}
	return &LINENotifier{
		channelAccessToken: channelAccessToken,
		userID:             userID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		endpoint: lineEndpoint,
		location: location,
		clock:    time.Now,
	}
}

// SendScheduleNotification 今日と明日のCRM予定をLINEで通知
func (n *LINENotifier) SendScheduleNotification(ctx context.Context, todayEvents, tomorrowEvents []domain.Event) error {
	message := n.buildScheduleMessage(todayEvents, tomorrowEvents)
	return n.sendPushMessage(ctx, message)
}

// buildScheduleMessage 予定通知用のメッセージを構築
func (n *LINENotifier) buildScheduleMessage(todayEvents, tomorrowEvents []domain.Event) string {
	var b strings.Builder
	today := n.clock().In(n.location)
	tomorrow := today.AddDate(0, 0, 1)

	b.WriteString("Agenda CRM\n\n")
	writeDaySection(&b, "Hoje", today, todayEvents)
	b.WriteString("\n\n")
	writeDaySection(&b, "Amanhã", tomorrow, tomorrowEvents)

	return b.String()
}

// writeDaySection 1日分の見出しとイベント一覧を書き込む
func writeDaySection(b *strings.Builder, heading string, day time.Time, events []domain.Event) {
	dow := weekdayPortuguese(day.Weekday())
	if len(events) == 0 {
		fmt.Fprintf(b, "%s %s (%s): sem eventos\n", heading, day.Format("02/01"), dow)
		return
	}
	fmt.Fprintf(b, "%s %s (%s) (%d):\n", heading, day.Format("02/01"), dow, len(events))
	for _, event := range events {
		appendEventToMessage(b, event)
	}
}

// appendEventToMessage イベントをメッセージに追加
func appendEventToMessage(b *strings.Builder, event domain.Event) {
	marker := "🔸"
	if event.Priority == domain.PriorityHigh {
		marker = "❗"
	}

	if event.IsAllDay() {
		fmt.Fprintf(b, "%s %s (dia inteiro)\n", marker, event.Title)
	} else {
		fmt.Fprintf(b, "%s %s %s\n", marker, event.Time, event.Title)
	}

	if event.Location != "" {
		fmt.Fprintf(b, "   📍 %s\n", event.Location)
	}
}

// sendPushMessage LINE Push APIでメッセージを送信
func (n *LINENotifier) sendPushMessage(ctx context.Context, message string) error {
	pushRequest := linePushRequest{
		To: n.userID,
		Messages: []lineMessage{
			{
				Type: "text",
				Text: message,
			},
		},
	}

	requestBody, err := json.Marshal(pushRequest)
	if err != nil {
		return fmt.Errorf("リクエストボディのJSON変換に失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewBuffer(requestBody))
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+n.channelAccessToken)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("LINE APIリクエストの送信に失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// エラーレスポンスの詳細を取得
		var errorResponse lineErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errorResponse); err != nil {
			return fmt.Errorf("LINE API呼び出しが失敗しました (Status: %d, レスポンス解析不可: %v)", resp.StatusCode, err)
		}

		errorDetails := errorResponse.Message
		if len(errorResponse.Details) > 0 {
			errorDetails += fmt.Sprintf(" (詳細: %s)", errorResponse.Details[0].Message)
		}

		return fmt.Errorf("LINE API呼び出しが失敗しました (Status: %d): %s", resp.StatusCode, errorDetails)
	}

	return nil
}

var weekdaysPT = [...]string{"dom", "seg", "ter", "qua", "qui", "sex", "sáb"}

// weekdayPortuguese 曜日をポルトガル語の略称に変換
func weekdayPortuguese(weekday time.Weekday) string {
	return weekdaysPT[weekday]
}
