package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// SSMParameterGetter Parameter Storeからの取得に使うSSMクライアントの部分
type SSMParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Config アプリケーション設定構造体
type Config struct {
	// CRMアカウント
	AccountID string

	// Google Calendar設定
	GoogleAccessToken string
	CalendarID        string
	Timezone          string
	EventDuration     time.Duration
	RemoteRecurrence  bool
	// 終日イベントの終了日を翌日にする（Google Calendar APIの排他的なend.date）
	ExclusiveAllDayEnd bool

	// 同期設定
	SyncDelay    time.Duration
	AutoSyncCron string

	// 永続化
	StoreBackend string
	SQLitePath   string
	RedisAddr    string
	DatabaseURL  string

	// LINE API設定
	LineChannelAccessToken string
	LineUserID             string

	// その他設定
	HTTPAddr string
	LogLevel string

	// AWS関連（本番環境でのみ使用）
	ssmClient SSMParameterGetter
}

// fileConfig CONFIG_FILEで指定するYAMLの内容。機密情報は含めない
type fileConfig struct {
	AccountID        string `yaml:"account_id"`
	CalendarID       string `yaml:"calendar_id"`
	Timezone         string `yaml:"timezone"`
	EventDuration    string `yaml:"event_duration"`
	RemoteRecurrence *bool  `yaml:"remote_recurrence"`
	AllDayExclusive  *bool  `yaml:"all_day_exclusive_end"`
	SyncDelay        string `yaml:"sync_delay"`
	AutoSyncCron     string `yaml:"auto_sync_cron"`
	StoreBackend     string `yaml:"store_backend"`
	SQLitePath       string `yaml:"sqlite_path"`
	RedisAddr        string `yaml:"redis_addr"`
	HTTPAddr         string `yaml:"http_addr"`
	LogLevel         string `yaml:"log_level"`
}

// Load 環境に応じて設定を読み込み
func Load() (*Config, error) {
	if onLambda() {
		return loadAWSConfig()
	}
	return loadLocalConfig()
}

// onLambda AWS Lambda環境かどうか判定
func onLambda() bool {
	return os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
}

// defaults 既定値
//
// 同期マッピングはプロセスをまたいで残す必要があるため、ローカルではSQLite、
// Lambdaではインスタンス間で共有できるRedisを使う。
func defaults() *Config {
	backend := "sqlite"
	if onLambda() {
		backend = "redis"
	}
	return &Config{
		CalendarID:         "primary",
		Timezone:           "Europe/Lisbon",
		EventDuration:      time.Hour,
		ExclusiveAllDayEnd: true,
		SyncDelay:          100 * time.Millisecond,
		AutoSyncCron:       "0 */6 * * *",
		StoreBackend:       backend,
		HTTPAddr:           ":8080",
		LogLevel:           "INFO",
	}
}

// loadLocalConfig ローカル開発環境用の設定読み込み
func loadLocalConfig() (*Config, error) {
	// .envファイルを読み込み（存在する場合のみ）
	if err := godotenv.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: .envファイルが見つかりません: %v\n", err)
	}

	cfg := defaults()
	if path := getEnvOrDefault("CONFIG_FILE", ""); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.GoogleAccessToken = getEnvOrDefault("GOOGLE_ACCESS_TOKEN", cfg.GoogleAccessToken)
	cfg.LineChannelAccessToken = getEnvOrDefault("LINE_CHANNEL_ACCESS_TOKEN", cfg.LineChannelAccessToken)
	cfg.LineUserID = getEnvOrDefault("LINE_USER_ID", cfg.LineUserID)
	cfg.DatabaseURL = getEnvOrDefault("DATABASE_URL", cfg.DatabaseURL)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadAWSConfig AWS Lambda環境用の設定読み込み
func loadAWSConfig() (*Config, error) {
	awsConfig, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		return nil, fmt.Errorf("AWS設定の読み込みに失敗しました: %w", err)
	}

	cfg := defaults()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.ssmClient = ssm.NewFromConfig(awsConfig)

	// Parameter Storeから機密情報を取得
	if err := cfg.loadFromParameterStore(context.TODO()); err != nil {
		return nil, fmt.Errorf("parameter Storeからの設定読み込みに失敗しました: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile YAMLファイルの値で既定値を上書き
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("設定ファイル %s の読み込みに失敗しました: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("設定ファイル %s の解析に失敗しました: %w", path, err)
	}

	setIfNotEmpty(&c.AccountID, fc.AccountID)
	setIfNotEmpty(&c.CalendarID, fc.CalendarID)
	setIfNotEmpty(&c.Timezone, fc.Timezone)
	setIfNotEmpty(&c.AutoSyncCron, fc.AutoSyncCron)
	setIfNotEmpty(&c.StoreBackend, fc.StoreBackend)
	setIfNotEmpty(&c.SQLitePath, fc.SQLitePath)
	setIfNotEmpty(&c.RedisAddr, fc.RedisAddr)
	setIfNotEmpty(&c.HTTPAddr, fc.HTTPAddr)
	setIfNotEmpty(&c.LogLevel, fc.LogLevel)
	if fc.RemoteRecurrence != nil {
		c.RemoteRecurrence = *fc.RemoteRecurrence
	}
	if fc.AllDayExclusive != nil {
		c.ExclusiveAllDayEnd = *fc.AllDayExclusive
	}
	if err := parseDurationInto(&c.EventDuration, "event_duration", fc.EventDuration); err != nil {
		return err
	}
	return parseDurationInto(&c.SyncDelay, "sync_delay", fc.SyncDelay)
}

// applyEnv 環境変数の値で上書き（機密情報以外）
func (c *Config) applyEnv() error {
	c.AccountID = getEnvOrDefault("ACCOUNT_ID", c.AccountID)
	c.CalendarID = getEnvOrDefault("CALENDAR_ID", c.CalendarID)
	c.Timezone = getEnvOrDefault("TIMEZONE", c.Timezone)
	c.AutoSyncCron = getEnvOrDefault("AUTO_SYNC_CRON", c.AutoSyncCron)
	c.StoreBackend = getEnvOrDefault("STORE_BACKEND", c.StoreBackend)
	c.SQLitePath = getEnvOrDefault("SQLITE_PATH", c.SQLitePath)
	c.RedisAddr = getEnvOrDefault("REDIS_ADDR", c.RedisAddr)
	c.HTTPAddr = getEnvOrDefault("HTTP_ADDR", c.HTTPAddr)
	c.LogLevel = getEnvOrDefault("LOG_LEVEL", c.LogLevel)

	if v := getEnvOrDefault("REMOTE_RECURRENCE", ""); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("REMOTE_RECURRENCEの値が不正です: %s", v)
		}
		c.RemoteRecurrence = b
	}
	if v := getEnvOrDefault("ALL_DAY_EXCLUSIVE_END", ""); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("ALL_DAY_EXCLUSIVE_ENDの値が不正です: %s", v)
		}
		c.ExclusiveAllDayEnd = b
	}
	if err := parseDurationInto(&c.EventDuration, "EVENT_DURATION", getEnvOrDefault("EVENT_DURATION", "")); err != nil {
		return err
	}
	return parseDurationInto(&c.SyncDelay, "SYNC_DELAY", getEnvOrDefault("SYNC_DELAY", ""))
}

// validate 必須項目と値の妥当性を確認
func (c *Config) validate() error {
	if c.AccountID == "" {
		return fmt.Errorf("ACCOUNT_ID環境変数が設定されていません")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("TIMEZONEの値が不正です: %s", c.Timezone)
	}
	switch c.StoreBackend {
	case "memory", "sqlite", "redis":
	default:
		return fmt.Errorf("STORE_BACKENDの値が不正です: %s", c.StoreBackend)
	}
	// Lambdaはインスタンスが使い捨てのため、マッピングをRedisに置く
	if onLambda() && c.StoreBackend != "redis" {
		return fmt.Errorf("Lambda環境ではSTORE_BACKEND=redisが必要です: %s", c.StoreBackend)
	}
	if c.EventDuration <= 0 {
		return fmt.Errorf("EVENT_DURATIONは正の値である必要があります")
	}
	if _, err := cron.ParseStandard(c.AutoSyncCron); err != nil {
		return fmt.Errorf("AUTO_SYNC_CRONの値が不正です: %s", c.AutoSyncCron)
	}
	return nil
}

// Location 設定されたタイムゾーン
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LINEEnabled LINE通知の設定が揃っているか
func (c *Config) LINEEnabled() bool {
	return c.LineChannelAccessToken != "" && c.LineUserID != ""
}

// loadFromParameterStore Parameter Storeから機密情報を読み込み
func (c *Config) loadFromParameterStore(ctx context.Context) error {
	googleTokenParam := getEnvOrDefault("SSM_GOOGLE_TOKEN_PARAM", "/crm-calendar-sync/google-access-token")
	googleToken, err := c.getParameter(ctx, googleTokenParam, true)
	if err != nil {
		return fmt.Errorf("googleアクセストークンの取得に失敗しました: %w", err)
	}
	c.GoogleAccessToken = googleToken

	lineTokenParam := getEnvOrDefault("SSM_LINE_TOKEN_PARAM", "/crm-calendar-sync/line-channel-access-token")
	lineToken, err := c.getParameter(ctx, lineTokenParam, true)
	if err != nil {
		return fmt.Errorf("LINE Channel Access Tokenの取得に失敗しました: %w", err)
	}
	c.LineChannelAccessToken = lineToken

	lineUserParam := getEnvOrDefault("SSM_LINE_USER_ID_PARAM", "/crm-calendar-sync/line-user-id")
	lineUser, err := c.getParameter(ctx, lineUserParam, true)
	if err != nil {
		return fmt.Errorf("LINE User IDの取得に失敗しました: %w", err)
	}
	c.LineUserID = lineUser

	// ドキュメントストアの接続先は任意
	if dbParam := getEnvOrDefault("SSM_DATABASE_URL_PARAM", ""); dbParam != "" {
		dbURL, err := c.getParameter(ctx, dbParam, true)
		if err != nil {
			return fmt.Errorf("DATABASE_URLの取得に失敗しました: %w", err)
		}
		c.DatabaseURL = dbURL
	}

	return nil
}

// getParameter Parameter Storeから指定されたパラメータを取得
func (c *Config) getParameter(ctx context.Context, paramName string, withDecryption bool) (string, error) {
	input := &ssm.GetParameterInput{
		Name:           aws.String(paramName),
		WithDecryption: aws.Bool(withDecryption),
	}

	result, err := c.ssmClient.GetParameter(ctx, input)
	if err != nil {
		return "", fmt.Errorf("パラメータ %s の取得に失敗しました: %w", paramName, err)
	}

	if result.Parameter == nil || result.Parameter.Value == nil || *result.Parameter.Value == "" {
		return "", fmt.Errorf("パラメータ %s が空の値です", paramName)
	}

	return *result.Parameter.Value, nil
}

// getEnvOrDefault 環境変数を取得し、存在しない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func setIfNotEmpty(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func parseDurationInto(dst *time.Duration, name, v string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%sの値が不正です: %s", name, v)
	}
	*dst = d
	return nil
}
