package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/k-negishi/crm-calendar-sync/internal/domain"
)

// アカウント単位で保存する値の名前
const (
	keyMapping  = "calendar-mapping"
	keyLastSync = "calendar-last-sync"
	keyToken    = "calendar-token"
	keyProfile  = "calendar-profile"
	keyAutoSync = "calendar-auto-sync"
	keyRecords  = "records-cache:"
)

// MappingRepository ローカルID→リモートIDの対応表と最終同期時刻の永続化
type MappingRepository struct {
	kv        KV
	accountID string
}

// NewMappingRepository MappingRepositoryを作成
func NewMappingRepository(kv KV, accountID string) *MappingRepository {
	return &MappingRepository{kv: kv, accountID: accountID}
}

// LoadMapping 保存済みの対応表を返す。未保存なら空
func (r *MappingRepository) LoadMapping(ctx context.Context) (domain.Mapping, error) {
	m := domain.Mapping{}
	found, err := loadJSON(ctx, r.kv, Key(r.accountID, keyMapping), &m)
	if err != nil {
		return nil, err
	}
	if !found || m == nil {
		return domain.Mapping{}, nil
	}
	return m, nil
}

// SaveMapping 対応表を保存
func (r *MappingRepository) SaveMapping(ctx context.Context, m domain.Mapping) error {
	return saveJSON(ctx, r.kv, Key(r.accountID, keyMapping), m)
}

// LastSync 最終同期時刻。未同期ならゼロ値
func (r *MappingRepository) LastSync(ctx context.Context) (time.Time, error) {
	v, err := r.kv.Get(ctx, Key(r.accountID, keyLastSync))
	if errors.Is(err, ErrNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("最終同期時刻の解析に失敗しました: %w", err)
	}
	return t, nil
}

// SaveLastSync 最終同期時刻をISO形式で保存
func (r *MappingRepository) SaveLastSync(ctx context.Context, t time.Time) error {
	return r.kv.Set(ctx, Key(r.accountID, keyLastSync), t.UTC().Format(time.RFC3339))
}

// Profile 連携しているGoogleアカウントの情報
type Profile struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// SettingsRepository アクセストークン・プロフィール・自動同期フラグの永続化
type SettingsRepository struct {
	kv        KV
	accountID string
}

// NewSettingsRepository SettingsRepositoryを作成
func NewSettingsRepository(kv KV, accountID string) *SettingsRepository {
	return &SettingsRepository{kv: kv, accountID: accountID}
}

// Token 保存済みアクセストークン。未保存なら空文字
func (r *SettingsRepository) Token(ctx context.Context) (string, error) {
	v, err := r.kv.Get(ctx, Key(r.accountID, keyToken))
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return v, err
}

// SaveToken アクセストークンを保存
func (r *SettingsRepository) SaveToken(ctx context.Context, token string) error {
	return r.kv.Set(ctx, Key(r.accountID, keyToken), token)
}

// ClearToken アクセストークンとプロフィールを削除
func (r *SettingsRepository) ClearToken(ctx context.Context) error {
	if err := r.kv.Delete(ctx, Key(r.accountID, keyToken)); err != nil {
		return err
	}
	return r.kv.Delete(ctx, Key(r.accountID, keyProfile))
}

// Profile 保存済みプロフィール
func (r *SettingsRepository) Profile(ctx context.Context) (*Profile, error) {
	var p Profile
	found, err := loadJSON(ctx, r.kv, Key(r.accountID, keyProfile), &p)
	if err != nil || !found {
		return nil, err
	}
	return &p, nil
}

// SaveProfile プロフィールを保存
func (r *SettingsRepository) SaveProfile(ctx context.Context, p Profile) error {
	return saveJSON(ctx, r.kv, Key(r.accountID, keyProfile), p)
}

// AutoSync 自動同期が有効か。未設定なら無効
func (r *SettingsRepository) AutoSync(ctx context.Context) (bool, error) {
	v, err := r.kv.Get(ctx, Key(r.accountID, keyAutoSync))
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	enabled, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("自動同期フラグの解析に失敗しました: %w", err)
	}
	return enabled, nil
}

// SetAutoSync 自動同期フラグを保存
func (r *SettingsRepository) SetAutoSync(ctx context.Context, enabled bool) error {
	return r.kv.Set(ctx, Key(r.accountID, keyAutoSync), strconv.FormatBool(enabled))
}

// RecordCache ドキュメントストアから最後に取得したレコードのキャッシュ
type RecordCache struct {
	kv        KV
	accountID string
}

// NewRecordCache RecordCacheを作成
func NewRecordCache(kv KV, accountID string) *RecordCache {
	return &RecordCache{kv: kv, accountID: accountID}
}

// SaveRecords 種類ごとにレコードを保存
func (c *RecordCache) SaveRecords(ctx context.Context, kind string, records []domain.Record) error {
	return saveJSON(ctx, c.kv, Key(c.accountID, keyRecords+kind), records)
}

// LoadRecords キャッシュ済みレコード。未保存ならErrNotFound
func (c *RecordCache) LoadRecords(ctx context.Context, kind string) ([]domain.Record, error) {
	var records []domain.Record
	found, err := loadJSON(ctx, c.kv, Key(c.accountID, keyRecords+kind), &records)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return records, nil
}

func saveJSON(ctx context.Context, kv KV, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%s のJSON変換に失敗しました: %w", key, err)
	}
	return kv.Set(ctx, key, string(data))
}

func loadJSON(ctx context.Context, kv KV, key string, v any) (bool, error) {
	data, err := kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return false, fmt.Errorf("%s のJSON解析に失敗しました: %w", key, err)
	}
	return true, nil
}
