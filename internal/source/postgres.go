// Package source CRMのドキュメントストアからレコードを読み出す
package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/k-negishi/crm-calendar-sync/internal/domain"
)

// コレクション名
const (
	CollectionClients       = "clients"
	CollectionProperties    = "properties"
	CollectionTasks         = "tasks"
	CollectionOpportunities = "opportunities"
)

const createDocumentsSQL = `
CREATE TABLE IF NOT EXISTS crm_documents (
  account_id text NOT NULL,
  collection text NOT NULL,
  id text NOT NULL,
  parent_id text NOT NULL DEFAULT '',
  data jsonb NOT NULL,
  updated_at timestamptz NOT NULL DEFAULT now(),
  PRIMARY KEY (account_id, collection, id)
);
CREATE INDEX IF NOT EXISTS crm_documents_parent_idx ON crm_documents (account_id, collection, parent_id);
`

const listDocumentsSQL = `
SELECT id, data FROM crm_documents
WHERE account_id = $1 AND collection = $2 AND ($3 = '' OR parent_id = $3)
ORDER BY id`

// Querier pgxpool.Poolのうち使用する部分
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Postgres JSONB列に自由形式のレコードを保持するドキュメントストア
type Postgres struct {
	db        Querier
	accountID string
}

// NewPool 接続プールを作成
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("DATABASE_URLの解析に失敗しました: %w", err)
	}
	cfg.MaxConns = 5
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("PostgreSQLへの接続に失敗しました: %w", err)
	}
	return pool, nil
}

// NewPostgres Postgresを作成
func NewPostgres(db Querier, accountID string) *Postgres {
	return &Postgres{db: db, accountID: accountID}
}

// EnsureSchema テーブルがなければ作成する
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, createDocumentsSQL); err != nil {
		return fmt.Errorf("スキーマの作成に失敗しました: %w", err)
	}
	return nil
}

func (p *Postgres) ListClients(ctx context.Context) ([]domain.Record, error) {
	return p.list(ctx, CollectionClients, "")
}

func (p *Postgres) ListProperties(ctx context.Context) ([]domain.Record, error) {
	return p.list(ctx, CollectionProperties, "")
}

func (p *Postgres) ListTasks(ctx context.Context) ([]domain.Record, error) {
	return p.list(ctx, CollectionTasks, "")
}

// ListOpportunities クライアント配下の商談
func (p *Postgres) ListOpportunities(ctx context.Context, clientID string) ([]domain.Record, error) {
	if clientID == "" {
		return []domain.Record{}, nil
	}
	return p.list(ctx, CollectionOpportunities, clientID)
}

func (p *Postgres) list(ctx context.Context, collection, parentID string) ([]domain.Record, error) {
	rows, err := p.db.Query(ctx, listDocumentsSQL, p.accountID, collection, parentID)
	if err != nil {
		return nil, fmt.Errorf("%s の取得に失敗しました: %w", collection, err)
	}
	records, err := pgx.CollectRows(rows, scanRecord)
	if err != nil {
		return nil, fmt.Errorf("%s の読み出しに失敗しました: %w", collection, err)
	}
	return records, nil
}

// scanRecord id列とJSONB列から1件のレコードを組み立てる
func scanRecord(row pgx.CollectableRow) (domain.Record, error) {
	var (
		id   string
		data []byte
	)
	if err := row.Scan(&id, &data); err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	// エポック秒を丸めずに保持する
	dec.UseNumber()
	rec := domain.Record{}
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("レコード %s のJSON解析に失敗しました: %w", id, err)
	}
	if rec.String("id") == "" {
		rec["id"] = id
	}
	return rec, nil
}
