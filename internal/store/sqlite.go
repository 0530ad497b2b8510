package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const migrationCreateKV = `
CREATE TABLE IF NOT EXISTS kv_store (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS sync_locks (
    key TEXT PRIMARY KEY,
    expires_at INTEGER NOT NULL
);
`

// busyTimeout 別プロセスが書き込み中のときに待つ時間
const busyTimeout = "_pragma=busy_timeout(5000)"

// SQLiteKV 単一ファイルに永続化するKV
//
// 同じファイルを開いた全プロセスで共有するロックも持つ。
type SQLiteKV struct {
	db  *sql.DB
	now func() time.Time
}

// DefaultSQLitePath 既定のDBパス (~/.crm-calendar-sync/state.db)
func DefaultSQLitePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("ホームディレクトリの取得に失敗しました: %w", err)
	}
	return filepath.Join(home, ".crm-calendar-sync", "state.db"), nil
}

// OpenSQLite DBファイルを開き、テーブルがなければ作成する
func OpenSQLite(path string) (*SQLiteKV, error) {
	if path == "" {
		p, err := DefaultSQLitePath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("DBディレクトリの作成に失敗しました: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?"+busyTimeout)
	if err != nil {
		return nil, fmt.Errorf("DBのオープンに失敗しました: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("DBへの接続に失敗しました: %w", err)
	}
	// database/sqlのプールで書き込みが競合しないよう接続は1本に絞る
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(migrationCreateKV); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("マイグレーションに失敗しました: %w", err)
	}
	return &SQLiteKV{db: db, now: time.Now}, nil
}

func (s *SQLiteKV) Get(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("キー %s の取得に失敗しました: %w", key, err)
	}
	return v, nil
}

func (s *SQLiteKV) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("キー %s の保存に失敗しました: %w", key, err)
	}
	return nil
}

func (s *SQLiteKV) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_store WHERE key = ?`, key); err != nil {
		return fmt.Errorf("キー %s の削除に失敗しました: %w", key, err)
	}
	return nil
}

// TryLock sync_locksに行を入れてロックを取得する。期限切れの行は奪い取る
func (s *SQLiteKV) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	now := s.now()
	expires := int64(math.MaxInt64)
	if ttl > 0 {
		expires = now.Add(ttl).UnixNano()
	}
	res, err := s.db.ExecContext(ctx, `
INSERT INTO sync_locks (key, expires_at) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET expires_at = excluded.expires_at
WHERE sync_locks.expires_at < ?`,
		key, expires, now.UnixNano())
	if err != nil {
		return false, fmt.Errorf("ロック %s の取得に失敗しました: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ロック %s の取得に失敗しました: %w", key, err)
	}
	return n == 1, nil
}

// Unlock ロックを解放
func (s *SQLiteKV) Unlock(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sync_locks WHERE key = ?`, key); err != nil {
		return fmt.Errorf("ロック %s の解放に失敗しました: %w", key, err)
	}
	return nil
}

// Close DBを閉じる
func (s *SQLiteKV) Close() error {
	return s.db.Close()
}
