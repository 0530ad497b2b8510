package store

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// SchemaVersion キーの先頭に付与するスキーマバージョン
const SchemaVersion = "v1"

// ErrNotFound キーが存在しない
var ErrNotFound = errors.New("キーが存在しません")

// KV アカウント単位の永続化に使うキーバリューストア
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Key スキーマバージョンとアカウントで名前空間を切ったキーを返す
func Key(accountID, name string) string {
	return fmt.Sprintf("%s:%s:%s", SchemaVersion, accountID, name)
}

// Backend KVの実装種別
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendSQLite Backend = "sqlite"
	BackendRedis  Backend = "redis"
)

// Options Openの設定
type Options struct {
	Backend    Backend
	SQLitePath string
	RedisAddr  string
}

// Opened Openが返すKVと同期ガードの組
type Opened struct {
	KV    KV
	Guard *Guard
	io.Closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open 設定されたバックエンドのKVを開く
//
// SQLiteとRedisでは同期ガードも同じストアで共有し、プロセスをまたいで
// 同期が重ならないようにする。メモリはプロセス内のガードを使う。
func Open(ctx context.Context, opts Options) (*Opened, error) {
	switch opts.Backend {
	case "", BackendMemory:
		return &Opened{KV: NewMemoryKV(), Guard: NewGuard(NewMemoryLocker(), 0), Closer: nopCloser{}}, nil
	case BackendSQLite:
		kv, err := OpenSQLite(opts.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &Opened{KV: kv, Guard: NewGuard(kv, DefaultLockTTL), Closer: kv}, nil
	case BackendRedis:
		kv, err := OpenRedis(ctx, opts.RedisAddr)
		if err != nil {
			return nil, err
		}
		return &Opened{KV: kv, Guard: NewGuard(kv, DefaultLockTTL), Closer: kv}, nil
	default:
		return nil, fmt.Errorf("未対応のストアバックエンドです: %s", opts.Backend)
	}
}
