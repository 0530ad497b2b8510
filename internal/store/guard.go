package store

import (
	"context"
	"time"
)

// DefaultLockTTL 共有ロックの有効期限。同期が異常終了しても期限後に再実行できる
const DefaultLockTTL = 30 * time.Minute

// Locker キー単位の排他ロック
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// Guard アカウントごとに同期処理を1本に制限する
type Guard struct {
	locker Locker
	ttl    time.Duration
}

// NewGuard Guardを作成
func NewGuard(locker Locker, ttl time.Duration) *Guard {
	return &Guard{locker: locker, ttl: ttl}
}

// Acquire 同期の実行権を取得する。他で実行中ならfalse
func (g *Guard) Acquire(ctx context.Context, accountID string) (bool, error) {
	return g.locker.TryLock(ctx, Key(accountID, "sync-lock"), g.ttl)
}

// Release 実行権を解放する
func (g *Guard) Release(ctx context.Context, accountID string) error {
	return g.locker.Unlock(ctx, Key(accountID, "sync-lock"))
}
