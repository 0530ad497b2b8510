package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

// RedisKV go-redisを使った複数インスタンス共有のKV
type RedisKV struct {
	client *goredis.Client
}

// OpenRedis 接続を確認してRedisKVを作成
func OpenRedis(ctx context.Context, addr string) (*RedisKV, error) {
	if addr == "" {
		addr = "localhost:6379"
	}
	client := goredis.NewClient(&goredis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("Redisへの接続に失敗しました (%s): %w", addr, err)
	}
	return NewRedisKV(client), nil
}

// NewRedisKV 既存のクライアントからRedisKVを作成
func NewRedisKV(client *goredis.Client) *RedisKV {
	return &RedisKV{client: client}
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("キー %s の取得に失敗しました: %w", key, err)
	}
	return v, nil
}

func (r *RedisKV) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("キー %s の保存に失敗しました: %w", key, err)
	}
	return nil
}

func (r *RedisKV) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("キー %s の削除に失敗しました: %w", key, err)
	}
	return nil
}

// TryLock SETNXでロックを取得する。ttl経過後はプロセスが落ちても自動で解放される
func (r *RedisKV) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("ロック %s の取得に失敗しました: %w", key, err)
	}
	return ok, nil
}

// Unlock ロックを解放
func (r *RedisKV) Unlock(ctx context.Context, key string) error {
	return r.Delete(ctx, key)
}

// Close 接続を閉じる
func (r *RedisKV) Close() error {
	return r.client.Close()
}
