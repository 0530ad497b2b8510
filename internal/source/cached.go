package source

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/k-negishi/crm-calendar-sync/internal/domain"
	"github.com/k-negishi/crm-calendar-sync/internal/store"
)

// Source CRMレコードの読み出し元
type Source interface {
	ListClients(ctx context.Context) ([]domain.Record, error)
	ListProperties(ctx context.Context) ([]domain.Record, error)
	ListTasks(ctx context.Context) ([]domain.Record, error)
	ListOpportunities(ctx context.Context, clientID string) ([]domain.Record, error)
}

// Cache 最後に取得できたレコードの保存先
type Cache interface {
	SaveRecords(ctx context.Context, kind string, records []domain.Record) error
	LoadRecords(ctx context.Context, kind string) ([]domain.Record, error)
}

// ErrOffline ドキュメントストアが設定されていない
var ErrOffline = errors.New("ドキュメントストアが設定されていません")

// Offline 常にErrOfflineを返す。CachedSourceと組み合わせるとキャッシュだけで動く
type Offline struct{}

func (Offline) ListClients(context.Context) ([]domain.Record, error)    { return nil, ErrOffline }
func (Offline) ListProperties(context.Context) ([]domain.Record, error) { return nil, ErrOffline }
func (Offline) ListTasks(context.Context) ([]domain.Record, error)      { return nil, ErrOffline }
func (Offline) ListOpportunities(context.Context, string) ([]domain.Record, error) {
	return nil, ErrOffline
}

// CachedSource 取得に成功したらキャッシュを更新し、失敗したらキャッシュから返す
type CachedSource struct {
	primary Source
	cache   Cache
	logger  *zap.Logger
}

// NewCachedSource CachedSourceを作成
func NewCachedSource(primary Source, cache Cache, logger *zap.Logger) *CachedSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedSource{primary: primary, cache: cache, logger: logger}
}

func (c *CachedSource) ListClients(ctx context.Context) ([]domain.Record, error) {
	return c.fetch(ctx, CollectionClients, c.primary.ListClients)
}

func (c *CachedSource) ListProperties(ctx context.Context) ([]domain.Record, error) {
	return c.fetch(ctx, CollectionProperties, c.primary.ListProperties)
}

func (c *CachedSource) ListTasks(ctx context.Context) ([]domain.Record, error) {
	return c.fetch(ctx, CollectionTasks, c.primary.ListTasks)
}

func (c *CachedSource) ListOpportunities(ctx context.Context, clientID string) ([]domain.Record, error) {
	return c.fetch(ctx, CollectionOpportunities+":"+clientID, func(ctx context.Context) ([]domain.Record, error) {
		return c.primary.ListOpportunities(ctx, clientID)
	})
}

func (c *CachedSource) fetch(ctx context.Context, kind string, load func(context.Context) ([]domain.Record, error)) ([]domain.Record, error) {
	records, err := load(ctx)
	if err == nil {
		if cerr := c.cache.SaveRecords(ctx, kind, records); cerr != nil {
			c.logger.Warn("レコードのキャッシュ保存に失敗しました", zap.String("kind", kind), zap.Error(cerr))
		}
		return records, nil
	}

	cached, cerr := c.cache.LoadRecords(ctx, kind)
	if cerr != nil {
		if !errors.Is(cerr, store.ErrNotFound) {
			c.logger.Warn("キャッシュの読み込みに失敗しました", zap.String("kind", kind), zap.Error(cerr))
		}
		return nil, err
	}
	c.logger.Warn("ドキュメントストアが利用できないためキャッシュを使用します",
		zap.String("kind", kind), zap.Int("count", len(cached)), zap.Error(err))
	return cached, nil
}
