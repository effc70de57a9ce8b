package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"time"

	"kiosk-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// CatalogLoader fetches the catalog from a backing store (file, Postgres).
type CatalogLoader interface {
	LoadCatalog(ctx context.Context) (domain.Catalog, error)
}

// CatalogRepository caches the whole catalog in Redis and falls back to a loader on cache miss.
// The catalog is stored as: SET quiz:catalog <json> EX <ttl>
type CatalogRepository struct {
	client *redis.Client
	loader CatalogLoader
	ttl    time.Duration
	logger *zap.Logger
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewCatalogRepository(client *redis.Client, loader CatalogLoader, ttl time.Duration, logger *zap.Logger) *CatalogRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		logger: logger,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *CatalogRepository) GetCatalog(ctx context.Context) (domain.Catalog, error) {
	if catalog, ok := r.cached(ctx); ok {
		return catalog, nil
	}

	result, err, _ := r.sf.Do(catalogKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if catalog, ok := r.cached(ctx); ok {
			return catalog, nil
		}

		catalog, err := r.loader.LoadCatalog(ctx)
		if err != nil {
			return domain.Catalog(nil), err
		}

		data, err := json.Marshal(catalog)
		if err != nil {
			return domain.Catalog(nil), err
		}
		if err := r.client.Set(ctx, catalogKey, data, r.ttlWithJitter()).Err(); err != nil {
			r.logger.Warn("cache catalog", zap.Error(err))
		}
		return catalog, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(domain.Catalog), nil
}

// Invalidate drops the cached catalog so the next read reloads it.
func (r *CatalogRepository) Invalidate(ctx context.Context) error {
	return r.client.Del(ctx, catalogKey).Err()
}

func (r *CatalogRepository) cached(ctx context.Context) (domain.Catalog, bool) {
	data, err := r.client.Get(ctx, catalogKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("read cached catalog", zap.Error(err))
		}
		return nil, false
	}
	var catalog domain.Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		r.logger.Warn("decode cached catalog", zap.Error(err))
		return nil, false
	}
	return catalog, true
}

const catalogKey = "quiz:catalog"

func (r *CatalogRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
