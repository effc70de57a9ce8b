package redis

import (
	"context"
	"testing"
	"time"

	"kiosk-quiz-service/internal/domain"
	"kiosk-quiz-service/internal/infra/memory"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestCatalogRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{CatalogLoader: memory.NewStaticCatalogLoader(sampleCatalog())}
	repo := NewCatalogRepository(client, loader, time.Minute, nil)

	catalog, err := repo.GetCatalog(context.Background())
	if err != nil {
		t.Fatalf("get catalog: %v", err)
	}
	if loader.calls != 1 || len(catalog) != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists(catalogKey) {
		t.Fatalf("expected catalog key in redis")
	}

	// Second call should hit cache, loader not incremented.
	catalog, _ = repo.GetCatalog(context.Background())
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if catalog[0].Answer != 1 || catalog[0].Options[1] != "4" {
		t.Fatalf("expected answer key round-trip, got %+v", catalog[0])
	}

	if err := repo.Invalidate(context.Background()); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	_, _ = repo.GetCatalog(context.Background())
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, loader calls=%d", loader.calls)
	}
}

func TestCatalogRepositoryExpires(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{CatalogLoader: memory.NewStaticCatalogLoader(sampleCatalog())}
	repo := NewCatalogRepository(newClient(mr), loader, time.Minute, nil)

	_, _ = repo.GetCatalog(context.Background())
	mr.FastForward(2 * time.Minute)
	_, _ = repo.GetCatalog(context.Background())

	if loader.calls != 2 {
		t.Fatalf("expected reload after ttl, loader calls=%d", loader.calls)
	}
}

type countingLoader struct {
	memory.CatalogLoader
	calls int
}

func (l *countingLoader) LoadCatalog(ctx context.Context) (domain.Catalog, error) {
	l.calls++
	return l.CatalogLoader.LoadCatalog(ctx)
}

func sampleCatalog() domain.Catalog {
	return domain.Catalog{
		{Question: "What is 2 + 2?", Options: []string{"3", "4"}, Answer: 1},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
