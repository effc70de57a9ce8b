package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"kiosk-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// CatalogLoader loads the ordered catalog from the questions table.
type CatalogLoader struct {
	pool *pgxpool.Pool
}

func NewCatalogLoader(pool *pgxpool.Pool) *CatalogLoader {
	return &CatalogLoader{pool: pool}
}

func (l *CatalogLoader) LoadCatalog(ctx context.Context) (domain.Catalog, error) {
	rows, err := l.pool.Query(ctx, `SELECT question, options, answer FROM questions ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	defer rows.Close()

	catalog := domain.Catalog{}
	for rows.Next() {
		var (
			entry domain.CatalogEntry
			raw   []byte
		)
		if err := rows.Scan(&entry.Question, &raw, &entry.Answer); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal(raw, &entry.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options: %w", err)
		}
		catalog = append(catalog, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	if len(catalog) == 0 {
		return nil, domain.ErrCatalogNotFound
	}
	return catalog, nil
}

// ReplaceCatalog swaps the whole catalog in one transaction; positions follow slice order.
func (l *CatalogLoader) ReplaceCatalog(ctx context.Context, catalog domain.Catalog) error {
	return l.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM questions`); err != nil {
			return fmt.Errorf("clear questions: %w", err)
		}
		batch := &pgx.Batch{}
		for i, entry := range catalog {
			options, err := json.Marshal(entry.Options)
			if err != nil {
				return fmt.Errorf("marshal options: %w", err)
			}
			batch.Queue(`INSERT INTO questions (position, question, options, answer) VALUES ($1, $2, $3::jsonb, $4)`,
				i, entry.Question, string(options), entry.Answer)
		}
		results := tx.SendBatch(ctx, batch)
		for range catalog {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return fmt.Errorf("insert question: %w", err)
			}
		}
		return results.Close()
	})
}
