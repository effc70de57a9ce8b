package cli

import (
	"fmt"

	"kiosk-quiz-service/internal/config"
	"kiosk-quiz-service/internal/infra/memory"
	"kiosk-quiz-service/internal/infra/postgres"
	"kiosk-quiz-service/internal/logger"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewSeedCmd replaces the stored catalog with the questions from a JSON or YAML file.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the question catalog into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.Env)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			if file == "" {
				file = cfg.Catalog.Path
			}
			catalog, err := memory.NewFileCatalogLoader(file).LoadCatalog(ctx)
			if err != nil {
				return fmt.Errorf("read catalog %s: %w", file, err)
			}

			if err := runMigrations(ctx, cfg, log); err != nil {
				return err
			}
			pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := postgres.NewCatalogLoader(pool).ReplaceCatalog(ctx, catalog); err != nil {
				return err
			}
			log.Info("catalog seeded", zap.String("file", file), zap.Int("questions", len(catalog)))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "catalog file (defaults to catalog.path)")
	return cmd
}
