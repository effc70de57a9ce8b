package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"kiosk-quiz-service/internal/app"
	"kiosk-quiz-service/internal/config"
	"kiosk-quiz-service/internal/infra/memory"
	"kiosk-quiz-service/internal/infra/postgres"
	rediscache "kiosk-quiz-service/internal/infra/redis"
	"kiosk-quiz-service/internal/kiosk"
	"kiosk-quiz-service/internal/logger"
	transport "kiosk-quiz-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz backend and kiosk displays",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

type resultStore interface {
	app.ParticipantRepository
	app.ResultRepository
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Env)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 12*time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg, log); err != nil {
			return err
		}
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.CatalogLoader = memory.NewFileCatalogLoader(cfg.Catalog.Path)
	var results resultStore = memory.NewResultStore()
	if pool != nil {
		loader = postgres.NewCatalogLoader(pool)
		results = postgres.NewResultStore(pool)
	}

	catalogTTL := config.TTLDuration(cfg.Catalog.TTL, 10*time.Minute)
	var catalog app.CatalogRepository
	if redisClient != nil {
		catalog = rediscache.NewCatalogRepository(redisClient, loader, catalogTTL, log)
	} else {
		catalog = memory.NewCatalogRepository(loader, catalogTTL)
	}

	service := app.NewQuizService(catalog, results, results, cfg.Leaderboard.Limit, log)

	var backend kiosk.Backend = app.NewLocalBackend(service)
	if cfg.Kiosk.BackendURL != "" {
		backend = transport.NewClient(cfg.Kiosk.BackendURL,
			transport.WithRetries(cfg.Kiosk.SubmitRetries),
			transport.WithClientLogger(log),
		)
		log.Info("kiosk displays use remote backend", zap.String("url", cfg.Kiosk.BackendURL))
	}

	var identities func(displayID string) kiosk.IdentityStore
	if redisClient != nil {
		store := rediscache.NewIdentityStore(redisClient, redisTTL)
		identities = func(id string) kiosk.IdentityStore { return store.For(id) }
	} else {
		store := memory.NewIdentityStore()
		identities = func(id string) kiosk.IdentityStore { return store.For(id) }
	}

	controllerOpts := []kiosk.Option{
		kiosk.WithQuestionSeconds(cfg.Kiosk.QuestionSeconds),
		kiosk.WithWelcomeDelay(config.TTLDuration(cfg.Kiosk.WelcomeDelay, kiosk.DefaultWelcomeDelay)),
		kiosk.WithResultsDelay(config.TTLDuration(cfg.Kiosk.ResultsDelay, kiosk.DefaultResultsDelay)),
		kiosk.WithRequestTimeout(config.TTLDuration(cfg.Kiosk.RequestTimeout, kiosk.DefaultRequestTimeout)),
		kiosk.WithLeaderboardSize(cfg.Leaderboard.Limit),
	}
	kioskHandler := transport.NewKioskHandler(func(displayID string) *kiosk.Controller {
		opts := append([]kiosk.Option{kiosk.WithLogger(log.With(zap.String("display", displayID)))}, controllerOpts...)
		return kiosk.NewController(backend, identities(displayID), opts...)
	}, log)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	transport.NewAPIHandler(service, log).Routes(mux)
	mux.HandleFunc("/kiosk", kioskHandler.ServeWS)

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           mux,
		ReadHeaderTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting kiosk quiz service", zap.String("port", finalPort), zap.String("env", cfg.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
