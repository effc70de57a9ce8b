package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"kiosk-quiz-service/internal/app"
	"kiosk-quiz-service/internal/domain"
	"kiosk-quiz-service/internal/infra/postgres"
	pgmigrations "kiosk-quiz-service/internal/infra/postgres/migrations"
	infraredis "kiosk-quiz-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestQuizSessionEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateDB(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	loader := postgres.NewCatalogLoader(pool)
	if err := loader.ReplaceCatalog(ctx, sampleCatalog()); err != nil {
		t.Fatalf("seed catalog: %v", err)
	}

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	catalog := infraredis.NewCatalogRepository(redisClient, loader, 5*time.Minute, nil)
	results := postgres.NewResultStore(pool)
	service := app.NewQuizService(catalog, results, results, 20, nil)

	questions, err := service.Questions(ctx)
	if err != nil || len(questions) != 2 {
		t.Fatalf("questions: %+v %v", questions, err)
	}

	for _, form := range []domain.Registration{
		{Name: "Ada", Regno: "R1", College: "C", Department: "D", Year: "1"},
		{Name: "Bob", Regno: "R2", College: "C", Department: "D", Year: "2"},
	} {
		if _, err := service.Register(ctx, form); err != nil {
			t.Fatalf("register %s: %v", form.Regno, err)
		}
	}
	_, err = service.Register(ctx, domain.Registration{Name: "Ada", Regno: "R1", College: "C", Department: "D", Year: "1"})
	if !errors.Is(err, domain.ErrAlreadyRegistered) {
		t.Fatalf("expected duplicate regno rejection, got %v", err)
	}

	zero, one, three, six := 0, 1, 3, 6
	submissions := []domain.Submission{
		{Name: "Ada", Regno: "R1", Answers: []domain.AnswerEntry{
			{QuestionID: 0, Selected: &one, TimeSec: &three},
			{QuestionID: 1, Selected: &zero, TimeSec: &six},
		}},
		{Name: "Bob", Regno: "R2", Answers: []domain.AnswerEntry{
			{QuestionID: 0, Selected: &one, TimeSec: &three},
			{QuestionID: 1, Selected: nil, TimeSec: &three},
		}},
	}
	for _, s := range submissions {
		if _, err := service.SubmitQuiz(ctx, s); err != nil {
			t.Fatalf("submit %s: %v", s.Regno, err)
		}
	}

	rows, err := service.Leaderboard(ctx)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(rows) != 2 || rows[0].Regno != "R1" || rows[0].Points != 4 || rows[1].Points != 2 {
		t.Fatalf("unexpected leaderboard %+v", rows)
	}
	if rows[0].AvgTime == nil || *rows[0].AvgTime != 4.5 {
		t.Fatalf("expected avg 4.5, got %v", rows[0].AvgTime)
	}

	identities := infraredis.NewIdentityStore(redisClient, time.Minute).For("lobby")
	if err := identities.Save(ctx, domain.Identity{Name: "Ada", Regno: "R1"}); err != nil {
		t.Fatalf("save identity: %v", err)
	}
	identity, ok, err := identities.Load(ctx)
	if err != nil || !ok || identity.Regno != "R1" {
		t.Fatalf("load identity: %+v %v %v", identity, ok, err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func migrateDB(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func sampleCatalog() domain.Catalog {
	return domain.Catalog{
		{Question: "2 + 2?", Options: []string{"3", "4", "5"}, Answer: 1},
		{Question: "Capital of France?", Options: []string{"Paris", "Rome"}, Answer: 0},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
