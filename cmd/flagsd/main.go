package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/flagkit/migrations"
	"github.com/dmitrymomot/flagkit/modules/flagsapi"
	"github.com/dmitrymomot/flagkit/pkg/apikey"
	"github.com/dmitrymomot/flagkit/pkg/audit"
	"github.com/dmitrymomot/flagkit/pkg/config"
	"github.com/dmitrymomot/flagkit/pkg/evaluator"
	"github.com/dmitrymomot/flagkit/pkg/feature"
	"github.com/dmitrymomot/flagkit/pkg/httpserver"
	"github.com/dmitrymomot/flagkit/pkg/logger"
	"github.com/dmitrymomot/flagkit/pkg/pg"
	"github.com/dmitrymomot/flagkit/pkg/redis"
)

type appConfig struct {
	Logger    logger.Config
	HTTP      httpserver.Config
	Postgres  pg.Config
	Redis     redis.Config
	Evaluator evaluator.Config
}

func main() {
	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.FromConfig(cfg.Logger, logger.WithAttrs(slog.String("service", "flagsd")))
	slog.SetDefault(log)

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error("service exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	pool, err := pg.Connect(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, migrations.FS, cfg.Postgres, log); err != nil {
		return err
	}

	redisClient, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	cache := evaluator.NewRedisCache(redisClient)
	store := feature.NewPostgresStore(pool)

	trail := audit.NewLogger(audit.NewPostgresStorage(pool),
		audit.WithActorExtractor(flagsapi.ActorFromContext))

	manager := feature.NewManager(store,
		feature.WithMirror(cache),
		feature.WithAuditor(trail),
		feature.WithLogger(log))

	engine := evaluator.New(store, cache,
		evaluator.WithConfig(cfg.Evaluator),
		evaluator.WithLogger(log))

	keys := apikey.NewService(apikey.NewPostgresStore(pool), apikey.WithLogger(log))

	api := flagsapi.NewService(manager, engine, keys, trail,
		flagsapi.WithHealthcheck("postgres", pg.Healthcheck(pool)),
		flagsapi.WithHealthcheck("redis", redis.Healthcheck(redisClient)))

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Mount("/v1", api.Handle())

	return httpserver.New(cfg.HTTP, log).Run(ctx, r)
}
