package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/JarrySand/quadratic-voting-jp/internal/authn"
	"github.com/JarrySand/quadratic-voting-jp/internal/config"
	"github.com/JarrySand/quadratic-voting-jp/internal/ratelimit"
	"github.com/JarrySand/quadratic-voting-jp/internal/voting"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	if err := voting.AutoMigrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	var rdb *redis.Client
	if cfg.Redis.URL != "" {
		opt, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("parse redis url")
		}
		rdb = redis.NewClient(opt)
		defer rdb.Close()
	}

	store := voting.NewPostgresStore(pool)
	resolver := voting.NewResolver([]byte(cfg.Session.Secret))

	auth := authn.NewHandlers(authn.Config{
		SessionSecret: []byte(cfg.Session.Secret),
		SessionTTL:    cfg.Session.TTL,
		FrontendURL:   cfg.Server.FrontendURL,
		CookieSecure:  cfg.Session.CookieSecure,
		Google:        authn.ProviderCredentials(cfg.Google),
		Line:          authn.ProviderCredentials(cfg.Line),
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.RateLimit.Enabled && rdb != nil {
		r.Use(ratelimit.New(rdb, cfg.RateLimit.Max, cfg.RateLimit.Window).Middleware)
	}

	auth.Mount(r)
	r.Mount("/", voting.NewRouter(store, rdb, resolver, cfg.Voting.DefaultCredits, cfg.Voting.AdminExportKey))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Info().Str("addr", addr).Msg("voting-service listening")
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatal().Err(err).Msg("http server")
	}
}
