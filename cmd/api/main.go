package main

import (
	"database/sql"
	"net/http"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	server "access_places/internal/adapters/http_server"
	"access_places/internal/adapters/moderation"
	"access_places/internal/adapters/observability"
	"access_places/internal/adapters/places"
	redisad "access_places/internal/adapters/redis"
	"access_places/internal/app"
	"access_places/internal/domain"
	"access_places/internal/shared"
	mysqlrepo "access_places/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	repo := mysqlrepo.New(db)

	// cache is optional; without REDIS_ADDR every read goes to MySQL
	var cache domain.Cache
	if cfg.RedisAddr != "" {
		cache = redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		log.Info().Str("addr", cfg.RedisAddr).Msg("redis cache enabled")
	}

	// place lookup is optional too; submissions must then carry metadata
	var lookup domain.LookupClient
	if cfg.PlacesKey != "" {
		lookup, err = places.New(cfg.PlacesBase, cfg.PlacesKey, 5)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize places client")
		}
	}

	var gate domain.ModerationGate = moderation.AllowAll{}
	if cfg.ModerationBase != "" {
		gate = moderation.New(cfg.ModerationBase, 10)
	} else {
		log.Warn().Msg("MODERATION_BASE_URL is empty; every comment passes")
	}

	q := app.NewQueryService(repo, cache, cfg.CacheTTL)
	rsvc := app.NewReviewService(repo, lookup, gate, cache)

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Q: q, R: rsvc, Lookup: lookup})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
