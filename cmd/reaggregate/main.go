// reaggregate recomputes every place's stored overall rating from its review
// set. Normally the stored value is maintained transactionally on each
// submission; this binary repairs drift after manual data edits or a
// rounding-rule change.
package main

import (
	"context"
	"database/sql"
	"sync"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"access_places/internal/adapters/observability"
	redisad "access_places/internal/adapters/redis"
	"access_places/internal/domain"
	"access_places/internal/shared"
	mysqlrepo "access_places/internal/storage/mysql"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	log.Logger = observability.NewLogger(cfg.AppEnv)
	log.Info().Int("workers", cfg.Workers).Msg("reaggregate starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)

	var cache *redisad.Cache
	if cfg.RedisAddr != "" {
		cache = redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	}

	prs, err := repo.ListPlaces(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("list places failed")
	}

	sem := semaphore.NewWeighted(int64(cfg.Workers))
	var wg sync.WaitGroup

	for _, pr := range prs {
		pr := pr

		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(pr domain.PlaceReviews) {
			defer wg.Done()
			defer sem.Release(1)

			view := domain.AggregatePlace(pr.Place, pr.Reviews)
			if view.ReviewCount == 0 {
				log.Warn().Str("place", pr.Place.ID).Msg("no reviews; skipping")
				return
			}
			if view.AverageRating == pr.Place.OverallRating {
				return
			}
			if err := repo.UpdateOverallRating(ctx, pr.Place.ID, view.AverageRating); err != nil {
				log.Warn().Str("place", pr.Place.ID).Err(err).Msg("update failed")
				return
			}
			if cache != nil {
				_ = cache.Del(ctx, "place:"+pr.Place.ID)
			}
			log.Info().
				Str("place", pr.Place.ID).
				Float64("from", pr.Place.OverallRating).
				Float64("to", view.AverageRating).
				Msg("overall rating repaired")
		}(pr)
	}

	wg.Wait()

	if cache != nil {
		_ = cache.Del(ctx, "places:all")
	}
	log.Info().Msg("reaggregation completed")
}
