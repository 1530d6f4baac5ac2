package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"shop-recommender/config"
	"shop-recommender/database"
	"shop-recommender/handlers"
	"shop-recommender/logging"
	"shop-recommender/metrics"
	"shop-recommender/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if logging.ParseLevel(cfg.Log.Level) > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	rec := metrics.NewRecorder()

	// Initialize database
	db, err := database.Open(ctx, cfg.DB, cfg.Log.Level, log)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := database.Migrate(db); err != nil {
		return err
	}

	if cfg.DB.CatalogFile != "" {
		if _, err := database.LoadCatalog(ctx, db, cfg.DB.CatalogFile, log); err != nil {
			log.Warn().Err(err).Msg("failed to load catalog")
		}
	}
	if cfg.DB.SeedDemo {
		if _, err := database.SeedDemoActivity(ctx, db, log); err != nil {
			log.Warn().Err(err).Msg("failed to seed demo activity")
		}
	}

	// Initialize services
	store := services.NewGormStore(db)
	llm, err := services.NewLLMService(cfg.LLM, log, rec)
	if err != nil {
		return err
	}
	recommendations := services.NewRecommendationService(
		store,
		services.NewProfileService(store, cfg.Profile, log, rec),
		services.NewCandidateService(store, cfg.Candidates, cfg.Scoring, log, rec),
		services.NewRankerService(llm, cfg.Ranker, cfg.Server.MediaBaseURL(), log, rec),
		log,
		rec,
	)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: handlers.NewRouter(cfg, recommendations, rec, log),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("port", cfg.Server.Port).
			Str("llm_provider", cfg.LLM.Provider).
			Bool("llm_disabled", cfg.LLM.Disabled).
			Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
