// Command server runs the malaria detection and forecasting API.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/epiwatch/sentinel/internal/api"
	"github.com/epiwatch/sentinel/internal/config"
	"github.com/epiwatch/sentinel/internal/database"
	"github.com/epiwatch/sentinel/internal/forecast"
	"github.com/epiwatch/sentinel/internal/predictor"
	"github.com/epiwatch/sentinel/internal/session"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	generateConfig := flag.Bool("generate-config", false, "write a sample configuration file and exit")
	flag.Parse()

	if *generateConfig {
		if err := config.GenerateSample(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write sample config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("sample configuration written to %s\n", *configPath)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	setupLogging(cfg.Logging)

	store, err := database.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open history store")
	}
	defer store.Close()

	classifier, err := predictor.NewClassifier(&cfg.Models.Classifier)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create classifier")
	}
	regressor, err := predictor.NewRegressor(&cfg.Models.Regressor)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create regressor")
	}

	// An encoding/model mismatch corrupts predictions silently; refuse to
	// start on one.
	if err := forecast.VerifyEncoding(regressor); err != nil {
		log.Fatal().Err(err).Msg("Encoding tables do not match the forecast model")
	}

	sessions := session.NewManager(classifier, regressor, store, cfg.InferenceTimeout(), cfg.StageInterval())
	router := api.NewRouter(cfg, sessions, store, classifier, regressor)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Info().
			Int("port", cfg.Server.Port).
			Str("classifier", classifier.Name()).
			Str("regressor", regressor.Name()).
			Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Shutdown error")
	}
}

func setupLogging(cfg config.LoggingConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "text" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
