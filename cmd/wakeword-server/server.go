package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wakeword-data/wakeword-data/internal/api"
	"github.com/wakeword-data/wakeword-data/internal/config"
	"github.com/wakeword-data/wakeword-data/internal/metrics"
	"github.com/wakeword-data/wakeword-data/internal/reference"
	"github.com/wakeword-data/wakeword-data/internal/sample"
	"github.com/wakeword-data/wakeword-data/internal/storage"
)

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	logger.Info().
		Str("listen", cfg.Server.Listen).
		Str("admin_listen", cfg.Server.AdminListen).
		Str("storage_driver", cfg.Storage.Driver).
		Str("bucket", cfg.Storage.Bucket).
		Str("log_level", cfg.Logging.Level).
		Msg("Starting wakeword-server")

	tables, err := reference.Load(cfg.Reference.File)
	if err != nil {
		return err
	}

	m := metrics.New()

	bucket, err := storage.Open(cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	bucket = storage.WithObserver(bucket, m)

	vocab := sample.NewVocabulary(cfg.WakeWords.Positive, cfg.WakeWords.Negative, tables)
	logger.Info().Strs("wake_words", vocab.WakeWords()).Msg("Accepting wake words")

	h := api.NewHandler(bucket, vocab, cfg, logger, api.WithMetrics(m))

	servers := []*http.Server{{
		Addr:         cfg.Server.Listen,
		Handler:      api.NewRouter(h, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}}
	if cfg.Server.AdminListen != "" {
		servers = append(servers, &http.Server{
			Addr:         cfg.Server.AdminListen,
			Handler:      api.NewAdminRouter(bucket, m, logger),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		})
	}

	serverErr := make(chan error, len(servers))
	for _, srv := range servers {
		srv := srv
		go func() {
			logger.Info().Str("addr", srv.Addr).Msg("Server listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		shutdown(servers, logger)
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		logger.Info().Str("signal", sig.String()).Msg("Shutting down server...")
	}

	if err := shutdown(servers, logger); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	logger.Info().Msg("Server stopped")
	return nil
}

func shutdown(servers []*http.Server, logger zerolog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var firstErr error
	for _, srv := range servers {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Str("addr", srv.Addr).Msg("Graceful shutdown failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := &config.Config{
		Server: config.ServerConfig{
			Listen:       viper.GetString("server.listen"),
			AdminListen:  viper.GetString("server.admin_listen"),
			ReadTimeout:  viper.GetDuration("server.read_timeout"),
			WriteTimeout: viper.GetDuration("server.write_timeout"),
		},
		Storage: config.StorageConfig{
			Driver: viper.GetString("storage.driver"),
			Dir:    viper.GetString("storage.dir"),
			Bucket: viper.GetString("storage.bucket"),
		},
		Upload: config.UploadConfig{
			MaxContentLength: viper.GetInt64("upload.max_content_length"),
			TraceHeader:      viper.GetString("upload.trace_header"),
			Identifier:       viper.GetString("upload.identifier"),
		},
		WakeWords: config.WakeWordsConfig{
			Positive: stringList("wake_words.positive"),
			Negative: stringList("wake_words.negative"),
		},
		Reference: config.ReferenceConfig{
			File: viper.GetString("reference.file"),
		},
		Logging: config.LoggingConfig{
			Level:  viper.GetString("logging.level"),
			Format: viper.GetString("logging.format"),
		},
	}

	defaults := config.Default()
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = defaults.Server.Listen
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaults.Server.ReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaults.Server.WriteTimeout
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaults.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = defaults.Logging.Format
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "text" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}
