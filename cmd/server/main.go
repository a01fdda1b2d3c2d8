// Package main is the entry point for the inventory REST service.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vyrodovalexey/inventory-tracker/internal/auth"
	"github.com/vyrodovalexey/inventory-tracker/internal/config"
	"github.com/vyrodovalexey/inventory-tracker/internal/events"
	"github.com/vyrodovalexey/inventory-tracker/internal/handler"
	"github.com/vyrodovalexey/inventory-tracker/internal/server"
	"github.com/vyrodovalexey/inventory-tracker/internal/store"
	"github.com/vyrodovalexey/inventory-tracker/internal/telemetry"
)

const (
	serviceName    = "inventory-service"
	connectTimeout = 10 * time.Second
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := config.LoadEnvFiles(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
		return 1
	}

	cfg, err := config.Load()
	if err != nil {
		// Use a basic logger for startup errors
		basicLogger, _ := zap.NewProduction()
		basicLogger.Error("failed to load configuration", zap.Error(err))
		return 1
	}

	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		basicLogger, _ := zap.NewProduction()
		basicLogger.Error("failed to initialize logger", zap.Error(err))
		return 1
	}

	ctx := context.Background()

	shutdownTelemetry, err := telemetry.Setup(ctx, telemetry.Options{
		ServiceName:    serviceName,
		ServiceVersion: handler.Version,
		Endpoint:       cfg.OTLPEndpoint,
	})
	if err != nil {
		logger.Error("telemetry setup incomplete", zap.Error(err))
	}
	if cfg.OTLPEndpoint != "" {
		logger = zap.New(zapcore.NewTee(logger.Core(), telemetry.ZapCore(serviceName)), zap.AddCaller())
	}
	defer func() {
		_ = logger.Sync()
		if shutdownTelemetry == nil {
			return
		}
		tctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		if err := shutdownTelemetry(tctx); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("configuration loaded",
		zap.Int("server_port", cfg.ServerPort),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("shutdown_timeout", cfg.ShutdownTimeout),
		zap.Bool("metrics_enabled", cfg.MetricsEnabled),
		zap.String("auth_mode", cfg.AuthMode),
		zap.String("storage_backend", cfg.StorageBackend),
		zap.Bool("kafka_enabled", cfg.KafkaEnabled()),
		zap.Bool("otlp_enabled", cfg.OTLPEndpoint != ""),
	)

	authenticator, err := createAuthenticator(cfg, logger)
	if err != nil {
		logger.Error("failed to create authenticator", zap.Error(err))
		return 1
	}

	itemStore, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open storage backend", zap.Error(err))
		return 1
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("failed to close storage backend", zap.Error(err))
		}
	}()

	publisher, closePublisher, err := createPublisher(cfg, logger)
	if err != nil {
		logger.Error("failed to create change publisher", zap.Error(err))
		return 1
	}
	defer func() {
		if err := closePublisher(); err != nil {
			logger.Warn("failed to close change publisher", zap.Error(err))
		}
	}()

	srv := server.New(cfg, logger, itemStore, authenticator, publisher)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", zap.Error(err))
		return 1
	case sig := <-shutdown:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
			return 1
		}
	}

	logger.Info("server stopped")
	return 0
}

// initLogger initializes a zap logger with the specified log level.
func initLogger(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	zapConfig := zap.Config{
		Level:       zap.NewAtomicLevelAt(zapLevel),
		Development: false,
		Sampling: &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		},
		Encoding: "json",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "timestamp",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "message",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return zapConfig.Build()
}

// createAuthenticator creates an authenticator based on the config auth
// mode. A nil authenticator means the API is open.
func createAuthenticator(cfg *config.Config, logger *zap.Logger) (auth.Authenticator, error) {
	authenticator, err := auth.New(auth.Options{
		Mode:       cfg.AuthMode,
		BasicUsers: cfg.BasicAuthUsers,
		APIKeys:    cfg.APIKeys,
	})
	if err != nil {
		return nil, fmt.Errorf("creating %q authenticator: %w", cfg.AuthMode, err)
	}

	if authenticator == nil {
		logger.Info("authentication disabled")
		return nil, nil
	}

	logger.Info("authentication enabled", zap.String("method", string(authenticator.Method())))
	return authenticator, nil
}

// openStore connects the configured storage backend. The returned close
// function releases its connections.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Store, func() error, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	switch cfg.StorageBackend {
	case config.StorageMemory, "":
		logger.Info("using in-memory storage")
		return store.NewMemoryStore(), func() error { return nil }, nil

	case config.StorageRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("connecting to redis at %s: %w", cfg.RedisAddr, err)
		}
		logger.Info("using redis storage", zap.String("addr", cfg.RedisAddr), zap.Int("db", cfg.RedisDB))
		return store.NewRedisStore(client), client.Close, nil

	case config.StorageMySQL:
		db, err := store.OpenMySQL(ctx, cfg.MySQLDSN)
		if err != nil {
			return nil, nil, err
		}
		mysqlStore := store.NewMySQLStore(db)
		if err := mysqlStore.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		logger.Info("using mysql storage")
		return mysqlStore, db.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend: %s", cfg.StorageBackend)
	}
}

// createPublisher returns the Kafka change publisher, or a nil publisher
// when no brokers are configured.
func createPublisher(cfg *config.Config, logger *zap.Logger) (events.Publisher, func() error, error) {
	if !cfg.KafkaEnabled() {
		logger.Info("kafka change publishing disabled")
		return nil, func() error { return nil }, nil
	}

	publisher, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("kafka change publishing enabled",
		zap.Strings("brokers", cfg.KafkaBrokers),
		zap.String("topic", cfg.KafkaTopic),
	)
	return publisher, publisher.Close, nil
}
