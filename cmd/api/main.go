package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/gorb-swap/amm-core/internal/amm"
	"github.com/gorb-swap/amm-core/internal/cache"
	"github.com/gorb-swap/amm-core/internal/config"
	"github.com/gorb-swap/amm-core/internal/flags"
	"github.com/gorb-swap/amm-core/internal/ledger"
	"github.com/gorb-swap/amm-core/internal/server"
)

// env bootstrap function
func loadEnv(logger *logrus.Logger) {
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	envPath := filepath.Join(projectRoot, ".env")

	if err := godotenv.Load(envPath); err != nil {
		logger.Warnf("no .env file found at %s, using system environment variables", envPath)
	} else {
		logger.Infof("loaded .env from %s", envPath)
	}
}

// main is the entry point for the ambient node's API server. It wires the
// Redis-backed account store to the instruction dispatcher, the event-log
// pipeline, and the operational-flags store, then starts the HTTP façade
// with graceful shutdown.
func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.InfoLevel)

	loadEnv(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	program, err := solana.PublicKeyFromBase58(cfg.ProgramID)
	if err != nil {
		logger.WithError(err).Fatal("invalid AMM_PROGRAM_ID")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	// Shared Redis client: the account store and the event-log pipeline are
	// independent keyspaces on the same connection (SPEC_FULL.md §3, §4.8).
	rclient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: 0})
	if err := rclient.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Fatal("failed to connect to Redis")
	}

	store, err := ledger.NewRedisStore(ctx, rclient)
	if err != nil {
		logger.WithError(err).Fatal("failed to create account store")
	}

	flagStore, err := flags.NewStore(rclient)
	if err != nil {
		logger.WithError(err).Fatal("failed to create flags store")
	}

	redisSink := cache.NewRedisSinkFromClient(rclient, logger)
	pipeline := &cache.Pipeline{Redis: redisSink}
	if cfg.ClickHouseAddr != "" {
		ch, err := cache.NewClickHouseSink(cache.ClickHouseConfig{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
			Logger:   logger,
		})
		if err != nil {
			logger.WithError(err).Warn("clickhouse unavailable, event log runs Redis-only")
		} else {
			pipeline.ClickHouse = ch
			defer func() { _ = ch.Close() }()
		}
	}
	defer func() { _ = redisSink.Close() }()

	engine := amm.NewEngine(store)
	processor := amm.NewProcessor(engine, flagStore)
	processor.Events = pipeline

	h := &server.Handlers{
		Processor: processor,
		Program:   program,
		Flags:     flagStore,
		Events:    pipeline,
		DevMode:   cfg.DevMode,
		Logger:    logger,
	}

	srv, err := server.NewServer(server.ServerDeps{
		Handlers: h,
		Config: server.ServerConfig{
			Addr:      cfg.APIAddr,
			DevMode:   cfg.DevMode,
			APIKey:    cfg.APIKey,
			RateLimit: cfg.RateLimit,
			RateBurst: cfg.RateBurst,
		},
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create http server")
	}

	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
		_ = srv.Shutdown(context.Background())
	}()

	logger.WithField("addr", cfg.APIAddr).Info("api server starting")
	if err := srv.Start(); err != nil {
		if err.Error() == "http: Server closed" {
			return
		}
		logger.WithError(err).Fatal("api server failed")
	}

	if err := srv.WaitClosed(context.Background()); err != nil {
		fmt.Println(err)
	}
}
