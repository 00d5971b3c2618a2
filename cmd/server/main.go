package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	"rosterboard/internal/audit"
	"rosterboard/internal/directory"
	"rosterboard/internal/pipeline"
	"rosterboard/internal/pipeline/store"
	"rosterboard/internal/platform/config"
	"rosterboard/internal/platform/httpserver"
	"rosterboard/internal/platform/logger"
	"rosterboard/internal/platform/metrics"
	"rosterboard/internal/platform/redis"
	"rosterboard/internal/remote"
	httptransport "rosterboard/internal/transport/http"
)

// main wires dependencies and owns the server lifecycle. Backing services
// are optional: without Redis the directory cache is in-process, without
// Postgres runs are in-memory, without Kafka audit events stay local.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx := context.Background()

	m := metrics.New()

	cache, err := buildCache(cfg, log)
	if err != nil {
		log.Error("connecting to redis", "error", err)
		os.Exit(1)
	}

	runStore, closeDB, err := buildRunStore(ctx, cfg)
	if err != nil {
		log.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer closeDB()

	publisher, closeKafka, err := buildPublisher(cfg, log)
	if err != nil {
		log.Error("connecting to kafka", "error", err)
		os.Exit(1)
	}
	defer closeKafka()

	client := remote.NewClient(cfg.RemoteAPI, log, m)
	service := pipeline.NewService(client, cache, runStore, publisher, log, m)

	handler := httptransport.New(service, publisher, log, cfg.Roster)
	router := httptransport.NewRouter(handler, log, cfg.Server)
	srv := httpserver.New(cfg.Server.Addr, router)

	go func() {
		log.Info("starting rosterboard", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("rosterboard stopped")
}

func buildCache(cfg config.Config, log *slog.Logger) (directory.Cache, error) {
	client, err := redis.New(cfg.Redis)
	if err != nil {
		return nil, err
	}
	if client == nil {
		log.Info("redis not configured, using in-memory directory cache")
		return directory.NewInMemory(cfg.Redis.DirectoryTTL), nil
	}
	return directory.NewRedis(client.Client, cfg.Redis.DirectoryTTL, log), nil
}

func buildRunStore(ctx context.Context, cfg config.Config) (pipeline.RunStore, func(), error) {
	if cfg.Postgres.DSN == "" {
		return store.NewMemory(), func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.Postgres.DSN)
	if err != nil {
		return nil, nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}

	pg := store.NewPostgres(db)
	if err := pg.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return pg, func() { db.Close() }, nil
}

func buildPublisher(cfg config.Config, log *slog.Logger) (audit.Publisher, func(), error) {
	if len(cfg.Kafka.Brokers) == 0 {
		log.Info("kafka not configured, keeping audit events in-process")
		return audit.NewMemory(), func() {}, nil
	}

	kafka, err := audit.NewKafka(cfg.Kafka, log)
	if err != nil {
		return nil, nil, err
	}
	return kafka, kafka.Close, nil
}
