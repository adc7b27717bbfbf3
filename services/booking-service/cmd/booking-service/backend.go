package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/md-rashed-zaman/hotelbook/libs/config"
	"github.com/md-rashed-zaman/hotelbook/libs/db"
	"github.com/md-rashed-zaman/hotelbook/libs/kafkax"
	"github.com/md-rashed-zaman/hotelbook/libs/runtime"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/blocks"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/catalog"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/handlers"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/memstore"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/search"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/storage"
)

// roomSource is everything the catalog and search endpoints read.
type roomSource interface {
	catalog.Reader
	search.Source
}

type backend struct {
	blocks blocks.Store
	rooms  roomSource
	users  handlers.UserReader
	checks []runtime.ReadyCheck
	close  func()
}

func openBackend(ctx context.Context, driver string, logger *slog.Logger) (*backend, error) {
	switch strings.ToLower(driver) {
	case "memory":
		return openMemory(logger)
	case "postgres", "":
		return openPostgres(ctx, logger)
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", driver)
	}
}

func openMemory(logger *slog.Logger) (*backend, error) {
	store := memstore.New()
	if err := store.SeedDemo(); err != nil {
		return nil, fmt.Errorf("seed demo hotel: %w", err)
	}
	logger.Warn("using in-memory storage; data is lost on restart")
	return &backend{blocks: store, rooms: store, users: store, close: func() {}}, nil
}

func openPostgres(ctx context.Context, logger *slog.Logger) (*backend, error) {
	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		return nil, err
	}
	pool, err := db.Open(ctx, dbURL, db.Options{
		MaxConns: int32(config.Int("DB_MAX_CONNS", 10, 1)),
	})
	if err != nil {
		return nil, fmt.Errorf("db connection failed: %w", err)
	}

	if config.Bool("RUN_MIGRATIONS", true) {
		if err := storage.Migrate(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	outboxRepo := outbox.NewRepository()
	brokers := config.List("KAFKA_BROKERS", "")
	publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: time.Duration(config.Int("OUTBOX_POLL_MS", 2000, 50)) * time.Millisecond,
		BatchSize: config.Int("OUTBOX_BATCH", 50, 1),
		RetainFor: time.Duration(config.Int("OUTBOX_RETAIN_HOURS", 72, 0)) * time.Hour,
	})
	go publisher.Run(ctx)

	checks := []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}}
	if len(brokers) > 0 {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}
	return &backend{
		blocks: storage.NewBlockRepository(pool, outboxRepo),
		rooms:  storage.NewRoomRepository(pool),
		users:  storage.NewUserRepository(pool),
		checks: checks,
		close:  pool.Close,
	}, nil
}
