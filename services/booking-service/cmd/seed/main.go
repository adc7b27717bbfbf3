// Command seed loads the demo hotel into Postgres. It is a no-op when rooms
// already exist.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/md-rashed-zaman/hotelbook/libs/config"
	"github.com/md-rashed-zaman/hotelbook/libs/db"
	"github.com/md-rashed-zaman/hotelbook/libs/runtime"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/demo"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/storage"
)

func main() {
	logger := runtime.NewLogger("booking-seed", config.String("LOG_LEVEL", "info"))

	ctx, stop := runtime.SignalContext()
	defer stop()

	if err := run(ctx, logger); err != nil {
		logger.Error("seed failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		return err
	}
	pool, err := db.Open(ctx, dbURL, db.Options{MaxConns: 2})
	if err != nil {
		return fmt.Errorf("db connection failed: %w", err)
	}
	defer pool.Close()

	if err := storage.Migrate(ctx, pool, logger); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	rooms := storage.NewRoomRepository(pool)
	users := storage.NewUserRepository(pool)

	page, err := rooms.ListRooms(ctx, model.RoomQuery{Page: 1, PerPage: 1})
	if err != nil {
		return fmt.Errorf("count rooms: %w", err)
	}
	if page.Total > 0 {
		logger.Info("rooms already present, skipping", "rooms", page.Total)
		return nil
	}

	hotel := demo.NewHotel()
	for _, c := range hotel.Classes {
		if _, err := rooms.CreateClass(ctx, c); err != nil {
			return fmt.Errorf("class %s: %w", c.Name, err)
		}
	}
	for _, r := range hotel.Rooms {
		if _, err := rooms.CreateRoom(ctx, r); err != nil {
			return fmt.Errorf("room %s: %w", r.Label, err)
		}
	}
	for _, u := range hotel.Users {
		if _, err := users.CreateUser(ctx, u); err != nil {
			return fmt.Errorf("user %s: %w", u.Email, err)
		}
	}
	logger.Info("demo hotel seeded",
		"classes", len(hotel.Classes),
		"rooms", len(hotel.Rooms),
		"users", len(hotel.Users),
	)
	return nil
}
