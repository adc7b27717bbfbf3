// Package catalog serves the read-mostly room catalog, with room classes
// cached in Redis.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/model"
	"github.com/redis/go-redis/v9"
)

type Reader interface {
	ListRooms(ctx context.Context, q model.RoomQuery) (model.RoomPage, error)
	GetRoom(ctx context.Context, roomID uuid.UUID) (model.RoomDetails, error)
	ListClasses(ctx context.Context) ([]model.RoomClass, error)
	RoomExists(ctx context.Context, roomID uuid.UUID) (bool, error)
}

const classesKey = "hotel:catalog:classes:v1"

// ClassCache wraps a Reader and caches ListClasses. With a nil client it is a
// pass-through. Redis failures fall back to the underlying reader.
type ClassCache struct {
	Reader
	rdb    redis.Cmdable
	ttl    time.Duration
	logger *slog.Logger
}

func NewClassCache(next Reader, rdb redis.Cmdable, ttl time.Duration, logger *slog.Logger) *ClassCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ClassCache{Reader: next, rdb: rdb, ttl: ttl, logger: logger}
}

type cachedAmenity struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	IconKey string    `json:"icon_key"`
}

type cachedClass struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	BasePrice string          `json:"base_price"`
	Amenities []cachedAmenity `json:"amenities"`
	CreatedAt time.Time       `json:"created_at"`
}

func (c *ClassCache) ListClasses(ctx context.Context) ([]model.RoomClass, error) {
	if c.rdb == nil {
		return c.Reader.ListClasses(ctx)
	}

	raw, err := c.rdb.Get(ctx, classesKey).Bytes()
	switch {
	case err == nil:
		var cached []cachedClass
		if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
			return fromCache(cached), nil
		}
		c.logger.Warn("discarding corrupt class cache entry")
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("class cache read failed", "err", err)
	}

	classes, err := c.Reader.ListClasses(ctx)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(toCache(classes)); err == nil {
		if err := c.rdb.Set(ctx, classesKey, raw, c.ttl).Err(); err != nil {
			c.logger.Warn("class cache write failed", "err", err)
		}
	}
	return classes, nil
}

// Invalidate drops the cached class list.
func (c *ClassCache) Invalidate(ctx context.Context) error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, classesKey).Err()
}

func toCache(classes []model.RoomClass) []cachedClass {
	out := make([]cachedClass, 0, len(classes))
	for _, cl := range classes {
		cc := cachedClass{ID: cl.ID, Name: cl.Name, BasePrice: cl.BasePrice, CreatedAt: cl.CreatedAt, Amenities: []cachedAmenity{}}
		for _, a := range cl.Amenities {
			cc.Amenities = append(cc.Amenities, cachedAmenity{ID: a.ID, Name: a.Name, IconKey: a.IconKey})
		}
		out = append(out, cc)
	}
	return out
}

func fromCache(cached []cachedClass) []model.RoomClass {
	out := make([]model.RoomClass, 0, len(cached))
	for _, cc := range cached {
		cl := model.RoomClass{ID: cc.ID, Name: cc.Name, BasePrice: cc.BasePrice, CreatedAt: cc.CreatedAt, Amenities: []model.Amenity{}}
		for _, a := range cc.Amenities {
			cl.Amenities = append(cl.Amenities, model.Amenity{ID: a.ID, Name: a.Name, IconKey: a.IconKey})
		}
		out = append(out, cl)
	}
	return out
}
