// Package blocks defines the room block store contract shared by the
// Postgres and in-memory implementations.
package blocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/interval"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/model"
)

// Store persists blocks. Insert is the only operation that needs mutual
// exclusion: it must reject any interval overlapping an existing block of the
// same room, atomically with the write.
type Store interface {
	// Insert returns model.ErrConflict on overlap, model.ErrNotFound for an
	// unknown room and model.ErrInvalidRange for an interval that fails
	// Validate.
	Insert(ctx context.Context, roomID uuid.UUID, iv interval.Interval, att model.Attachment) (model.Block, error)
	// InsertOnce is Insert guarded by an idempotency key. A key already bound
	// to the same fingerprint returns the recorded block with replayed set; a
	// different fingerprint fails with model.ErrKeyReused. Failed inserts do
	// not consume the key.
	InsertOnce(ctx context.Context, key model.IdempotencyKey, roomID uuid.UUID, iv interval.Interval, att model.Attachment) (b model.Block, replayed bool, err error)
	Remove(ctx context.Context, blockID uuid.UUID) error
	// FindOverlapping returns blocks ordered by ascending lower bound.
	FindOverlapping(ctx context.Context, roomID uuid.UUID, iv interval.Interval) ([]model.Block, error)
	Get(ctx context.Context, blockID uuid.UUID) (model.Block, error)
	SetBookingStatus(ctx context.Context, blockID uuid.UUID, status string) (model.Block, error)
}
