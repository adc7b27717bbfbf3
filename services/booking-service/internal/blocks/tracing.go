package blocks

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/interval"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/blocks"

type tracedStore struct {
	next   Store
	tracer trace.Tracer
}

// WithTracing wraps every store call in a span. Conflicts and misses are
// expected outcomes and do not mark the span as failed.
func WithTracing(next Store) Store {
	return &tracedStore{next: next, tracer: otel.Tracer(tracerName)}
}

func (s *tracedStore) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "blocks."+op, trace.WithAttributes(attrs...))
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.SetAttributes(attribute.String("blocks.outcome", outcome(err)))
		if !expected(err) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}
	span.End()
}

func expected(err error) bool {
	return errors.Is(err, model.ErrConflict) ||
		errors.Is(err, model.ErrNotFound) ||
		errors.Is(err, model.ErrInvalidRange) ||
		errors.Is(err, model.ErrKeyReused)
}

func outcome(err error) string {
	switch {
	case errors.Is(err, model.ErrKeyReused):
		return "key_reused"
	case errors.Is(err, model.ErrInvalidRange):
		return "invalid_range"
	case errors.Is(err, model.ErrConflict):
		return "conflict"
	case errors.Is(err, model.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func (s *tracedStore) Insert(ctx context.Context, roomID uuid.UUID, iv interval.Interval, att model.Attachment) (model.Block, error) {
	ctx, span := s.start(ctx, "insert",
		attribute.String("room.id", roomID.String()),
		attribute.String("block.interval", iv.String()),
	)
	b, err := s.next.Insert(ctx, roomID, iv, att)
	if err == nil {
		span.SetAttributes(attribute.String("block.id", b.ID.String()))
	}
	finish(span, err)
	return b, err
}

func (s *tracedStore) InsertOnce(ctx context.Context, key model.IdempotencyKey, roomID uuid.UUID, iv interval.Interval, att model.Attachment) (model.Block, bool, error) {
	ctx, span := s.start(ctx, "insert_once",
		attribute.String("room.id", roomID.String()),
		attribute.String("block.interval", iv.String()),
	)
	b, replayed, err := s.next.InsertOnce(ctx, key, roomID, iv, att)
	if err == nil {
		span.SetAttributes(
			attribute.String("block.id", b.ID.String()),
			attribute.Bool("idempotency.replayed", replayed),
		)
	}
	finish(span, err)
	return b, replayed, err
}

func (s *tracedStore) Remove(ctx context.Context, blockID uuid.UUID) error {
	ctx, span := s.start(ctx, "remove", attribute.String("block.id", blockID.String()))
	err := s.next.Remove(ctx, blockID)
	finish(span, err)
	return err
}

func (s *tracedStore) FindOverlapping(ctx context.Context, roomID uuid.UUID, iv interval.Interval) ([]model.Block, error) {
	ctx, span := s.start(ctx, "find_overlapping",
		attribute.String("room.id", roomID.String()),
		attribute.String("block.interval", iv.String()),
	)
	out, err := s.next.FindOverlapping(ctx, roomID, iv)
	span.SetAttributes(attribute.Int("blocks.count", len(out)))
	finish(span, err)
	return out, err
}

func (s *tracedStore) Get(ctx context.Context, blockID uuid.UUID) (model.Block, error) {
	ctx, span := s.start(ctx, "get", attribute.String("block.id", blockID.String()))
	b, err := s.next.Get(ctx, blockID)
	finish(span, err)
	return b, err
}

func (s *tracedStore) SetBookingStatus(ctx context.Context, blockID uuid.UUID, status string) (model.Block, error) {
	ctx, span := s.start(ctx, "set_booking_status",
		attribute.String("block.id", blockID.String()),
		attribute.String("booking.status", status),
	)
	b, err := s.next.SetBookingStatus(ctx, blockID, status)
	finish(span, err)
	return b, err
}
