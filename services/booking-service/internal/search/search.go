// Package search finds rooms free for a whole stay.
package search

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/interval"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/model"
)

// Source returns the rooms, optionally restricted to one class, that have no
// block overlapping period.
type Source interface {
	AvailableRooms(ctx context.Context, period interval.Interval, classID *uuid.UUID) ([]model.Room, error)
}

type Service struct {
	source Source
}

func NewService(source Source) *Service {
	return &Service{source: source}
}

// Find returns the rooms free for the whole stay [start, end).
func (s *Service) Find(ctx context.Context, start, end time.Time, classID *uuid.UUID) ([]model.Room, error) {
	if !start.Before(end) {
		return nil, model.ErrInvalidRange
	}
	period, err := interval.HalfOpen(start, end)
	if err != nil {
		// start < end can still collapse once truncated to microseconds.
		return nil, model.ErrInvalidRange
	}
	rooms, err := s.source.AvailableRooms(ctx, period, classID)
	if err != nil {
		return nil, fmt.Errorf("find available rooms: %w", err)
	}
	if rooms == nil {
		rooms = []model.Room{}
	}
	return rooms, nil
}

// FilterAvailable keeps the rooms with no block overlapping period, using the
// bound-aware overlap rule. Order of rooms is preserved.
func FilterAvailable(rooms []model.Room, blocksByRoom map[uuid.UUID][]model.Block, period interval.Interval) []model.Room {
	out := make([]model.Room, 0, len(rooms))
	for _, r := range rooms {
		free := true
		for _, b := range blocksByRoom[r.ID] {
			if interval.Overlaps(b.Interval, period) {
				free = false
				break
			}
		}
		if free {
			out = append(out, r)
		}
	}
	return out
}
