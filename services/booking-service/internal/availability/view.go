// Package availability builds the staff calendar of a room.
package availability

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/hotelbook/libs/session"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/interval"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/model"
)

type Kind string

const (
	KindBooking     Kind = "BOOKING"
	KindMaintenance Kind = "MAINTENANCE"
	KindUnknown     Kind = "UNKNOWN"
)

type CalendarBlock struct {
	ID       uuid.UUID         `json:"id"`
	Interval interval.Interval `json:"interval"`
	Kind     Kind              `json:"kind"`
	Label    string            `json:"label,omitempty"`
}

// Calendar covers Period, which is the requested period widened to fully
// contain every returned block. Free lists the gaps inside the requested
// period.
type Calendar struct {
	RoomID uuid.UUID           `json:"room_id"`
	Period interval.Interval   `json:"period"`
	Blocks []CalendarBlock     `json:"blocks"`
	Free   []interval.Interval `json:"free"`
}

type BlockFinder interface {
	FindOverlapping(ctx context.Context, roomID uuid.UUID, iv interval.Interval) ([]model.Block, error)
}

type RoomChecker interface {
	RoomExists(ctx context.Context, roomID uuid.UUID) (bool, error)
}

type View struct {
	blocks BlockFinder
	rooms  RoomChecker
}

func NewView(blocks BlockFinder, rooms RoomChecker) *View {
	return &View{blocks: blocks, rooms: rooms}
}

func (v *View) Get(ctx context.Context, caller *session.User, roomID uuid.UUID, period interval.Interval) (Calendar, error) {
	if !caller.IsStaff() {
		return Calendar{}, model.ErrUnauthorized
	}

	ok, err := v.rooms.RoomExists(ctx, roomID)
	if err != nil {
		return Calendar{}, fmt.Errorf("check room: %w", err)
	}
	if !ok {
		return Calendar{}, fmt.Errorf("room %s: %w", roomID, model.ErrNotFound)
	}

	found, err := v.blocks.FindOverlapping(ctx, roomID, period)
	if err != nil {
		return Calendar{}, fmt.Errorf("find blocks: %w", err)
	}

	cal := Calendar{
		RoomID: roomID,
		Period: period,
		Blocks: make([]CalendarBlock, 0, len(found)),
	}
	busy := make([]interval.Interval, 0, len(found))
	for _, b := range found {
		cal.Blocks = append(cal.Blocks, classify(b))
		busy = append(busy, b.Interval)
	}
	if n := len(found); n > 0 {
		cal.Period = interval.Span(period, interval.Interval{
			Lower: found[0].Interval.Lower,
			Upper: found[n-1].Interval.Upper,
		})
	}
	cal.Free = interval.Gaps(period, busy)
	if cal.Free == nil {
		cal.Free = []interval.Interval{}
	}
	return cal, nil
}

func classify(b model.Block) CalendarBlock {
	cb := CalendarBlock{ID: b.ID, Interval: b.Interval, Kind: KindUnknown}
	switch {
	case b.Booking != nil:
		cb.Kind = KindBooking
		cb.Label = b.Booking.Status
	case b.Maintenance != nil:
		cb.Kind = KindMaintenance
		cb.Label = b.Maintenance.Kind
	}
	return cb
}
