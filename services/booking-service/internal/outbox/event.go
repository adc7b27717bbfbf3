package outbox

import (
	"encoding/json"
	"time"

	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/interval"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/model"
)

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

const (
	AggregateRoom = "room"

	TypeBlockCreated         = "booking.block.created.v1"
	TypeBlockRemoved         = "booking.block.removed.v1"
	TypeBookingStatusChanged = "booking.booking.status_changed.v1"
)

type BlockCreated struct {
	BlockID     string            `json:"block_id"`
	RoomID      string            `json:"room_id"`
	Interval    interval.Interval `json:"interval"`
	Kind        string            `json:"kind"`
	GuestID     string            `json:"guest_id,omitempty"`
	Status      string            `json:"status,omitempty"`
	Maintenance string            `json:"maintenance_kind,omitempty"`
	Severity    string            `json:"severity,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

type BlockRemoved struct {
	BlockID   string            `json:"block_id"`
	RoomID    string            `json:"room_id"`
	Interval  interval.Interval `json:"interval"`
	RemovedAt time.Time         `json:"removed_at"`
}

type BookingStatusChanged struct {
	BlockID   string    `json:"block_id"`
	RoomID    string    `json:"room_id"`
	GuestID   string    `json:"guest_id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	ChangedAt time.Time `json:"changed_at"`
}

func newEvent(eventType, roomID string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: AggregateRoom,
		AggregateID:   roomID,
		EventType:     eventType,
		Payload:       raw,
	}, nil
}

func NewBlockCreated(b model.Block) (Event, error) {
	p := BlockCreated{
		BlockID:   b.ID.String(),
		RoomID:    b.RoomID.String(),
		Interval:  b.Interval,
		Kind:      "unknown",
		CreatedAt: b.CreatedAt,
	}
	switch {
	case b.Booking != nil:
		p.Kind = "booking"
		p.GuestID = b.Booking.GuestID.String()
		p.Status = b.Booking.Status
	case b.Maintenance != nil:
		p.Kind = "maintenance"
		p.Maintenance = b.Maintenance.Kind
		p.Severity = b.Maintenance.Severity
	}
	return newEvent(TypeBlockCreated, p.RoomID, p)
}

func NewBlockRemoved(b model.Block, at time.Time) (Event, error) {
	return newEvent(TypeBlockRemoved, b.RoomID.String(), BlockRemoved{
		BlockID:   b.ID.String(),
		RoomID:    b.RoomID.String(),
		Interval:  b.Interval,
		RemovedAt: at,
	})
}

func NewBookingStatusChanged(b model.Block, from string, at time.Time) (Event, error) {
	p := BookingStatusChanged{
		BlockID:   b.ID.String(),
		RoomID:    b.RoomID.String(),
		From:      from,
		ChangedAt: at,
	}
	if b.Booking != nil {
		p.GuestID = b.Booking.GuestID.String()
		p.To = b.Booking.Status
	}
	return newEvent(TypeBookingStatusChanged, p.RoomID, p)
}
