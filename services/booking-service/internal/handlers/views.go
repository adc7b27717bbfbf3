package handlers

import (
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/interval"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/model"
)

type roomView struct {
	ID        uuid.UUID `json:"id"`
	Label     string    `json:"label"`
	ClassID   uuid.UUID `json:"class_id"`
	CreatedAt time.Time `json:"created_at"`
}

type amenityView struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	IconKey string    `json:"icon_key"`
}

type classView struct {
	ID        uuid.UUID     `json:"id"`
	Name      string        `json:"name"`
	BasePrice string        `json:"base_price"`
	Amenities []amenityView `json:"amenities"`
}

type roomDetailsView struct {
	roomView
	Class classView `json:"class"`
}

type roomPageView struct {
	Rooms   []roomView `json:"rooms"`
	Total   int        `json:"total"`
	Page    int        `json:"page"`
	PerPage int        `json:"per_page"`
}

type bookingView struct {
	GuestID       uuid.UUID `json:"guest_id"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
}

type maintenanceView struct {
	Kind       string     `json:"kind"`
	Severity   string     `json:"severity"`
	AssignerID *uuid.UUID `json:"assigner_id,omitempty"`
}

type blockView struct {
	ID          uuid.UUID         `json:"id"`
	RoomID      uuid.UUID         `json:"room_id"`
	Interval    interval.Interval `json:"interval"`
	Booking     *bookingView      `json:"booking,omitempty"`
	Maintenance *maintenanceView  `json:"maintenance,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func toRoomView(r model.Room) roomView {
	return roomView{ID: r.ID, Label: r.Label, ClassID: r.ClassID, CreatedAt: r.CreatedAt}
}

func toRoomViews(rooms []model.Room) []roomView {
	out := make([]roomView, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, toRoomView(r))
	}
	return out
}

func toClassView(c model.RoomClass) classView {
	v := classView{ID: c.ID, Name: c.Name, BasePrice: c.BasePrice, Amenities: make([]amenityView, 0, len(c.Amenities))}
	for _, a := range c.Amenities {
		v.Amenities = append(v.Amenities, amenityView{ID: a.ID, Name: a.Name, IconKey: a.IconKey})
	}
	return v
}

func toBlockView(b model.Block) blockView {
	v := blockView{
		ID:        b.ID,
		RoomID:    b.RoomID,
		Interval:  b.Interval,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
	if b.Booking != nil {
		v.Booking = &bookingView{GuestID: b.Booking.GuestID, Status: b.Booking.Status, PaymentStatus: b.Booking.PaymentStatus}
	}
	if b.Maintenance != nil {
		v.Maintenance = &maintenanceView{Kind: b.Maintenance.Kind, Severity: b.Maintenance.Severity, AssignerID: b.Maintenance.AssignerID}
	}
	return v
}
