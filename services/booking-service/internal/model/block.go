package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/interval"
)

const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
	BookingCompleted = "completed"
)

const (
	PaymentUnpaid   = "unpaid"
	PaymentPaid     = "paid"
	PaymentRefunded = "refunded"
)

const (
	MaintenanceCleaning   = "cleaning"
	MaintenanceRepair     = "repair"
	MaintenanceInspection = "inspection"
	MaintenanceRenovation = "renovation"
)

const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Block reserves an interval of a room. At most one of Booking and
// Maintenance is set; a block with neither is an orphan reservation.
type Block struct {
	ID          uuid.UUID
	RoomID      uuid.UUID
	Interval    interval.Interval
	Booking     *Booking
	Maintenance *Maintenance
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Booking struct {
	GuestID       uuid.UUID
	Status        string
	PaymentStatus string
}

type Maintenance struct {
	Kind       string
	Severity   string
	AssignerID *uuid.UUID
}

// Attachment is what a block is reserved for. Build it with BookingAttachment
// or MaintenanceAttachment.
type Attachment struct {
	booking     *Booking
	maintenance *Maintenance
}

func BookingAttachment(b Booking) (Attachment, error) {
	if b.GuestID == uuid.Nil {
		return Attachment{}, fmt.Errorf("%w: guest id is required", ErrInvalidInput)
	}
	if b.Status == "" {
		b.Status = BookingPending
	}
	if b.PaymentStatus == "" {
		b.PaymentStatus = PaymentUnpaid
	}
	if !ValidBookingStatus(b.Status) {
		return Attachment{}, fmt.Errorf("%w: unknown booking status %q", ErrInvalidInput, b.Status)
	}
	if !ValidPaymentStatus(b.PaymentStatus) {
		return Attachment{}, fmt.Errorf("%w: unknown payment status %q", ErrInvalidInput, b.PaymentStatus)
	}
	return Attachment{booking: &b}, nil
}

func MaintenanceAttachment(m Maintenance) (Attachment, error) {
	if !ValidMaintenanceKind(m.Kind) {
		return Attachment{}, fmt.Errorf("%w: unknown maintenance kind %q", ErrInvalidInput, m.Kind)
	}
	if m.Severity == "" {
		m.Severity = SeverityLow
	}
	if !ValidSeverity(m.Severity) {
		return Attachment{}, fmt.Errorf("%w: unknown severity %q", ErrInvalidInput, m.Severity)
	}
	return Attachment{maintenance: &m}, nil
}

func (a Attachment) Booking() *Booking { return a.booking }

func (a Attachment) Maintenance() *Maintenance { return a.maintenance }

// Apply copies the attachment onto b.
func (a Attachment) Apply(b *Block) {
	if a.booking != nil {
		cp := *a.booking
		b.Booking = &cp
	}
	if a.maintenance != nil {
		cp := *a.maintenance
		b.Maintenance = &cp
	}
}

// Clone returns a deep copy so store internals never leak to callers.
func (b Block) Clone() Block {
	if b.Booking != nil {
		cp := *b.Booking
		b.Booking = &cp
	}
	if b.Maintenance != nil {
		cp := *b.Maintenance
		if cp.AssignerID != nil {
			id := *cp.AssignerID
			cp.AssignerID = &id
		}
		b.Maintenance = &cp
	}
	return b
}

func ValidBookingStatus(s string) bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCancelled, BookingCompleted:
		return true
	}
	return false
}

func ValidPaymentStatus(s string) bool {
	switch s {
	case PaymentUnpaid, PaymentPaid, PaymentRefunded:
		return true
	}
	return false
}

func ValidMaintenanceKind(s string) bool {
	switch s {
	case MaintenanceCleaning, MaintenanceRepair, MaintenanceInspection, MaintenanceRenovation:
		return true
	}
	return false
}

func ValidSeverity(s string) bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// CanTransitionBooking lists the allowed booking status changes. Completed and
// cancelled are terminal.
func CanTransitionBooking(from, to string) bool {
	switch from {
	case BookingPending:
		return to == BookingConfirmed || to == BookingCancelled
	case BookingConfirmed:
		return to == BookingCancelled || to == BookingCompleted
	}
	return false
}
