package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/hotelbook/libs/httpx"
	"github.com/md-rashed-zaman/hotelbook/libs/session"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/blocks"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/interval"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/model"
)

type BlockHandler struct {
	store  blocks.Store
	logger *slog.Logger
}

func NewBlockHandler(store blocks.Store, logger *slog.Logger) *BlockHandler {
	return &BlockHandler{store: store, logger: logger}
}

type bookRequest struct {
	RoomID  string `json:"room_id"`
	Start   string `json:"start"`
	End     string `json:"end"`
	GuestID string `json:"guest_id"`
}

type maintenanceRequest struct {
	RoomID       string `json:"room_id"`
	Start        string `json:"start"`
	End          string `json:"end"`
	EndInclusive bool   `json:"end_inclusive"`
	Kind         string `json:"kind"`
	Severity     string `json:"severity"`
}

type blockIDRequest struct {
	BlockID string `json:"block_id"`
}

const (
	idempotencyKeyHeader = "Idempotency-Key"
	replayedHeader       = "Idempotent-Replayed"
)

// bookingFingerprint identifies the request a key was first used with.
func bookingFingerprint(roomID uuid.UUID, stay interval.Interval, guestID uuid.UUID) string {
	sum := sha256.Sum256([]byte(roomID.String() + "|" + stay.String() + "|" + guestID.String()))
	return hex.EncodeToString(sum[:])
}

// Book handles POST /api/v1/bookings. Guests book for themselves; staff may
// book on behalf of any guest. A retry carrying the same Idempotency-Key gets
// the original booking back instead of a conflict.
func (h *BlockHandler) Book(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	ctx := r.Context()
	user := session.FromContext(ctx)
	if user == nil {
		writeError(ctx, w, h.logger, "book room", model.ErrUnauthorized)
		return
	}

	idempotencyKey := strings.TrimSpace(r.Header.Get(idempotencyKeyHeader))
	if len(idempotencyKey) > model.MaxIdempotencyKeyLen {
		httpx.WriteError(w, http.StatusBadRequest, "Idempotency-Key too long")
		return
	}

	var req bookRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	roomID, err := parseUUID("room_id", req.RoomID)
	if err != nil {
		writeError(ctx, w, h.logger, "book room", err)
		return
	}
	stay, err := parseStay(req.Start, req.End, false)
	if err != nil {
		writeError(ctx, w, h.logger, "book room", err)
		return
	}

	guestID := user.ID
	if strings.TrimSpace(req.GuestID) != "" {
		if guestID, err = parseUUID("guest_id", req.GuestID); err != nil {
			writeError(ctx, w, h.logger, "book room", err)
			return
		}
		if guestID != user.ID && !user.IsStaff() {
			writeError(ctx, w, h.logger, "book room", model.ErrUnauthorized)
			return
		}
	}

	att, err := model.BookingAttachment(model.Booking{GuestID: guestID})
	if err != nil {
		writeError(ctx, w, h.logger, "book room", err)
		return
	}

	var (
		b        model.Block
		replayed bool
	)
	if idempotencyKey == "" {
		b, err = h.store.Insert(ctx, roomID, stay, att)
	} else {
		key := model.IdempotencyKey{
			UserID:      user.ID,
			Key:         idempotencyKey,
			Fingerprint: bookingFingerprint(roomID, stay, guestID),
		}
		b, replayed, err = h.store.InsertOnce(ctx, key, roomID, stay, att)
	}
	if err != nil {
		writeError(ctx, w, h.logger, "book room", err)
		return
	}
	if replayed {
		w.Header().Set(replayedHeader, "true")
		httpx.WriteJSON(w, http.StatusCreated, toBlockView(b))
		return
	}
	h.logger.Info("room booked",
		"request_id", httpx.RequestIDFromContext(ctx),
		"block_id", b.ID,
		"room_id", roomID,
		"interval", stay.String(),
	)
	httpx.WriteJSON(w, http.StatusCreated, toBlockView(b))
}

// Maintenance handles POST /api/v1/maintenance (staff only).
func (h *BlockHandler) Maintenance(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	ctx := r.Context()
	user := session.FromContext(ctx)
	if !user.IsStaff() {
		writeError(ctx, w, h.logger, "schedule maintenance", model.ErrUnauthorized)
		return
	}

	var req maintenanceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	roomID, err := parseUUID("room_id", req.RoomID)
	if err != nil {
		writeError(ctx, w, h.logger, "schedule maintenance", err)
		return
	}
	window, err := parseStay(req.Start, req.End, req.EndInclusive)
	if err != nil {
		writeError(ctx, w, h.logger, "schedule maintenance", err)
		return
	}
	att, err := model.MaintenanceAttachment(model.Maintenance{
		Kind:       strings.ToLower(strings.TrimSpace(req.Kind)),
		Severity:   strings.ToLower(strings.TrimSpace(req.Severity)),
		AssignerID: user.StaffID,
	})
	if err != nil {
		writeError(ctx, w, h.logger, "schedule maintenance", err)
		return
	}

	b, err := h.store.Insert(ctx, roomID, window, att)
	if err != nil {
		writeError(ctx, w, h.logger, "schedule maintenance", err)
		return
	}
	h.logger.Info("maintenance scheduled",
		"request_id", httpx.RequestIDFromContext(ctx),
		"block_id", b.ID,
		"room_id", roomID,
		"kind", b.Maintenance.Kind,
	)
	httpx.WriteJSON(w, http.StatusCreated, toBlockView(b))
}

// Cancel handles POST /api/v1/bookings/cancel. The interval stays blocked
// until staff remove the block.
func (h *BlockHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	ctx := r.Context()
	user := session.FromContext(ctx)
	if user == nil {
		writeError(ctx, w, h.logger, "cancel booking", model.ErrUnauthorized)
		return
	}
	blockID, ok := h.decodeBlockID(w, r)
	if !ok {
		return
	}

	b, err := h.store.Get(ctx, blockID)
	if err != nil {
		writeError(ctx, w, h.logger, "cancel booking", err)
		return
	}
	if b.Booking == nil {
		writeError(ctx, w, h.logger, "cancel booking", model.ErrNotFound)
		return
	}
	if b.Booking.GuestID != user.ID && !user.IsStaff() {
		writeError(ctx, w, h.logger, "cancel booking", model.ErrUnauthorized)
		return
	}

	b, err = h.store.SetBookingStatus(ctx, blockID, model.BookingCancelled)
	if err != nil {
		writeError(ctx, w, h.logger, "cancel booking", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toBlockView(b))
}

// Remove handles POST /api/v1/blocks/remove (staff only) and frees the interval.
func (h *BlockHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	ctx := r.Context()
	if !session.FromContext(ctx).IsStaff() {
		writeError(ctx, w, h.logger, "remove block", model.ErrUnauthorized)
		return
	}
	blockID, ok := h.decodeBlockID(w, r)
	if !ok {
		return
	}

	if err := h.store.Remove(ctx, blockID); err != nil {
		writeError(ctx, w, h.logger, "remove block", err)
		return
	}
	h.logger.Info("block removed", "request_id", httpx.RequestIDFromContext(ctx), "block_id", blockID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *BlockHandler) decodeBlockID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	var req blockIDRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return uuid.Nil, false
	}
	id, err := parseUUID("block_id", req.BlockID)
	if err != nil {
		writeError(r.Context(), w, h.logger, "decode block id", err)
		return uuid.Nil, false
	}
	return id, true
}

// Routes registers every booking endpoint on mux.
func Routes(mux *http.ServeMux, rh *RoomHandler, bh *BlockHandler, uh *UserHandler) {
	mux.HandleFunc("/api/v1/rooms", rh.List)
	mux.HandleFunc("/api/v1/rooms/find", rh.Find)
	mux.HandleFunc("/api/v1/rooms/availability", rh.Availability)
	mux.HandleFunc("/api/v1/rooms/details", rh.Details)
	mux.HandleFunc("/api/v1/rooms/classes", rh.Classes)
	mux.HandleFunc("/api/v1/bookings", bh.Book)
	mux.HandleFunc("/api/v1/bookings/cancel", bh.Cancel)
	mux.HandleFunc("/api/v1/maintenance", bh.Maintenance)
	mux.HandleFunc("/api/v1/blocks/remove", bh.Remove)
	mux.HandleFunc("/api/v1/users/{id}", uh.Get)
}
