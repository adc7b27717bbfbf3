package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/hotelbook/libs/httpx"
	"github.com/md-rashed-zaman/hotelbook/libs/session"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/model"
)

type UserReader interface {
	GetUser(ctx context.Context, userID uuid.UUID) (model.User, error)
}

type UserHandler struct {
	users  UserReader
	logger *slog.Logger
}

func NewUserHandler(users UserReader, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

type userView struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

type userResponse struct {
	User userView `json:"user"`
}

// Get handles GET /api/v1/users/{id}. Callers may read their own account;
// staff may read any.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	ctx := r.Context()
	caller := session.FromContext(ctx)
	if caller == nil {
		writeError(ctx, w, h.logger, "get user", model.ErrUnauthorized)
		return
	}
	userID, err := parseUUID("id", r.PathValue("id"))
	if err != nil {
		writeError(ctx, w, h.logger, "get user", err)
		return
	}
	if userID != caller.ID && !caller.IsStaff() {
		writeError(ctx, w, h.logger, "get user", model.ErrUnauthorized)
		return
	}

	u, err := h.users.GetUser(ctx, userID)
	if err != nil {
		writeError(ctx, w, h.logger, "get user", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, userResponse{User: userView{ID: u.ID, Email: u.Email}})
}
