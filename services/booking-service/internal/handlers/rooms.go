package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/md-rashed-zaman/hotelbook/libs/httpx"
	"github.com/md-rashed-zaman/hotelbook/libs/session"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/catalog"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/search"
)

type RoomHandler struct {
	search  *search.Service
	view    *availability.View
	catalog catalog.Reader
	logger  *slog.Logger
}

func NewRoomHandler(searchSvc *search.Service, view *availability.View, catalogReader catalog.Reader, logger *slog.Logger) *RoomHandler {
	return &RoomHandler{search: searchSvc, view: view, catalog: catalogReader, logger: logger}
}

// Find handles GET /api/v1/rooms/find?start=&end=&class_id=
func (h *RoomHandler) Find(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	ctx := r.Context()
	q := r.URL.Query()

	start, err := parseTime("start", q.Get("start"))
	if err != nil {
		writeError(ctx, w, h.logger, "find rooms", err)
		return
	}
	end, err := parseTime("end", q.Get("end"))
	if err != nil {
		writeError(ctx, w, h.logger, "find rooms", err)
		return
	}
	classID, err := parseOptionalUUID("class_id", q.Get("class_id"))
	if err != nil {
		writeError(ctx, w, h.logger, "find rooms", err)
		return
	}

	rooms, err := h.search.Find(ctx, start, end, classID)
	if err != nil {
		writeError(ctx, w, h.logger, "find rooms", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"rooms": toRoomViews(rooms)})
}

// Availability handles GET /api/v1/rooms/availability?room_id=&start=&end=
// A missing start or end leaves that side of the period open.
func (h *RoomHandler) Availability(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	ctx := r.Context()
	q := r.URL.Query()

	user := session.FromContext(ctx)
	if !user.IsStaff() {
		writeError(ctx, w, h.logger, "room availability", model.ErrUnauthorized)
		return
	}
	roomID, err := parseUUID("room_id", q.Get("room_id"))
	if err != nil {
		writeError(ctx, w, h.logger, "room availability", err)
		return
	}
	period, err := parsePeriod(q.Get("start"), q.Get("end"))
	if err != nil {
		writeError(ctx, w, h.logger, "room availability", err)
		return
	}

	cal, err := h.view.Get(ctx, user, roomID, period)
	if err != nil {
		writeError(ctx, w, h.logger, "room availability", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, cal)
}

// List handles GET /api/v1/rooms?search=&page=&per_page= (staff only).
func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	ctx := r.Context()
	if !session.FromContext(ctx).IsStaff() {
		writeError(ctx, w, h.logger, "list rooms", model.ErrUnauthorized)
		return
	}

	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))

	res, err := h.catalog.ListRooms(ctx, model.RoomQuery{Search: q.Get("search"), Page: page, PerPage: perPage})
	if err != nil {
		writeError(ctx, w, h.logger, "list rooms", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, roomPageView{
		Rooms:   toRoomViews(res.Rooms),
		Total:   res.Total,
		Page:    res.Page,
		PerPage: res.PerPage,
	})
}

// Details handles GET /api/v1/rooms/details?room_id= (any signed-in user).
func (h *RoomHandler) Details(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	ctx := r.Context()
	if session.FromContext(ctx) == nil {
		writeError(ctx, w, h.logger, "room details", model.ErrUnauthorized)
		return
	}
	roomID, err := parseUUID("room_id", r.URL.Query().Get("room_id"))
	if err != nil {
		writeError(ctx, w, h.logger, "room details", err)
		return
	}

	d, err := h.catalog.GetRoom(ctx, roomID)
	if err != nil {
		writeError(ctx, w, h.logger, "room details", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, roomDetailsView{roomView: toRoomView(d.Room), Class: toClassView(d.Class)})
}

// Classes handles GET /api/v1/rooms/classes.
func (h *RoomHandler) Classes(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	ctx := r.Context()
	classes, err := h.catalog.ListClasses(ctx)
	if err != nil {
		writeError(ctx, w, h.logger, "list classes", err)
		return
	}
	out := make([]classView, 0, len(classes))
	for _, c := range classes {
		out = append(out, toClassView(c))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"classes": out})
}
