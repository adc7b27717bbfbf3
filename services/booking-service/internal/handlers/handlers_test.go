package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/hotelbook/libs/httpx"
	"github.com/md-rashed-zaman/hotelbook/libs/session"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/demo"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/memstore"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/search"
)

var (
	guestA = uuid.MustParse("11111111-1111-4111-8111-111111111111")
	guestB = uuid.MustParse("22222222-2222-4222-8222-222222222222")
	staff  = uuid.MustParse("33333333-3333-4333-8333-333333333333")
)

type caller struct {
	userID  uuid.UUID
	staffID *uuid.UUID
}

var (
	anonymous = caller{}
	asGuestA  = caller{userID: guestA}
	asGuestB  = caller{userID: guestB}
	asStaff   = caller{userID: staff, staffID: &staff}
)

type testServer struct {
	t       *testing.T
	handler http.Handler
	store   *memstore.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memstore.New()
	if err := store.SeedDemo(); err != nil {
		t.Fatalf("seed: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	mux := http.NewServeMux()
	Routes(mux,
		NewRoomHandler(search.NewService(store), availability.NewView(store, store), store, logger),
		NewBlockHandler(store, logger),
		NewUserHandler(store, logger),
	)
	return &testServer{
		t:       t,
		handler: httpx.Chain(mux, session.Middleware, httpx.WithBodyLimit(1<<20)),
		store:   store,
	}
}

func (s *testServer) do(c caller, method, target string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	return s.doWithHeader(c, method, target, body, nil)
}

func (s *testServer) doWithHeader(c caller, method, target string, body any, header http.Header) *httptest.ResponseRecorder {
	s.t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			s.t.Fatalf("marshal body: %v", err)
		}
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, rdr)
	if c.userID != uuid.Nil {
		req.Header.Set(session.HeaderUserID, c.userID.String())
	}
	if c.staffID != nil {
		req.Header.Set(session.HeaderStaffID, c.staffID.String())
	}
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) roomID(label string) string {
	s.t.Helper()
	rec := s.do(asStaff, http.MethodGet, "/api/v1/rooms?search="+label, nil)
	if rec.Code != http.StatusOK {
		s.t.Fatalf("list rooms: %d %s", rec.Code, rec.Body.String())
	}
	var page roomPageView
	decode(s.t, rec, &page)
	for _, r := range page.Rooms {
		if r.Label == label {
			return r.ID.String()
		}
	}
	s.t.Fatalf("room %s not found", label)
	return ""
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body httpx.ErrorBody
	decode(t, rec, &body)
	return body.Error
}

func TestBookThenConflict(t *testing.T) {
	s := newTestServer(t)
	room := s.roomID("101")

	rec := s.do(asGuestA, http.MethodPost, "/api/v1/bookings", map[string]string{
		"room_id": room,
		"start":   "2025-01-01T14:00:00Z",
		"end":     "2025-01-05T10:00:00Z",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created blockView
	decode(t, rec, &created)
	if created.Booking == nil || created.Booking.GuestID != guestA || created.Booking.Status != "pending" {
		t.Fatalf("unexpected booking %+v", created.Booking)
	}

	rec = s.do(asGuestB, http.MethodPost, "/api/v1/bookings", map[string]string{
		"room_id": room,
		"start":   "2025-01-04T14:00:00Z",
		"end":     "2025-01-06T10:00:00Z",
	})
	if rec.Code != http.StatusConflict || errorOf(t, rec) != "Conflict" {
		t.Fatalf("expected 409 Conflict, got %d: %s", rec.Code, rec.Body.String())
	}

	// back-to-back stays share the checkout instant
	rec = s.do(asGuestB, http.MethodPost, "/api/v1/bookings", map[string]string{
		"room_id": room,
		"start":   "2025-01-05T10:00:00Z",
		"end":     "2025-01-07T10:00:00Z",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected adjacent booking to succeed, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestBookValidation(t *testing.T) {
	s := newTestServer(t)
	room := s.roomID("101")

	tests := []struct {
		name   string
		who    caller
		body   any
		status int
		msg    string
	}{
		{"anonymous", anonymous, map[string]string{"room_id": room, "start": "2025-01-01T00:00:00Z", "end": "2025-01-02T00:00:00Z"}, http.StatusUnauthorized, "Unauthorized"},
		{"inverted", asGuestA, map[string]string{"room_id": room, "start": "2025-01-03T00:00:00Z", "end": "2025-01-02T00:00:00Z"}, http.StatusBadRequest, "InvalidDateRange"},
		{"empty", asGuestA, map[string]string{"room_id": room, "start": "2025-01-02T00:00:00Z", "end": "2025-01-02T00:00:00Z"}, http.StatusBadRequest, "InvalidDateRange"},
		{"bad time", asGuestA, map[string]string{"room_id": room, "start": "tomorrow", "end": "2025-01-02T00:00:00Z"}, http.StatusBadRequest, ""},
		{"unknown field", asGuestA, map[string]string{"room_id": room, "nights": "3"}, http.StatusBadRequest, ""},
		{"unknown room", asGuestA, map[string]string{"room_id": uuid.NewString(), "start": "2025-01-01T00:00:00Z", "end": "2025-01-02T00:00:00Z"}, http.StatusNotFound, "NotFound"},
		{"for someone else", asGuestA, map[string]string{"room_id": room, "start": "2025-01-01T00:00:00Z", "end": "2025-01-02T00:00:00Z", "guest_id": guestB.String()}, http.StatusUnauthorized, "Unauthorized"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(tt.who, http.MethodPost, "/api/v1/bookings", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			if tt.msg != "" && errorOf(t, rec) != tt.msg {
				t.Fatalf("expected error %q, got %s", tt.msg, rec.Body.String())
			}
		})
	}

	rec := s.do(asGuestA, http.MethodGet, "/api/v1/bookings", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestStaffBooksForGuest(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(asStaff, http.MethodPost, "/api/v1/bookings", map[string]string{
		"room_id":  s.roomID("201"),
		"start":    "2025-02-01T14:00:00Z",
		"end":      "2025-02-03T10:00:00Z",
		"guest_id": guestB.String(),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created blockView
	decode(t, rec, &created)
	if created.Booking.GuestID != guestB {
		t.Fatalf("expected booking for guest B, got %s", created.Booking.GuestID)
	}
}

func TestFindRooms(t *testing.T) {
	s := newTestServer(t)
	room := s.roomID("301")

	rec := s.do(asStaff, http.MethodPost, "/api/v1/maintenance", map[string]any{
		"room_id":       room,
		"start":         "2025-03-01T00:00:00Z",
		"end":           "2025-03-02T00:00:00Z",
		"end_inclusive": true,
		"kind":          "repair",
		"severity":      "high",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("maintenance: %d %s", rec.Code, rec.Body.String())
	}

	find := func(start, end string) []roomView {
		t.Helper()
		rec := s.do(anonymous, http.MethodGet, "/api/v1/rooms/find?start="+start+"&end="+end, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("find: %d %s", rec.Code, rec.Body.String())
		}
		var body struct {
			Rooms []roomView `json:"rooms"`
		}
		decode(t, rec, &body)
		return body.Rooms
	}
	has := func(rooms []roomView, label string) bool {
		for _, r := range rooms {
			if r.Label == label {
				return true
			}
		}
		return false
	}

	if rooms := find("2025-03-01T12:00:00Z", "2025-03-03T00:00:00Z"); has(rooms, "301") || len(rooms) != 9 {
		t.Fatalf("expected 9 rooms without 301, got %d", len(rooms))
	}
	// the maintenance window closes inclusively at 03-02 midnight
	if rooms := find("2025-03-02T00:00:00Z", "2025-03-03T00:00:00Z"); has(rooms, "301") {
		t.Fatal("room 301 should still be blocked at the closed upper bound")
	}
	if rooms := find("2025-03-02T00:00:01Z", "2025-03-03T00:00:00Z"); !has(rooms, "301") {
		t.Fatal("room 301 should be free after the window")
	}

	rec = s.do(anonymous, http.MethodGet, "/api/v1/rooms/find?start=2025-03-03T00:00:00Z&end=2025-03-01T00:00:00Z", nil)
	if rec.Code != http.StatusBadRequest || errorOf(t, rec) != "InvalidDateRange" {
		t.Fatalf("expected InvalidDateRange, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAvailabilityIsStaffOnly(t *testing.T) {
	s := newTestServer(t)
	room := s.roomID("102")

	rec := s.do(asGuestA, http.MethodPost, "/api/v1/bookings", map[string]string{
		"room_id": room,
		"start":   "2025-04-02T00:00:00Z",
		"end":     "2025-04-04T00:00:00Z",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("book: %d %s", rec.Code, rec.Body.String())
	}

	target := "/api/v1/rooms/availability?room_id=" + room + "&start=2025-04-01T00:00:00Z&end=2025-04-03T00:00:00Z"
	if rec := s.do(anonymous, http.MethodGet, target, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if rec := s.do(asGuestA, http.MethodGet, target, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	rec = s.do(asStaff, http.MethodGet, target, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var cal availability.Calendar
	decode(t, rec, &cal)
	if len(cal.Blocks) != 1 || cal.Blocks[0].Kind != availability.KindBooking {
		t.Fatalf("unexpected blocks %+v", cal.Blocks)
	}
	if cal.Period.Upper.Time.Format("2006-01-02") != "2025-04-04" {
		t.Fatalf("expected period widened to the block end, got %s", cal.Period)
	}
	if len(cal.Free) != 1 {
		t.Fatalf("expected a single free window, got %v", cal.Free)
	}

	rec = s.do(asStaff, http.MethodGet, "/api/v1/rooms/availability?room_id="+uuid.NewString(), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown room, got %d", rec.Code)
	}
}

func TestCancelKeepsIntervalBlocked(t *testing.T) {
	s := newTestServer(t)
	room := s.roomID("103")
	stay := map[string]string{"room_id": room, "start": "2025-05-01T14:00:00Z", "end": "2025-05-03T10:00:00Z"}

	rec := s.do(asGuestA, http.MethodPost, "/api/v1/bookings", stay)
	if rec.Code != http.StatusCreated {
		t.Fatalf("book: %d %s", rec.Code, rec.Body.String())
	}
	var created blockView
	decode(t, rec, &created)
	id := map[string]string{"block_id": created.ID.String()}

	if rec := s.do(asGuestB, http.MethodPost, "/api/v1/bookings/cancel", id); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for another guest, got %d", rec.Code)
	}
	rec = s.do(asGuestA, http.MethodPost, "/api/v1/bookings/cancel", id)
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel: %d %s", rec.Code, rec.Body.String())
	}
	var cancelled blockView
	decode(t, rec, &cancelled)
	if cancelled.Booking.Status != "cancelled" {
		t.Fatalf("expected cancelled, got %s", cancelled.Booking.Status)
	}
	if rec := s.do(asGuestA, http.MethodPost, "/api/v1/bookings/cancel", id); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on second cancel, got %d", rec.Code)
	}

	if rec := s.do(asGuestB, http.MethodPost, "/api/v1/bookings", stay); rec.Code != http.StatusConflict {
		t.Fatalf("cancelled booking should still block, got %d", rec.Code)
	}

	if rec := s.do(asGuestA, http.MethodPost, "/api/v1/blocks/remove", id); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for guest remove, got %d", rec.Code)
	}
	if rec := s.do(asStaff, http.MethodPost, "/api/v1/blocks/remove", id); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec := s.do(asStaff, http.MethodPost, "/api/v1/blocks/remove", id); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after removal, got %d", rec.Code)
	}
	if rec := s.do(asGuestB, http.MethodPost, "/api/v1/bookings", stay); rec.Code != http.StatusCreated {
		t.Fatalf("expected the freed interval to be bookable, got %d", rec.Code)
	}
}

func TestMaintenanceRequiresStaff(t *testing.T) {
	s := newTestServer(t)
	body := map[string]any{
		"room_id": s.roomID("104"),
		"start":   "2025-06-01T00:00:00Z",
		"end":     "2025-06-02T00:00:00Z",
		"kind":    "cleaning",
	}
	if rec := s.do(asGuestA, http.MethodPost, "/api/v1/maintenance", body); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	body["kind"] = "painting"
	if rec := s.do(asStaff, http.MethodPost, "/api/v1/maintenance", body); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown kind, got %d", rec.Code)
	}

	body["kind"] = "Cleaning"
	rec := s.do(asStaff, http.MethodPost, "/api/v1/maintenance", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created blockView
	decode(t, rec, &created)
	if created.Maintenance == nil || created.Maintenance.Severity != "low" || created.Maintenance.AssignerID == nil || *created.Maintenance.AssignerID != staff {
		t.Fatalf("unexpected maintenance %+v", created.Maintenance)
	}
}

func TestCatalogEndpoints(t *testing.T) {
	s := newTestServer(t)

	if rec := s.do(asGuestA, http.MethodGet, "/api/v1/rooms", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for guest listing, got %d", rec.Code)
	}
	rec := s.do(asStaff, http.MethodGet, "/api/v1/rooms?page=2&per_page=4", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: %d %s", rec.Code, rec.Body.String())
	}
	var page roomPageView
	decode(t, rec, &page)
	if page.Total != 10 || len(page.Rooms) != 4 || page.Rooms[0].Label != "201" {
		t.Fatalf("unexpected page %+v", page)
	}

	room := s.roomID("302")
	if rec := s.do(anonymous, http.MethodGet, "/api/v1/rooms/details?room_id="+room, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	rec = s.do(asGuestA, http.MethodGet, "/api/v1/rooms/details?room_id="+room, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("details: %d %s", rec.Code, rec.Body.String())
	}
	var details roomDetailsView
	decode(t, rec, &details)
	if details.Label != "302" || details.Class.Name != "Suite" || len(details.Class.Amenities) != 4 {
		t.Fatalf("unexpected details %+v", details)
	}

	rec = s.do(anonymous, http.MethodGet, "/api/v1/rooms/classes", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("classes: %d", rec.Code)
	}
	var classes struct {
		Classes []classView `json:"classes"`
	}
	decode(t, rec, &classes)
	if len(classes.Classes) != 3 || classes.Classes[0].Name != "Deluxe" {
		t.Fatalf("unexpected classes %+v", classes.Classes)
	}
}

func TestBookIdempotencyKey(t *testing.T) {
	s := newTestServer(t)
	room := s.roomID("101")
	stay := map[string]string{
		"room_id": room,
		"start":   "2025-03-01T14:00:00Z",
		"end":     "2025-03-03T10:00:00Z",
	}
	key := http.Header{"Idempotency-Key": {"checkout-42"}}

	first := s.doWithHeader(asGuestA, http.MethodPost, "/api/v1/bookings", stay, key)
	if first.Code != http.StatusCreated || first.Header().Get("Idempotent-Replayed") != "" {
		t.Fatalf("expected fresh 201, got %d: %s", first.Code, first.Body.String())
	}
	var created blockView
	decode(t, first, &created)

	retry := s.doWithHeader(asGuestA, http.MethodPost, "/api/v1/bookings", stay, key)
	if retry.Code != http.StatusCreated || retry.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatalf("expected replayed 201, got %d: %s", retry.Code, retry.Body.String())
	}
	var replayed blockView
	decode(t, retry, &replayed)
	if replayed.ID != created.ID {
		t.Fatalf("replay returned block %s, want %s", replayed.ID, created.ID)
	}

	// without the key the same request is an ordinary overlap
	if rec := s.do(asGuestA, http.MethodPost, "/api/v1/bookings", stay); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 without key, got %d", rec.Code)
	}

	moved := map[string]string{
		"room_id": room,
		"start":   "2025-04-01T14:00:00Z",
		"end":     "2025-04-03T10:00:00Z",
	}
	rec := s.doWithHeader(asGuestA, http.MethodPost, "/api/v1/bookings", moved, key)
	if rec.Code != http.StatusUnprocessableEntity || errorOf(t, rec) != "IdempotencyKeyReused" {
		t.Fatalf("expected 422 IdempotencyKeyReused, got %d: %s", rec.Code, rec.Body.String())
	}

	// keys are scoped per caller
	rec = s.doWithHeader(asGuestB, http.MethodPost, "/api/v1/bookings", moved, key)
	if rec.Code != http.StatusCreated || rec.Header().Get("Idempotent-Replayed") != "" {
		t.Fatalf("expected fresh 201 for another guest, got %d: %s", rec.Code, rec.Body.String())
	}

	long := http.Header{"Idempotency-Key": {strings.Repeat("k", 256)}}
	if rec := s.doWithHeader(asGuestA, http.MethodPost, "/api/v1/bookings", moved, long); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized key, got %d", rec.Code)
	}
}

func TestGetUser(t *testing.T) {
	s := newTestServer(t)
	guestID := demo.ID("user/guest")
	self := caller{userID: guestID}
	target := "/api/v1/users/" + guestID.String()

	tests := []struct {
		name   string
		who    caller
		target string
		status int
		msg    string
	}{
		{"self", self, target, http.StatusOK, ""},
		{"staff", asStaff, target, http.StatusOK, ""},
		{"anonymous", anonymous, target, http.StatusUnauthorized, "Unauthorized"},
		{"someone else", asGuestA, target, http.StatusUnauthorized, "Unauthorized"},
		{"unknown", asStaff, "/api/v1/users/" + uuid.NewString(), http.StatusNotFound, "NotFound"},
		{"bad id", asStaff, "/api/v1/users/nope", http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(tt.who, http.MethodGet, tt.target, nil)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			if tt.msg != "" && errorOf(t, rec) != tt.msg {
				t.Fatalf("expected error %q, got %s", tt.msg, rec.Body.String())
			}
			if tt.status != http.StatusOK {
				return
			}
			var body struct {
				User struct {
					ID    uuid.UUID `json:"id"`
					Email string    `json:"email"`
				} `json:"user"`
			}
			decode(t, rec, &body)
			if body.User.ID != guestID || body.User.Email != "guest@hotel.test" {
				t.Fatalf("unexpected user %+v", body.User)
			}
		})
	}

	if rec := s.do(self, http.MethodPost, target, nil); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
