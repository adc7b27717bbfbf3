package memstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/demo"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/interval"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/model"
)

func jan(day, hour int) time.Time {
	return time.Date(2025, time.January, day, hour, 0, 0, 0, time.UTC)
}

func halfOpen(t *testing.T, start, end time.Time) interval.Interval {
	t.Helper()
	iv, err := interval.HalfOpen(start, end)
	if err != nil {
		t.Fatalf("interval: %v", err)
	}
	return iv
}

func guest(t *testing.T) model.Attachment {
	t.Helper()
	att, err := model.BookingAttachment(model.Booking{GuestID: uuid.New()})
	if err != nil {
		t.Fatalf("attachment: %v", err)
	}
	return att
}

func newStoreWithRoom(t *testing.T) (*Store, uuid.UUID) {
	t.Helper()
	s := New()
	c := s.AddClass(model.RoomClass{Name: "Standard", BasePrice: "100.00"})
	r, err := s.AddRoom(model.Room{Label: "101", ClassID: c.ID})
	if err != nil {
		t.Fatalf("add room: %v", err)
	}
	return s, r.ID
}

func TestInsertRejectsOverlap(t *testing.T) {
	s, roomID := newStoreWithRoom(t)
	ctx := context.Background()

	if _, err := s.Insert(ctx, roomID, halfOpen(t, jan(1, 14), jan(5, 10)), guest(t)); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if _, err := s.Insert(ctx, roomID, halfOpen(t, jan(4, 14), jan(6, 10)), guest(t)); !errors.Is(err, model.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if _, err := s.Insert(ctx, roomID, halfOpen(t, jan(5, 10), jan(6, 10)), guest(t)); err != nil {
		t.Fatalf("back-to-back stay should fit: %v", err)
	}
	if _, err := s.Insert(ctx, uuid.New(), halfOpen(t, jan(1, 0), jan(2, 0)), guest(t)); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown room, got %v", err)
	}
}

func TestInsertRespectsCancelledContext(t *testing.T) {
	s, roomID := newStoreWithRoom(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Insert(ctx, roomID, halfOpen(t, jan(1, 0), jan(2, 0)), guest(t)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	got, _ := s.FindOverlapping(context.Background(), roomID, halfOpen(t, jan(1, 0), jan(2, 0)))
	if len(got) != 0 {
		t.Fatalf("cancelled insert left %d blocks", len(got))
	}
}

func TestConcurrentOverlappingInsertsExactlyOneWins(t *testing.T) {
	s, roomID := newStoreWithRoom(t)
	const n = 32

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
		start     = make(chan struct{})
	)
	ivs := make([]interval.Interval, n)
	atts := make([]model.Attachment, n)
	for i := range ivs {
		// every interval contains Jan 10 12:00
		ivs[i] = halfOpen(t, jan(10, 0).Add(-time.Duration(i)*time.Hour), jan(11, 0).Add(time.Duration(i)*time.Hour))
		atts[i] = guest(t)
	}
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, err := s.Insert(context.Background(), roomID, ivs[i], atts[i])
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, model.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	if successes != 1 || conflicts != n-1 {
		t.Fatalf("expected 1 success and %d conflicts, got %d and %d", n-1, successes, conflicts)
	}
}

func TestConcurrentDisjointInsertsKeepInvariant(t *testing.T) {
	s, roomID := newStoreWithRoom(t)
	nights := make([]interval.Interval, 24)
	for i := range nights {
		night := jan(1, 0).Add(time.Duration(i) * 24 * time.Hour)
		nights[i] = halfOpen(t, night, night.Add(24*time.Hour))
	}
	att := guest(t)

	var wg sync.WaitGroup
	for i := 0; i < 48; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// 24 distinct nights, each attempted twice
			_, _ = s.Insert(context.Background(), roomID, nights[i%24], att)
		}(i)
	}
	wg.Wait()

	all, err := s.FindOverlapping(context.Background(), roomID, interval.Interval{Lower: interval.Unbounded(), Upper: interval.Unbounded()})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(all) != 24 {
		t.Fatalf("expected 24 blocks, got %d", len(all))
	}
	for i := range all {
		for j := i + 1; j < len(all); j++ {
			if interval.Overlaps(all[i].Interval, all[j].Interval) {
				t.Fatalf("blocks %s and %s overlap", all[i].Interval, all[j].Interval)
			}
		}
		if i > 0 && interval.CompareLower(all[i-1].Interval.Lower, all[i].Interval.Lower) >= 0 {
			t.Fatalf("blocks not sorted at %d", i)
		}
	}
}

func TestFindOverlappingOrderAndClones(t *testing.T) {
	s, roomID := newStoreWithRoom(t)
	ctx := context.Background()
	for _, d := range []int{7, 3, 5} {
		if _, err := s.Insert(ctx, roomID, halfOpen(t, jan(d, 0), jan(d+1, 0)), guest(t)); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	got, err := s.FindOverlapping(ctx, roomID, halfOpen(t, jan(4, 0), jan(8, 0)))
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(got) != 2 || !got[0].Interval.Lower.Time.Equal(jan(5, 0)) || !got[1].Interval.Lower.Time.Equal(jan(7, 0)) {
		t.Fatalf("unexpected blocks %+v", got)
	}

	got[0].Booking.Status = model.BookingCompleted
	again, _ := s.Get(ctx, got[0].ID)
	if again.Booking.Status != model.BookingPending {
		t.Fatal("caller mutation leaked into the store")
	}
}

func TestRemoveFreesInterval(t *testing.T) {
	s, roomID := newStoreWithRoom(t)
	ctx := context.Background()
	iv := halfOpen(t, jan(1, 0), jan(3, 0))

	b, err := s.Insert(ctx, roomID, iv, guest(t))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.Remove(ctx, b.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := s.Remove(ctx, b.ID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second remove, got %v", err)
	}
	if _, err := s.Get(ctx, b.ID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from Get, got %v", err)
	}
	if _, err := s.Insert(ctx, roomID, iv, guest(t)); err != nil {
		t.Fatalf("interval should be free again: %v", err)
	}
}

func TestSetBookingStatus(t *testing.T) {
	s, roomID := newStoreWithRoom(t)
	ctx := context.Background()
	iv := halfOpen(t, jan(1, 0), jan(3, 0))

	b, err := s.Insert(ctx, roomID, iv, guest(t))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	updated, err := s.SetBookingStatus(ctx, b.ID, model.BookingCancelled)
	if err != nil || updated.Booking.Status != model.BookingCancelled {
		t.Fatalf("cancel: %+v (%v)", updated, err)
	}
	if _, err := s.SetBookingStatus(ctx, b.ID, model.BookingConfirmed); !errors.Is(err, model.ErrConflict) {
		t.Fatalf("expected ErrConflict leaving a terminal status, got %v", err)
	}
	// cancelling does not free the interval
	if _, err := s.Insert(ctx, roomID, iv, guest(t)); !errors.Is(err, model.ErrConflict) {
		t.Fatalf("expected interval to stay blocked, got %v", err)
	}

	att, _ := model.MaintenanceAttachment(model.Maintenance{Kind: model.MaintenanceCleaning})
	m, err := s.Insert(ctx, roomID, halfOpen(t, jan(5, 0), jan(6, 0)), att)
	if err != nil {
		t.Fatalf("insert maintenance: %v", err)
	}
	if _, err := s.SetBookingStatus(ctx, m.ID, model.BookingCancelled); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for maintenance block, got %v", err)
	}
}

func TestCatalog(t *testing.T) {
	s := New()
	if err := s.SeedDemo(); err != nil {
		t.Fatalf("seed: %v", err)
	}
	ctx := context.Background()

	classes, err := s.ListClasses(ctx)
	if err != nil || len(classes) != 3 || classes[0].Name != "Deluxe" {
		t.Fatalf("unexpected classes %+v (%v)", classes, err)
	}

	page, err := s.ListRooms(ctx, model.RoomQuery{Search: "2", PerPage: 3})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	// 102, 201, 202, 203, 204, 302
	if page.Total != 6 || len(page.Rooms) != 3 || page.Rooms[0].Label != "102" {
		t.Fatalf("unexpected page %+v", page)
	}
	page, _ = s.ListRooms(ctx, model.RoomQuery{Search: "2", Page: 2, PerPage: 3})
	if len(page.Rooms) != 3 || page.Rooms[1].Label != "204" {
		t.Fatalf("unexpected second page %+v", page)
	}

	details, err := s.GetRoom(ctx, demo.ID("room/301"))
	if err != nil || details.Class.Name != "Suite" || len(details.Class.Amenities) != 4 {
		t.Fatalf("unexpected details %+v (%v)", details, err)
	}
	if _, err := s.GetRoom(ctx, uuid.New()); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.AddRoom(model.Room{Label: "999", ClassID: uuid.New()}); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown class, got %v", err)
	}
}

func TestInsertRejectsLiteralInvalidIntervals(t *testing.T) {
	s, roomID := newStoreWithRoom(t)
	ctx := context.Background()

	bad := []interval.Interval{
		{Lower: interval.Included(jan(5, 0)), Upper: interval.Excluded(jan(1, 0))},
		{Lower: interval.Included(jan(7, 0)), Upper: interval.Excluded(jan(7, 0))},
	}
	for _, iv := range bad {
		if _, err := s.Insert(ctx, roomID, iv, guest(t)); !errors.Is(err, model.ErrInvalidRange) {
			t.Fatalf("Insert(%s): expected ErrInvalidRange, got %v", iv, err)
		}
	}
	all, err := s.FindOverlapping(ctx, roomID, interval.Interval{Lower: interval.Unbounded(), Upper: interval.Unbounded()})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("invalid intervals were stored: %d blocks", len(all))
	}
}

func TestInsertOnceReplaysAndRejectsReuse(t *testing.T) {
	s, roomID := newStoreWithRoom(t)
	ctx := context.Background()
	user := uuid.New()
	stay := halfOpen(t, jan(3, 14), jan(5, 10))
	key := model.IdempotencyKey{UserID: user, Key: "retry-1", Fingerprint: "a"}

	first, replayed, err := s.InsertOnce(ctx, key, roomID, stay, guest(t))
	if err != nil || replayed {
		t.Fatalf("first insert: replayed=%v err=%v", replayed, err)
	}
	again, replayed, err := s.InsertOnce(ctx, key, roomID, stay, guest(t))
	if err != nil || !replayed || again.ID != first.ID {
		t.Fatalf("retry: id=%s replayed=%v err=%v", again.ID, replayed, err)
	}

	key.Fingerprint = "b"
	if _, _, err := s.InsertOnce(ctx, key, roomID, halfOpen(t, jan(8, 0), jan(9, 0)), guest(t)); !errors.Is(err, model.ErrKeyReused) {
		t.Fatalf("expected ErrKeyReused, got %v", err)
	}

	// the same key string belongs to nobody else
	other := model.IdempotencyKey{UserID: uuid.New(), Key: "retry-1", Fingerprint: "a"}
	if _, _, err := s.InsertOnce(ctx, other, roomID, stay, guest(t)); !errors.Is(err, model.ErrConflict) {
		t.Fatalf("expected conflict for another user, got %v", err)
	}

	// a failed insert leaves the key unused
	late := model.IdempotencyKey{UserID: user, Key: "retry-2", Fingerprint: "c"}
	if _, _, err := s.InsertOnce(ctx, late, roomID, stay, guest(t)); !errors.Is(err, model.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if _, replayed, err := s.InsertOnce(ctx, late, roomID, halfOpen(t, jan(20, 0), jan(21, 0)), guest(t)); err != nil || replayed {
		t.Fatalf("expected fresh insert after failure, replayed=%v err=%v", replayed, err)
	}
}

func TestConcurrentInsertOnceSameKeyCreatesOneBlock(t *testing.T) {
	s, roomID := newStoreWithRoom(t)
	key := model.IdempotencyKey{UserID: uuid.New(), Key: "k", Fingerprint: "f"}
	stay := halfOpen(t, jan(12, 0), jan(13, 0))
	att := guest(t)

	const n = 16
	ids := make([]uuid.UUID, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, _, err := s.InsertOnce(context.Background(), key, roomID, stay, att)
			ids[i], errs[i] = b.ID, err
		}(i)
	}
	wg.Wait()

	for i := range ids {
		if errs[i] != nil {
			t.Fatalf("call %d: %v", i, errs[i])
		}
		if ids[i] != ids[0] {
			t.Fatalf("call %d returned block %s, want %s", i, ids[i], ids[0])
		}
	}
}

func TestUsers(t *testing.T) {
	s := New()
	if err := s.SeedDemo(); err != nil {
		t.Fatalf("seed: %v", err)
	}
	ctx := context.Background()

	u, err := s.GetUser(ctx, demo.ID("user/guest"))
	if err != nil || u.Email != "guest@hotel.test" {
		t.Fatalf("get seeded user: %+v %v", u, err)
	}
	if _, err := s.GetUser(ctx, uuid.New()); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.AddUser(model.User{Email: "GUEST@hotel.test"}); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("expected duplicate email to be rejected, got %v", err)
	}
}
