package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/interval"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/search"
)

func (s *Store) AddClass(c model.RoomClass) model.RoomClass {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now().UTC()
	}
	s.mu.Lock()
	s.classes[c.ID] = c
	s.mu.Unlock()
	return c
}

func (s *Store) AddRoom(r model.Room) (model.Room, error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.classes[r.ClassID]; !ok {
		return model.Room{}, fmt.Errorf("room class %s: %w", r.ClassID, model.ErrNotFound)
	}
	if _, ok := s.rooms[r.ID]; ok {
		return model.Room{}, fmt.Errorf("%w: room %s already exists", model.ErrInvalidInput, r.ID)
	}
	s.rooms[r.ID] = &roomEntry{room: r}
	return r, nil
}

func (s *Store) RoomExists(_ context.Context, roomID uuid.UUID) (bool, error) {
	_, ok := s.room(roomID)
	return ok, nil
}

func (s *Store) sortedRooms() []model.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, r.room)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Label != out[j].Label {
			return out[i].Label < out[j].Label
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func (s *Store) ListRooms(_ context.Context, q model.RoomQuery) (model.RoomPage, error) {
	q = q.Normalize()
	needle := strings.ToLower(strings.TrimSpace(q.Search))

	var matched []model.Room
	for _, r := range s.sortedRooms() {
		if needle == "" || strings.Contains(strings.ToLower(r.Label), needle) {
			matched = append(matched, r)
		}
	}

	page := model.RoomPage{Rooms: []model.Room{}, Total: len(matched), Page: q.Page, PerPage: q.PerPage}
	if off := q.Offset(); off < len(matched) {
		end := off + q.PerPage
		if end > len(matched) {
			end = len(matched)
		}
		page.Rooms = matched[off:end]
	}
	return page, nil
}

func (s *Store) GetRoom(_ context.Context, roomID uuid.UUID) (model.RoomDetails, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return model.RoomDetails{}, fmt.Errorf("room %s: %w", roomID, model.ErrNotFound)
	}
	return model.RoomDetails{Room: r.room, Class: cloneClass(s.classes[r.room.ClassID])}, nil
}

func (s *Store) ListClasses(_ context.Context) ([]model.RoomClass, error) {
	s.mu.RLock()
	out := make([]model.RoomClass, 0, len(s.classes))
	for _, c := range s.classes {
		out = append(out, cloneClass(c))
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// AvailableRooms returns the rooms, optionally of one class, with no block
// overlapping period.
func (s *Store) AvailableRooms(ctx context.Context, period interval.Interval, classID *uuid.UUID) ([]model.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rooms []model.Room
	for _, r := range s.sortedRooms() {
		if classID == nil || r.ClassID == *classID {
			rooms = append(rooms, r)
		}
	}
	return search.FilterAvailable(rooms, s.snapshot(), period), nil
}

func cloneClass(c model.RoomClass) model.RoomClass {
	c.Amenities = append([]model.Amenity(nil), c.Amenities...)
	return c
}
