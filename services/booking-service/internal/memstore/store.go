// Package memstore is an in-process block store and room catalog used for
// STORAGE_DRIVER=memory and in tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/interval"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/model"
)

// Lock order: Store.keyMu, then Store.mu, then roomEntry.mu, then Store.idxMu.
type Store struct {
	// keyMu is held across a whole InsertOnce so retries of one key serialize.
	keyMu sync.Mutex
	keys  map[keyRef]keyRecord

	mu      sync.RWMutex
	rooms   map[uuid.UUID]*roomEntry
	classes map[uuid.UUID]model.RoomClass
	users   map[uuid.UUID]model.User

	idxMu sync.RWMutex
	byID  map[uuid.UUID]uuid.UUID

	now func() time.Time
}

type keyRef struct {
	userID uuid.UUID
	key    string
}

type keyRecord struct {
	fingerprint string
	blockID     uuid.UUID
}

type roomEntry struct {
	room model.Room

	mu sync.RWMutex
	// sorted by ascending lower bound
	blocks []model.Block
}

func New() *Store {
	return &Store{
		rooms:   map[uuid.UUID]*roomEntry{},
		classes: map[uuid.UUID]model.RoomClass{},
		users:   map[uuid.UUID]model.User{},
		keys:    map[keyRef]keyRecord{},
		byID:    map[uuid.UUID]uuid.UUID{},
		now:     time.Now,
	}
}

func (s *Store) room(id uuid.UUID) (*roomEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[id]
	return r, ok
}

func (s *Store) Insert(ctx context.Context, roomID uuid.UUID, iv interval.Interval, att model.Attachment) (model.Block, error) {
	if err := iv.Validate(); err != nil {
		return model.Block{}, fmt.Errorf("%w: %v", model.ErrInvalidRange, err)
	}
	r, ok := s.room(roomID)
	if !ok {
		return model.Block{}, fmt.Errorf("room %s: %w", roomID, model.ErrNotFound)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return model.Block{}, err
	}
	for _, existing := range r.blocks {
		if interval.Overlaps(existing.Interval, iv) {
			return model.Block{}, model.ErrConflict
		}
	}

	now := s.now().UTC()
	b := model.Block{
		ID:        uuid.New(),
		RoomID:    roomID,
		Interval:  iv,
		CreatedAt: now,
		UpdatedAt: now,
	}
	att.Apply(&b)

	i := sort.Search(len(r.blocks), func(i int) bool {
		return interval.CompareLower(r.blocks[i].Interval.Lower, iv.Lower) > 0
	})
	r.blocks = append(r.blocks, model.Block{})
	copy(r.blocks[i+1:], r.blocks[i:])
	r.blocks[i] = b

	s.idxMu.Lock()
	s.byID[b.ID] = roomID
	s.idxMu.Unlock()

	return b.Clone(), nil
}

func (s *Store) InsertOnce(ctx context.Context, key model.IdempotencyKey, roomID uuid.UUID, iv interval.Interval, att model.Attachment) (model.Block, bool, error) {
	s.keyMu.Lock()
	defer s.keyMu.Unlock()

	ref := keyRef{userID: key.UserID, key: key.Key}
	if rec, ok := s.keys[ref]; ok {
		if rec.fingerprint != key.Fingerprint {
			return model.Block{}, false, model.ErrKeyReused
		}
		b, err := s.Get(ctx, rec.blockID)
		if err != nil {
			return model.Block{}, false, err
		}
		return b, true, nil
	}

	b, err := s.Insert(ctx, roomID, iv, att)
	if err != nil {
		return model.Block{}, false, err
	}
	s.keys[ref] = keyRecord{fingerprint: key.Fingerprint, blockID: b.ID}
	return b, false, nil
}

func (s *Store) locate(blockID uuid.UUID) (*roomEntry, error) {
	s.idxMu.RLock()
	roomID, ok := s.byID[blockID]
	s.idxMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("block %s: %w", blockID, model.ErrNotFound)
	}
	r, ok := s.room(roomID)
	if !ok {
		return nil, fmt.Errorf("block %s: %w", blockID, model.ErrNotFound)
	}
	return r, nil
}

func indexOf(blocks []model.Block, id uuid.UUID) int {
	for i := range blocks {
		if blocks[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) Remove(ctx context.Context, blockID uuid.UUID) error {
	r, err := s.locate(blockID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	i := indexOf(r.blocks, blockID)
	if i < 0 {
		return fmt.Errorf("block %s: %w", blockID, model.ErrNotFound)
	}
	r.blocks = append(r.blocks[:i], r.blocks[i+1:]...)

	s.idxMu.Lock()
	delete(s.byID, blockID)
	s.idxMu.Unlock()
	return nil
}

func (s *Store) FindOverlapping(ctx context.Context, roomID uuid.UUID, iv interval.Interval) ([]model.Block, error) {
	r, ok := s.room(roomID)
	if !ok {
		return nil, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []model.Block
	for _, b := range r.blocks {
		if interval.Overlaps(b.Interval, iv) {
			out = append(out, b.Clone())
		}
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, blockID uuid.UUID) (model.Block, error) {
	r, err := s.locate(blockID)
	if err != nil {
		return model.Block{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	i := indexOf(r.blocks, blockID)
	if i < 0 {
		return model.Block{}, fmt.Errorf("block %s: %w", blockID, model.ErrNotFound)
	}
	return r.blocks[i].Clone(), nil
}

func (s *Store) SetBookingStatus(ctx context.Context, blockID uuid.UUID, status string) (model.Block, error) {
	if !model.ValidBookingStatus(status) {
		return model.Block{}, fmt.Errorf("%w: unknown booking status %q", model.ErrInvalidInput, status)
	}
	r, err := s.locate(blockID)
	if err != nil {
		return model.Block{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return model.Block{}, err
	}
	i := indexOf(r.blocks, blockID)
	if i < 0 || r.blocks[i].Booking == nil {
		return model.Block{}, fmt.Errorf("booking %s: %w", blockID, model.ErrNotFound)
	}
	b := &r.blocks[i]
	if !model.CanTransitionBooking(b.Booking.Status, status) {
		return model.Block{}, fmt.Errorf("booking %s is %s: %w", blockID, b.Booking.Status, model.ErrConflict)
	}
	b.Booking.Status = status
	b.UpdatedAt = s.now().UTC()
	return b.Clone(), nil
}

// snapshot returns a copy of every room's blocks, keyed by room id.
func (s *Store) snapshot() map[uuid.UUID][]model.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[uuid.UUID][]model.Block, len(s.rooms))
	for id, r := range s.rooms {
		r.mu.RLock()
		cp := make([]model.Block, len(r.blocks))
		for i := range r.blocks {
			cp[i] = r.blocks[i].Clone()
		}
		r.mu.RUnlock()
		out[id] = cp
	}
	return out
}
