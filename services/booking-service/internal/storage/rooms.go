package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/hotelbook/libs/db"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/interval"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/model"
)

type RoomRepository struct {
	pool *db.Pool
}

func NewRoomRepository(pool *db.Pool) *RoomRepository {
	return &RoomRepository{pool: pool}
}

func (r *RoomRepository) RoomExists(ctx context.Context, roomID uuid.UUID) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM rooms WHERE id = $1)`, roomID).Scan(&ok)
	if err != nil {
		return false, translate("room exists", err)
	}
	return ok, nil
}

// AvailableRooms relies on the same && operator the exclusion constraint
// uses, so search and insert agree on what counts as an overlap.
func (r *RoomRepository) AvailableRooms(ctx context.Context, period interval.Interval, classID *uuid.UUID) ([]model.Room, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT r.id, r.label, r.class_id, r.created_at
		FROM rooms r
		WHERE ($2::uuid IS NULL OR r.class_id = $2)
			AND NOT EXISTS (
				SELECT 1 FROM blocks b
				WHERE b.room_id = r.id AND b.interval && $1::tstzrange
			)
		ORDER BY r.label
	`, toRange(period), classID)
	if err != nil {
		return nil, translate("available rooms", err)
	}
	defer rows.Close()

	out := []model.Room{}
	for rows.Next() {
		var room model.Room
		if err := rows.Scan(&room.ID, &room.Label, &room.ClassID, &room.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, room)
	}
	if rows.Err() != nil {
		return nil, translate("available rooms", rows.Err())
	}
	return out, nil
}

func (r *RoomRepository) ListRooms(ctx context.Context, q model.RoomQuery) (model.RoomPage, error) {
	q = q.Normalize()
	page := model.RoomPage{Rooms: []model.Room{}, Page: q.Page, PerPage: q.PerPage}

	pattern := "%" + escapeLike(strings.TrimSpace(q.Search)) + "%"
	rows, err := r.pool.Query(ctx, `
		SELECT id, label, class_id, created_at, COUNT(*) OVER () AS total
		FROM rooms
		WHERE label ILIKE $1
		ORDER BY label
		LIMIT $2 OFFSET $3
	`, pattern, q.PerPage, q.Offset())
	if err != nil {
		return model.RoomPage{}, translate("list rooms", err)
	}
	defer rows.Close()

	for rows.Next() {
		var room model.Room
		var total int
		if err := rows.Scan(&room.ID, &room.Label, &room.ClassID, &room.CreatedAt, &total); err != nil {
			return model.RoomPage{}, err
		}
		page.Total = total
		page.Rooms = append(page.Rooms, room)
	}
	if rows.Err() != nil {
		return model.RoomPage{}, translate("list rooms", rows.Err())
	}

	// An out-of-range page returns no rows, so the window count is missing.
	if len(page.Rooms) == 0 && q.Page > 1 {
		if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM rooms WHERE label ILIKE $1`, pattern).Scan(&page.Total); err != nil {
			return model.RoomPage{}, translate("count rooms", err)
		}
	}
	return page, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *RoomRepository) GetRoom(ctx context.Context, roomID uuid.UUID) (model.RoomDetails, error) {
	var d model.RoomDetails
	err := r.pool.QueryRow(ctx, `
		SELECT r.id, r.label, r.class_id, r.created_at,
			c.id, c.name, c.base_price::text, c.created_at
		FROM rooms r
		JOIN room_classes c ON c.id = r.class_id
		WHERE r.id = $1
	`, roomID).Scan(
		&d.Room.ID,
		&d.Room.Label,
		&d.Room.ClassID,
		&d.Room.CreatedAt,
		&d.Class.ID,
		&d.Class.Name,
		&d.Class.BasePrice,
		&d.Class.CreatedAt,
	)
	if err != nil {
		return model.RoomDetails{}, translate(fmt.Sprintf("room %s", roomID), err)
	}

	amenities, err := r.amenities(ctx, []uuid.UUID{d.Class.ID})
	if err != nil {
		return model.RoomDetails{}, err
	}
	d.Class.Amenities = amenities[d.Class.ID]
	if d.Class.Amenities == nil {
		d.Class.Amenities = []model.Amenity{}
	}
	return d, nil
}

func (r *RoomRepository) ListClasses(ctx context.Context) ([]model.RoomClass, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, base_price::text, created_at
		FROM room_classes
		ORDER BY name
	`)
	if err != nil {
		return nil, translate("list classes", err)
	}
	defer rows.Close()

	classes := []model.RoomClass{}
	var ids []uuid.UUID
	for rows.Next() {
		var c model.RoomClass
		if err := rows.Scan(&c.ID, &c.Name, &c.BasePrice, &c.CreatedAt); err != nil {
			return nil, err
		}
		classes = append(classes, c)
		ids = append(ids, c.ID)
	}
	if rows.Err() != nil {
		return nil, translate("list classes", rows.Err())
	}
	if len(ids) == 0 {
		return classes, nil
	}

	byClass, err := r.amenities(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range classes {
		classes[i].Amenities = byClass[classes[i].ID]
		if classes[i].Amenities == nil {
			classes[i].Amenities = []model.Amenity{}
		}
	}
	return classes, nil
}

func (r *RoomRepository) amenities(ctx context.Context, classIDs []uuid.UUID) (map[uuid.UUID][]model.Amenity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT ca.class_id, a.id, a.name, a.icon_key
		FROM room_classes_amenities ca
		JOIN amenities a ON a.id = ca.amenity_id
		WHERE ca.class_id = ANY($1)
		ORDER BY a.name
	`, classIDs)
	if err != nil {
		return nil, translate("list amenities", err)
	}
	defer rows.Close()

	out := map[uuid.UUID][]model.Amenity{}
	for rows.Next() {
		var classID uuid.UUID
		var a model.Amenity
		if err := rows.Scan(&classID, &a.ID, &a.Name, &a.IconKey); err != nil {
			return nil, err
		}
		out[classID] = append(out[classID], a)
	}
	if rows.Err() != nil {
		return nil, translate("list amenities", rows.Err())
	}
	return out, nil
}

// CreateClass and CreateRoom back cmd/seed and the integration tests. A
// caller supplied id is kept so seeded rows match the in-memory demo hotel.
func (r *RoomRepository) CreateClass(ctx context.Context, c model.RoomClass) (model.RoomClass, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.RoomClass{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO room_classes (id, name, base_price)
		VALUES ($1, $2, $3::numeric)
		RETURNING base_price::text, created_at
	`, c.ID, c.Name, c.BasePrice).Scan(&c.BasePrice, &c.CreatedAt)
	if err != nil {
		return model.RoomClass{}, translate("create class", err)
	}

	for i, a := range c.Amenities {
		err := tx.QueryRow(ctx, `
			INSERT INTO amenities (name, icon_key)
			VALUES ($1, $2)
			ON CONFLICT (name) DO UPDATE SET icon_key = EXCLUDED.icon_key
			RETURNING id
		`, a.Name, a.IconKey).Scan(&c.Amenities[i].ID)
		if err != nil {
			return model.RoomClass{}, translate("create amenity", err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO room_classes_amenities (class_id, amenity_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, c.ID, c.Amenities[i].ID); err != nil {
			return model.RoomClass{}, translate("link amenity", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return model.RoomClass{}, err
	}
	return c, nil
}

func (r *RoomRepository) CreateRoom(ctx context.Context, room model.Room) (model.Room, error) {
	if room.ID == uuid.Nil {
		room.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO rooms (id, label, class_id)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, room.ID, room.Label, room.ClassID).Scan(&room.CreatedAt)
	if err != nil {
		return model.Room{}, translate("create room", err)
	}
	return room, nil
}
