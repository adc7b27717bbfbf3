package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/md-rashed-zaman/hotelbook/libs/db"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/interval"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/outbox"
)

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// BlockRepository relies on the blocks_no_overlap exclusion constraint for
// the atomic check-and-insert: concurrent overlapping inserts serialize on
// the GiST index and all but the first committer fail with 23P01.
type BlockRepository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewBlockRepository(pool *db.Pool, outboxRepo *outbox.Repository) *BlockRepository {
	return &BlockRepository{pool: pool, outbox: outboxRepo}
}

const blockColumns = `
	b.id, b.room_id, b.interval, b.created_at, b.updated_at,
	bk.guest_id, bk.status, bk.payment_status,
	m.kind, m.severity, m.assigner_id`

const blockFrom = `
	FROM blocks b
	LEFT JOIN bookings bk ON bk.block_id = b.id
	LEFT JOIN maintenance m ON m.block_id = b.id`

func scanBlock(row pgx.Row) (model.Block, error) {
	var (
		b             model.Block
		rng           pgtype.Range[pgtype.Timestamptz]
		guestID       pgtype.UUID
		status        *string
		paymentStatus *string
		kind          *string
		severity      *string
		assignerID    pgtype.UUID
	)
	if err := row.Scan(
		&b.ID,
		&b.RoomID,
		&rng,
		&b.CreatedAt,
		&b.UpdatedAt,
		&guestID,
		&status,
		&paymentStatus,
		&kind,
		&severity,
		&assignerID,
	); err != nil {
		return model.Block{}, err
	}

	iv, err := fromRange(rng)
	if err != nil {
		return model.Block{}, fmt.Errorf("block %s: %w", b.ID, err)
	}
	b.Interval = iv

	if guestID.Valid {
		b.Booking = &model.Booking{
			GuestID:       uuid.UUID(guestID.Bytes),
			Status:        deref(status),
			PaymentStatus: deref(paymentStatus),
		}
	} else if kind != nil {
		b.Maintenance = &model.Maintenance{Kind: *kind, Severity: deref(severity)}
		if assignerID.Valid {
			id := uuid.UUID(assignerID.Bytes)
			b.Maintenance.AssignerID = &id
		}
	}
	return b, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (r *BlockRepository) Insert(ctx context.Context, roomID uuid.UUID, iv interval.Interval, att model.Attachment) (model.Block, error) {
	if err := iv.Validate(); err != nil {
		return model.Block{}, fmt.Errorf("%w: %v", model.ErrInvalidRange, err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Block{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	b, err := r.insertTx(ctx, tx, roomID, iv, att)
	if err != nil {
		return model.Block{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Block{}, translate("commit block", err)
	}
	return b, nil
}

// InsertOnce claims the (user, key) row before inserting. A concurrent retry
// of the same key waits on the row lock; a rolled back insert releases the
// key with the rest of the transaction.
func (r *BlockRepository) InsertOnce(ctx context.Context, key model.IdempotencyKey, roomID uuid.UUID, iv interval.Interval, att model.Attachment) (model.Block, bool, error) {
	if err := iv.Validate(); err != nil {
		return model.Block{}, false, fmt.Errorf("%w: %v", model.ErrInvalidRange, err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Block{}, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var claimed bool
	err = tx.QueryRow(ctx, `
		INSERT INTO idempotency_keys (user_id, idempotency_key, fingerprint)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, idempotency_key) DO NOTHING
		RETURNING true
	`, key.UserID, key.Key, key.Fingerprint).Scan(&claimed)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return model.Block{}, false, translate("claim idempotency key", err)
	}

	if !claimed {
		var (
			fingerprint string
			blockID     pgtype.UUID
		)
		if err := tx.QueryRow(ctx, `
			SELECT fingerprint, block_id FROM idempotency_keys
			WHERE user_id = $1 AND idempotency_key = $2
			FOR UPDATE
		`, key.UserID, key.Key).Scan(&fingerprint, &blockID); err != nil {
			return model.Block{}, false, translate("load idempotency key", err)
		}
		if fingerprint != key.Fingerprint {
			return model.Block{}, false, model.ErrKeyReused
		}
		if !blockID.Valid {
			return model.Block{}, false, fmt.Errorf("idempotency key %q has no block: %w", key.Key, model.ErrNotFound)
		}
		b, err := getBlock(ctx, tx, uuid.UUID(blockID.Bytes), false)
		if err != nil {
			return model.Block{}, false, translate("replay block", err)
		}
		return b, true, nil
	}

	b, err := r.insertTx(ctx, tx, roomID, iv, att)
	if err != nil {
		return model.Block{}, false, err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE idempotency_keys SET block_id = $3
		WHERE user_id = $1 AND idempotency_key = $2
	`, key.UserID, key.Key, b.ID); err != nil {
		return model.Block{}, false, translate("bind idempotency key", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Block{}, false, translate("commit block", err)
	}
	return b, false, nil
}

func (r *BlockRepository) insertTx(ctx context.Context, tx pgx.Tx, roomID uuid.UUID, iv interval.Interval, att model.Attachment) (model.Block, error) {
	b := model.Block{RoomID: roomID, Interval: iv}
	err := tx.QueryRow(ctx, `
		INSERT INTO blocks (room_id, interval)
		VALUES ($1, $2::tstzrange)
		RETURNING id, created_at, updated_at
	`, roomID, toRange(iv)).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return model.Block{}, translate("insert block", err)
	}
	att.Apply(&b)

	switch {
	case b.Booking != nil:
		_, err = tx.Exec(ctx, `
			INSERT INTO bookings (block_id, guest_id, status, payment_status)
			VALUES ($1, $2, $3, $4)
		`, b.ID, b.Booking.GuestID, b.Booking.Status, b.Booking.PaymentStatus)
	case b.Maintenance != nil:
		_, err = tx.Exec(ctx, `
			INSERT INTO maintenance (block_id, kind, severity, assigner_id)
			VALUES ($1, $2, $3, $4)
		`, b.ID, b.Maintenance.Kind, b.Maintenance.Severity, b.Maintenance.AssignerID)
	}
	if err != nil {
		return model.Block{}, translate("insert attachment", err)
	}

	evt, err := outbox.NewBlockCreated(b)
	if err != nil {
		return model.Block{}, err
	}
	if err := r.outbox.Insert(ctx, tx, evt); err != nil {
		return model.Block{}, fmt.Errorf("write outbox event: %w", err)
	}
	return b, nil
}

func (r *BlockRepository) Remove(ctx context.Context, blockID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	b, err := getBlock(ctx, tx, blockID, true)
	if err != nil {
		return translate("load block", err)
	}

	// bookings and maintenance rows go with it (ON DELETE CASCADE)
	if _, err := tx.Exec(ctx, `DELETE FROM blocks WHERE id = $1`, blockID); err != nil {
		return translate("delete block", err)
	}

	evt, err := outbox.NewBlockRemoved(b, time.Now().UTC())
	if err != nil {
		return err
	}
	if err := r.outbox.Insert(ctx, tx, evt); err != nil {
		return fmt.Errorf("write outbox event: %w", err)
	}
	return tx.Commit(ctx)
}

func (r *BlockRepository) FindOverlapping(ctx context.Context, roomID uuid.UUID, iv interval.Interval) ([]model.Block, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+blockColumns+blockFrom+`
		WHERE b.room_id = $1 AND b.interval && $2::tstzrange
		ORDER BY b.interval ASC
	`, roomID, toRange(iv))
	if err != nil {
		return nil, translate("find blocks", err)
	}
	defer rows.Close()

	var out []model.Block
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if rows.Err() != nil {
		return nil, translate("find blocks", rows.Err())
	}
	return out, nil
}

func (r *BlockRepository) Get(ctx context.Context, blockID uuid.UUID) (model.Block, error) {
	b, err := getBlock(ctx, r.pool, blockID, false)
	if err != nil {
		return model.Block{}, translate("get block", err)
	}
	return b, nil
}

func getBlock(ctx context.Context, q querier, blockID uuid.UUID, forUpdate bool) (model.Block, error) {
	sql := `SELECT ` + blockColumns + blockFrom + ` WHERE b.id = $1`
	if forUpdate {
		sql += ` FOR UPDATE OF b`
	}
	return scanBlock(q.QueryRow(ctx, sql, blockID))
}

func (r *BlockRepository) SetBookingStatus(ctx context.Context, blockID uuid.UUID, status string) (model.Block, error) {
	if !model.ValidBookingStatus(status) {
		return model.Block{}, fmt.Errorf("%w: unknown booking status %q", model.ErrInvalidInput, status)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Block{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	b, err := getBlock(ctx, tx, blockID, true)
	if err != nil {
		return model.Block{}, translate("load booking", err)
	}
	if b.Booking == nil {
		return model.Block{}, fmt.Errorf("booking %s: %w", blockID, model.ErrNotFound)
	}
	from := b.Booking.Status
	if !model.CanTransitionBooking(from, status) {
		return model.Block{}, fmt.Errorf("booking %s is %s: %w", blockID, from, model.ErrConflict)
	}

	if _, err := tx.Exec(ctx, `UPDATE bookings SET status = $2 WHERE block_id = $1`, blockID, status); err != nil {
		return model.Block{}, translate("update booking", err)
	}
	if err := tx.QueryRow(ctx, `
		UPDATE blocks SET updated_at = now() WHERE id = $1 RETURNING updated_at
	`, blockID).Scan(&b.UpdatedAt); err != nil {
		return model.Block{}, translate("touch block", err)
	}
	b.Booking.Status = status

	evt, err := outbox.NewBookingStatusChanged(b, from, b.UpdatedAt)
	if err != nil {
		return model.Block{}, err
	}
	if err := r.outbox.Insert(ctx, tx, evt); err != nil {
		return model.Block{}, fmt.Errorf("write outbox event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Block{}, err
	}
	return b, nil
}
