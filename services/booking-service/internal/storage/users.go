package storage

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/hotelbook/libs/db"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/model"
)

type UserRepository struct {
	pool *db.Pool
}

func NewUserRepository(pool *db.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) GetUser(ctx context.Context, userID uuid.UUID) (model.User, error) {
	var u model.User
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, created_at FROM users WHERE id = $1
	`, userID).Scan(&u.ID, &u.Email, &u.CreatedAt)
	if err != nil {
		return model.User{}, translate("get user", err)
	}
	return u, nil
}

// CreateUser keeps a caller supplied id so seeded accounts line up with the
// identity service.
func (r *UserRepository) CreateUser(ctx context.Context, u model.User) (model.User, error) {
	u.Email = strings.TrimSpace(u.Email)
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (id, email)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email
		RETURNING id, email, created_at
	`, u.ID, u.Email).Scan(&u.ID, &u.Email, &u.CreatedAt)
	if err != nil {
		return model.User{}, translate("create user", err)
	}
	return u, nil
}
