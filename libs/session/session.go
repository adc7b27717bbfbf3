// Package session carries the caller identity forwarded by the edge gateway.
// The gateway authenticates the request; services only read the headers.
package session

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/hotelbook/libs/httpx"
)

const (
	HeaderUserID    = "X-User-Id"
	HeaderStaffID   = "X-Staff-Id"
	HeaderUserEmail = "X-User-Email"
)

// User is an authenticated caller. StaffID is set only for hotel staff.
type User struct {
	ID      uuid.UUID
	StaffID *uuid.UUID
	Email   string
}

func (u *User) IsStaff() bool {
	return u != nil && u.StaffID != nil
}

type ctxKey struct{}

func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// FromContext returns nil for unauthenticated requests.
func FromContext(ctx context.Context) *User {
	u, _ := ctx.Value(ctxKey{}).(*User)
	return u
}

// FromHeaders returns nil when the user id is missing or malformed. A
// malformed staff id downgrades the caller to a regular user.
func FromHeaders(h http.Header) *User {
	id, err := uuid.Parse(strings.TrimSpace(h.Get(HeaderUserID)))
	if err != nil || id == uuid.Nil {
		return nil
	}
	u := &User{ID: id, Email: strings.TrimSpace(h.Get(HeaderUserEmail))}
	if raw := strings.TrimSpace(h.Get(HeaderStaffID)); raw != "" {
		if staffID, err := uuid.Parse(raw); err == nil && staffID != uuid.Nil {
			u.StaffID = &staffID
		}
	}
	return u
}

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u := FromHeaders(r.Header); u != nil {
			r = r.WithContext(WithUser(r.Context(), u))
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimitKey buckets authenticated callers by user id and everyone else by
// the first forwarded address.
func RateLimitKey(r *http.Request) string {
	if u := FromHeaders(r.Header); u != nil {
		return "user:" + u.ID.String()
	}
	return "ip:" + httpx.ClientIP(r)
}
