package model

import (
	"time"

	"github.com/google/uuid"
)

// User is the local read model of an account owned by the identity service.
type User struct {
	ID        uuid.UUID
	Email     string
	CreatedAt time.Time
}

// IdempotencyKey scopes a client retry token to the caller. Fingerprint
// identifies the request the key was first used for.
type IdempotencyKey struct {
	UserID      uuid.UUID
	Key         string
	Fingerprint string
}

const MaxIdempotencyKeyLen = 255
