package model

import (
	"time"

	"github.com/google/uuid"
)

type Room struct {
	ID        uuid.UUID
	Label     string
	ClassID   uuid.UUID
	CreatedAt time.Time
}

type RoomClass struct {
	ID        uuid.UUID
	Name      string
	BasePrice string
	Amenities []Amenity
	CreatedAt time.Time
}

type Amenity struct {
	ID      uuid.UUID
	Name    string
	IconKey string
}

type RoomDetails struct {
	Room  Room
	Class RoomClass
}

// RoomQuery pages through rooms whose label contains Search (case-insensitive).
type RoomQuery struct {
	Search  string
	Page    int
	PerPage int
}

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

func (q RoomQuery) Normalize() RoomQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = DefaultPerPage
	}
	if q.PerPage > MaxPerPage {
		q.PerPage = MaxPerPage
	}
	return q
}

func (q RoomQuery) Offset() int {
	return (q.Page - 1) * q.PerPage
}

type RoomPage struct {
	Rooms   []Room
	Total   int
	Page    int
	PerPage int
}
