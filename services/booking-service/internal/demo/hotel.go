// Package demo describes the small hotel used for local runs and seeding.
package demo

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/model"
)

var namespace = uuid.MustParse("6f2d1c0e-8a4b-4c1e-9b1a-3f5e2d7c9a10")

// ID derives a stable id from name so local runs can be scripted.
func ID(name string) uuid.UUID {
	return uuid.NewSHA1(namespace, []byte(name))
}

type Hotel struct {
	Classes []model.RoomClass
	Rooms   []model.Room
	Users   []model.User
}

// NewHotel returns three classes, ten rooms on three floors, one guest and
// one front desk account.
func NewHotel() Hotel {
	wifi := model.Amenity{ID: ID("amenity/wifi"), Name: "Wi-Fi", IconKey: "wifi"}
	tv := model.Amenity{ID: ID("amenity/tv"), Name: "Television", IconKey: "tv"}
	bath := model.Amenity{ID: ID("amenity/bathtub"), Name: "Bathtub", IconKey: "bath"}
	view := model.Amenity{ID: ID("amenity/sea-view"), Name: "Sea view", IconKey: "waves"}

	h := Hotel{
		Classes: []model.RoomClass{
			{ID: ID("class/standard"), Name: "Standard", BasePrice: "89.00", Amenities: []model.Amenity{wifi}},
			{ID: ID("class/deluxe"), Name: "Deluxe", BasePrice: "149.00", Amenities: []model.Amenity{wifi, tv}},
			{ID: ID("class/suite"), Name: "Suite", BasePrice: "289.00", Amenities: []model.Amenity{wifi, tv, bath, view}},
		},
		Users: []model.User{
			{ID: ID("user/guest"), Email: "guest@hotel.test"},
			{ID: ID("user/frontdesk"), Email: "frontdesk@hotel.test"},
		},
	}

	layout := []struct {
		floor int
		count int
		class uuid.UUID
	}{
		{1, 4, h.Classes[0].ID},
		{2, 4, h.Classes[1].ID},
		{3, 2, h.Classes[2].ID},
	}
	for _, f := range layout {
		for n := 1; n <= f.count; n++ {
			label := fmt.Sprintf("%d%02d", f.floor, n)
			h.Rooms = append(h.Rooms, model.Room{ID: ID("room/" + label), Label: label, ClassID: f.class})
		}
	}
	return h
}
