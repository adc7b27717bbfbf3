package memstore

import (
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/demo"
)

// SeedDemo fills an empty store with the demo hotel.
func (s *Store) SeedDemo() error {
	h := demo.NewHotel()
	for _, c := range h.Classes {
		s.AddClass(c)
	}
	for _, r := range h.Rooms {
		if _, err := s.AddRoom(r); err != nil {
			return err
		}
	}
	for _, u := range h.Users {
		if _, err := s.AddUser(u); err != nil {
			return err
		}
	}
	return nil
}
