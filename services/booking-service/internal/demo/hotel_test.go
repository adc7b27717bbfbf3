package demo

import "testing"

func TestNewHotelIsStable(t *testing.T) {
	a, b := NewHotel(), NewHotel()
	if len(a.Classes) != 3 || len(a.Rooms) != 10 || len(a.Users) != 2 {
		t.Fatalf("unexpected sizes: %d classes, %d rooms, %d users", len(a.Classes), len(a.Rooms), len(a.Users))
	}
	for i := range a.Rooms {
		if a.Rooms[i].ID != b.Rooms[i].ID {
			t.Fatalf("room %s id changed between calls", a.Rooms[i].Label)
		}
	}

	classes := map[string]bool{}
	for _, c := range a.Classes {
		classes[c.ID.String()] = true
	}
	for _, r := range a.Rooms {
		if !classes[r.ClassID.String()] {
			t.Fatalf("room %s references unknown class %s", r.Label, r.ClassID)
		}
	}
}
