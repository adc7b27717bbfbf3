package interval

import (
	"encoding/json"
	"fmt"
	"time"
)

type BoundKind uint8

const (
	KindUnbounded BoundKind = iota
	KindIncluded
	KindExcluded
)

func (k BoundKind) String() string {
	switch k {
	case KindIncluded:
		return "included"
	case KindExcluded:
		return "excluded"
	default:
		return "unbounded"
	}
}

func ParseKind(s string) (BoundKind, error) {
	switch s {
	case "included":
		return KindIncluded, nil
	case "excluded":
		return KindExcluded, nil
	case "unbounded":
		return KindUnbounded, nil
	default:
		return 0, fmt.Errorf("unknown bound kind %q", s)
	}
}

// Bound is one end of an interval. The same value can act as a lower or an
// upper bound; which role it plays decides how it orders.
type Bound struct {
	Kind BoundKind
	Time time.Time
}

func Unbounded() Bound { return Bound{Kind: KindUnbounded} }

func Included(t time.Time) Bound { return Bound{Kind: KindIncluded, Time: normalize(t)} }

func Excluded(t time.Time) Bound { return Bound{Kind: KindExcluded, Time: normalize(t)} }

// Postgres stores timestamptz with microsecond precision.
func normalize(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func (b Bound) IsUnbounded() bool { return b.Kind == KindUnbounded }

func (b Bound) Equal(o Bound) bool {
	if b.Kind != o.Kind {
		return false
	}
	return b.Kind == KindUnbounded || b.Time.Equal(o.Time)
}

// CompareLower orders bounds used as lower ends: unbounded sorts first and, at
// the same instant, an included bound starts earlier than an excluded one.
func CompareLower(a, b Bound) int {
	switch {
	case a.IsUnbounded() && b.IsUnbounded():
		return 0
	case a.IsUnbounded():
		return -1
	case b.IsUnbounded():
		return 1
	}
	if c := a.Time.Compare(b.Time); c != 0 {
		return c
	}
	switch {
	case a.Kind == b.Kind:
		return 0
	case a.Kind == KindIncluded:
		return -1
	default:
		return 1
	}
}

// CompareUpper orders bounds used as upper ends: unbounded sorts last and, at
// the same instant, an included bound ends later than an excluded one.
func CompareUpper(a, b Bound) int {
	switch {
	case a.IsUnbounded() && b.IsUnbounded():
		return 0
	case a.IsUnbounded():
		return 1
	case b.IsUnbounded():
		return -1
	}
	if c := a.Time.Compare(b.Time); c != 0 {
		return c
	}
	switch {
	case a.Kind == b.Kind:
		return 0
	case a.Kind == KindIncluded:
		return 1
	default:
		return -1
	}
}

func MinLower(a, b Bound) Bound {
	if CompareLower(b, a) < 0 {
		return b
	}
	return a
}

func MaxUpper(a, b Bound) Bound {
	if CompareUpper(b, a) > 0 {
		return b
	}
	return a
}

// lowerBeforeUpper reports whether an interval starting at l can still be
// open when one ending at u closes.
func lowerBeforeUpper(l, u Bound) bool {
	if l.IsUnbounded() || u.IsUnbounded() {
		return true
	}
	if !l.Time.Equal(u.Time) {
		return l.Time.Before(u.Time)
	}
	return l.Kind == KindIncluded && u.Kind == KindIncluded
}

type boundJSON struct {
	Kind string     `json:"kind"`
	Time *time.Time `json:"time,omitempty"`
}

func (b Bound) MarshalJSON() ([]byte, error) {
	out := boundJSON{Kind: b.Kind.String()}
	if !b.IsUnbounded() {
		t := b.Time
		out.Time = &t
	}
	return json.Marshal(out)
}

func (b *Bound) UnmarshalJSON(data []byte) error {
	var in boundJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	kind, err := ParseKind(in.Kind)
	if err != nil {
		return err
	}
	switch kind {
	case KindUnbounded:
		*b = Unbounded()
	case KindIncluded, KindExcluded:
		if in.Time == nil {
			return fmt.Errorf("%s bound requires a time", in.Kind)
		}
		*b = Bound{Kind: kind, Time: normalize(*in.Time)}
	}
	return nil
}
