// Package interval models time ranges whose ends may be inclusive, exclusive
// or unbounded, with the ordering and overlap rules used for room blocks.
package interval

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var (
	ErrInverted = errors.New("interval lower bound is after upper bound")
	ErrEmpty    = errors.New("interval is empty")
)

type Interval struct {
	Lower Bound
	Upper Bound
}

// New validates that the interval contains at least one instant.
func New(lower, upper Bound) (Interval, error) {
	if !lower.IsUnbounded() && !upper.IsUnbounded() {
		if lower.Time.After(upper.Time) {
			return Interval{}, ErrInverted
		}
		if lower.Time.Equal(upper.Time) && !(lower.Kind == KindIncluded && upper.Kind == KindIncluded) {
			return Interval{}, ErrEmpty
		}
	}
	return Interval{Lower: lower, Upper: upper}, nil
}

// Validate re-runs the checks of New on an interval built from its fields.
func (iv Interval) Validate() error {
	_, err := New(iv.Lower, iv.Upper)
	return err
}

// HalfOpen builds [start, end).
func HalfOpen(start, end time.Time) (Interval, error) {
	return New(Included(start), Excluded(end))
}

// Overlaps reports whether a and b share at least one instant.
func Overlaps(a, b Interval) bool {
	return lowerBeforeUpper(a.Lower, b.Upper) && lowerBeforeUpper(b.Lower, a.Upper)
}

func (iv Interval) Overlaps(o Interval) bool { return Overlaps(iv, o) }

func (iv Interval) Equal(o Interval) bool {
	return iv.Lower.Equal(o.Lower) && iv.Upper.Equal(o.Upper)
}

// Span returns the smallest interval covering both.
func Span(a, b Interval) Interval {
	return Interval{Lower: MinLower(a.Lower, b.Lower), Upper: MaxUpper(a.Upper, b.Upper)}
}

// String renders the interval as a Postgres range literal.
func (iv Interval) String() string {
	var sb strings.Builder
	if iv.Lower.Kind == KindIncluded {
		sb.WriteByte('[')
	} else {
		sb.WriteByte('(')
	}
	if !iv.Lower.IsUnbounded() {
		sb.WriteString(iv.Lower.Time.Format(time.RFC3339Nano))
	}
	sb.WriteByte(',')
	if !iv.Upper.IsUnbounded() {
		sb.WriteString(iv.Upper.Time.Format(time.RFC3339Nano))
	}
	if iv.Upper.Kind == KindIncluded {
		sb.WriteByte(']')
	} else {
		sb.WriteByte(')')
	}
	return sb.String()
}

type intervalJSON struct {
	Lower Bound `json:"lower"`
	Upper Bound `json:"upper"`
}

func (iv Interval) MarshalJSON() ([]byte, error) {
	return json.Marshal(intervalJSON{Lower: iv.Lower, Upper: iv.Upper})
}

func (iv *Interval) UnmarshalJSON(data []byte) error {
	var in intervalJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	v, err := New(in.Lower, in.Upper)
	if err != nil {
		return err
	}
	*iv = v
	return nil
}
