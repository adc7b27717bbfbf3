package storage

import (
	"errors"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/interval"
)

var errEmptyRange = errors.New("empty tstzrange")

func toRange(iv interval.Interval) pgtype.Range[pgtype.Timestamptz] {
	r := pgtype.Range[pgtype.Timestamptz]{Valid: true}
	r.Lower, r.LowerType = toBound(iv.Lower)
	r.Upper, r.UpperType = toBound(iv.Upper)
	return r
}

func toBound(b interval.Bound) (pgtype.Timestamptz, pgtype.BoundType) {
	switch b.Kind {
	case interval.KindIncluded:
		return pgtype.Timestamptz{Time: b.Time, Valid: true}, pgtype.Inclusive
	case interval.KindExcluded:
		return pgtype.Timestamptz{Time: b.Time, Valid: true}, pgtype.Exclusive
	default:
		return pgtype.Timestamptz{}, pgtype.Unbounded
	}
}

func fromRange(r pgtype.Range[pgtype.Timestamptz]) (interval.Interval, error) {
	if !r.Valid || r.LowerType == pgtype.Empty || r.UpperType == pgtype.Empty {
		return interval.Interval{}, errEmptyRange
	}
	return interval.New(fromBound(r.Lower, r.LowerType), fromBound(r.Upper, r.UpperType))
}

// Infinite timestamps are folded into unbounded ends.
func fromBound(ts pgtype.Timestamptz, bt pgtype.BoundType) interval.Bound {
	if bt == pgtype.Unbounded || !ts.Valid || ts.InfinityModifier != pgtype.Finite {
		return interval.Unbounded()
	}
	if bt == pgtype.Inclusive {
		return interval.Included(ts.Time)
	}
	return interval.Excluded(ts.Time)
}
