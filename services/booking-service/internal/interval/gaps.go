package interval

import "sort"

// Gaps returns the parts of within not covered by any busy interval, in
// ascending order. busy may be unsorted and may extend past within.
func Gaps(within Interval, busy []Interval) []Interval {
	sorted := make([]Interval, len(busy))
	copy(sorted, busy)
	sort.SliceStable(sorted, func(i, j int) bool {
		return CompareLower(sorted[i].Lower, sorted[j].Lower) < 0
	})

	var free []Interval
	cursor := within.Lower
	for _, b := range sorted {
		if !Overlaps(within, b) {
			continue
		}
		if end, ok := upperJustBefore(b.Lower); ok {
			if CompareUpper(end, within.Upper) > 0 {
				end = within.Upper
			}
			if gap, err := New(cursor, end); err == nil {
				free = append(free, gap)
			}
		}
		next, ok := lowerJustAfter(b.Upper)
		if !ok {
			return free
		}
		if CompareLower(next, cursor) > 0 {
			cursor = next
		}
	}
	if gap, err := New(cursor, within.Upper); err == nil {
		free = append(free, gap)
	}
	return free
}

// upperJustBefore is the upper bound of whatever ends right where a range
// with lower bound l begins.
func upperJustBefore(l Bound) (Bound, bool) {
	switch l.Kind {
	case KindIncluded:
		return Excluded(l.Time), true
	case KindExcluded:
		return Included(l.Time), true
	default:
		return Bound{}, false
	}
}

// lowerJustAfter is the lower bound of whatever begins right where a range
// with upper bound u ends.
func lowerJustAfter(u Bound) (Bound, bool) {
	switch u.Kind {
	case KindIncluded:
		return Excluded(u.Time), true
	case KindExcluded:
		return Included(u.Time), true
	default:
		return Bound{}, false
	}
}
