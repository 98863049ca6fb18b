package engagement

import "time"

// nextStreak computes the reading streak after a read at now, given the
// previous read across all books (nil when there is none).
//
//   - no previous read: 1
//   - previous read earlier the same day: unchanged
//   - previous read the day before: +1
//   - older: unchanged, or 1 when resetAfterGap is set
//
// Days are calendar days in loc.
func nextStreak(current int, previous *time.Time, now time.Time, loc *time.Location, resetAfterGap bool) int {
	if previous == nil {
		return 1
	}

	switch days := daysBetween(*previous, now, loc); {
	case days == 1:
		return current + 1
	case days > 1 && resetAfterGap:
		return 1
	default:
		// Same day, a gap without reset, or a previous read in the future.
		return current
	}
}

// daysBetween counts calendar-day boundaries from a to b in loc.
func daysBetween(a, b time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}
