package sale

import "time"

// Aggregate buckets sales into today's and this month's revenue relative to now.
// Calendar components are compared in loc; a nil loc means now's own location.
func Aggregate(sales []*Sale, now time.Time, loc *time.Location) Revenue {
	if loc == nil {
		loc = now.Location()
	}
	now = now.In(loc)
	year, month, day := now.Date()

	var rev Revenue
	for _, s := range sales {
		y, m, d := s.Timestamp.In(loc).Date()
		if y != year || m != month {
			continue
		}
		rev.Month = rev.Month.Add(s.Amount)
		if d == day {
			rev.Today = rev.Today.Add(s.Amount)
		}
	}
	return rev
}
