package shared

import "time"

// Period bounds a time range as [From, To). A zero bound leaves that side open.
type Period struct {
	From time.Time
	To   time.Time
}

// Day returns the UTC calendar day that contains t
func Day(t time.Time) Period {
	t = t.UTC()
	from := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return Period{From: from, To: from.AddDate(0, 0, 1)}
}

// IsOpen reports whether neither bound is set
func (p Period) IsOpen() bool {
	return p.From.IsZero() && p.To.IsZero()
}
