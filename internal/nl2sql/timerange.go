package nl2sql

import "time"

const dateLayout = "2006-01-02"

// TimeRange is an inclusive date range.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

func (r TimeRange) StartDate() string { return r.Start.Format(dateLayout) }
func (r TimeRange) EndDate() string   { return r.End.Format(dateLayout) }

const (
	PeriodLastMonth = "last month"
	PeriodThisMonth = "this month"
	PeriodLastYear  = "last year"
	PeriodThisYear  = "this year"
)

// periods is the scan order used when looking for a period phrase in text.
var periods = []string{PeriodLastMonth, PeriodThisMonth, PeriodLastYear, PeriodThisYear}

// ResolvePeriod computes the date range of a named period relative to now.
// The "this" periods end at now's date; the "last" periods cover the whole
// previous calendar month or year.
func ResolvePeriod(name string, now time.Time) (TimeRange, bool) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	firstOfMonth := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())

	switch name {
	case PeriodLastMonth:
		end := firstOfMonth.AddDate(0, 0, -1)
		start := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, end.Location())
		return TimeRange{Start: start, End: end}, true
	case PeriodThisMonth:
		return TimeRange{Start: firstOfMonth, End: today}, true
	case PeriodLastYear:
		year := today.Year() - 1
		return TimeRange{
			Start: time.Date(year, time.January, 1, 0, 0, 0, 0, today.Location()),
			End:   time.Date(year, time.December, 31, 0, 0, 0, 0, today.Location()),
		}, true
	case PeriodThisYear:
		return TimeRange{
			Start: time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, today.Location()),
			End:   today,
		}, true
	default:
		return TimeRange{}, false
	}
}
