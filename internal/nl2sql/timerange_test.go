package nl2sql

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var referenceInstant = time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)

func TestResolvePeriod(t *testing.T) {
	tests := []struct {
		name      string
		period    string
		now       time.Time
		wantStart string
		wantEnd   string
	}{
		{"this month ends today", PeriodThisMonth, referenceInstant, "2024-03-01", "2024-03-15"},
		{"last month is the full leap february", PeriodLastMonth, referenceInstant, "2024-02-01", "2024-02-29"},
		{"last month across year boundary", PeriodLastMonth, time.Date(2024, time.January, 3, 0, 0, 0, 0, time.UTC), "2023-12-01", "2023-12-31"},
		{"this year ends today", PeriodThisYear, referenceInstant, "2024-01-01", "2024-03-15"},
		{"last year is the full calendar year", PeriodLastYear, referenceInstant, "2023-01-01", "2023-12-31"},
		{"this month on the first", PeriodThisMonth, time.Date(2024, time.May, 1, 23, 59, 0, 0, time.UTC), "2024-05-01", "2024-05-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			span, ok := ResolvePeriod(tt.period, tt.now)
			require.True(t, ok)
			assert.Equal(t, tt.wantStart, span.StartDate())
			assert.Equal(t, tt.wantEnd, span.EndDate())
			assert.False(t, span.End.Before(span.Start))
		})
	}
}

func TestResolvePeriodUnknownName(t *testing.T) {
	_, ok := ResolvePeriod("next week", referenceInstant)
	assert.False(t, ok)
}
