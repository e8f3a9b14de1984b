// Package schedule holds the pure date arithmetic behind recurring invoice
// generation. Nothing in this package touches storage or the clock.
package schedule

import (
	"errors"
	"time"

	"billing/pkg/models"
)

// ErrUnknownFrequency is returned for a frequency outside the supported set.
var ErrUnknownFrequency = errors.New("unknown frequency")

// NextDate returns the next due date after anchor for the given frequency.
//
// Weekly is an exact 7-day step. Monthly, quarterly and yearly are calendar
// increments: the same day-of-month in the target month, clamped to the
// target month's last day when the anchor day does not exist there
// (Jan 31 -> Feb 28/29, Feb 29 yearly -> Feb 28 on non-leap years). Clamping
// keeps a monthly series at one invoice per calendar month; a fixed-day
// approximation drifts and must not be used here.
func NextDate(anchor time.Time, frequency models.Frequency) (time.Time, error) {
	switch frequency {
	case models.Weekly:
		return anchor.AddDate(0, 0, 7), nil
	case models.Monthly:
		return addMonthsClamped(anchor, 1), nil
	case models.Quarterly:
		return addMonthsClamped(anchor, 3), nil
	case models.Yearly:
		return addMonthsClamped(anchor, 12), nil
	}
	return time.Time{}, ErrUnknownFrequency
}

// addMonthsClamped adds months to t, clamping the day-of-month to the last
// day of the target month. time.AddDate is unsuitable: it normalizes
// overflowing days forward (Jan 31 + 1 month = Mar 2/3), which skips months.
func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	firstOfTarget := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if last := daysInMonth(firstOfTarget.Year(), firstOfTarget.Month()); day > last {
		day = last
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// daysInMonth returns the number of days in the given month.
func daysInMonth(year int, month time.Month) int {
	// Day 0 of the following month normalizes to this month's last day.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// IsDue reports whether a schedule should generate an invoice as of the given
// time. An inactive schedule is never due, nor is one past its end date. A
// schedule that has never generated is due once its start date is reached;
// afterwards it is due once the nominal series passes the watermark again.
func IsDue(s models.RecurringSchedule, asOf time.Time) bool {
	if !s.IsActive {
		return false
	}
	if s.EndDate != nil && asOf.After(*s.EndDate) {
		return false
	}
	next, err := NextGeneration(s)
	if err != nil {
		return false
	}
	return !asOf.Before(next)
}

// NextGeneration returns the next time a schedule would generate: the start
// date if it never has, otherwise the first date of the schedule's nominal
// series that lies after the watermark.
//
// The series is the start date advanced by whole periods, each step computed
// from the start date itself so the clamp never compounds (Jan 31 monthly
// yields Feb 28/29, Mar 31, Apr 30, ...). Anchoring at the start date also
// keeps the cadence fixed when a generation runs late: a schedule that bills
// on the 15th and was generated on the 20th is next due on the following
// 15th, not the 20th.
func NextGeneration(s models.RecurringSchedule) (time.Time, error) {
	if s.LastGenerated == nil {
		return s.StartDate, nil
	}
	for k := 0; ; k++ {
		next, err := seriesDate(s.StartDate, s.Frequency, k)
		if err != nil {
			return time.Time{}, err
		}
		if next.After(*s.LastGenerated) {
			return next, nil
		}
	}
}

// seriesDate returns the k-th date of the nominal series starting at start.
func seriesDate(start time.Time, frequency models.Frequency, k int) (time.Time, error) {
	switch frequency {
	case models.Weekly:
		return start.AddDate(0, 0, 7*k), nil
	case models.Monthly:
		return addMonthsClamped(start, k), nil
	case models.Quarterly:
		return addMonthsClamped(start, 3*k), nil
	case models.Yearly:
		return addMonthsClamped(start, 12*k), nil
	}
	return time.Time{}, ErrUnknownFrequency
}
