package scheduler

import (
	"time"

	"github.com/meetdesk/meetdesk/pkg/models"
)

// NextOccurrence computes the occurrence date following ref for the given
// repeat type. The result depends only on the arguments. Unknown repeat types
// and custom_day without a positive interval degrade to one day.
func NextOccurrence(ref time.Time, repeatType string, customDays *int) time.Time {
	switch repeatType {
	case models.RepeatDaily:
		return ref.AddDate(0, 0, 1)
	case models.RepeatWeekly:
		return ref.AddDate(0, 0, 7)
	case models.RepeatMonthly:
		return addMonthClamped(ref)
	case models.RepeatCustomDay:
		if customDays != nil && *customDays > 0 {
			return ref.AddDate(0, 0, *customDays)
		}
	}
	return ref.AddDate(0, 0, 1)
}

// addMonthClamped advances one calendar month, clamping the day of month to
// the last valid day of the target month (Jan 31 -> Feb 28/29). AddDate would
// roll the overflow into the month after.
func addMonthClamped(ref time.Time) time.Time {
	y, m, d := ref.Date()
	lastDay := time.Date(y, m+2, 0, 0, 0, 0, 0, ref.Location()).Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(y, m+1, d, ref.Hour(), ref.Minute(), ref.Second(), ref.Nanosecond(), ref.Location())
}
