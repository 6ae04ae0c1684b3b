package reminder

import (
	"time"

	"github.com/smallbiznis/ticketflow/internal/config"
	subscriptiondomain "github.com/smallbiznis/ticketflow/internal/subscription/domain"
)

// MonthFormat is the layout of the monthly notice marker.
const MonthFormat = "2006-01"

// DaysUntil counts calendar days from now to t in loc. Times of day are
// ignored, so an expiry at 00:30 three days out counts as 3.
func DaysUntil(now, t time.Time, loc *time.Location) int {
	return int(civilDate(t, loc).Sub(civilDate(now, loc)).Hours() / 24)
}

func civilDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FullMonthsSince returns how many whole calendar months have elapsed from
// start to now in loc.
func FullMonthsSince(start, now time.Time, loc *time.Location) int {
	start = start.In(loc)
	now = now.In(loc)
	if now.Before(start) {
		return 0
	}
	months := (now.Year()-start.Year())*12 + int(now.Month()-start.Month())
	if start.AddDate(0, months, 0).After(now) {
		months--
	}
	return months
}

// ExpiryWarningDue reports whether sub is exactly the lead days away from
// expiring and has not been warned in this billing period.
func ExpiryWarningDue(sub subscriptiondomain.Subscription, now time.Time, policy config.Policy) bool {
	if sub.Status != subscriptiondomain.StatusActive || sub.ReminderSent {
		return false
	}
	return DaysUntil(now, sub.ExpiresAt, policy.Location()) == policy.ReminderLeadDays
}

// MonthlyNoticeDue returns the month to stamp and whether a long-cycle
// subscription is owed its active notice for that month.
func MonthlyNoticeDue(sub subscriptiondomain.Subscription, now time.Time, policy config.Policy) (string, bool) {
	loc := policy.Location()
	month := now.In(loc).Format(MonthFormat)
	if sub.Status != subscriptiondomain.StatusActive || !sub.Cycle.LongTerm() {
		return month, false
	}
	if !now.Before(sub.ExpiresAt) {
		return month, false
	}
	if FullMonthsSince(sub.StartedAt, now, loc) < 1 {
		return month, false
	}
	return month, sub.LastMonthlyReminderSentAt != month
}
