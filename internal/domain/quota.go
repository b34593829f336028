package domain

import "time"

// QuotaDateLayout is the calendar-day key format used by every quota
// store backend. Days roll over at local midnight.
const QuotaDateLayout = "2006-01-02"

// DailyQuotaState is the single piece of state the tool persists
// between runs: how many sends have counted against today's quota.
// A state whose Date is not today is stale and resets to zero.
type DailyQuotaState struct {
	Date           string `json:"date"`
	CountSentToday int    `json:"count_sent_today"`
}

// QuotaDate formats t as a quota day key.
func QuotaDate(t time.Time) string {
	return t.Format(QuotaDateLayout)
}
