// Package analytics computes request statistics from a store snapshot.
// Everything here is a pure function of its inputs; the caller supplies the
// snapshot and the clock reading.
package analytics

import (
	"sort"
	"time"

	"github.com/iliyamo/kidcheck/internal/model"
)

// RecentWindow is how far back recent activity reaches.
const RecentWindow = 7 * 24 * time.Hour

const dayLayout = "2006-01-02"

type Totals struct {
	Requests int `json:"requests"`
	Parents  int `json:"parents"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

type ByType struct {
	Checkin  int `json:"checkin"`
	Checkout int `json:"checkout"`
}

// DayCount is the number of requests created on one UTC calendar day.
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Report is the live analytics view served to admins.
type Report struct {
	Totals         Totals     `json:"totals"`
	ByType         ByType     `json:"by_type"`
	RecentActivity []DayCount `json:"recent_activity"`
}

// Aggregate builds the live report. Recent activity covers requests created
// from the start of the UTC day seven days before now up to now, one entry
// per day that has at least one request, oldest first.
func Aggregate(snap model.Snapshot, now time.Time) Report {
	now = now.UTC()
	rep := Report{RecentActivity: []DayCount{}}

	for _, u := range snap.Users {
		if u.Role == model.RoleParent {
			rep.Totals.Parents++
		}
	}

	windowStart := truncateDay(now.Add(-RecentWindow))
	recent := map[string]int{}
	for _, r := range snap.Requests {
		rep.Totals.Requests++
		switch r.Status {
		case model.StatusPending:
			rep.Totals.Pending++
		case model.StatusApproved:
			rep.Totals.Approved++
		case model.StatusRejected:
			rep.Totals.Rejected++
		}
		switch r.Type {
		case model.RequestCheckin:
			rep.ByType.Checkin++
		case model.RequestCheckout:
			rep.ByType.Checkout++
		}
		created := r.CreatedAt.UTC()
		if !created.Before(windowStart) && !created.After(now) {
			recent[created.Format(dayLayout)]++
		}
	}
	rep.RecentActivity = sortedDays(recent)
	return rep
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// sortedDays flattens a day histogram; the layout sorts lexically by date.
func sortedDays(m map[string]int) []DayCount {
	out := make([]DayCount, 0, len(m))
	for d, n := range m {
		out = append(out, DayCount{Date: d, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
