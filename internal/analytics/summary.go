package analytics

import (
	"sort"
	"time"

	"github.com/iliyamo/kidcheck/internal/model"
)

// ResponseStats describes minutes between creation and response, over
// requests that have a response time.
type ResponseStats struct {
	Count         int     `json:"count"`
	AverageMinute float64 `json:"avg_minutes"`
	MedianMinute  float64 `json:"median_minutes"`
	MinMinute     float64 `json:"min_minutes"`
	MaxMinute     float64 `json:"max_minutes"`
}

type ParentActivity struct {
	ParentID uint64 `json:"parent_id"`
	Name     string `json:"name"`
	Requests int    `json:"requests"`
}

// Summary extends Report with the statistics of the offline report.
// Optional sections are nil when there is no data for them.
type Summary struct {
	Report
	GeneratedAt time.Time       `json:"generated_at"`
	Children    int             `json:"children"`
	Users       int             `json:"users"`
	RecentTotal int             `json:"recent_total"`
	Response    *ResponseStats  `json:"response_time,omitempty"`
	AvgDaily    float64         `json:"avg_daily_requests"`
	PeakDaily   int             `json:"peak_daily_requests"`
	Hourly      [24]int         `json:"hourly"`
	ByDate      []DayCount      `json:"by_date"`
	MostActive  *ParentActivity `json:"most_active_parent,omitempty"`
}

// Summarize computes the full summary. It embeds Aggregate's result, so
// the two views never disagree on shared counts.
func Summarize(snap model.Snapshot, now time.Time) Summary {
	s := Summary{
		Report:      Aggregate(snap, now),
		GeneratedAt: now.UTC(),
		Children:    len(snap.Children),
		Users:       len(snap.Users),
	}
	for _, d := range s.RecentActivity {
		s.RecentTotal += d.Count
	}

	names := make(map[uint64]string, len(snap.Users))
	for _, u := range snap.Users {
		names[u.ID] = u.Name
	}

	var minutes []float64
	daily := map[string]int{}
	perParent := map[uint64]int{}
	for _, r := range snap.Requests {
		created := r.CreatedAt.UTC()
		daily[created.Format(dayLayout)]++
		s.Hourly[created.Hour()]++
		if _, ok := names[r.ParentID]; ok {
			perParent[r.ParentID]++
		}
		if r.ResponseTime != nil {
			minutes = append(minutes, r.ResponseTime.Sub(r.CreatedAt).Minutes())
		}
	}

	s.ByDate = sortedDays(daily)
	if len(s.ByDate) > 0 {
		for _, d := range s.ByDate {
			if d.Count > s.PeakDaily {
				s.PeakDaily = d.Count
			}
		}
		s.AvgDaily = float64(s.Totals.Requests) / float64(len(s.ByDate))
	}
	s.Response = responseStats(minutes)
	s.MostActive = mostActive(perParent, names)
	return s
}

func responseStats(minutes []float64) *ResponseStats {
	if len(minutes) == 0 {
		return nil
	}
	sort.Float64s(minutes)
	var sum float64
	for _, m := range minutes {
		sum += m
	}
	n := len(minutes)
	median := minutes[n/2]
	if n%2 == 0 {
		median = (minutes[n/2-1] + minutes[n/2]) / 2
	}
	return &ResponseStats{
		Count:         n,
		AverageMinute: sum / float64(n),
		MedianMinute:  median,
		MinMinute:     minutes[0],
		MaxMinute:     minutes[n-1],
	}
}

// mostActive picks the parent with the most requests; ties go to the
// lexically smaller name, then the smaller id.
func mostActive(counts map[uint64]int, names map[uint64]string) *ParentActivity {
	var best *ParentActivity
	for id, n := range counts {
		cand := ParentActivity{ParentID: id, Name: names[id], Requests: n}
		if best == nil || better(cand, *best) {
			c := cand
			best = &c
		}
	}
	return best
}

func better(a, b ParentActivity) bool {
	if a.Requests != b.Requests {
		return a.Requests > b.Requests
	}
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.ParentID < b.ParentID
}
