package analytics

import (
	"bufio"
	"fmt"
	"io"
)

func pct(n, total int) float64 {
	if total < 1 {
		total = 1
	}
	return float64(n) / float64(total) * 100
}

// WriteText renders s as the plain-text analytics report.
func WriteText(w io.Writer, s Summary) error {
	b := bufio.NewWriter(w)
	t := s.Totals

	fmt.Fprintf(b, "KidCheck Analytics Report\nGenerated: %s\n\n", s.GeneratedAt.Format("2006-01-02 15:04:05"))

	fmt.Fprintln(b, "=== SUMMARY STATISTICS ===")
	fmt.Fprintf(b, "Total Requests: %d\nTotal Parents: %d\nTotal Children: %d\n\n", t.Requests, t.Parents, s.Children)

	fmt.Fprintln(b, "Request Status Breakdown:")
	fmt.Fprintf(b, "- Pending: %d (%.1f%%)\n", t.Pending, pct(t.Pending, t.Requests))
	fmt.Fprintf(b, "- Approved: %d (%.1f%%)\n", t.Approved, pct(t.Approved, t.Requests))
	fmt.Fprintf(b, "- Rejected: %d (%.1f%%)\n\n", t.Rejected, pct(t.Rejected, t.Requests))

	fmt.Fprintln(b, "Request Type Breakdown:")
	fmt.Fprintf(b, "- Check-in Requests: %d (%.1f%%)\n", s.ByType.Checkin, pct(s.ByType.Checkin, t.Requests))
	fmt.Fprintf(b, "- Check-out Requests: %d (%.1f%%)\n\n", s.ByType.Checkout, pct(s.ByType.Checkout, t.Requests))

	if r := s.Response; r != nil {
		fmt.Fprintln(b, "=== RESPONSE TIME ANALYSIS ===")
		fmt.Fprintf(b, "Average Response Time: %.1f minutes\n", r.AverageMinute)
		fmt.Fprintf(b, "Median Response Time: %.1f minutes\n", r.MedianMinute)
		fmt.Fprintf(b, "Fastest Response: %.1f minutes\n", r.MinMinute)
		fmt.Fprintf(b, "Slowest Response: %.1f minutes\n\n", r.MaxMinute)
	}

	if len(s.ByDate) > 0 {
		fmt.Fprintln(b, "=== ACTIVITY PATTERNS ===")
		fmt.Fprintf(b, "Average Daily Requests: %.1f\nPeak Daily Requests: %d\n", s.AvgDaily, s.PeakDaily)
		fmt.Fprintln(b, "Requests by Hour (UTC):")
		for h, n := range s.Hourly {
			if n > 0 {
				fmt.Fprintf(b, "- %02d:00: %d\n", h, n)
			}
		}
		fmt.Fprintln(b)
	}

	if m := s.MostActive; m != nil {
		fmt.Fprintln(b, "=== TOP USERS ===")
		fmt.Fprintf(b, "Most Active Parent: %s (%d requests)\n\n", m.Name, m.Requests)
	}

	if t.Requests > 0 {
		fmt.Fprintln(b, "=== RECENT ACTIVITY (Last 7 Days) ===")
		fmt.Fprintf(b, "Recent Requests: %d\n", s.RecentTotal)
		for _, d := range s.RecentActivity {
			fmt.Fprintf(b, "- %s: %d requests\n", d.Date, d.Count)
		}
	}
	return b.Flush()
}
