package analytics

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/kidcheck/internal/model"
)

var now = time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC)

func req(id, parent uint64, typ model.RequestType, created time.Time) model.Request {
	r := model.NewRequest(parent, "kid", "1", typ, "", created)
	r.ID = id
	return r
}

func decided(r model.Request, st model.Status, after time.Duration) model.Request {
	if err := r.Decide(st, "", r.CreatedAt.Add(after)); err != nil {
		panic(err)
	}
	return r
}

func fixture() model.Snapshot {
	return model.Snapshot{
		Users: []model.User{
			{ID: 1, Name: "Alice", Role: model.RoleParent},
			{ID: 2, Name: "Bob", Role: model.RoleParent},
			{ID: 3, Name: "Carol", Role: model.RoleParent},
		},
		Children: []model.Child{{ID: 1, ParentID: 1}, {ID: 2, ParentID: 2}},
		Requests: []model.Request{
			decided(req(1, 1, model.RequestCheckin, now.Add(-2*time.Hour)), model.StatusApproved, 10*time.Minute),
			decided(req(2, 2, model.RequestCheckout, now.Add(-26*time.Hour)), model.StatusRejected, 30*time.Minute),
			decided(req(3, 2, model.RequestCheckin, now.Add(-27*time.Hour)), model.StatusApproved, 20*time.Minute),
			req(4, 1, model.RequestCheckin, now.Add(-30*24*time.Hour)),
			req(5, 3, model.RequestCheckout, now.Add(-7*24*time.Hour-time.Hour)),
		},
	}
}

func TestAggregateTotals(t *testing.T) {
	rep := Aggregate(fixture(), now)

	assert.Equal(t, Totals{Requests: 5, Parents: 3, Pending: 2, Approved: 2, Rejected: 1}, rep.Totals)
	assert.Equal(t, ByType{Checkin: 3, Checkout: 2}, rep.ByType)
	assert.LessOrEqual(t, rep.Totals.Pending+rep.Totals.Approved+rep.Totals.Rejected, rep.Totals.Requests)
	assert.Equal(t, rep.Totals.Requests, rep.ByType.Checkin+rep.ByType.Checkout)
}

func TestAggregateRecentActivity(t *testing.T) {
	rep := Aggregate(fixture(), now)

	// Request 5 is 7 days and one hour old, which is still inside the first
	// calendar day of the window; request 4 is outside.
	assert.Equal(t, []DayCount{
		{Date: "2025-03-03", Count: 1},
		{Date: "2025-03-09", Count: 2},
		{Date: "2025-03-10", Count: 1},
	}, rep.RecentActivity)
}

func TestAggregateEmpty(t *testing.T) {
	rep := Aggregate(model.Snapshot{}, now)
	assert.Zero(t, rep.Totals)
	assert.NotNil(t, rep.RecentActivity)
	assert.Empty(t, rep.RecentActivity)

	s := Summarize(model.Snapshot{}, now)
	assert.Nil(t, s.Response)
	assert.Nil(t, s.MostActive)
	assert.Zero(t, s.PeakDaily)
}

func TestAggregateIgnoresFutureRequests(t *testing.T) {
	snap := model.Snapshot{Requests: []model.Request{req(1, 1, model.RequestCheckin, now.Add(time.Hour))}}
	rep := Aggregate(snap, now)
	assert.Equal(t, 1, rep.Totals.Requests)
	assert.Empty(t, rep.RecentActivity)
}

func TestSummarize(t *testing.T) {
	s := Summarize(fixture(), now)

	assert.Equal(t, 2, s.Children)
	assert.Equal(t, 4, s.RecentTotal)

	require.NotNil(t, s.Response)
	assert.Equal(t, 3, s.Response.Count)
	assert.InDelta(t, 20.0, s.Response.AverageMinute, 1e-9)
	assert.InDelta(t, 20.0, s.Response.MedianMinute, 1e-9)
	assert.InDelta(t, 10.0, s.Response.MinMinute, 1e-9)
	assert.InDelta(t, 30.0, s.Response.MaxMinute, 1e-9)

	assert.Equal(t, 2, s.PeakDaily)
	assert.InDelta(t, 5.0/4.0, s.AvgDaily, 1e-9)
	assert.Equal(t, 2, s.Hourly[13])

	// Alice and Bob both have two requests; Alice wins on name.
	require.NotNil(t, s.MostActive)
	assert.Equal(t, "Alice", s.MostActive.Name)
	assert.Equal(t, 2, s.MostActive.Requests)
}

func TestMedianEvenCount(t *testing.T) {
	r := responseStats([]float64{4, 1, 3, 2})
	require.NotNil(t, r)
	assert.InDelta(t, 2.5, r.MedianMinute, 1e-9)
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, Summarize(fixture(), now)))
	out := buf.String()

	assert.Contains(t, out, "Total Requests: 5")
	assert.Contains(t, out, "- Rejected: 1 (20.0%)")
	assert.Contains(t, out, "Check-in Requests: 3 (60.0%)")
	assert.Contains(t, out, "Median Response Time: 20.0 minutes")
	assert.Contains(t, out, "Most Active Parent: Alice (2 requests)")
	assert.Contains(t, out, "- 2025-03-09: 2 requests")

	buf.Reset()
	require.NoError(t, WriteText(&buf, Summarize(model.Snapshot{}, now)))
	assert.NotContains(t, buf.String(), "RESPONSE TIME")
	assert.NotContains(t, buf.String(), "RECENT ACTIVITY")
}
