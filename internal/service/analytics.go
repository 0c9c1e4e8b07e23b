package service

import (
	"context"
	"fmt"
	"time"

	"github.com/iliyamo/kidcheck/internal/analytics"
	"github.com/iliyamo/kidcheck/internal/model"
	"github.com/iliyamo/kidcheck/internal/session"
)

// AnalyticsService runs the aggregator over a fresh snapshot.
type AnalyticsService struct {
	store SnapshotStore
	now   func() time.Time
}

func NewAnalyticsService(store SnapshotStore) *AnalyticsService {
	return &AnalyticsService{store: store, now: time.Now}
}

// SetClock replaces the time source.
func (s *AnalyticsService) SetClock(now func() time.Time) { s.now = now }

func (s *AnalyticsService) snapshot(ctx context.Context, actor model.Actor) (model.Snapshot, error) {
	if err := session.Authorize(actor, session.OpViewAnalytics); err != nil {
		return model.Snapshot{}, err
	}
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("snapshot: %w", err)
	}
	return snap, nil
}

// Report returns the live analytics report.
func (s *AnalyticsService) Report(ctx context.Context, actor model.Actor) (analytics.Report, error) {
	snap, err := s.snapshot(ctx, actor)
	if err != nil {
		return analytics.Report{}, err
	}
	return analytics.Aggregate(snap, s.now()), nil
}

// Summary returns the report together with the extended statistics.
func (s *AnalyticsService) Summary(ctx context.Context, actor model.Actor) (analytics.Summary, error) {
	snap, err := s.snapshot(ctx, actor)
	if err != nil {
		return analytics.Summary{}, err
	}
	return analytics.Summarize(snap, s.now()), nil
}
