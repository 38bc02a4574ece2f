package stats

import (
	"context"
	"time"

	"github.com/jmehdipour/officer-portal/internal/logger"
	"github.com/jmehdipour/officer-portal/internal/model"
	"github.com/jmehdipour/officer-portal/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Service computes the admin dashboard counters.
type Service struct {
	officers repository.OfficersRepository
	queries  repository.QueriesRepository
	txns     repository.TransactionsRepository
	events   repository.CHQueryEventsRepository // optional
	now      func() time.Time
}

func New(
	officers repository.OfficersRepository,
	queries repository.QueriesRepository,
	txns repository.TransactionsRepository,
	events repository.CHQueryEventsRepository,
) *Service {
	return &Service{officers: officers, queries: queries, txns: txns, events: events, now: time.Now}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Dashboard runs every counter concurrently. Latency comes from ClickHouse
// and degrades to 0 when analytics are unavailable.
func (s *Service) Dashboard(ctx context.Context) (*model.DashboardStats, error) {
	out := &model.DashboardStats{RevenueToday: decimal.Zero}
	today := startOfDay(s.now())

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		total, active, err := s.officers.Counts(gctx)
		out.TotalOfficers, out.ActiveOfficers = total, active
		return err
	})
	g.Go(func() error {
		n, err := s.queries.CountSince(gctx, today)
		out.TotalQueriesToday = n
		return err
	})
	g.Go(func() error {
		n, err := s.queries.CountByStatus(gctx, model.QuerySuccess)
		out.SuccessfulQueries = n
		return err
	})
	g.Go(func() error {
		n, err := s.queries.CountByStatus(gctx, model.QueryFailed)
		out.FailedQueries = n
		return err
	})
	g.Go(func() error {
		sum, err := s.txns.SumCredits(gctx, model.ActionDeduction)
		out.TotalCreditsUsed = sum
		return err
	})

	var avgMs float64
	if s.events != nil {
		g.Go(func() error {
			v, err := s.events.AvgLatencySince(gctx, today)
			if err != nil {
				logger.Log.Warn("average latency unavailable", zap.Error(err))
				return nil
			}
			avgMs = v
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	out.AverageResponseTime = avgMs / 1000
	return out, nil
}
