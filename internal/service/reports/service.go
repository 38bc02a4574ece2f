package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmehdipour/officer-portal/internal/model"
	"github.com/jmehdipour/officer-portal/internal/repository"
)

var (
	ErrUnavailable  = errors.New("analytics store is not configured")
	ErrInvalidRange = errors.New("from must be before to")
)

const defaultRange = 30 * 24 * time.Hour

// Service answers analytics questions from ClickHouse query_events.
type Service struct {
	events repository.CHQueryEventsRepository
	now    func() time.Time
}

func New(events repository.CHQueryEventsRepository) *Service {
	return &Service{events: events, now: time.Now}
}

func (s *Service) ListQueryEvents(ctx context.Context, f repository.QueryEventsFilter) ([]model.QueryEvent, error) {
	if s.events == nil {
		return nil, ErrUnavailable
	}
	rows, err := s.events.ListEvents(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list query events: %w", err)
	}
	if rows == nil {
		rows = []model.QueryEvent{}
	}
	return rows, nil
}

// CategoryUsage aggregates [from, to). Zero bounds default to the last 30 days.
func (s *Service) CategoryUsage(ctx context.Context, from, to time.Time) ([]model.CategoryUsage, error) {
	if s.events == nil {
		return nil, ErrUnavailable
	}
	if to.IsZero() {
		to = s.now()
	}
	if from.IsZero() {
		from = to.Add(-defaultRange)
	}
	if !from.Before(to) {
		return nil, ErrInvalidRange
	}

	rows, err := s.events.CategoryUsage(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("category usage: %w", err)
	}
	if rows == nil {
		rows = []model.CategoryUsage{}
	}
	return rows, nil
}
