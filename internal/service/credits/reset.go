package credits

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmehdipour/officer-portal/internal/logger"
	"github.com/jmehdipour/officer-portal/internal/metrics"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const resetReason = "Plan expired and no carry forward"

type ResetEntry struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	OldCreditsRemaining decimal.Decimal `json:"old_credits_remaining"`
	OldTotalCredits     decimal.Decimal `json:"old_total_credits"`
	NewCredits          decimal.Decimal `json:"new_credits"`
	Reason              string          `json:"reason"`
}

// ResetReport is the result of one expiry run. Checked is the number of
// officers with a plan; when it is zero only the message is serialized.
type ResetReport struct {
	Message              string       `json:"message"`
	UpdatedOfficersCount int          `json:"updated_officers_count"`
	UpdatedOfficers      []ResetEntry `json:"updated_officers"`
	Checked              int          `json:"-"`
}

func (r ResetReport) MarshalJSON() ([]byte, error) {
	if r.Checked == 0 {
		return json.Marshal(struct {
			Message string `json:"message"`
		}{r.Message})
	}
	type report ResetReport
	return json.Marshal(report(r))
}

// ResetExpiredCredits sets both balances of every officer whose plan expired
// without carry-forward to the plan's default credits. plan_start_date is left
// alone, so later runs see the same officers and skip them once the balance matches.
// A failed update is logged and the run continues.
func (s *Service) ResetExpiredCredits(ctx context.Context) (ResetReport, error) {
	rows, err := s.officers.ListWithPlans(ctx)
	if err != nil {
		return ResetReport{}, fmt.Errorf("list officers with plans: %w", err)
	}
	if len(rows) == 0 {
		logger.Log.Info("no officers with plans found")
		return ResetReport{Message: "No officers with plans to check."}, nil
	}

	now := s.now()
	report := ResetReport{
		Message:         "Credit reset check completed.",
		UpdatedOfficers: []ResetEntry{},
		Checked:         len(rows),
	}

	for _, o := range rows {
		target, ok := resetTarget(o, now)
		if !ok {
			continue
		}
		if o.CreditsRemaining.Equal(target) && o.TotalCredits.Equal(target) {
			continue
		}

		if err := s.resetOne(ctx, o.ID, target); err != nil {
			logger.Log.Error("credit reset failed", zap.String("officer_id", o.ID), zap.Error(err))
			continue
		}

		report.UpdatedOfficers = append(report.UpdatedOfficers, ResetEntry{
			ID:                  o.ID,
			Name:                o.Name,
			OldCreditsRemaining: o.CreditsRemaining,
			OldTotalCredits:     o.TotalCredits,
			NewCredits:          target,
			Reason:              resetReason,
		})
		logger.Log.Info("credits reset",
			zap.String("officer_id", o.ID),
			zap.String("old", o.CreditsRemaining.StringFixed(2)+"/"+o.TotalCredits.StringFixed(2)),
			zap.String("new", target.StringFixed(2)),
		)
	}

	report.UpdatedOfficersCount = len(report.UpdatedOfficers)
	metrics.CreditsResetOfficers.Add(float64(report.UpdatedOfficersCount))

	logger.Log.Info("credit reset check completed",
		zap.Int("checked", report.Checked),
		zap.Int("updated", report.UpdatedOfficersCount),
	)
	return report, nil
}

func (s *Service) resetOne(ctx context.Context, officerID string, credits decimal.Decimal) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.officers.SetCredits(ctx, tx, officerID, credits, credits); err != nil {
		return err
	}
	if err := s.publish(ctx, tx, officerID, "Reset", credits, credits, credits); err != nil {
		return err
	}
	return tx.Commit()
}
