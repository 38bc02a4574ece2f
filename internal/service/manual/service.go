package manual

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmehdipour/officer-portal/internal/logger"
	"github.com/jmehdipour/officer-portal/internal/metrics"
	"github.com/jmehdipour/officer-portal/internal/model"
	"github.com/jmehdipour/officer-portal/internal/repository"
	"github.com/jmehdipour/officer-portal/internal/service/credits"
	"github.com/jmehdipour/officer-portal/internal/service/notification"
	"github.com/jmehdipour/officer-portal/internal/util"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrNotFound     = errors.New("manual request not found")
	ErrNotPending   = errors.New("manual request is not pending")
	ErrInvalidInput = errors.New("invalid input")
)

const historyLink = "/officer/dashboard/history"

func invalid(msg string) error { return fmt.Errorf("%w: %s", ErrInvalidInput, msg) }

type Ledger interface {
	GetOfficer(ctx context.Context, id string) (*model.Officer, error)
	DeductTx(ctx context.Context, tx *sqlx.Tx, req credits.DeductRequest) (*credits.Deduction, error)
}

type Notifier interface {
	Add(ctx context.Context, tx *sqlx.Tx, m notification.Message) (*model.Notification, error)
}

type Service struct {
	db       *sqlx.DB
	repo     repository.ManualRequestsRepository
	ledger   Ledger
	notifier Notifier
	now      func() time.Time
}

func New(db *sqlx.DB, repo repository.ManualRequestsRepository, ledger Ledger, notifier Notifier) *Service {
	return &Service{db: db, repo: repo, ledger: ledger, notifier: notifier, now: time.Now}
}

type CreateInput struct {
	InputType  string  `json:"input_type"`
	InputValue string  `json:"input_value"`
	Notes      *string `json:"notes"`
}

func (s *Service) Create(ctx context.Context, officerID string, in CreateInput) (*model.ManualRequest, error) {
	typ, ok := model.ParseInputType(in.InputType)
	if !ok {
		return nil, invalid("input_type must be one of Mobile, Email, PAN, Name, Address, Other")
	}
	value := strings.TrimSpace(in.InputValue)
	if value == "" {
		return nil, invalid("input_value is required")
	}

	o, err := s.ledger.GetOfficer(ctx, officerID)
	if err != nil {
		return nil, err
	}

	m := model.ManualRequest{
		ID:             util.NewID(),
		OfficerID:      o.ID,
		InputType:      typ,
		InputValue:     value,
		Notes:          in.Notes,
		Status:         model.ReviewPending,
		CreditDeducted: decimal.Zero,
		CreatedAt:      s.now(),
	}
	if err := s.repo.Insert(ctx, m); err != nil {
		return nil, fmt.Errorf("insert manual request: %w", err)
	}
	metrics.ManualRequests.WithLabelValues("created").Inc()

	if _, err := s.notifier.Add(ctx, nil, notification.Message{
		Type:    model.NotifyInfo,
		Title:   "New Manual Request",
		Message: fmt.Sprintf("%s requested %s: %s", o.Name, typ, value),
	}); err != nil {
		logger.Log.Warn("manual request notification failed", zap.String("request_id", m.ID), zap.Error(err))
	}
	return &m, nil
}

// List returns every request for officerID, or all requests when officerID is "".
func (s *Service) List(ctx context.Context, officerID string, status model.ReviewStatus) ([]model.ManualRequest, error) {
	if status != "" && !status.Valid() {
		return nil, invalid("unknown status")
	}
	rows, err := s.repo.List(ctx, officerID, status)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []model.ManualRequest{}
	}
	return rows, nil
}

func (s *Service) lockPending(ctx context.Context, tx *sqlx.Tx, id string) (*model.ManualRequest, error) {
	m, err := s.repo.GetForUpdate(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("lock manual request: %w", err)
	}
	if m == nil {
		return nil, ErrNotFound
	}
	if m.Status != model.ReviewPending {
		return nil, ErrNotPending
	}
	return m, nil
}

// Approve charges the officer and resolves the request in one transaction.
func (s *Service) Approve(ctx context.Context, id, adminID string, amount decimal.Decimal, response string) (*model.ManualRequest, error) {
	if !amount.IsPositive() {
		return nil, invalid("credits must be greater than 0")
	}
	response = strings.TrimSpace(response)
	if response == "" {
		response = fmt.Sprintf("Approved. %s credits deducted.", amount.String())
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	m, err := s.lockPending(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if _, err := s.ledger.DeductTx(ctx, tx, credits.DeductRequest{
		OfficerID:   m.OfficerID,
		Cost:        amount,
		PaymentMode: model.PaymentManualRequest,
		Remarks:     fmt.Sprintf("Manual request approved: %s - %s", m.InputType, m.InputValue),
		CountQuery:  true,
	}); err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.repo.Resolve(ctx, tx, m.ID, model.ReviewApproved, response, amount, adminID, now); err != nil {
		return nil, fmt.Errorf("resolve manual request: %w", err)
	}

	link := historyLink
	if _, err := s.notifier.Add(ctx, tx, notification.Message{
		OfficerID: &m.OfficerID,
		Type:      model.NotifySuccess,
		Title:     "Manual Request Approved!",
		Message: fmt.Sprintf(`Your request for "%s: %s" has been approved. %s credits deducted. Admin response: "%s"`,
			m.InputType, m.InputValue, amount.String(), response),
		Link: &link,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	metrics.ManualRequests.WithLabelValues("approved").Inc()
	metrics.CreditsMoved.WithLabelValues(string(model.ActionDeduction)).Add(amount.InexactFloat64())

	m.Status = model.ReviewApproved
	m.AdminResponse = &response
	m.CreditDeducted = amount
	m.ApprovedBy = &adminID
	m.ApprovedAt = &now
	return m, nil
}

func (s *Service) Reject(ctx context.Context, id, adminID, response string) (*model.ManualRequest, error) {
	response = strings.TrimSpace(response)
	if response == "" {
		response = "Rejected."
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	m, err := s.lockPending(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.repo.Resolve(ctx, tx, m.ID, model.ReviewRejected, response, decimal.Zero, adminID, now); err != nil {
		return nil, fmt.Errorf("resolve manual request: %w", err)
	}

	link := historyLink
	if _, err := s.notifier.Add(ctx, tx, notification.Message{
		OfficerID: &m.OfficerID,
		Type:      model.NotifyError,
		Title:     "Manual Request Rejected!",
		Message: fmt.Sprintf(`Your request for "%s: %s" has been rejected. Admin response: "%s"`,
			m.InputType, m.InputValue, response),
		Link: &link,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	metrics.ManualRequests.WithLabelValues("rejected").Inc()

	m.Status = model.ReviewRejected
	m.AdminResponse = &response
	m.CreditDeducted = decimal.Zero
	m.ApprovedBy = &adminID
	m.ApprovedAt = &now
	return m, nil
}
