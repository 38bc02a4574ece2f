package registration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmehdipour/officer-portal/internal/logger"
	"github.com/jmehdipour/officer-portal/internal/model"
	"github.com/jmehdipour/officer-portal/internal/repository"
	"github.com/jmehdipour/officer-portal/internal/service/credits"
	"github.com/jmehdipour/officer-portal/internal/service/notification"
	"github.com/jmehdipour/officer-portal/internal/util"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

var (
	ErrNotFound     = errors.New("registration not found")
	ErrNotPending   = errors.New("registration is not pending")
	ErrDuplicate    = errors.New("a registration with this email or mobile number already exists")
	ErrInvalidInput = errors.New("invalid input")
)

func invalid(msg string) error { return fmt.Errorf("%w: %s", ErrInvalidInput, msg) }

type OfficerCreator interface {
	AddOfficer(ctx context.Context, in credits.NewOfficer) (*model.Officer, error)
}

type Notifier interface {
	Add(ctx context.Context, tx *sqlx.Tx, m notification.Message) (*model.Notification, error)
}

type Service struct {
	repo     repository.RegistrationsRepository
	officers OfficerCreator
	notifier Notifier
	now      func() time.Time
}

func New(repo repository.RegistrationsRepository, officers OfficerCreator, notifier Notifier) *Service {
	return &Service{repo: repo, officers: officers, notifier: notifier, now: time.Now}
}

// Form is the public self-registration form.
type Form struct {
	Name           string  `json:"name"`
	Mobile         string  `json:"mobile"`
	Email          string  `json:"email"`
	Station        *string `json:"station"`
	Department     *string `json:"department"`
	Rank           *string `json:"rank"`
	BadgeNumber    *string `json:"badge_number"`
	AdditionalInfo *string `json:"additional_info"`
}

func (s *Service) Submit(ctx context.Context, f Form) (*model.OfficerRegistration, error) {
	name := strings.TrimSpace(f.Name)
	if name == "" {
		return nil, invalid("name is required")
	}
	mobile := util.NormalizeMobile(f.Mobile)
	if !util.TenDigits(mobile) {
		return nil, invalid("mobile must be 10 digits")
	}
	email := util.NormalizeEmail(f.Email)
	if !util.ValidEmail(email) {
		return nil, invalid("email is not valid")
	}

	r := model.OfficerRegistration{
		ID:             util.NewID(),
		Name:           name,
		Mobile:         mobile,
		Email:          email,
		Station:        f.Station,
		Department:     f.Department,
		Rank:           f.Rank,
		BadgeNumber:    f.BadgeNumber,
		AdditionalInfo: f.AdditionalInfo,
		Status:         model.ReviewPending,
		CreatedAt:      s.now(),
	}
	if err := s.repo.Insert(ctx, r); err != nil {
		if repository.IsDuplicate(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("insert registration: %w", err)
	}

	if _, err := s.notifier.Add(ctx, nil, notification.Message{
		Type:    model.NotifyInfo,
		Title:   "New Officer Registration",
		Message: fmt.Sprintf("%s (%s) requested an officer account.", name, email),
	}); err != nil {
		logger.Log.Warn("registration notification failed", zap.String("registration_id", r.ID), zap.Error(err))
	}
	return &r, nil
}

func (s *Service) List(ctx context.Context, status model.ReviewStatus) ([]model.OfficerRegistration, error) {
	if status != "" && !status.Valid() {
		return nil, invalid("unknown status")
	}
	rows, err := s.repo.List(ctx, status)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []model.OfficerRegistration{}
	}
	return rows, nil
}

func (s *Service) pending(ctx context.Context, id string) (*model.OfficerRegistration, error) {
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get registration: %w", err)
	}
	if r == nil {
		return nil, ErrNotFound
	}
	if r.Status != model.ReviewPending {
		return nil, ErrNotPending
	}
	return r, nil
}

// Review records an admin decision without creating an officer.
func (s *Service) Review(ctx context.Context, id string, status model.ReviewStatus, adminID string, reason *string) (*model.OfficerRegistration, error) {
	if status != model.ReviewApproved && status != model.ReviewRejected {
		return nil, invalid("status must be approved or rejected")
	}
	r, err := s.pending(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if status == model.ReviewApproved {
		reason = nil
	}
	if err := s.repo.Review(ctx, nil, r.ID, status, adminID, reason, now); err != nil {
		return nil, fmt.Errorf("review registration: %w", err)
	}

	r.Status = status
	r.ReviewedBy = &adminID
	r.ReviewedAt = &now
	r.RejectionReason = reason
	return r, nil
}

type ApproveInput struct {
	Password string  `json:"password"`
	PlanID   *string `json:"plan_id"`
}

// Approve creates the officer from the registration, then marks it approved.
func (s *Service) Approve(ctx context.Context, id, adminID string, in ApproveInput) (*model.Officer, error) {
	r, err := s.pending(ctx, id)
	if err != nil {
		return nil, err
	}

	o, err := s.officers.AddOfficer(ctx, credits.NewOfficer{
		Name:        r.Name,
		Mobile:      r.Mobile,
		Email:       r.Email,
		Password:    in.Password,
		Department:  r.Department,
		Rank:        r.Rank,
		BadgeNumber: r.BadgeNumber,
		Status:      model.OfficerActive,
		PlanID:      in.PlanID,
	})
	if err != nil {
		return nil, err
	}

	if err := s.repo.Review(ctx, nil, r.ID, model.ReviewApproved, adminID, nil, s.now()); err != nil {
		return nil, fmt.Errorf("review registration: %w", err)
	}
	logger.Log.Info("registration approved", zap.String("registration_id", r.ID), zap.String("officer_id", o.ID))
	return o, nil
}

func (s *Service) Reject(ctx context.Context, id, adminID, reason string) (*model.OfficerRegistration, error) {
	var rp *string
	if reason = strings.TrimSpace(reason); reason != "" {
		rp = &reason
	}
	return s.Review(ctx, id, model.ReviewRejected, adminID, rp)
}
