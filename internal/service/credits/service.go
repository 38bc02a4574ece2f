package credits

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
	"github.com/jmehdipour/officer-portal/internal/util"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrOfficerNotFound     = errors.New("officer not found")
	ErrPlanNotFound        = errors.New("rate plan not found")
	ErrNoPlan              = errors.New("officer does not have an assigned plan")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrNegativeCredits     = errors.New("credits cannot be negative")
	ErrDuplicateOfficer    = errors.New("an officer with this email or mobile number already exists")
	ErrInvalidInput        = errors.New("invalid input")
)

// InsufficientError carries the amounts behind ErrInsufficientCredits.
type InsufficientError struct {
	Required  decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientError) Error() string {
	return fmt.Sprintf("Insufficient credits. Required: %s, Available: %s",
		e.Required.StringFixed(2), e.Available.StringFixed(2))
}

func (e *InsufficientError) Is(target error) bool { return target == ErrInsufficientCredits }

func invalid(msg string) error { return fmt.Errorf("%w: %s", ErrInvalidInput, msg) }

// Service owns every change to an officer's balance and plan cycle. Each
// mutation runs in one DB transaction holding the officer row lock.
type Service struct {
	db       *sqlx.DB
	officers repository.OfficersRepository
	plans    repository.PlansRepository
	txns     repository.TransactionsRepository
	outbox   repository.OutboxRepository

	defaultPassword string
	bcryptCost      int
	now             func() time.Time
}

func New(
	db *sqlx.DB,
	officersRepo repository.OfficersRepository,
	plansRepo repository.PlansRepository,
	txnsRepo repository.TransactionsRepository,
	outboxRepo repository.OutboxRepository,
	defaultPassword string,
	bcryptCost int,
) *Service {
	if defaultPassword == "" {
		defaultPassword = "defaultpass"
	}
	return &Service{
		db:              db,
		officers:        officersRepo,
		plans:           plansRepo,
		txns:            txnsRepo,
		outbox:          outboxRepo,
		defaultPassword: defaultPassword,
		bcryptCost:      bcryptCost,
		now:             time.Now,
	}
}

// NewOfficer is the admin form for creating an officer.
type NewOfficer struct {
	Name             string              `json:"name"`
	Mobile           string              `json:"mobile"`
	Email            string              `json:"email"`
	Password         string              `json:"password"`
	TelegramID       *string             `json:"telegram_id"`
	Department       *string             `json:"department"`
	Rank             *string             `json:"rank"`
	BadgeNumber      *string             `json:"badge_number"`
	Status           model.OfficerStatus `json:"status"`
	CreditsRemaining decimal.Decimal     `json:"credits_remaining"`
	TotalCredits     decimal.Decimal     `json:"total_credits"`
	PlanID           *string             `json:"plan_id"`
}

// OfficerPatch holds the fields to change; nil leaves a field as is.
// An empty PlanID removes the officer's plan.
type OfficerPatch struct {
	Name             *string              `json:"name"`
	Mobile           *string              `json:"mobile"`
	Email            *string              `json:"email"`
	Password         *string              `json:"password"`
	TelegramID       *string              `json:"telegram_id"`
	Department       *string              `json:"department"`
	Rank             *string              `json:"rank"`
	BadgeNumber      *string              `json:"badge_number"`
	Status           *model.OfficerStatus `json:"status"`
	CreditsRemaining *decimal.Decimal     `json:"credits_remaining"`
	TotalCredits     *decimal.Decimal     `json:"total_credits"`
	TotalQueries     *int64               `json:"total_queries"`
	PlanID           *string              `json:"plan_id"`
}

func (s *Service) GetOfficer(ctx context.Context, id string) (*model.Officer, error) {
	o, err := s.officers.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get officer: %w", err)
	}
	if o == nil {
		return nil, ErrOfficerNotFound
	}
	return o, nil
}

func (s *Service) ListOfficers(ctx context.Context) ([]model.Officer, error) {
	return s.officers.List(ctx)
}

// AddOfficer creates an officer. With a plan the opening balance is the plan's
// default credits, otherwise the supplied amounts are used.
func (s *Service) AddOfficer(ctx context.Context, in NewOfficer) (*model.Officer, error) {
	name := strings.TrimSpace(in.Name)
	mobile := util.NormalizeMobile(in.Mobile)
	email := util.NormalizeEmail(in.Email)

	if name == "" {
		return nil, invalid("name is required")
	}
	if !util.TenDigits(mobile) {
		return nil, invalid("mobile must be 10 digits")
	}
	if !util.ValidEmail(email) {
		return nil, invalid("a valid email is required")
	}

	status := in.Status
	if status == "" {
		status = model.OfficerActive
	}
	if !status.Valid() {
		return nil, invalid("status must be Active or Suspended")
	}

	remaining, total := in.CreditsRemaining, in.TotalCredits
	var planID *string
	if in.PlanID != nil && *in.PlanID != "" {
		plan, err := s.plans.Get(ctx, *in.PlanID)
		if err != nil {
			return nil, fmt.Errorf("get plan: %w", err)
		}
		if plan == nil {
			return nil, ErrPlanNotFound
		}
		remaining, total = plan.DefaultCredits, plan.DefaultCredits
		planID = &plan.ID
	}
	if remaining.IsNegative() || total.IsNegative() {
		return nil, ErrNegativeCredits
	}

	pw := strings.TrimSpace(in.Password)
	if pw == "" {
		pw = s.defaultPassword
	}
	hash, err := util.HashPassword(pw, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	o := model.Officer{
		ID:               util.NewID(),
		Name:             name,
		Mobile:           mobile,
		Email:            email,
		PasswordHash:     hash,
		TelegramID:       in.TelegramID,
		Department:       in.Department,
		Rank:             in.Rank,
		BadgeNumber:      in.BadgeNumber,
		Status:           status,
		CreditsRemaining: remaining,
		TotalCredits:     total,
		PlanID:           planID,
		PlanStartDate:    &now,
		RegisteredOn:     now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.officers.Insert(ctx, nil, o); err != nil {
		if repository.IsDuplicate(err) {
			return nil, ErrDuplicateOfficer
		}
		return nil, fmt.Errorf("insert officer: %w", err)
	}

	logger.Log.Info("officer created",
		zap.String("officer_id", o.ID),
		zap.Stringp("plan_id", planID),
		zap.String("credits", remaining.StringFixed(2)),
	)
	return &o, nil
}

// UpdateOfficer merges patch into the officer. When the merged plan has expired
// and the patch does not reactivate the officer, the renewal matrix is applied
// and the returned outcome describes it.
func (s *Service) UpdateOfficer(ctx context.Context, id string, p OfficerPatch) (*model.Officer, *ExpiryOutcome, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = tx.Rollback() }()

	cur, err := s.officers.GetForUpdate(ctx, tx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("lock officer: %w", err)
	}
	if cur == nil {
		return nil, nil, ErrOfficerNotFound
	}

	o, err := merge(*cur, p)
	if err != nil {
		return nil, nil, err
	}

	now := s.now()
	var outcome *ExpiryOutcome

	if o.PlanID != nil {
		plan, err := s.plans.Get(ctx, *o.PlanID)
		if err != nil {
			return nil, nil, fmt.Errorf("get plan: %w", err)
		}
		if plan == nil {
			return nil, nil, ErrPlanNotFound
		}

		reactivating := p.Status != nil && *p.Status == model.OfficerActive
		if PlanExpired(*plan, o.PlanAnchor(), now) && !reactivating {
			oc := expiryOutcome(o.Name, cur.CreditsRemaining, *plan)
			o.CreditsRemaining = oc.NewCredits
			o.TotalCredits = oc.NewCredits
			o.PlanStartDate = &now
			outcome = &oc
		}
	}

	if p.PlanID != nil && *p.PlanID != "" && (cur.PlanID == nil || *cur.PlanID != *p.PlanID) {
		o.PlanStartDate = &now
	}

	if p.Password != nil && strings.TrimSpace(*p.Password) != "" {
		hash, err := util.HashPassword(strings.TrimSpace(*p.Password), s.bcryptCost)
		if err != nil {
			return nil, nil, fmt.Errorf("hash password: %w", err)
		}
		o.PasswordHash = hash
	}

	if err := s.officers.Update(ctx, tx, o); err != nil {
		if repository.IsDuplicate(err) {
			return nil, nil, ErrDuplicateOfficer
		}
		return nil, nil, fmt.Errorf("update officer: %w", err)
	}

	if !o.CreditsRemaining.Equal(cur.CreditsRemaining) || !o.TotalCredits.Equal(cur.TotalCredits) {
		action := "Update"
		if outcome != nil {
			action = "Expiry"
		}
		moved := o.CreditsRemaining.Sub(cur.CreditsRemaining).Abs()
		if err := s.publish(ctx, tx, o.ID, action, moved, o.CreditsRemaining, o.TotalCredits); err != nil {
			return nil, nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}

	if outcome != nil {
		logger.Log.Info("plan expiry applied on update",
			zap.String("officer_id", o.ID),
			zap.String("previous", outcome.PreviousCredits.StringFixed(2)),
			zap.String("new", outcome.NewCredits.StringFixed(2)),
		)
	}
	o.UpdatedAt = now
	return &o, outcome, nil
}

func merge(o model.Officer, p OfficerPatch) (model.Officer, error) {
	if p.Name != nil {
		if strings.TrimSpace(*p.Name) == "" {
			return o, invalid("name cannot be empty")
		}
		o.Name = strings.TrimSpace(*p.Name)
	}
	if p.Mobile != nil {
		m := util.NormalizeMobile(*p.Mobile)
		if !util.TenDigits(m) {
			return o, invalid("mobile must be 10 digits")
		}
		o.Mobile = m
	}
	if p.Email != nil {
		e := util.NormalizeEmail(*p.Email)
		if !util.ValidEmail(e) {
			return o, invalid("a valid email is required")
		}
		o.Email = e
	}
	if p.TelegramID != nil {
		o.TelegramID = p.TelegramID
	}
	if p.Department != nil {
		o.Department = p.Department
	}
	if p.Rank != nil {
		o.Rank = p.Rank
	}
	if p.BadgeNumber != nil {
		o.BadgeNumber = p.BadgeNumber
	}
	if p.Status != nil {
		if !p.Status.Valid() {
			return o, invalid("status must be Active or Suspended")
		}
		o.Status = *p.Status
	}
	if p.CreditsRemaining != nil {
		o.CreditsRemaining = *p.CreditsRemaining
	}
	if p.TotalCredits != nil {
		o.TotalCredits = *p.TotalCredits
	}
	if p.TotalQueries != nil {
		o.TotalQueries = *p.TotalQueries
	}
	if p.PlanID != nil {
		if *p.PlanID == "" {
			o.PlanID = nil
		} else {
			id := *p.PlanID
			o.PlanID = &id
		}
	}

	if o.CreditsRemaining.IsNegative() || o.TotalCredits.IsNegative() {
		return o, ErrNegativeCredits
	}
	return o, nil
}

func (s *Service) DeleteOfficer(ctx context.Context, id string) error {
	ok, err := s.officers.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete officer: %w", err)
	}
	if !ok {
		return ErrOfficerNotFound
	}
	return nil
}

// RenewResult is returned by RenewPlan.
type RenewResult struct {
	Officer     model.Officer           `json:"officer"`
	Transaction model.CreditTransaction `json:"transaction"`
	Message     string                  `json:"message"`
}

// RenewPlan starts a new plan cycle now. The ledger row records only the
// plan's default credits; any carried balance is already on the officer.
func (s *Service) RenewPlan(ctx context.Context, officerID string) (*RenewResult, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	o, err := s.officers.GetForUpdate(ctx, tx, officerID)
	if err != nil {
		return nil, fmt.Errorf("lock officer: %w", err)
	}
	if o == nil {
		return nil, ErrOfficerNotFound
	}
	if o.PlanID == nil {
		return nil, ErrNoPlan
	}

	plan, err := s.plans.Get(ctx, *o.PlanID)
	if err != nil {
		return nil, fmt.Errorf("get plan: %w", err)
	}
	if plan == nil {
		return nil, ErrNoPlan
	}

	next, remarks := manualRenewal(o.CreditsRemaining, *plan)
	now := s.now()

	o.CreditsRemaining = next
	o.TotalCredits = next
	o.PlanStartDate = &now
	o.Status = model.OfficerActive

	if err := s.officers.Update(ctx, tx, *o); err != nil {
		return nil, fmt.Errorf("update officer: %w", err)
	}

	t := model.CreditTransaction{
		ID:          util.NewID(),
		OfficerID:   o.ID,
		OfficerName: o.Name,
		Action:      model.ActionRenewal,
		Credits:     plan.DefaultCredits,
		PaymentMode: model.PaymentManualRenewal,
		Remarks:     remarks,
		CreatedAt:   now,
	}
	if err := s.txns.Insert(ctx, tx, t); err != nil {
		return nil, fmt.Errorf("insert renewal: %w", err)
	}
	if err := s.publish(ctx, tx, o.ID, string(model.ActionRenewal), plan.DefaultCredits, next, next); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	metrics.CreditsMoved.WithLabelValues(string(model.ActionRenewal)).Add(plan.DefaultCredits.InexactFloat64())

	logger.Log.Info("plan renewed",
		zap.String("officer_id", o.ID),
		zap.String("plan", plan.PlanName),
		zap.String("credits", next.StringFixed(2)),
	)

	return &RenewResult{
		Officer:     *o,
		Transaction: t,
		Message:     fmt.Sprintf("Officer %s's plan renewed successfully! New credits: %s.", o.Name, next.StringFixed(2)),
	}, nil
}

// TransactionInput is an admin-entered ledger row.
type TransactionInput struct {
	OfficerID      string          `json:"officer_id"`
	Action         model.Action    `json:"action"`
	Credits        decimal.Decimal `json:"credits"`
	PaymentMode    string          `json:"payment_mode"`
	Remarks        string          `json:"remarks"`
	IdempotencyKey string          `json:"idempotency_key"`
}

type TransactionResult struct {
	Transaction      *model.CreditTransaction `json:"transaction,omitempty"`
	CreditsRemaining decimal.Decimal          `json:"credits_remaining"`
	TotalCredits     decimal.Decimal          `json:"total_credits"`
	Idempotent       bool                     `json:"idempotent"`
}

// AddTransaction writes a ledger row and moves the balance by it. Replaying
// an idempotency key returns the current balance without writing anything.
func (s *Service) AddTransaction(ctx context.Context, in TransactionInput) (*TransactionResult, error) {
	if in.OfficerID == "" {
		return nil, invalid("officer_id is required")
	}
	action, ok := model.ParseAction(string(in.Action))
	if !ok {
		return nil, invalid("unknown action")
	}
	if in.Credits.IsZero() {
		return nil, invalid("credits must be non-zero")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	o, err := s.officers.GetForUpdate(ctx, tx, in.OfficerID)
	if err != nil {
		return nil, fmt.Errorf("lock officer: %w", err)
	}
	if o == nil {
		return nil, ErrOfficerNotFound
	}

	var idem *string
	if key := strings.TrimSpace(in.IdempotencyKey); key != "" {
		exists, err := s.txns.ExistsByIdem(ctx, tx, key)
		if err != nil {
			return nil, fmt.Errorf("idempotency check: %w", err)
		}
		if exists {
			return &TransactionResult{
				CreditsRemaining: o.CreditsRemaining,
				TotalCredits:     o.TotalCredits,
				Idempotent:       true,
			}, nil
		}
		idem = &key
	}

	amount := in.Credits.Abs()
	t := model.CreditTransaction{
		ID:             util.NewID(),
		OfficerID:      o.ID,
		OfficerName:    o.Name,
		Action:         action,
		Credits:        amount,
		PaymentMode:    in.PaymentMode,
		Remarks:        in.Remarks,
		IdempotencyKey: idem,
		CreatedAt:      s.now(),
	}
	if err := s.txns.Insert(ctx, tx, t); err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}

	remaining, total := ApplyDelta(o.CreditsRemaining, o.TotalCredits, action, amount)
	if err := s.officers.SetCredits(ctx, tx, o.ID, remaining, total); err != nil {
		return nil, fmt.Errorf("set credits: %w", err)
	}
	if err := s.publish(ctx, tx, o.ID, string(action), amount, remaining, total); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	metrics.CreditsMoved.WithLabelValues(string(action)).Add(amount.InexactFloat64())

	return &TransactionResult{
		Transaction:      &t,
		CreditsRemaining: remaining,
		TotalCredits:     total,
	}, nil
}

// DeductRequest charges an officer for a lookup or an approved manual request.
type DeductRequest struct {
	OfficerID   string
	Cost        decimal.Decimal
	PaymentMode string
	Remarks     string
	CountQuery  bool
}

type Deduction struct {
	Transaction      model.CreditTransaction
	Officer          model.Officer
	CreditsRemaining decimal.Decimal
}

// Deduct runs DeductTx in its own transaction.
func (s *Service) Deduct(ctx context.Context, req DeductRequest) (*Deduction, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	d, err := s.DeductTx(ctx, tx, req)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	metrics.CreditsMoved.WithLabelValues(string(model.ActionDeduction)).Add(req.Cost.InexactFloat64())
	return d, nil
}

// DeductTx locks the officer in tx and charges req.Cost, refusing with
// ErrInsufficientCredits when the balance is short. Nothing is committed.
func (s *Service) DeductTx(ctx context.Context, tx *sqlx.Tx, req DeductRequest) (*Deduction, error) {
	if !req.Cost.IsPositive() {
		return nil, invalid("cost must be positive")
	}

	o, err := s.officers.GetForUpdate(ctx, tx, req.OfficerID)
	if err != nil {
		return nil, fmt.Errorf("lock officer: %w", err)
	}
	if o == nil {
		return nil, ErrOfficerNotFound
	}
	if o.CreditsRemaining.LessThan(req.Cost) {
		return nil, &InsufficientError{Required: req.Cost, Available: o.CreditsRemaining}
	}

	if err := s.officers.Deduct(ctx, tx, o.ID, req.Cost, req.CountQuery); err != nil {
		return nil, fmt.Errorf("deduct: %w", err)
	}

	t := model.CreditTransaction{
		ID:          util.NewID(),
		OfficerID:   o.ID,
		OfficerName: o.Name,
		Action:      model.ActionDeduction,
		Credits:     req.Cost,
		PaymentMode: req.PaymentMode,
		Remarks:     req.Remarks,
		CreatedAt:   s.now(),
	}
	if err := s.txns.Insert(ctx, tx, t); err != nil {
		return nil, fmt.Errorf("insert deduction: %w", err)
	}

	remaining := o.CreditsRemaining.Sub(req.Cost)
	if err := s.publish(ctx, tx, o.ID, string(model.ActionDeduction), req.Cost, remaining, o.TotalCredits); err != nil {
		return nil, err
	}

	return &Deduction{Transaction: t, Officer: *o, CreditsRemaining: remaining}, nil
}

func (s *Service) ListTransactions(ctx context.Context, officerID string, limit, offset int) ([]model.CreditTransaction, error) {
	return s.txns.List(ctx, officerID, limit, offset)
}

func (s *Service) publish(ctx context.Context, tx *sqlx.Tx, officerID, action string, amount, remaining, total decimal.Decimal) error {
	ev := model.CreditsChanged{
		OfficerID:        officerID,
		Action:           action,
		Credits:          amount.StringFixed(2),
		CreditsRemaining: remaining.StringFixed(2),
		TotalCredits:     total.StringFixed(2),
		At:               s.now().UTC(),
	}
	if err := s.outbox.Insert(ctx, tx, "officer", officerID, model.TopicCredits, ev); err != nil {
		return fmt.Errorf("insert outbox: %w", err)
	}
	return nil
}
