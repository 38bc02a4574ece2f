package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/jmehdipour/officer-portal/internal/logger"
	"github.com/jmehdipour/officer-portal/internal/model"
	"github.com/jmehdipour/officer-portal/internal/repository"
	"github.com/jmehdipour/officer-portal/internal/util"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrAPINotFound     = errors.New("api not found")
	ErrPlanNotFound    = errors.New("rate plan not found")
	ErrOfficerNotFound = errors.New("officer not found")
	ErrDuplicateAPI    = errors.New("an API with this name already exists")
	ErrDuplicatePlan   = errors.New("a rate plan with this name and user type already exists")
	ErrInvalidInput    = errors.New("invalid input")
)

func invalid(msg string) error { return fmt.Errorf("%w: %s", ErrInvalidInput, msg) }

// Service manages the vendor API catalog and rate plans, and answers which
// APIs an officer's plan enables.
type Service struct {
	db       *sqlx.DB
	apis     repository.APIsRepository
	plans    repository.PlansRepository
	officers repository.OfficersRepository

	// enabled APIs keyed by plan id; purged on every catalog or plan write
	enabled *expirable.LRU[string, []model.EnabledAPI]
}

func New(
	db *sqlx.DB,
	apisRepo repository.APIsRepository,
	plansRepo repository.PlansRepository,
	officersRepo repository.OfficersRepository,
	cacheSize int,
	cacheTTL time.Duration,
) *Service {
	if cacheSize <= 0 {
		cacheSize = 128
	}
	return &Service{
		db:       db,
		apis:     apisRepo,
		plans:    plansRepo,
		officers: officersRepo,
		enabled:  expirable.NewLRU[string, []model.EnabledAPI](cacheSize, nil, cacheTTL),
	}
}

// ---- API catalog ----

type APIInput struct {
	Name                string          `json:"name"`
	Type                string          `json:"type"`
	ServiceProvider     string          `json:"service_provider"`
	GlobalBuyPrice      decimal.Decimal `json:"global_buy_price"`
	GlobalSellPrice     decimal.Decimal `json:"global_sell_price"`
	DefaultCreditCharge decimal.Decimal `json:"default_credit_charge"`
	Description         *string         `json:"description"`
	APIKey              string          `json:"api_key"`
	KeyStatus           string          `json:"key_status"`
}

type APIPatch struct {
	Name                *string          `json:"name"`
	Type                *string          `json:"type"`
	ServiceProvider     *string          `json:"service_provider"`
	GlobalBuyPrice      *decimal.Decimal `json:"global_buy_price"`
	GlobalSellPrice     *decimal.Decimal `json:"global_sell_price"`
	DefaultCreditCharge *decimal.Decimal `json:"default_credit_charge"`
	Description         *string          `json:"description"`
	APIKey              *string          `json:"api_key"`
	KeyStatus           *string          `json:"key_status"`
}

func validateAPI(a model.API) error {
	if a.Name == "" {
		return invalid("name is required")
	}
	if a.ServiceProvider == "" {
		return invalid("service_provider is required")
	}
	if a.GlobalBuyPrice.IsNegative() || a.GlobalSellPrice.IsNegative() || a.DefaultCreditCharge.IsNegative() {
		return invalid("prices cannot be negative")
	}
	if a.KeyStatus != model.KeyActive && a.KeyStatus != model.KeyInactive {
		return invalid("key_status must be Active or Inactive")
	}
	return nil
}

func (s *Service) CreateAPI(ctx context.Context, in APIInput) (*model.API, error) {
	now := time.Now()
	a := model.API{
		ID:                  util.NewID(),
		Name:                strings.TrimSpace(in.Name),
		Type:                strings.TrimSpace(in.Type),
		ServiceProvider:     strings.TrimSpace(in.ServiceProvider),
		GlobalBuyPrice:      in.GlobalBuyPrice,
		GlobalSellPrice:     in.GlobalSellPrice,
		DefaultCreditCharge: in.DefaultCreditCharge,
		Description:         in.Description,
		APIKey:              strings.TrimSpace(in.APIKey),
		KeyStatus:           in.KeyStatus,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if a.KeyStatus == "" {
		a.KeyStatus = model.KeyInactive
	}
	if err := validateAPI(a); err != nil {
		return nil, err
	}

	if err := s.apis.Insert(ctx, a); err != nil {
		if repository.IsDuplicate(err) {
			return nil, ErrDuplicateAPI
		}
		return nil, fmt.Errorf("insert api: %w", err)
	}
	s.enabled.Purge()

	logger.Log.Info("api created", zap.String("api_id", a.ID), zap.String("name", a.Name))
	return &a, nil
}

func (s *Service) UpdateAPI(ctx context.Context, id string, p APIPatch) (*model.API, error) {
	a, err := s.apis.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get api: %w", err)
	}
	if a == nil {
		return nil, ErrAPINotFound
	}

	if p.Name != nil {
		a.Name = strings.TrimSpace(*p.Name)
	}
	if p.Type != nil {
		a.Type = strings.TrimSpace(*p.Type)
	}
	if p.ServiceProvider != nil {
		a.ServiceProvider = strings.TrimSpace(*p.ServiceProvider)
	}
	if p.GlobalBuyPrice != nil {
		a.GlobalBuyPrice = *p.GlobalBuyPrice
	}
	if p.GlobalSellPrice != nil {
		a.GlobalSellPrice = *p.GlobalSellPrice
	}
	if p.DefaultCreditCharge != nil {
		a.DefaultCreditCharge = *p.DefaultCreditCharge
	}
	if p.Description != nil {
		a.Description = p.Description
	}
	if p.APIKey != nil {
		a.APIKey = strings.TrimSpace(*p.APIKey)
	}
	if p.KeyStatus != nil {
		a.KeyStatus = *p.KeyStatus
	}
	if err := validateAPI(*a); err != nil {
		return nil, err
	}

	if err := s.apis.Update(ctx, *a); err != nil {
		if repository.IsDuplicate(err) {
			return nil, ErrDuplicateAPI
		}
		return nil, fmt.Errorf("update api: %w", err)
	}
	s.enabled.Purge()

	a.UpdatedAt = time.Now()
	return a, nil
}

func (s *Service) DeleteAPI(ctx context.Context, id string) error {
	ok, err := s.apis.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete api: %w", err)
	}
	if !ok {
		return ErrAPINotFound
	}
	s.enabled.Purge()
	return nil
}

// ListAPIs returns the catalog with vendor keys masked.
func (s *Service) ListAPIs(ctx context.Context) ([]model.API, error) {
	rows, err := s.apis.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i] = rows[i].Masked()
	}
	return rows, nil
}

// ---- Rate plans ----

type PlanInput struct {
	PlanName        string          `json:"plan_name"`
	UserType        string          `json:"user_type"`
	MonthlyFee      decimal.Decimal `json:"monthly_fee"`
	DefaultCredits  decimal.Decimal `json:"default_credits"`
	ValidityDays    *int            `json:"validity_days"`
	RenewalRequired bool            `json:"renewal_required"`
	CarryForward    bool            `json:"carry_forward_credits_on_renewal"`
	Status          string          `json:"status"`
}

type PlanPatch struct {
	PlanName        *string          `json:"plan_name"`
	UserType        *string          `json:"user_type"`
	MonthlyFee      *decimal.Decimal `json:"monthly_fee"`
	DefaultCredits  *decimal.Decimal `json:"default_credits"`
	ValidityDays    *int             `json:"validity_days"`
	ClearValidity   bool             `json:"clear_validity_days"`
	RenewalRequired *bool            `json:"renewal_required"`
	CarryForward    *bool            `json:"carry_forward_credits_on_renewal"`
	Status          *string          `json:"status"`
}

// PlanAPIInput is one row of a plan's API settings.
type PlanAPIInput struct {
	APIID      string          `json:"api_id"`
	Enabled    bool            `json:"enabled"`
	CreditCost decimal.Decimal `json:"credit_cost"`
	BuyPrice   decimal.Decimal `json:"buy_price"`
	SellPrice  decimal.Decimal `json:"sell_price"`
}

func validatePlan(p model.RatePlan) error {
	if p.PlanName == "" || p.UserType == "" {
		return invalid("plan_name and user_type are required")
	}
	if p.MonthlyFee.IsNegative() || p.DefaultCredits.IsNegative() {
		return invalid("monthly_fee and default_credits cannot be negative")
	}
	if p.ValidityDays != nil && *p.ValidityDays < 0 {
		return invalid("validity_days cannot be negative")
	}
	if p.Status != model.KeyActive && p.Status != model.KeyInactive {
		return invalid("status must be Active or Inactive")
	}
	return nil
}

func planAPIRows(settings []PlanAPIInput) ([]model.PlanAPI, error) {
	rows := make([]model.PlanAPI, 0, len(settings))
	seen := make(map[string]bool, len(settings))
	for _, in := range settings {
		if in.APIID == "" {
			return nil, invalid("api_id is required in api settings")
		}
		if seen[in.APIID] {
			return nil, invalid("duplicate api_id " + in.APIID)
		}
		if in.CreditCost.IsNegative() || in.BuyPrice.IsNegative() || in.SellPrice.IsNegative() {
			return nil, invalid("api prices cannot be negative")
		}
		seen[in.APIID] = true
		rows = append(rows, model.PlanAPI{
			ID:         util.NewID(),
			APIID:      in.APIID,
			Enabled:    in.Enabled,
			CreditCost: in.CreditCost,
			BuyPrice:   in.BuyPrice,
			SellPrice:  in.SellPrice,
		})
	}
	return rows, nil
}

// CreatePlan inserts the plan and its API settings in one transaction.
func (s *Service) CreatePlan(ctx context.Context, in PlanInput, settings []PlanAPIInput) (*model.RatePlan, error) {
	now := time.Now()
	p := model.RatePlan{
		ID:              util.NewID(),
		PlanName:        strings.TrimSpace(in.PlanName),
		UserType:        strings.TrimSpace(in.UserType),
		MonthlyFee:      in.MonthlyFee,
		DefaultCredits:  in.DefaultCredits,
		ValidityDays:    in.ValidityDays,
		RenewalRequired: in.RenewalRequired,
		CarryForward:    in.CarryForward,
		Status:          in.Status,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if p.Status == "" {
		p.Status = model.KeyActive
	}
	if err := validatePlan(p); err != nil {
		return nil, err
	}
	rows, err := planAPIRows(settings)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.plans.Insert(ctx, tx, p); err != nil {
		if repository.IsDuplicate(err) {
			return nil, ErrDuplicatePlan
		}
		return nil, fmt.Errorf("insert plan: %w", err)
	}
	if err := s.plans.ReplaceAPIs(ctx, tx, p.ID, rows); err != nil {
		return nil, fmt.Errorf("insert plan apis: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	s.enabled.Purge()

	logger.Log.Info("rate plan created", zap.String("plan_id", p.ID), zap.Int("apis", len(rows)))
	return &p, nil
}

// UpdatePlan applies patch and, when settings is non-nil, replaces the plan's API settings.
func (s *Service) UpdatePlan(ctx context.Context, id string, patch PlanPatch, settings *[]PlanAPIInput) (*model.RatePlan, error) {
	p, err := s.plans.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get plan: %w", err)
	}
	if p == nil {
		return nil, ErrPlanNotFound
	}

	if patch.PlanName != nil {
		p.PlanName = strings.TrimSpace(*patch.PlanName)
	}
	if patch.UserType != nil {
		p.UserType = strings.TrimSpace(*patch.UserType)
	}
	if patch.MonthlyFee != nil {
		p.MonthlyFee = *patch.MonthlyFee
	}
	if patch.DefaultCredits != nil {
		p.DefaultCredits = *patch.DefaultCredits
	}
	if patch.ClearValidity {
		p.ValidityDays = nil
	} else if patch.ValidityDays != nil {
		p.ValidityDays = patch.ValidityDays
	}
	if patch.RenewalRequired != nil {
		p.RenewalRequired = *patch.RenewalRequired
	}
	if patch.CarryForward != nil {
		p.CarryForward = *patch.CarryForward
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	if err := validatePlan(*p); err != nil {
		return nil, err
	}

	var rows []model.PlanAPI
	if settings != nil {
		if rows, err = planAPIRows(*settings); err != nil {
			return nil, err
		}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.plans.Update(ctx, tx, *p); err != nil {
		if repository.IsDuplicate(err) {
			return nil, ErrDuplicatePlan
		}
		return nil, fmt.Errorf("update plan: %w", err)
	}
	if settings != nil {
		if err := s.plans.ReplaceAPIs(ctx, tx, p.ID, rows); err != nil {
			return nil, fmt.Errorf("replace plan apis: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	s.enabled.Remove(p.ID)

	p.UpdatedAt = time.Now()
	return p, nil
}

func (s *Service) DeletePlan(ctx context.Context, id string) error {
	ok, err := s.plans.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	if !ok {
		return ErrPlanNotFound
	}
	s.enabled.Remove(id)
	return nil
}

func (s *Service) ListPlans(ctx context.Context) ([]model.RatePlan, error) {
	return s.plans.List(ctx)
}

func (s *Service) ListPlanAPIs(ctx context.Context, planID string) ([]model.PlanAPI, error) {
	return s.plans.ListAPIs(ctx, planID)
}

// ---- Enabled APIs ----

// EnabledAPIs returns the plan's enabled APIs with plan pricing, from cache when fresh.
func (s *Service) EnabledAPIs(ctx context.Context, planID string) ([]model.EnabledAPI, error) {
	if rows, ok := s.enabled.Get(planID); ok {
		return rows, nil
	}

	rows, err := s.apis.EnabledForPlan(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("enabled apis: %w", err)
	}
	s.enabled.Add(planID, rows)
	return rows, nil
}

// EnabledAPIsForOfficer is empty for officers without a plan.
func (s *Service) EnabledAPIsForOfficer(ctx context.Context, officerID string) ([]model.EnabledAPI, error) {
	o, err := s.officers.GetByID(ctx, officerID)
	if err != nil {
		return nil, fmt.Errorf("get officer: %w", err)
	}
	if o == nil {
		return nil, ErrOfficerNotFound
	}
	if o.PlanID == nil {
		return []model.EnabledAPI{}, nil
	}
	return s.EnabledAPIs(ctx, *o.PlanID)
}
