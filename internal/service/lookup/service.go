package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jmehdipour/officer-portal/internal/dispatcher"
	"github.com/jmehdipour/officer-portal/internal/logger"
	"github.com/jmehdipour/officer-portal/internal/metrics"
	"github.com/jmehdipour/officer-portal/internal/model"
	"github.com/jmehdipour/officer-portal/internal/repository"
	"github.com/jmehdipour/officer-portal/internal/service/credits"
	"github.com/jmehdipour/officer-portal/internal/util"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrUnknownLookup      = errors.New("unknown lookup")
	ErrInvalidInput       = errors.New("invalid input")
	ErrServiceUnavailable = errors.New("service is currently unavailable")
	ErrOfficerSuspended   = errors.New("officer is suspended")
	ErrLookupFailed       = errors.New("lookup failed")
)

// Ledger is the part of the credits service a lookup charges through.
type Ledger interface {
	GetOfficer(ctx context.Context, id string) (*model.Officer, error)
	DeductTx(ctx context.Context, tx *sqlx.Tx, req credits.DeductRequest) (*credits.Deduction, error)
}

type Catalog interface {
	EnabledAPIsForOfficer(ctx context.Context, officerID string) ([]model.EnabledAPI, error)
}

type Vendor interface {
	Do(ctx context.Context, c dispatcher.Call) (*dispatcher.Response, error)
}

type Tokens interface {
	Token(clientID, clientSecret string) (string, error)
	Invalidate(clientID, clientSecret string)
}

type Service struct {
	db      *sqlx.DB
	ledger  Ledger
	catalog Catalog
	queries repository.QueriesRepository
	apis    repository.APIsRepository
	outbox  repository.OutboxRepository
	vendors map[string]Vendor
	tokens  Tokens

	defaultCharge decimal.Decimal
	now           func() time.Time
}

func New(
	db *sqlx.DB,
	ledger Ledger,
	catalog Catalog,
	queriesRepo repository.QueriesRepository,
	apisRepo repository.APIsRepository,
	outboxRepo repository.OutboxRepository,
	vendors map[string]Vendor,
	tokens Tokens,
	defaultCharge decimal.Decimal,
) *Service {
	if !defaultCharge.IsPositive() {
		defaultCharge = decimal.NewFromInt(5)
	}
	return &Service{
		db:            db,
		ledger:        ledger,
		catalog:       catalog,
		queries:       queriesRepo,
		apis:          apisRepo,
		outbox:        outboxRepo,
		vendors:       vendors,
		tokens:        tokens,
		defaultCharge: defaultCharge,
		now:           time.Now,
	}
}

// Result is what an officer gets back from a lookup.
type Result struct {
	QueryID          string            `json:"query_id"`
	Status           model.QueryStatus `json:"status"`
	CreditsUsed      decimal.Decimal   `json:"credits_used"`
	CreditsRemaining decimal.Decimal   `json:"credits_remaining"`
	Summary          string            `json:"result_summary"`
	Result           model.RawJSON     `json:"result"`
}

// Available is a registry entry as one officer sees it.
type Available struct {
	Definition
	Available bool            `json:"available"`
	Cost      decimal.Decimal `json:"cost"`
}

func (s *Service) cost(api model.EnabledAPI) decimal.Decimal {
	if api.DefaultCreditCharge.IsPositive() {
		return api.DefaultCreditCharge
	}
	return s.defaultCharge
}

func (s *Service) enabledFor(ctx context.Context, o *model.Officer) ([]model.EnabledAPI, error) {
	return s.catalog.EnabledAPIsForOfficer(ctx, o.ID)
}

func findAPI(def Definition, apis []model.EnabledAPI) (model.EnabledAPI, bool) {
	for _, a := range apis {
		if a.Active() && def.Matches(a.Name) {
			return a, true
		}
	}
	return model.EnabledAPI{}, false
}

func (s *Service) ListLookups(ctx context.Context, officerID string) ([]Available, error) {
	o, err := s.ledger.GetOfficer(ctx, officerID)
	if err != nil {
		return nil, err
	}
	apis, err := s.enabledFor(ctx, o)
	if err != nil {
		return nil, err
	}

	out := make([]Available, 0, len(registry))
	for _, def := range registry {
		a := Available{Definition: def}
		if api, ok := findAPI(def, apis); ok {
			a.Available = true
			a.Cost = s.cost(api)
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *Service) ListQueries(ctx context.Context, f model.QueryFilter) ([]model.Query, error) {
	return s.queries.List(ctx, f)
}

// Run validates input, checks the plan and balance, calls the vendor and
// records the outcome. Credits move only on success.
func (s *Service) Run(ctx context.Context, officerID, key string, in Input) (*Result, error) {
	def, ok := Lookup(key)
	if !ok {
		return nil, ErrUnknownLookup
	}

	req, err := def.build(in)
	if err != nil {
		metrics.LookupsTotal.WithLabelValues(def.Category, "Rejected").Inc()
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}

	o, err := s.ledger.GetOfficer(ctx, officerID)
	if err != nil {
		return nil, err
	}
	if o.Status == model.OfficerSuspended {
		return nil, ErrOfficerSuspended
	}

	apis, err := s.enabledFor(ctx, o)
	if err != nil {
		return nil, err
	}
	api, ok := findAPI(def, apis)
	if !ok {
		metrics.LookupsTotal.WithLabelValues(def.Category, "Rejected").Inc()
		return nil, fmt.Errorf("%w: %s service is currently unavailable", ErrServiceUnavailable, def.Category)
	}

	cost := s.cost(api)
	if o.CreditsRemaining.LessThan(cost) {
		metrics.LookupsTotal.WithLabelValues(def.Category, "Rejected").Inc()
		return nil, &credits.InsufficientError{Required: cost, Available: o.CreditsRemaining}
	}

	start := s.now()
	body, callErr := s.call(ctx, def, api, o, req)
	latency := s.now().Sub(start)

	var data map[string]any
	if callErr == nil {
		data, callErr = judge(def, body)
	}

	if callErr != nil {
		logger.Log.Warn("lookup failed",
			zap.String("officer_id", o.ID),
			zap.String("lookup", def.Key),
			zap.Error(callErr),
		)
		res, err := s.recordFailure(ctx, def, o, req, callErr, latency)
		if err != nil {
			return nil, err
		}
		metrics.LookupsTotal.WithLabelValues(def.Category, string(model.QueryFailed)).Inc()
		return res, fmt.Errorf("%w: %s", ErrLookupFailed, callErr.Error())
	}

	res, err := s.recordSuccess(ctx, def, o, api, req, data, cost, latency)
	if errors.Is(err, credits.ErrInsufficientCredits) {
		// balance drained by a concurrent charge after the vendor answered
		logger.Log.Warn("lookup not charged",
			zap.String("officer_id", o.ID),
			zap.String("lookup", def.Key),
			zap.Error(err),
		)
		return s.unchargedSuccess(ctx, def, o, req, latency, err)
	}
	if err != nil {
		return nil, err
	}
	metrics.LookupsTotal.WithLabelValues(def.Category, string(model.QuerySuccess)).Inc()
	metrics.CreditsMoved.WithLabelValues(string(model.ActionDeduction)).Add(cost.InexactFloat64())
	return res, nil
}

func (s *Service) call(ctx context.Context, def Definition, api model.EnabledAPI, o *model.Officer, req *request) ([]byte, error) {
	v, ok := s.vendors[def.Vendor]
	if !ok {
		return nil, fmt.Errorf("vendor %s is not configured", def.Vendor)
	}

	c := dispatcher.Call{Method: def.Method, Path: def.Path, Query: req.query, Body: req.body, Header: http.Header{}}

	if def.Vendor != VendorDeepvue {
		c.Header.Set("Authorization", api.APIKey)
		c.Header.Set("x-client-unique-id", o.Email)
		return send(ctx, v, c)
	}

	id, secret, err := dispatcher.SplitKey(api.APIKey)
	if err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		tok, err := s.tokens.Token(id, secret)
		if err != nil {
			return nil, err
		}
		c.Header.Set("Authorization", "Bearer "+tok)

		b, err := send(ctx, v, c)
		if se, ok := dispatcher.IsStatus(err); ok && se.Status == http.StatusUnauthorized && attempt == 0 {
			s.tokens.Invalidate(id, secret)
			continue
		}
		return b, err
	}
}

func send(ctx context.Context, v Vendor, c dispatcher.Call) ([]byte, error) {
	res, err := v.Do(ctx, c)
	if err != nil {
		if se, ok := dispatcher.IsStatus(err); ok {
			return nil, &vendorStatus{StatusError: se}
		}
		return nil, err
	}
	return res.Body, nil
}

// vendorStatus keeps the status detail for callers while reading like the portal's own message.
type vendorStatus struct {
	*dispatcher.StatusError
}

func (e *vendorStatus) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("API request failed: %d %s", e.Status, e.Body)
	}
	return fmt.Sprintf("API request failed: %d", e.Status)
}

func (e *vendorStatus) Unwrap() error { return e.StatusError }

// judge decodes a 2xx body and applies the vendor's in-body failure signals.
func judge(def Definition, body []byte) (map[string]any, error) {
	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("invalid vendor response")
	}

	if e, ok := data["error"]; ok && e != nil {
		msg := "Search failed"
		if em, ok := e.(map[string]any); ok {
			if m, ok := em["message"].(string); ok && m != "" {
				msg = m
			}
		} else if s, ok := e.(string); ok && s != "" {
			msg = s
		}
		return nil, errors.New(msg)
	}

	if def.checkCode {
		if code, ok := data["code"].(float64); !ok || code != 200 {
			return nil, errors.New(messageOr(data, fmt.Sprintf("vendor returned code %v", data["code"])))
		}
	}
	return data, nil
}

func (s *Service) recordSuccess(
	ctx context.Context,
	def Definition,
	o *model.Officer,
	api model.EnabledAPI,
	req *request,
	data map[string]any,
	cost decimal.Decimal,
	latency time.Duration,
) (*Result, error) {
	full, err := json.Marshal(def.result(data))
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}

	q := s.query(def, o, req, model.QuerySuccess)
	q.ResultSummary = def.summary(req, data)
	q.FullResult = full
	q.CreditsUsed = cost

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	d, err := s.ledger.DeductTx(ctx, tx, credits.DeductRequest{
		OfficerID:   o.ID,
		Cost:        cost,
		PaymentMode: model.PaymentQueryUsage,
		Remarks:     req.remarks,
		CountQuery:  true,
	})
	if err != nil {
		return nil, err
	}
	if err := s.queries.Insert(ctx, tx, q); err != nil {
		return nil, fmt.Errorf("insert query: %w", err)
	}
	if err := s.apis.RecordUsage(ctx, tx, api.ID, q.CreatedAt); err != nil {
		return nil, fmt.Errorf("record usage: %w", err)
	}
	if err := s.publish(ctx, tx, q, latency); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &Result{
		QueryID:          q.ID,
		Status:           q.Status,
		CreditsUsed:      cost,
		CreditsRemaining: d.CreditsRemaining,
		Summary:          q.ResultSummary,
		Result:           full,
	}, nil
}

func (s *Service) recordFailure(
	ctx context.Context,
	def Definition,
	o *model.Officer,
	req *request,
	cause error,
	latency time.Duration,
) (*Result, error) {
	q := s.query(def, o, req, model.QueryFailed)
	q.ResultSummary = "Search failed: " + cause.Error()
	q.CreditsUsed = decimal.Zero

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.queries.Insert(ctx, tx, q); err != nil {
		return nil, fmt.Errorf("insert query: %w", err)
	}
	if err := s.publish(ctx, tx, q, latency); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &Result{
		QueryID:          q.ID,
		Status:           q.Status,
		CreditsUsed:      decimal.Zero,
		CreditsRemaining: o.CreditsRemaining,
		Summary:          q.ResultSummary,
	}, nil
}

// unchargedSuccess records a vendor answer that could not be paid for as a
// Failed query with no credits, and returns the insufficient-credits error.
func (s *Service) unchargedSuccess(ctx context.Context, def Definition, o *model.Officer, req *request, latency time.Duration, cause error) (*Result, error) {
	res, err := s.recordFailure(ctx, def, o, req, errors.New("Insufficient credits at charge time"), latency)
	if err != nil {
		return nil, err
	}
	var ie *credits.InsufficientError
	if errors.As(cause, &ie) {
		res.CreditsRemaining = ie.Available
	}
	metrics.LookupsTotal.WithLabelValues(def.Category, string(model.QueryFailed)).Inc()
	return res, cause
}

func (s *Service) query(def Definition, o *model.Officer, req *request, status model.QueryStatus) model.Query {
	return model.Query{
		ID:          util.NewID(),
		OfficerID:   o.ID,
		OfficerName: o.Name,
		Type:        model.QueryPRO,
		Category:    def.Category,
		InputData:   req.inputData,
		Source:      def.Source,
		Status:      status,
		CreatedAt:   s.now(),
	}
}

func (s *Service) publish(ctx context.Context, tx *sqlx.Tx, q model.Query, latency time.Duration) error {
	ev := model.QueryEvent{
		ID:          q.ID,
		OfficerID:   q.OfficerID,
		OfficerName: q.OfficerName,
		Category:    q.Category,
		Source:      q.Source,
		Status:      string(q.Status),
		CreditsUsed: q.CreditsUsed.InexactFloat64(),
		LatencyMs:   latency.Milliseconds(),
		CreatedAt:   q.CreatedAt.UTC(),
	}
	if err := s.outbox.Insert(ctx, tx, "query", q.ID, model.TopicQueryEvents, ev); err != nil {
		return fmt.Errorf("insert outbox: %w", err)
	}
	return nil
}
