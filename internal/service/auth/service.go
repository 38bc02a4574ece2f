package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jmehdipour/officer-portal/internal/logger"
	"github.com/jmehdipour/officer-portal/internal/model"
	"github.com/jmehdipour/officer-portal/internal/repository"
	"github.com/jmehdipour/officer-portal/internal/util"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSuspended          = errors.New("account suspended")
	ErrTooManyAttempts    = errors.New("too many login attempts, try again later")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

const (
	KindAdmin   = "admin"
	KindOfficer = "officer"
)

// Claims is the identity carried by a portal token.
type Claims struct {
	Subject string
	Email   string
	Role    model.Role
	Kind    string
}

type Config struct {
	Secret        string
	TokenTTL      time.Duration
	LoginAttempts int
	LoginWindow   time.Duration
	BcryptCost    int
}

type Service struct {
	admins   repository.AdminsRepository
	officers repository.OfficersRepository
	rdb      *redis.Client
	secret   []byte
	cfg      Config
	now      func() time.Time
}

// New builds the service. A nil rdb disables login throttling.
func New(admins repository.AdminsRepository, officers repository.OfficersRepository, rdb *redis.Client, cfg Config) *Service {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 12 * time.Hour
	}
	if cfg.LoginAttempts <= 0 {
		cfg.LoginAttempts = 10
	}
	if cfg.LoginWindow <= 0 {
		cfg.LoginWindow = time.Minute
	}
	return &Service{
		admins:   admins,
		officers: officers,
		rdb:      rdb,
		secret:   []byte(cfg.Secret),
		cfg:      cfg,
		now:      time.Now,
	}
}

// ---- Tokens ----

func (s *Service) issue(c Claims) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":   c.Subject,
		"email": c.Email,
		"kind":  c.Kind,
		"iat":   now.Unix(),
		"exp":   now.Add(s.cfg.TokenTTL).Unix(),
	}
	if c.Role != "" {
		claims["role"] = string(c.Role)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse validates a bearer token and returns its claims.
func (s *Service) Parse(token string) (*Claims, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	c := &Claims{}
	c.Subject, _ = mc["sub"].(string)
	c.Email, _ = mc["email"].(string)
	c.Kind, _ = mc["kind"].(string)
	if r, ok := mc["role"].(string); ok {
		c.Role = model.Role(r)
	}
	if c.Subject == "" || (c.Kind != KindAdmin && c.Kind != KindOfficer) {
		return nil, ErrInvalidToken
	}
	return c, nil
}

// ---- Throttle ----

func (s *Service) throttleKey(kind, identifier string) string {
	window := s.now().Unix() / int64(s.cfg.LoginWindow.Seconds())
	return "login:" + kind + ":" + strings.ToLower(identifier) + ":" + strconv.FormatInt(window, 10)
}

// attempt counts a login try in the current window. Redis errors let the attempt through.
func (s *Service) attempt(ctx context.Context, kind, identifier string) error {
	if s.rdb == nil {
		return nil
	}
	key := s.throttleKey(kind, identifier)

	pipe := s.rdb.Pipeline()
	cnt := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, s.cfg.LoginWindow*2)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Log.Warn("login throttle unavailable", zap.Error(err))
		return nil
	}

	if cnt.Val() > int64(s.cfg.LoginAttempts) {
		return ErrTooManyAttempts
	}
	return nil
}

func (s *Service) forget(ctx context.Context, kind, identifier string) {
	if s.rdb == nil {
		return
	}
	_ = s.rdb.Del(ctx, s.throttleKey(kind, identifier)).Err()
}

// ---- Logins ----

type AdminSession struct {
	Token string          `json:"token"`
	Admin model.AdminUser `json:"admin"`
}

func (s *Service) AdminLogin(ctx context.Context, email, password string) (*AdminSession, error) {
	email = util.NormalizeEmail(email)
	if err := s.attempt(ctx, KindAdmin, email); err != nil {
		return nil, err
	}

	a, err := s.admins.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("get admin: %w", err)
	}
	if a == nil || !util.CheckPassword(a.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	if err := s.admins.TouchLastLogin(ctx, a.ID, now); err != nil {
		logger.Log.Warn("touch last_login failed", zap.String("admin_id", a.ID), zap.Error(err))
	}
	a.LastLogin = &now

	token, err := s.issue(Claims{Subject: a.ID, Email: a.Email, Role: a.Role, Kind: KindAdmin})
	if err != nil {
		return nil, err
	}
	s.forget(ctx, KindAdmin, email)
	return &AdminSession{Token: token, Admin: *a}, nil
}

type OfficerSession struct {
	Token   string        `json:"token"`
	Officer model.Officer `json:"officer"`
}

// OfficerLogin accepts an email or a mobile number as identifier.
func (s *Service) OfficerLogin(ctx context.Context, identifier, password string) (*OfficerSession, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, ErrInvalidCredentials
	}
	var email, mobile string
	if util.IsEmail(identifier) {
		email = util.NormalizeEmail(identifier)
		identifier = email
	} else {
		mobile = util.NormalizeMobile(identifier)
		identifier = mobile
	}

	if err := s.attempt(ctx, KindOfficer, identifier); err != nil {
		return nil, err
	}

	o, err := s.officers.GetByLogin(ctx, email, mobile)
	if err != nil {
		return nil, fmt.Errorf("get officer: %w", err)
	}
	if o == nil || !util.CheckPassword(o.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if o.Status == model.OfficerSuspended {
		return nil, ErrSuspended
	}

	now := s.now()
	if err := s.officers.TouchLastActive(ctx, o.ID, now); err != nil {
		logger.Log.Warn("touch last_active failed", zap.String("officer_id", o.ID), zap.Error(err))
	}
	o.LastActive = &now

	token, err := s.issue(Claims{Subject: o.ID, Email: o.Email, Kind: KindOfficer})
	if err != nil {
		return nil, err
	}
	s.forget(ctx, KindOfficer, identifier)
	return &OfficerSession{Token: token, Officer: *o}, nil
}

// ActiveOfficer loads the token's officer and refuses suspended accounts.
func (s *Service) ActiveOfficer(ctx context.Context, id string) (*model.Officer, error) {
	o, err := s.officers.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get officer: %w", err)
	}
	if o == nil {
		return nil, ErrInvalidToken
	}
	if o.Status == model.OfficerSuspended {
		return nil, ErrSuspended
	}
	return o, nil
}

func (s *Service) Admin(ctx context.Context, id string) (*model.AdminUser, error) {
	a, err := s.admins.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get admin: %w", err)
	}
	if a == nil {
		return nil, ErrInvalidToken
	}
	return a, nil
}

// EnsureAdmin creates or refreshes an admin account; used by the seed command.
func (s *Service) EnsureAdmin(ctx context.Context, name, email, password string, role model.Role) error {
	if !role.Valid() {
		return fmt.Errorf("unknown role %q", role)
	}
	hash, err := util.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return err
	}
	return s.admins.Insert(ctx, model.AdminUser{
		ID:           util.NewID(),
		Name:         name,
		Email:        util.NormalizeEmail(email),
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    s.now(),
	})
}
