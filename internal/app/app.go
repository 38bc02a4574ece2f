// Package app wires repositories, vendor dispatchers and services from config.
package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/jmehdipour/officer-portal/internal/config"
	"github.com/jmehdipour/officer-portal/internal/dispatcher"
	"github.com/jmehdipour/officer-portal/internal/repository"
	"github.com/jmehdipour/officer-portal/internal/service/auth"
	"github.com/jmehdipour/officer-portal/internal/service/catalog"
	"github.com/jmehdipour/officer-portal/internal/service/credits"
	"github.com/jmehdipour/officer-portal/internal/service/lookup"
	"github.com/jmehdipour/officer-portal/internal/service/manual"
	"github.com/jmehdipour/officer-portal/internal/service/notification"
	"github.com/jmehdipour/officer-portal/internal/service/registration"
	"github.com/jmehdipour/officer-portal/internal/service/reports"
	"github.com/jmehdipour/officer-portal/internal/service/stats"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

type Services struct {
	Auth          *auth.Service
	Credits       *credits.Service
	Catalog       *catalog.Service
	Lookup        *lookup.Service
	Manual        *manual.Service
	Registrations *registration.Service
	Notifications *notification.Service
	Stats         *stats.Service
	Reports       *reports.Service
}

// Vendors builds one dispatcher per vendor and the Deepvue token cache.
func Vendors(cfg config.VendorsConfig) (map[string]lookup.Vendor, *dispatcher.TokenCache, error) {
	signzy, err := dispatcher.NewFromConfig(lookup.VendorSignzy, cfg.Signzy)
	if err != nil {
		return nil, nil, err
	}
	deepvue, err := dispatcher.NewFromConfig(lookup.VendorDeepvue, cfg.Deepvue)
	if err != nil {
		return nil, nil, err
	}

	tokenPath := cfg.Deepvue.TokenPath
	if tokenPath == "" {
		tokenPath = "/v1/authorize"
	}
	var timeout time.Duration
	if eps := cfg.Deepvue.Endpoints; len(eps) > 0 {
		timeout = time.Duration(eps[0].TimeoutMs) * time.Millisecond
	}
	tokens := dispatcher.NewTokenCache(strings.TrimRight(deepvue.BaseURL(), "/")+tokenPath, timeout)

	return map[string]lookup.Vendor{
		lookup.VendorSignzy:  signzy,
		lookup.VendorDeepvue: deepvue,
	}, tokens, nil
}

// New builds every service. clickhouseDB and rds may be nil: analytics
// then report unavailable and login throttling is off.
func New(cfg config.Config, mysqlDB, clickhouseDB *sqlx.DB, rds *redis.Client) (*Services, error) {
	// repos (MySQL)
	officersRepo := repository.NewOfficersRepository(mysqlDB)
	plansRepo := repository.NewPlansRepository(mysqlDB)
	apisRepo := repository.NewAPIsRepository(mysqlDB)
	txnsRepo := repository.NewTransactionsRepository(mysqlDB)
	queriesRepo := repository.NewQueriesRepository(mysqlDB)
	manualRepo := repository.NewManualRequestsRepository(mysqlDB)
	regsRepo := repository.NewRegistrationsRepository(mysqlDB)
	notifRepo := repository.NewNotificationsRepository(mysqlDB)
	adminsRepo := repository.NewAdminsRepository(mysqlDB)
	outboxRepo := repository.NewOutboxRepository(mysqlDB)

	// repos (ClickHouse)
	var eventsRepo repository.CHQueryEventsRepository
	if clickhouseDB != nil {
		eventsRepo = repository.NewCHQueryEventsRepository(clickhouseDB)
	}

	vendors, tokens, err := Vendors(cfg.Vendors)
	if err != nil {
		return nil, fmt.Errorf("vendors: %w", err)
	}

	creditsSvc := credits.New(mysqlDB, officersRepo, plansRepo, txnsRepo, outboxRepo, cfg.Auth.DefaultPassword, cfg.Auth.BcryptCost)
	catalogSvc := catalog.New(mysqlDB, apisRepo, plansRepo, officersRepo, cfg.Lookup.CatalogCacheSize, cfg.Lookup.CatalogCacheTTL)
	notifSvc := notification.New(notifRepo)

	return &Services{
		Auth: auth.New(adminsRepo, officersRepo, rds, auth.Config{
			Secret:        cfg.Auth.JWTSecret,
			TokenTTL:      cfg.Auth.TokenTTL,
			LoginAttempts: cfg.Auth.LoginAttempts,
			LoginWindow:   cfg.Auth.LoginWindow,
			BcryptCost:    cfg.Auth.BcryptCost,
		}),
		Credits: creditsSvc,
		Catalog: catalogSvc,
		Lookup: lookup.New(mysqlDB, creditsSvc, catalogSvc, queriesRepo, apisRepo, outboxRepo,
			vendors, tokens, cfg.Lookup.DefaultCharge()),
		Manual:        manual.New(mysqlDB, manualRepo, creditsSvc, notifSvc),
		Registrations: registration.New(regsRepo, creditsSvc, notifSvc),
		Notifications: notifSvc,
		Stats:         stats.New(officersRepo, queriesRepo, txnsRepo, eventsRepo),
		Reports:       reports.New(eventsRepo),
	}, nil
}
