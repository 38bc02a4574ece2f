package cmd

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/jmehdipour/officer-portal/internal/app"
	"github.com/jmehdipour/officer-portal/internal/logger"
	"github.com/jmehdipour/officer-portal/internal/model"
	"github.com/jmehdipour/officer-portal/internal/service/catalog"
	"github.com/jmehdipour/officer-portal/internal/service/credits"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var seedYAML []byte

type seedData struct {
	Admins []struct {
		Name     string     `yaml:"name"`
		Email    string     `yaml:"email"`
		Password string     `yaml:"password"`
		Role     model.Role `yaml:"role"`
	} `yaml:"admins"`
	APIs []struct {
		Name            string          `yaml:"name"`
		Type            string          `yaml:"type"`
		ServiceProvider string          `yaml:"service_provider"`
		Buy             decimal.Decimal `yaml:"buy"`
		Sell            decimal.Decimal `yaml:"sell"`
		Charge          decimal.Decimal `yaml:"charge"`
	} `yaml:"apis"`
	Plans []struct {
		PlanName        string          `yaml:"plan_name"`
		UserType        string          `yaml:"user_type"`
		MonthlyFee      decimal.Decimal `yaml:"monthly_fee"`
		DefaultCredits  decimal.Decimal `yaml:"default_credits"`
		ValidityDays    *int            `yaml:"validity_days"`
		RenewalRequired bool            `yaml:"renewal_required"`
		CarryForward    bool            `yaml:"carry_forward"`
		// API names enabled on the plan; "*" enables the whole catalog
		APIs []string `yaml:"apis"`
	} `yaml:"plans"`
	Officers []struct {
		Name        string          `yaml:"name"`
		Mobile      string          `yaml:"mobile"`
		Email       string          `yaml:"email"`
		Department  string          `yaml:"department"`
		Rank        string          `yaml:"rank"`
		BadgeNumber string          `yaml:"badge_number"`
		Plan        string          `yaml:"plan"`
		Credits     decimal.Decimal `yaml:"credits"`
	} `yaml:"officers"`
}

func parseSeed(raw []byte) (*seedData, error) {
	var d seedData
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	return &d, nil
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed admins, the API catalog, rate plans and demo officers (idempotent)",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := parseSeed(seedYAML)
		if err != nil {
			return err
		}

		mysqlDB, err := openMySQL()
		if err != nil {
			return err
		}
		defer mysqlDB.Close()

		svcs, err := app.New(cfg, mysqlDB, nil, nil)
		if err != nil {
			return fmt.Errorf("wire services: %w", err)
		}
		return runSeed(cmd, svcs, data)
	},
}

func runSeed(cmd *cobra.Command, svcs *app.Services, data *seedData) error {
	ctx := cmd.Context()

	for _, a := range data.Admins {
		if err := svcs.Auth.EnsureAdmin(ctx, a.Name, a.Email, a.Password, a.Role); err != nil {
			return fmt.Errorf("seed admin %s: %w", a.Email, err)
		}
	}
	logger.Log.Info("seeded admins", zap.Int("count", len(data.Admins)))

	for _, a := range data.APIs {
		_, err := svcs.Catalog.CreateAPI(ctx, catalog.APIInput{
			Name:                a.Name,
			Type:                a.Type,
			ServiceProvider:     a.ServiceProvider,
			GlobalBuyPrice:      a.Buy,
			GlobalSellPrice:     a.Sell,
			DefaultCreditCharge: a.Charge,
			KeyStatus:           model.KeyActive,
		})
		if err != nil && !errors.Is(err, catalog.ErrDuplicateAPI) {
			return fmt.Errorf("seed api %s: %w", a.Name, err)
		}
	}

	apis, err := svcs.Catalog.ListAPIs(ctx)
	if err != nil {
		return err
	}
	byName := make(map[string]model.API, len(apis))
	for _, a := range apis {
		byName[a.Name] = a
	}
	logger.Log.Info("seeded api catalog", zap.Int("count", len(apis)))

	planIDs := map[string]string{}
	for _, p := range data.Plans {
		var settings []catalog.PlanAPIInput
		for _, name := range p.APIs {
			if _, ok := byName[name]; !ok && name != "*" {
				return fmt.Errorf("plan %s: unknown api %q", p.PlanName, name)
			}
			for _, a := range apis {
				if name == "*" || name == a.Name {
					settings = append(settings, catalog.PlanAPIInput{
						APIID:      a.ID,
						Enabled:    true,
						CreditCost: a.DefaultCreditCharge,
						BuyPrice:   a.GlobalBuyPrice,
						SellPrice:  a.GlobalSellPrice,
					})
				}
			}
		}

		plan, err := svcs.Catalog.CreatePlan(ctx, catalog.PlanInput{
			PlanName:        p.PlanName,
			UserType:        p.UserType,
			MonthlyFee:      p.MonthlyFee,
			DefaultCredits:  p.DefaultCredits,
			ValidityDays:    p.ValidityDays,
			RenewalRequired: p.RenewalRequired,
			CarryForward:    p.CarryForward,
			Status:          model.KeyActive,
		}, settings)
		switch {
		case errors.Is(err, catalog.ErrDuplicatePlan):
		case err != nil:
			return fmt.Errorf("seed plan %s: %w", p.PlanName, err)
		default:
			planIDs[p.PlanName] = plan.ID
		}
	}

	plans, err := svcs.Catalog.ListPlans(ctx)
	if err != nil {
		return err
	}
	for _, p := range plans {
		planIDs[p.PlanName] = p.ID
	}
	logger.Log.Info("seeded rate plans", zap.Int("count", len(plans)))

	created := 0
	for _, o := range data.Officers {
		in := credits.NewOfficer{
			Name:             o.Name,
			Mobile:           o.Mobile,
			Email:            o.Email,
			Department:       optional(o.Department),
			Rank:             optional(o.Rank),
			BadgeNumber:      optional(o.BadgeNumber),
			CreditsRemaining: o.Credits,
			TotalCredits:     o.Credits,
		}
		if o.Plan != "" {
			id, ok := planIDs[o.Plan]
			if !ok {
				return fmt.Errorf("officer %s: unknown plan %q", o.Email, o.Plan)
			}
			in.PlanID = &id
		}

		_, err := svcs.Credits.AddOfficer(ctx, in)
		switch {
		case errors.Is(err, credits.ErrDuplicateOfficer):
		case err != nil:
			return fmt.Errorf("seed officer %s: %w", o.Email, err)
		default:
			created++
		}
	}
	logger.Log.Info("seeded demo officers", zap.Int("created", created), zap.Int("total", len(data.Officers)))

	logger.Log.Info("seed completed")
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
