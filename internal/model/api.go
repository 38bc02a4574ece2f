package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	KeyActive   = "Active"
	KeyInactive = "Inactive"
)

// API is a catalog entry for one vendor verification endpoint.
type API struct {
	ID                  string          `db:"id"                    json:"id"`
	Name                string          `db:"name"                  json:"name"`
	Type                string          `db:"type"                  json:"type"`
	ServiceProvider     string          `db:"service_provider"      json:"service_provider"`
	GlobalBuyPrice      decimal.Decimal `db:"global_buy_price"      json:"global_buy_price"`
	GlobalSellPrice     decimal.Decimal `db:"global_sell_price"     json:"global_sell_price"`
	DefaultCreditCharge decimal.Decimal `db:"default_credit_charge" json:"default_credit_charge"`
	Description         *string         `db:"description"           json:"description,omitempty"`
	APIKey              string          `db:"api_key"               json:"api_key,omitempty"`
	KeyStatus           string          `db:"key_status"            json:"key_status"`
	UsageCount          int64           `db:"usage_count"           json:"usage_count"`
	LastUsed            *time.Time      `db:"last_used"             json:"last_used,omitempty"`
	CreatedAt           time.Time       `db:"created_at"            json:"created_at"`
	UpdatedAt           time.Time       `db:"updated_at"            json:"updated_at"`
}

func (a API) Active() bool { return a.KeyStatus == KeyActive }

// Masked hides all but the last four characters of the vendor key.
func (a API) Masked() API {
	if n := len(a.APIKey); n > 4 {
		a.APIKey = "****" + a.APIKey[n-4:]
	} else if n > 0 {
		a.APIKey = "****"
	}
	return a
}

// EnabledAPI is a catalog API as seen through an officer's plan.
type EnabledAPI struct {
	API
	CreditCost decimal.Decimal `db:"credit_cost" json:"credit_cost"`
	BuyPrice   decimal.Decimal `db:"buy_price"   json:"buy_price"`
	SellPrice  decimal.Decimal `db:"sell_price"  json:"sell_price"`
}
