package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Currency represents a supported currency. Exactly one currency is the
// primary (reference) currency at a time; ExchangeRate expresses how many
// reference-currency units one unit of this currency is worth.
type Currency struct {
	CurrencyCode string          `json:"currencyCode"` // Primary Key (e.g., "USD")
	Name         string          `json:"name"`
	Symbol       string          `json:"symbol"`
	ExchangeRate decimal.Decimal `json:"exchangeRate"` // Spot rate against the reference currency
	IsPrimary    bool            `json:"isPrimary"`
	AuditFields
}

// ExchangeRate is a historical rate for a currency pair, keyed by
// (from, to, effective date). Historical rates are preserved so that
// backdated postings and audits resolve against the rate of the day.
type ExchangeRate struct {
	ExchangeRateID   string          `json:"exchangeRateID"` // Primary Key (UUID)
	FromCurrencyCode string          `json:"fromCurrencyCode"`
	ToCurrencyCode   string          `json:"toCurrencyCode"`
	Rate             decimal.Decimal `json:"rate"`
	DateEffective    time.Time       `json:"dateEffective"`
	AuditFields
}
