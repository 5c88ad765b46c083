package dto

import (
	"time"

	"github.com/openacct/ledger_backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateCurrencyRequest defines the JSON body for registering a currency.
type CreateCurrencyRequest struct {
	CurrencyCode string          `json:"currencyCode" binding:"required,currencycode"`
	Name         string          `json:"name" binding:"required"`
	Symbol       string          `json:"symbol,omitempty"`
	ExchangeRate decimal.Decimal `json:"exchangeRate" binding:"required"`
	IsPrimary    bool            `json:"isPrimary,omitempty"`
}

// CreateExchangeRateRequest defines the JSON body for recording a historical rate.
type CreateExchangeRateRequest struct {
	FromCurrencyCode string          `json:"fromCurrencyCode" binding:"required,currencycode"`
	ToCurrencyCode   string          `json:"toCurrencyCode" binding:"required,currencycode"`
	Rate             decimal.Decimal `json:"rate" binding:"required"`
	DateEffective    time.Time       `json:"dateEffective" binding:"required"`
}

// CurrencyResponse defines the JSON representation of a currency.
type CurrencyResponse struct {
	CurrencyCode string          `json:"currencyCode"`
	Name         string          `json:"name"`
	Symbol       string          `json:"symbol,omitempty"`
	ExchangeRate decimal.Decimal `json:"exchangeRate"`
	IsPrimary    bool            `json:"isPrimary"`
}

// ToCurrencyResponse maps a domain currency to its response shape.
func ToCurrencyResponse(c *domain.Currency) CurrencyResponse {
	return CurrencyResponse{
		CurrencyCode: c.CurrencyCode,
		Name:         c.Name,
		Symbol:       c.Symbol,
		ExchangeRate: c.ExchangeRate,
		IsPrimary:    c.IsPrimary,
	}
}

// CurrencyBalanceResponse is one account balance in one original currency.
type CurrencyBalanceResponse struct {
	CurrencyCode string          `json:"currencyCode"`
	AccountCode  string          `json:"accountCode"`
	Balance      decimal.Decimal `json:"balance"`
}

// MultiCurrencyTrialBalanceResponse groups trial balances per original currency.
type MultiCurrencyTrialBalanceResponse struct {
	Currencies map[string][]CurrencyBalanceResponse `json:"currencies"`
}
