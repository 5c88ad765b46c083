package dto

import (
	"time"

	"github.com/openacct/ledger_backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreatePolicyRequest defines the JSON body for creating a currency policy.
type CreatePolicyRequest struct {
	Name                       string                  `json:"name" binding:"required"`
	PolicyType                 domain.PolicyType       `json:"policyType" binding:"required,oneof=UNIT_OF_MEASURE VALUED_ASSET NORMALIZATION"`
	ConversionTiming           domain.ConversionTiming `json:"conversionTiming" binding:"required,oneof=POSTING SETTLEMENT REPORTING NEVER"`
	AllowMultiCurrencyBalances bool                    `json:"allowMultiCurrencyBalances"`
	RevaluationEnabled         bool                    `json:"revaluationEnabled"`
	RevaluationFrequency       string                  `json:"revaluationFrequency,omitempty"`
	Activate                   bool                    `json:"activate"`
}

// PolicyResponse defines the JSON representation of a currency policy.
type PolicyResponse struct {
	PolicyID                   string                  `json:"policyID"`
	Name                       string                  `json:"name"`
	PolicyType                 domain.PolicyType       `json:"policyType"`
	ConversionTiming           domain.ConversionTiming `json:"conversionTiming"`
	AllowMultiCurrencyBalances bool                    `json:"allowMultiCurrencyBalances"`
	RevaluationEnabled         bool                    `json:"revaluationEnabled"`
	RevaluationFrequency       string                  `json:"revaluationFrequency,omitempty"`
	IsActive                   bool                    `json:"isActive"`
}

// ToPolicyResponse maps a domain policy to its response shape.
func ToPolicyResponse(p *domain.CurrencyPolicy) PolicyResponse {
	return PolicyResponse{
		PolicyID:                   p.PolicyID,
		Name:                       p.Name,
		PolicyType:                 p.PolicyType,
		ConversionTiming:           p.ConversionTiming,
		AllowMultiCurrencyBalances: p.AllowMultiCurrencyBalances,
		RevaluationEnabled:         p.RevaluationEnabled,
		RevaluationFrequency:       p.RevaluationFrequency,
		IsActive:                   p.IsActive,
	}
}

// CurrencyContextResponse is the JSON representation of a transaction
// currency context snapshot.
type CurrencyContextResponse struct {
	ContextID           string                    `json:"contextID"`
	TransactionType     string                    `json:"transactionType"`
	TransactionID       string                    `json:"transactionID"`
	TransactionCurrency string                    `json:"transactionCurrency"`
	TransactionAmount   decimal.Decimal           `json:"transactionAmount"`
	ReferenceCurrency   string                    `json:"referenceCurrency"`
	ExchangeRateUsed    *decimal.Decimal          `json:"exchangeRateUsed,omitempty"`
	ConvertedAmount     *decimal.Decimal          `json:"convertedAmount,omitempty"`
	ConversionOccurred  bool                      `json:"conversionOccurred"`
	Decision            domain.ConversionDecision `json:"decision"`
	CreatedAt           time.Time                 `json:"createdAt"`
}

// ToCurrencyContextResponse maps a domain context to its response shape.
func ToCurrencyContextResponse(c *domain.TransactionCurrencyContext) CurrencyContextResponse {
	return CurrencyContextResponse{
		ContextID:           c.ContextID,
		TransactionType:     c.TransactionType,
		TransactionID:       c.TransactionID,
		TransactionCurrency: c.TransactionCurrency,
		TransactionAmount:   c.TransactionAmount,
		ReferenceCurrency:   c.ReferenceCurrency,
		ExchangeRateUsed:    c.ExchangeRateUsed,
		ConvertedAmount:     c.ConvertedAmount,
		ConversionOccurred:  c.ConversionOccurred,
		Decision:            c.Decision,
		CreatedAt:           c.CreatedAt,
	}
}

// RevaluationRequest defines the JSON body for triggering a revaluation run.
type RevaluationRequest struct {
	CurrencyCode   string          `json:"currencyCode" binding:"required,currencycode"`
	NewRate        decimal.Decimal `json:"newRate" binding:"required"`
	FiscalPeriodID *string         `json:"fiscalPeriodID,omitempty"`
}

// RevaluationRowResponse is one per-(currency, account) revaluation snapshot.
type RevaluationRowResponse struct {
	AccountCode     string          `json:"accountCode"`
	CurrencyCode    string          `json:"currencyCode"`
	PreviousRate    decimal.Decimal `json:"previousRate"`
	NewRate         decimal.Decimal `json:"newRate"`
	PreviousBalance decimal.Decimal `json:"previousBalance"`
	NewBalance      decimal.Decimal `json:"newBalance"`
	GainLoss        decimal.Decimal `json:"gainLoss"`
}

// RevaluationResponse summarizes a revaluation run.
type RevaluationResponse struct {
	Revaluations []RevaluationRowResponse `json:"revaluations"`
	TotalGain    decimal.Decimal          `json:"totalGain"`
	TotalLoss    decimal.Decimal          `json:"totalLoss"`
	NetEffect    decimal.Decimal          `json:"netEffect"`
}

// ToRevaluationResponse maps a domain revaluation result to its response shape.
func ToRevaluationResponse(r *domain.RevaluationResult) RevaluationResponse {
	rows := make([]RevaluationRowResponse, len(r.Revaluations))
	for i, rev := range r.Revaluations {
		rows[i] = RevaluationRowResponse{
			AccountCode:     rev.AccountCode,
			CurrencyCode:    rev.CurrencyCode,
			PreviousRate:    rev.PreviousRate,
			NewRate:         rev.NewRate,
			PreviousBalance: rev.PreviousBalance,
			NewBalance:      rev.NewBalance,
			GainLoss:        rev.GainLoss,
		}
	}
	return RevaluationResponse{
		Revaluations: rows,
		TotalGain:    r.TotalGain,
		TotalLoss:    r.TotalLoss,
		NetEffect:    r.NetEffect,
	}
}
