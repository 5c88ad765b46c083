package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PolicyType classifies how an institution treats foreign currency.
type PolicyType string

const (
	// PolicyUnitOfMeasure treats foreign currency as a unit of measure:
	// balances stay in their original currency, conversion is deferred.
	PolicyUnitOfMeasure PolicyType = "UNIT_OF_MEASURE"
	// PolicyValuedAsset treats foreign currency as a valued asset whose
	// conversion moment depends on the configured timing.
	PolicyValuedAsset PolicyType = "VALUED_ASSET"
	// PolicyNormalization converts everything to the reference currency
	// at posting time.
	PolicyNormalization PolicyType = "NORMALIZATION"
)

// ConversionTiming pins down when a VALUED_ASSET policy converts.
type ConversionTiming string

const (
	TimingPosting    ConversionTiming = "POSTING"
	TimingSettlement ConversionTiming = "SETTLEMENT"
	TimingReporting  ConversionTiming = "REPORTING"
	TimingNever      ConversionTiming = "NEVER"
)

// ConversionDecision records why (or whether) a transaction's currency
// was converted.
type ConversionDecision string

const (
	DecisionPolicyMandated ConversionDecision = "POLICY_MANDATED"
	DecisionUserRequested  ConversionDecision = "USER_REQUESTED"
	DecisionSameCurrency   ConversionDecision = "SAME_CURRENCY"
	DecisionDeferred       ConversionDecision = "DEFERRED"
	DecisionExempted       ConversionDecision = "EXEMPTED"
)

// InvolvesConversion reports whether the decision implies an actual
// conversion was (or must be) performed.
func (d ConversionDecision) InvolvesConversion() bool {
	return d == DecisionPolicyMandated || d == DecisionUserRequested
}

// PolicySnapshot is the per-request resolution of the active policy and
// reference currency. It is resolved once at the start of a call chain and
// threaded through explicitly; nothing reads ambient global policy state.
type PolicySnapshot struct {
	ActivePolicy      *CurrencyPolicy // Nil when no policy is active
	ReferenceCurrency *Currency
}

// ReferenceCurrencyCode returns the reference currency code, or "" when
// none is configured.
func (s PolicySnapshot) ReferenceCurrencyCode() string {
	if s.ReferenceCurrency == nil {
		return ""
	}
	return s.ReferenceCurrency.CurrencyCode
}

// DetermineConversionDecision classifies how the policy treats a
// transaction in the given currency. The table is exhaustive: every
// policy type and timing combination maps to exactly one decision.
//
//  1. No active policy behaves like normalization (fail-safe default).
//  2. Transaction currency equals the reference currency -> SAME_CURRENCY.
//  3. An explicit user request wins over policy deferral.
//  4. Otherwise the policy type (and, for VALUED_ASSET, its timing) decides.
func (s PolicySnapshot) DetermineConversionDecision(transactionCurrency string, userRequestedConversion bool) ConversionDecision {
	if s.ActivePolicy == nil {
		return DecisionPolicyMandated
	}
	if transactionCurrency == s.ReferenceCurrencyCode() {
		return DecisionSameCurrency
	}
	if userRequestedConversion {
		return DecisionUserRequested
	}

	switch s.ActivePolicy.PolicyType {
	case PolicyNormalization:
		return DecisionPolicyMandated
	case PolicyUnitOfMeasure:
		return DecisionDeferred
	case PolicyValuedAsset:
		switch s.ActivePolicy.ConversionTiming {
		case TimingPosting:
			return DecisionPolicyMandated
		case TimingSettlement, TimingReporting, TimingNever:
			return DecisionDeferred
		default:
			return DecisionDeferred
		}
	default:
		// Unknown policy types are treated as exempt rather than silently
		// converted with an unvetted rule.
		return DecisionExempted
	}
}

// AllowsMultiCurrencyBalances reports whether ledger balances may be kept
// in their original currencies. With no active policy the ledger accepts
// whatever currency the caller posted.
func (s PolicySnapshot) AllowsMultiCurrencyBalances() bool {
	return s.ActivePolicy == nil || s.ActivePolicy.AllowMultiCurrencyBalances
}

// ConversionOutcome is the result of converting an amount between currencies.
type ConversionOutcome struct {
	Amount decimal.Decimal `json:"amount"`
	Rate   decimal.Decimal `json:"rate"`
}

// PostingAmount is the amount and currency the ledger should actually record
// for a caller-supplied original amount, per the active policy.
type PostingAmount struct {
	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode string          `json:"currencyCode"`
	Rate         *decimal.Decimal
	Converted    bool
}

// CurrencyPolicy is the institutional currency policy. Exactly one policy
// is active at a time; a policy is swapped by activating a different
// record, never mutated in place while referenced by existing contexts.
type CurrencyPolicy struct {
	PolicyID                   string           `json:"policyID"` // Primary Key (UUID)
	Name                       string           `json:"name"`
	PolicyType                 PolicyType       `json:"policyType"`
	ConversionTiming           ConversionTiming `json:"conversionTiming"`
	AllowMultiCurrencyBalances bool             `json:"allowMultiCurrencyBalances"`
	RevaluationEnabled         bool             `json:"revaluationEnabled"`
	RevaluationFrequency       string           `json:"revaluationFrequency"` // e.g. "MONTHLY"; informational
	IsActive                   bool             `json:"isActive"`
	AuditFields
}

// TransactionCurrencyContext is a point-in-time snapshot binding a source
// transaction to the policy, currencies, amounts and rate in force when it
// was posted. One context exists per (transaction type, transaction ID)
// and is never retroactively recomputed.
type TransactionCurrencyContext struct {
	ContextID           string             `json:"contextID"` // Primary Key (UUID)
	TransactionType     string             `json:"transactionType"`
	TransactionID       string             `json:"transactionID"`
	PolicyID            *string            `json:"policyID,omitempty"` // Nil when no policy was active
	TransactionCurrency string             `json:"transactionCurrency"`
	TransactionAmount   decimal.Decimal    `json:"transactionAmount"`
	ReferenceCurrency   string             `json:"referenceCurrency"`
	ExchangeRateUsed    *decimal.Decimal   `json:"exchangeRateUsed,omitempty"`
	ConvertedAmount     *decimal.Decimal   `json:"convertedAmount,omitempty"`
	ConversionOccurred  bool               `json:"conversionOccurred"`
	Decision            ConversionDecision `json:"decision"`
	AuditFields
}

// CurrencyLedgerEntry is the shadow record of a ledger line, preserving
// the original (pre-policy) currency, amount and rate so per-currency
// balances can be reconstructed independently of what was posted.
type CurrencyLedgerEntry struct {
	EntryID          string           `json:"entryID"` // Primary Key (UUID)
	LedgerLineID     string           `json:"ledgerLineID"`
	VoucherNumber    string           `json:"voucherNumber"`
	AccountCode      string           `json:"accountCode"`
	EntryType        EntryType        `json:"entryType"`
	OriginalCurrency string           `json:"originalCurrency"`
	OriginalAmount   decimal.Decimal  `json:"originalAmount"`
	PostedCurrency   string           `json:"postedCurrency"`
	PostedAmount     decimal.Decimal  `json:"postedAmount"`
	ExchangeRateUsed *decimal.Decimal `json:"exchangeRateUsed,omitempty"`
	EntryDate        time.Time        `json:"entryDate"`
	AuditFields
}

// Revaluation is one per-(currency, account) snapshot produced by a
// revaluation run. GainLoss is signed: positive values are gains from the
// perspective of the account's reference-currency balance.
type Revaluation struct {
	RevaluationID    string          `json:"revaluationID"` // Primary Key (UUID)
	CurrencyCode     string          `json:"currencyCode"`
	AccountCode      string          `json:"accountCode"`
	PreviousRate     decimal.Decimal `json:"previousRate"`
	NewRate          decimal.Decimal `json:"newRate"`
	PreviousBalance  decimal.Decimal `json:"previousBalance"` // Reference-currency balance before
	NewBalance       decimal.Decimal `json:"newBalance"`      // Reference-currency balance after
	GainLoss         decimal.Decimal `json:"gainLoss"`
	AdjustmentNumber *string         `json:"adjustmentNumber,omitempty"` // Voucher posted for the gain/loss
	FiscalPeriodID   *string         `json:"fiscalPeriodID,omitempty"`
	AuditFields
}
