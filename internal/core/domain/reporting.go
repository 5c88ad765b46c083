package domain

import "github.com/shopspring/decimal"

// TrialBalanceRow is one active account's activity in the trial balance.
// Exactly one of DebitBalance / CreditBalance is nonzero for a given row.
type TrialBalanceRow struct {
	AccountCode   string          `json:"accountCode"`
	AccountName   string          `json:"accountName"`
	AccountType   AccountType     `json:"accountType"`
	DebitBalance  decimal.Decimal `json:"debitBalance"`
	CreditBalance decimal.Decimal `json:"creditBalance"`
}

// TrialBalanceData is the full trial balance as of a date.
type TrialBalanceData struct {
	Accounts     []TrialBalanceRow `json:"accounts"`
	TotalDebits  decimal.Decimal   `json:"totalDebits"`
	TotalCredits decimal.Decimal   `json:"totalCredits"`
	IsBalanced   bool              `json:"isBalanced"`
}

// AccountActivity is the raw per-account debit/credit aggregation the
// repository produces; services apply the sign rule on top of it.
type AccountActivity struct {
	AccountCode string
	AccountName string
	AccountType AccountType
	Debits      decimal.Decimal
	Credits     decimal.Decimal
}

// CurrencyBalance is an account's balance in one original currency,
// reconstructed from shadow currency ledger entries.
type CurrencyBalance struct {
	CurrencyCode string          `json:"currencyCode"`
	AccountCode  string          `json:"accountCode"`
	AccountType  AccountType     `json:"accountType"`
	Debits       decimal.Decimal `json:"debits"`
	Credits      decimal.Decimal `json:"credits"`
	Balance      decimal.Decimal `json:"balance"`
}

// RevaluationResult summarizes one revaluation run.
type RevaluationResult struct {
	Revaluations []Revaluation   `json:"revaluations"`
	TotalGain    decimal.Decimal `json:"totalGain"`
	TotalLoss    decimal.Decimal `json:"totalLoss"`
	NetEffect    decimal.Decimal `json:"netEffect"`
}
