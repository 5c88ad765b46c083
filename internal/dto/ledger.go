package dto

import (
	"time"

	"github.com/openacct/ledger_backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// PostLineRequest is one ledger line of a posting request. Direction is
// carried by EntryType; amounts are always positive.
type PostLineRequest struct {
	AccountCode string           `json:"accountCode" binding:"required"`
	EntryType   domain.EntryType `json:"entryType" binding:"required,oneof=DEBIT CREDIT"`
	Amount      decimal.Decimal  `json:"amount" binding:"required"`
	Description string           `json:"description,omitempty"`
}

// PostVoucherRequest defines the JSON body for posting a balanced voucher.
type PostVoucherRequest struct {
	Lines         []PostLineRequest `json:"lines" binding:"required,min=2,dive"`
	Description   string            `json:"description,omitempty"`
	DocumentType  string            `json:"documentType,omitempty"` // Defaults to "JV"
	ReferenceType *string           `json:"referenceType,omitempty"`
	ReferenceID   *string           `json:"referenceID,omitempty"`
	VoucherNumber *string           `json:"voucherNumber,omitempty"` // Supplied numbers bypass the sequencer
	VoucherDate   *time.Time        `json:"voucherDate,omitempty"`   // Defaults to now
}

// PostVoucherResponse returns the assigned voucher number.
type PostVoucherResponse struct {
	VoucherNumber string `json:"voucherNumber"`
}

// ReverseVoucherRequest defines the optional reversal description.
type ReverseVoucherRequest struct {
	Description *string `json:"description,omitempty"`
}

// LedgerLineResponse is the JSON representation of one ledger line.
type LedgerLineResponse struct {
	LedgerLineID string           `json:"ledgerLineID"`
	AccountCode  string           `json:"accountCode"`
	EntryType    domain.EntryType `json:"entryType"`
	Amount       decimal.Decimal  `json:"amount"`
	Description  string           `json:"description,omitempty"`
	IsClosed     bool             `json:"isClosed"`
	CreatedAt    time.Time        `json:"createdAt"`
	CreatedBy    string           `json:"createdBy"`
}

// VoucherResponse is the JSON representation of a voucher with its lines.
type VoucherResponse struct {
	VoucherNumber  string               `json:"voucherNumber"`
	DocumentType   string               `json:"documentType"`
	VoucherDate    time.Time            `json:"voucherDate"`
	FiscalPeriodID string               `json:"fiscalPeriodID"`
	Description    string               `json:"description,omitempty"`
	ReferenceType  *string              `json:"referenceType,omitempty"`
	ReferenceID    *string              `json:"referenceID,omitempty"`
	Lines          []LedgerLineResponse `json:"lines,omitempty"`
}

// ListVouchersResponse wraps a voucher page with its continuation token.
type ListVouchersResponse struct {
	Vouchers  []VoucherResponse `json:"vouchers"`
	NextToken *string           `json:"nextToken,omitempty"`
}

// AccountBalanceResponse is the JSON representation of an account balance.
type AccountBalanceResponse struct {
	AccountCode string          `json:"accountCode"`
	Balance     decimal.Decimal `json:"balance"`
	AsOf        *time.Time      `json:"asOf,omitempty"`
}

// TrialBalanceResponse is the JSON representation of the trial balance.
type TrialBalanceResponse struct {
	Accounts     []TrialBalanceRowResponse `json:"accounts"`
	TotalDebits  decimal.Decimal           `json:"totalDebits"`
	TotalCredits decimal.Decimal           `json:"totalCredits"`
	IsBalanced   bool                      `json:"isBalanced"`
	AsOf         *time.Time                `json:"asOf,omitempty"`
}

// TrialBalanceRowResponse is one account row of the trial balance.
type TrialBalanceRowResponse struct {
	AccountCode   string             `json:"accountCode"`
	AccountName   string             `json:"accountName"`
	AccountType   domain.AccountType `json:"accountType"`
	DebitBalance  decimal.Decimal    `json:"debitBalance"`
	CreditBalance decimal.Decimal    `json:"creditBalance"`
}

// ToLedgerLineResponse maps a domain ledger line to its response shape.
func ToLedgerLineResponse(l domain.LedgerLine) LedgerLineResponse {
	return LedgerLineResponse{
		LedgerLineID: l.LedgerLineID,
		AccountCode:  l.AccountCode,
		EntryType:    l.EntryType,
		Amount:       l.Amount,
		Description:  l.Description,
		IsClosed:     l.IsClosed,
		CreatedAt:    l.CreatedAt,
		CreatedBy:    l.CreatedBy,
	}
}

// ToVoucherResponse maps a domain voucher (and its lines) to the response shape.
func ToVoucherResponse(v *domain.Voucher) VoucherResponse {
	lines := make([]LedgerLineResponse, len(v.Lines))
	for i, l := range v.Lines {
		lines[i] = ToLedgerLineResponse(l)
	}
	return VoucherResponse{
		VoucherNumber:  v.VoucherNumber,
		DocumentType:   v.DocumentType,
		VoucherDate:    v.VoucherDate,
		FiscalPeriodID: v.FiscalPeriodID,
		Description:    v.Description,
		ReferenceType:  v.ReferenceType,
		ReferenceID:    v.ReferenceID,
		Lines:          lines,
	}
}

// ToTrialBalanceResponse maps trial balance data to its response shape.
func ToTrialBalanceResponse(tb *domain.TrialBalanceData, asOf *time.Time) TrialBalanceResponse {
	rows := make([]TrialBalanceRowResponse, len(tb.Accounts))
	for i, r := range tb.Accounts {
		rows[i] = TrialBalanceRowResponse{
			AccountCode:   r.AccountCode,
			AccountName:   r.AccountName,
			AccountType:   r.AccountType,
			DebitBalance:  r.DebitBalance,
			CreditBalance: r.CreditBalance,
		}
	}
	return TrialBalanceResponse{
		Accounts:     rows,
		TotalDebits:  tb.TotalDebits,
		TotalCredits: tb.TotalCredits,
		IsBalanced:   tb.IsBalanced,
		AsOf:         asOf,
	}
}
