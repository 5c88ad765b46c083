package dto

import (
	"time"

	"github.com/openacct/ledger_backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// MultiCurrencyEntryRequest is one caller-supplied entry carrying its own
// currency. A nil currency falls back to the transaction currency, then to
// the reference currency.
type MultiCurrencyEntryRequest struct {
	AccountCode  string           `json:"accountCode" binding:"required"`
	EntryType    domain.EntryType `json:"entryType" binding:"required,oneof=DEBIT CREDIT"`
	Amount       decimal.Decimal  `json:"amount" binding:"required"`
	CurrencyCode *string          `json:"currencyCode,omitempty"`
	Description  string           `json:"description,omitempty"`
}

// PostMultiCurrencyRequest defines the JSON body for a multi-currency posting.
type PostMultiCurrencyRequest struct {
	Entries                 []MultiCurrencyEntryRequest `json:"entries" binding:"required,min=2,dive"`
	Description             string                      `json:"description,omitempty"`
	DocumentType            string                      `json:"documentType,omitempty"`
	ReferenceType           *string                     `json:"referenceType,omitempty"`
	ReferenceID             *string                     `json:"referenceID,omitempty"`
	VoucherNumber           *string                     `json:"voucherNumber,omitempty"`
	VoucherDate             *time.Time                  `json:"voucherDate,omitempty"`
	TransactionCurrency     *string                     `json:"transactionCurrency,omitempty"`
	TransactionAmount       *decimal.Decimal            `json:"transactionAmount,omitempty"`
	UserRequestedConversion bool                        `json:"userRequestedConversion,omitempty"`
}

// PostMultiCurrencyResponse returns the voucher number and, when one was
// created, the transaction currency context snapshot.
type PostMultiCurrencyResponse struct {
	VoucherNumber   string                   `json:"voucherNumber"`
	CurrencyContext *CurrencyContextResponse `json:"currencyContext,omitempty"`
}
