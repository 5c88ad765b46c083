package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryType indicates whether a ledger line is a Debit or a Credit.
// Direction is always expressed through the entry type, never through
// the sign of the amount.
type EntryType string

const (
	Debit  EntryType = "DEBIT"
	Credit EntryType = "CREDIT"
)

// Opposite returns the flipped entry type, used when building reversals.
func (t EntryType) Opposite() EntryType {
	if t == Debit {
		return Credit
	}
	return Debit
}

// Valid reports whether the entry type is one of the two closed variants.
func (t EntryType) Valid() bool {
	return t == Debit || t == Credit
}

// BalanceTolerance is the maximum permitted difference between total
// debits and total credits of a voucher or trial balance.
var BalanceTolerance = decimal.NewFromFloat(0.01)

// Voucher is a named, ordered group of at least two ledger lines sharing
// one voucher number, one date and one fiscal period. Within the group
// the sum of debits equals the sum of credits.
type Voucher struct {
	VoucherID      string    `json:"voucherID"`     // Primary Key (UUID)
	VoucherNumber  string    `json:"voucherNumber"` // Unique document number (sequencer output)
	DocumentType   string    `json:"documentType"`  // Sequencer document type, e.g. "JV"
	VoucherDate    time.Time `json:"voucherDate"`
	FiscalPeriodID string    `json:"fiscalPeriodID"`
	Description    string    `json:"description"`
	ReferenceType  *string   `json:"referenceType,omitempty"` // Polymorphic link to the originating business record
	ReferenceID    *string   `json:"referenceID,omitempty"`
	AuditFields
	Lines []LedgerLine `json:"lines,omitempty"` // Often loaded separately
}

// LedgerLine is a single immutable posting affecting one account.
// Correction is by reversal, never by mutation.
type LedgerLine struct {
	LedgerLineID  string          `json:"ledgerLineID"` // Primary Key (UUID)
	VoucherID     string          `json:"voucherID"`
	AccountCode   string          `json:"accountCode"`
	EntryType     EntryType       `json:"entryType"`
	Amount        decimal.Decimal `json:"amount"` // Always positive
	Description   string          `json:"description"`
	ReferenceType *string         `json:"referenceType,omitempty"`
	ReferenceID   *string         `json:"referenceID,omitempty"`
	IsClosed      bool            `json:"isClosed"` // Set once the fiscal period is closed
	AuditFields
}

// VoucherSequence is the per-document-type counter backing the sequencer.
type VoucherSequence struct {
	DocumentType string `json:"documentType"` // Primary Key
	Prefix       string `json:"prefix"`
	PadWidth     int    `json:"padWidth"`
	LastValue    int64  `json:"lastValue"`
}
