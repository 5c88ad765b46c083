package domain

// AccountType defines the fundamental accounting type of an account.
type AccountType string

const (
	Asset     AccountType = "ASSET"
	Liability AccountType = "LIABILITY"
	Equity    AccountType = "EQUITY"
	Revenue   AccountType = "REVENUE"
	Expense   AccountType = "EXPENSE"
)

// Account represents one entry in the chart of accounts.
// An account that has at least one child is a summary (header) account
// and can never be posted to directly.
type Account struct {
	AccountID         string      `json:"accountID"`   // Primary Key (UUID)
	AccountCode       string      `json:"accountCode"` // Unique, stable business identifier (e.g., "1110")
	Name              string      `json:"name"`
	AccountType       AccountType `json:"accountType"`
	ParentAccountCode *string     `json:"parentAccountCode,omitempty"` // Nullable self-reference
	IsActive          bool        `json:"isActive"`
	AuditFields
}
