package dto

import (
	"time"

	"github.com/openacct/ledger_backend/internal/core/domain"
)

// CreateAccountRequest defines the expected JSON body for creating an account.
type CreateAccountRequest struct {
	AccountCode       string             `json:"accountCode" binding:"required"`
	Name              string             `json:"name" binding:"required"`
	AccountType       domain.AccountType `json:"accountType" binding:"required,oneof=ASSET LIABILITY EQUITY REVENUE EXPENSE"`
	ParentAccountCode *string            `json:"parentAccountCode,omitempty"`
}

// UpdateAccountRequest defines the JSON body for updating mutable account fields.
type UpdateAccountRequest struct {
	Name *string `json:"name,omitempty"`
}

// AccountResponse defines the JSON representation of an account.
type AccountResponse struct {
	AccountCode       string             `json:"accountCode"`
	Name              string             `json:"name"`
	AccountType       domain.AccountType `json:"accountType"`
	ParentAccountCode *string            `json:"parentAccountCode,omitempty"`
	IsActive          bool               `json:"isActive"`
	CreatedAt         time.Time          `json:"createdAt"`
}

// ToAccountResponse maps a domain account to its response shape.
func ToAccountResponse(a *domain.Account) AccountResponse {
	return AccountResponse{
		AccountCode:       a.AccountCode,
		Name:              a.Name,
		AccountType:       a.AccountType,
		ParentAccountCode: a.ParentAccountCode,
		IsActive:          a.IsActive,
		CreatedAt:         a.CreatedAt,
	}
}
