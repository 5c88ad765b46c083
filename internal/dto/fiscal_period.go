package dto

import (
	"time"

	"github.com/openacct/ledger_backend/internal/core/domain"
)

// CreateFiscalPeriodRequest defines the JSON body for creating a fiscal period.
type CreateFiscalPeriodRequest struct {
	Name      string    `json:"name" binding:"required"`
	StartDate time.Time `json:"startDate" binding:"required"`
	EndDate   time.Time `json:"endDate" binding:"required"`
}

// FiscalPeriodResponse defines the JSON representation of a fiscal period.
type FiscalPeriodResponse struct {
	FiscalPeriodID string    `json:"fiscalPeriodID"`
	Name           string    `json:"name"`
	StartDate      time.Time `json:"startDate"`
	EndDate        time.Time `json:"endDate"`
	IsLocked       bool      `json:"isLocked"`
	IsClosed       bool      `json:"isClosed"`
}

// ToFiscalPeriodResponse maps a domain fiscal period to its response shape.
func ToFiscalPeriodResponse(p *domain.FiscalPeriod) FiscalPeriodResponse {
	return FiscalPeriodResponse{
		FiscalPeriodID: p.FiscalPeriodID,
		Name:           p.Name,
		StartDate:      p.StartDate,
		EndDate:        p.EndDate,
		IsLocked:       p.IsLocked,
		IsClosed:       p.IsClosed,
	}
}
