package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openacct/ledger_backend/internal/apperrors"
	portssvc "github.com/openacct/ledger_backend/internal/core/ports/services"
	"github.com/openacct/ledger_backend/internal/dto"
	"github.com/openacct/ledger_backend/internal/middleware"
)

// policyHandler handles HTTP requests for currency policies and revaluation.
type policyHandler struct {
	policyService portssvc.CurrencyPolicySvcFacade
}

// registerPolicyRoutes registers routes related to currency policies.
func registerPolicyRoutes(rg *gin.RouterGroup, policyService portssvc.CurrencyPolicySvcFacade) {
	h := &policyHandler{policyService: policyService}

	policies := rg.Group("/currency-policies")
	{
		policies.POST("", h.createPolicy)
		policies.GET("", h.listPolicies)
		policies.POST("/:id/activate", h.activatePolicy)
	}

	rg.POST("/revaluations", h.processRevaluation)
}

// createPolicy godoc
// @Summary Create a currency policy
// @Description Creates a currency policy record, optionally activating it
// @Tags currency-policies
// @Accept  json
// @Produce  json
// @Param   policy body dto.CreatePolicyRequest true "Policy details"
// @Success 201 {object} dto.PolicyResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to create policy"
// @Security BearerAuth
// @Router /currency-policies [post]
func (h *policyHandler) createPolicy(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreatePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	policy, err := h.policyService.CreatePolicy(c.Request.Context(), req, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.Error("Failed to create currency policy", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create policy"})
		return
	}

	c.JSON(http.StatusCreated, dto.ToPolicyResponse(policy))
}

// listPolicies godoc
// @Summary List currency policies
// @Description Retrieves all currency policies
// @Tags currency-policies
// @Produce  json
// @Success 200 {array} dto.PolicyResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to list policies"
// @Security BearerAuth
// @Router /currency-policies [get]
func (h *policyHandler) listPolicies(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	policies, err := h.policyService.ListPolicies(c.Request.Context())
	if err != nil {
		logger.Error("Failed to list currency policies", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list policies"})
		return
	}

	responses := make([]dto.PolicyResponse, len(policies))
	for i := range policies {
		responses[i] = dto.ToPolicyResponse(&policies[i])
	}
	c.JSON(http.StatusOK, responses)
}

// activatePolicy godoc
// @Summary Activate a currency policy
// @Description Activates the given policy and deactivates every other one; existing contexts keep their snapshots
// @Tags currency-policies
// @Produce  json
// @Param   id path string true "Policy ID"
// @Success 204 "Activated"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Policy not found"
// @Failure 500 {object} map[string]string "Failed to activate policy"
// @Security BearerAuth
// @Router /currency-policies/{id}/activate [post]
func (h *policyHandler) activatePolicy(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	policyID := c.Param("id")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := h.policyService.ActivatePolicy(c.Request.Context(), policyID, userID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Policy not found"})
			return
		}
		logger.Error("Failed to activate currency policy", slog.String("error", err.Error()), slog.String("policy_id", policyID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to activate policy"})
		return
	}

	c.Status(http.StatusNoContent)
}

// processRevaluation godoc
// @Summary Run a currency revaluation
// @Description Revalues every account holding the currency at the new rate and posts the gain/loss voucher
// @Tags currency-policies
// @Accept  json
// @Produce  json
// @Param   revaluation body dto.RevaluationRequest true "Revaluation details"
// @Success 200 {object} dto.RevaluationResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Currency not found"
// @Failure 422 {object} map[string]string "Policy forbids revaluation"
// @Failure 500 {object} map[string]string "Failed to process revaluation"
// @Security BearerAuth
// @Router /revaluations [post]
func (h *policyHandler) processRevaluation(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.RevaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	result, err := h.policyService.ProcessRevaluation(c.Request.Context(), req.CurrencyCode, req.NewRate, req.FiscalPeriodID, userID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, apperrors.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, apperrors.ErrPolicy):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			logger.Error("Failed to process revaluation", slog.String("error", err.Error()), slog.String("currency_code", req.CurrencyCode))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process revaluation"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToRevaluationResponse(result))
}
