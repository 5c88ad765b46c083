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

// postingHandler handles HTTP requests for multi-currency postings and
// per-currency balance reads.
type postingHandler struct {
	postingService portssvc.MultiCurrencyPostingSvcFacade
}

// registerPostingRoutes registers routes related to multi-currency posting.
func registerPostingRoutes(rg *gin.RouterGroup, postingService portssvc.MultiCurrencyPostingSvcFacade) {
	h := &postingHandler{postingService: postingService}

	rg.POST("/multi-currency-vouchers", h.postMultiCurrencyVoucher)
	rg.GET("/accounts/:code/currency-balances", h.getAccountCurrencyBalances)
	rg.GET("/accounts/:code/currency-balances/:currency", h.getAccountBalanceInCurrency)
	rg.GET("/trial-balance/by-currency", h.getMultiCurrencyTrialBalance)
}

// postMultiCurrencyVoucher godoc
// @Summary Post a multi-currency voucher
// @Description Converts caller-supplied entries per the active currency policy and posts them atomically with their original-currency shadow entries
// @Tags multi-currency
// @Accept  json
// @Produce  json
// @Param   voucher body dto.PostMultiCurrencyRequest true "Entries and transaction currency details"
// @Success 201 {object} dto.PostMultiCurrencyResponse
// @Failure 400 {object} map[string]string "Malformed or unbalanced request"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 422 {object} map[string]string "Policy or integrity violation"
// @Failure 500 {object} map[string]string "Failed to post voucher"
// @Security BearerAuth
// @Router /multi-currency-vouchers [post]
func (h *postingHandler) postMultiCurrencyVoucher(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.PostMultiCurrencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	voucher, tcc, err := h.postingService.PostMultiCurrencyTransaction(c.Request.Context(), req, userID)
	if err != nil {
		writeLedgerError(c, logger, err, "post multi-currency voucher")
		return
	}

	resp := dto.PostMultiCurrencyResponse{VoucherNumber: voucher.VoucherNumber}
	if tcc != nil {
		ctxResp := dto.ToCurrencyContextResponse(tcc)
		resp.CurrencyContext = &ctxResp
	}
	c.JSON(http.StatusCreated, resp)
}

// getAccountCurrencyBalances godoc
// @Summary List an account's balances per currency
// @Description Reconstructs the account's balance in every original currency from shadow entries
// @Tags multi-currency
// @Produce  json
// @Param   code path string true "Account code"
// @Success 200 {array} dto.CurrencyBalanceResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Account not found"
// @Failure 500 {object} map[string]string "Failed to compute balances"
// @Security BearerAuth
// @Router /accounts/{code}/currency-balances [get]
func (h *postingHandler) getAccountCurrencyBalances(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountCode := c.Param("code")

	balances, err := h.postingService.GetAccountCurrencyBalances(c.Request.Context(), accountCode)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
			return
		}
		logger.Error("Failed to compute currency balances", slog.String("error", err.Error()), slog.String("account_code", accountCode))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute balances"})
		return
	}

	responses := make([]dto.CurrencyBalanceResponse, len(balances))
	for i, b := range balances {
		responses[i] = dto.CurrencyBalanceResponse{
			CurrencyCode: b.CurrencyCode,
			AccountCode:  b.AccountCode,
			Balance:      b.Balance,
		}
	}
	c.JSON(http.StatusOK, responses)
}

// getAccountBalanceInCurrency godoc
// @Summary Get an account's balance in one currency
// @Description Computes the account's balance in one original currency from shadow entries
// @Tags multi-currency
// @Produce  json
// @Param   code path string true "Account code"
// @Param   currency path string true "Currency code"
// @Success 200 {object} dto.CurrencyBalanceResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Account not found"
// @Failure 500 {object} map[string]string "Failed to compute balance"
// @Security BearerAuth
// @Router /accounts/{code}/currency-balances/{currency} [get]
func (h *postingHandler) getAccountBalanceInCurrency(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountCode := c.Param("code")
	currencyCode := c.Param("currency")

	balance, err := h.postingService.GetAccountBalanceInCurrency(c.Request.Context(), accountCode, currencyCode)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
			return
		}
		logger.Error("Failed to compute balance in currency", slog.String("error", err.Error()),
			slog.String("account_code", accountCode), slog.String("currency_code", currencyCode))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute balance"})
		return
	}

	c.JSON(http.StatusOK, dto.CurrencyBalanceResponse{
		CurrencyCode: currencyCode,
		AccountCode:  accountCode,
		Balance:      balance,
	})
}

// getMultiCurrencyTrialBalance godoc
// @Summary Get the trial balance per currency
// @Description Groups shadow-entry balances per original currency
// @Tags multi-currency
// @Produce  json
// @Param   asOf query string false "Trial balance as of this date (RFC 3339)"
// @Success 200 {object} dto.MultiCurrencyTrialBalanceResponse
// @Failure 400 {object} map[string]string "Invalid asOf date"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to compute trial balance"
// @Security BearerAuth
// @Router /trial-balance/by-currency [get]
func (h *postingHandler) getMultiCurrencyTrialBalance(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	asOf, ok := parseAsOf(c)
	if !ok {
		return
	}

	grouped, err := h.postingService.GetMultiCurrencyTrialBalance(c.Request.Context(), asOf)
	if err != nil {
		logger.Error("Failed to compute multi-currency trial balance", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute trial balance"})
		return
	}

	resp := dto.MultiCurrencyTrialBalanceResponse{Currencies: make(map[string][]dto.CurrencyBalanceResponse, len(grouped))}
	for currency, balances := range grouped {
		rows := make([]dto.CurrencyBalanceResponse, len(balances))
		for i, b := range balances {
			rows[i] = dto.CurrencyBalanceResponse{
				CurrencyCode: b.CurrencyCode,
				AccountCode:  b.AccountCode,
				Balance:      b.Balance,
			}
		}
		resp.Currencies[currency] = rows
	}
	c.JSON(http.StatusOK, resp)
}
