package handler

import (
	"github.com/admarket/backend/internal/application/payment"
	"github.com/gin-gonic/gin"
)

// PaymentHandler serves deposits, withdrawals, balances and history
type PaymentHandler struct {
	BaseHandler
	payments *payment.Service
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(svc *payment.Service) *PaymentHandler {
	return &PaymentHandler{payments: svc}
}

// CreateDeposit godoc
// @Summary      Open a pending deposit to the caller's seller balance
// @Tags         payments
// @Router       /payments/deposits [post]
func (h *PaymentHandler) CreateDeposit(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	var req payment.CreateDepositRequest
	if !h.bindJSON(c, &req) {
		return
	}

	tx, err := h.payments.CreateDeposit(c.Request.Context(), userID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, tx)
}

// DepositWebhook godoc
// @Summary      Provider callback settling a pending deposit
// @Description  Called by the payment gateway adapter with its service token.
// @Description  Repeated callbacks for the same deposit are acknowledged without effect.
// @Tags         payments
// @Router       /payments/deposits/webhook [post]
func (h *PaymentHandler) DepositWebhook(c *gin.Context) {
	var req payment.DepositWebhookRequest
	if !h.bindJSON(c, &req) {
		return
	}

	tx, err := h.payments.CompleteDeposit(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, tx)
}

// RequestWithdrawal godoc
// @Summary      Reserve channel earnings for a payout
// @Tags         payments
// @Router       /payments/withdrawals [post]
func (h *PaymentHandler) RequestWithdrawal(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	var req payment.RequestWithdrawalRequest
	if !h.bindJSON(c, &req) {
		return
	}

	w, err := h.payments.RequestWithdrawal(c.Request.Context(), userID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, w)
}

// GetBalance godoc
// @Summary      Seller and channel balances of the caller
// @Tags         payments
// @Router       /payments/balance [get]
func (h *PaymentHandler) GetBalance(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	balance, err := h.payments.GetBalance(c.Request.Context(), userID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, balance)
}

// ListTransactions godoc
// @Summary      The caller's ledger records, newest first
// @Tags         payments
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20) maximum(100)
// @Router       /payments/transactions [get]
func (h *PaymentHandler) ListTransactions(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	req, ok := h.bindList(c)
	if !ok {
		return
	}

	result, err := h.payments.ListTransactions(c.Request.Context(), userID, req.Pagination())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	page(c, result)
}
