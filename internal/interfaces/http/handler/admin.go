package handler

import (
	"github.com/admarket/backend/internal/application/admin"
	"github.com/admarket/backend/internal/application/dispute"
	"github.com/admarket/backend/internal/application/event"
	"github.com/admarket/backend/internal/application/payment"
	"github.com/gin-gonic/gin"
)

// AdminHandler serves the administrator surface: dispute rulings,
// withdrawal payouts, moderation and the notification dead letter queue
type AdminHandler struct {
	BaseHandler
	platform *admin.Service
	disputes *dispute.Service
	payments *payment.Service
	outbox   *event.OutboxService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(platform *admin.Service, disputes *dispute.Service, payments *payment.Service, outbox *event.OutboxService) *AdminHandler {
	return &AdminHandler{platform: platform, disputes: disputes, payments: payments, outbox: outbox}
}

// GetPlatformStats godoc
// @Summary      Marketplace totals: accounts, campaigns, GMV and revenue
// @Tags         admin
// @Param        date query string false "UTC day as YYYY-MM-DD"
// @Router       /admin/stats [get]
func (h *AdminHandler) GetPlatformStats(c *gin.Context) {
	period, err := admin.ParseStatsDate(c.Query("date"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	result, err := h.platform.GetPlatformStats(c.Request.Context(), period)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, result)
}

// BlockUser godoc
// @Summary      Deactivate a user's seller and channel accounts
// @Tags         admin
// @Router       /admin/users/{id}/block [post]
func (h *AdminHandler) BlockUser(c *gin.Context) {
	adminID, ok := h.currentUser(c)
	if !ok {
		return
	}
	userID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req admin.BlockUserRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.platform.BlockUser(c.Request.Context(), userID, adminID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, result)
}

// ListActions godoc
// @Summary      Admin audit log, newest first
// @Tags         admin
// @Router       /admin/actions [get]
func (h *AdminHandler) ListActions(c *gin.Context) {
	req, ok := h.bindList(c)
	if !ok {
		return
	}

	result, err := h.platform.ListActions(c.Request.Context(), req.Pagination())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	page(c, result)
}

// RetryAllResponse reports how many dead entries were requeued
type RetryAllResponse struct {
	Count int64 `json:"count"`
}

// ListDisputes godoc
// @Summary      Disputes, newest first
// @Tags         admin
// @Param        status query string false "open or resolved"
// @Router       /admin/disputes [get]
func (h *AdminHandler) ListDisputes(c *gin.Context) {
	req, ok := h.bindList(c)
	if !ok {
		return
	}
	status, err := dispute.ParseStatusFilter(req.Status)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	result, err := h.disputes.ListDisputes(c.Request.Context(), status, req.Pagination())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	page(c, result)
}

// GetDispute godoc
// @Summary      A dispute with the campaign it contests
// @Tags         admin
// @Router       /admin/disputes/{id} [get]
func (h *AdminHandler) GetDispute(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	result, err := h.disputes.GetDispute(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, result)
}

// ResolveDispute godoc
// @Summary      Rule on a dispute: refund, release_payment or partial_refund
// @Tags         admin
// @Router       /admin/disputes/{id}/resolve [post]
func (h *AdminHandler) ResolveDispute(c *gin.Context) {
	adminID, ok := h.currentUser(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req dispute.ResolveDisputeRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.disputes.ResolveDispute(c.Request.Context(), id, adminID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, result)
}

// ListWithdrawals godoc
// @Summary      Withdrawal requests by status, pending by default
// @Tags         admin
// @Param        status query string false "pending, completed or rejected"
// @Router       /admin/withdrawals [get]
func (h *AdminHandler) ListWithdrawals(c *gin.Context) {
	req, ok := h.bindList(c)
	if !ok {
		return
	}
	status, err := payment.ParseWithdrawalStatus(req.Status)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	result, err := h.payments.ListWithdrawals(c.Request.Context(), status, req.Pagination())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	page(c, result)
}

// ApproveWithdrawal godoc
// @Summary      Pay out a pending withdrawal
// @Tags         admin
// @Router       /admin/withdrawals/{id}/approve [post]
func (h *AdminHandler) ApproveWithdrawal(c *gin.Context) {
	adminID, ok := h.currentUser(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	result, err := h.payments.ApproveWithdrawal(c.Request.Context(), id, adminID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, result)
}

// RejectWithdrawal godoc
// @Summary      Refuse a pending withdrawal and release the reserved earnings
// @Tags         admin
// @Router       /admin/withdrawals/{id}/reject [post]
func (h *AdminHandler) RejectWithdrawal(c *gin.Context) {
	adminID, ok := h.currentUser(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req payment.RejectWithdrawalRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}

	result, err := h.payments.RejectWithdrawal(c.Request.Context(), id, adminID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, result)
}

// GetDeadLetterEntries godoc
// @Summary      Notifications that exhausted their retries
// @Tags         admin
// @Router       /admin/outbox/dead [get]
func (h *AdminHandler) GetDeadLetterEntries(c *gin.Context) {
	req, ok := h.bindList(c)
	if !ok {
		return
	}

	result, err := h.outbox.GetDeadLetterEntries(c.Request.Context(), req.Pagination())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	page(c, result)
}

// GetOutboxEntry godoc
// @Summary      One outbox entry
// @Tags         admin
// @Router       /admin/outbox/entries/{id} [get]
func (h *AdminHandler) GetOutboxEntry(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	entry, err := h.outbox.GetEntry(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, entry)
}

// RetryDeadEntry godoc
// @Summary      Requeue one dead entry
// @Tags         admin
// @Router       /admin/outbox/entries/{id}/retry [post]
func (h *AdminHandler) RetryDeadEntry(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	entry, err := h.outbox.RetryDeadEntry(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, entry)
}

// RetryAllDeadEntries godoc
// @Summary      Requeue every dead entry
// @Tags         admin
// @Router       /admin/outbox/dead/retry-all [post]
func (h *AdminHandler) RetryAllDeadEntries(c *gin.Context) {
	count, err := h.outbox.RetryAllDeadEntries(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, RetryAllResponse{Count: count})
}

// GetOutboxStats godoc
// @Summary      Outbox entry counts by status
// @Tags         admin
// @Router       /admin/outbox/stats [get]
func (h *AdminHandler) GetOutboxStats(c *gin.Context) {
	stats, err := h.outbox.GetStats(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, stats)
}
