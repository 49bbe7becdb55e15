package handler

import (
	"github.com/admarket/backend/internal/application/escrow"
	"github.com/admarket/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CampaignHandler serves the campaign workflow and its listings
type CampaignHandler struct {
	BaseHandler
	escrow *escrow.Service
}

// NewCampaignHandler creates a new campaign handler
func NewCampaignHandler(svc *escrow.Service) *CampaignHandler {
	return &CampaignHandler{escrow: svc}
}

func (h *CampaignHandler) actor(c *gin.Context) (escrow.Actor, bool) {
	id, ok := h.currentUser(c)
	if !ok {
		return escrow.Actor{}, false
	}
	return escrow.Actor{UserID: id, Admin: middleware.IsAdmin(c)}, true
}

// CreateCampaign godoc
// @Summary      Create a campaign and hold its budget
// @Tags         campaigns
// @Router       /campaigns [post]
func (h *CampaignHandler) CreateCampaign(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	var req escrow.CreateCampaignRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.escrow.CreateCampaign(c.Request.Context(), userID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, result)
}

// GetCampaign godoc
// @Summary      Get a campaign visible to the caller
// @Tags         campaigns
// @Router       /campaigns/{id} [get]
func (h *CampaignHandler) GetCampaign(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	result, err := h.escrow.GetCampaign(c.Request.Context(), id, actor)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, result)
}

// UpdateCampaign godoc
// @Summary      Change a pending campaign; budget changes adjust the hold
// @Tags         campaigns
// @Router       /campaigns/{id} [put]
func (h *CampaignHandler) UpdateCampaign(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req escrow.UpdateCampaignRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.escrow.UpdateCampaign(c.Request.Context(), id, userID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, result)
}

// AcceptCampaign godoc
// @Summary      Channel owner accepts a pending campaign
// @Tags         campaigns
// @Router       /campaigns/{id}/accept [post]
func (h *CampaignHandler) AcceptCampaign(c *gin.Context) {
	var req escrow.AcceptCampaignRequest
	h.transition(c, &req, true, func(c *gin.Context, id, userID uuid.UUID) (*escrow.CampaignResponse, error) {
		return h.escrow.AcceptCampaign(c.Request.Context(), id, userID, req)
	})
}

// RejectCampaign godoc
// @Summary      Channel owner rejects a pending campaign; the budget goes back to the seller
// @Tags         campaigns
// @Router       /campaigns/{id}/reject [post]
func (h *CampaignHandler) RejectCampaign(c *gin.Context) {
	var req escrow.RejectCampaignRequest
	h.transition(c, &req, false, func(c *gin.Context, id, userID uuid.UUID) (*escrow.CampaignResponse, error) {
		return h.escrow.RejectCampaign(c.Request.Context(), id, userID, req)
	})
}

// SubmitCampaign godoc
// @Summary      Channel owner submits placement proof
// @Tags         campaigns
// @Router       /campaigns/{id}/submit [post]
func (h *CampaignHandler) SubmitCampaign(c *gin.Context) {
	var req escrow.SubmitCampaignRequest
	h.transition(c, &req, false, func(c *gin.Context, id, userID uuid.UUID) (*escrow.CampaignResponse, error) {
		return h.escrow.SubmitCampaign(c.Request.Context(), id, userID, req)
	})
}

// ConfirmCampaign godoc
// @Summary      Seller confirms the placement, or disputes it with a reason
// @Tags         campaigns
// @Router       /campaigns/{id}/confirm [post]
func (h *CampaignHandler) ConfirmCampaign(c *gin.Context) {
	var req escrow.ConfirmCampaignRequest
	h.transition(c, &req, true, func(c *gin.Context, id, userID uuid.UUID) (*escrow.CampaignResponse, error) {
		return h.escrow.ConfirmCampaign(c.Request.Context(), id, userID, req)
	})
}

// CancelCampaign godoc
// @Summary      Seller cancels a pending campaign
// @Tags         campaigns
// @Router       /campaigns/{id}/cancel [post]
func (h *CampaignHandler) CancelCampaign(c *gin.Context) {
	var req escrow.CancelCampaignRequest
	h.transition(c, &req, true, func(c *gin.Context, id, userID uuid.UUID) (*escrow.CampaignResponse, error) {
		return h.escrow.CancelCampaign(c.Request.Context(), id, userID, req)
	})
}

// transition runs one workflow step: caller, path id, body, then op
func (h *CampaignHandler) transition(c *gin.Context, req any, optionalBody bool, op func(*gin.Context, uuid.UUID, uuid.UUID) (*escrow.CampaignResponse, error)) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	bind := h.bindJSON
	if optionalBody {
		bind = h.bindOptionalJSON
	}
	if !bind(c, req) {
		return
	}

	result, err := op(c, id, userID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, result)
}

// RequestProofUpload godoc
// @Summary      Presigned URL for uploading a placement screenshot
// @Tags         campaigns
// @Router       /campaigns/{id}/proof-upload [post]
func (h *CampaignHandler) RequestProofUpload(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req escrow.ProofUploadRequest
	if !h.bindJSON(c, &req) {
		return
	}

	upload, err := h.escrow.RequestProofUpload(c.Request.Context(), id, userID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, upload)
}

// ListActivities godoc
// @Summary      Campaign activity log, oldest first
// @Tags         campaigns
// @Router       /campaigns/{id}/activities [get]
func (h *CampaignHandler) ListActivities(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	activities, err := h.escrow.ListActivities(c.Request.Context(), id, actor)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, activities)
}

// ListSellerCampaigns godoc
// @Summary      The caller's campaigns as a seller
// @Tags         sellers
// @Param        status query string false "Campaign status"
// @Router       /sellers/me/campaigns [get]
func (h *CampaignHandler) ListSellerCampaigns(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	filter, ok := h.listFilter(c)
	if !ok {
		return
	}

	result, err := h.escrow.ListSellerCampaigns(c.Request.Context(), userID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	page(c, result)
}

// GetSellerStats godoc
// @Summary      Campaign counts and balance of the caller's seller account
// @Tags         sellers
// @Router       /sellers/me/stats [get]
func (h *CampaignHandler) GetSellerStats(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	stats, err := h.escrow.GetSellerStats(c.Request.Context(), userID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, stats)
}

// ListChannelCampaigns godoc
// @Summary      Campaigns booked on a channel the caller owns
// @Tags         channels
// @Param        status query string false "Campaign status"
// @Router       /channels/{id}/campaigns [get]
func (h *CampaignHandler) ListChannelCampaigns(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	filter, ok := h.listFilter(c)
	if !ok {
		return
	}

	result, err := h.escrow.ListChannelCampaigns(c.Request.Context(), id, actor, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	page(c, result)
}

// GetChannelStats godoc
// @Summary      Campaign counts and earnings of a channel the caller owns
// @Tags         channels
// @Router       /channels/{id}/stats [get]
func (h *CampaignHandler) GetChannelStats(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	stats, err := h.escrow.GetChannelStats(c.Request.Context(), id, actor)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, stats)
}

func (h *CampaignHandler) listFilter(c *gin.Context) (escrow.ListFilter, bool) {
	req, ok := h.bindList(c)
	if !ok {
		return escrow.ListFilter{}, false
	}
	status, err := escrow.ParseStatusFilter(req.Status)
	if err != nil {
		h.HandleDomainError(c, err)
		return escrow.ListFilter{}, false
	}
	sortBy, sortOrder, err := escrow.ParseSort(req.SortBy, req.SortOrder)
	if err != nil {
		h.HandleDomainError(c, err)
		return escrow.ListFilter{}, false
	}
	return escrow.ListFilter{Status: status, SortBy: sortBy, SortOrder: sortOrder, Pagination: req.Pagination()}, true
}
