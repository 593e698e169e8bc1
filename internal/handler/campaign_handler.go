package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"loyaltytracker/internal/models"
	"loyaltytracker/internal/repository"
	"loyaltytracker/internal/service"
)

// maxListLimit caps GET /campaigns?limit=
const maxListLimit = 100

// CampaignHandler handles HTTP requests for campaign operations
type CampaignHandler struct {
	campaignService *service.CampaignService
}

// NewCampaignHandler creates a new campaign handler
func NewCampaignHandler(campaignService *service.CampaignService) *CampaignHandler {
	return &CampaignHandler{
		campaignService: campaignService,
	}
}

// ListCampaignsResponse represents the response for listing campaigns
type ListCampaignsResponse struct {
	Campaigns []*models.Campaign `json:"campaigns"`
	Sending   bool               `json:"sending"`
}

// SetProviderRequest is the body of PUT /sms/provider
type SetProviderRequest struct {
	Provider string `json:"provider"`
}

// Send handles POST /campaigns. With ?queue=true the campaign is handed
// to the worker and 202 is returned; otherwise it is delivered inline.
func (h *CampaignHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req service.SendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if r.URL.Query().Get("queue") == "true" {
		campaign, err := h.campaignService.QueueCampaign(r.Context(), &req)
		if err != nil {
			HandleServiceError(w, err)
			return
		}
		WriteAccepted(w, campaign)
		return
	}

	campaign, err := h.campaignService.SendCampaign(r.Context(), &req)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	WriteCreated(w, campaign)
}

// Schedule handles POST /campaigns/schedule
func (h *CampaignHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	var req service.SendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.ScheduledDate == nil {
		WriteValidationError(w, "scheduledDate is required")
		return
	}

	campaign, err := h.campaignService.ScheduleCampaign(r.Context(), &req)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	WriteCreated(w, campaign)
}

// List handles GET /campaigns with optional status, type and limit filters
func (h *CampaignHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var filters repository.CampaignFilters

	if limitStr := query.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			WriteValidationError(w, "limit must be a positive integer")
			return
		}
		if limit > maxListLimit {
			limit = maxListLimit
		}
		filters.Limit = limit
	}

	if statusStr := query.Get("status"); statusStr != "" {
		status := models.CampaignStatus(statusStr)
		switch status {
		case models.CampaignStatusDraft, models.CampaignStatusSending, models.CampaignStatusSent, models.CampaignStatusFailed:
			filters.Status = &status
		default:
			WriteValidationError(w, "invalid status: must be one of draft, sending, sent, failed")
			return
		}
	}

	if typeStr := query.Get("type"); typeStr != "" {
		campaignType := models.CampaignType(typeStr)
		if !campaignType.Valid() {
			WriteValidationError(w, "invalid campaign type")
			return
		}
		filters.Type = &campaignType
	}

	campaigns, err := h.campaignService.ListCampaigns(r.Context(), filters)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	WriteOK(w, ListCampaignsResponse{
		Campaigns: campaigns,
		Sending:   h.campaignService.IsLoading(),
	})
}

// GetByID handles GET /campaigns/{id}
func (h *CampaignHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	campaign, err := h.campaignService.GetCampaign(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	WriteOK(w, campaign)
}

// Stats handles GET /campaigns/stats
func (h *CampaignHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.campaignService.GetCampaignStats(r.Context())
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	WriteOK(w, stats)
}

// Templates handles GET /campaigns/templates
func (h *CampaignHandler) Templates(w http.ResponseWriter, r *http.Request) {
	WriteOK(w, map[string]interface{}{
		"templates": h.campaignService.Templates(),
	})
}

// Audience handles GET /audiences/{audience}
func (h *CampaignHandler) Audience(w http.ResponseWriter, r *http.Request) {
	audience := models.Audience(mux.Vars(r)["audience"])

	phones, err := h.campaignService.SelectAudience(audience)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	WriteOK(w, map[string]interface{}{
		"audience":   audience,
		"recipients": phones,
		"count":      len(phones),
	})
}

// Providers handles GET /sms/providers
func (h *CampaignHandler) Providers(w http.ResponseWriter, r *http.Request) {
	WriteOK(w, map[string]interface{}{
		"providers": h.campaignService.GetProviders(),
		"current":   h.campaignService.CurrentProvider().Key,
	})
}

// GetProvider handles GET /sms/provider
func (h *CampaignHandler) GetProvider(w http.ResponseWriter, r *http.Request) {
	WriteOK(w, h.campaignService.CurrentProvider())
}

// SetProvider handles PUT /sms/provider
func (h *CampaignHandler) SetProvider(w http.ResponseWriter, r *http.Request) {
	var req SetProviderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if !h.campaignService.SetProvider(req.Provider) {
		WriteValidationError(w, "unknown SMS provider: "+req.Provider)
		return
	}

	WriteOK(w, h.campaignService.CurrentProvider())
}

// Cost handles GET /sms/cost?recipients=&length=
func (h *CampaignHandler) Cost(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	recipients, err := strconv.Atoi(query.Get("recipients"))
	if err != nil || recipients < 0 {
		WriteValidationError(w, "recipients must be a non-negative integer")
		return
	}

	length, err := strconv.Atoi(query.Get("length"))
	if err != nil || length < 0 {
		WriteValidationError(w, "length must be a non-negative integer")
		return
	}

	WriteOK(w, map[string]interface{}{
		"provider":   h.campaignService.CurrentProvider().Key,
		"recipients": recipients,
		"length":     length,
		"cost":       h.campaignService.CalculateCost(recipients, length),
	})
}
