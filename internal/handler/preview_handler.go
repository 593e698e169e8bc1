package handler

import (
	"net/http"

	"loyaltytracker/internal/service"
)

// PreviewHandler handles HTTP requests for message preview functionality
type PreviewHandler struct {
	campaignService *service.CampaignService
}

// NewPreviewHandler creates a new PreviewHandler instance
func NewPreviewHandler(campaignService *service.CampaignService) *PreviewHandler {
	return &PreviewHandler{
		campaignService: campaignService,
	}
}

// Preview handles POST /campaigns/preview. It renders a message for one
// customer (or the generic greeting) and prices it for the given recipient count.
func (h *PreviewHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req service.PreviewMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Recipients < 0 {
		WriteValidationError(w, "recipients cannot be negative")
		return
	}

	result, err := h.campaignService.PreviewMessage(r.Context(), &req)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	WriteOK(w, result)
}
