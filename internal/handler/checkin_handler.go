package handler

import (
	"net/http"

	"loyaltytracker/internal/service"
)

// CheckInHandler handles front-desk check-ins
type CheckInHandler struct {
	checkInService *service.CheckInService
}

// NewCheckInHandler creates a new check-in handler
func NewCheckInHandler(checkInService *service.CheckInService) *CheckInHandler {
	return &CheckInHandler{
		checkInService: checkInService,
	}
}

// ScanRequest is the body of POST /checkins/scan
type ScanRequest struct {
	ServiceType string `json:"serviceType"`
}

// CheckIn handles POST /checkins by customer id or phone
func (h *CheckInHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req service.CheckInRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.checkInService.CheckIn(r.Context(), &req)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	if result.NewCustomer {
		WriteCreated(w, result)
		return
	}
	WriteOK(w, result)
}

// Scan handles POST /checkins/scan. The body is optional.
func (h *CheckInHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if r.ContentLength > 0 && !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.checkInService.ScanAndCheckIn(r.Context(), req.ServiceType)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	WriteOK(w, result)
}
