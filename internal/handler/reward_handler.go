package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"loyaltytracker/internal/models"
	"loyaltytracker/internal/service"
)

// RewardHandler handles rewards and reward settings
type RewardHandler struct {
	loyaltyService *service.LoyaltyService
}

// NewRewardHandler creates a new reward handler
func NewRewardHandler(loyaltyService *service.LoyaltyService) *RewardHandler {
	return &RewardHandler{
		loyaltyService: loyaltyService,
	}
}

// List handles GET /rewards, optionally filtered by ?customerId= and ?status=
func (h *RewardHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var rewards []models.Reward
	if customerID := query.Get("customerId"); customerID != "" {
		rewards = h.loyaltyService.RewardsForCustomer(customerID)
	} else {
		rewards = h.loyaltyService.Rewards()
	}

	if status := query.Get("status"); status != "" {
		if status != string(models.RewardStatusEarned) && status != string(models.RewardStatusRedeemed) {
			WriteValidationError(w, "invalid status: must be earned or redeemed")
			return
		}
		filtered := make([]models.Reward, 0, len(rewards))
		for _, rw := range rewards {
			if string(rw.Status) == status {
				filtered = append(filtered, rw)
			}
		}
		rewards = filtered
	}

	WriteOK(w, map[string]interface{}{"rewards": rewards})
}

// Redeem handles POST /rewards/{id}/redeem
func (h *RewardHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	reward, err := h.loyaltyService.RedeemReward(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	WriteOK(w, reward)
}

// GetSettings handles GET /rewards/settings
func (h *RewardHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	WriteOK(w, h.loyaltyService.RewardSettings())
}

// UpdateSettings handles PUT /rewards/settings
func (h *RewardHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req models.RewardSettings
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.loyaltyService.UpdateRewardSettings(r.Context(), req); err != nil {
		HandleServiceError(w, err)
		return
	}

	WriteOK(w, h.loyaltyService.RewardSettings())
}
