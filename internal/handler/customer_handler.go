package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"loyaltytracker/internal/models"
	"loyaltytracker/internal/service"
)

// CustomerHandler handles customer and visit requests
type CustomerHandler struct {
	loyaltyService *service.LoyaltyService
}

// NewCustomerHandler creates a new customer handler
func NewCustomerHandler(loyaltyService *service.LoyaltyService) *CustomerHandler {
	return &CustomerHandler{
		loyaltyService: loyaltyService,
	}
}

// CustomerDetailResponse is a customer with their history
type CustomerDetailResponse struct {
	models.Customer
	Visits  []models.Visit  `json:"visits"`
	Rewards []models.Reward `json:"rewards"`
}

// List handles GET /customers
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	WriteOK(w, map[string]interface{}{
		"customers": h.loyaltyService.Customers(),
	})
}

// Create handles POST /customers
func (h *CustomerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.Customer
	if !decodeJSON(w, r, &req) {
		return
	}

	customer, err := h.loyaltyService.AddCustomer(r.Context(), req)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	WriteCreated(w, customer)
}

// Search handles GET /customers/search?q=
func (h *CustomerHandler) Search(w http.ResponseWriter, r *http.Request) {
	WriteOK(w, map[string]interface{}{
		"customers": h.loyaltyService.SearchCustomers(r.URL.Query().Get("q")),
	})
}

// Get handles GET /customers/{id}
func (h *CustomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	customer, ok := h.loyaltyService.Customer(id)
	if !ok {
		WriteNotFoundError(w, "customer", id)
		return
	}

	WriteOK(w, CustomerDetailResponse{
		Customer: customer,
		Visits:   h.loyaltyService.VisitsForCustomer(id),
		Rewards:  h.loyaltyService.RewardsForCustomer(id),
	})
}

// Update handles PATCH /customers/{id}
func (h *CustomerHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.CustomerUpdate
	if !decodeJSON(w, r, &req) {
		return
	}

	customer, err := h.loyaltyService.UpdateCustomer(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	WriteOK(w, customer)
}

// Delete handles DELETE /customers/{id}; visits and rewards go with the customer
func (h *CustomerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.loyaltyService.DeleteCustomer(r.Context(), mux.Vars(r)["id"]); err != nil {
		HandleServiceError(w, err)
		return
	}

	WriteNoContent(w)
}

// AddVisit handles POST /visits. It records the visit only, unless
// ?issueReward=true asks for the visit and any reward it earns to be
// recorded together; the response is then a check-in result.
func (h *CustomerHandler) AddVisit(w http.ResponseWriter, r *http.Request) {
	var req models.Visit
	if !decodeJSON(w, r, &req) {
		return
	}

	if r.URL.Query().Get("issueReward") == "true" {
		result, err := h.loyaltyService.RecordVisit(r.Context(), req)
		if err != nil {
			HandleServiceError(w, err)
			return
		}
		WriteCreated(w, result)
		return
	}

	visit, err := h.loyaltyService.AddVisit(r.Context(), req)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	WriteCreated(w, visit)
}

// CheckEligibility handles POST /customers/{id}/eligibility
func (h *CustomerHandler) CheckEligibility(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := h.loyaltyService.Customer(id); !ok {
		WriteNotFoundError(w, "customer", id)
		return
	}

	earned := h.loyaltyService.CheckRewardEligibility(r.Context(), id)
	WriteOK(w, map[string]bool{"rewardEarned": earned})
}
