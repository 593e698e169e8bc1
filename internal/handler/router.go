package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"loyaltytracker/internal/middleware"
)

// Handlers groups every HTTP handler the API serves
type Handlers struct {
	Health        *HealthHandler
	Customers     *CustomerHandler
	CheckIns      *CheckInHandler
	Rewards       *RewardHandler
	Data          *DataHandler
	Campaigns     *CampaignHandler
	Preview       *PreviewHandler
	Notifications *NotificationHandler
}

// NewRouter registers all routes. Literal paths are registered before
// their {id} siblings so mux matches them first.
func NewRouter(h Handlers) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.Recovery, middleware.Logging)

	router.HandleFunc("/health", h.Health.HandleHealth).Methods(http.MethodGet)

	router.HandleFunc("/customers", h.Customers.List).Methods(http.MethodGet)
	router.HandleFunc("/customers", h.Customers.Create).Methods(http.MethodPost)
	router.HandleFunc("/customers/search", h.Customers.Search).Methods(http.MethodGet)
	router.HandleFunc("/customers/{id}", h.Customers.Get).Methods(http.MethodGet)
	router.HandleFunc("/customers/{id}", h.Customers.Update).Methods(http.MethodPatch)
	router.HandleFunc("/customers/{id}", h.Customers.Delete).Methods(http.MethodDelete)
	router.HandleFunc("/customers/{id}/eligibility", h.Customers.CheckEligibility).Methods(http.MethodPost)
	router.HandleFunc("/visits", h.Customers.AddVisit).Methods(http.MethodPost)

	router.HandleFunc("/checkins", h.CheckIns.CheckIn).Methods(http.MethodPost)
	router.HandleFunc("/checkins/scan", h.CheckIns.Scan).Methods(http.MethodPost)

	router.HandleFunc("/rewards", h.Rewards.List).Methods(http.MethodGet)
	router.HandleFunc("/rewards/settings", h.Rewards.GetSettings).Methods(http.MethodGet)
	router.HandleFunc("/rewards/settings", h.Rewards.UpdateSettings).Methods(http.MethodPut)
	router.HandleFunc("/rewards/{id}/redeem", h.Rewards.Redeem).Methods(http.MethodPost)

	router.HandleFunc("/data/export", h.Data.Export).Methods(http.MethodGet)
	router.HandleFunc("/data/import", h.Data.Import).Methods(http.MethodPost)
	router.HandleFunc("/data/storage", h.Data.Storage).Methods(http.MethodGet)
	router.HandleFunc("/data", h.Data.Clear).Methods(http.MethodDelete)
	router.HandleFunc("/stats", h.Data.Stats).Methods(http.MethodGet)

	router.HandleFunc("/campaigns", h.Campaigns.List).Methods(http.MethodGet)
	router.HandleFunc("/campaigns", h.Campaigns.Send).Methods(http.MethodPost)
	router.HandleFunc("/campaigns/schedule", h.Campaigns.Schedule).Methods(http.MethodPost)
	router.HandleFunc("/campaigns/stats", h.Campaigns.Stats).Methods(http.MethodGet)
	router.HandleFunc("/campaigns/templates", h.Campaigns.Templates).Methods(http.MethodGet)
	router.HandleFunc("/campaigns/preview", h.Preview.Preview).Methods(http.MethodPost)
	router.HandleFunc("/campaigns/{id}", h.Campaigns.GetByID).Methods(http.MethodGet)
	router.HandleFunc("/audiences/{audience}", h.Campaigns.Audience).Methods(http.MethodGet)
	router.HandleFunc("/sms/providers", h.Campaigns.Providers).Methods(http.MethodGet)
	router.HandleFunc("/sms/provider", h.Campaigns.GetProvider).Methods(http.MethodGet)
	router.HandleFunc("/sms/provider", h.Campaigns.SetProvider).Methods(http.MethodPut)
	router.HandleFunc("/sms/cost", h.Campaigns.Cost).Methods(http.MethodGet)

	router.HandleFunc("/notifications", h.Notifications.List).Methods(http.MethodGet)
	router.HandleFunc("/notifications", h.Notifications.Clear).Methods(http.MethodDelete)
	router.HandleFunc("/notifications/{id}", h.Notifications.Remove).Methods(http.MethodDelete)

	return router
}
