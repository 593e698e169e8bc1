package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loyaltytracker/internal/models"
	"loyaltytracker/internal/service"
)

func TestAPI_Health(t *testing.T) {
	tests := []struct {
		status string
		want   int
	}{
		{service.StatusHealthy, http.StatusOK},
		{service.StatusDegraded, http.StatusServiceUnavailable},
		{service.StatusUnhealthy, http.StatusServiceUnavailable},
		{"unknown", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			resp := httptest.NewRecorder()
			NewHealthHandler(stubHealth{status: tt.status}).HandleHealth(resp, req)
			requireStatus(t, resp, tt.want)

			var body service.HealthStatus
			parseJSON(t, resp, &body)
			assert.Equal(t, tt.status, body.Status)
		})
	}
}

func TestAPI_CustomerLifecycle(t *testing.T) {
	api := newTestAPI(t)

	created := api.createCustomer(t, "Wanjiru Kamau", "0712345678")
	assert.NotEmpty(t, created.ID)
	assert.Zero(t, created.TotalVisits)

	resp := api.do(t, http.MethodGet, "/customers", nil)
	requireStatus(t, resp, http.StatusOK)
	var list struct {
		Customers []models.Customer `json:"customers"`
	}
	parseJSON(t, resp, &list)
	require.Len(t, list.Customers, 1)

	resp = api.do(t, http.MethodPatch, "/customers/"+created.ID, map[string]string{"name": "Wanjiru K."})
	requireStatus(t, resp, http.StatusOK)
	var updated models.Customer
	parseJSON(t, resp, &updated)
	assert.Equal(t, "Wanjiru K.", updated.Name)
	assert.Equal(t, "0712345678", updated.Phone)

	resp = api.do(t, http.MethodPost, "/visits", map[string]string{"customerId": created.ID, "serviceType": "Haircut"})
	requireStatus(t, resp, http.StatusCreated)

	resp = api.do(t, http.MethodGet, "/customers/"+created.ID, nil)
	requireStatus(t, resp, http.StatusOK)
	var detail CustomerDetailResponse
	parseJSON(t, resp, &detail)
	assert.Equal(t, 1, detail.TotalVisits)
	require.Len(t, detail.Visits, 1)
	assert.Equal(t, "Haircut", detail.Visits[0].ServiceType)
	assert.Empty(t, detail.Rewards)

	resp = api.do(t, http.MethodGet, "/customers/search?q=wanj", nil)
	requireStatus(t, resp, http.StatusOK)
	parseJSON(t, resp, &list)
	assert.Len(t, list.Customers, 1)

	resp = api.do(t, http.MethodDelete, "/customers/"+created.ID, nil)
	requireStatus(t, resp, http.StatusNoContent)

	resp = api.do(t, http.MethodGet, "/customers/"+created.ID, nil)
	requireStatus(t, resp, http.StatusNotFound)
	detailErr := errorCode(t, resp)
	assert.Equal(t, "RESOURCE_NOT_FOUND", detailErr.Code)
	assert.Equal(t, fmt.Sprintf("customer with ID %s not found", created.ID), detailErr.Message)

	resp = api.do(t, http.MethodDelete, "/customers/"+created.ID, nil)
	requireStatus(t, resp, http.StatusNotFound)
}

func TestAPI_CreateCustomer_ValidationErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     interface{}
		wantCode string
		wantMsg  string
	}{
		{"empty body", "", "INVALID_JSON", "Request body is empty"},
		{"malformed", "{name:", "INVALID_JSON", "Invalid JSON format"},
		{"missing name", map[string]string{"phone": "0712345678"}, "VALIDATION_ERROR", "customer name is required"},
		{"missing phone", map[string]string{"name": "Otieno"}, "VALIDATION_ERROR", "customer phone is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t)
			resp := api.do(t, http.MethodPost, "/customers", tt.body)
			requireStatus(t, resp, http.StatusBadRequest)

			detail := errorCode(t, resp)
			assert.Equal(t, tt.wantCode, detail.Code)
			assert.Contains(t, detail.Message, tt.wantMsg)
		})
	}
}

func TestAPI_AddVisit_UnknownCustomer(t *testing.T) {
	api := newTestAPI(t)

	resp := api.do(t, http.MethodPost, "/visits", map[string]string{"customerId": "missing"})
	requireStatus(t, resp, http.StatusNotFound)

	resp = api.do(t, http.MethodPost, "/customers/missing/eligibility", nil)
	requireStatus(t, resp, http.StatusNotFound)
}

func TestAPI_CheckInAndRedeem(t *testing.T) {
	api := newTestAPI(t)
	checkIn := map[string]string{"phone": "0799125678", "serviceType": "Shave"}

	resp := api.do(t, http.MethodPost, "/checkins", checkIn)
	requireStatus(t, resp, http.StatusCreated)
	var result models.CheckInResult
	parseJSON(t, resp, &result)
	assert.True(t, result.NewCustomer)
	assert.Equal(t, "Customer 5678", result.Customer.Name)

	for i := 2; i <= 5; i++ {
		resp = api.do(t, http.MethodPost, "/checkins", checkIn)
		requireStatus(t, resp, http.StatusOK)
		parseJSON(t, resp, &result)
	}
	assert.True(t, result.RewardEarned)
	assert.Equal(t, 5, result.Customer.TotalVisits)

	resp = api.do(t, http.MethodPost, "/customers/"+result.Customer.ID+"/eligibility", nil)
	requireStatus(t, resp, http.StatusOK)
	var eligibility map[string]bool
	parseJSON(t, resp, &eligibility)
	assert.False(t, eligibility["rewardEarned"])

	resp = api.do(t, http.MethodGet, "/rewards?status=earned&customerId="+result.Customer.ID, nil)
	requireStatus(t, resp, http.StatusOK)
	var rewards struct {
		Rewards []models.Reward `json:"rewards"`
	}
	parseJSON(t, resp, &rewards)
	require.Len(t, rewards.Rewards, 1)
	rewardID := rewards.Rewards[0].ID

	resp = api.do(t, http.MethodPost, "/rewards/"+rewardID+"/redeem", nil)
	requireStatus(t, resp, http.StatusOK)
	var redeemed models.Reward
	parseJSON(t, resp, &redeemed)
	assert.Equal(t, models.RewardStatusRedeemed, redeemed.Status)
	assert.NotNil(t, redeemed.RedeemedDate)

	resp = api.do(t, http.MethodPost, "/rewards/"+rewardID+"/redeem", nil)
	requireStatus(t, resp, http.StatusConflict)
	assert.Equal(t, "CONFLICT", errorCode(t, resp).Code)

	resp = api.do(t, http.MethodPost, "/rewards/missing/redeem", nil)
	requireStatus(t, resp, http.StatusNotFound)

	resp = api.do(t, http.MethodGet, "/rewards?status=earned", nil)
	requireStatus(t, resp, http.StatusOK)
	parseJSON(t, resp, &rewards)
	assert.Empty(t, rewards.Rewards)

	resp = api.do(t, http.MethodGet, "/rewards?status=pending", nil)
	requireStatus(t, resp, http.StatusBadRequest)
}

func TestAPI_AddVisit_IssueReward(t *testing.T) {
	api := newTestAPI(t)
	c := api.createCustomer(t, "Wanjiru", "0712345678")

	var result models.CheckInResult
	for i := 1; i <= 5; i++ {
		resp := api.do(t, http.MethodPost, "/visits?issueReward=true", map[string]string{"customerId": c.ID})
		requireStatus(t, resp, http.StatusCreated)
		parseJSON(t, resp, &result)
	}
	assert.True(t, result.RewardEarned)
	require.NotNil(t, result.Reward)
	assert.Equal(t, 5, result.Reward.EarnedAtVisit)
	assert.Equal(t, 5, result.Customer.TotalVisits)

	resp := api.do(t, http.MethodPost, "/visits?issueReward=true", map[string]string{"customerId": "missing"})
	requireStatus(t, resp, http.StatusNotFound)
}

func TestAPI_ConcurrentCheckIns(t *testing.T) {
	api := newTestAPI(t)
	c := api.createCustomer(t, "Wanjiru", "0712345678")
	resp := api.do(t, http.MethodPut, "/rewards/settings", models.RewardSettings{VisitsRequired: 2, RewardType: "Free Trim", IsActive: true})
	requireStatus(t, resp, http.StatusOK)

	const checkIns = 100
	var wg sync.WaitGroup
	for i := 0; i < checkIns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp := api.do(t, http.MethodPost, "/checkins", map[string]string{"customerId": c.ID})
			assert.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		}()
	}
	wg.Wait()

	resp = api.do(t, http.MethodGet, "/rewards?customerId="+c.ID, nil)
	requireStatus(t, resp, http.StatusOK)
	var rewards struct {
		Rewards []models.Reward `json:"rewards"`
	}
	parseJSON(t, resp, &rewards)
	assert.Len(t, rewards.Rewards, checkIns/2)
}

func TestAPI_CheckIn_ValidationErrors(t *testing.T) {
	api := newTestAPI(t)

	resp := api.do(t, http.MethodPost, "/checkins", map[string]string{})
	requireStatus(t, resp, http.StatusBadRequest)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, resp).Code)

	resp = api.do(t, http.MethodPost, "/checkins", map[string]string{"phone": "0712"})
	requireStatus(t, resp, http.StatusBadRequest)
	assert.Contains(t, errorCode(t, resp).Message, "at least 10 digits")
}

func TestAPI_Scan_NoScanner(t *testing.T) {
	api := newTestAPI(t)

	resp := api.do(t, http.MethodPost, "/checkins/scan", nil)
	requireStatus(t, resp, http.StatusBadRequest)
	assert.Equal(t, "BUSINESS_LOGIC_ERROR", errorCode(t, resp).Code)
}

func TestAPI_RewardSettings(t *testing.T) {
	api := newTestAPI(t)

	resp := api.do(t, http.MethodGet, "/rewards/settings", nil)
	requireStatus(t, resp, http.StatusOK)
	var settings models.RewardSettings
	parseJSON(t, resp, &settings)
	assert.Equal(t, models.DefaultRewardSettings(), settings)

	resp = api.do(t, http.MethodPut, "/rewards/settings", models.RewardSettings{VisitsRequired: 3, RewardType: "Free Wash", IsActive: true})
	requireStatus(t, resp, http.StatusOK)
	parseJSON(t, resp, &settings)
	assert.Equal(t, 3, settings.VisitsRequired)
	assert.Equal(t, "Free Wash", settings.RewardType)

	resp = api.do(t, http.MethodPut, "/rewards/settings", models.RewardSettings{VisitsRequired: 0, RewardType: "Free Wash"})
	requireStatus(t, resp, http.StatusBadRequest)
	assert.Contains(t, errorCode(t, resp).Message, "visitsRequired must be positive")
}

func TestAPI_Notifications(t *testing.T) {
	api := newTestAPI(t)
	api.createCustomer(t, "Akinyi", "0722000111")

	resp := api.do(t, http.MethodGet, "/notifications", nil)
	requireStatus(t, resp, http.StatusOK)
	var list struct {
		Notifications []models.Notification `json:"notifications"`
	}
	parseJSON(t, resp, &list)
	require.NotEmpty(t, list.Notifications)

	resp = api.do(t, http.MethodDelete, "/notifications/"+list.Notifications[0].ID, nil)
	requireStatus(t, resp, http.StatusNoContent)
	resp = api.do(t, http.MethodDelete, "/notifications/unknown", nil)
	requireStatus(t, resp, http.StatusNoContent)

	api.createCustomer(t, "Baraka", "0722000222")
	resp = api.do(t, http.MethodDelete, "/notifications", nil)
	requireStatus(t, resp, http.StatusNoContent)

	resp = api.do(t, http.MethodGet, "/notifications", nil)
	parseJSON(t, resp, &list)
	assert.Empty(t, list.Notifications)
}
