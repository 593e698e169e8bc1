package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"loyaltytracker/internal/app"
	"loyaltytracker/internal/config"
	"loyaltytracker/internal/models"
	"loyaltytracker/internal/service"
)

type stubHealth struct {
	status string
}

func (s stubHealth) CheckHealth(context.Context) *service.HealthStatus {
	return &service.HealthStatus{Status: s.status, Services: map[string]string{}}
}

type testAPI struct {
	router *mux.Router
	app    *app.App
}

// newTestAPI builds the full router over in-memory storage with a sender
// that succeeds instantly
func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	cfg := &config.Config{
		Storage: config.StorageConfig{Driver: config.DriverMemory},
		SMS: config.SMSConfig{
			Provider:  models.DefaultProviderKey,
			BatchSize: 10,
		},
		Shop: config.ShopConfig{Name: "Fade Masters", Phone: "0700111222"},
	}

	a, err := app.New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	a.Sender.SetLatencyScale(0)
	a.Sender.SetSuccessRate(1)

	router := NewRouter(Handlers{
		Health:        NewHealthHandler(stubHealth{status: service.StatusHealthy}),
		Customers:     NewCustomerHandler(a.Loyalty),
		CheckIns:      NewCheckInHandler(service.NewCheckInService(a.Loyalty, nil)),
		Rewards:       NewRewardHandler(a.Loyalty),
		Data:          NewDataHandler(a.Loyalty, a.Data),
		Campaigns:     NewCampaignHandler(a.Campaigns),
		Preview:       NewPreviewHandler(a.Campaigns),
		Notifications: NewNotificationHandler(a.Notifications),
	})
	return &testAPI{router: router, app: a}
}

// do sends body as JSON; a string body is sent verbatim
func (api *testAPI) do(t *testing.T, method, url string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	switch b := body.(type) {
	case nil:
		req = httptest.NewRequest(method, url, nil)
	case string:
		req = httptest.NewRequest(method, url, strings.NewReader(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		req = httptest.NewRequest(method, url, bytes.NewReader(data))
	}
	req.Header.Set("Content-Type", "application/json")

	resp := httptest.NewRecorder()
	api.router.ServeHTTP(resp, req)
	return resp
}

func parseJSON(t *testing.T, resp *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), target), resp.Body.String())
}

func requireStatus(t *testing.T, resp *httptest.ResponseRecorder, want int) {
	t.Helper()
	require.Equal(t, want, resp.Code, resp.Body.String())
}

func errorCode(t *testing.T, resp *httptest.ResponseRecorder) ErrorDetail {
	t.Helper()
	var body ErrorResponse
	parseJSON(t, resp, &body)
	return body.Error
}

func (api *testAPI) createCustomer(t *testing.T, name, phone string) models.Customer {
	t.Helper()
	resp := api.do(t, http.MethodPost, "/customers", map[string]string{"name": name, "phone": phone})
	requireStatus(t, resp, http.StatusCreated)
	var c models.Customer
	parseJSON(t, resp, &c)
	return c
}
