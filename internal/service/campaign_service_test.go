package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loyaltytracker/internal/events"
	"loyaltytracker/internal/models"
	"loyaltytracker/internal/repository"
)

// stubMessenger records what it was asked to send. Phones in fail are
// reported as failed deliveries; phones in errs return an error.
type stubMessenger struct {
	mu    sync.Mutex
	sent  map[string]string
	order []string
	fail  map[string]bool
	errs  map[string]error
	block bool
}

func newStubMessenger() *stubMessenger {
	return &stubMessenger{
		sent: map[string]string{},
		fail: map[string]bool{},
		errs: map[string]error{},
	}
}

func (m *stubMessenger) Send(ctx context.Context, phone, message string) (models.SendResult, error) {
	if m.block {
		<-ctx.Done()
		return models.SendResult{Phone: phone}, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent[phone] = message
	m.order = append(m.order, phone)

	if err := m.errs[phone]; err != nil {
		return models.SendResult{Phone: phone}, err
	}
	if m.fail[phone] {
		return models.SendResult{Phone: phone, Error: "number not reachable"}, nil
	}
	return models.SendResult{Phone: phone, Success: true, MessageID: "msg-" + phone, Cost: 1.2}, nil
}

func (m *stubMessenger) message(phone string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[phone]
}

type stubPublisher struct {
	mu        sync.Mutex
	published []string
	err       error
}

func (p *stubPublisher) PublishCampaign(ctx context.Context, campaignID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, campaignID)
	return nil
}

type campaignFixture struct {
	svc       *CampaignService
	messenger *stubMessenger
	repo      *repository.MemoryCampaignRepository
	bus       *events.Bus
	loyalty   *LoyaltyService
}

func newCampaignFixture(t *testing.T) *campaignFixture {
	t.Helper()
	loyalty, st := newTestLoyalty(t)
	messenger := newStubMessenger()
	repo := repository.NewMemoryCampaignRepository()

	svc := NewCampaignService(
		repo,
		messenger,
		NewProviderRegistry(nil, ""),
		NewTemplateService(ShopProfile{Name: "Fade Masters", Phone: "0700111222"}),
		loyalty,
		st.bus,
		CampaignConfig{BatchSize: 2},
	)
	svc.now = func() time.Time { return testNow }
	n := 0
	svc.newID = func() string {
		n++
		return "camp-" + strings.Repeat("x", n)
	}

	return &campaignFixture{svc: svc, messenger: messenger, repo: repo, bus: st.bus, loyalty: loyalty}
}

func promo(recipients ...string) *SendMessageRequest {
	return &SendMessageRequest{
		Name:       "Weekend promo",
		Type:       models.CampaignTypePromotion,
		Message:    "Hi {customerName}, 20% off at {shopName}",
		Recipients: recipients,
	}
}

func TestSendCampaign_Success(t *testing.T) {
	f := newCampaignFixture(t)
	mustAddCustomer(t, f.loyalty, "Wanjiru", "0712345678")
	rec := record(f.bus, events.SMSCampaignSent)

	campaign, err := f.svc.SendCampaign(context.Background(), promo("0712345678", "0722345678"))
	require.NoError(t, err)

	assert.Equal(t, models.CampaignStatusSent, campaign.Status)
	require.NotNil(t, campaign.SentDate)
	assert.Equal(t, testNow, *campaign.SentDate)
	assert.Equal(t, 2, campaign.SuccessCount)
	assert.Zero(t, campaign.FailureCount)
	assert.InDelta(t, 2.4, campaign.TotalCost, 0.001)

	assert.Equal(t, "Hi Wanjiru, 20% off at Fade Masters", f.messenger.message("0712345678"))
	assert.Equal(t, "Hi Valued Customer, 20% off at Fade Masters", f.messenger.message("0722345678"))

	stored, err := f.svc.GetCampaign(context.Background(), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusSent, stored.Status)
	assert.Len(t, stored.Results, 2)

	sent := rec.ofType(events.SMSCampaignSent)
	require.Len(t, sent, 1)
	payload := sent[0].Payload.(events.CampaignSentEvent)
	assert.Equal(t, campaign.ID, payload.CampaignID)
	assert.Equal(t, 2, payload.SuccessCount)
	assert.Equal(t, 2, payload.TotalCount)
	assert.False(t, f.svc.IsLoading())
}

func TestSendCampaign_BatchesKeepRecipientOrder(t *testing.T) {
	f := newCampaignFixture(t)
	phones := []string{"0711000001", "0711000002", "0711000003", "0711000004", "0711000005"}

	campaign, err := f.svc.SendCampaign(context.Background(), promo(phones...))
	require.NoError(t, err)

	require.Len(t, campaign.Results, len(phones))
	for i, r := range campaign.Results {
		assert.Equal(t, phones[i], r.Phone)
	}
}

func TestSendCampaign_PartialFailure(t *testing.T) {
	f := newCampaignFixture(t)
	f.messenger.fail["0722345678"] = true

	campaign, err := f.svc.SendCampaign(context.Background(), promo("0712345678", "0722345678"))
	require.NoError(t, err)

	assert.Equal(t, models.CampaignStatusSent, campaign.Status)
	assert.Equal(t, 1, campaign.SuccessCount)
	assert.Equal(t, 1, campaign.FailureCount)
	assert.InDelta(t, 1.2, campaign.TotalCost, 0.001)
}

func TestSendCampaign_MessengerErrorFailsCampaign(t *testing.T) {
	f := newCampaignFixture(t)
	rec := record(f.bus, events.SMSCampaignSent)
	f.messenger.errs["0712345678"] = errors.New("no SMS provider configured")

	campaign, err := f.svc.SendCampaign(context.Background(), promo("0712345678"))
	require.Error(t, err)
	require.NotNil(t, campaign)
	assert.Equal(t, models.CampaignStatusFailed, campaign.Status)
	assert.Nil(t, campaign.SentDate)

	stored, err := f.svc.GetCampaign(context.Background(), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusFailed, stored.Status)
	assert.Equal(t, 1, stored.FailureCount)
	assert.Empty(t, rec.all())
}

func TestSendCampaign_SendTimeoutIsFailedResult(t *testing.T) {
	f := newCampaignFixture(t)
	f.messenger.block = true
	f.svc.cfg.SendTimeout = 10 * time.Millisecond

	campaign, err := f.svc.SendCampaign(context.Background(), promo("0712345678"))
	require.NoError(t, err)

	assert.Equal(t, models.CampaignStatusSent, campaign.Status)
	require.Len(t, campaign.Results, 1)
	assert.False(t, campaign.Results[0].Success)
	assert.Equal(t, "delivery timed out", campaign.Results[0].Error)
	assert.Equal(t, 1, campaign.FailureCount)
}

func TestSendCampaign_DedupesRecipients(t *testing.T) {
	f := newCampaignFixture(t)

	campaign, err := f.svc.SendCampaign(context.Background(), promo("0712345678", "+254712345678", "  ", "254 712 345 678"))
	require.NoError(t, err)
	assert.Equal(t, []string{"0712345678"}, campaign.Recipients)
}

func TestSendCampaign_Validation(t *testing.T) {
	f := newCampaignFixture(t)

	tests := []struct {
		name   string
		mutate func(r *SendMessageRequest)
		want   string
	}{
		{"missing name", func(r *SendMessageRequest) { r.Name = " " }, "campaign name is required"},
		{"unknown type", func(r *SendMessageRequest) { r.Type = "flash" }, "invalid campaign type"},
		{"empty message", func(r *SendMessageRequest) { r.Message = "" }, "message is required"},
		{"too long", func(r *SendMessageRequest) { r.Message = strings.Repeat("a", models.MaxMessageLength+1) }, "exceeds"},
		{"unbalanced braces", func(r *SendMessageRequest) { r.Message = "Hi {customerName" }, "invalid template"},
		{"no recipients", func(r *SendMessageRequest) { r.Recipients = nil }, "at least one recipient"},
		{"unknown audience", func(r *SendMessageRequest) { r.Recipients = nil; r.Audience = "everyone" }, "unknown audience"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := promo("0712345678")
			tt.mutate(req)
			_, err := f.svc.SendCampaign(context.Background(), req)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, ve.Message, tt.want)
		})
	}

	_, err := f.svc.SendCampaign(context.Background(), nil)
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)

	all, err := f.svc.ListCampaigns(context.Background(), repository.CampaignFilters{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSendCampaign_Audience(t *testing.T) {
	f := newCampaignFixture(t)
	regular := mustAddCustomer(t, f.loyalty, "Regular", "0711111111")
	mustAddCustomer(t, f.loyalty, "New", "0722222222")
	addVisits(t, f.loyalty, regular.ID, RegularMinVisits)

	req := promo()
	req.Audience = models.AudienceRegular
	campaign, err := f.svc.SendCampaign(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"0711111111"}, campaign.Recipients)

	everyone, err := f.svc.SelectAudience(models.AudienceAll)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"0711111111", "0722222222"}, everyone)
}

func TestSendMessage(t *testing.T) {
	f := newCampaignFixture(t)

	ok, err := f.svc.SendMessage(context.Background(), []string{"0712345678"}, "Thanks for visiting {shopName}", "Thanks", models.CampaignTypeFollowup)
	require.NoError(t, err)
	assert.True(t, ok)

	f.messenger.fail["0722345678"] = true
	ok, err = f.svc.SendMessage(context.Background(), []string{"0722345678"}, "Thanks for visiting {shopName}", "Thanks", models.CampaignTypeFollowup)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestQueueCampaign(t *testing.T) {
	t.Run("no publisher", func(t *testing.T) {
		f := newCampaignFixture(t)
		_, err := f.svc.QueueCampaign(context.Background(), promo("0712345678"))
		var be *BusinessLogicError
		assert.ErrorAs(t, err, &be)
	})

	t.Run("published", func(t *testing.T) {
		f := newCampaignFixture(t)
		pub := &stubPublisher{}
		f.svc.SetPublisher(pub)

		campaign, err := f.svc.QueueCampaign(context.Background(), promo("0712345678"))
		require.NoError(t, err)
		assert.Equal(t, models.CampaignStatusSending, campaign.Status)
		assert.Equal(t, []string{campaign.ID}, pub.published)
		assert.Empty(t, f.messenger.message("0712345678"))

		delivered, err := f.svc.Deliver(context.Background(), campaign.ID)
		require.NoError(t, err)
		assert.Equal(t, models.CampaignStatusSent, delivered.Status)
	})

	t.Run("publish failure", func(t *testing.T) {
		f := newCampaignFixture(t)
		f.svc.SetPublisher(&stubPublisher{err: errors.New("channel closed")})

		campaign, err := f.svc.QueueCampaign(context.Background(), promo("0712345678"))
		require.ErrorContains(t, err, "failed to queue campaign")
		require.NotNil(t, campaign)

		stored, err := f.svc.GetCampaign(context.Background(), campaign.ID)
		require.NoError(t, err)
		assert.Equal(t, models.CampaignStatusFailed, stored.Status)
	})
}

func TestDeliver_Errors(t *testing.T) {
	f := newCampaignFixture(t)

	_, err := f.svc.Deliver(context.Background(), "missing")
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)

	campaign, err := f.svc.SendCampaign(context.Background(), promo("0712345678"))
	require.NoError(t, err)

	_, err = f.svc.Deliver(context.Background(), campaign.ID)
	var ce *ConflictError
	assert.ErrorAs(t, err, &ce)
}

func TestDeliver_RefreshesDirectory(t *testing.T) {
	ctx := context.Background()
	slots := repository.NewMemorySlotRepository(0)
	clock := tickingClock()
	api := openProcess(t, slots, clock)
	worker := openProcess(t, slots, clock)

	messenger := newStubMessenger()
	svc := NewCampaignService(
		repository.NewMemoryCampaignRepository(),
		messenger,
		NewProviderRegistry(nil, ""),
		NewTemplateService(ShopProfile{Name: "Fade Masters"}),
		worker,
		events.NewBus(),
		CampaignConfig{BatchSize: 2},
	)
	svc.SetPublisher(&stubPublisher{})

	campaign, err := svc.QueueCampaign(ctx, promo("0712345678"))
	require.NoError(t, err)

	// registered after the worker loaded its directory
	_, err = api.AddCustomer(ctx, models.Customer{Name: "Wanjiru", Phone: "0712345678"})
	require.NoError(t, err)

	_, err = svc.Deliver(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hi Wanjiru, 20% off at Fade Masters", messenger.message("0712345678"))
}

func TestScheduleCampaign_DeliverDue(t *testing.T) {
	f := newCampaignFixture(t)
	ctx := context.Background()

	past := testNow.Add(-time.Hour)
	future := testNow.Add(time.Hour)

	dueReq := promo("0712345678")
	dueReq.ScheduledDate = &past
	due, err := f.svc.ScheduleCampaign(ctx, dueReq)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusDraft, due.Status)

	laterReq := promo("0722345678")
	laterReq.ScheduledDate = &future
	later, err := f.svc.ScheduleCampaign(ctx, laterReq)
	require.NoError(t, err)

	attempted, err := f.svc.DeliverDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, attempted)

	got, err := f.svc.GetCampaign(ctx, due.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusSent, got.Status)

	got, err = f.svc.GetCampaign(ctx, later.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusDraft, got.Status)
	assert.Empty(t, f.messenger.message("0722345678"))

	attempted, err = f.svc.DeliverDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, attempted)
}

func TestGetCampaignStats(t *testing.T) {
	f := newCampaignFixture(t)
	ctx := context.Background()
	f.messenger.fail["0733345678"] = true

	_, err := f.svc.SendCampaign(ctx, promo("0712345678", "0722345678"))
	require.NoError(t, err)
	_, err = f.svc.SendCampaign(ctx, promo("0733345678"))
	require.NoError(t, err)

	stats, err := f.svc.GetCampaignStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalCampaigns)
	assert.Equal(t, 3, stats.TotalSent, "failed attempts count as sent")
	assert.Equal(t, 2, stats.TotalDelivered)
	assert.InDelta(t, 2.4, stats.TotalCost, 0.001)
	assert.InDelta(t, 66.67, stats.DeliveryRate, 0.01)

	empty := newCampaignFixture(t)
	stats, err = empty.svc.GetCampaignStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalSent)
	assert.Zero(t, stats.DeliveryRate)
}

func TestPreviewMessage(t *testing.T) {
	f := newCampaignFixture(t)
	c := mustAddCustomer(t, f.loyalty, "Achieng", "0712345678")
	ctx := context.Background()

	got, err := f.svc.PreviewMessage(ctx, &PreviewMessageRequest{
		Message:    "Hi {customerName}! {offer} at {shopName}",
		CustomerID: c.ID,
		Recipients: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, "Hi Achieng! {offer} at Fade Masters", got.RenderedMessage)
	assert.Equal(t, len(got.RenderedMessage), got.Length)
	assert.Equal(t, 1, got.Segments)
	assert.Equal(t, models.DefaultProviderKey, got.Provider)
	assert.InDelta(t, 3.6, got.EstimatedCost, 0.001)
	assert.Equal(t, []string{"{offer}"}, got.UnknownPlaceholders)

	generic, err := f.svc.PreviewMessage(ctx, &PreviewMessageRequest{Message: "Hi {customerName}"})
	require.NoError(t, err)
	assert.Equal(t, "Hi Valued Customer", generic.RenderedMessage)
	assert.InDelta(t, 1.2, generic.EstimatedCost, 0.001)

	_, err = f.svc.PreviewMessage(ctx, &PreviewMessageRequest{Message: "Hi", CustomerID: "missing"})
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)

	_, err = f.svc.PreviewMessage(ctx, &PreviewMessageRequest{Message: "Hi {customerName"})
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestCampaignService_Providers(t *testing.T) {
	f := newCampaignFixture(t)

	assert.Len(t, f.svc.GetProviders(), 3)
	assert.False(t, f.svc.SetProvider("carrier-pigeon"))
	assert.Equal(t, models.DefaultProviderKey, f.svc.CurrentProvider().Key)

	require.True(t, f.svc.SetProvider("twilio"))
	assert.Equal(t, "twilio", f.svc.CurrentProvider().Key)
	assert.InDelta(t, 3.0, f.svc.CalculateCost(2, 100), 0.001)
	assert.Len(t, f.svc.Templates(), 6)
}
