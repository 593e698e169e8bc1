package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loyaltytracker/internal/events"
	"loyaltytracker/internal/models"
)

// manualTimers captures scheduled dismissals so tests can fire them
type manualTimers struct {
	mu    sync.Mutex
	fired map[time.Duration][]func()
}

func (m *manualTimers) afterFunc(d time.Duration, f func()) *time.Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fired == nil {
		m.fired = make(map[time.Duration][]func())
	}
	m.fired[d] = append(m.fired[d], f)
	return time.AfterFunc(time.Hour, func() {})
}

func (m *manualTimers) fire(d time.Duration) {
	m.mu.Lock()
	fns := m.fired[d]
	delete(m.fired, d)
	m.mu.Unlock()
	for _, f := range fns {
		f()
	}
}

func newTestNotifications(t *testing.T) (*NotificationService, *manualTimers) {
	t.Helper()
	timers := &manualTimers{}
	svc := NewNotificationService()
	svc.afterFunc = timers.afterFunc
	svc.now = func() time.Time { return testNow }
	t.Cleanup(svc.Close)
	return svc, timers
}

func TestNotifications_NewestFirstAndDefaults(t *testing.T) {
	svc, _ := newTestNotifications(t)

	first := svc.NotifySuccess("One", "first", nil)
	second := svc.NotifyError("Two", "second", nil)

	list := svc.Notifications()
	require.Len(t, list, 2)
	assert.Equal(t, second, list[0].ID)
	assert.Equal(t, first, list[1].ID)

	assert.Equal(t, int64(5000), list[1].DurationMs)
	assert.Equal(t, int64(0), list[0].DurationMs, "errors are sticky")
	assert.Equal(t, testNow, list[0].Timestamp)
}

func TestNotifications_AutoDismiss(t *testing.T) {
	svc, timers := newTestNotifications(t)

	svc.NotifyInfo("Info", "goes away", nil)
	sticky := svc.NotifyError("Error", "stays", nil)
	short := 2 * time.Second
	svc.AddNotification(models.NotificationInput{Type: models.NotificationWarning, Title: "Short", Duration: &short})

	timers.fire(DefaultNotificationDuration)
	list := svc.Notifications()
	require.Len(t, list, 2)
	assert.Equal(t, "Short", list[0].Title)

	timers.fire(short)
	list = svc.Notifications()
	require.Len(t, list, 1)
	assert.Equal(t, sticky, list[0].ID)
}

func TestNotifications_RemoveAndClear(t *testing.T) {
	svc, _ := newTestNotifications(t)

	a := svc.NotifySuccess("A", "", nil)
	svc.NotifyWarning("B", "", nil)
	svc.NotifyInfo("C", "", nil)

	svc.RemoveNotification(a)
	svc.RemoveNotification("unknown")
	assert.Len(t, svc.Notifications(), 2)

	svc.ClearAllNotifications()
	assert.Empty(t, svc.Notifications())
}

func TestTranslator_Events(t *testing.T) {
	ann := models.Customer{ID: "c1", Name: "Ann", TotalVisits: 3}

	tests := []struct {
		name      string
		payload   events.Payload
		wantType  models.NotificationType
		wantTitle string
		target    string
	}{
		{"customer added", events.CustomerAddedEvent{Customer: ann}, models.NotificationSuccess, "New Customer Added", "customers"},
		{"customer deleted", events.CustomerDeletedEvent{Customer: ann}, models.NotificationInfo, "Customer Removed", ""},
		{"visit", events.VisitAddedEvent{Customer: ann}, models.NotificationSuccess, "Customer Check-in", ""},
		{"reward earned", events.RewardEarnedEvent{Customer: ann, RewardType: "Free Service"}, models.NotificationSuccess, "Reward Earned!", "rewards"},
		{"reward redeemed", events.RewardRedeemedEvent{Reward: models.Reward{Type: "Free Service"}}, models.NotificationInfo, "Reward Redeemed", ""},
		{"campaign ok", events.CampaignSentEvent{CampaignName: "Promo", SuccessCount: 9, TotalCount: 10}, models.NotificationSuccess, "Campaign Sent", "sms"},
		{"campaign partial", events.CampaignSentEvent{CampaignName: "Promo", SuccessCount: 8, FailureCount: 2, TotalCount: 10}, models.NotificationWarning, "Campaign Partially Sent", "sms"},
		{"synced", events.DataSyncedEvent{Timestamp: testNow}, models.NotificationInfo, "Data Synced", ""},
		{"milestone", events.MilestoneReachedEvent{Kind: events.MilestoneVisits, Count: 100}, models.NotificationSuccess, "Visit Milestone!", "dashboard"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, ok := translateEvent(events.Event{Type: tt.payload.EventType(), Payload: tt.payload})
			require.True(t, ok)
			assert.Equal(t, tt.wantType, in.Type)
			assert.Equal(t, tt.wantTitle, in.Title)
			if tt.target == "" {
				assert.Nil(t, in.Action)
			} else {
				require.NotNil(t, in.Action)
				assert.Equal(t, tt.target, in.Action.Target)
			}
		})
	}
}

func TestTranslator_IgnoresStoreEvents(t *testing.T) {
	_, ok := translateEvent(events.Event{Type: events.DataCleared, Payload: events.DataClearedEvent{}})
	assert.False(t, ok)
}

func TestTranslator_Subscribed(t *testing.T) {
	bus := events.NewBus()
	svc, _ := newTestNotifications(t)
	unsubscribe := SubscribeNotifications(bus, svc)

	bus.Publish(events.CustomerAddedEvent{Customer: models.Customer{Name: "Ann"}})
	bus.Publish(events.DataUpdatedEvent{Document: models.NewDocument()})
	require.Len(t, svc.Notifications(), 1)
	assert.Contains(t, svc.Notifications()[0].Message, "Ann has joined")

	unsubscribe()
	bus.Publish(events.CustomerAddedEvent{Customer: models.Customer{Name: "Ben"}})
	assert.Len(t, svc.Notifications(), 1)
}
