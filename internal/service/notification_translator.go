package service

import (
	"fmt"
	"time"

	"loyaltytracker/internal/events"
	"loyaltytracker/internal/models"
)

// CampaignSuccessThreshold is the delivery percentage at or above which a
// finished campaign is reported as a success rather than a warning
const CampaignSuccessThreshold = 90

const syncNotificationDuration = 2 * time.Second

var milestoneTitles = map[events.MilestoneKind]string{
	events.MilestoneCustomers: "Customer Milestone!",
	events.MilestoneVisits:    "Visit Milestone!",
	events.MilestoneRewards:   "Rewards Milestone!",
}

// SubscribeNotifications turns domain events into user-facing notifications.
// The returned func detaches the translator from the bus.
func SubscribeNotifications(bus *events.Bus, notifications *NotificationService) func() {
	return bus.Subscribe(func(ev events.Event) {
		if in, ok := translateEvent(ev); ok {
			notifications.AddNotification(in)
		}
	},
		events.CustomerAdded,
		events.CustomerDeleted,
		events.VisitAdded,
		events.RewardEarned,
		events.RewardRedeemed,
		events.SMSCampaignSent,
		events.DataSynced,
		events.MilestoneReached,
	)
}

func translateEvent(ev events.Event) (models.NotificationInput, bool) {
	switch p := ev.Payload.(type) {
	case events.CustomerAddedEvent:
		return models.NotificationInput{
			Type:    models.NotificationSuccess,
			Title:   "New Customer Added",
			Message: fmt.Sprintf("%s has joined your loyalty program!", p.Customer.DisplayName()),
			Action:  &models.NotificationAction{Label: "View Customers", Target: "customers"},
		}, true

	case events.CustomerDeletedEvent:
		return models.NotificationInput{
			Type:    models.NotificationInfo,
			Title:   "Customer Removed",
			Message: fmt.Sprintf("%s and their history were removed", p.Customer.DisplayName()),
		}, true

	case events.VisitAddedEvent:
		return models.NotificationInput{
			Type:    models.NotificationSuccess,
			Title:   "Customer Check-in",
			Message: fmt.Sprintf("%s checked in (visit #%d)", p.Customer.DisplayName(), p.Customer.TotalVisits),
		}, true

	case events.RewardEarnedEvent:
		return models.NotificationInput{
			Type:    models.NotificationSuccess,
			Title:   "Reward Earned!",
			Message: fmt.Sprintf("%s earned a %s!", p.Customer.DisplayName(), p.RewardType),
			Action:  &models.NotificationAction{Label: "View Rewards", Target: "rewards"},
		}, true

	case events.RewardRedeemedEvent:
		name := "A customer"
		if p.Customer != nil {
			name = p.Customer.DisplayName()
		}
		return models.NotificationInput{
			Type:    models.NotificationInfo,
			Title:   "Reward Redeemed",
			Message: fmt.Sprintf("%s redeemed a %s", name, p.Reward.Type),
		}, true

	case events.CampaignSentEvent:
		rate := p.SuccessRate()
		in := models.NotificationInput{
			Type:    models.NotificationSuccess,
			Title:   "Campaign Sent",
			Message: fmt.Sprintf("%s delivered to %d of %d recipients (%d%%)", p.CampaignName, p.SuccessCount, p.TotalCount, rate),
			Action:  &models.NotificationAction{Label: "View Campaigns", Target: "sms"},
		}
		if rate < CampaignSuccessThreshold {
			in.Type = models.NotificationWarning
			in.Title = "Campaign Partially Sent"
		}
		return in, true

	case events.DataSyncedEvent:
		d := syncNotificationDuration
		return models.NotificationInput{
			Type:     models.NotificationInfo,
			Title:    "Data Synced",
			Message:  "All changes have been saved",
			Duration: &d,
		}, true

	case events.MilestoneReachedEvent:
		title, ok := milestoneTitles[p.Kind]
		if !ok {
			title = "Milestone Reached!"
		}
		return models.NotificationInput{
			Type:    models.NotificationSuccess,
			Title:   title,
			Message: fmt.Sprintf("You have reached %d %s!", p.Count, p.Kind),
			Action:  &models.NotificationAction{Label: "View Dashboard", Target: "dashboard"},
		}, true
	}

	return models.NotificationInput{}, false
}
