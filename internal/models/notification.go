package models

import "time"

// NotificationType classifies a user-facing notification
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
	NotificationWarning NotificationType = "warning"
	NotificationInfo    NotificationType = "info"
)

// NotificationAction is an optional deep link attached to a notification.
// Target names the view to open (customers, dashboard, rewards, sms).
type NotificationAction struct {
	Label  string `json:"label"`
	Target string `json:"target"`
}

// Notification is a transient message shown to the shop owner.
// DurationMs of zero means it stays until dismissed.
type Notification struct {
	ID         string              `json:"id"`
	Type       NotificationType    `json:"type"`
	Title      string              `json:"title"`
	Message    string              `json:"message"`
	Timestamp  time.Time           `json:"timestamp"`
	DurationMs int64               `json:"duration"`
	Action     *NotificationAction `json:"action,omitempty"`
}

// NotificationInput is the caller-supplied part of a notification.
// A nil Duration selects the per-type default.
type NotificationInput struct {
	Type     NotificationType
	Title    string
	Message  string
	Duration *time.Duration
	Action   *NotificationAction
}

// Audience is a named recipient filter for campaigns
type Audience string

const (
	AudienceAll      Audience = "all"
	AudienceRegular  Audience = "regular"
	AudienceVIP      Audience = "vip"
	AudienceInactive Audience = "inactive"
)
