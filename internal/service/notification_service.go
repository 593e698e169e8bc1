package service

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"loyaltytracker/internal/models"
)

// DefaultNotificationDuration applies to success, info and warning notifications.
// Errors stay until dismissed.
const DefaultNotificationDuration = 5 * time.Second

// NotificationService keeps the list of user-facing notifications, newest first
type NotificationService struct {
	mu     sync.Mutex
	items  []models.Notification
	timers map[string]*time.Timer
	closed bool

	now       func() time.Time
	afterFunc func(time.Duration, func()) *time.Timer
}

// NewNotificationService creates an empty notification list
func NewNotificationService() *NotificationService {
	return &NotificationService{
		timers:    make(map[string]*time.Timer),
		now:       func() time.Time { return time.Now().UTC() },
		afterFunc: time.AfterFunc,
	}
}

// AddNotification prepends a notification and schedules its dismissal
func (s *NotificationService) AddNotification(in models.NotificationInput) string {
	duration := DefaultNotificationDuration
	if in.Type == models.NotificationError {
		duration = 0
	}
	if in.Duration != nil {
		duration = *in.Duration
	}
	if duration < 0 {
		duration = 0
	}

	n := models.Notification{
		ID:         uuid.NewString(),
		Type:       in.Type,
		Title:      in.Title,
		Message:    in.Message,
		Timestamp:  s.now(),
		DurationMs: duration.Milliseconds(),
		Action:     in.Action,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = append([]models.Notification{n}, s.items...)
	if duration > 0 && !s.closed {
		id := n.ID
		s.timers[id] = s.afterFunc(duration, func() { s.RemoveNotification(id) })
	}
	return n.ID
}

// RemoveNotification dismisses a notification; unknown ids are ignored
func (s *NotificationService) RemoveNotification(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
	for i, n := range s.items {
		if n.ID == id {
			s.items = append(s.items[:i:i], s.items[i+1:]...)
			return
		}
	}
}

// ClearAllNotifications dismisses everything
func (s *NotificationService) ClearAllNotifications() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopTimersLocked()
	s.items = nil
}

// Notifications returns a snapshot of the list, newest first
func (s *NotificationService) Notifications() []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]models.Notification{}, s.items...)
}

// Close cancels pending auto-dismiss timers. Notifications added after
// Close are kept until removed explicitly.
func (s *NotificationService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.stopTimersLocked()
}

func (s *NotificationService) stopTimersLocked() {
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

func (s *NotificationService) NotifySuccess(title, message string, action *models.NotificationAction) string {
	return s.AddNotification(models.NotificationInput{Type: models.NotificationSuccess, Title: title, Message: message, Action: action})
}

func (s *NotificationService) NotifyError(title, message string, action *models.NotificationAction) string {
	return s.AddNotification(models.NotificationInput{Type: models.NotificationError, Title: title, Message: message, Action: action})
}

func (s *NotificationService) NotifyWarning(title, message string, action *models.NotificationAction) string {
	return s.AddNotification(models.NotificationInput{Type: models.NotificationWarning, Title: title, Message: message, Action: action})
}

func (s *NotificationService) NotifyInfo(title, message string, action *models.NotificationAction) string {
	return s.AddNotification(models.NotificationInput{Type: models.NotificationInfo, Title: title, Message: message, Action: action})
}
