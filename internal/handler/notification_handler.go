package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"loyaltytracker/internal/service"
)

// NotificationHandler exposes the live notification list
type NotificationHandler struct {
	notificationService *service.NotificationService
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notificationService *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

// List handles GET /notifications, newest first
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	WriteOK(w, map[string]interface{}{
		"notifications": h.notificationService.Notifications(),
	})
}

// Remove handles DELETE /notifications/{id}. Unknown ids are ignored.
func (h *NotificationHandler) Remove(w http.ResponseWriter, r *http.Request) {
	h.notificationService.RemoveNotification(mux.Vars(r)["id"])
	WriteNoContent(w)
}

// Clear handles DELETE /notifications
func (h *NotificationHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.notificationService.ClearAllNotifications()
	WriteNoContent(w)
}
