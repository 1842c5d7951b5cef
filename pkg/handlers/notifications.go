package handlers

import (
	"net/http"

	"oms-backend/pkg/database"
	"oms-backend/pkg/models"
	"oms-backend/pkg/notify"
	"oms-backend/pkg/utils"
)

type NotificationsHandler struct {
	db         database.DatabaseInterface
	dispatcher *notify.Dispatcher
}

func NewNotificationsHandler(db database.DatabaseInterface, dispatcher *notify.Dispatcher) *NotificationsHandler {
	return &NotificationsHandler{db: db, dispatcher: dispatcher}
}

// GET /api/notifications?unread=true
func (h *NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	unreadOnly := r.URL.Query().Get("unread") == "true"
	list, err := h.db.ListNotifications(r.Context(), user.ID, unreadOnly)
	if err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}
	unread := 0
	for _, n := range list {
		if !n.Read {
			unread++
		}
	}
	utils.WriteListResponse(w, list, &utils.Meta{Unread: unread})
}

// POST /api/notifications/{id}/read
func (h *NotificationsHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.db.MarkNotificationRead(r.Context(), user.ID, id); err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"id": id, "read": true})
}

// POST /api/notifications/read-all
func (h *NotificationsHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	n, err := h.db.MarkAllNotificationsRead(r.Context(), user.ID)
	if err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]int{"updated": n})
}

// DELETE /api/notifications/{id}
func (h *NotificationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.db.DeleteNotification(r.Context(), user.ID, id); err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]string{"id": id})
}

// POST /api/internal/notifications (service key)
func (h *NotificationsHandler) CreateInternal(w http.ResponseWriter, r *http.Request) {
	var req models.NotificationCreateRequest
	if !decodeValid(w, r, &req) {
		return
	}
	n, err := h.dispatcher.Send(r.Context(), req)
	if err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}
	utils.WriteCreatedResponse(w, n)
}
