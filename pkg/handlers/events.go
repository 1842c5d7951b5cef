package handlers

import (
	"errors"
	"net/http"
	"strings"

	"oms-backend/pkg/config"
	"oms-backend/pkg/database"
	"oms-backend/pkg/engagement"
	"oms-backend/pkg/models"
	"oms-backend/pkg/utils"
)

type EventsHandler struct {
	config *config.Config
	db     database.DatabaseInterface
}

func NewEventsHandler(cfg *config.Config, db database.DatabaseInterface) *EventsHandler {
	return &EventsHandler{config: cfg, db: db}
}

// visible: accepted events to everyone, the rest to the organization's officer and admins.
func visible(user *models.User, ev *models.Event) bool {
	return ev.Status == models.EventAccepted || canManageOrg(user, ev.OrganizationID)
}

// GET /api/events?organizationId=&tag=
func (h *EventsHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	list, err := h.db.ListEvents(r.Context(), models.EventFilter{
		Status:         models.EventAccepted,
		OrganizationID: strings.TrimSpace(r.URL.Query().Get("organizationId")),
		Tag:            strings.TrimSpace(r.URL.Query().Get("tag")),
	})
	if err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}
	utils.WriteListResponse(w, list, nil)
}

// GET /api/events/mine
func (h *EventsHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	if user.OrganizationID == "" {
		utils.WriteListResponse(w, []models.Event{}, nil)
		return
	}
	list, err := h.db.ListEvents(r.Context(), models.EventFilter{OrganizationID: user.OrganizationID})
	if err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}
	utils.WriteListResponse(w, list, nil)
}

// POST /api/events
// New events start pending. The officer's organization must already be accepted.
func (h *EventsHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req models.EventCreateRequest
	if !decodeValid(w, r, &req) {
		return
	}
	org, err := h.db.GetOrganization(r.Context(), user.OrganizationID)
	if err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}
	if org.Status != models.OrganizationAccepted {
		utils.WriteForbiddenResponse(w, "Your organization must be accepted before posting events")
		return
	}

	ev := &models.Event{
		Name:           strings.TrimSpace(req.Name),
		Description:    req.Description,
		Date:           req.Date.UTC(),
		Location:       req.Location,
		Price:          req.Price,
		Images:         req.Images,
		OrganizationID: org.ID,
		Status:         models.EventPending,
		Tags:           normalizeTags(req.Tags),
		CreatedBy:      user.ID,
	}
	if err := h.db.CreateEvent(r.Context(), ev); err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}
	utils.WriteCreatedResponse(w, ev)
}

// GET /api/events/{id}
func (h *EventsHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	ev, err := h.db.GetEvent(r.Context(), id)
	if err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}
	if !visible(user, ev) {
		utils.WriteNotFoundResponse(w, "event not found")
		return
	}
	utils.WriteSuccessResponse(w, ev)
}

// PUT /api/events/{id}
// Editing a rejected event resubmits it for review.
func (h *EventsHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.EventUpdateRequest
	if !decodeValid(w, r, &req) {
		return
	}
	ev, err := h.db.GetEvent(r.Context(), id)
	if err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}
	if !user.IsOfficerOf(ev.OrganizationID) {
		utils.WriteForbiddenResponse(w, "Only the organization's officer can edit this event")
		return
	}

	if req.Name != nil {
		ev.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		ev.Description = *req.Description
	}
	if req.Date != nil {
		ev.Date = req.Date.UTC()
	}
	if req.Location != nil {
		ev.Location = *req.Location
	}
	if req.Price != nil {
		ev.Price = *req.Price
	}
	if req.Images != nil {
		ev.Images = req.Images
	}
	if req.Tags != nil {
		ev.Tags = normalizeTags(req.Tags)
	}
	if err := h.db.UpdateEvent(r.Context(), ev); err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}
	if ev.Status == models.EventRejected {
		// a concurrent decision wins; only a still-rejected event goes back to review
		err := h.db.UpdateEventStatus(r.Context(), ev.ID, models.EventRejected, models.EventPending, "")
		if err != nil && !errors.Is(err, models.ErrConflict) {
			utils.WriteDomainError(w, r, err)
			return
		}
	}
	updated, err := h.db.GetEvent(r.Context(), ev.ID)
	if err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, updated)
}

// DELETE /api/events/{id}
func (h *EventsHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	ev, err := h.db.GetEvent(r.Context(), id)
	if err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}
	if !canManageOrg(user, ev.OrganizationID) {
		utils.WriteForbiddenResponse(w, "Only the organization's officer can delete this event")
		return
	}
	if err := h.db.DeleteEvent(r.Context(), id); err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]string{"id": id})
}

// POST /api/events/{id}/like
func (h *EventsHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, models.EngagementLike)
}

// POST /api/events/{id}/interest
func (h *EventsHandler) ToggleInterest(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, models.EngagementInterest)
}

func (h *EventsHandler) toggle(w http.ResponseWriter, r *http.Request, kind models.EngagementKind) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	state, err := engagement.Toggle(r.Context(), h.db, id, user.ID, kind)
	if err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, state)
}

// GET /api/me/events?kind=liked|interested
func (h *EventsHandler) ListEngaged(w http.ResponseWriter, r *http.Request) {
	caller, ok := currentUser(w, r)
	if !ok {
		return
	}
	user, err := h.db.GetUserByID(r.Context(), caller.ID)
	if err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}
	var ids []string
	switch r.URL.Query().Get("kind") {
	case "", "liked":
		ids = user.LikedEvents
	case "interested":
		ids = user.InterestedEvents
	default:
		utils.WriteBadRequestResponse(w, "kind must be liked or interested")
		return
	}
	if len(ids) == 0 {
		utils.WriteListResponse(w, []models.Event{}, nil)
		return
	}
	list, err := h.db.ListEvents(r.Context(), models.EventFilter{Status: models.EventAccepted, IDs: ids})
	if err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}
	utils.WriteListResponse(w, list, nil)
}
