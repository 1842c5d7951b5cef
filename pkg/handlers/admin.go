package handlers

import (
	"net/http"
	"strconv"

	"oms-backend/pkg/database"
	"oms-backend/pkg/models"
	"oms-backend/pkg/utils"
	"oms-backend/pkg/workflow"
)

// AdminHandler serves the moderation queues, decisions and the audit log.
type AdminHandler struct {
	db        database.DatabaseInterface
	moderator *workflow.Moderator
}

func NewAdminHandler(db database.DatabaseInterface, moderator *workflow.Moderator) *AdminHandler {
	return &AdminHandler{db: db, moderator: moderator}
}

// GET /api/admin/organizations/pending
func (h *AdminHandler) PendingOrganizations(w http.ResponseWriter, r *http.Request) {
	list, err := h.db.ListOrganizations(r.Context(), models.OrganizationFilter{Status: models.OrganizationPending})
	if err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}
	utils.WriteListResponse(w, list, nil)
}

// GET /api/admin/events/pending
func (h *AdminHandler) PendingEvents(w http.ResponseWriter, r *http.Request) {
	list, err := h.db.ListEvents(r.Context(), models.EventFilter{Status: models.EventPending})
	if err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}
	utils.WriteListResponse(w, list, nil)
}

func (h *AdminHandler) decision(w http.ResponseWriter, r *http.Request) (string, workflow.Decision, string, *models.User, bool) {
	user, ok := currentUser(w, r)
	if !ok {
		return "", "", "", nil, false
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return "", "", "", nil, false
	}
	var req models.DecisionRequest
	if !decodeValid(w, r, &req) {
		return "", "", "", nil, false
	}
	d, err := workflow.ParseDecision(req.Decision)
	if err != nil {
		utils.WriteDomainError(w, r, err)
		return "", "", "", nil, false
	}
	return id, d, req.Reason, user, true
}

// POST /api/admin/organizations/{id}/decision
func (h *AdminHandler) DecideOrganization(w http.ResponseWriter, r *http.Request) {
	id, d, reason, admin, ok := h.decision(w, r)
	if !ok {
		return
	}
	org, err := h.moderator.DecideOrganization(r.Context(), id, d, reason, admin.ID)
	if err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, org)
}

// POST /api/admin/events/{id}/decision
func (h *AdminHandler) DecideEvent(w http.ResponseWriter, r *http.Request) {
	id, d, reason, admin, ok := h.decision(w, r)
	if !ok {
		return
	}
	ev, err := h.moderator.DecideEvent(r.Context(), id, d, reason, admin.ID)
	if err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, ev)
}

// POST /api/admin/organizations/bulk-decision
func (h *AdminHandler) BulkOrganizations(w http.ResponseWriter, r *http.Request) {
	h.bulk(w, r, models.RequestOrganization)
}

// POST /api/admin/events/bulk-decision
func (h *AdminHandler) BulkEvents(w http.ResponseWriter, r *http.Request) {
	h.bulk(w, r, models.RequestEvent)
}

func (h *AdminHandler) bulk(w http.ResponseWriter, r *http.Request, kind models.RequestType) {
	admin, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req models.BulkDecisionRequest
	if !decodeValid(w, r, &req) {
		return
	}
	d, err := workflow.ParseDecision(req.Decision)
	if err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}
	summary, err := h.moderator.BulkDecide(r.Context(), kind, req.IDs, d, req.Reason, admin.ID)
	if err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, summary)
}

// GET /api/admin/audit-logs?requestType=&requestId=&limit=
func (h *AdminHandler) AuditLogs(w http.ResponseWriter, r *http.Request) {
	filter := models.AuditFilter{
		RequestType: models.RequestType(r.URL.Query().Get("requestType")),
		RequestID:   r.URL.Query().Get("requestId"),
	}
	if filter.RequestType != "" && filter.RequestType != models.RequestOrganization && filter.RequestType != models.RequestEvent {
		utils.WriteBadRequestResponse(w, "requestType must be organization or event")
		return
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			utils.WriteBadRequestResponse(w, "limit must be a positive integer")
			return
		}
		filter.Limit = limit
	}
	list, err := h.db.ListAuditLogs(r.Context(), filter)
	if err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}
	utils.WriteListResponse(w, list, nil)
}
