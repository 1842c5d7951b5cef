package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"oms-backend/pkg/cache"
	"oms-backend/pkg/config"
	"oms-backend/pkg/database"
	"oms-backend/pkg/models"
	"oms-backend/pkg/utils"
	"oms-backend/pkg/workflow"
)

type OrgsHandler struct {
	config      *config.Config
	db          database.DatabaseInterface
	cache       cache.Cache
	memberships *workflow.Memberships
}

func NewOrgsHandler(cfg *config.Config, db database.DatabaseInterface, c cache.Cache, memberships *workflow.Memberships) *OrgsHandler {
	return &OrgsHandler{config: cfg, db: db, cache: c, memberships: memberships}
}

// GET /api/organizations?tag=&q=
// The unfiltered directory is served from cache.
func (h *OrgsHandler) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	filter := models.OrganizationFilter{
		Status: models.OrganizationAccepted,
		Tag:    strings.TrimSpace(r.URL.Query().Get("tag")),
		Query:  strings.TrimSpace(r.URL.Query().Get("q")),
	}
	cacheable := filter.Tag == "" && filter.Query == "" && h.cache != nil

	if cacheable {
		if raw, err := h.cache.Get(r.Context(), cache.KeyOrganizationDirectory); err == nil {
			var orgs []models.Organization
			if json.Unmarshal([]byte(raw), &orgs) == nil {
				utils.WriteListResponse(w, orgs, nil)
				return
			}
		}
	}

	orgs, err := h.db.ListOrganizations(r.Context(), filter)
	if err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}
	if cacheable {
		h.storeDirectory(r.Context(), orgs)
	}
	utils.WriteListResponse(w, orgs, nil)
}

func (h *OrgsHandler) storeDirectory(ctx context.Context, orgs []models.Organization) {
	raw, err := json.Marshal(orgs)
	if err != nil {
		return
	}
	if err := h.cache.Set(ctx, cache.KeyOrganizationDirectory, string(raw), h.config.CacheTTL); err != nil {
		slog.WarnContext(ctx, "directory cache write failed", "module", "handlers.orgs", "error", err)
	}
}

// GET /api/organizations/{id}
// Organizations that are not accepted are visible only to their owner and admins.
func (h *OrgsHandler) GetOrganization(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	orgID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	org, err := h.db.GetOrganization(r.Context(), orgID)
	if err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}
	if org.Status != models.OrganizationAccepted && org.OwnerID != user.ID && user.Role != models.RoleAdmin {
		utils.WriteNotFoundResponse(w, "organization not found")
		return
	}
	utils.WriteSuccessResponse(w, org)
}

// PUT /api/organizations/{id}
func (h *OrgsHandler) UpdateOrganization(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	orgID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.OrganizationUpdate
	if !decodeValid(w, r, &req) {
		return
	}
	org, err := h.db.GetOrganization(r.Context(), orgID)
	if err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}
	if org.OwnerID != user.ID {
		utils.WriteForbiddenResponse(w, "Only the organization owner can update its profile")
		return
	}

	if req.Name != nil {
		org.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		org.Description = *req.Description
	}
	if req.Photo != nil {
		org.Photo = strings.TrimSpace(*req.Photo)
	}
	if req.Tags != nil {
		org.Tags = normalizeTags(req.Tags)
	}
	if err := h.db.UpdateOrganizationProfile(r.Context(), org); err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}
	if h.cache != nil {
		_ = h.cache.Delete(r.Context(), cache.KeyOrganizationDirectory)
	}
	utils.WriteSuccessResponse(w, org)
}

// POST /api/organizations/{id}/acceptance-seen
func (h *OrgsHandler) MarkAcceptanceSeen(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	orgID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.memberships.MarkAcceptanceSeen(r.Context(), user, orgID); err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"organizationId": orgID, "hasSeenAcceptance": true})
}

// POST /api/organizations/{id}/join
func (h *OrgsHandler) RequestJoin(w http.ResponseWriter, r *http.Request) {
	caller, ok := currentUser(w, r)
	if !ok {
		return
	}
	orgID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	user, err := h.db.GetUserByID(r.Context(), caller.ID)
	if err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}
	req, created, err := h.memberships.RequestJoin(r.Context(), user, orgID)
	if err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	utils.WriteJSONResponse(w, status, map[string]interface{}{"request": req, "created": created})
}

// GET /api/organizations/{id}/members?status=pending,approved
func (h *OrgsHandler) ListJoinRequests(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	orgID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if !canManageOrg(user, orgID) {
		utils.WriteForbiddenResponse(w, "Only the organization's officer can list join requests")
		return
	}
	statuses, err := parseMemberStatuses(r.URL.Query().Get("status"))
	if err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}
	list, err := h.db.ListMemberships(r.Context(), models.MembershipFilter{OrganizationID: orgID, Statuses: statuses})
	if err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}
	utils.WriteListResponse(w, list, nil)
}

func parseMemberStatuses(raw string) ([]models.MemberStatus, error) {
	var out []models.MemberStatus
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(strings.ToLower(part))
		if part == "" {
			continue
		}
		s := models.MemberStatus(part)
		if !s.Valid() {
			return nil, fmt.Errorf("status %q: %w", part, models.ErrInvalidInput)
		}
		out = append(out, s)
	}
	return out, nil
}

// MembershipHandler serves the join-request decision and the member's application pages.
type MembershipHandler struct {
	memberships *workflow.Memberships
}

func NewMembershipHandler(memberships *workflow.Memberships) *MembershipHandler {
	return &MembershipHandler{memberships: memberships}
}

// POST /api/members/{requestId}/decision
func (h *MembershipHandler) Decide(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	requestID, ok := pathID(w, r, "requestId")
	if !ok {
		return
	}
	var req models.DecisionRequest
	if !decodeValid(w, r, &req) {
		return
	}
	decision, err := workflow.ParseDecision(req.Decision)
	if err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}
	m, err := h.memberships.DecideJoin(r.Context(), user, requestID, decision, req.Reason)
	if err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, m)
}

// GET /api/me/applications
func (h *MembershipHandler) Applications(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	views, err := h.memberships.ApplicationStatus(r.Context(), user.ID)
	if err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}
	unseen := 0
	for _, v := range views {
		if v.Status != models.MemberPending && !v.SeenByUser {
			unseen++
		}
	}
	utils.WriteListResponse(w, views, &utils.Meta{Unread: unseen})
}

// POST /api/me/applications/seen
func (h *MembershipHandler) MarkSeen(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	n, err := h.memberships.MarkAllAsSeen(r.Context(), user.ID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		utils.WriteDomainError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]int{"updated": n})
}
