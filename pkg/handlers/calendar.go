package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"oms-backend/pkg/calendar"
	"oms-backend/pkg/database"
	"oms-backend/pkg/models"
	"oms-backend/pkg/utils"
)

type CalendarHandler struct {
	db  database.DatabaseInterface
	now func() time.Time
}

func NewCalendarHandler(db database.DatabaseInterface) *CalendarHandler {
	return &CalendarHandler{db: db, now: time.Now}
}

// GET /api/calendar?scope=me|organization
func (h *CalendarHandler) Entries(w http.ResponseWriter, r *http.Request) {
	caller, ok := currentUser(w, r)
	if !ok {
		return
	}
	var (
		evs   []models.Event
		tasks []models.Task
		err   error
	)
	switch r.URL.Query().Get("scope") {
	case "", "me":
		evs, tasks, err = h.memberSources(r, caller)
	case "organization":
		orgID := caller.OrganizationID
		if caller.Role == models.RoleAdmin && r.URL.Query().Get("organizationId") != "" {
			orgID = r.URL.Query().Get("organizationId")
		}
		if orgID == "" || !canManageOrg(caller, orgID) {
			utils.WriteForbiddenResponse(w, "Organization calendar is for officers only")
			return
		}
		evs, err = h.db.ListEvents(r.Context(), models.EventFilter{OrganizationID: orgID})
		if err == nil {
			tasks, err = h.db.ListTasks(r.Context(), models.TaskFilter{OrganizationID: orgID})
		}
	default:
		utils.WriteBadRequestResponse(w, "scope must be me or organization")
		return
	}
	if err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}
	utils.WriteListResponse(w, calendar.Merge(evs, tasks), nil)
}

// memberSources: accepted events of the caller's organizations and of events they engaged
// with, plus the tasks assigned to them.
func (h *CalendarHandler) memberSources(r *http.Request, caller *models.User) ([]models.Event, []models.Task, error) {
	ctx := r.Context()
	user, err := h.db.GetUserByID(ctx, caller.ID)
	if err != nil {
		return nil, nil, err
	}
	memberships, err := h.db.ListMemberships(ctx, models.MembershipFilter{
		UserID:   user.ID,
		Statuses: []models.MemberStatus{models.MemberApproved},
	})
	if err != nil {
		return nil, nil, err
	}
	orgIDs := []string{}
	for _, m := range memberships {
		orgIDs = models.AddUnique(orgIDs, m.OrganizationID)
	}
	if user.Role == models.RoleOrganization && user.OrganizationID != "" {
		orgIDs = models.AddUnique(orgIDs, user.OrganizationID)
	}

	seen := map[string]bool{}
	var evs []models.Event
	add := func(list []models.Event) {
		for _, e := range list {
			if !seen[e.ID] {
				seen[e.ID] = true
				evs = append(evs, e)
			}
		}
	}
	for _, orgID := range orgIDs {
		list, err := h.db.ListEvents(ctx, models.EventFilter{Status: models.EventAccepted, OrganizationID: orgID})
		if err != nil {
			return nil, nil, err
		}
		add(list)
	}
	engaged := append(append([]string{}, user.LikedEvents...), user.InterestedEvents...)
	if len(engaged) > 0 {
		list, err := h.db.ListEvents(ctx, models.EventFilter{Status: models.EventAccepted, IDs: engaged})
		if err != nil {
			return nil, nil, err
		}
		add(list)
	}

	tasks, err := h.db.ListTasks(ctx, models.TaskFilter{AssignedTo: user.ID})
	if err != nil {
		return nil, nil, err
	}
	return evs, tasks, nil
}

// GET /api/calendar/month?year=&month=&weekStart=sunday|monday
func (h *CalendarHandler) Month(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	year, month := now.Year(), int(now.Month())
	q := r.URL.Query()
	if raw := q.Get("year"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > 9999 {
			utils.WriteBadRequestResponse(w, "year must be between 1 and 9999")
			return
		}
		year = v
	}
	if raw := q.Get("month"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			utils.WriteBadRequestResponse(w, "month must be a number")
			return
		}
		month = v
	}
	weekStart := time.Sunday
	switch strings.ToLower(q.Get("weekStart")) {
	case "", "sunday":
	case "monday":
		weekStart = time.Monday
	default:
		utils.WriteBadRequestResponse(w, "weekStart must be sunday or monday")
		return
	}

	grid, err := calendar.MonthGrid(year, time.Month(month), weekStart)
	if err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, grid)
}
