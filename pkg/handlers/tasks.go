package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"oms-backend/pkg/database"
	"oms-backend/pkg/events"
	"oms-backend/pkg/models"
	"oms-backend/pkg/utils"
)

type TasksHandler struct {
	db        database.DatabaseInterface
	publisher events.Publisher
}

func NewTasksHandler(db database.DatabaseInterface, publisher events.Publisher) *TasksHandler {
	return &TasksHandler{db: db, publisher: publisher}
}

// GET /api/tasks
// Officers see their organization's tasks, everyone else the tasks assigned to them.
// Admins may pass organizationId.
func (h *TasksHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	filter := models.TaskFilter{AssignedTo: user.ID}
	switch {
	case user.Role == models.RoleOrganization && user.OrganizationID != "" && r.URL.Query().Get("assigned") != "me":
		filter = models.TaskFilter{OrganizationID: user.OrganizationID}
	case user.Role == models.RoleAdmin && r.URL.Query().Get("organizationId") != "":
		filter = models.TaskFilter{OrganizationID: r.URL.Query().Get("organizationId")}
	}
	list, err := h.db.ListTasks(r.Context(), filter)
	if err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}
	utils.WriteListResponse(w, list, nil)
}

// checkAssignees requires every assignee to be an approved member of orgID or its owner.
func (h *TasksHandler) checkAssignees(ctx context.Context, orgID string, assignees []string) ([]string, error) {
	if len(assignees) == 0 {
		return []string{}, nil
	}
	org, err := h.db.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	members, err := h.db.ListMemberships(ctx, models.MembershipFilter{
		OrganizationID: orgID,
		Statuses:       []models.MemberStatus{models.MemberApproved},
	})
	if err != nil {
		return nil, err
	}
	allowed := map[string]bool{org.OwnerID: true}
	for _, m := range members {
		allowed[m.UserID] = true
	}
	out := make([]string, 0, len(assignees))
	for _, uid := range assignees {
		uid = strings.TrimSpace(uid)
		if !allowed[uid] {
			return nil, fmt.Errorf("assignee %s is not a member of the organization: %w", uid, models.ErrInvalidInput)
		}
		out = models.AddUnique(out, uid)
	}
	return out, nil
}

// POST /api/tasks
func (h *TasksHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req models.TaskCreateRequest
	if !decodeValid(w, r, &req) {
		return
	}
	if user.OrganizationID == "" {
		utils.WriteForbiddenResponse(w, "Only organization officers can create tasks")
		return
	}
	assignees, err := h.checkAssignees(r.Context(), user.OrganizationID, req.AssignedMembers)
	if err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}
	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	task := &models.Task{
		Name:            strings.TrimSpace(req.Name),
		Description:     req.Description,
		DueDate:         req.DueDate.UTC(),
		Priority:        priority,
		AssignedMembers: assignees,
		OrganizationID:  user.OrganizationID,
		CreatedBy:       user.ID,
	}
	if err := h.db.CreateTask(r.Context(), task); err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}

	if h.publisher != nil && len(assignees) > 0 {
		err := events.Emit(r.Context(), h.publisher, events.TypeTaskCreated, task.OrganizationID, events.TaskAssignment{
			TaskID:         task.ID,
			TaskName:       task.Name,
			OrganizationID: task.OrganizationID,
			Assignees:      assignees,
		})
		if err != nil {
			slog.WarnContext(r.Context(), "task.created publish failed", "module", "handlers.tasks", "task_id", task.ID, "error", err)
		}
	}
	utils.WriteCreatedResponse(w, task)
}

func (h *TasksHandler) loadManaged(w http.ResponseWriter, r *http.Request) (*models.Task, *models.User, bool) {
	user, ok := currentUser(w, r)
	if !ok {
		return nil, nil, false
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return nil, nil, false
	}
	task, err := h.db.GetTask(r.Context(), id)
	if err != nil {
		utils.WriteDomainError(w, r, err)
		return nil, nil, false
	}
	return task, user, true
}

// PUT /api/tasks/{id}
func (h *TasksHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	task, user, ok := h.loadManaged(w, r)
	if !ok {
		return
	}
	if !user.IsOfficerOf(task.OrganizationID) {
		utils.WriteForbiddenResponse(w, "Only the organization's officer can edit this task")
		return
	}
	var req models.TaskUpdateRequest
	if !decodeValid(w, r, &req) {
		return
	}
	if req.Name != nil {
		task.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.DueDate != nil {
		task.DueDate = req.DueDate.UTC()
	}
	if req.Priority != nil {
		task.Priority = *req.Priority
	}
	if req.AssignedMembers != nil {
		assignees, err := h.checkAssignees(r.Context(), task.OrganizationID, req.AssignedMembers)
		if err != nil {
			utils.WriteDomainError(w, r, err)
			return
		}
		task.AssignedMembers = assignees
	}
	if err := h.db.UpdateTask(r.Context(), task); err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, task)
}

// DELETE /api/tasks/{id}
func (h *TasksHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	task, user, ok := h.loadManaged(w, r)
	if !ok {
		return
	}
	if !user.IsOfficerOf(task.OrganizationID) {
		utils.WriteForbiddenResponse(w, "Only the organization's officer can delete this task")
		return
	}
	if err := h.db.DeleteTask(r.Context(), task.ID); err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]string{"id": task.ID})
}

// POST /api/tasks/{id}/toggle
func (h *TasksHandler) ToggleTask(w http.ResponseWriter, r *http.Request) {
	task, user, ok := h.loadManaged(w, r)
	if !ok {
		return
	}
	if !task.IsAssigned(user.ID) && !user.IsOfficerOf(task.OrganizationID) {
		utils.WriteForbiddenResponse(w, "Only assignees or the officer can complete this task")
		return
	}
	completed := !task.Completed
	var at *time.Time
	if completed {
		now := time.Now().UTC()
		at = &now
	}
	if err := h.db.SetTaskCompleted(r.Context(), task.ID, completed, at); err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}
	task.Completed, task.CompletedAt = completed, at
	utils.WriteSuccessResponse(w, task)
}
