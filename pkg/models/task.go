package models

import "time"

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// Task is assigned by an officer to members of the organization.
type Task struct {
	ID              string       `json:"id" bson:"_id" db:"id"`
	Name            string       `json:"taskName" bson:"taskName" db:"name"`
	Description     string       `json:"description" bson:"description" db:"description"`
	DueDate         time.Time    `json:"dueDate" bson:"dueDate" db:"due_date"`
	Priority        TaskPriority `json:"priority" bson:"priority" db:"priority"`
	AssignedMembers []string     `json:"assignedMembers" bson:"assignedMembers" db:"assigned_members"`
	OrganizationID  string       `json:"organizationId" bson:"organizationId" db:"organization_id"`
	Completed       bool         `json:"completed" bson:"completed" db:"completed"`
	CompletedAt     *time.Time   `json:"completedAt,omitempty" bson:"completedAt,omitempty" db:"completed_at"`
	CreatedBy       string       `json:"createdBy" bson:"createdBy" db:"created_by"`
	CreatedAt       time.Time    `json:"createdAt" bson:"createdAt" db:"created_at"`
}

// IsAssigned reports whether uid is one of the assignees.
func (t *Task) IsAssigned(uid string) bool {
	for _, m := range t.AssignedMembers {
		if m == uid {
			return true
		}
	}
	return false
}

type TaskCreateRequest struct {
	Name            string       `json:"taskName" validate:"required,max=200"`
	Description     string       `json:"description" validate:"max=4000"`
	DueDate         time.Time    `json:"dueDate" validate:"required"`
	Priority        TaskPriority `json:"priority" validate:"omitempty,oneof=low medium high"`
	AssignedMembers []string     `json:"assignedMembers" validate:"max=200"`
}

type TaskUpdateRequest struct {
	Name            *string       `json:"taskName" validate:"omitempty,min=1,max=200"`
	Description     *string       `json:"description" validate:"omitempty,max=4000"`
	DueDate         *time.Time    `json:"dueDate"`
	Priority        *TaskPriority `json:"priority" validate:"omitempty,oneof=low medium high"`
	AssignedMembers []string      `json:"assignedMembers" validate:"omitempty,max=200"`
}

// TaskFilter selects tasks by organization or by assignee.
type TaskFilter struct {
	OrganizationID string
	AssignedTo     string
}
