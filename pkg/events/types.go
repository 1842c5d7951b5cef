package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Domain event types, named "{subject}.{outcome}".
const (
	TypeOrganizationAccepted = "organization.accepted"
	TypeOrganizationRejected = "organization.rejected"
	TypeEventAccepted        = "event.accepted"
	TypeEventRejected        = "event.rejected"
	TypeMembershipApproved   = "membership.approved"
	TypeMembershipRejected   = "membership.rejected"
	TypeTaskCreated          = "task.created"
)

// DecisionType returns the event type for a subject reaching status, e.g. ("event", "accepted").
func DecisionType(subject, status string) string {
	return subject + "." + status
}

// Envelope wraps every published payload.
type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurredAt"`
	Data       json.RawMessage `json:"data"`
}

// Decision is the payload of every accepted/approved/rejected event.
type Decision struct {
	RequestID      string `json:"requestId"`
	OrganizationID string `json:"organizationId,omitempty"`
	SubjectUID     string `json:"subjectUid,omitempty"` // member or owner told about the outcome
	Name           string `json:"name,omitempty"`       // organization or event name
	Status         string `json:"status"`
	Reason         string `json:"reason,omitempty"`
	DecidedBy      string `json:"decidedBy"`
}

type TaskAssignment struct {
	TaskID         string   `json:"taskId"`
	TaskName       string   `json:"taskName"`
	OrganizationID string   `json:"organizationId"`
	Assignees      []string `json:"assignees"`
}

// NewEnvelope marshals data into an envelope of the given type.
func NewEnvelope(eventType string, data any) (Envelope, []byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	env := Envelope{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	}
	body, err := json.Marshal(env)
	if err != nil {
		return Envelope{}, nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return env, body, nil
}

func DecodeEnvelope(body []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("decode envelope: missing type")
	}
	return env, nil
}
