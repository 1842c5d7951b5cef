package models

import "time"

type RequestType string

const (
	RequestOrganization RequestType = "organization"
	RequestEvent        RequestType = "event"
)

// AuditLog is appended for every admin decision and never modified.
type AuditLog struct {
	ID          string      `json:"id" bson:"_id" db:"id"`
	RequestID   string      `json:"requestId" bson:"requestId" db:"request_id"`
	RequestType RequestType `json:"requestType" bson:"requestType" db:"request_type"`
	Action      string      `json:"action" bson:"action" db:"action"`
	AdminID     string      `json:"adminId" bson:"adminId" db:"admin_id"`
	Reason      string      `json:"reason,omitempty" bson:"reason,omitempty" db:"reason"`
	Timestamp   time.Time   `json:"timestamp" bson:"timestamp" db:"created_at"`
}

type AuditFilter struct {
	RequestType RequestType
	RequestID   string
	Limit       int
}
