package models

import "time"

type MemberStatus string

const (
	MemberPending  MemberStatus = "pending"
	MemberApproved MemberStatus = "approved"
	MemberRejected MemberStatus = "rejected"
)

func (s MemberStatus) Valid() bool {
	switch s {
	case MemberPending, MemberApproved, MemberRejected:
		return true
	}
	return false
}

// Label is the text shown on the member's application status page.
func (s MemberStatus) Label() string {
	switch s {
	case MemberApproved:
		return "Approved"
	case MemberRejected:
		return "Rejected"
	default:
		return "Pending"
	}
}

// Membership is a join request of a user to an organization, keyed by JoinRequestID.
type Membership struct {
	ID              string       `json:"id" bson:"_id" db:"id"`
	UserID          string       `json:"uid" bson:"uid" db:"user_id"`
	OrganizationID  string       `json:"organizationId" bson:"organizationId" db:"organization_id"`
	Status          MemberStatus `json:"status" bson:"status" db:"status"`
	SeenByUser      bool         `json:"seenByUser" bson:"seenByUser" db:"seen_by_user"`
	RejectionReason string       `json:"rejectionReason,omitempty" bson:"rejectionReason,omitempty" db:"rejection_reason"`
	UserName        string       `json:"userName,omitempty" bson:"userName" db:"user_name"`
	UserEmail       string       `json:"userEmail,omitempty" bson:"userEmail" db:"user_email"`
	CreatedAt       time.Time    `json:"createdAt" bson:"createdAt" db:"created_at"`
	DecidedAt       *time.Time   `json:"decidedAt,omitempty" bson:"decidedAt,omitempty" db:"decided_at"`
	DecidedBy       string       `json:"decidedBy,omitempty" bson:"decidedBy,omitempty" db:"decided_by"`
}

// JoinRequestID is the composite key that keeps one request per (user, organization).
func JoinRequestID(uid, orgID string) string {
	return uid + "_" + orgID
}

// ApplicationView is one row of the member's application status page.
type ApplicationView struct {
	RequestID        string       `json:"requestId"`
	OrganizationID   string       `json:"organizationId"`
	OrganizationName string       `json:"organizationName"`
	OrganizationLogo string       `json:"organizationLogo,omitempty"`
	Status           MemberStatus `json:"status"`
	Label            string       `json:"label"`
	RejectionReason  string       `json:"rejectionReason,omitempty"`
	SeenByUser       bool         `json:"seenByUser"`
}

// MembershipFilter selects join requests. Statuses is an OR over the listed values.
type MembershipFilter struct {
	UserID         string
	OrganizationID string
	Statuses       []MemberStatus
}
