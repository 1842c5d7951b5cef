package models

import "time"

type OrganizationStatus string

const (
	OrganizationPending  OrganizationStatus = "pending"
	OrganizationAccepted OrganizationStatus = "accepted"
	OrganizationRejected OrganizationStatus = "rejected"
)

func (s OrganizationStatus) Valid() bool {
	switch s {
	case OrganizationPending, OrganizationAccepted, OrganizationRejected:
		return true
	}
	return false
}

// Organization is a student group. Status only moves through an admin decision.
type Organization struct {
	ID                string             `json:"id" bson:"_id" db:"id"`
	Name              string             `json:"name" bson:"name" db:"name"`
	Description       string             `json:"description" bson:"description" db:"description"`
	Photo             string             `json:"photo,omitempty" bson:"photo" db:"photo"`
	Email             string             `json:"email,omitempty" bson:"email" db:"email"`
	OwnerID           string             `json:"ownerUid" bson:"ownerUid" db:"owner_id"`
	Status            OrganizationStatus `json:"status" bson:"status" db:"status"`
	Tags              []string           `json:"tags" bson:"tags" db:"tags"`
	RejectionReason   string             `json:"rejectionReason,omitempty" bson:"rejectionReason,omitempty" db:"rejection_reason"`
	HasSeenAcceptance bool               `json:"hasSeenAcceptance" bson:"hasSeenAcceptance" db:"has_seen_acceptance"`
	CreatedAt         time.Time          `json:"createdAt" bson:"createdAt" db:"created_at"`
	UpdatedAt         time.Time          `json:"updatedAt" bson:"updatedAt" db:"updated_at"`
}

// OrganizationUpdate carries the profile fields an owner may change. Status is not among them.
type OrganizationUpdate struct {
	Name        *string  `json:"name" validate:"omitempty,min=1,max=160"`
	Description *string  `json:"description" validate:"omitempty,max=4000"`
	Photo       *string  `json:"photo" validate:"omitempty,url"`
	Tags        []string `json:"tags" validate:"omitempty,max=20,dive,max=40"`
}

// OrganizationFilter narrows directory listings.
type OrganizationFilter struct {
	Status OrganizationStatus
	Tag    string
	Query  string // case-insensitive name substring
}
