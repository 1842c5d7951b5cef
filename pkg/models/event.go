package models

import "time"

type EventStatus string

const (
	EventPending  EventStatus = "pending"
	EventAccepted EventStatus = "accepted"
	EventRejected EventStatus = "rejected"
)

func (s EventStatus) Valid() bool {
	switch s {
	case EventPending, EventAccepted, EventRejected:
		return true
	}
	return false
}

// Event is posted by an officer and shown publicly once accepted.
type Event struct {
	ID              string      `json:"id" bson:"_id" db:"id"`
	Name            string      `json:"eventName" bson:"eventName" db:"name"`
	Description     string      `json:"eventDescription" bson:"eventDescription" db:"description"`
	Date            time.Time   `json:"eventDate" bson:"eventDate" db:"event_date"`
	Location        string      `json:"eventLocation" bson:"eventLocation" db:"location"`
	Price           float64     `json:"eventPrice" bson:"eventPrice" db:"price"`
	Images          []string    `json:"eventImages" bson:"eventImages" db:"images"`
	OrganizationID  string      `json:"organizationId" bson:"organizationId" db:"organization_id"`
	Status          EventStatus `json:"status" bson:"status" db:"status"`
	RejectionReason string      `json:"rejectionReason,omitempty" bson:"rejectionReason,omitempty" db:"rejection_reason"`
	Likes           []string    `json:"likes" bson:"likes" db:"likes"`
	Interested      []string    `json:"interested" bson:"interested" db:"interested"`
	Tags            []string    `json:"tags" bson:"tags" db:"tags"`
	CreatedBy       string      `json:"uid" bson:"uid" db:"created_by"`
	CreatedAt       time.Time   `json:"createdAt" bson:"createdAt" db:"created_at"`
	UpdatedAt       time.Time   `json:"updatedAt" bson:"updatedAt" db:"updated_at"`
}

type EventCreateRequest struct {
	Name        string    `json:"eventName" validate:"required,max=200"`
	Description string    `json:"eventDescription" validate:"max=8000"`
	Date        time.Time `json:"eventDate" validate:"required"`
	Location    string    `json:"eventLocation" validate:"max=300"`
	Price       float64   `json:"eventPrice" validate:"gte=0"`
	Images      []string  `json:"eventImages" validate:"max=10,dive,url"`
	Tags        []string  `json:"tags" validate:"max=20,dive,max=40"`
}

type EventUpdateRequest struct {
	Name        *string    `json:"eventName" validate:"omitempty,min=1,max=200"`
	Description *string    `json:"eventDescription" validate:"omitempty,max=8000"`
	Date        *time.Time `json:"eventDate"`
	Location    *string    `json:"eventLocation" validate:"omitempty,max=300"`
	Price       *float64   `json:"eventPrice" validate:"omitempty,gte=0"`
	Images      []string   `json:"eventImages" validate:"omitempty,max=10,dive,url"`
	Tags        []string   `json:"tags" validate:"omitempty,max=20,dive,max=40"`
}

// EventFilter narrows event listings. Empty fields match everything.
type EventFilter struct {
	Status         EventStatus
	OrganizationID string
	Tag            string
	IDs            []string
}
