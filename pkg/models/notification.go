package models

import "time"

type NotificationType string

const (
	NotifMembershipDecision   NotificationType = "membership_decision"
	NotifOrganizationDecision NotificationType = "organization_decision"
	NotifEventDecision        NotificationType = "event_decision"
	NotifNewEvent             NotificationType = "new_event"
	NotifTaskAssigned         NotificationType = "task_assigned"
	NotifGeneral              NotificationType = "general"
)

type Notification struct {
	ID            string           `json:"id" bson:"_id" db:"id"`
	RecipientUID  string           `json:"recipientUid" bson:"recipientUid" db:"recipient_uid"`
	Type          NotificationType `json:"type" bson:"type" db:"type"`
	Message       string           `json:"message" bson:"message" db:"message"`
	Read          bool             `json:"read" bson:"read" db:"read"`
	OrgName       string           `json:"orgName,omitempty" bson:"orgName,omitempty" db:"org_name"`
	OrgProfilePic string           `json:"orgProfilePic,omitempty" bson:"orgProfilePic,omitempty" db:"org_profile_pic"`
	RefID         string           `json:"refId,omitempty" bson:"refId,omitempty" db:"ref_id"`
	Timestamp     time.Time        `json:"timestamp" bson:"timestamp" db:"created_at"`
}

// NotificationCreateRequest is accepted from trusted services only.
type NotificationCreateRequest struct {
	RecipientUID  string           `json:"recipientUid" validate:"required"`
	Type          NotificationType `json:"type"`
	Message       string           `json:"message" validate:"required,max=1000"`
	OrgName       string           `json:"orgName" validate:"max=160"`
	OrgProfilePic string           `json:"orgProfilePic" validate:"omitempty,url"`
	RefID         string           `json:"refId"`
}
