// Package workflow holds the status state machines for organizations, events and join
// requests, and the services that drive them.
package workflow

import (
	"errors"
	"fmt"
	"strings"

	"oms-backend/pkg/models"
)

var (
	ErrAlreadyDecided  = errors.New("request already decided")
	ErrReasonRequired  = errors.New("rejection reason is required")
	ErrInvalidDecision = errors.New("invalid decision")
)

type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

// ParseDecision accepts the verbs and the past-tense statuses clients send.
func ParseDecision(s string) (Decision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "accept", "accepted", "approve", "approved":
		return DecisionAccept, nil
	case "reject", "rejected":
		return DecisionReject, nil
	}
	return "", fmt.Errorf("%q: %w", s, ErrInvalidDecision)
}

func transition[S ~string](current, pending, accepted, rejected S, d Decision, reason string) (S, string, error) {
	if current != pending {
		return current, "", ErrAlreadyDecided
	}
	switch d {
	case DecisionAccept:
		return accepted, "", nil
	case DecisionReject:
		reason = strings.TrimSpace(reason)
		if reason == "" {
			return current, "", ErrReasonRequired
		}
		return rejected, reason, nil
	}
	return current, "", ErrInvalidDecision
}

// TransitionOrganization returns the next status and the reason to store.
func TransitionOrganization(current models.OrganizationStatus, d Decision, reason string) (models.OrganizationStatus, string, error) {
	return transition(current, models.OrganizationPending, models.OrganizationAccepted, models.OrganizationRejected, d, reason)
}

func TransitionEvent(current models.EventStatus, d Decision, reason string) (models.EventStatus, string, error) {
	return transition(current, models.EventPending, models.EventAccepted, models.EventRejected, d, reason)
}

func TransitionMember(current models.MemberStatus, d Decision, reason string) (models.MemberStatus, string, error) {
	return transition(current, models.MemberPending, models.MemberApproved, models.MemberRejected, d, reason)
}
