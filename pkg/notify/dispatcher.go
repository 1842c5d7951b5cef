// Package notify turns domain events into per-user notifications.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"oms-backend/pkg/events"
	"oms-backend/pkg/models"
)

// Store is the slice of the database the dispatcher needs.
type Store interface {
	GetOrganization(ctx context.Context, id string) (*models.Organization, error)
	ListMemberships(ctx context.Context, filter models.MembershipFilter) ([]models.Membership, error)
	CreateNotification(ctx context.Context, n *models.Notification) error
}

type Dispatcher struct {
	store  Store
	logger *slog.Logger
}

func NewDispatcher(store Store, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{store: store, logger: logger}
}

// Handle implements events.Handler. Unknown event types are ignored.
func (d *Dispatcher) Handle(ctx context.Context, env events.Envelope) error {
	switch env.Type {
	case events.TypeMembershipApproved, events.TypeMembershipRejected:
		return d.withDecision(ctx, env, d.membershipDecided)
	case events.TypeOrganizationAccepted, events.TypeOrganizationRejected:
		return d.withDecision(ctx, env, d.organizationDecided)
	case events.TypeEventAccepted, events.TypeEventRejected:
		return d.withDecision(ctx, env, d.eventDecided)
	case events.TypeTaskCreated:
		var t events.TaskAssignment
		if err := json.Unmarshal(env.Data, &t); err != nil {
			return fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return d.taskCreated(ctx, t)
	default:
		d.logger.DebugContext(ctx, "ignoring event", "module", "notify", "event_type", env.Type)
		return nil
	}
}

// Send stores one notification. Used by the dispatcher and by trusted services.
func (d *Dispatcher) Send(ctx context.Context, req models.NotificationCreateRequest) (*models.Notification, error) {
	if req.Type == "" {
		req.Type = models.NotifGeneral
	}
	n := &models.Notification{
		RecipientUID:  req.RecipientUID,
		Type:          req.Type,
		Message:       req.Message,
		OrgName:       req.OrgName,
		OrgProfilePic: req.OrgProfilePic,
		RefID:         req.RefID,
	}
	if err := d.store.CreateNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}
	return n, nil
}

func (d *Dispatcher) withDecision(ctx context.Context, env events.Envelope, fn func(context.Context, events.Decision, *models.Organization) error) error {
	var dec events.Decision
	if err := json.Unmarshal(env.Data, &dec); err != nil {
		return fmt.Errorf("decode %s: %w", env.Type, err)
	}
	org, err := d.store.GetOrganization(ctx, dec.OrganizationID)
	if err != nil {
		return fmt.Errorf("load organization %s: %w", dec.OrganizationID, err)
	}
	return fn(ctx, dec, org)
}

func (d *Dispatcher) membershipDecided(ctx context.Context, dec events.Decision, org *models.Organization) error {
	msg := fmt.Sprintf("Your request to join %s has been approved.", org.Name)
	if dec.Status == string(models.MemberRejected) {
		msg = fmt.Sprintf("Your request to join %s was rejected: %s", org.Name, dec.Reason)
	}
	_, err := d.Send(ctx, fromOrg(org, dec.SubjectUID, models.NotifMembershipDecision, msg, dec.RequestID))
	return err
}

func (d *Dispatcher) organizationDecided(ctx context.Context, dec events.Decision, org *models.Organization) error {
	msg := fmt.Sprintf("Your organization %s has been accepted.", org.Name)
	if dec.Status == string(models.OrganizationRejected) {
		msg = fmt.Sprintf("Your organization application for %s was rejected: %s", org.Name, dec.Reason)
	}
	_, err := d.Send(ctx, fromOrg(org, org.OwnerID, models.NotifOrganizationDecision, msg, org.ID))
	return err
}

func (d *Dispatcher) eventDecided(ctx context.Context, dec events.Decision, org *models.Organization) error {
	msg := fmt.Sprintf("Your event %s has been accepted.", dec.Name)
	if dec.Status == string(models.EventRejected) {
		msg = fmt.Sprintf("Your event %s was rejected: %s", dec.Name, dec.Reason)
	}
	if _, err := d.Send(ctx, fromOrg(org, org.OwnerID, models.NotifEventDecision, msg, dec.RequestID)); err != nil {
		return err
	}
	if dec.Status != string(models.EventAccepted) {
		return nil
	}

	members, err := d.store.ListMemberships(ctx, models.MembershipFilter{
		OrganizationID: org.ID,
		Statuses:       []models.MemberStatus{models.MemberApproved},
	})
	if err != nil {
		return fmt.Errorf("list members of %s: %w", org.ID, err)
	}
	announce := fmt.Sprintf("%s posted a new event: %s", org.Name, dec.Name)
	var errs []error
	for _, m := range members {
		if m.UserID == org.OwnerID {
			continue
		}
		if _, err := d.Send(ctx, fromOrg(org, m.UserID, models.NotifNewEvent, announce, dec.RequestID)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) taskCreated(ctx context.Context, t events.TaskAssignment) error {
	org, err := d.store.GetOrganization(ctx, t.OrganizationID)
	if err != nil {
		return fmt.Errorf("load organization %s: %w", t.OrganizationID, err)
	}
	msg := fmt.Sprintf("You have been assigned a new task: %s", t.TaskName)
	var errs []error
	for _, uid := range t.Assignees {
		if _, err := d.Send(ctx, fromOrg(org, uid, models.NotifTaskAssigned, msg, t.TaskID)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func fromOrg(org *models.Organization, recipient string, typ models.NotificationType, msg, ref string) models.NotificationCreateRequest {
	return models.NotificationCreateRequest{
		RecipientUID:  recipient,
		Type:          typ,
		Message:       msg,
		OrgName:       org.Name,
		OrgProfilePic: org.Photo,
		RefID:         ref,
	}
}
