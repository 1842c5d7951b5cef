package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"oms-backend/pkg/database"
	"oms-backend/pkg/events"
	"oms-backend/pkg/models"
)

// Memberships drives join requests and the seen flags shown to members and officers.
type Memberships struct {
	db        database.DatabaseInterface
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewMemberships(db database.DatabaseInterface, publisher events.Publisher, logger *slog.Logger) *Memberships {
	if logger == nil {
		logger = slog.Default()
	}
	return &Memberships{db: db, publisher: publisher, logger: logger, now: time.Now}
}

// RequestJoin files a pending request for user to join orgID. An existing request is
// returned unchanged with created=false.
func (s *Memberships) RequestJoin(ctx context.Context, user *models.User, orgID string) (*models.Membership, bool, error) {
	org, err := s.db.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, false, err
	}
	if org.Status != models.OrganizationAccepted {
		return nil, false, fmt.Errorf("organization %s: %w", orgID, models.ErrNotFound)
	}
	if user.IsOfficerOf(orgID) {
		return nil, false, fmt.Errorf("officers cannot join their own organization: %w", models.ErrInvalidInput)
	}

	id := models.JoinRequestID(user.ID, orgID)
	existing, err := s.db.GetMembership(ctx, id)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, false, err
	}

	m := &models.Membership{
		ID:             id,
		UserID:         user.ID,
		OrganizationID: orgID,
		Status:         models.MemberPending,
		UserName:       user.Name,
		UserEmail:      user.Email,
		CreatedAt:      s.now().UTC(),
	}
	created, err := s.db.CreateMembership(ctx, m)
	if err != nil {
		return nil, false, err
	}
	if !created {
		// lost a race with a concurrent request from the same user
		existing, err := s.db.GetMembership(ctx, id)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}
	return m, true, nil
}

// DecideJoin approves or rejects a pending request. Only the organization's officer or an
// admin may decide.
func (s *Memberships) DecideJoin(ctx context.Context, actor *models.User, requestID string, d Decision, reason string) (*models.Membership, error) {
	m, err := s.db.GetMembership(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdmin && !actor.IsOfficerOf(m.OrganizationID) {
		return nil, fmt.Errorf("decide join request %s: %w", requestID, models.ErrForbidden)
	}
	next, stored, err := TransitionMember(m.Status, d, reason)
	if err != nil {
		return nil, err
	}
	decidedAt := s.now().UTC()
	if err := s.db.UpdateMembershipStatus(ctx, requestID, models.MemberPending, next, stored, actor.ID, decidedAt); err != nil {
		return nil, casError(err)
	}
	m.Status, m.RejectionReason, m.SeenByUser = next, stored, false
	m.DecidedAt, m.DecidedBy = &decidedAt, actor.ID

	if next == models.MemberApproved {
		if err := s.attachMember(ctx, m); err != nil {
			return nil, err
		}
	}

	publish(ctx, s.publisher, s.logger, events.DecisionType("membership", string(next)), m.OrganizationID, events.Decision{
		RequestID:      m.ID,
		OrganizationID: m.OrganizationID,
		SubjectUID:     m.UserID,
		Status:         string(next),
		Reason:         stored,
		DecidedBy:      actor.ID,
	})
	return m, nil
}

// attachMember records the organization on a plain member who has none yet.
func (s *Memberships) attachMember(ctx context.Context, m *models.Membership) error {
	user, err := s.db.GetUserByID(ctx, m.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		return err
	}
	if user.Role != models.RoleMember || user.OrganizationID != "" {
		return nil
	}
	user.OrganizationID = m.OrganizationID
	user.MemberID = m.ID
	user.Password = ""
	if err := s.db.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("attach member %s: %w", user.ID, err)
	}
	return nil
}

// MarkAllAsSeen flags every decided, unseen request of uid as seen and returns how many changed.
func (s *Memberships) MarkAllAsSeen(ctx context.Context, uid string) (int, error) {
	return s.db.MarkMembershipsSeen(ctx, uid)
}

// ApplicationStatus lists uid's join requests for the application status page.
func (s *Memberships) ApplicationStatus(ctx context.Context, uid string) ([]models.ApplicationView, error) {
	requests, err := s.db.ListMemberships(ctx, models.MembershipFilter{UserID: uid})
	if err != nil {
		return nil, err
	}
	orgs := map[string]*models.Organization{}
	views := make([]models.ApplicationView, 0, len(requests))
	for _, r := range requests {
		org, ok := orgs[r.OrganizationID]
		if !ok {
			org, err = s.db.GetOrganization(ctx, r.OrganizationID)
			if err != nil && !errors.Is(err, models.ErrNotFound) {
				return nil, err
			}
			orgs[r.OrganizationID] = org
		}
		v := models.ApplicationView{
			RequestID:      r.ID,
			OrganizationID: r.OrganizationID,
			Status:         r.Status,
			Label:          r.Status.Label(),
			SeenByUser:     r.SeenByUser,
		}
		if org != nil {
			v.OrganizationName, v.OrganizationLogo = org.Name, org.Photo
		}
		if r.Status == models.MemberRejected {
			v.RejectionReason = r.RejectionReason
		}
		views = append(views, v)
	}
	return views, nil
}

// MarkAcceptanceSeen sets hasSeenAcceptance on the officer's own organization.
func (s *Memberships) MarkAcceptanceSeen(ctx context.Context, actor *models.User, orgID string) error {
	if !actor.IsOfficerOf(orgID) {
		return fmt.Errorf("acceptance seen for %s: %w", orgID, models.ErrForbidden)
	}
	return s.db.MarkOrganizationAcceptanceSeen(ctx, orgID)
}
