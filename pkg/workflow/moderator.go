package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"oms-backend/pkg/cache"
	"oms-backend/pkg/database"
	"oms-backend/pkg/events"
	"oms-backend/pkg/models"
)

// Moderator applies admin decisions to organization applications and event submissions.
type Moderator struct {
	db        database.DatabaseInterface
	publisher events.Publisher
	cache     cache.Cache
	logger    *slog.Logger
	now       func() time.Time
}

func NewModerator(db database.DatabaseInterface, publisher events.Publisher, c cache.Cache, logger *slog.Logger) *Moderator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Moderator{db: db, publisher: publisher, cache: c, logger: logger, now: time.Now}
}

// DecideOrganization moves a pending organization to accepted or rejected and records the decision.
func (m *Moderator) DecideOrganization(ctx context.Context, id string, d Decision, reason, adminID string) (*models.Organization, error) {
	org, err := m.db.GetOrganization(ctx, id)
	if err != nil {
		return nil, err
	}
	next, stored, err := TransitionOrganization(org.Status, d, reason)
	if err != nil {
		return nil, err
	}
	if err := m.db.UpdateOrganizationStatus(ctx, id, models.OrganizationPending, next, stored); err != nil {
		return nil, casError(err)
	}
	if err := m.audit(ctx, id, models.RequestOrganization, string(next), adminID, stored); err != nil {
		return nil, err
	}

	org.Status, org.RejectionReason = next, stored
	m.invalidateDirectory(ctx)
	m.emit(ctx, events.DecisionType("organization", string(next)), id, events.Decision{
		RequestID:      id,
		OrganizationID: id,
		SubjectUID:     org.OwnerID,
		Name:           org.Name,
		Status:         string(next),
		Reason:         stored,
		DecidedBy:      adminID,
	})
	return org, nil
}

// DecideEvent moves a pending event to accepted or rejected and records the decision.
func (m *Moderator) DecideEvent(ctx context.Context, id string, d Decision, reason, adminID string) (*models.Event, error) {
	ev, err := m.db.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	next, stored, err := TransitionEvent(ev.Status, d, reason)
	if err != nil {
		return nil, err
	}
	if err := m.db.UpdateEventStatus(ctx, id, models.EventPending, next, stored); err != nil {
		return nil, casError(err)
	}
	if err := m.audit(ctx, id, models.RequestEvent, string(next), adminID, stored); err != nil {
		return nil, err
	}

	ev.Status, ev.RejectionReason = next, stored
	m.emit(ctx, events.DecisionType("event", string(next)), ev.OrganizationID, events.Decision{
		RequestID:      id,
		OrganizationID: ev.OrganizationID,
		SubjectUID:     ev.CreatedBy,
		Name:           ev.Name,
		Status:         string(next),
		Reason:         stored,
		DecidedBy:      adminID,
	})
	return ev, nil
}

// BulkResult reports the outcome for one id of a bulk decision.
type BulkResult struct {
	ID     string `json:"id"`
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
	Code   string `json:"code,omitempty"`
}

type BulkSummary struct {
	Results   []BulkResult `json:"results"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
}

// BulkDecide applies one decision to each id in order. Failures are recorded and skipped;
// earlier successes are never rolled back.
func (m *Moderator) BulkDecide(ctx context.Context, kind models.RequestType, ids []string, d Decision, reason, adminID string) (BulkSummary, error) {
	if kind != models.RequestOrganization && kind != models.RequestEvent {
		return BulkSummary{}, fmt.Errorf("request type %q: %w", kind, models.ErrInvalidInput)
	}
	summary := BulkSummary{Results: make([]BulkResult, 0, len(ids))}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		var status string
		var err error
		if kind == models.RequestOrganization {
			var org *models.Organization
			if org, err = m.DecideOrganization(ctx, id, d, reason, adminID); err == nil {
				status = string(org.Status)
			}
		} else {
			var ev *models.Event
			if ev, err = m.DecideEvent(ctx, id, d, reason, adminID); err == nil {
				status = string(ev.Status)
			}
		}
		if err != nil {
			summary.Failed++
			summary.Results = append(summary.Results, BulkResult{ID: id, Error: err.Error(), Code: ErrorCode(err)})
			continue
		}
		summary.Succeeded++
		summary.Results = append(summary.Results, BulkResult{ID: id, Status: status})
	}
	m.logger.InfoContext(ctx, "bulk decision applied",
		"module", "workflow.moderator",
		"operation", "bulk_decide",
		"request_type", kind,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
	)
	return summary, nil
}

func (m *Moderator) audit(ctx context.Context, id string, kind models.RequestType, action, adminID, reason string) error {
	entry := &models.AuditLog{
		RequestID:   id,
		RequestType: kind,
		Action:      action,
		AdminID:     adminID,
		Reason:      reason,
		Timestamp:   m.now().UTC(),
	}
	if err := m.db.AppendAuditLog(ctx, entry); err != nil {
		// the status is already committed; surface the gap loudly
		m.logger.ErrorContext(ctx, "audit log append failed after status update",
			"module", "workflow.moderator",
			"operation", "audit",
			"outcome", "failure",
			"request_id", id,
			"error", err,
		)
		return fmt.Errorf("append audit log: %w", err)
	}
	return nil
}

func (m *Moderator) invalidateDirectory(ctx context.Context) {
	if m.cache == nil {
		return
	}
	if err := m.cache.Delete(ctx, cache.KeyOrganizationDirectory); err != nil {
		m.logger.WarnContext(ctx, "directory cache invalidation failed", "module", "workflow.moderator", "error", err)
	}
}

func (m *Moderator) emit(ctx context.Context, eventType, key string, data any) {
	publish(ctx, m.publisher, m.logger, eventType, key, data)
}

// publish is best effort: the decision is already stored when it runs.
func publish(ctx context.Context, p events.Publisher, logger *slog.Logger, eventType, key string, data any) {
	if p == nil {
		return
	}
	if err := events.Emit(ctx, p, eventType, key, data); err != nil {
		logger.WarnContext(ctx, "domain event publish failed",
			"module", "workflow",
			"operation", "publish",
			"outcome", "failure",
			"event_type", eventType,
			"error", err,
		)
	}
}

// casError maps a lost compare-and-set to ErrAlreadyDecided.
func casError(err error) error {
	if errors.Is(err, models.ErrConflict) {
		return fmt.Errorf("%w: %v", ErrAlreadyDecided, err)
	}
	return err
}

// ErrorCode is the machine-readable code for workflow and store errors.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrAlreadyDecided):
		return "ALREADY_DECIDED"
	case errors.Is(err, ErrReasonRequired):
		return "REASON_REQUIRED"
	case errors.Is(err, ErrInvalidDecision):
		return "INVALID_DECISION"
	case errors.Is(err, models.ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, models.ErrForbidden):
		return "FORBIDDEN"
	case errors.Is(err, models.ErrConflict):
		return "CONFLICT"
	case errors.Is(err, models.ErrInvalidInput):
		return "INVALID_INPUT"
	}
	return "INTERNAL_ERROR"
}
