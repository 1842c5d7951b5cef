package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"oms-backend/pkg/cache"
	"oms-backend/pkg/database"
	"oms-backend/pkg/events"
	"oms-backend/pkg/models"
)

func newModeratorFixture(t *testing.T) (*Moderator, *database.LocalDatabase, *recordingPublisher, *cache.MemoryCache) {
	t.Helper()
	db := database.NewMemoryDatabase()
	pub := &recordingPublisher{}
	c := cache.NewMemoryCache()
	m := NewModerator(db, pub, c, discardLogger())
	m.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return m, db, pub, c
}

func TestDecideOrganizationAccept(t *testing.T) {
	t.Parallel()

	m, db, pub, c := newModeratorFixture(t)
	ctx := context.Background()
	seedOrg(t, db, "org-1", "owner-1", models.OrganizationPending)
	if err := c.Set(ctx, cache.KeyOrganizationDirectory, "[]", time.Minute); err != nil {
		t.Fatalf("prime cache: %v", err)
	}

	org, err := m.DecideOrganization(ctx, "org-1", DecisionAccept, "", "admin-1")
	if err != nil {
		t.Fatalf("decide failed: %v", err)
	}
	if org.Status != models.OrganizationAccepted {
		t.Fatalf("expected accepted, got %q", org.Status)
	}

	stored, _ := db.GetOrganization(ctx, "org-1")
	if stored.Status != models.OrganizationAccepted {
		t.Fatalf("stored status = %q", stored.Status)
	}
	if _, err := c.Get(ctx, cache.KeyOrganizationDirectory); !errors.Is(err, cache.ErrMiss) {
		t.Fatalf("directory cache should be invalidated, got %v", err)
	}

	logs, err := db.ListAuditLogs(ctx, models.AuditFilter{RequestID: "org-1"})
	if err != nil {
		t.Fatalf("list audit logs: %v", err)
	}
	if len(logs) != 1 || logs[0].Action != "accepted" || logs[0].AdminID != "admin-1" || logs[0].RequestType != models.RequestOrganization {
		t.Fatalf("unexpected audit logs: %+v", logs)
	}

	if got := pub.types(); len(got) != 1 || got[0] != events.TypeOrganizationAccepted {
		t.Fatalf("published %v", got)
	}
	if d := pub.decision(t, 0); d.SubjectUID != "owner-1" || d.DecidedBy != "admin-1" {
		t.Fatalf("unexpected decision payload: %+v", d)
	}
}

func TestDecideOrganizationTwiceConflicts(t *testing.T) {
	t.Parallel()

	m, db, pub, _ := newModeratorFixture(t)
	ctx := context.Background()
	seedOrg(t, db, "org-1", "owner-1", models.OrganizationPending)

	if _, err := m.DecideOrganization(ctx, "org-1", DecisionReject, "missing charter", "admin-1"); err != nil {
		t.Fatalf("first decision failed: %v", err)
	}
	if _, err := m.DecideOrganization(ctx, "org-1", DecisionAccept, "", "admin-2"); !errors.Is(err, ErrAlreadyDecided) {
		t.Fatalf("expected ErrAlreadyDecided, got %v", err)
	}

	stored, _ := db.GetOrganization(ctx, "org-1")
	if stored.Status != models.OrganizationRejected || stored.RejectionReason != "missing charter" {
		t.Fatalf("second decision must not change the record: %+v", stored)
	}
	logs, _ := db.ListAuditLogs(ctx, models.AuditFilter{RequestID: "org-1"})
	if len(logs) != 1 {
		t.Fatalf("expected one audit entry, got %d", len(logs))
	}
	if len(pub.types()) != 1 {
		t.Fatalf("expected one published event, got %v", pub.types())
	}
}

func TestDecideEventRejectRequiresReason(t *testing.T) {
	t.Parallel()

	m, db, pub, _ := newModeratorFixture(t)
	ctx := context.Background()
	seedEvent(t, db, "ev-1", "org-1", models.EventPending)

	if _, err := m.DecideEvent(ctx, "ev-1", DecisionReject, " ", "admin-1"); !errors.Is(err, ErrReasonRequired) {
		t.Fatalf("expected ErrReasonRequired, got %v", err)
	}
	stored, _ := db.GetEvent(ctx, "ev-1")
	if stored.Status != models.EventPending {
		t.Fatalf("event should stay pending, got %q", stored.Status)
	}
	if len(pub.types()) != 0 {
		t.Fatalf("nothing should be published, got %v", pub.types())
	}
}

func TestDecideEventMissing(t *testing.T) {
	t.Parallel()

	m, _, _, _ := newModeratorFixture(t)
	if _, err := m.DecideEvent(context.Background(), "nope", DecisionAccept, "", "admin-1"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDecisionSurvivesPublishFailure(t *testing.T) {
	t.Parallel()

	m, db, pub, _ := newModeratorFixture(t)
	pub.err = errors.New("broker down")
	ctx := context.Background()
	seedEvent(t, db, "ev-1", "org-1", models.EventPending)

	ev, err := m.DecideEvent(ctx, "ev-1", DecisionAccept, "", "admin-1")
	if err != nil {
		t.Fatalf("publish failure must not fail the decision: %v", err)
	}
	if ev.Status != models.EventAccepted {
		t.Fatalf("expected accepted, got %q", ev.Status)
	}
}

func TestBulkDecideContinuesPastFailures(t *testing.T) {
	t.Parallel()

	m, db, pub, _ := newModeratorFixture(t)
	ctx := context.Background()
	seedEvent(t, db, "ev-1", "org-1", models.EventPending)
	seedEvent(t, db, "ev-2", "org-1", models.EventAccepted)
	seedEvent(t, db, "ev-3", "org-1", models.EventPending)

	summary, err := m.BulkDecide(ctx, models.RequestEvent, []string{"ev-1", "ev-2", "missing", "ev-3"}, DecisionAccept, "", "admin-1")
	if err != nil {
		t.Fatalf("bulk failed: %v", err)
	}
	if summary.Succeeded != 2 || summary.Failed != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	codes := map[string]string{}
	for _, r := range summary.Results {
		codes[r.ID] = r.Code
	}
	if codes["ev-2"] != "ALREADY_DECIDED" || codes["missing"] != "NOT_FOUND" || codes["ev-1"] != "" {
		t.Fatalf("unexpected result codes: %+v", codes)
	}
	for _, id := range []string{"ev-1", "ev-3"} {
		ev, _ := db.GetEvent(ctx, id)
		if ev.Status != models.EventAccepted {
			t.Fatalf("%s should be accepted, got %q", id, ev.Status)
		}
	}
	if len(pub.types()) != 2 {
		t.Fatalf("expected two events, got %v", pub.types())
	}

	logs, err := db.ListAuditLogs(ctx, models.AuditFilter{RequestType: models.RequestEvent})
	if err != nil {
		t.Fatalf("list audit logs: %v", err)
	}
	if len(logs) != summary.Succeeded {
		t.Fatalf("expected one audit entry per applied decision, got %d: %+v", len(logs), logs)
	}
	audited := map[string]int{}
	for _, l := range logs {
		audited[l.RequestID]++
		if l.Action != "accepted" || l.AdminID != "admin-1" {
			t.Fatalf("unexpected audit entry: %+v", l)
		}
	}
	if audited["ev-1"] != 1 || audited["ev-3"] != 1 || audited["ev-2"] != 0 || audited["missing"] != 0 {
		t.Fatalf("audit entries by request: %v", audited)
	}
}

func TestBulkDecideRejectsUnknownKind(t *testing.T) {
	t.Parallel()

	m, _, _, _ := newModeratorFixture(t)
	if _, err := m.BulkDecide(context.Background(), models.RequestType("task"), []string{"x"}, DecisionAccept, "", "admin"); !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestContentEditDoesNotOverwriteDecision(t *testing.T) {
	t.Parallel()

	m, db, _, _ := newModeratorFixture(t)
	ctx := context.Background()
	seedEvent(t, db, "ev-1", "org-1", models.EventPending)

	// the officer loaded the event before the admin decided it
	stale, err := db.GetEvent(ctx, "ev-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := m.DecideEvent(ctx, "ev-1", DecisionAccept, "", "admin-1"); err != nil {
		t.Fatalf("decide: %v", err)
	}
	stale.Name = "Renamed"
	if err := db.UpdateEvent(ctx, stale); err != nil {
		t.Fatalf("update: %v", err)
	}

	ev, err := db.GetEvent(ctx, "ev-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ev.Status != models.EventAccepted || ev.Name != "Renamed" {
		t.Fatalf("content edit must keep the decision: status=%q name=%q", ev.Status, ev.Name)
	}
	logs, _ := db.ListAuditLogs(ctx, models.AuditFilter{RequestID: "ev-1"})
	if len(logs) != 1 || logs[0].Action != string(ev.Status) {
		t.Fatalf("audit log and stored status disagree: %+v vs %q", logs, ev.Status)
	}
}
