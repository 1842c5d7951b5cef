package engagement

import (
	"context"
	"errors"
	"testing"

	"oms-backend/pkg/database"
	"oms-backend/pkg/models"
)

func setup(t *testing.T, status models.EventStatus) (*database.LocalDatabase, string, string) {
	t.Helper()
	ctx := context.Background()
	db := database.NewMemoryDatabase()
	user := &models.User{Email: "fan@example.com", Role: models.RoleMember}
	if err := db.CreateUser(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	ev := &models.Event{ID: "ev-1", Name: "Launch", OrganizationID: "org-1", Status: status}
	if err := db.CreateEvent(ctx, ev); err != nil {
		t.Fatalf("create event: %v", err)
	}
	return db, user.ID, ev.ID
}

func TestToggleLikeTwiceRestoresState(t *testing.T) {
	t.Parallel()

	db, uid, eventID := setup(t, models.EventAccepted)
	ctx := context.Background()

	state, err := Toggle(ctx, db, eventID, uid, models.EngagementLike)
	if err != nil {
		t.Fatalf("first toggle: %v", err)
	}
	if !state.Active || state.LikeCount != 1 || state.InterestedCount != 0 {
		t.Fatalf("unexpected state after like: %+v", state)
	}
	user, _ := db.GetUserByID(ctx, uid)
	if !user.HasEngagement(models.EngagementLike, eventID) {
		t.Fatalf("user should list the liked event")
	}

	state, err = Toggle(ctx, db, eventID, uid, models.EngagementLike)
	if err != nil {
		t.Fatalf("second toggle: %v", err)
	}
	if state.Active || state.LikeCount != 0 {
		t.Fatalf("unexpected state after unlike: %+v", state)
	}
	user, _ = db.GetUserByID(ctx, uid)
	ev, _ := db.GetEvent(ctx, eventID)
	if user.HasEngagement(models.EngagementLike, eventID) || ev.HasEngagement(models.EngagementLike, uid) {
		t.Fatalf("like should be removed on both sides")
	}
}

func TestToggleKindsAreIndependent(t *testing.T) {
	t.Parallel()

	db, uid, eventID := setup(t, models.EventAccepted)
	ctx := context.Background()

	if _, err := Toggle(ctx, db, eventID, uid, models.EngagementLike); err != nil {
		t.Fatalf("like: %v", err)
	}
	state, err := Toggle(ctx, db, eventID, uid, models.EngagementInterest)
	if err != nil {
		t.Fatalf("interest: %v", err)
	}
	if !state.Active || state.LikeCount != 1 || state.InterestedCount != 1 {
		t.Fatalf("unexpected state: %+v", state)
	}
}

func TestToggleRejectsHiddenEvent(t *testing.T) {
	t.Parallel()

	db, uid, eventID := setup(t, models.EventPending)
	if _, err := Toggle(context.Background(), db, eventID, uid, models.EngagementLike); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestToggleRejectsUnknownKind(t *testing.T) {
	t.Parallel()

	db, uid, eventID := setup(t, models.EventAccepted)
	if _, err := Toggle(context.Background(), db, eventID, uid, models.EngagementKind("share")); !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
