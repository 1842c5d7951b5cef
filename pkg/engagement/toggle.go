// Package engagement implements the like and interest toggles on events.
package engagement

import (
	"context"
	"fmt"

	"oms-backend/pkg/models"
)

// Store is the subset of the database a toggle touches.
type Store interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	SetUserEngagement(ctx context.Context, uid, eventID string, kind models.EngagementKind, add bool) error
	SetEventEngagement(ctx context.Context, eventID, uid string, kind models.EngagementKind, add bool) error
}

// Toggle flips uid's like or interest on an accepted event. The user's current state decides
// between add and remove. The user and event documents are updated independently, user first.
func Toggle(ctx context.Context, store Store, eventID, uid string, kind models.EngagementKind) (models.EngagementState, error) {
	if !kind.Valid() {
		return models.EngagementState{}, fmt.Errorf("engagement kind %q: %w", kind, models.ErrInvalidInput)
	}
	ev, err := store.GetEvent(ctx, eventID)
	if err != nil {
		return models.EngagementState{}, err
	}
	if ev.Status != models.EventAccepted {
		return models.EngagementState{}, fmt.Errorf("event %s: %w", eventID, models.ErrNotFound)
	}
	user, err := store.GetUserByID(ctx, uid)
	if err != nil {
		return models.EngagementState{}, err
	}

	add := !user.HasEngagement(kind, eventID)
	if err := store.SetUserEngagement(ctx, uid, eventID, kind, add); err != nil {
		return models.EngagementState{}, fmt.Errorf("update user %s: %w", uid, err)
	}
	if err := store.SetEventEngagement(ctx, eventID, uid, kind, add); err != nil {
		return models.EngagementState{}, fmt.Errorf("update event %s: %w", eventID, err)
	}

	ev, err = store.GetEvent(ctx, eventID)
	if err != nil {
		return models.EngagementState{}, err
	}
	return models.EngagementState{
		EventID:         eventID,
		Kind:            kind,
		Active:          add,
		LikeCount:       len(ev.Likes),
		InterestedCount: len(ev.Interested),
	}, nil
}
