package database

import (
	"context"
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"oms-backend/pkg/models"
)

func TestMongoDatabase(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("get organization", func(mt *mtest.T) {
		db := NewMongoDatabaseFromDB(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(1, "oms.Organizations", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "org-1"},
			{Key: "name", Value: "Robotics Club"},
			{Key: "ownerUid", Value: "owner-1"},
			{Key: "status", Value: "accepted"},
			{Key: "tags", Value: bson.A{"stem"}},
		}))

		org, err := db.GetOrganization(ctx, "org-1")
		if err != nil {
			mt.Fatalf("get: %v", err)
		}
		if org.Name != "Robotics Club" || org.OwnerID != "owner-1" || org.Status != models.OrganizationAccepted {
			mt.Fatalf("unexpected organization: %+v", org)
		}
	})

	mt.Run("missing organization", func(mt *mtest.T) {
		db := NewMongoDatabaseFromDB(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "oms.Organizations", mtest.FirstBatch))

		if _, err := db.GetOrganization(ctx, "nope"); !errors.Is(err, models.ErrNotFound) {
			mt.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	mt.Run("status update applies", func(mt *mtest.T) {
		db := NewMongoDatabaseFromDB(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		if err := db.UpdateOrganizationStatus(ctx, "org-1", models.OrganizationPending, models.OrganizationAccepted, ""); err != nil {
			mt.Fatalf("update: %v", err)
		}
	})

	mt.Run("stale status update conflicts", func(mt *mtest.T) {
		db := NewMongoDatabaseFromDB(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateCursorResponse(1, "oms.Organizations", mtest.FirstBatch, bson.D{{Key: "n", Value: int32(1)}}),
		)

		err := db.UpdateOrganizationStatus(ctx, "org-1", models.OrganizationPending, models.OrganizationRejected, "late")
		if !errors.Is(err, models.ErrConflict) {
			mt.Fatalf("expected ErrConflict, got %v", err)
		}
	})

	mt.Run("duplicate email", func(mt *mtest.T) {
		db := NewMongoDatabaseFromDB(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error",
		}))

		err := db.CreateUser(ctx, &models.User{Email: "Taken@Example.com", Role: models.RoleMember})
		if !errors.Is(err, models.ErrConflict) {
			mt.Fatalf("expected ErrConflict, got %v", err)
		}
	})

	mt.Run("join request already exists", func(mt *mtest.T) {
		db := NewMongoDatabaseFromDB(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error",
		}))

		m := &models.Membership{UserID: "u-1", OrganizationID: "org-1", Status: models.MemberPending}
		created, err := db.CreateMembership(ctx, m)
		if err != nil || created {
			mt.Fatalf("duplicate join request should be a no-op: created=%v err=%v", created, err)
		}
		if m.ID != models.JoinRequestID("u-1", "org-1") {
			mt.Fatalf("unexpected request id %q", m.ID)
		}
	})
}
