package database

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"oms-backend/pkg/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection names, kept identical to the document store the web client used.
const (
	CollUsers         = "Users"
	CollOrganizations = "Organizations"
	CollMembers       = "Members"
	CollEvents        = "events"
	CollTasks         = "tasks"
	CollComments      = "comments"
	CollNotifications = "notifications"
	CollAuditLogs     = "auditLogs"
)

// MongoDatabase MongoDB 文档存储实现
type MongoDatabase struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoDatabase 连接 MongoDB 并确保索引存在
func NewMongoDatabase(ctx context.Context, uri, dbName string) (*MongoDatabase, error) {
	if dbName == "" {
		dbName = "oms"
	}
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	store := &MongoDatabase{client: client, db: client.Database(dbName)}
	if err := store.EnsureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return store, nil
}

// NewMongoDatabaseFromDB wraps an existing handle; Close does not disconnect it.
func NewMongoDatabaseFromDB(db *mongo.Database) *MongoDatabase {
	return &MongoDatabase{db: db}
}

// EnsureIndexes creates the unique email index and the lookup indexes used by listings.
func (m *MongoDatabase) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		CollUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		CollOrganizations: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "name", Value: 1}}},
		},
		CollMembers: {
			{Keys: bson.D{{Key: "uid", Value: 1}}},
			{Keys: bson.D{{Key: "organizationId", Value: 1}, {Key: "status", Value: 1}}},
		},
		CollEvents: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "eventDate", Value: 1}}},
			{Keys: bson.D{{Key: "organizationId", Value: 1}}},
		},
		CollTasks: {
			{Keys: bson.D{{Key: "organizationId", Value: 1}}},
			{Keys: bson.D{{Key: "assignedMembers", Value: 1}}},
		},
		CollComments: {
			{Keys: bson.D{{Key: "eventId", Value: 1}, {Key: "timestamp", Value: 1}}},
		},
		CollNotifications: {
			{Keys: bson.D{{Key: "recipientUid", Value: 1}, {Key: "timestamp", Value: -1}}},
		},
		CollAuditLogs: {
			{Keys: bson.D{{Key: "timestamp", Value: -1}}},
		},
	}
	for coll, specs := range indexes {
		if _, err := m.db.Collection(coll).Indexes().CreateMany(ctx, specs); err != nil {
			return fmt.Errorf("create %s indexes: %w", coll, err)
		}
	}
	return nil
}

func (m *MongoDatabase) coll(name string) *mongo.Collection {
	return m.db.Collection(name)
}

func notFound(kind, id string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s %s: %w", kind, id, models.ErrNotFound)
	}
	return fmt.Errorf("get %s %s: %w", kind, id, err)
}

func findOne[T any](ctx context.Context, c *mongo.Collection, kind, id string) (*T, error) {
	var out T
	if err := c.FindOne(ctx, bson.M{"_id": id}).Decode(&out); err != nil {
		return nil, notFound(kind, id, err)
	}
	return &out, nil
}

func findAll[T any](ctx context.Context, c *mongo.Collection, filter bson.M, opts ...*options.FindOptions) ([]T, error) {
	cursor, err := c.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	out := []T{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// casResult turns an UpdateOne on {_id, status: from} into not-found vs conflict.
func (m *MongoDatabase) casResult(ctx context.Context, c *mongo.Collection, kind, id string, res *mongo.UpdateResult) error {
	if res.MatchedCount > 0 {
		return nil
	}
	n, err := c.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("count %s %s: %w", kind, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, models.ErrNotFound)
	}
	return fmt.Errorf("%s %s status changed: %w", kind, id, models.ErrConflict)
}

func matched(kind, id string, res *mongo.UpdateResult, err error) error {
	if err != nil {
		return fmt.Errorf("update %s %s: %w", kind, id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, models.ErrNotFound)
	}
	return nil
}

func engagementField(kind models.EngagementKind, userSide bool) string {
	switch {
	case kind == models.EngagementLike && userSide:
		return "likedEvents"
	case userSide:
		return "interestedEvents"
	case kind == models.EngagementLike:
		return "likes"
	default:
		return "interested"
	}
}

func setOp(add bool) string {
	if add {
		return "$addToSet"
	}
	return "$pull"
}

// ---- users ----

func (m *MongoDatabase) CreateUser(ctx context.Context, user *models.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	user.LikedEvents = cloneStrings(user.LikedEvents)
	user.InterestedEvents = cloneStrings(user.InterestedEvents)

	if _, err := m.coll(CollUsers).InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("user %s: %w", user.Email, models.ErrConflict)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (m *MongoDatabase) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var user models.User
	if err := m.coll(CollUsers).FindOne(ctx, bson.M{"email": email}).Decode(&user); err != nil {
		return nil, notFound("user", email, err)
	}
	return &user, nil
}

func (m *MongoDatabase) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return findOne[models.User](ctx, m.coll(CollUsers), "user", id)
}

func (m *MongoDatabase) UpdateUser(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	set := bson.M{
		"name":           user.Name,
		"photo":          user.Photo,
		"role":           user.Role,
		"organizationId": user.OrganizationID,
		"memberId":       user.MemberID,
		"updatedAt":      user.UpdatedAt,
	}
	if user.Password != "" {
		set["passwordHash"] = user.Password
	}
	res, err := m.coll(CollUsers).UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{"$set": set})
	return matched("user", user.ID, res, err)
}

func (m *MongoDatabase) SetUserEngagement(ctx context.Context, uid, eventID string, kind models.EngagementKind, add bool) error {
	update := bson.M{setOp(add): bson.M{engagementField(kind, true): eventID}}
	res, err := m.coll(CollUsers).UpdateOne(ctx, bson.M{"_id": uid}, update)
	return matched("user", uid, res, err)
}

// ---- organizations ----

func (m *MongoDatabase) CreateOrganization(ctx context.Context, org *models.Organization) error {
	if org.ID == "" {
		org.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	org.CreatedAt, org.UpdatedAt = now, now
	org.Tags = cloneStrings(org.Tags)
	if _, err := m.coll(CollOrganizations).InsertOne(ctx, org); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("organization %s: %w", org.ID, models.ErrConflict)
		}
		return fmt.Errorf("insert organization: %w", err)
	}
	return nil
}

func (m *MongoDatabase) GetOrganization(ctx context.Context, id string) (*models.Organization, error) {
	return findOne[models.Organization](ctx, m.coll(CollOrganizations), "organization", id)
}

func (m *MongoDatabase) ListOrganizations(ctx context.Context, filter models.OrganizationFilter) ([]models.Organization, error) {
	q := bson.M{}
	if filter.Status != "" {
		q["status"] = filter.Status
	}
	if filter.Tag != "" {
		q["tags"] = strings.ToLower(filter.Tag)
	}
	if s := strings.TrimSpace(filter.Query); s != "" {
		q["name"] = bson.M{"$regex": regexp.QuoteMeta(s), "$options": "i"}
	}
	orgs, err := findAll[models.Organization](ctx, m.coll(CollOrganizations), q, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	return orgs, nil
}

func (m *MongoDatabase) UpdateOrganizationProfile(ctx context.Context, org *models.Organization) error {
	res, err := m.coll(CollOrganizations).UpdateOne(ctx, bson.M{"_id": org.ID}, bson.M{"$set": bson.M{
		"name":        org.Name,
		"description": org.Description,
		"photo":       org.Photo,
		"tags":        cloneStrings(org.Tags),
		"updatedAt":   time.Now().UTC(),
	}})
	return matched("organization", org.ID, res, err)
}

func (m *MongoDatabase) UpdateOrganizationStatus(ctx context.Context, id string, from, to models.OrganizationStatus, reason string) error {
	c := m.coll(CollOrganizations)
	res, err := c.UpdateOne(ctx, bson.M{"_id": id, "status": from}, bson.M{"$set": bson.M{
		"status":          to,
		"rejectionReason": reason,
		"updatedAt":       time.Now().UTC(),
	}})
	if err != nil {
		return fmt.Errorf("update organization status: %w", err)
	}
	return m.casResult(ctx, c, "organization", id, res)
}

func (m *MongoDatabase) MarkOrganizationAcceptanceSeen(ctx context.Context, id string) error {
	res, err := m.coll(CollOrganizations).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"hasSeenAcceptance": true}})
	return matched("organization", id, res, err)
}

// ---- join requests ----

func (m *MongoDatabase) CreateMembership(ctx context.Context, mem *models.Membership) (bool, error) {
	if mem.ID == "" {
		mem.ID = models.JoinRequestID(mem.UserID, mem.OrganizationID)
	}
	if mem.CreatedAt.IsZero() {
		mem.CreatedAt = time.Now().UTC()
	}
	if _, err := m.coll(CollMembers).InsertOne(ctx, mem); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert join request: %w", err)
	}
	return true, nil
}

func (m *MongoDatabase) GetMembership(ctx context.Context, id string) (*models.Membership, error) {
	return findOne[models.Membership](ctx, m.coll(CollMembers), "join request", id)
}

func (m *MongoDatabase) ListMemberships(ctx context.Context, filter models.MembershipFilter) ([]models.Membership, error) {
	q := bson.M{}
	if filter.UserID != "" {
		q["uid"] = filter.UserID
	}
	if filter.OrganizationID != "" {
		q["organizationId"] = filter.OrganizationID
	}
	if len(filter.Statuses) > 0 {
		q["status"] = bson.M{"$in": filter.Statuses}
	}
	out, err := findAll[models.Membership](ctx, m.coll(CollMembers), q, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list join requests: %w", err)
	}
	return out, nil
}

func (m *MongoDatabase) UpdateMembershipStatus(ctx context.Context, id string, from, to models.MemberStatus, reason, decidedBy string, decidedAt time.Time) error {
	c := m.coll(CollMembers)
	res, err := c.UpdateOne(ctx, bson.M{"_id": id, "status": from}, bson.M{"$set": bson.M{
		"status":          to,
		"rejectionReason": reason,
		"decidedBy":       decidedBy,
		"decidedAt":       decidedAt,
		"seenByUser":      false,
	}})
	if err != nil {
		return fmt.Errorf("update join request status: %w", err)
	}
	return m.casResult(ctx, c, "join request", id, res)
}

func (m *MongoDatabase) MarkMembershipsSeen(ctx context.Context, uid string) (int, error) {
	res, err := m.coll(CollMembers).UpdateMany(ctx, bson.M{
		"uid":        uid,
		"status":     bson.M{"$in": []models.MemberStatus{models.MemberApproved, models.MemberRejected}},
		"seenByUser": false,
	}, bson.M{"$set": bson.M{"seenByUser": true}})
	if err != nil {
		return 0, fmt.Errorf("mark join requests seen: %w", err)
	}
	return int(res.ModifiedCount), nil
}

// ---- events ----

func (m *MongoDatabase) CreateEvent(ctx context.Context, event *models.Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	event.CreatedAt, event.UpdatedAt = now, now
	*event = cloneEvent(*event)
	if _, err := m.coll(CollEvents).InsertOne(ctx, event); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (m *MongoDatabase) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	return findOne[models.Event](ctx, m.coll(CollEvents), "event", id)
}

func (m *MongoDatabase) ListEvents(ctx context.Context, filter models.EventFilter) ([]models.Event, error) {
	q := bson.M{}
	if filter.Status != "" {
		q["status"] = filter.Status
	}
	if filter.OrganizationID != "" {
		q["organizationId"] = filter.OrganizationID
	}
	if filter.Tag != "" {
		q["tags"] = strings.ToLower(filter.Tag)
	}
	if filter.IDs != nil {
		q["_id"] = bson.M{"$in": filter.IDs}
	}
	out, err := findAll[models.Event](ctx, m.coll(CollEvents), q, options.Find().SetSort(bson.D{{Key: "eventDate", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return out, nil
}

func (m *MongoDatabase) UpdateEvent(ctx context.Context, event *models.Event) error {
	res, err := m.coll(CollEvents).UpdateOne(ctx, bson.M{"_id": event.ID}, bson.M{"$set": bson.M{
		"eventName":        event.Name,
		"eventDescription": event.Description,
		"eventDate":        event.Date,
		"eventLocation":    event.Location,
		"eventPrice":       event.Price,
		"eventImages":      cloneStrings(event.Images),
		"tags":             cloneStrings(event.Tags),
		"updatedAt":        time.Now().UTC(),
	}})
	return matched("event", event.ID, res, err)
}

func (m *MongoDatabase) UpdateEventStatus(ctx context.Context, id string, from, to models.EventStatus, reason string) error {
	c := m.coll(CollEvents)
	res, err := c.UpdateOne(ctx, bson.M{"_id": id, "status": from}, bson.M{"$set": bson.M{
		"status":          to,
		"rejectionReason": reason,
		"updatedAt":       time.Now().UTC(),
	}})
	if err != nil {
		return fmt.Errorf("update event status: %w", err)
	}
	return m.casResult(ctx, c, "event", id, res)
}

func (m *MongoDatabase) SetEventEngagement(ctx context.Context, eventID, uid string, kind models.EngagementKind, add bool) error {
	update := bson.M{setOp(add): bson.M{engagementField(kind, false): uid}}
	res, err := m.coll(CollEvents).UpdateOne(ctx, bson.M{"_id": eventID}, update)
	return matched("event", eventID, res, err)
}

func (m *MongoDatabase) DeleteEvent(ctx context.Context, id string) error {
	res, err := m.coll(CollEvents).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("event %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// ---- tasks ----

func (m *MongoDatabase) CreateTask(ctx context.Context, task *models.Task) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}
	task.AssignedMembers = cloneStrings(task.AssignedMembers)
	if _, err := m.coll(CollTasks).InsertOne(ctx, task); err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (m *MongoDatabase) GetTask(ctx context.Context, id string) (*models.Task, error) {
	return findOne[models.Task](ctx, m.coll(CollTasks), "task", id)
}

func (m *MongoDatabase) ListTasks(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	q := bson.M{}
	if filter.OrganizationID != "" {
		q["organizationId"] = filter.OrganizationID
	}
	if filter.AssignedTo != "" {
		q["assignedMembers"] = filter.AssignedTo
	}
	out, err := findAll[models.Task](ctx, m.coll(CollTasks), q, options.Find().SetSort(bson.D{{Key: "dueDate", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return out, nil
}

func (m *MongoDatabase) UpdateTask(ctx context.Context, task *models.Task) error {
	res, err := m.coll(CollTasks).UpdateOne(ctx, bson.M{"_id": task.ID}, bson.M{"$set": bson.M{
		"taskName":        task.Name,
		"description":     task.Description,
		"dueDate":         task.DueDate,
		"priority":        task.Priority,
		"assignedMembers": cloneStrings(task.AssignedMembers),
	}})
	return matched("task", task.ID, res, err)
}

func (m *MongoDatabase) SetTaskCompleted(ctx context.Context, id string, completed bool, at *time.Time) error {
	update := bson.M{"$set": bson.M{"completed": completed, "completedAt": at}}
	if at == nil {
		update = bson.M{"$set": bson.M{"completed": completed}, "$unset": bson.M{"completedAt": ""}}
	}
	res, err := m.coll(CollTasks).UpdateOne(ctx, bson.M{"_id": id}, update)
	return matched("task", id, res, err)
}

func (m *MongoDatabase) DeleteTask(ctx context.Context, id string) error {
	res, err := m.coll(CollTasks).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("task %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// ---- comments ----

func (m *MongoDatabase) CreateComment(ctx context.Context, c *models.Comment) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Timestamp.IsZero() {
		c.Timestamp = time.Now().UTC()
	}
	if c.Replies == nil {
		c.Replies = []models.Reply{}
	}
	if _, err := m.coll(CollComments).InsertOne(ctx, c); err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

func (m *MongoDatabase) GetComment(ctx context.Context, id string) (*models.Comment, error) {
	return findOne[models.Comment](ctx, m.coll(CollComments), "comment", id)
}

func (m *MongoDatabase) ListComments(ctx context.Context, eventID string) ([]models.Comment, error) {
	out, err := findAll[models.Comment](ctx, m.coll(CollComments), bson.M{"eventId": eventID}, options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return out, nil
}

func (m *MongoDatabase) AddReply(ctx context.Context, commentID string, reply models.Reply) error {
	res, err := m.coll(CollComments).UpdateOne(ctx, bson.M{"_id": commentID}, bson.M{"$push": bson.M{"replies": reply}})
	return matched("comment", commentID, res, err)
}

// ---- notifications ----

func (m *MongoDatabase) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now().UTC()
	}
	if _, err := m.coll(CollNotifications).InsertOne(ctx, n); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (m *MongoDatabase) ListNotifications(ctx context.Context, uid string, unreadOnly bool) ([]models.Notification, error) {
	q := bson.M{"recipientUid": uid}
	if unreadOnly {
		q["read"] = false
	}
	out, err := findAll[models.Notification](ctx, m.coll(CollNotifications), q, options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return out, nil
}

func (m *MongoDatabase) MarkNotificationRead(ctx context.Context, uid, id string) error {
	res, err := m.coll(CollNotifications).UpdateOne(ctx, bson.M{"_id": id, "recipientUid": uid}, bson.M{"$set": bson.M{"read": true}})
	return matched("notification", id, res, err)
}

func (m *MongoDatabase) MarkAllNotificationsRead(ctx context.Context, uid string) (int, error) {
	res, err := m.coll(CollNotifications).UpdateMany(ctx, bson.M{"recipientUid": uid, "read": false}, bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}
	return int(res.ModifiedCount), nil
}

func (m *MongoDatabase) DeleteNotification(ctx context.Context, uid, id string) error {
	res, err := m.coll(CollNotifications).DeleteOne(ctx, bson.M{"_id": id, "recipientUid": uid})
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("notification %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// ---- audit logs ----

func (m *MongoDatabase) AppendAuditLog(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if _, err := m.coll(CollAuditLogs).InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

func (m *MongoDatabase) ListAuditLogs(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, error) {
	q := bson.M{}
	if filter.RequestType != "" {
		q["requestType"] = filter.RequestType
	}
	if filter.RequestID != "" {
		q["requestId"] = filter.RequestID
	}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	out, err := findAll[models.AuditLog](ctx, m.coll(CollAuditLogs), q, opts)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return out, nil
}

func (m *MongoDatabase) HealthCheck(ctx context.Context) error {
	return m.db.Client().Ping(ctx, readpref.Primary())
}

func (m *MongoDatabase) Close() error {
	if m.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
