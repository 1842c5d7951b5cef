package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"oms-backend/pkg/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgresDatabase PostgreSQL数据库实现
type PostgresDatabase struct {
	db *sql.DB
}

// NewPostgresDatabase 创建PostgreSQL数据库实例, 依次尝试多种连接参数
func NewPostgresDatabase(ctx context.Context, dsn string) (*PostgresDatabase, error) {
	dsn = strings.TrimSpace(dsn)
	strategies := []string{
		addConnectionParams(dsn, "connect_timeout=10"),
		addConnectionParams(dsn, "sslmode=require&connect_timeout=10"),
		dsn,
	}

	var lastErr error
	for i, strategy := range strategies {
		db, err := sql.Open("postgres", strategy)
		if err != nil {
			lastErr = err
			slog.Warn("postgres strategy failed to open", "module", "database.postgres", "strategy", i+1, "error", err)
			continue
		}

		// 连接池参数, 适合无服务器环境
		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(5 * time.Minute)

		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err = db.PingContext(pingCtx)
		cancel()
		if err != nil {
			lastErr = err
			slog.Warn("postgres strategy failed to ping", "module", "database.postgres", "strategy", i+1, "error", err)
			_ = db.Close()
			continue
		}

		slog.Info("postgres connection established", "module", "database.postgres", "strategy", i+1)
		return &PostgresDatabase{db: db}, nil
	}
	return nil, fmt.Errorf("connect postgres with all strategies: %w", lastErr)
}

// NewPostgresDatabaseFromDB wraps an open handle.
func NewPostgresDatabaseFromDB(db *sql.DB) *PostgresDatabase {
	return &PostgresDatabase{db: db}
}

// addConnectionParams 添加连接参数到DSN
func addConnectionParams(dsn, params string) string {
	if params == "" || strings.HasPrefix(dsn, "host=") || strings.Contains(dsn, " ") {
		return dsn
	}
	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}
	return dsn + separator + params
}

// Migrate applies Schema. Every statement is idempotent.
func (db *PostgresDatabase) Migrate(ctx context.Context) error {
	if _, err := db.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Schema is the relational layout of the OMS documents.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
    id                TEXT PRIMARY KEY,
    email             TEXT NOT NULL UNIQUE,
    password_hash     TEXT NOT NULL DEFAULT '',
    name              TEXT NOT NULL DEFAULT '',
    photo             TEXT NOT NULL DEFAULT '',
    provider          TEXT NOT NULL DEFAULT 'email',
    role              TEXT NOT NULL DEFAULT 'member',
    organization_id   TEXT NOT NULL DEFAULT '',
    member_id         TEXT NOT NULL DEFAULT '',
    liked_events      TEXT[] NOT NULL DEFAULT '{}',
    interested_events TEXT[] NOT NULL DEFAULT '{}',
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS organizations (
    id                  TEXT PRIMARY KEY,
    name                TEXT NOT NULL,
    description         TEXT NOT NULL DEFAULT '',
    photo               TEXT NOT NULL DEFAULT '',
    email               TEXT NOT NULL DEFAULT '',
    owner_id            TEXT NOT NULL,
    status              TEXT NOT NULL DEFAULT 'pending',
    tags                TEXT[] NOT NULL DEFAULT '{}',
    rejection_reason    TEXT NOT NULL DEFAULT '',
    has_seen_acceptance BOOLEAN NOT NULL DEFAULT FALSE,
    created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_organizations_status ON organizations(status);

CREATE TABLE IF NOT EXISTS memberships (
    id               TEXT PRIMARY KEY,
    user_id          TEXT NOT NULL,
    organization_id  TEXT NOT NULL,
    status           TEXT NOT NULL DEFAULT 'pending',
    seen_by_user     BOOLEAN NOT NULL DEFAULT FALSE,
    rejection_reason TEXT NOT NULL DEFAULT '',
    user_name        TEXT NOT NULL DEFAULT '',
    user_email       TEXT NOT NULL DEFAULT '',
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    decided_at       TIMESTAMPTZ,
    decided_by       TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_memberships_user ON memberships(user_id);
CREATE INDEX IF NOT EXISTS idx_memberships_org ON memberships(organization_id, status);

CREATE TABLE IF NOT EXISTS events (
    id               TEXT PRIMARY KEY,
    name             TEXT NOT NULL,
    description      TEXT NOT NULL DEFAULT '',
    event_date       TIMESTAMPTZ NOT NULL,
    location         TEXT NOT NULL DEFAULT '',
    price            DOUBLE PRECISION NOT NULL DEFAULT 0,
    images           TEXT[] NOT NULL DEFAULT '{}',
    organization_id  TEXT NOT NULL,
    status           TEXT NOT NULL DEFAULT 'pending',
    rejection_reason TEXT NOT NULL DEFAULT '',
    likes            TEXT[] NOT NULL DEFAULT '{}',
    interested       TEXT[] NOT NULL DEFAULT '{}',
    tags             TEXT[] NOT NULL DEFAULT '{}',
    created_by       TEXT NOT NULL DEFAULT '',
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_events_status_date ON events(status, event_date);
CREATE INDEX IF NOT EXISTS idx_events_org ON events(organization_id);

CREATE TABLE IF NOT EXISTS tasks (
    id               TEXT PRIMARY KEY,
    name             TEXT NOT NULL,
    description      TEXT NOT NULL DEFAULT '',
    due_date         TIMESTAMPTZ NOT NULL,
    priority         TEXT NOT NULL DEFAULT 'medium',
    assigned_members TEXT[] NOT NULL DEFAULT '{}',
    organization_id  TEXT NOT NULL,
    completed        BOOLEAN NOT NULL DEFAULT FALSE,
    completed_at     TIMESTAMPTZ,
    created_by       TEXT NOT NULL DEFAULT '',
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_tasks_org ON tasks(organization_id);

CREATE TABLE IF NOT EXISTS comments (
    id         TEXT PRIMARY KEY,
    event_id   TEXT NOT NULL,
    user_id    TEXT NOT NULL,
    user_name  TEXT NOT NULL DEFAULT '',
    body       TEXT NOT NULL,
    replies    JSONB NOT NULL DEFAULT '[]'::jsonb,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_comments_event ON comments(event_id, created_at);

CREATE TABLE IF NOT EXISTS notifications (
    id              TEXT PRIMARY KEY,
    recipient_uid   TEXT NOT NULL,
    type            TEXT NOT NULL DEFAULT 'general',
    message         TEXT NOT NULL,
    read            BOOLEAN NOT NULL DEFAULT FALSE,
    org_name        TEXT NOT NULL DEFAULT '',
    org_profile_pic TEXT NOT NULL DEFAULT '',
    ref_id          TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications(recipient_uid, created_at DESC);

CREATE TABLE IF NOT EXISTS audit_logs (
    id           TEXT PRIMARY KEY,
    request_id   TEXT NOT NULL,
    request_type TEXT NOT NULL,
    action       TEXT NOT NULL,
    admin_id     TEXT NOT NULL,
    reason       TEXT NOT NULL DEFAULT '',
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_audit_logs_created ON audit_logs(created_at DESC);
`

type rowScanner interface {
	Scan(dest ...any) error
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func noRows(kind, id string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", kind, id, models.ErrNotFound)
	}
	return fmt.Errorf("get %s %s: %w", kind, id, err)
}

func affected(kind, id string, res sql.Result, err error) error {
	if err != nil {
		return fmt.Errorf("update %s %s: %w", kind, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, models.ErrNotFound)
	}
	return nil
}

// casAffected distinguishes a missing row from a status that moved on.
func (db *PostgresDatabase) casAffected(ctx context.Context, table, kind, id string, res sql.Result, err error) error {
	if err != nil {
		return fmt.Errorf("update %s status: %w", kind, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var exists bool
	if err := db.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM "+table+" WHERE id = $1)", id).Scan(&exists); err != nil {
		return fmt.Errorf("check %s %s: %w", kind, id, err)
	}
	if !exists {
		return fmt.Errorf("%s %s: %w", kind, id, models.ErrNotFound)
	}
	return fmt.Errorf("%s %s status changed: %w", kind, id, models.ErrConflict)
}

// ---- users ----

const userColumns = `id, email, password_hash, name, photo, provider, role, organization_id, member_id,
    liked_events, interested_events, created_at, updated_at`

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var liked, interested pq.StringArray
	if err := row.Scan(&u.ID, &u.Email, &u.Password, &u.Name, &u.Photo, &u.Provider, &u.Role,
		&u.OrganizationID, &u.MemberID, &liked, &interested, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.LikedEvents = cloneStrings(liked)
	u.InterestedEvents = cloneStrings(interested)
	return &u, nil
}

func (db *PostgresDatabase) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.Provider == "" {
		user.Provider = "email"
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	err := db.db.QueryRowContext(ctx, `
        INSERT INTO users (id, email, password_hash, name, photo, provider, role, organization_id, member_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING created_at, updated_at`,
		user.ID, user.Email, user.Password, user.Name, user.Photo, user.Provider, user.Role,
		user.OrganizationID, user.MemberID,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %s: %w", user.Email, models.ErrConflict)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.LikedEvents = []string{}
	user.InterestedEvents = []string{}
	return nil
}

func (db *PostgresDatabase) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := scanUser(db.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = $1", email))
	if err != nil {
		return nil, noRows("user", email, err)
	}
	return u, nil
}

func (db *PostgresDatabase) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	u, err := scanUser(db.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id))
	if err != nil {
		return nil, noRows("user", id, err)
	}
	return u, nil
}

func (db *PostgresDatabase) UpdateUser(ctx context.Context, user *models.User) error {
	res, err := db.db.ExecContext(ctx, `
        UPDATE users SET name = $2, photo = $3, role = $4, organization_id = $5, member_id = $6,
            password_hash = CASE WHEN $7 = '' THEN password_hash ELSE $7 END, updated_at = NOW()
        WHERE id = $1`,
		user.ID, user.Name, user.Photo, user.Role, user.OrganizationID, user.MemberID, user.Password)
	return affected("user", user.ID, res, err)
}

// setArrayMember adds or removes value in a whitelisted TEXT[] column.
func (db *PostgresDatabase) setArrayMember(ctx context.Context, table, column, kind, id, value string, add bool) error {
	expr := fmt.Sprintf("array_remove(%s, $2::text)", column)
	if add {
		expr = fmt.Sprintf("CASE WHEN $2::text = ANY(%[1]s) THEN %[1]s ELSE array_append(%[1]s, $2::text) END", column)
	}
	res, err := db.db.ExecContext(ctx, fmt.Sprintf("UPDATE %s SET %s = %s WHERE id = $1", table, column, expr), id, value)
	return affected(kind, id, res, err)
}

func (db *PostgresDatabase) SetUserEngagement(ctx context.Context, uid, eventID string, kind models.EngagementKind, add bool) error {
	column := "interested_events"
	if kind == models.EngagementLike {
		column = "liked_events"
	}
	return db.setArrayMember(ctx, "users", column, "user", uid, eventID, add)
}

// ---- organizations ----

const orgColumns = `id, name, description, photo, email, owner_id, status, tags, rejection_reason,
    has_seen_acceptance, created_at, updated_at`

func scanOrganization(row rowScanner) (*models.Organization, error) {
	var o models.Organization
	var tags pq.StringArray
	if err := row.Scan(&o.ID, &o.Name, &o.Description, &o.Photo, &o.Email, &o.OwnerID, &o.Status, &tags,
		&o.RejectionReason, &o.HasSeenAcceptance, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Tags = cloneStrings(tags)
	return &o, nil
}

func (db *PostgresDatabase) CreateOrganization(ctx context.Context, org *models.Organization) error {
	if org.ID == "" {
		org.ID = uuid.New().String()
	}
	org.Tags = cloneStrings(org.Tags)
	err := db.db.QueryRowContext(ctx, `
        INSERT INTO organizations (id, name, description, photo, email, owner_id, status, tags, rejection_reason, has_seen_acceptance)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING created_at, updated_at`,
		org.ID, org.Name, org.Description, org.Photo, org.Email, org.OwnerID, org.Status,
		pq.Array(org.Tags), org.RejectionReason, org.HasSeenAcceptance,
	).Scan(&org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("organization %s: %w", org.ID, models.ErrConflict)
		}
		return fmt.Errorf("failed to create organization: %w", err)
	}
	return nil
}

func (db *PostgresDatabase) GetOrganization(ctx context.Context, id string) (*models.Organization, error) {
	o, err := scanOrganization(db.db.QueryRowContext(ctx, "SELECT "+orgColumns+" FROM organizations WHERE id = $1", id))
	if err != nil {
		return nil, noRows("organization", id, err)
	}
	return o, nil
}

func (db *PostgresDatabase) ListOrganizations(ctx context.Context, filter models.OrganizationFilter) ([]models.Organization, error) {
	rows, err := db.db.QueryContext(ctx, `
        SELECT `+orgColumns+` FROM organizations
        WHERE ($1 = '' OR status = $1)
          AND ($2 = '' OR lower($2) = ANY(tags))
          AND ($3 = '' OR name ILIKE '%' || $3 || '%')
        ORDER BY name`,
		string(filter.Status), filter.Tag, strings.TrimSpace(filter.Query))
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	defer rows.Close()

	out := []models.Organization{}
	for rows.Next() {
		o, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func (db *PostgresDatabase) UpdateOrganizationProfile(ctx context.Context, org *models.Organization) error {
	res, err := db.db.ExecContext(ctx, `
        UPDATE organizations SET name = $2, description = $3, photo = $4, tags = $5, updated_at = NOW()
        WHERE id = $1`,
		org.ID, org.Name, org.Description, org.Photo, pq.Array(cloneStrings(org.Tags)))
	return affected("organization", org.ID, res, err)
}

func (db *PostgresDatabase) UpdateOrganizationStatus(ctx context.Context, id string, from, to models.OrganizationStatus, reason string) error {
	res, err := db.db.ExecContext(ctx, `
        UPDATE organizations SET status = $3, rejection_reason = $4, updated_at = NOW()
        WHERE id = $1 AND status = $2`,
		id, from, to, reason)
	return db.casAffected(ctx, "organizations", "organization", id, res, err)
}

func (db *PostgresDatabase) MarkOrganizationAcceptanceSeen(ctx context.Context, id string) error {
	res, err := db.db.ExecContext(ctx, "UPDATE organizations SET has_seen_acceptance = TRUE WHERE id = $1", id)
	return affected("organization", id, res, err)
}

// ---- join requests ----

const membershipColumns = `id, user_id, organization_id, status, seen_by_user, rejection_reason, user_name,
    user_email, created_at, decided_at, decided_by`

func scanMembership(row rowScanner) (*models.Membership, error) {
	var m models.Membership
	var decidedAt sql.NullTime
	if err := row.Scan(&m.ID, &m.UserID, &m.OrganizationID, &m.Status, &m.SeenByUser, &m.RejectionReason,
		&m.UserName, &m.UserEmail, &m.CreatedAt, &decidedAt, &m.DecidedBy); err != nil {
		return nil, err
	}
	if decidedAt.Valid {
		t := decidedAt.Time
		m.DecidedAt = &t
	}
	return &m, nil
}

func (db *PostgresDatabase) CreateMembership(ctx context.Context, m *models.Membership) (bool, error) {
	if m.ID == "" {
		m.ID = models.JoinRequestID(m.UserID, m.OrganizationID)
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	res, err := db.db.ExecContext(ctx, `
        INSERT INTO memberships (id, user_id, organization_id, status, seen_by_user, rejection_reason, user_name, user_email, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT (id) DO NOTHING`,
		m.ID, m.UserID, m.OrganizationID, m.Status, m.SeenByUser, m.RejectionReason, m.UserName, m.UserEmail, m.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("insert join request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (db *PostgresDatabase) GetMembership(ctx context.Context, id string) (*models.Membership, error) {
	m, err := scanMembership(db.db.QueryRowContext(ctx, "SELECT "+membershipColumns+" FROM memberships WHERE id = $1", id))
	if err != nil {
		return nil, noRows("join request", id, err)
	}
	return m, nil
}

func (db *PostgresDatabase) ListMemberships(ctx context.Context, filter models.MembershipFilter) ([]models.Membership, error) {
	statuses := make([]string, 0, len(filter.Statuses))
	for _, s := range filter.Statuses {
		statuses = append(statuses, string(s))
	}
	rows, err := db.db.QueryContext(ctx, `
        SELECT `+membershipColumns+` FROM memberships
        WHERE ($1 = '' OR user_id = $1)
          AND ($2 = '' OR organization_id = $2)
          AND (cardinality($3::text[]) = 0 OR status = ANY($3::text[]))
        ORDER BY created_at`,
		filter.UserID, filter.OrganizationID, pq.Array(statuses))
	if err != nil {
		return nil, fmt.Errorf("list join requests: %w", err)
	}
	defer rows.Close()

	out := []models.Membership{}
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (db *PostgresDatabase) UpdateMembershipStatus(ctx context.Context, id string, from, to models.MemberStatus, reason, decidedBy string, decidedAt time.Time) error {
	res, err := db.db.ExecContext(ctx, `
        UPDATE memberships SET status = $3, rejection_reason = $4, decided_by = $5, decided_at = $6, seen_by_user = FALSE
        WHERE id = $1 AND status = $2`,
		id, from, to, reason, decidedBy, decidedAt)
	return db.casAffected(ctx, "memberships", "join request", id, res, err)
}

func (db *PostgresDatabase) MarkMembershipsSeen(ctx context.Context, uid string) (int, error) {
	res, err := db.db.ExecContext(ctx, `
        UPDATE memberships SET seen_by_user = TRUE
        WHERE user_id = $1 AND status IN ('approved', 'rejected') AND seen_by_user = FALSE`, uid)
	if err != nil {
		return 0, fmt.Errorf("mark join requests seen: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// ---- events ----

const eventColumns = `id, name, description, event_date, location, price, images, organization_id, status,
    rejection_reason, likes, interested, tags, created_by, created_at, updated_at`

func scanEvent(row rowScanner) (*models.Event, error) {
	var e models.Event
	var images, likes, interested, tags pq.StringArray
	if err := row.Scan(&e.ID, &e.Name, &e.Description, &e.Date, &e.Location, &e.Price, &images,
		&e.OrganizationID, &e.Status, &e.RejectionReason, &likes, &interested, &tags, &e.CreatedBy,
		&e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.Images = cloneStrings(images)
	e.Likes = cloneStrings(likes)
	e.Interested = cloneStrings(interested)
	e.Tags = cloneStrings(tags)
	return &e, nil
}

func (db *PostgresDatabase) CreateEvent(ctx context.Context, event *models.Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	*event = cloneEvent(*event)
	err := db.db.QueryRowContext(ctx, `
        INSERT INTO events (id, name, description, event_date, location, price, images, organization_id, status,
            rejection_reason, likes, interested, tags, created_by)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
        RETURNING created_at, updated_at`,
		event.ID, event.Name, event.Description, event.Date, event.Location, event.Price, pq.Array(event.Images),
		event.OrganizationID, event.Status, event.RejectionReason, pq.Array(event.Likes), pq.Array(event.Interested),
		pq.Array(event.Tags), event.CreatedBy,
	).Scan(&event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

func (db *PostgresDatabase) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	e, err := scanEvent(db.db.QueryRowContext(ctx, "SELECT "+eventColumns+" FROM events WHERE id = $1", id))
	if err != nil {
		return nil, noRows("event", id, err)
	}
	return e, nil
}

func (db *PostgresDatabase) ListEvents(ctx context.Context, filter models.EventFilter) ([]models.Event, error) {
	rows, err := db.db.QueryContext(ctx, `
        SELECT `+eventColumns+` FROM events
        WHERE ($1 = '' OR status = $1)
          AND ($2 = '' OR organization_id = $2)
          AND ($3 = '' OR lower($3) = ANY(tags))
          AND ($4 = FALSE OR id = ANY($5::text[]))
        ORDER BY event_date`,
		string(filter.Status), filter.OrganizationID, filter.Tag, filter.IDs != nil, pq.Array(cloneStrings(filter.IDs)))
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	out := []models.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (db *PostgresDatabase) UpdateEvent(ctx context.Context, event *models.Event) error {
	res, err := db.db.ExecContext(ctx, `
        UPDATE events SET name = $2, description = $3, event_date = $4, location = $5, price = $6, images = $7,
            tags = $8, updated_at = NOW()
        WHERE id = $1`,
		event.ID, event.Name, event.Description, event.Date, event.Location, event.Price,
		pq.Array(cloneStrings(event.Images)), pq.Array(cloneStrings(event.Tags)))
	return affected("event", event.ID, res, err)
}

func (db *PostgresDatabase) UpdateEventStatus(ctx context.Context, id string, from, to models.EventStatus, reason string) error {
	res, err := db.db.ExecContext(ctx, `
        UPDATE events SET status = $3, rejection_reason = $4, updated_at = NOW()
        WHERE id = $1 AND status = $2`,
		id, from, to, reason)
	return db.casAffected(ctx, "events", "event", id, res, err)
}

func (db *PostgresDatabase) SetEventEngagement(ctx context.Context, eventID, uid string, kind models.EngagementKind, add bool) error {
	column := "interested"
	if kind == models.EngagementLike {
		column = "likes"
	}
	return db.setArrayMember(ctx, "events", column, "event", eventID, uid, add)
}

func (db *PostgresDatabase) DeleteEvent(ctx context.Context, id string) error {
	res, err := db.db.ExecContext(ctx, "DELETE FROM events WHERE id = $1", id)
	return affected("event", id, res, err)
}

// ---- tasks ----

const taskColumns = `id, name, description, due_date, priority, assigned_members, organization_id, completed,
    completed_at, created_by, created_at`

func scanTask(row rowScanner) (*models.Task, error) {
	var t models.Task
	var assigned pq.StringArray
	var completedAt sql.NullTime
	if err := row.Scan(&t.ID, &t.Name, &t.Description, &t.DueDate, &t.Priority, &assigned, &t.OrganizationID,
		&t.Completed, &completedAt, &t.CreatedBy, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.AssignedMembers = cloneStrings(assigned)
	if completedAt.Valid {
		at := completedAt.Time
		t.CompletedAt = &at
	}
	return &t, nil
}

func (db *PostgresDatabase) CreateTask(ctx context.Context, task *models.Task) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	task.AssignedMembers = cloneStrings(task.AssignedMembers)
	err := db.db.QueryRowContext(ctx, `
        INSERT INTO tasks (id, name, description, due_date, priority, assigned_members, organization_id, completed, created_by)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING created_at`,
		task.ID, task.Name, task.Description, task.DueDate, task.Priority, pq.Array(task.AssignedMembers),
		task.OrganizationID, task.Completed, task.CreatedBy,
	).Scan(&task.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

func (db *PostgresDatabase) GetTask(ctx context.Context, id string) (*models.Task, error) {
	t, err := scanTask(db.db.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = $1", id))
	if err != nil {
		return nil, noRows("task", id, err)
	}
	return t, nil
}

func (db *PostgresDatabase) ListTasks(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	rows, err := db.db.QueryContext(ctx, `
        SELECT `+taskColumns+` FROM tasks
        WHERE ($1 = '' OR organization_id = $1)
          AND ($2 = '' OR $2 = ANY(assigned_members))
        ORDER BY due_date`,
		filter.OrganizationID, filter.AssignedTo)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	out := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (db *PostgresDatabase) UpdateTask(ctx context.Context, task *models.Task) error {
	res, err := db.db.ExecContext(ctx, `
        UPDATE tasks SET name = $2, description = $3, due_date = $4, priority = $5, assigned_members = $6
        WHERE id = $1`,
		task.ID, task.Name, task.Description, task.DueDate, task.Priority, pq.Array(cloneStrings(task.AssignedMembers)))
	return affected("task", task.ID, res, err)
}

func (db *PostgresDatabase) SetTaskCompleted(ctx context.Context, id string, completed bool, at *time.Time) error {
	var completedAt sql.NullTime
	if at != nil {
		completedAt = sql.NullTime{Time: *at, Valid: true}
	}
	res, err := db.db.ExecContext(ctx, "UPDATE tasks SET completed = $2, completed_at = $3 WHERE id = $1", id, completed, completedAt)
	return affected("task", id, res, err)
}

func (db *PostgresDatabase) DeleteTask(ctx context.Context, id string) error {
	res, err := db.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = $1", id)
	return affected("task", id, res, err)
}

// ---- comments ----

const commentColumns = `id, event_id, user_id, user_name, body, replies, created_at`

func scanComment(row rowScanner) (*models.Comment, error) {
	var c models.Comment
	var replies []byte
	if err := row.Scan(&c.ID, &c.EventID, &c.UserID, &c.UserName, &c.Body, &replies, &c.Timestamp); err != nil {
		return nil, err
	}
	c.Replies = []models.Reply{}
	if len(replies) > 0 {
		if err := json.Unmarshal(replies, &c.Replies); err != nil {
			return nil, fmt.Errorf("decode replies: %w", err)
		}
	}
	return &c, nil
}

func (db *PostgresDatabase) CreateComment(ctx context.Context, c *models.Comment) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Timestamp.IsZero() {
		c.Timestamp = time.Now().UTC()
	}
	if c.Replies == nil {
		c.Replies = []models.Reply{}
	}
	replies, err := json.Marshal(c.Replies)
	if err != nil {
		return err
	}
	_, err = db.db.ExecContext(ctx, `
        INSERT INTO comments (id, event_id, user_id, user_name, body, replies, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.EventID, c.UserID, c.UserName, c.Body, replies, c.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}
	return nil
}

func (db *PostgresDatabase) GetComment(ctx context.Context, id string) (*models.Comment, error) {
	c, err := scanComment(db.db.QueryRowContext(ctx, "SELECT "+commentColumns+" FROM comments WHERE id = $1", id))
	if err != nil {
		return nil, noRows("comment", id, err)
	}
	return c, nil
}

func (db *PostgresDatabase) ListComments(ctx context.Context, eventID string) ([]models.Comment, error) {
	rows, err := db.db.QueryContext(ctx, "SELECT "+commentColumns+" FROM comments WHERE event_id = $1 ORDER BY created_at", eventID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	out := []models.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (db *PostgresDatabase) AddReply(ctx context.Context, commentID string, reply models.Reply) error {
	raw, err := json.Marshal([]models.Reply{reply})
	if err != nil {
		return err
	}
	res, err := db.db.ExecContext(ctx, "UPDATE comments SET replies = replies || $2::jsonb WHERE id = $1", commentID, raw)
	return affected("comment", commentID, res, err)
}

// ---- notifications ----

const notificationColumns = `id, recipient_uid, type, message, read, org_name, org_profile_pic, ref_id, created_at`

func (db *PostgresDatabase) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now().UTC()
	}
	_, err := db.db.ExecContext(ctx, `
        INSERT INTO notifications (id, recipient_uid, type, message, read, org_name, org_profile_pic, ref_id, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		n.ID, n.RecipientUID, n.Type, n.Message, n.Read, n.OrgName, n.OrgProfilePic, n.RefID, n.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (db *PostgresDatabase) ListNotifications(ctx context.Context, uid string, unreadOnly bool) ([]models.Notification, error) {
	rows, err := db.db.QueryContext(ctx, `
        SELECT `+notificationColumns+` FROM notifications
        WHERE recipient_uid = $1 AND ($2 = FALSE OR read = FALSE)
        ORDER BY created_at DESC`, uid, unreadOnly)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	out := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.RecipientUID, &n.Type, &n.Message, &n.Read, &n.OrgName, &n.OrgProfilePic,
			&n.RefID, &n.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (db *PostgresDatabase) MarkNotificationRead(ctx context.Context, uid, id string) error {
	res, err := db.db.ExecContext(ctx, "UPDATE notifications SET read = TRUE WHERE id = $1 AND recipient_uid = $2", id, uid)
	return affected("notification", id, res, err)
}

func (db *PostgresDatabase) MarkAllNotificationsRead(ctx context.Context, uid string) (int, error) {
	res, err := db.db.ExecContext(ctx, "UPDATE notifications SET read = TRUE WHERE recipient_uid = $1 AND read = FALSE", uid)
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (db *PostgresDatabase) DeleteNotification(ctx context.Context, uid, id string) error {
	res, err := db.db.ExecContext(ctx, "DELETE FROM notifications WHERE id = $1 AND recipient_uid = $2", id, uid)
	return affected("notification", id, res, err)
}

// ---- audit logs ----

func (db *PostgresDatabase) AppendAuditLog(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	_, err := db.db.ExecContext(ctx, `
        INSERT INTO audit_logs (id, request_id, request_type, action, admin_id, reason, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.RequestID, entry.RequestType, entry.Action, entry.AdminID, entry.Reason, entry.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to append audit log: %w", err)
	}
	return nil
}

func (db *PostgresDatabase) ListAuditLogs(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 500
	}
	rows, err := db.db.QueryContext(ctx, `
        SELECT id, request_id, request_type, action, admin_id, reason, created_at FROM audit_logs
        WHERE ($1 = '' OR request_type = $1) AND ($2 = '' OR request_id = $2)
        ORDER BY created_at DESC
        LIMIT $3`,
		string(filter.RequestType), filter.RequestID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	out := []models.AuditLog{}
	for rows.Next() {
		var a models.AuditLog
		if err := rows.Scan(&a.ID, &a.RequestID, &a.RequestType, &a.Action, &a.AdminID, &a.Reason, &a.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// HealthCheck 健康检查
func (db *PostgresDatabase) HealthCheck(ctx context.Context) error {
	return db.db.PingContext(ctx)
}

// Close 关闭数据库连接
func (db *PostgresDatabase) Close() error {
	return db.db.Close()
}
