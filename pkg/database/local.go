package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"oms-backend/pkg/models"

	"github.com/google/uuid"
)

// LocalDatabase 本地数据库实现: 内存存储, 可选持久化到 dataDir/oms.json
type LocalDatabase struct {
	mu      sync.RWMutex
	dataDir string
	state   localState
}

type localState struct {
	Users         map[string]models.User         `json:"users"`
	Organizations map[string]models.Organization `json:"organizations"`
	Memberships   map[string]models.Membership   `json:"members"`
	Events        map[string]models.Event        `json:"events"`
	Tasks         map[string]models.Task         `json:"tasks"`
	Comments      map[string]models.Comment      `json:"comments"`
	Notifications map[string]models.Notification `json:"notifications"`
	AuditLogs     []models.AuditLog              `json:"auditLogs"`
	// password hashes are kept apart because User never serializes them
	Passwords map[string]string `json:"passwords"`
}

// NewMemoryDatabase returns a LocalDatabase that never touches the filesystem.
func NewMemoryDatabase() *LocalDatabase {
	return &LocalDatabase{state: newLocalState()}
}

// NewLocalDatabase 创建本地数据库实例; dataDir 为空时只使用内存
func NewLocalDatabase(dataDir string) (*LocalDatabase, error) {
	db := NewMemoryDatabase()
	if dataDir == "" {
		return db, nil
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		// 只读文件系统 (Vercel) 回退到临时目录
		slog.Warn("failed to create data directory, falling back to temp dir", "module", "database.local", "error", err)
		dataDir = filepath.Join(os.TempDir(), "oms-data")
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}
	db.dataDir = dataDir

	raw, err := os.ReadFile(db.filePath())
	if err != nil {
		if os.IsNotExist(err) {
			return db, nil
		}
		return nil, fmt.Errorf("read local data: %w", err)
	}
	if err := json.Unmarshal(raw, &db.state); err != nil {
		return nil, fmt.Errorf("decode local data: %w", err)
	}
	db.state.fillNil()
	for id, hash := range db.state.Passwords {
		if u, ok := db.state.Users[id]; ok {
			u.Password = hash
			db.state.Users[id] = u
		}
	}
	return db, nil
}

func newLocalState() localState {
	s := localState{}
	s.fillNil()
	return s
}

func (s *localState) fillNil() {
	if s.Users == nil {
		s.Users = map[string]models.User{}
	}
	if s.Organizations == nil {
		s.Organizations = map[string]models.Organization{}
	}
	if s.Memberships == nil {
		s.Memberships = map[string]models.Membership{}
	}
	if s.Events == nil {
		s.Events = map[string]models.Event{}
	}
	if s.Tasks == nil {
		s.Tasks = map[string]models.Task{}
	}
	if s.Comments == nil {
		s.Comments = map[string]models.Comment{}
	}
	if s.Notifications == nil {
		s.Notifications = map[string]models.Notification{}
	}
	if s.Passwords == nil {
		s.Passwords = map[string]string{}
	}
}

func (db *LocalDatabase) filePath() string {
	return filepath.Join(db.dataDir, "oms.json")
}

// persist 写入磁盘; 调用方持有写锁
func (db *LocalDatabase) persist() error {
	if db.dataDir == "" {
		return nil
	}
	for id, u := range db.state.Users {
		if u.Password != "" {
			db.state.Passwords[id] = u.Password
		}
	}
	raw, err := json.MarshalIndent(db.state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode local data: %w", err)
	}
	tmp := db.filePath() + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return fmt.Errorf("write local data: %w", err)
	}
	return os.Rename(tmp, db.filePath())
}

func cloneStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneUser(u models.User) *models.User {
	u.LikedEvents = cloneStrings(u.LikedEvents)
	u.InterestedEvents = cloneStrings(u.InterestedEvents)
	return &u
}

func cloneEvent(e models.Event) models.Event {
	e.Images = cloneStrings(e.Images)
	e.Likes = cloneStrings(e.Likes)
	e.Interested = cloneStrings(e.Interested)
	e.Tags = cloneStrings(e.Tags)
	return e
}

func cloneComment(c models.Comment) models.Comment {
	replies := make([]models.Reply, len(c.Replies))
	copy(replies, c.Replies)
	c.Replies = replies
	return c
}

func stamp(id *string, created *time.Time) {
	if *id == "" {
		*id = uuid.New().String()
	}
	if created.IsZero() {
		*created = time.Now().UTC()
	}
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// ---- users ----

func (db *LocalDatabase) CreateUser(ctx context.Context, user *models.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	email := strings.ToLower(strings.TrimSpace(user.Email))
	for _, existing := range db.state.Users {
		if existing.Email == email {
			return fmt.Errorf("user %s: %w", email, models.ErrConflict)
		}
	}
	user.Email = email
	stamp(&user.ID, &user.CreatedAt)
	user.UpdatedAt = user.CreatedAt
	user.LikedEvents = cloneStrings(user.LikedEvents)
	user.InterestedEvents = cloneStrings(user.InterestedEvents)
	db.state.Users[user.ID] = *cloneUser(*user)
	return db.persist()
}

func (db *LocalDatabase) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	email = strings.ToLower(strings.TrimSpace(email))
	for _, user := range db.state.Users {
		if user.Email == email {
			return cloneUser(user), nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", email, models.ErrNotFound)
}

func (db *LocalDatabase) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	user, ok := db.state.Users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, models.ErrNotFound)
	}
	return cloneUser(user), nil
}

// UpdateUser 更新资料与角色字段; 互动数组只通过 SetUserEngagement 修改
func (db *LocalDatabase) UpdateUser(ctx context.Context, user *models.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	stored, ok := db.state.Users[user.ID]
	if !ok {
		return fmt.Errorf("user %s: %w", user.ID, models.ErrNotFound)
	}
	stored.Name = user.Name
	stored.Photo = user.Photo
	stored.Role = user.Role
	stored.OrganizationID = user.OrganizationID
	stored.MemberID = user.MemberID
	if user.Password != "" {
		stored.Password = user.Password
	}
	stored.UpdatedAt = time.Now().UTC()
	db.state.Users[user.ID] = stored
	user.UpdatedAt = stored.UpdatedAt
	return db.persist()
}

func (db *LocalDatabase) SetUserEngagement(ctx context.Context, uid, eventID string, kind models.EngagementKind, add bool) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	user, ok := db.state.Users[uid]
	if !ok {
		return fmt.Errorf("user %s: %w", uid, models.ErrNotFound)
	}
	list := user.InterestedEvents
	if kind == models.EngagementLike {
		list = user.LikedEvents
	}
	if add {
		list = models.AddUnique(cloneStrings(list), eventID)
	} else {
		list = models.RemoveAll(list, eventID)
	}
	if kind == models.EngagementLike {
		user.LikedEvents = list
	} else {
		user.InterestedEvents = list
	}
	db.state.Users[uid] = user
	return db.persist()
}

// ---- organizations ----

func (db *LocalDatabase) CreateOrganization(ctx context.Context, org *models.Organization) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	stamp(&org.ID, &org.CreatedAt)
	org.UpdatedAt = org.CreatedAt
	org.Tags = cloneStrings(org.Tags)
	if _, exists := db.state.Organizations[org.ID]; exists {
		return fmt.Errorf("organization %s: %w", org.ID, models.ErrConflict)
	}
	stored := *org
	stored.Tags = cloneStrings(org.Tags)
	db.state.Organizations[org.ID] = stored
	return db.persist()
}

func (db *LocalDatabase) GetOrganization(ctx context.Context, id string) (*models.Organization, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	org, ok := db.state.Organizations[id]
	if !ok {
		return nil, fmt.Errorf("organization %s: %w", id, models.ErrNotFound)
	}
	org.Tags = cloneStrings(org.Tags)
	return &org, nil
}

func (db *LocalDatabase) ListOrganizations(ctx context.Context, filter models.OrganizationFilter) ([]models.Organization, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	query := strings.ToLower(strings.TrimSpace(filter.Query))
	out := []models.Organization{}
	for _, org := range db.state.Organizations {
		if filter.Status != "" && org.Status != filter.Status {
			continue
		}
		if filter.Tag != "" && !hasTag(org.Tags, filter.Tag) {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(org.Name), query) {
			continue
		}
		org.Tags = cloneStrings(org.Tags)
		out = append(out, org)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (db *LocalDatabase) UpdateOrganizationProfile(ctx context.Context, org *models.Organization) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	stored, ok := db.state.Organizations[org.ID]
	if !ok {
		return fmt.Errorf("organization %s: %w", org.ID, models.ErrNotFound)
	}
	stored.Name = org.Name
	stored.Description = org.Description
	stored.Photo = org.Photo
	stored.Tags = cloneStrings(org.Tags)
	stored.UpdatedAt = time.Now().UTC()
	db.state.Organizations[org.ID] = stored
	return db.persist()
}

func (db *LocalDatabase) UpdateOrganizationStatus(ctx context.Context, id string, from, to models.OrganizationStatus, reason string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	stored, ok := db.state.Organizations[id]
	if !ok {
		return fmt.Errorf("organization %s: %w", id, models.ErrNotFound)
	}
	if stored.Status != from {
		return fmt.Errorf("organization %s is %s: %w", id, stored.Status, models.ErrConflict)
	}
	stored.Status = to
	stored.RejectionReason = reason
	stored.UpdatedAt = time.Now().UTC()
	db.state.Organizations[id] = stored
	return db.persist()
}

func (db *LocalDatabase) MarkOrganizationAcceptanceSeen(ctx context.Context, id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	stored, ok := db.state.Organizations[id]
	if !ok {
		return fmt.Errorf("organization %s: %w", id, models.ErrNotFound)
	}
	stored.HasSeenAcceptance = true
	db.state.Organizations[id] = stored
	return db.persist()
}

// ---- join requests ----

func (db *LocalDatabase) CreateMembership(ctx context.Context, m *models.Membership) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if m.ID == "" {
		m.ID = models.JoinRequestID(m.UserID, m.OrganizationID)
	}
	if _, exists := db.state.Memberships[m.ID]; exists {
		return false, nil
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	db.state.Memberships[m.ID] = *m
	return true, db.persist()
}

func (db *LocalDatabase) GetMembership(ctx context.Context, id string) (*models.Membership, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	m, ok := db.state.Memberships[id]
	if !ok {
		return nil, fmt.Errorf("join request %s: %w", id, models.ErrNotFound)
	}
	return &m, nil
}

func (db *LocalDatabase) ListMemberships(ctx context.Context, filter models.MembershipFilter) ([]models.Membership, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	out := []models.Membership{}
	for _, m := range db.state.Memberships {
		if filter.UserID != "" && m.UserID != filter.UserID {
			continue
		}
		if filter.OrganizationID != "" && m.OrganizationID != filter.OrganizationID {
			continue
		}
		if len(filter.Statuses) > 0 && !statusIn(m.Status, filter.Statuses) {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func statusIn(s models.MemberStatus, set []models.MemberStatus) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func (db *LocalDatabase) UpdateMembershipStatus(ctx context.Context, id string, from, to models.MemberStatus, reason, decidedBy string, decidedAt time.Time) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	m, ok := db.state.Memberships[id]
	if !ok {
		return fmt.Errorf("join request %s: %w", id, models.ErrNotFound)
	}
	if m.Status != from {
		return fmt.Errorf("join request %s is %s: %w", id, m.Status, models.ErrConflict)
	}
	m.Status = to
	m.RejectionReason = reason
	m.DecidedBy = decidedBy
	m.DecidedAt = &decidedAt
	m.SeenByUser = false
	db.state.Memberships[id] = m
	return db.persist()
}

func (db *LocalDatabase) MarkMembershipsSeen(ctx context.Context, uid string) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	changed := 0
	for id, m := range db.state.Memberships {
		if m.UserID != uid || m.SeenByUser || m.Status == models.MemberPending {
			continue
		}
		m.SeenByUser = true
		db.state.Memberships[id] = m
		changed++
	}
	if changed == 0 {
		return 0, nil
	}
	return changed, db.persist()
}

// ---- events ----

func (db *LocalDatabase) CreateEvent(ctx context.Context, event *models.Event) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	stamp(&event.ID, &event.CreatedAt)
	event.UpdatedAt = event.CreatedAt
	*event = cloneEvent(*event)
	db.state.Events[event.ID] = cloneEvent(*event)
	return db.persist()
}

func (db *LocalDatabase) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	event, ok := db.state.Events[id]
	if !ok {
		return nil, fmt.Errorf("event %s: %w", id, models.ErrNotFound)
	}
	out := cloneEvent(event)
	return &out, nil
}

func (db *LocalDatabase) ListEvents(ctx context.Context, filter models.EventFilter) ([]models.Event, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var ids map[string]bool
	if filter.IDs != nil {
		ids = make(map[string]bool, len(filter.IDs))
		for _, id := range filter.IDs {
			ids[id] = true
		}
	}

	out := []models.Event{}
	for _, event := range db.state.Events {
		if filter.Status != "" && event.Status != filter.Status {
			continue
		}
		if filter.OrganizationID != "" && event.OrganizationID != filter.OrganizationID {
			continue
		}
		if filter.Tag != "" && !hasTag(event.Tags, filter.Tag) {
			continue
		}
		if ids != nil && !ids[event.ID] {
			continue
		}
		out = append(out, cloneEvent(event))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// UpdateEvent 只写回内容字段; status 只通过 UpdateEventStatus, likes/interested 只通过 SetEventEngagement 修改
func (db *LocalDatabase) UpdateEvent(ctx context.Context, event *models.Event) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	stored, ok := db.state.Events[event.ID]
	if !ok {
		return fmt.Errorf("event %s: %w", event.ID, models.ErrNotFound)
	}
	stored.Name = event.Name
	stored.Description = event.Description
	stored.Date = event.Date
	stored.Location = event.Location
	stored.Price = event.Price
	stored.Images = cloneStrings(event.Images)
	stored.Tags = cloneStrings(event.Tags)
	stored.UpdatedAt = time.Now().UTC()
	db.state.Events[event.ID] = stored
	return db.persist()
}

func (db *LocalDatabase) UpdateEventStatus(ctx context.Context, id string, from, to models.EventStatus, reason string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	stored, ok := db.state.Events[id]
	if !ok {
		return fmt.Errorf("event %s: %w", id, models.ErrNotFound)
	}
	if stored.Status != from {
		return fmt.Errorf("event %s is %s: %w", id, stored.Status, models.ErrConflict)
	}
	stored.Status = to
	stored.RejectionReason = reason
	stored.UpdatedAt = time.Now().UTC()
	db.state.Events[id] = stored
	return db.persist()
}

func (db *LocalDatabase) SetEventEngagement(ctx context.Context, eventID, uid string, kind models.EngagementKind, add bool) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	event, ok := db.state.Events[eventID]
	if !ok {
		return fmt.Errorf("event %s: %w", eventID, models.ErrNotFound)
	}
	list := event.Interested
	if kind == models.EngagementLike {
		list = event.Likes
	}
	if add {
		list = models.AddUnique(cloneStrings(list), uid)
	} else {
		list = models.RemoveAll(list, uid)
	}
	if kind == models.EngagementLike {
		event.Likes = list
	} else {
		event.Interested = list
	}
	db.state.Events[eventID] = event
	return db.persist()
}

func (db *LocalDatabase) DeleteEvent(ctx context.Context, id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.state.Events[id]; !ok {
		return fmt.Errorf("event %s: %w", id, models.ErrNotFound)
	}
	delete(db.state.Events, id)
	return db.persist()
}

// ---- tasks ----

func (db *LocalDatabase) CreateTask(ctx context.Context, task *models.Task) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	stamp(&task.ID, &task.CreatedAt)
	task.AssignedMembers = cloneStrings(task.AssignedMembers)
	stored := *task
	stored.AssignedMembers = cloneStrings(task.AssignedMembers)
	db.state.Tasks[task.ID] = stored
	return db.persist()
}

func (db *LocalDatabase) GetTask(ctx context.Context, id string) (*models.Task, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	task, ok := db.state.Tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, models.ErrNotFound)
	}
	task.AssignedMembers = cloneStrings(task.AssignedMembers)
	return &task, nil
}

func (db *LocalDatabase) ListTasks(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	out := []models.Task{}
	for _, task := range db.state.Tasks {
		if filter.OrganizationID != "" && task.OrganizationID != filter.OrganizationID {
			continue
		}
		if filter.AssignedTo != "" && !task.IsAssigned(filter.AssignedTo) {
			continue
		}
		task.AssignedMembers = cloneStrings(task.AssignedMembers)
		out = append(out, task)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

func (db *LocalDatabase) UpdateTask(ctx context.Context, task *models.Task) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	stored, ok := db.state.Tasks[task.ID]
	if !ok {
		return fmt.Errorf("task %s: %w", task.ID, models.ErrNotFound)
	}
	stored.Name = task.Name
	stored.Description = task.Description
	stored.DueDate = task.DueDate
	stored.Priority = task.Priority
	stored.AssignedMembers = cloneStrings(task.AssignedMembers)
	db.state.Tasks[task.ID] = stored
	return db.persist()
}

func (db *LocalDatabase) SetTaskCompleted(ctx context.Context, id string, completed bool, at *time.Time) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	stored, ok := db.state.Tasks[id]
	if !ok {
		return fmt.Errorf("task %s: %w", id, models.ErrNotFound)
	}
	stored.Completed = completed
	stored.CompletedAt = at
	db.state.Tasks[id] = stored
	return db.persist()
}

func (db *LocalDatabase) DeleteTask(ctx context.Context, id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.state.Tasks[id]; !ok {
		return fmt.Errorf("task %s: %w", id, models.ErrNotFound)
	}
	delete(db.state.Tasks, id)
	return db.persist()
}

// ---- comments ----

func (db *LocalDatabase) CreateComment(ctx context.Context, c *models.Comment) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	stamp(&c.ID, &c.Timestamp)
	if c.Replies == nil {
		c.Replies = []models.Reply{}
	}
	db.state.Comments[c.ID] = cloneComment(*c)
	return db.persist()
}

func (db *LocalDatabase) GetComment(ctx context.Context, id string) (*models.Comment, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	c, ok := db.state.Comments[id]
	if !ok {
		return nil, fmt.Errorf("comment %s: %w", id, models.ErrNotFound)
	}
	out := cloneComment(c)
	return &out, nil
}

func (db *LocalDatabase) ListComments(ctx context.Context, eventID string) ([]models.Comment, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	out := []models.Comment{}
	for _, c := range db.state.Comments {
		if c.EventID == eventID {
			out = append(out, cloneComment(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (db *LocalDatabase) AddReply(ctx context.Context, commentID string, reply models.Reply) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	c, ok := db.state.Comments[commentID]
	if !ok {
		return fmt.Errorf("comment %s: %w", commentID, models.ErrNotFound)
	}
	c = cloneComment(c)
	c.Replies = append(c.Replies, reply)
	db.state.Comments[commentID] = c
	return db.persist()
}

// ---- notifications ----

func (db *LocalDatabase) CreateNotification(ctx context.Context, n *models.Notification) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	stamp(&n.ID, &n.Timestamp)
	db.state.Notifications[n.ID] = *n
	return db.persist()
}

func (db *LocalDatabase) ListNotifications(ctx context.Context, uid string, unreadOnly bool) ([]models.Notification, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	out := []models.Notification{}
	for _, n := range db.state.Notifications {
		if n.RecipientUID != uid || (unreadOnly && n.Read) {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (db *LocalDatabase) MarkNotificationRead(ctx context.Context, uid, id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	n, ok := db.state.Notifications[id]
	if !ok || n.RecipientUID != uid {
		return fmt.Errorf("notification %s: %w", id, models.ErrNotFound)
	}
	n.Read = true
	db.state.Notifications[id] = n
	return db.persist()
}

func (db *LocalDatabase) MarkAllNotificationsRead(ctx context.Context, uid string) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	changed := 0
	for id, n := range db.state.Notifications {
		if n.RecipientUID == uid && !n.Read {
			n.Read = true
			db.state.Notifications[id] = n
			changed++
		}
	}
	if changed == 0 {
		return 0, nil
	}
	return changed, db.persist()
}

func (db *LocalDatabase) DeleteNotification(ctx context.Context, uid, id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	n, ok := db.state.Notifications[id]
	if !ok || n.RecipientUID != uid {
		return fmt.Errorf("notification %s: %w", id, models.ErrNotFound)
	}
	delete(db.state.Notifications, id)
	return db.persist()
}

// ---- audit logs ----

func (db *LocalDatabase) AppendAuditLog(ctx context.Context, entry *models.AuditLog) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	stamp(&entry.ID, &entry.Timestamp)
	db.state.AuditLogs = append(db.state.AuditLogs, *entry)
	return db.persist()
}

func (db *LocalDatabase) ListAuditLogs(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	out := []models.AuditLog{}
	for i := len(db.state.AuditLogs) - 1; i >= 0; i-- {
		entry := db.state.AuditLogs[i]
		if filter.RequestType != "" && entry.RequestType != filter.RequestType {
			continue
		}
		if filter.RequestID != "" && entry.RequestID != filter.RequestID {
			continue
		}
		out = append(out, entry)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (db *LocalDatabase) HealthCheck(ctx context.Context) error {
	return nil
}

func (db *LocalDatabase) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.persist()
}
