package database

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"oms-backend/pkg/models"
)

// DatabaseInterface 定义数据库访问接口
//
// Status updates are compare-and-set: they apply only when the stored status equals from,
// and return models.ErrConflict otherwise. Missing documents return models.ErrNotFound.
type DatabaseInterface interface {
	// 用户管理
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	SetUserEngagement(ctx context.Context, uid, eventID string, kind models.EngagementKind, add bool) error

	// Organizations
	CreateOrganization(ctx context.Context, org *models.Organization) error
	GetOrganization(ctx context.Context, id string) (*models.Organization, error)
	ListOrganizations(ctx context.Context, filter models.OrganizationFilter) ([]models.Organization, error)
	UpdateOrganizationProfile(ctx context.Context, org *models.Organization) error
	UpdateOrganizationStatus(ctx context.Context, id string, from, to models.OrganizationStatus, reason string) error
	MarkOrganizationAcceptanceSeen(ctx context.Context, id string) error

	// Join requests
	// CreateMembership inserts the request only if its id is free; created is false otherwise.
	CreateMembership(ctx context.Context, m *models.Membership) (created bool, err error)
	GetMembership(ctx context.Context, id string) (*models.Membership, error)
	ListMemberships(ctx context.Context, filter models.MembershipFilter) ([]models.Membership, error)
	UpdateMembershipStatus(ctx context.Context, id string, from, to models.MemberStatus, reason, decidedBy string, decidedAt time.Time) error
	MarkMembershipsSeen(ctx context.Context, uid string) (int, error)

	// Events
	CreateEvent(ctx context.Context, event *models.Event) error
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	ListEvents(ctx context.Context, filter models.EventFilter) ([]models.Event, error)
	// UpdateEvent writes content fields only; status and rejection reason are left untouched.
	UpdateEvent(ctx context.Context, event *models.Event) error
	UpdateEventStatus(ctx context.Context, id string, from, to models.EventStatus, reason string) error
	SetEventEngagement(ctx context.Context, eventID, uid string, kind models.EngagementKind, add bool) error
	DeleteEvent(ctx context.Context, id string) error

	// Tasks
	CreateTask(ctx context.Context, task *models.Task) error
	GetTask(ctx context.Context, id string) (*models.Task, error)
	ListTasks(ctx context.Context, filter models.TaskFilter) ([]models.Task, error)
	UpdateTask(ctx context.Context, task *models.Task) error
	SetTaskCompleted(ctx context.Context, id string, completed bool, at *time.Time) error
	DeleteTask(ctx context.Context, id string) error

	// Comments
	CreateComment(ctx context.Context, c *models.Comment) error
	GetComment(ctx context.Context, id string) (*models.Comment, error)
	ListComments(ctx context.Context, eventID string) ([]models.Comment, error)
	AddReply(ctx context.Context, commentID string, reply models.Reply) error

	// Notifications (scoped to the recipient)
	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, uid string, unreadOnly bool) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, uid, id string) error
	MarkAllNotificationsRead(ctx context.Context, uid string) (int, error)
	DeleteNotification(ctx context.Context, uid, id string) error

	// Audit logs (append-only)
	AppendAuditLog(ctx context.Context, entry *models.AuditLog) error
	ListAuditLogs(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, error)

	// 健康检查
	HealthCheck(ctx context.Context) error

	// 关闭连接
	Close() error
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	UseLocalDB    bool
	LocalDataDir  string
	PostgresDSN   string
	MongoURI      string
	MongoDatabase string
	Debug         bool
}

// Backend names the implementation NewDatabase would pick for the config.
func (c DatabaseConfig) Backend() string {
	switch {
	case c.MongoURI != "":
		return "mongo"
	case c.PostgresDSN != "":
		return "postgres"
	default:
		return "local"
	}
}

// NewDatabase 根据配置选择数据库实现: MongoDB > PostgreSQL > local
func NewDatabase(ctx context.Context, config DatabaseConfig) (DatabaseInterface, error) {
	if isServerlessEnvironment() && config.Backend() == "local" && !config.UseLocalDB {
		return nil, fmt.Errorf("no external database configured for serverless environment: set MONGO_URI or POSTGRES_DSN")
	}

	switch config.Backend() {
	case "mongo":
		slog.Info("using mongodb document store", "module", "database", "database", config.MongoDatabase)
		db, err := NewMongoDatabase(ctx, config.MongoURI, config.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return db, nil
	case "postgres":
		slog.Info("using postgresql database", "module", "database")
		db, err := NewPostgresDatabase(ctx, config.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		slog.Info("using local database", "module", "database", "data_dir", config.LocalDataDir)
		db, err := NewLocalDatabase(config.LocalDataDir)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
}

// isServerlessEnvironment 检查 Vercel / Lambda 环境
func isServerlessEnvironment() bool {
	return os.Getenv("VERCEL_ENV") != "" || os.Getenv("VERCEL_URL") != "" || os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
}
