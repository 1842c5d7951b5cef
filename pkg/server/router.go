package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"oms-backend/pkg/handlers"
	customMiddleware "oms-backend/pkg/middleware"
	"oms-backend/pkg/models"
	"oms-backend/pkg/utils"
)

// JSON 请求体上限 (上传路由单独限制)
const maxJSONBody = 1 << 20

// NewRouter 构建单体路由: 所有 API 端点集中在一个 chi 路由器中
func NewRouter(app *App) http.Handler {
	router := chi.NewRouter()
	setupMiddleware(router, app)
	setupRoutes(router, app)
	return router
}

// setupMiddleware 设置全局中间件
func setupMiddleware(router *chi.Mux, app *App) {
	cfg := app.Config
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(customMiddleware.Normalize())
	router.Use(customMiddleware.Recovery(cfg))
	router.Use(customMiddleware.Logger(cfg, app.Logger))
	router.Use(customMiddleware.CORS(cfg))
	router.Use(middleware.Timeout(25 * time.Second))

	if cfg.RateLimitPerMinute > 0 {
		router.Use(customMiddleware.RateLimitByIP(app.Cache, cfg.RateLimitPerMinute))
	}
	if cfg.IsDevelopment() {
		router.Use(middleware.Heartbeat("/ping"))
	}
}

// setupRoutes 设置所有API路由
func setupRoutes(router *chi.Mux, app *App) {
	cfg, db := app.Config, app.DB

	healthHandler := handlers.NewHealthHandler(cfg, db)
	authHandler := handlers.NewAuthHandler(cfg, db, app.JWT)
	orgsHandler := handlers.NewOrgsHandler(cfg, db, app.Cache, app.Memberships)
	membershipHandler := handlers.NewMembershipHandler(app.Memberships)
	eventsHandler := handlers.NewEventsHandler(cfg, db)
	commentsHandler := handlers.NewCommentsHandler(db)
	tasksHandler := handlers.NewTasksHandler(db, app.Publisher)
	notificationsHandler := handlers.NewNotificationsHandler(db, app.Dispatcher)
	calendarHandler := handlers.NewCalendarHandler(db)
	uploadHandler := handlers.NewUploadHandler(app.Uploader)
	adminHandler := handlers.NewAdminHandler(db, app.Moderator)

	officer := customMiddleware.RequireRole(models.RoleOrganization)
	admin := customMiddleware.RequireRole(models.RoleAdmin)

	// 健康检查端点
	router.Get("/", healthHandler.HealthCheck)
	router.Get("/healthz", healthHandler.HealthCheck)

	router.Route("/api", func(r chi.Router) {
		// 上传走 multipart, 其余均为 JSON
		r.With(customMiddleware.AuthMiddleware(app.JWT)).Post("/upload", uploadHandler.Upload)

		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.MaxBodySize(maxJSONBody))
			r.Use(customMiddleware.ContentTypeJSON)

			// 公开路由（不需要认证）
			r.Route("/auth", func(r chi.Router) {
				r.Post("/register", authHandler.Register)
				r.Post("/login", authHandler.Login)
				r.Post("/refresh", authHandler.RefreshToken)
				r.Get("/oauth/google/url", authHandler.GoogleAuthURL)
				r.Post("/oauth/google", authHandler.GoogleOAuth)
			})

			// 服务间调用
			r.With(customMiddleware.ServiceKey(cfg.ServiceAPIKeyHash)).
				Post("/internal/notifications", notificationsHandler.CreateInternal)

			// 需要认证的路由
			r.Group(func(r chi.Router) {
				r.Use(customMiddleware.AuthMiddleware(app.JWT))

				r.Route("/me", func(r chi.Router) {
					r.Get("/", authHandler.Me)
					r.Put("/", authHandler.UpdateMe)
					r.Get("/applications", membershipHandler.Applications)
					r.Post("/applications/seen", membershipHandler.MarkSeen)
					r.Get("/events", eventsHandler.ListEngaged)
				})

				r.Route("/organizations", func(r chi.Router) {
					r.Get("/", orgsHandler.ListOrganizations)
					r.Get("/{id}", orgsHandler.GetOrganization)
					r.With(officer).Put("/{id}", orgsHandler.UpdateOrganization)
					r.With(officer).Post("/{id}/acceptance-seen", orgsHandler.MarkAcceptanceSeen)
					r.With(customMiddleware.RequireRole(models.RoleMember)).Post("/{id}/join", orgsHandler.RequestJoin)
					r.With(customMiddleware.RequireRole(models.RoleOrganization, models.RoleAdmin)).
						Get("/{id}/members", orgsHandler.ListJoinRequests)
				})

				r.With(customMiddleware.RequireRole(models.RoleOrganization, models.RoleAdmin)).
					Post("/members/{requestId}/decision", membershipHandler.Decide)

				r.Route("/events", func(r chi.Router) {
					r.Get("/", eventsHandler.ListEvents)
					r.With(officer).Post("/", eventsHandler.CreateEvent)
					r.With(officer).Get("/mine", eventsHandler.ListMine)
					r.Get("/{id}", eventsHandler.GetEvent)
					r.With(officer).Put("/{id}", eventsHandler.UpdateEvent)
					r.With(customMiddleware.RequireRole(models.RoleOrganization, models.RoleAdmin)).
						Delete("/{id}", eventsHandler.DeleteEvent)
					r.Post("/{id}/like", eventsHandler.ToggleLike)
					r.Post("/{id}/interest", eventsHandler.ToggleInterest)
					r.Get("/{id}/comments", commentsHandler.ListComments)
					r.Post("/{id}/comments", commentsHandler.CreateComment)
					r.Post("/{id}/comments/{commentId}/replies", commentsHandler.CreateReply)
				})

				r.Route("/tasks", func(r chi.Router) {
					r.Get("/", tasksHandler.ListTasks)
					r.With(officer).Post("/", tasksHandler.CreateTask)
					r.With(officer).Put("/{id}", tasksHandler.UpdateTask)
					r.With(officer).Delete("/{id}", tasksHandler.DeleteTask)
					r.Post("/{id}/toggle", tasksHandler.ToggleTask)
				})

				r.Route("/notifications", func(r chi.Router) {
					r.Get("/", notificationsHandler.List)
					r.Post("/read-all", notificationsHandler.MarkAllRead)
					r.Post("/{id}/read", notificationsHandler.MarkRead)
					r.Delete("/{id}", notificationsHandler.Delete)
				})

				r.Route("/calendar", func(r chi.Router) {
					r.Get("/", calendarHandler.Entries)
					r.Get("/month", calendarHandler.Month)
				})

				// 管理员路由
				r.Route("/admin", func(r chi.Router) {
					r.Use(admin)
					r.Get("/organizations/pending", adminHandler.PendingOrganizations)
					r.Post("/organizations/bulk-decision", adminHandler.BulkOrganizations)
					r.Post("/organizations/{id}/decision", adminHandler.DecideOrganization)
					r.Get("/events/pending", adminHandler.PendingEvents)
					r.Post("/events/bulk-decision", adminHandler.BulkEvents)
					r.Post("/events/{id}/decision", adminHandler.DecideEvent)
					r.Get("/audit-logs", adminHandler.AuditLogs)
				})
			})
		})
	})

	// 404处理
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteNotFoundResponse(w, fmt.Sprintf("Route not found: %s %s", r.Method, r.URL.Path))
	})

	// 405处理
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteErrorResponseWithCode(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			fmt.Sprintf("Method %s not allowed for %s", r.Method, r.URL.Path), nil)
	})
}
