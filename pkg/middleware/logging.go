package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"oms-backend/pkg/config"
)

// Logger 调试模式使用 chi 的彩色日志, 其余使用结构化请求日志
func Logger(cfg *config.Config, logger *slog.Logger) func(http.Handler) http.Handler {
	if cfg.Debug && cfg.IsDevelopment() {
		return middleware.Logger
	}
	return RequestLogger(logger)
}

// RequestLogger 记录每个请求的方法、路径、状态与耗时
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			user := "anonymous"
			if u, ok := GetUserFromContext(r.Context()); ok {
				user = u.ID
			}
			level := slog.LevelInfo
			if ww.Status() >= 500 {
				level = slog.LevelError
			}
			logger.Log(r.Context(), level, "http request",
				"module", "http",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"user", user,
				"ip", ClientIP(r),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// ClientIP 获取客户端IP地址 (代理头优先)
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
