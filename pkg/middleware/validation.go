package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"oms-backend/pkg/cache"
	"oms-backend/pkg/utils"
)

// ContentTypeJSON 验证请求Content-Type为application/json
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if (r.Method == http.MethodPost || r.Method == http.MethodPut) && r.ContentLength != 0 {
			contentType := r.Header.Get("Content-Type")
			if contentType == "" {
				utils.WriteBadRequestResponse(w, "Content-Type header is required")
				return
			}
			if !strings.HasPrefix(strings.ToLower(contentType), "application/json") {
				utils.WriteErrorResponseWithCode(w, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE",
					"Content-Type must be application/json", nil)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// MaxBodySize 限制请求体大小
func MaxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// ServiceKey 校验 X-Service-Key 头与配置的 bcrypt 哈希; 未配置哈希时拒绝所有请求
func ServiceKey(hash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := r.Header.Get("X-Service-Key")
			if hash == "" || provided == "" {
				utils.WriteUnauthorizedResponse(w, "Invalid service key")
				return
			}
			if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(provided)); err != nil {
				utils.WriteUnauthorizedResponse(w, "Invalid service key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitByIP 固定窗口的 IP 限流, 计数存放在共享缓存中 (Redis 时跨实例生效)
func RateLimitByIP(c cache.Cache, requestsPerMinute int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if c == nil || requestsPerMinute <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			window := time.Now().Unix() / 60
			key := "ratelimit:" + ClientIP(r) + ":" + strconv.FormatInt(window, 10)
			n, err := c.IncrWithTTL(r.Context(), key, time.Minute)
			if err != nil {
				// fail open: the limiter must not take the API down with the cache
				slog.WarnContext(r.Context(), "rate limiter unavailable", "module", "middleware.ratelimit", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if n > int64(requestsPerMinute) {
				utils.WriteTooManyRequestsResponse(w, int(60-time.Now().Unix()%60))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
