package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"oms-backend/pkg/config"
	"oms-backend/pkg/utils"
)

// Recovery 恢复中间件，处理panic并返回500信封
func Recovery(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				stack := debug.Stack()
				slog.ErrorContext(r.Context(), "panic recovered",
					"module", "middleware.recovery",
					"operation", r.Method+" "+r.URL.Path,
					"outcome", "panic",
					"error", fmt.Sprint(rec),
					"stack", string(stack),
				)
				if cfg.IsDevelopment() {
					utils.WriteErrorResponseWithCode(w, http.StatusInternalServerError,
						"INTERNAL_SERVER_ERROR", fmt.Sprintf("Internal server error: %v", rec), string(stack))
					return
				}
				utils.WriteInternalServerErrorResponse(w, "Internal server error occurred")
			}()

			next.ServeHTTP(w, r)
		})
	}
}
