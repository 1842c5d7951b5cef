package handler

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"oms-backend/pkg/config"
	"oms-backend/pkg/database"
	"oms-backend/pkg/server"
	"oms-backend/pkg/utils"
)

var (
	appOnce   sync.Once
	appRouter http.Handler
	appErr    error
)

// Handler 是Vercel函数的入口点
// 冷启动时构建一次应用 (配置, 数据库, 路由), 之后的请求复用
func Handler(w http.ResponseWriter, r *http.Request) {
	appOnce.Do(func() {
		appRouter, appErr = build(r.Context())
	})
	if appErr != nil {
		utils.WriteErrorResponseWithCode(w, http.StatusInternalServerError, "CONFIGURATION_ERROR",
			"Configuration error: "+appErr.Error(), nil)
		return
	}
	appRouter.ServeHTTP(w, r)
}

func build(ctx context.Context) (http.Handler, error) {
	cfg := config.GetCached()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	db, err := database.GetDatabase(context.WithoutCancel(ctx), server.DatabaseConfig(cfg))
	if err != nil {
		return nil, err
	}
	// 无常驻消费者, 领域事件在进程内分发
	app, err := server.NewApp(context.WithoutCancel(ctx), cfg, logger, db, server.Options{InlineEvents: true})
	if err != nil {
		return nil, err
	}
	return server.NewRouter(app), nil
}
