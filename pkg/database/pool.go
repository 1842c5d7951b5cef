package database

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DatabasePool 进程级数据库连接缓存 (serverless 冷启动复用)
type DatabasePool struct {
	instance DatabaseInterface
	config   DatabaseConfig
	mu       sync.RWMutex
	lastUsed time.Time
}

var (
	globalPool *DatabasePool
	poolMutex  sync.Mutex
)

// GetDatabase 获取数据库连接（单例 + 健康检查后重建）
func GetDatabase(ctx context.Context, config DatabaseConfig) (DatabaseInterface, error) {
	poolMutex.Lock()
	defer poolMutex.Unlock()

	if globalPool != nil && !shouldRecreateConnection(ctx, globalPool, config) {
		globalPool.mu.Lock()
		globalPool.lastUsed = time.Now()
		globalPool.mu.Unlock()
		return globalPool.instance, nil
	}

	if globalPool != nil && globalPool.instance != nil {
		_ = globalPool.instance.Close()
	}

	slog.Info("creating database connection", "module", "database.pool", "backend", config.Backend())
	instance, err := NewDatabase(ctx, config)
	if err != nil {
		globalPool = nil
		return nil, err
	}
	globalPool = &DatabasePool{
		instance: instance,
		config:   config,
		lastUsed: time.Now(),
	}
	return instance, nil
}

// shouldRecreateConnection 判断是否需要重新创建连接
func shouldRecreateConnection(ctx context.Context, pool *DatabasePool, newConfig DatabaseConfig) bool {
	if pool == nil || pool.instance == nil {
		return true
	}

	if pool.config != newConfig {
		slog.Info("database configuration changed, recreating connection", "module", "database.pool")
		return true
	}

	pool.mu.RLock()
	expired := time.Since(pool.lastUsed) > 30*time.Minute
	pool.mu.RUnlock()
	if expired {
		slog.Info("database connection expired, recreating", "module", "database.pool")
		return true
	}

	checkCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pool.instance.HealthCheck(checkCtx); err != nil {
		slog.Warn("database health check failed, recreating", "module", "database.pool", "error", err)
		return true
	}
	return false
}

// GetConnectionStats 获取连接池统计信息
func GetConnectionStats() map[string]interface{} {
	poolMutex.Lock()
	defer poolMutex.Unlock()

	if globalPool == nil {
		return map[string]interface{}{
			"status":    "no_connection",
			"last_used": nil,
		}
	}

	globalPool.mu.RLock()
	lastUsed := globalPool.lastUsed
	globalPool.mu.RUnlock()

	return map[string]interface{}{
		"status":    "connected",
		"backend":   globalPool.config.Backend(),
		"last_used": lastUsed.Format(time.RFC3339),
		"idle":      time.Since(lastUsed).String(),
	}
}
