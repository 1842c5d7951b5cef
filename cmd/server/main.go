package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"oms-backend/pkg/config"
	"oms-backend/pkg/database"
	"oms-backend/pkg/events"
	"oms-backend/pkg/server"
)

func main() {
	cfg := config.LoadConfig()
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := run(context.Background(), cfg, logger); err != nil {
		logger.Error("server exited", "module", "main", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.IsDevelopment() {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts)).With("service", "oms-backend")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDatabase(ctx, server.DatabaseConfig(cfg))
	if err != nil {
		return err
	}
	defer db.Close()

	app, err := server.NewApp(ctx, cfg, logger, db, server.Options{})
	if err != nil {
		return err
	}
	defer app.Close()

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.NewRouter(app),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	server.RegisterHealth(grpcServer, server.NewHealthServer(db))
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return err
	}
	defer lis.Close()

	errCh := make(chan error, 3)
	go func() {
		logger.Info("http server listening", "module", "main", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		logger.Info("grpc health server listening", "module", "main", "addr", lis.Addr().String())
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- err
		}
	}()

	if cfg.UseKafka() {
		consumer, err := events.NewKafkaConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, []string{cfg.KafkaTopic})
		if err != nil {
			return err
		}
		defer consumer.Close()
		worker := events.NewConsumerWorker(logger, consumer, app.Dispatcher, time.Second)
		go func() {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- err
			}
		}()
	}

	return awaitShutdown(ctx, logger, errCh,
		func(context.Context) error { stop(); return nil },
		httpServer.Shutdown,
		func(context.Context) error { grpcServer.GracefulStop(); return nil },
	)
}

// awaitShutdown 等待退出信号或组件故障, 然后依次执行 shutdown 步骤.
// 组件故障会在清理后原样返回, 让进程以非零状态退出.
func awaitShutdown(ctx context.Context, logger *slog.Logger, errCh <-chan error, steps ...func(context.Context) error) error {
	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown requested", "module", "main")
	case runErr = <-errCh:
		logger.Error("runtime failure", "module", "main", "error", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, step := range steps {
		if err := step(shutdownCtx); err != nil {
			logger.Warn("shutdown step failed", "module", "main", "error", err)
		}
	}
	return runErr
}
