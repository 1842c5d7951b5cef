package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
)

func TestAwaitShutdownReturnsRuntimeFailure(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	errCh := make(chan error, 1)
	boom := errors.New("listen tcp :8080: address already in use")
	errCh <- boom

	var ran []string
	err := awaitShutdown(context.Background(), logger, errCh,
		func(context.Context) error { ran = append(ran, "http"); return nil },
		func(context.Context) error { ran = append(ran, "grpc"); return errors.New("already stopped") },
	)
	if !errors.Is(err, boom) {
		t.Fatalf("expected the runtime failure to be returned, got %v", err)
	}
	if len(ran) != 2 || ran[0] != "http" || ran[1] != "grpc" {
		t.Fatalf("shutdown steps did not all run in order: %v", ran)
	}
}

func TestAwaitShutdownOnSignalIsClean(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stopped := false
	err := awaitShutdown(ctx, logger, make(chan error),
		func(context.Context) error { stopped = true; return nil },
	)
	if err != nil {
		t.Fatalf("signal shutdown should exit cleanly, got %v", err)
	}
	if !stopped {
		t.Fatal("shutdown step was not run")
	}
}
