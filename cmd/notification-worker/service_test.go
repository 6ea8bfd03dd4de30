package main

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/angelmondragon/tablebook-backend/pkg/logger"
)

func TestServiceRunStopsOnFailedPing(t *testing.T) {
	cons := &fakeConsumer{}
	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Redis:    func(context.Context) error { return errors.New("redis down") },
		PubSub:   okPing,
		Consumer: cons,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if err := svc.Run(context.Background()); err == nil {
		t.Fatal("expected readiness error")
	}
	if cons.runs != 0 {
		t.Fatal("consumer must not start before dependencies are ready")
	}
}

func TestServiceRunReturnsConsumerFailure(t *testing.T) {
	boom := errors.New("subscription gone")
	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Redis:    okPing,
		PubSub:   okPing,
		Consumer: &fakeConsumer{err: boom},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if err := svc.Run(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected consumer error, got %v", err)
	}
}

func TestServiceRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cons := &fakeConsumer{err: context.Canceled}
	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Redis:    okPing,
		PubSub:   okPing,
		Consumer: cons,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if err := svc.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	if cons.runs != 1 {
		t.Fatalf("expected consumer to run once, got %d", cons.runs)
	}
}

func TestNewServiceValidation(t *testing.T) {
	if _, err := NewService(ServiceParams{}); err == nil {
		t.Fatal("expected missing logger error")
	}
	if _, err := NewService(ServiceParams{Logger: testLogger(), Redis: okPing, PubSub: okPing}); err == nil {
		t.Fatal("expected missing consumer error")
	}
}

func okPing(context.Context) error { return nil }

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "notification-worker-test", Output: io.Discard})
}

type fakeConsumer struct {
	runs int
	err  error
}

func (f *fakeConsumer) Run(ctx context.Context) error {
	f.runs++
	return f.err
}
