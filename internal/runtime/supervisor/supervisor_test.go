package supervisor

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestStopWaitsForGoroutines(t *testing.T) {
	sup := New(context.Background())

	done := make(chan struct{})
	sup.Go0("worker", func(ctx context.Context) {
		<-ctx.Done()
		close(done)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := sup.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	select {
	case <-done:
	default:
		t.Fatal("worker still running after Stop")
	}
	if got := sup.Active(); got != 0 {
		t.Fatalf("active = %d after Stop", got)
	}
}

func TestFirstErrorIsKept(t *testing.T) {
	sup := New(context.Background())

	first := errors.New("boom")
	sup.Go("a", func(context.Context) error { return first })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := sup.Stop(ctx)
	if !errors.Is(err, first) {
		t.Fatalf("Stop = %v, want wrapped %v", err, first)
	}
}

func TestPanicIsRecovered(t *testing.T) {
	sup := New(context.Background())
	sup.Go("p", func(context.Context) error { panic("kaboom") })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := sup.Stop(ctx)
	if err == nil {
		t.Fatal("panic did not surface as an error")
	}
}

func TestContextCancelIsCleanStop(t *testing.T) {
	sup := New(context.Background())
	sup.Go("c", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	sup.Cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := sup.Wait(ctx); err != nil {
		t.Fatalf("Wait = %v, want nil for context.Canceled exit", err)
	}
}
