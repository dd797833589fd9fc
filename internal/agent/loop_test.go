package agent

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestRun_StopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	var ticks atomic.Int32

	done := make(chan struct{})
	go func() {
		defer close(done)
		Run(ctx, time.Hour, func(context.Context) time.Duration {
			if ticks.Add(1) == 1 {
				cancel()
			}
			return time.Hour
		}, nil)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop after cancellation")
	}
	if ticks.Load() != 1 {
		t.Fatalf("expected exactly one tick, got %d", ticks.Load())
	}
}

func TestRun_PanickingTickDoesNotKillLoop(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var ticks atomic.Int32
	var recovered atomic.Int32

	done := make(chan struct{})
	go func() {
		defer close(done)
		Run(ctx, time.Millisecond, func(context.Context) time.Duration {
			switch ticks.Add(1) {
			case 1:
				panic("cycle exploded")
			default:
				cancel()
				return time.Hour
			}
		}, func(v any) {
			recovered.Add(1)
		})
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop stalled after a panic")
	}
	if ticks.Load() != 2 {
		t.Fatalf("expected the tick after the panic to run, got %d ticks", ticks.Load())
	}
	if recovered.Load() != 1 {
		t.Fatalf("panic hook fired %d times", recovered.Load())
	}
}

func TestRun_TickControlsCadence(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var ticks atomic.Int32
	done := make(chan struct{})
	go func() {
		defer close(done)
		Run(ctx, time.Hour, func(context.Context) time.Duration {
			if ticks.Add(1) == 3 {
				cancel()
			}
			// Variable cadence: the tick decides the next sleep
			return time.Millisecond
		}, nil)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("short sleeps were not honored")
	}
	if ticks.Load() != 3 {
		t.Fatalf("expected 3 ticks, got %d", ticks.Load())
	}
}
