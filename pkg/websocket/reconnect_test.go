package websocket

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestReconnectBackoffIncrement(t *testing.T) {
	rm := NewReconnectManager(ReconnectConfig{
		InitialDelay:      100 * time.Millisecond,
		MaxDelay:          time.Second,
		BackoffMultiplier: 2.0,
		JitterPercent:     0,
	}, zap.NewNop())

	expected := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		time.Second,
		time.Second, // capped
	}

	for i, want := range expected {
		got := rm.nextBackoff()
		if got != want {
			t.Errorf("backoff %d: got %v, want %v", i, got, want)
		}
		rm.incrementBackoff()
	}
}

func TestReconnectReset(t *testing.T) {
	rm := NewReconnectManager(ReconnectConfig{
		InitialDelay:      50 * time.Millisecond,
		MaxDelay:          time.Second,
		BackoffMultiplier: 2.0,
		JitterPercent:     0,
	}, zap.NewNop())

	rm.incrementBackoff()
	rm.incrementBackoff()
	rm.Reset()

	if got := rm.nextBackoff(); got != 50*time.Millisecond {
		t.Errorf("after reset: got %v, want 50ms", got)
	}
}

func TestReconnectJitterBounds(t *testing.T) {
	rm := NewReconnectManager(ReconnectConfig{
		InitialDelay:      100 * time.Millisecond,
		MaxDelay:          time.Second,
		BackoffMultiplier: 2.0,
		JitterPercent:     0.2,
	}, zap.NewNop())

	for i := 0; i < 100; i++ {
		got := rm.nextBackoff()
		if got < 100*time.Millisecond || got > 120*time.Millisecond {
			t.Fatalf("jittered backoff %v outside [100ms, 120ms]", got)
		}
	}
}

func TestReconnectSucceedsAfterFailures(t *testing.T) {
	rm := NewReconnectManager(ReconnectConfig{
		InitialDelay:      time.Millisecond,
		MaxDelay:          5 * time.Millisecond,
		BackoffMultiplier: 2.0,
		JitterPercent:     0,
	}, zap.NewNop())

	attempts := 0
	connect := func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("dial refused")
		}
		return nil
	}

	err := rm.Reconnect(context.Background(), connect)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("got %d attempts, want 3", attempts)
	}

	// Backoff resets after success
	if got := rm.nextBackoff(); got != time.Millisecond {
		t.Errorf("backoff after success: got %v, want 1ms", got)
	}
}

func TestReconnectStopsOnContextCancel(t *testing.T) {
	rm := NewReconnectManager(ReconnectConfig{
		InitialDelay:      time.Millisecond,
		MaxDelay:          5 * time.Millisecond,
		BackoffMultiplier: 2.0,
		JitterPercent:     0,
	}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	connect := func(ctx context.Context) error {
		cancel()
		return errors.New("dial refused")
	}

	err := rm.Reconnect(ctx, connect)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}
