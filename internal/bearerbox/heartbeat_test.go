package bearerbox_test

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/pruiz/wapbox/internal/bearerbox"
)

func TestRunHeartbeatSendsAndSamples(t *testing.T) {
	t.Parallel()

	a, b := net.Pipe()
	t.Cleanup(func() { a.Close(); b.Close() })

	client := bearerbox.NewConnFromNetConn(a)
	server := bearerbox.NewConnFromNetConn(b)

	var mu sync.Mutex
	var samples []float64
	onSample := func(load1 float64) {
		mu.Lock()
		samples = append(samples, load1)
		mu.Unlock()
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	logger := slog.New(slog.DiscardHandler)
	runErr := make(chan error, 1)
	go func() { runErr <- bearerbox.RunHeartbeat(ctx, client, 10*time.Millisecond, onSample, logger) }()

	got, err := server.ReadMsg()
	if err != nil {
		t.Fatalf("ReadMsg: %v", err)
	}
	if got.Kind != bearerbox.MsgHeartbeat {
		t.Errorf("Kind = %v, want MsgHeartbeat", got.Kind)
	}

	cancel()
	select {
	case <-runErr:
	case <-time.After(2 * time.Second):
		t.Fatal("RunHeartbeat did not return after cancel")
	}

	mu.Lock()
	n := len(samples)
	mu.Unlock()
	if n == 0 {
		t.Error("onSample was never called")
	}
}

func TestRunHeartbeatStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	a, b := net.Pipe()
	t.Cleanup(func() { a.Close(); b.Close() })
	client := bearerbox.NewConnFromNetConn(a)

	// Drain frames so WriteMsg never blocks forever before cancellation.
	drain := bearerbox.NewConnFromNetConn(b)
	go func() {
		for {
			if _, err := drain.ReadMsg(); err != nil {
				return
			}
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	logger := slog.New(slog.DiscardHandler)

	runErr := make(chan error, 1)
	go func() { runErr <- bearerbox.RunHeartbeat(ctx, client, time.Millisecond, nil, logger) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-runErr:
		if err != nil {
			t.Errorf("RunHeartbeat returned %v, want nil after cancel", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("RunHeartbeat did not return after cancel")
	}
}
