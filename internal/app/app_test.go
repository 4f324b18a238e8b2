package app

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/draftball/draft-league/internal/config"
	"github.com/draftball/draft-league/internal/platform/logging"
)

func TestApplication_Run_ReturnsWhenHTTPServerCannotListen(t *testing.T) {
	t.Parallel()

	// Hold the port so the app's listener fails at startup.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserve port: %v", err)
	}
	defer ln.Close()

	cfg := config.Config{
		HTTPAddr:           ln.Addr().String(),
		APIFootballEnabled: true,
		APIFootballKey:     "test-key",
		PollEnabled:        true,
		PollInterval:       10 * time.Millisecond,
		PollMaxWorkers:     1,
	}

	application, err := New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("build app: %v", err)
	}
	defer func() { _ = application.Close() }()

	done := make(chan error, 1)
	go func() {
		done <- application.Run(context.Background())
	}()

	// The poll loop must not keep Run alive once the server has failed.
	select {
	case runErr := <-done:
		if runErr == nil {
			t.Fatalf("expected a listen error from Run")
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not return after the http server failed to start")
	}
}
