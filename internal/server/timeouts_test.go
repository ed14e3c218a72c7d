package server

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/yanizio/formaly/internal/config"
)

func TestNew_UsesConfig(t *testing.T) {
	srv := New(config.HTTP{
		ListenAddr:   ":9000",
		ReadTimeout:  time.Second,
		WriteTimeout: 2 * time.Second,
		IdleTimeout:  3 * time.Second,
	}, http.NotFoundHandler())

	if srv.Addr != ":9000" || srv.ReadTimeout != time.Second ||
		srv.WriteTimeout != 2*time.Second || srv.IdleTimeout != 3*time.Second {
		t.Fatalf("server = %+v", srv)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	srv := New(config.HTTP{ListenAddr: "127.0.0.1:0"}, http.NotFoundHandler())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- Run(ctx, srv) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}
