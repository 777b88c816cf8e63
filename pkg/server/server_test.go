package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})
}

func TestServer_Lifecycle(t *testing.T) {
	srv := New(Config{Address: "127.0.0.1:0", Logger: testLogger()}, okHandler())

	if srv.IsRunning() {
		t.Fatal("new server reports running")
	}
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() before Start error = %v", err)
	}

	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !srv.IsRunning() {
		t.Fatal("started server reports not running")
	}
	if err := srv.Start(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start() error = %v, want ErrAlreadyRunning", err)
	}

	resp, err := http.Get("http://" + srv.Addr() + "/")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "ok" {
		t.Errorf("body = %q, want ok", body)
	}
	if resp.Header.Get(RequestIDHeader) == "" {
		t.Error("response is missing a request ID")
	}

	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if srv.IsRunning() {
		t.Error("server reports running after Shutdown")
	}
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}
	if err := srv.Start(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Start() after Shutdown error = %v, want ErrClosed", err)
	}
}

func TestServer_StopsOnContextCancel(t *testing.T) {
	srv := New(Config{Address: "127.0.0.1:0", Logger: testLogger()}, okHandler())

	ctx, cancel := context.WithCancel(context.Background())
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for srv.IsRunning() {
		if time.Now().After(deadline) {
			t.Fatal("server still running after context cancellation")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestServer_BindError(t *testing.T) {
	first := New(Config{Address: "127.0.0.1:0", Logger: testLogger()}, okHandler())
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer first.Shutdown(context.Background())

	second := New(Config{Address: first.Addr(), Logger: testLogger()}, okHandler())
	if err := second.Start(context.Background()); err == nil {
		second.Shutdown(context.Background())
		t.Fatal("Start() on a taken address succeeded")
	}
	if second.IsRunning() {
		t.Error("server reports running after a bind error")
	}
}

func TestNew_Defaults(t *testing.T) {
	srv := New(Config{Address: ":0"}, okHandler())

	if srv.config.ShutdownTimeout != DefaultShutdownTimeout {
		t.Errorf("ShutdownTimeout = %v, want %v", srv.config.ShutdownTimeout, DefaultShutdownTimeout)
	}
	if srv.config.ReadHeaderTimeout <= 0 {
		t.Error("ReadHeaderTimeout not defaulted")
	}
	if srv.logger == nil {
		t.Error("logger not defaulted")
	}
	if srv.Addr() != ":0" {
		t.Errorf("Addr() before Start = %q, want the configured address", srv.Addr())
	}
}
