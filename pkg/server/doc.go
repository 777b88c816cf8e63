// Package server provides the HTTP server exposing Prometheus metrics and
// health probes of a running span pipeline.
//
// The server manages its own lifecycle: Start binds the listener and
// returns, serving continues in the background until the context passed
// to Start is cancelled or Shutdown is called.
//
//	mux := http.NewServeMux()
//	mux.Handle("/metrics", collector.Handler())
//	health.Mount(mux, checker, version, commit, buildDate)
//
//	srv := server.New(server.Config{Address: ":9090", Logger: logger.Slog()}, mux)
//	if err := srv.Start(ctx); err != nil {
//		return err
//	}
//	defer srv.Shutdown(context.Background())
//
// Every request passes through panic recovery, request ID assignment
// (X-Request-ID, a UUID when the client sends none) and request logging.
package server
