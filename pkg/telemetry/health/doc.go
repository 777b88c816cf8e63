// Package health exposes liveness and readiness probes for a running span
// pipeline.
//
// Readiness is the conjunction of registered checks. The checks shipped
// here cover the pipeline itself (PipelineCheck) and its sinks
// (SinkCheck), which turn the Guard's sticky Chrome write error and the
// outcome of the latest remote export into probe results:
//
//	checker := health.New(2 * time.Second)
//	checker.RegisterCheck("pipeline", health.PipelineCheck(guard.Pipeline()))
//	checker.RegisterCheck("chrome", health.SinkCheck("chrome", guard.ChromeErr))
//	checker.RegisterCheck("export", health.SinkCheck("export", guard.ExportErr))
//
//	mux := http.NewServeMux()
//	health.Mount(mux, checker, version, commit, buildDate)
//
// A failed export does not stop the pipeline; it only marks the process
// degraded until the next export succeeds.
package health
