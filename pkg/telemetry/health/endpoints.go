package health

import (
	"net/http"
	"runtime"

	"github.com/bytedance/sonic"
)

// Default endpoint paths used by Mount.
const (
	LivenessPath  = "/healthz"
	ReadinessPath = "/readyz"
	VersionPath   = "/version"
)

// VersionInfo contains build and version information.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// LivenessHandler returns an HTTP handler for the liveness probe endpoint.
//
// Example response:
//
//	{"status":"ok","timestamp":"2025-11-20T10:30:00Z"}
func (c *Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowRead(w, r) {
			return
		}
		writeJSON(w, r, http.StatusOK, c.CheckLiveness(r.Context()))
	}
}

// ReadinessHandler returns an HTTP handler running every registered check.
// It answers 200 when all checks pass and 503 otherwise.
//
// Example response (degraded):
//
//	{
//	    "status": "degraded",
//	    "checks": {
//	        "pipeline": {"status": "ok", "duration_ms": 0.01},
//	        "export": {"status": "unhealthy", "message": "export sink: connection refused", "duration_ms": 0.02}
//	    },
//	    "timestamp": "2025-11-20T10:30:00Z"
//	}
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowRead(w, r) {
			return
		}

		status := c.CheckReadiness(r.Context())

		code := http.StatusOK
		if status.Status != StatusReady {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, r, code, status)
	}
}

// VersionHandler returns an HTTP handler for the version information endpoint.
func VersionHandler(version, commit, buildTime string) http.HandlerFunc {
	info := VersionInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
		GoVersion: runtime.Version(),
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if !allowRead(w, r) {
			return
		}
		writeJSON(w, r, http.StatusOK, info)
	}
}

// Mount registers the liveness, readiness and version endpoints on mux.
//
//	mux := http.NewServeMux()
//	mux.Handle("/metrics", collector.Handler())
//	health.Mount(mux, checker, version, commit, buildDate)
func Mount(mux *http.ServeMux, checker *Checker, version, commit, buildTime string) {
	mux.HandleFunc(LivenessPath, checker.LivenessHandler())
	mux.HandleFunc(ReadinessPath, checker.ReadinessHandler())
	mux.HandleFunc(VersionPath, VersionHandler(version, commit, buildTime))
}

func allowRead(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if r.Method == http.MethodHead {
		return
	}

	body, err := sonic.ConfigStd.Marshal(v)
	if err != nil {
		return
	}
	_, _ = w.Write(append(body, '\n'))
}
