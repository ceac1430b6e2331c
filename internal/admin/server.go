// Package admin implements the inspection HTTP endpoint for the wapbox
// daemon (spec.md Section 6 "admin server").
//
// Grounded on internal/server/server.go's thin-adapter pattern (a
// constructor returning a mountable handler, delegating to the live
// domain state for every response) but re-expressed over plain
// net/http instead of ConnectRPC/protobuf: the admin surface here is
// read-only JSON, not an RPC service, so there is no generated stub to
// adapt.
package admin

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appversion "github.com/pruiz/wapbox/internal/version"
	"github.com/pruiz/wapbox/internal/wap"
)

// Deps is the live state the admin server reports on. Registry may be
// nil, in which case the metrics endpoint is not mounted.
type Deps struct {
	Sessions *wap.SessionTable
	Registry *prometheus.Registry
}

// New builds the admin mux: /healthz, /version, /sessions,
// /sessions/{id}/methods, and the Prometheus metrics endpoint at
// metricsPath.
func New(deps Deps, metricsPath string, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /version", handleVersion)
	mux.HandleFunc("GET /sessions", handleSessions(deps))
	mux.HandleFunc("GET /sessions/{id}/methods", handleSessionMethods(deps))
	if deps.Registry != nil {
		mux.Handle("GET "+metricsPath, promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	return LoggingMiddleware(logger)(mux)
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version":    appversion.Version,
		"git_commit": appversion.GitCommit,
		"build_date": appversion.BuildDate,
	})
}

// sessionView is the JSON projection of a live wap.Session.
type sessionView struct {
	SessionID     uint32 `json:"session_id"`
	State         string `json:"state"`
	RemoteAddr    string `json:"remote_addr"`
	ClientSDUSize uint32 `json:"client_sdu_size"`
	ServerSDUSize uint32 `json:"server_sdu_size"`
	MethodCount   int    `json:"method_count"`
}

func handleSessions(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		sessions := deps.Sessions.All()
		views := make([]sessionView, 0, len(sessions))
		for _, s := range sessions {
			views = append(views, sessionView{
				SessionID:     s.SessionID,
				State:         s.State.String(),
				RemoteAddr:    s.Addr.RemoteAddr.String(),
				ClientSDUSize: s.ClientSDUSize,
				ServerSDUSize: s.ServerSDUSize,
				MethodCount:   len(s.Methods),
			})
		}
		writeJSON(w, http.StatusOK, views)
	}
}

type methodView struct {
	TransactionID uint32 `json:"transaction_id"`
	State         string `json:"state"`
}

func handleSessionMethods(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
		if err != nil {
			http.Error(w, "invalid session id", http.StatusBadRequest)
			return
		}

		s, ok := deps.Sessions.ByID(uint32(id))
		if !ok {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}

		views := make([]methodView, 0, len(s.Methods))
		for _, m := range s.Methods {
			views = append(views, methodView{
				TransactionID: uint32(m.TransactionID),
				State:         m.State.String(),
			})
		}
		writeJSON(w, http.StatusOK, views)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
