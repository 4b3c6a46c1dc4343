package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"towerkeep/server/internal/session"
	"towerkeep/server/internal/sim"
	"towerkeep/server/internal/telemetry"
	"towerkeep/server/logging"
)

// Authorizer resolves the authenticated user behind a request. Real
// deployments sit behind a gateway that validates credentials and
// forwards the identity; the server only needs the resulting user id.
type Authorizer interface {
	UserID(r *http.Request) (string, error)
}

// headerAuthorizer trusts the X-User-ID header set by the gateway.
type headerAuthorizer struct{}

func (headerAuthorizer) UserID(r *http.Request) (string, error) {
	id := r.Header.Get("X-User-ID")
	if id == "" {
		return "", errors.New("missing identity")
	}
	return id, nil
}

type api struct {
	manager   *session.Manager
	auth      Authorizer
	counters  *telemetry.Counters
	router    *logging.Router
	hub       *observerHub
	startedAt time.Time
}

func (a *api) routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/sessions/start", a.handleStart)
	mux.HandleFunc("POST /v1/sessions/{id}/segment", a.handleSegment)
	mux.HandleFunc("POST /v1/sessions/{id}/end", a.handleEnd)
	mux.HandleFunc("POST /v1/sessions/{id}/refresh-token", a.handleRefresh)
	mux.HandleFunc("GET /v1/sessions/active", a.handleActive)
	mux.HandleFunc("GET /healthz", a.handleHealthz)
	mux.HandleFunc("GET /diagnostics", a.handleDiagnostics)
	mux.HandleFunc("GET /ws/observe", a.hub.handleObserve)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "failed to encode", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError maps domain error codes onto HTTP statuses. Unknown errors
// become opaque 500s; the detail stays in the logs.
func writeError(w http.ResponseWriter, err error) {
	var sessErr *session.Error
	if !errors.As(err, &sessErr) {
		log.Printf("internal error: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Code: "INTERNAL", Message: "internal error"})
		return
	}
	status := http.StatusInternalServerError
	switch sessErr.Code {
	case session.CodeInvalidLoadout:
		status = http.StatusBadRequest
	case session.CodeSessionNotFound:
		status = http.StatusNotFound
	case session.CodeSessionForbidden:
		status = http.StatusForbidden
	case session.CodeSessionEnded:
		status = http.StatusConflict
	}
	writeJSON(w, status, errorResponse{Code: string(sessErr.Code), Message: sessErr.Message})
}

func (a *api) identify(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := a.auth.UserID(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Code: "UNAUTHORIZED", Message: err.Error()})
		return "", false
	}
	return userID, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "BAD_REQUEST", Message: "malformed request body"})
		return false
	}
	return true
}

func (a *api) handleStart(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.identify(w, r)
	if !ok {
		return
	}
	var req session.StartRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := a.manager.Start(r.Context(), userID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (a *api) handleSegment(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.identify(w, r)
	if !ok {
		return
	}
	var req session.SegmentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	// A rejected segment is a 200 with verified:false; only protocol
	// violations (bad token, unknown session) become error statuses.
	res, err := a.manager.SubmitSegment(r.Context(), userID, r.PathValue("id"), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *api) handleEnd(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.identify(w, r)
	if !ok {
		return
	}
	var req session.EndRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := a.manager.End(r.Context(), userID, r.PathValue("id"), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *api) handleRefresh(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.identify(w, r)
	if !ok {
		return
	}
	var req session.RefreshRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := a.manager.Refresh(r.Context(), userID, r.PathValue("id"), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *api) handleActive(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.identify(w, r)
	if !ok {
		return
	}
	res, err := a.manager.Active(userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *api) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("ok"))
}

func (a *api) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	payload := struct {
		Status        string            `json:"status"`
		SimVersion    string            `json:"simVersion"`
		UptimeSeconds int64             `json:"uptimeSeconds"`
		Counters      map[string]uint64 `json:"counters"`
		Observers     int               `json:"observers"`
		LogEvents     uint64            `json:"logEvents"`
		LogDropped    uint64            `json:"logDropped"`
	}{
		Status:        "ok",
		SimVersion:    sim.SimVersion,
		UptimeSeconds: int64(time.Since(a.startedAt).Seconds()),
		Counters:      a.counters.Snapshot(),
		Observers:     a.hub.count(),
	}
	if a.router != nil {
		stats := a.router.Stats()
		payload.LogEvents = stats.EventsTotal
		payload.LogDropped = stats.DroppedTotal
	}
	writeJSON(w, http.StatusOK, payload)
}
