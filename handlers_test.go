package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"towerkeep/server/internal/session"
	"towerkeep/server/internal/storage"
	"towerkeep/server/internal/telemetry"
)

func newTestServer(t *testing.T) (*httptest.Server, *api) {
	t.Helper()
	store, err := storage.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	counters := telemetry.NewCounters()
	manager := session.NewManager(session.ManagerConfig{}, session.Deps{
		Store:    store,
		Counters: counters,
	})
	server := &api{
		manager:   manager,
		auth:      headerAuthorizer{},
		counters:  counters,
		hub:       newObserverHub(),
		startedAt: time.Now(),
	}
	mux := http.NewServeMux()
	server.routes(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts, server
}

func doJSON(t *testing.T, ts *httptest.Server, method, path, userID string, body, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	} else {
		buf.WriteString("{}")
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func TestStartRequiresIdentity(t *testing.T) {
	ts, _ := newTestServer(t)
	status := doJSON(t, ts, http.MethodPost, "/v1/sessions/start", "", nil, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", status)
	}
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	ts, _ := newTestServer(t)

	var start session.StartResult
	if status := doJSON(t, ts, http.MethodPost, "/v1/sessions/start", "alice", session.StartRequest{}, &start); status != http.StatusCreated {
		t.Fatalf("start status = %d", status)
	}
	if start.SessionID == "" || start.SessionToken == "" {
		t.Fatalf("incomplete start result: %+v", start)
	}

	var active session.ActiveResult
	if status := doJSON(t, ts, http.MethodGet, "/v1/sessions/active", "alice", nil, &active); status != http.StatusOK {
		t.Fatalf("active status = %d", status)
	}
	if active.SessionID != start.SessionID {
		t.Fatalf("active session %q, want %q", active.SessionID, start.SessionID)
	}

	var refresh session.RefreshResult
	status := doJSON(t, ts, http.MethodPost, "/v1/sessions/"+start.SessionID+"/refresh-token", "alice",
		session.RefreshRequest{SessionToken: start.SessionToken}, &refresh)
	if status != http.StatusOK {
		t.Fatalf("refresh status = %d", status)
	}
	if refresh.SessionToken == start.SessionToken {
		t.Fatalf("refresh did not rotate the token")
	}

	var end session.EndResult
	status = doJSON(t, ts, http.MethodPost, "/v1/sessions/"+start.SessionID+"/end", "alice",
		session.EndRequest{SessionToken: refresh.SessionToken, Reason: "player_quit"}, &end)
	if status != http.StatusOK {
		t.Fatalf("end status = %d", status)
	}

	if status := doJSON(t, ts, http.MethodGet, "/v1/sessions/active", "alice", nil, nil); status != http.StatusNotFound {
		t.Fatalf("active after end status = %d, want 404", status)
	}
}

func TestSegmentForeignUserForbidden(t *testing.T) {
	ts, _ := newTestServer(t)

	var start session.StartResult
	doJSON(t, ts, http.MethodPost, "/v1/sessions/start", "alice", session.StartRequest{}, &start)

	status := doJSON(t, ts, http.MethodPost, "/v1/sessions/"+start.SessionID+"/segment", "mallory",
		session.SegmentRequest{SessionToken: start.SessionToken, StartWave: 0, EndWave: 1}, nil)
	if status != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", status)
	}
}

func TestUnknownSessionIsNotFound(t *testing.T) {
	ts, _ := newTestServer(t)
	status := doJSON(t, ts, http.MethodPost, "/v1/sessions/nope/end", "alice",
		session.EndRequest{SessionToken: "x"}, nil)
	if status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", status)
	}
}

func TestInvalidLoadoutIsBadRequest(t *testing.T) {
	ts, _ := newTestServer(t)
	var body map[string]any
	status := doJSON(t, ts, http.MethodPost, "/v1/sessions/start", "alice",
		session.StartRequest{StartingHeroes: []string{"tidecaller"}}, &body)
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
	if body["code"] != "INVALID_LOADOUT" {
		t.Fatalf("code = %v, want INVALID_LOADOUT", body["code"])
	}
}

func TestMalformedBodyIsBadRequest(t *testing.T) {
	ts, _ := newTestServer(t)
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/v1/sessions/start", bytes.NewBufferString("{broken"))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("X-User-ID", "alice")
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHealthzAndDiagnostics(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d", resp.StatusCode)
	}

	doJSON(t, ts, http.MethodPost, "/v1/sessions/start", "alice", session.StartRequest{}, nil)

	var diag struct {
		Status   string            `json:"status"`
		Counters map[string]uint64 `json:"counters"`
	}
	if status := doJSON(t, ts, http.MethodGet, "/diagnostics", "", nil, &diag); status != http.StatusOK {
		t.Fatalf("diagnostics status = %d", status)
	}
	if diag.Status != "ok" {
		t.Fatalf("diagnostics status field = %q", diag.Status)
	}
	if diag.Counters[telemetry.KeySessionsStarted] != 1 {
		t.Fatalf("sessions_started = %d, want 1", diag.Counters[telemetry.KeySessionsStarted])
	}
}
