package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"towerkeep/server/logging"
)

func TestObserverHubWriteWithoutSubscribers(t *testing.T) {
	hub := newObserverHub()
	if err := hub.Write(logging.Event{Type: "verification.segment_verified"}); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestObserverReceivesBroadcastEvents(t *testing.T) {
	hub := newObserverHub()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/observe", hub.handleObserve)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/observe"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Subscription registration races the dial return; poll briefly.
	deadline := time.Now().Add(2 * time.Second)
	for hub.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("observer never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	sent := logging.Event{
		Type:     "verification.segment_verified",
		Severity: logging.SeverityInfo,
		Category: logging.CategoryVerification,
		Actor:    logging.EntityRef{ID: "alice", Kind: logging.EntityKindUser},
	}
	if err := hub.Write(sent); err != nil {
		t.Fatalf("write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got logging.Event
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Type != sent.Type || got.Actor.ID != sent.Actor.ID {
		t.Fatalf("received %+v, want %+v", got, sent)
	}
}

func TestObserverDroppedOnClose(t *testing.T) {
	hub := newObserverHub()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/observe", hub.handleObserve)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/observe"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for hub.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("observer never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	conn.Close()
	deadline = time.Now().Add(2 * time.Second)
	for hub.count() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("closed observer still registered")
		}
		// Writes against the closed connection surface the error that
		// evicts the subscriber.
		hub.Write(logging.Event{Type: "system.ping"})
		time.Sleep(5 * time.Millisecond)
	}

	if err := hub.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
}
