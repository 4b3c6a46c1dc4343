package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"towerkeep/server/logging"
)

const observerWriteWait = 10 * time.Second

// observerHub fans the structured event stream out to connected
// WebSocket observers. It plugs into the logging router as a sink, so
// dashboards see exactly what the log sinks see, in the same order.
type observerHub struct {
	mu          sync.Mutex
	subscribers map[uint64]*observer
	nextID      atomic.Uint64
}

type observer struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func newObserverHub() *observerHub {
	return &observerHub{subscribers: make(map[uint64]*observer)}
}

// Write implements the logging sink contract. A slow or dead observer is
// disconnected rather than allowed to stall the dispatcher.
func (h *observerHub) Write(event logging.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	h.mu.Lock()
	subs := make(map[uint64]*observer, len(h.subscribers))
	for id, sub := range h.subscribers {
		subs[id] = sub
	}
	h.mu.Unlock()

	for id, sub := range subs {
		sub.mu.Lock()
		sub.conn.SetWriteDeadline(time.Now().Add(observerWriteWait))
		err := sub.conn.WriteMessage(websocket.TextMessage, data)
		sub.mu.Unlock()
		if err != nil {
			h.drop(id)
		}
	}
	return nil
}

func (h *observerHub) Close(context.Context) error {
	h.mu.Lock()
	subs := h.subscribers
	h.subscribers = make(map[uint64]*observer)
	h.mu.Unlock()
	for _, sub := range subs {
		sub.conn.Close()
	}
	return nil
}

func (h *observerHub) add(conn *websocket.Conn) uint64 {
	id := h.nextID.Add(1)
	h.mu.Lock()
	h.subscribers[id] = &observer{conn: conn}
	h.mu.Unlock()
	return id
}

func (h *observerHub) drop(id uint64) {
	h.mu.Lock()
	sub, ok := h.subscribers[id]
	if ok {
		delete(h.subscribers, id)
	}
	h.mu.Unlock()
	if ok {
		sub.conn.Close()
	}
}

func (h *observerHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

var observerUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleObserve upgrades the connection and parks it in the hub. The
// read loop exists only to notice the peer going away; observers never
// send anything meaningful.
func (h *observerHub) handleObserve(w http.ResponseWriter, r *http.Request) {
	conn, err := observerUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("observer upgrade failed: %v", err)
		return
	}
	id := h.add(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.drop(id)
			return
		}
	}
}
