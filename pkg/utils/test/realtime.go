package testutils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// MockRealtimeServer is a websocket server that records the handshake and
// every client event, and replies to response.create with a scripted list of
// raw frames.
type MockRealtimeServer struct {
	Server *httptest.Server

	// Script is written, in order, after a response.create event arrives.
	Script []string

	// RejectStatus fails the opening handshake with this HTTP status.
	RejectStatus int

	// CloseAfterScript closes the connection once Script has been written.
	CloseAfterScript bool

	upgrader websocket.Upgrader

	mu       sync.Mutex
	dials    int
	header   http.Header
	query    url.Values
	received []map[string]any
}

// NewMockRealtimeServer starts a server that replies with script.
func NewMockRealtimeServer(script ...string) *MockRealtimeServer {
	m := &MockRealtimeServer{Script: script}
	m.Server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

// URL returns the ws:// endpoint of the server.
func (m *MockRealtimeServer) URL() string {
	return "ws" + strings.TrimPrefix(m.Server.URL, "http")
}

func (m *MockRealtimeServer) Close() {
	m.Server.Close()
}

// Dials returns the number of handshake attempts seen.
func (m *MockRealtimeServer) Dials() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dials
}

// Header returns the headers of the last handshake.
func (m *MockRealtimeServer) Header() http.Header {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.header.Clone()
}

// Query returns the query parameters of the last handshake.
func (m *MockRealtimeServer) Query() url.Values {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.query
}

// Received returns the decoded client events in arrival order.
func (m *MockRealtimeServer) Received() []map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]map[string]any, len(m.received))
	copy(out, m.received)
	return out
}

// ReceivedTypes returns the "type" field of every client event.
func (m *MockRealtimeServer) ReceivedTypes() []string {
	events := m.Received()
	types := make([]string, 0, len(events))
	for _, ev := range events {
		t, _ := ev["type"].(string)
		types = append(types, t)
	}
	return types
}

func (m *MockRealtimeServer) handle(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.dials++
	m.header = r.Header.Clone()
	m.query = r.URL.Query()
	m.mu.Unlock()

	if m.RejectStatus != 0 {
		http.Error(w, `{"error":{"message":"rejected"}}`, m.RejectStatus)
		return
	}

	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		ev := map[string]any{}
		if err := json.Unmarshal(data, &ev); err != nil {
			continue
		}

		m.mu.Lock()
		m.received = append(m.received, ev)
		m.mu.Unlock()

		if ev["type"] != "response.create" {
			continue
		}

		for _, frame := range m.Script {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				return
			}
		}

		if m.CloseAfterScript {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			return
		}
	}
}
