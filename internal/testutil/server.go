package testutil

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// Slack Web API paths served by the mock.
const (
	PathLookupByEmail = "/users.lookupByEmail"
	PathPostMessage   = "/chat.postMessage"
)

// MockSlackServer provides a mock Slack Web API server for testing.
type MockSlackServer struct {
	*httptest.Server
	t        *testing.T
	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	captures []Capture
}

// NewMockServer creates a mock Slack API server.
// The server is automatically closed when the test completes.
func NewMockServer(t *testing.T) *MockSlackServer {
	t.Helper()

	m := &MockSlackServer{
		t:        t,
		handlers: make(map[string]http.HandlerFunc),
		captures: make([]Capture, 0),
	}

	m.Server = httptest.NewServer(http.HandlerFunc(m.handle))
	t.Cleanup(m.Server.Close)
	return m
}

func (m *MockSlackServer) handle(w http.ResponseWriter, r *http.Request) {
	// Read body once for capture
	body, _ := io.ReadAll(r.Body)
	r.Body.Close()

	// Restore body for downstream handler
	r.Body = io.NopCloser(bytes.NewReader(body))

	m.mu.Lock()
	m.captures = append(m.captures, Capture{
		Method:      r.Method,
		Path:        r.URL.Path,
		Query:       r.URL.Query(),
		Headers:     r.Header.Clone(),
		Body:        body,
		ContentType: r.Header.Get("Content-Type"),
		Timestamp:   time.Now(),
	})

	key := r.Method + ":" + r.URL.Path
	handler, exists := m.handlers[key]
	m.mu.Unlock()

	if exists {
		handler(w, r)
		return
	}

	// Default success response
	ReplyOK(w, nil)
}

// OnMethod registers a handler for a specific HTTP method and path.
func (m *MockSlackServer) OnMethod(method, path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[method+":"+path] = handler
}

// OnLookup registers the users.lookupByEmail handler.
func (m *MockSlackServer) OnLookup(handler http.HandlerFunc) {
	m.OnMethod(http.MethodGet, PathLookupByEmail, handler)
}

// OnPostMessage registers the chat.postMessage handler.
func (m *MockSlackServer) OnPostMessage(handler http.HandlerFunc) {
	m.OnMethod(http.MethodPost, PathPostMessage, handler)
}

// Captures returns all captured requests.
func (m *MockSlackServer) Captures() []Capture {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Capture{}, m.captures...)
}

// CapturesFor returns the captured requests for one API path.
func (m *MockSlackServer) CapturesFor(path string) []Capture {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Capture
	for _, c := range m.captures {
		if c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

// LastCapture returns the most recent captured request.
func (m *MockSlackServer) LastCapture() *Capture {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.captures) == 0 {
		return nil
	}
	return &m.captures[len(m.captures)-1]
}

// CaptureCount returns the total number of captured requests.
func (m *MockSlackServer) CaptureCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.captures)
}

// ResetCaptures clears only captures, keeping handlers.
func (m *MockSlackServer) ResetCaptures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.captures = m.captures[:0]
}

// BaseURL returns the server's base URL.
// Use this as the API base URL when creating clients.
func (m *MockSlackServer) BaseURL() string {
	return m.Server.URL
}
