// Package testutil provides testing utilities for the Animals API client.
package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// MockResponse defines one canned response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// RecordedRequest is a request observed by the mock server.
type RecordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   []byte
}

// MockAPI is a configurable mock Animals API server.
//
// For every path, scripted responses are served first (in order); once the
// script is drained the path's handler answers. Unknown paths get 404.
type MockAPI struct {
	server   *httptest.Server
	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	scripts  map[string][]MockResponse
	requests []RecordedRequest
}

// NewMockAPI creates and starts a new mock server.
func NewMockAPI() *MockAPI {
	mock := &MockAPI{
		handlers: make(map[string]http.HandlerFunc),
		scripts:  make(map[string][]MockResponse),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		mock.mu.Lock()
		mock.requests = append(mock.requests, RecordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Body:   body,
		})
		var scripted *MockResponse
		if queue := mock.scripts[r.URL.Path]; len(queue) > 0 {
			scripted = &queue[0]
			mock.scripts[r.URL.Path] = queue[1:]
		}
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		switch {
		case scripted != nil:
			writeResponse(w, *scripted)
		case exists:
			handler(w, r)
		default:
			writeResponse(w, MockResponse{StatusCode: http.StatusNotFound, Body: `{"error":"not found"}`})
		}
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// SetHandler sets the fallback handler for a path.
func (m *MockAPI) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse makes path always answer with resp.
func (m *MockAPI) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, _ *http.Request) {
		writeResponse(w, resp)
	})
}

// Script queues responses for path, served before its handler.
func (m *MockAPI) Script(path string, responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts[path] = append(m.scripts[path], responses...)
}

// SetPages serves a paginated collection at path. With n pages the server
// reports total_pages = n-1, so pages 0..n-1 are valid. Out of range pages
// return an empty item list.
func (m *MockAPI) SetPages(path string, pages ...[]map[string]any) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		page, err := strconv.Atoi(r.URL.Query().Get("page"))
		if err != nil {
			writeResponse(w, MockResponse{StatusCode: http.StatusBadRequest, Body: `{"error":"bad page"}`})
			return
		}
		items := []map[string]any{}
		if page >= 0 && page < len(pages) {
			items = pages[page]
		}
		writeResponse(w, PageResponse(len(pages)-1, items))
	})
}

// Requests returns the recorded requests.
func (m *MockAPI) Requests() []RecordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RecordedRequest(nil), m.requests...)
}

// RequestsTo returns the recorded requests for one method and path.
func (m *MockAPI) RequestsTo(method, path string) []RecordedRequest {
	var out []RecordedRequest
	for _, r := range m.Requests() {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockAPI) GetRequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Reset clears recorded requests and pending scripts.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
	m.scripts = make(map[string][]MockResponse)
}

func writeResponse(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		_, _ = w.Write([]byte(resp.Body))
	}
}

// JSONResponse creates a 200 OK response with v encoded as JSON.
func JSONResponse(v any) MockResponse {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return MockResponse{StatusCode: http.StatusOK, Body: string(data)}
}

// PageResponse creates a 200 OK page envelope.
func PageResponse(totalPages int, items []map[string]any) MockResponse {
	return JSONResponse(map[string]any{"total_pages": totalPages, "items": items})
}

// StatusResponse creates a response with only a status code.
func StatusResponse(status int) MockResponse {
	return MockResponse{StatusCode: status}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
	}
}

// NewUnavailableResponse creates a 503 Service Unavailable response.
func NewUnavailableResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusServiceUnavailable,
		Body:       `{"error": "Service unavailable"}`,
	}
}
