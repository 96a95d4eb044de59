package request

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Call describes one logical request. It is never mutated by the executor,
// so every retry sends exactly the same method, path, query and body.
type Call struct {
	Method string
	Path   string
	Query  url.Values

	// Body is JSON-encoded once per call when non-nil.
	Body any

	// ExpectedStatus is the only status treated as success (default 200).
	ExpectedStatus int

	// Endpoint is the metrics label for the call (default Path).
	Endpoint string
}

// Get builds a read call.
func Get(path string, query url.Values) Call {
	return Call{Method: http.MethodGet, Path: path, Query: query}
}

// Post builds a mutating call with a JSON body.
func Post(path string, body any) Call {
	return Call{Method: http.MethodPost, Path: path, Body: body}
}

func (c Call) expectedStatus() int {
	if c.ExpectedStatus == 0 {
		return http.StatusOK
	}
	return c.ExpectedStatus
}

func (c Call) endpoint() string {
	if c.Endpoint == "" {
		return c.Path
	}
	return c.Endpoint
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte

	// Attempts is the number of physical requests the call needed.
	Attempts int
}

// Decode unmarshals the JSON body into v. Numbers are kept as json.Number so
// identifiers round-trip without float conversion.
func (r *Response) Decode(v any) error {
	dec := json.NewDecoder(bytes.NewReader(r.Body))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
