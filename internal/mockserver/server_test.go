package mockserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, cfg Config) (*Server, *httptest.Server) {
	t.Helper()

	s := New(cfg, zerolog.Nop())
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, srv
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func TestNew_DeterministicData(t *testing.T) {
	cfg := Config{Animals: 20, PageSize: 5, Seed: 7}

	a := New(cfg, zerolog.Nop()).Animals()
	b := New(cfg, zerolog.Nop()).Animals()

	require.Len(t, a, 20)
	assert.Equal(t, a, b)
	for i, animal := range a {
		assert.Equal(t, i+1, animal.ID)
		assert.NotEmpty(t, animal.Name)
	}
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		animals, pageSize, want int
	}{
		{animals: 0, pageSize: 10, want: 0},
		{animals: 1, pageSize: 10, want: 0},
		{animals: 10, pageSize: 10, want: 0},
		{animals: 11, pageSize: 10, want: 1},
		{animals: 45, pageSize: 10, want: 4},
	}

	for _, tt := range tests {
		s := New(Config{Animals: tt.animals, PageSize: tt.pageSize}, zerolog.Nop())
		assert.Equal(t, tt.want, s.TotalPages(), "animals=%d page_size=%d", tt.animals, tt.pageSize)
	}
}

func TestList(t *testing.T) {
	s, srv := newTestServer(t, Config{Animals: 12, PageSize: 5, Seed: 1})

	var seen []int
	for page := 0; page <= s.TotalPages(); page++ {
		var env struct {
			TotalPages int `json:"total_pages"`
			Items      []struct {
				ID int `json:"id"`
			} `json:"items"`
		}
		status := getJSON(t, srv.URL+ListPath+"?page="+strconv.Itoa(page), &env)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, 2, env.TotalPages)
		for _, it := range env.Items {
			seen = append(seen, it.ID)
		}
	}

	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, seen)
	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+ListPath+"?page=x", nil))
}

func TestDetail(t *testing.T) {
	s, srv := newTestServer(t, Config{Animals: 3, Seed: 1})

	var got map[string]any
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/animals/v1/animals/2", &got))
	assert.EqualValues(t, 2, got["id"])
	assert.Equal(t, s.Animals()[1].Name, got["name"])
	assert.IsType(t, "", got["friends"])

	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/animals/v1/animals/99", nil))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/animals/v1/animals/abc", nil))
}

func TestHome(t *testing.T) {
	s, srv := newTestServer(t, Config{Animals: 3, MaxBatch: 2, Seed: 1})

	post := func(body string) int {
		resp, err := http.Post(srv.URL+HomePath, "application/json", bytes.NewBufferString(body))
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusOK, post(`[{"id":1,"friends":["a"]},{"id":2,"friends":[]}]`))
	assert.Equal(t, http.StatusBadRequest, post(`[{"id":1},{"id":2},{"id":3}]`), "batch too large")
	assert.Equal(t, http.StatusBadRequest, post(`[{"id":3,"friends":"a,b"}]`), "friends must be a list")
	assert.Equal(t, http.StatusBadRequest, post(`[{"friends":[]}]`), "id required")

	assert.Equal(t, []int{1, 2}, s.Home())
	assert.Equal(t, 4, s.Count("POST "+HomePath))
}

func TestFailureInjection(t *testing.T) {
	s, srv := newTestServer(t, Config{Animals: 1, FailureRate: 1, Seed: 1})

	for range 5 {
		status := getJSON(t, srv.URL+ListPath, nil)
		assert.GreaterOrEqual(t, status, 500)
		assert.Less(t, status, 600)
	}
	assert.Equal(t, 5, s.Count("GET "+ListPath))
	assert.Equal(t, 5, s.Failures())
	assert.Equal(t, 5, s.Total())
}

func TestFailureInjection_Rate(t *testing.T) {
	tests := []struct {
		rate     float64
		min, max int
	}{
		{rate: 0, min: 0, max: 0},
		{rate: 0.2, min: 120, max: 280},
		{rate: 0.5, min: 400, max: 600},
	}

	for _, tt := range tests {
		s := New(Config{Animals: 1, FailureRate: tt.rate, Seed: 42}, zerolog.Nop())

		injected := 0
		for range 1000 {
			if _, fail := s.injectFailure(); fail {
				injected++
			}
		}
		assert.GreaterOrEqual(t, injected, tt.min, "rate %g", tt.rate)
		assert.LessOrEqual(t, injected, tt.max, "rate %g", tt.rate)
		assert.Equal(t, injected, s.Failures())
	}
}
