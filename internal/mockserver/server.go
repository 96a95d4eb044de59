// Package mockserver implements a flaky in-process Animals API for local
// runs and end-to-end tests. Data is generated with gofakeit from a fixed
// seed, so a given Config always serves the same animals.
package mockserver

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/rs/zerolog"
)

// Paths served by the mock.
const (
	ListPath   = "/animals/v1/animals"
	DetailPath = "/animals/v1/animals/{id}"
	HomePath   = "/animals/v1/home"
)

// Animal is a generated animal record.
type Animal struct {
	ID      int      `json:"id"`
	Name    string   `json:"name"`
	BornAt  *int64   `json:"born_at"`
	Friends []string `json:"friends"`
}

// Config holds mock server configuration.
type Config struct {
	// Animals is the size of the generated collection.
	Animals int

	// PageSize is the number of items per listing page.
	PageSize int

	// FailureRate is the probability in [0,1] that any request answers 5xx.
	FailureRate float64

	// MaxBatch is the largest accepted send-home batch.
	MaxBatch int

	// Latency is added to every response.
	Latency time.Duration

	// Seed drives data generation and failure injection.
	Seed int64
}

// DefaultConfig returns the default mock configuration.
func DefaultConfig() Config {
	return Config{
		Animals:     250,
		PageSize:    10,
		FailureRate: 0.1,
		MaxBatch:    100,
		Seed:        1,
	}
}

// Server is the mock Animals API.
type Server struct {
	config  Config
	animals []Animal
	byID    map[int]Animal
	logger  zerolog.Logger

	mu       sync.Mutex
	faker    *gofakeit.Faker
	home     []int
	counts   map[string]int
	total    int
	failures int
}

// New creates a mock server with generated data.
func New(cfg Config, logger zerolog.Logger) *Server {
	if cfg.PageSize < 1 {
		cfg.PageSize = 10
	}
	if cfg.MaxBatch < 1 {
		cfg.MaxBatch = 100
	}

	faker := gofakeit.New(cfg.Seed)
	s := &Server{
		config: cfg,
		byID:   make(map[int]Animal, cfg.Animals),
		logger: logger,
		faker:  faker,
		counts: make(map[string]int),
	}

	for i := range cfg.Animals {
		a := Animal{ID: i + 1, Name: faker.PetName()}
		if faker.Bool() {
			born := faker.DateRange(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)).UnixMilli()
			a.BornAt = &born
		}
		for range faker.Number(0, 4) {
			a.Friends = append(a.Friends, faker.FirstName())
		}
		s.animals = append(s.animals, a)
		s.byID[a.ID] = a
	}
	return s
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+ListPath, s.handleList)
	mux.HandleFunc("GET "+DetailPath, s.handleDetail)
	mux.HandleFunc("POST "+HomePath, s.handleHome)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.counts[r.Method+" "+r.URL.Path]++
		s.total++
		s.mu.Unlock()

		if s.config.Latency > 0 {
			time.Sleep(s.config.Latency)
		}
		if status, fail := s.injectFailure(); fail {
			s.logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status_code", status).
				Msg("Injected failure")
			writeJSON(w, status, map[string]string{"error": http.StatusText(status)})
			return
		}
		mux.ServeHTTP(w, r)
	})
}

// Animals returns the generated collection.
func (s *Server) Animals() []Animal {
	return s.animals
}

// TotalPages returns the total_pages value reported by the listing.
func (s *Server) TotalPages() int {
	if len(s.animals) == 0 {
		return 0
	}
	return (len(s.animals) - 1) / s.config.PageSize
}

// Home returns the ids sent home so far, in arrival order.
func (s *Server) Home() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.home...)
}

// Total returns how many requests the server received.
func (s *Server) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// Failures returns how many requests were answered with an injected 5xx.
func (s *Server) Failures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures
}

// Count returns how many requests hit "METHOD /path".
func (s *Server) Count(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[key]
}

func (s *Server) injectFailure() (int, bool) {
	if s.config.FailureRate <= 0 {
		return 0, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// Float64 spans the whole float64 range; draw from [0,1) instead.
	if s.faker.Float64Range(0, 1) >= s.config.FailureRate {
		return 0, false
	}
	s.failures++
	return s.faker.RandomInt([]int{
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
	}), true
}

type listItem struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	BornAt *int64 `json:"born_at"`
}

type detailItem struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	BornAt  *int64 `json:"born_at"`
	Friends string `json:"friends"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	page := 0
	if raw := r.URL.Query().Get("page"); raw != "" {
		var err error
		page, err = strconv.Atoi(raw)
		if err != nil || page < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid page"})
			return
		}
	}

	items := []listItem{}
	start := page * s.config.PageSize
	for i := start; i < len(s.animals) && i < start+s.config.PageSize; i++ {
		a := s.animals[i]
		items = append(items, listItem{ID: a.ID, Name: a.Name, BornAt: a.BornAt})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"page":        page,
		"total_pages": s.TotalPages(),
		"items":       items,
	})
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	a, ok := s.byID[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "animal not found"})
		return
	}

	friends := ""
	for i, f := range a.Friends {
		if i > 0 {
			friends += ","
		}
		friends += f
	}
	writeJSON(w, http.StatusOK, detailItem{ID: a.ID, Name: a.Name, BornAt: a.BornAt, Friends: friends})
}

type homeRecord struct {
	ID      *int     `json:"id"`
	Friends []string `json:"friends"`
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	var records []homeRecord
	if err := json.NewDecoder(r.Body).Decode(&records); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "body must be a list of animals with friends lists"})
		return
	}
	if len(records) > s.config.MaxBatch {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "too many animals in one batch"})
		return
	}

	ids := make([]int, 0, len(records))
	for _, rec := range records {
		if rec.ID == nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "animal without id"})
			return
		}
		ids = append(ids, *rec.ID)
	}

	s.mu.Lock()
	s.home = append(s.home, ids...)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"message": "Helped " + strconv.Itoa(len(ids)) + " find home"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
