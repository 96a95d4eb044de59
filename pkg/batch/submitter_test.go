package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/animals-client/pkg/request"
)

type record struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Species string `json:"species"`
}

func fakeRecords(t *testing.T, n int) []record {
	t.Helper()

	faker := gofakeit.New(int64(n) + 1)
	records := make([]record, n)
	for i := range records {
		records[i] = record{ID: i, Name: faker.FirstName(), Species: faker.Animal()}
	}
	return records
}

// recordingExecutor captures every call and fails the call with index failAt.
type recordingExecutor struct {
	calls  []request.Call
	failAt int
	err    error
}

func (r *recordingExecutor) Execute(_ context.Context, call request.Call) (*request.Response, error) {
	r.calls = append(r.calls, call)
	if r.err != nil && len(r.calls)-1 == r.failAt {
		return nil, r.err
	}
	return &request.Response{StatusCode: http.StatusOK}, nil
}

func TestChunks_Partition(t *testing.T) {
	tests := []struct {
		n, size    int
		wantChunks int
		wantLast   int
	}{
		{n: 0, size: 100, wantChunks: 0},
		{n: 1, size: 100, wantChunks: 1, wantLast: 1},
		{n: 99, size: 100, wantChunks: 1, wantLast: 99},
		{n: 100, size: 100, wantChunks: 1, wantLast: 100},
		{n: 101, size: 100, wantChunks: 2, wantLast: 1},
		{n: 250, size: 100, wantChunks: 3, wantLast: 50},
		{n: 7, size: 3, wantChunks: 3, wantLast: 1},
		{n: 9, size: 3, wantChunks: 3, wantLast: 3},
		{n: 5, size: 1, wantChunks: 5, wantLast: 1},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("n%d_size%d", tt.n, tt.size), func(t *testing.T) {
			records := make([]int, tt.n)
			for i := range records {
				records[i] = i
			}

			chunks := Chunks(records, tt.size)
			require.Len(t, chunks, tt.wantChunks)
			if tt.wantChunks == 0 {
				return
			}
			assert.Len(t, chunks[len(chunks)-1], tt.wantLast)

			// Concatenation reproduces the input exactly.
			var joined []int
			for _, c := range chunks {
				assert.LessOrEqual(t, len(c), tt.size)
				joined = append(joined, c...)
			}
			assert.Equal(t, records, joined)
		})
	}
}

func TestChunks_CapacityCapped(t *testing.T) {
	records := []int{1, 2, 3, 4}
	chunks := Chunks(records, 2)

	_ = append(chunks[0], 99)
	assert.Equal(t, []int{3, 4}, chunks[1])
	assert.Equal(t, []int{1, 2, 3, 4}, records)
}

func TestChunks_PanicsOnNonPositiveSize(t *testing.T) {
	assert.Panics(t, func() { Chunks([]int{1}, 0) })
}

func TestNewSubmitter_Defaults(t *testing.T) {
	s := NewSubmitter[record](&recordingExecutor{}, Config{})

	assert.Equal(t, DefaultChunkSize, s.ChunkSize())
	assert.Equal(t, http.StatusOK, s.config.ExpectedStatus)
}

func TestSend_Chunking(t *testing.T) {
	tests := []struct {
		n, size   int
		wantCalls int
	}{
		{n: 0, size: 100, wantCalls: 0},
		{n: 100, size: 100, wantCalls: 1},
		{n: 230, size: 100, wantCalls: 3},
		{n: 10, size: 4, wantCalls: 3},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("n%d_size%d", tt.n, tt.size), func(t *testing.T) {
			records := fakeRecords(t, tt.n)
			exec := &recordingExecutor{}
			s := NewSubmitter[record](exec, Config{ChunkSize: tt.size}, WithLogger(zerolog.Nop()))

			require.NoError(t, s.Send(context.Background(), "/animals/v1/home", records))
			require.Len(t, exec.calls, tt.wantCalls)

			var sent []record
			for _, call := range exec.calls {
				assert.Equal(t, http.MethodPost, call.Method)
				assert.Equal(t, "/animals/v1/home", call.Path)
				assert.Equal(t, http.StatusOK, call.ExpectedStatus)

				chunk, ok := call.Body.([]record)
				require.True(t, ok)
				assert.LessOrEqual(t, len(chunk), tt.size)
				sent = append(sent, chunk...)
			}
			if tt.n == 0 {
				assert.Empty(t, sent)
				return
			}
			assert.Equal(t, records, sent)
		})
	}
}

func TestSend_AbortsOnFirstFailingChunk(t *testing.T) {
	records := fakeRecords(t, 7)
	failure := &request.APIError{Err: request.ErrUnexpectedStatus, StatusCode: http.StatusBadRequest, Attempts: 1}
	exec := &recordingExecutor{failAt: 1, err: failure}
	s := NewSubmitter[record](exec, Config{ChunkSize: 3}, WithLogger(zerolog.Nop()))

	err := s.Send(context.Background(), "/animals/v1/home", records)

	assert.Same(t, failure, err)
	assert.ErrorIs(t, err, request.ErrUnexpectedStatus)
	assert.Len(t, exec.calls, 2, "chunk 3 must never be sent")
}

func TestSend_AbortsOnFailingChunkOverHTTP(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies [][]record
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		var chunk []record
		_ = json.Unmarshal(data, &chunk)

		mu.Lock()
		bodies = append(bodies, chunk)
		n := len(bodies)
		mu.Unlock()

		if n == 2 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := request.DefaultConfig()
	cfg.BaseURL = srv.URL
	exec, err := request.New(cfg, request.WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	records := fakeRecords(t, 5)
	s := NewSubmitter[record](exec, Config{ChunkSize: 2}, WithLogger(zerolog.Nop()))

	err = s.Send(context.Background(), "/animals/v1/home", records)
	require.Error(t, err)
	assert.ErrorIs(t, err, request.ErrUnexpectedStatus)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, bodies, 2)
	assert.Equal(t, records[0:2], bodies[0])
	assert.Equal(t, records[2:4], bodies[1])
}
