// Package pipeline lists every animal, fetches each detail, transforms the
// records and sends them home.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/animals-client/internal/animals"
	"github.com/Sternrassler/animals-client/pkg/client"
)

// API is the subset of the Animals client the pipeline drives.
type API interface {
	List(ctx context.Context) ([]client.Item, error)
	Detail(ctx context.Context, id string) (client.Item, error)
	SendHome(ctx context.Context, records []client.Item) error
}

// Summary reports what a run did.
type Summary struct {
	Listed   int
	Detailed int
	Sent     int
	Duration time.Duration
}

// Run lists every animal, fetches each detail in list order, transforms the
// records and sends them home. It stops at the first error; records already
// sent home stay sent.
func Run(ctx context.Context, api API, logger zerolog.Logger) (Summary, error) {
	start := time.Now()
	var summary Summary

	logger.Info().Msg("Getting animals list")
	listed, err := api.List(ctx)
	if err != nil {
		return summary, fmt.Errorf("list animals: %w", err)
	}
	summary.Listed = len(listed)

	logger.Info().Int("animals", len(listed)).Msg("Getting animal details")
	records := make([]client.Item, 0, len(listed))
	for i, item := range listed {
		id, err := animals.ID(item)
		if err != nil {
			return summary, fmt.Errorf("animal %d in list: %w", i, err)
		}

		detail, err := api.Detail(ctx, id)
		if err != nil {
			return summary, fmt.Errorf("animal %s detail: %w", id, err)
		}
		records = append(records, animals.Transform(detail))
		summary.Detailed++
	}

	logger.Info().Int("animals", len(records)).Msg("Sending animals home")
	if err := api.SendHome(ctx, records); err != nil {
		return summary, fmt.Errorf("send animals home: %w", err)
	}
	summary.Sent = len(records)
	summary.Duration = time.Since(start)

	logger.Info().
		Int("listed", summary.Listed).
		Int("sent", summary.Sent).
		Dur("duration", summary.Duration).
		Msg("Animals sent home")

	return summary, nil
}
