// Command animals-mock serves a flaky fake Animals API for local runs of
// animals-sync.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Sternrassler/animals-client/internal/mockserver"
	"github.com/Sternrassler/animals-client/pkg/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("ANIMALS_MOCK")
	v.AutomaticEnv()

	defaults := mockserver.DefaultConfig()
	cmd := &cobra.Command{
		Use:          "animals-mock",
		Short:        "Serve a fake Animals API that fails now and then",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(v.GetString("log-level"), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return serve(cmd.Context(), ":"+v.GetString("port"), mockConfig(v), logger)
		},
	}

	flags := cmd.Flags()
	flags.String("port", "3123", "listen port")
	flags.Int("animals", defaults.Animals, "number of generated animals")
	flags.Int("page-size", defaults.PageSize, "animals per listing page")
	flags.Int("max-batch", defaults.MaxBatch, "largest accepted send-home batch")
	flags.Float64("failure-rate", defaults.FailureRate, "probability of answering a request with 5xx")
	flags.Duration("latency", defaults.Latency, "delay added to every response")
	flags.Int64("seed", defaults.Seed, "seed for generated data and failures")
	flags.String("log-level", string(logging.LevelInfo), "log level (debug, info, warn, error)")
	cobra.CheckErr(v.BindPFlags(flags))

	return cmd
}

func newLogger(level string, out io.Writer) (zerolog.Logger, error) {
	if _, err := logging.ParseLevel(level); err != nil {
		return zerolog.Nop(), err
	}
	return logging.Setup(logging.Config{
		Level:  logging.LogLevel(level),
		Pretty: true,
		Output: out,
	}), nil
}

func mockConfig(v *viper.Viper) mockserver.Config {
	return mockserver.Config{
		Animals:     v.GetInt("animals"),
		PageSize:    v.GetInt("page-size"),
		FailureRate: v.GetFloat64("failure-rate"),
		MaxBatch:    v.GetInt("max-batch"),
		Latency:     v.GetDuration("latency"),
		Seed:        v.GetInt64("seed"),
	}
}

func newMux(mock *mockserver.Server) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.Handle("/animals/", mock.Handler())
	return mux
}

func serve(ctx context.Context, addr string, cfg mockserver.Config, logger zerolog.Logger) error {
	mock := mockserver.New(cfg, logger)
	srv := &http.Server{
		Addr:              addr,
		Handler:           newMux(mock),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info().
		Str("addr", addr).
		Int("animals", len(mock.Animals())).
		Int("total_pages", mock.TotalPages()).
		Float64("failure_rate", cfg.FailureRate).
		Msg("Starting mock Animals API")

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info().Int("sent_home", len(mock.Home())).Msg("Mock Animals API stopped")
	return nil
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}
