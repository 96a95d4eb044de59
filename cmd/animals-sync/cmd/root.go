// Package cmd implements the animals-sync CLI.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Sternrassler/animals-client/internal/pipeline"
	"github.com/Sternrassler/animals-client/pkg/client"
	"github.com/Sternrassler/animals-client/pkg/logging"
	"github.com/Sternrassler/animals-client/pkg/metrics"
)

const envPrefix = "ANIMALS"

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

type syncCommand struct {
	cmd     *cobra.Command
	v       *viper.Viper
	cfgFile string
}

func newRootCmd() *cobra.Command {
	return newSyncCommand().cmd
}

func newSyncCommand() *syncCommand {
	s := &syncCommand{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "animals-sync",
		Short: "Send every animal home",
		Long: "animals-sync walks the paginated animal listing, fetches each\n" +
			"animal's detail, turns its friends string into a list and posts\n" +
			"the records home in batches. 5xx responses are retried.",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return initConfig(s.v, s.cfgFile)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), s.v, cmd.ErrOrStderr())
		},
	}

	defaults := client.DefaultConfig()
	flags := rootCmd.Flags()
	flags.StringVar(&s.cfgFile, "config", "", "config file (default $HOME/.animals-sync.yaml)")
	flags.String("server", defaults.BaseURL, "Animals API base URL")
	flags.String("user-agent", defaults.UserAgent, "User-Agent header sent with every request")
	flags.Duration("timeout", defaults.Timeout, "per-attempt request timeout")
	flags.Int("max-retries", defaults.MaxRetries, "total attempts per request while the server answers 5xx")
	flags.Int("chunk-size", defaults.ChunkSize, "records per send-home request")
	flags.Float64("rate", defaults.RequestsPerSecond, "maximum requests per second (0 = unlimited)")
	flags.Int("burst", defaults.Burst, "request burst allowed by --rate")
	flags.String("log-level", string(logging.LevelInfo), "log level (debug, info, warn, error)")
	flags.Bool("log-pretty", false, "human-readable console logs instead of JSON")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address while running (e.g. :9090)")

	cobra.CheckErr(s.v.BindPFlags(flags))

	s.cmd = rootCmd
	return s
}

func initConfig(v *viper.Viper, cfgFile string) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", cfgFile, err)
		}
		return nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	v.AddConfigPath(home)
	v.SetConfigType("yaml")
	v.SetConfigName(".animals-sync")

	var notFound viper.ConfigFileNotFoundError
	if err := v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func clientConfig(v *viper.Viper) (client.Config, error) {
	cfg := client.DefaultConfig()
	cfg.BaseURL = v.GetString("server")
	cfg.UserAgent = v.GetString("user-agent")
	cfg.Timeout = v.GetDuration("timeout")
	cfg.MaxRetries = v.GetInt("max-retries")
	cfg.ChunkSize = v.GetInt("chunk-size")
	cfg.RequestsPerSecond = v.GetFloat64("rate")
	cfg.Burst = v.GetInt("burst")

	if err := cfg.Validate(); err != nil {
		return client.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(v *viper.Viper, out io.Writer) (zerolog.Logger, error) {
	level := v.GetString("log-level")
	if _, err := logging.ParseLevel(level); err != nil {
		return zerolog.Nop(), err
	}

	return logging.Setup(logging.Config{
		Level:  logging.LogLevel(level),
		Pretty: v.GetBool("log-pretty"),
		Output: out,
	}), nil
}

func run(ctx context.Context, v *viper.Viper, out io.Writer) error {
	logger, err := newLogger(v, out)
	if err != nil {
		return err
	}
	if used := v.ConfigFileUsed(); used != "" {
		logger.Info().Str("file", used).Msg("Using config file")
	}

	cfg, err := clientConfig(v)
	if err != nil {
		return err
	}

	if addr := v.GetString("metrics-addr"); addr != "" {
		stop := serveMetrics(addr, logger)
		defer stop()
	}

	c, err := client.New(cfg, client.WithLogger(logger))
	if err != nil {
		return err
	}

	logger.Info().
		Str("server", cfg.BaseURL).
		Int("max_retries", cfg.MaxRetries).
		Int("chunk_size", cfg.ChunkSize).
		Msg("Starting sync")

	if _, err := pipeline.Run(ctx, c, logger); err != nil {
		logger.Error().Err(err).Msg("Sync failed")
		return err
	}
	return nil
}

func serveMetrics(addr string, logger zerolog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("Serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Metrics server failed")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
