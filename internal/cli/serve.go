package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/formstep/internal/config"
	"github.com/roach88/formstep/internal/ident"
	"github.com/roach88/formstep/internal/server"
	"github.com/roach88/formstep/internal/sink"
	"github.com/roach88/formstep/internal/store"
)

// ServeOptions holds flags for the serve command. Empty values fall back
// to the FORMSTEP_* configuration.
type ServeOptions struct {
	*RootOptions
	Database  string
	Addr      string
	PublicURL string
	Seed      bool

	// IDs allows overriding the id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDs ident.Generator
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve forms and respondent sessions over HTTP",
		Long: `Start the formstep HTTP server.

Published forms accept respondent sessions; completed answer sets are
stored as submissions and, when FORMSTEP_KAFKA_BROKERS is set, published
to FORMSTEP_KAFKA_TOPIC.

Settings come from .env files and FORMSTEP_* variables; flags override
them.

Example:
  formstep serve --db ./formstep.db --addr :8080
  FORMSTEP_KAFKA_BROKERS=localhost:9092 formstep serve --seed`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default $FORMSTEP_DB)")
	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default $FORMSTEP_HTTP_ADDR)")
	cmd.Flags().StringVar(&opts.PublicURL, "public-url", "", "base URL in share links (default $FORMSTEP_PUBLIC_URL)")
	cmd.Flags().BoolVar(&opts.Seed, "seed", false, "store the default registration form when the database is empty")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	applyServeFlags(cfg, opts)

	if !opts.Verbose {
		slog.SetDefault(slog.New(slog.NewTextHandler(logOutput(opts.RootOptions, cmd), &slog.HandlerOptions{
			Level: cfg.LogLevel,
		})))
	}
	logger := slog.Default()

	logger.Info("opening database", "path", cfg.DBPath)
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if opts.Seed {
		n, err := st.SeedDefaults(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to seed forms", err)
		}
		logger.Info("database seeded", "forms", n)
	}

	sinks := sink.Fanout{sink.NewStoreSink(st)}
	if cfg.KafkaEnabled() {
		kafkaSink, err := sink.NewKafkaSink(sink.KafkaConfig{
			Brokers:  cfg.KafkaBrokers,
			Topic:    cfg.KafkaTopic,
			ClientID: "formstep",
		})
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to configure kafka", err)
		}
		defer func() {
			if closeErr := kafkaSink.Close(); closeErr != nil {
				logger.Error("error closing kafka writer", "error", closeErr)
			}
		}()
		sinks = append(sinks, kafkaSink)
		logger.Info("kafka sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	srv := server.New(server.Config{
		Store:      st,
		Sink:       sinks,
		IDs:        opts.IDs,
		Logger:     logger,
		PublicURL:  cfg.PublicURL,
		RequestLog: opts.Verbose,
	})

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(cfg.HTTPAddr)
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "Serving forms on %s\n", cfg.HTTPAddr)
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	select {
	case err := <-errCh:
		if err != nil {
			return WrapExitError(ExitFailure, "server error", err)
		}
		return nil
	case sig := <-sigChan:
		logger.Info("received signal, shutting down", "signal", sig)
	case <-ctx.Done():
		// Parent context cancelled (e.g., from test)
	}

	if err := srv.Shutdown(context.Background()); err != nil {
		return WrapExitError(ExitFailure, "shutdown failed", err)
	}
	if err := <-errCh; err != nil {
		return WrapExitError(ExitFailure, "server error", err)
	}
	logger.Info("server stopped gracefully")
	return nil
}

// applyServeFlags overrides configuration with the flags that were set.
func applyServeFlags(cfg *config.Config, opts *ServeOptions) {
	if opts.Database != "" {
		cfg.DBPath = opts.Database
	}
	if opts.Addr != "" {
		cfg.HTTPAddr = opts.Addr
	}
	if opts.PublicURL != "" {
		cfg.PublicURL = opts.PublicURL
	}
}

func logOutput(opts *RootOptions, cmd *cobra.Command) io.Writer {
	if opts.LogOutput != nil {
		return opts.LogOutput
	}
	return cmd.ErrOrStderr()
}
