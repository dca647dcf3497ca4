// Command fires-seed generates a deterministic demo dataset and either loads
// it straight into the configured store or submits it to a running server.
//
// Usage:
//
//	fires-seed load                      # write into FIRES_STORE_DRIVER / FIRES_STORE_DSN
//	fires-seed submit --url http://...   # POST alignments over HTTP
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okian/fires/internal/adapters/repository"
	"github.com/okian/fires/internal/config"
	"github.com/okian/fires/internal/seed"
	"github.com/okian/fires/pkg/logger"
)

const defaultBaseURL = "http://localhost:8080"

// options carries the flags shared by every subcommand.
type options struct {
	seed.Config
	output  string
	baseURL string
	verbose bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{Config: seed.DefaultConfig(), baseURL: defaultBaseURL}

	root := &cobra.Command{
		Use:   "fires-seed",
		Short: "Generate and load a FIRES demo dataset",
		Long: `fires-seed builds a reproducible set of users, visibility edges,
alignment submissions, shareable content, engagements and markers.

The same --seed always produces the same dataset, so a load can be re-run
safely: existing markers are reported as duplicates.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := logger.InitWithOptions(logger.FormatText, cmd.ErrOrStderr()); err != nil {
				return fmt.Errorf("init logging: %w", err)
			}
			if opts.verbose {
				logger.SetLevel(slog.LevelDebug)
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.IntVar(&opts.Users, "users", opts.Users, "number of users to generate (every fourth is a coach)")
	flags.Uint64Var(&opts.Seed, "seed", opts.Seed, "PRNG seed")
	flags.IntVar(&opts.EdgesPerUser, "edges", opts.EdgesPerUser, "outgoing visibility edges per user")
	flags.IntVar(&opts.Workers, "workers", opts.Workers, "concurrent writers")
	flags.StringVar(&opts.output, "output", "", "also write the dataset as JSON to this file")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newLoadCmd(opts), newSubmitCmd(opts))
	return root
}

func newLoadCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "load",
		Short: "Write the dataset into the configured store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(ctx)
			if err != nil {
				return err
			}
			log := logger.Get().Named("seed")

			store, err := openStore(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer store.Close()

			ds, err := generate(opts)
			if err != nil {
				return err
			}
			stats, err := seed.Load(ctx, store, ds, opts.Config, log)
			if err != nil {
				return err
			}
			printStats(cmd, stats)
			return nil
		},
	}
}

func newSubmitCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "POST the generated alignments to a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := generate(opts)
			if err != nil {
				return err
			}
			stats, err := seed.Submit(cmd.Context(), opts.Config, opts.baseURL, ds.Submissions, logger.Get().Named("seed"))
			if err != nil {
				return err
			}
			printStats(cmd, stats)
			if stats.Failed > 0 {
				return fmt.Errorf("%d submissions failed", stats.Failed)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.baseURL, "url", opts.baseURL, "base URL of the FIRES server")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", opts.Timeout, "HTTP request timeout")
	return cmd
}

func generate(opts *options) (seed.Dataset, error) {
	if opts.Users <= 0 {
		return seed.Dataset{}, fmt.Errorf("--users must be positive, got %d", opts.Users)
	}
	ds := seed.Generate(opts.Config)
	if opts.output != "" {
		if err := seed.WriteJSON(opts.output, ds); err != nil {
			return ds, fmt.Errorf("write dataset: %w", err)
		}
	}
	return ds, nil
}

func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (repository.Store, error) {
	if cfg.StoreDriver == config.DriverMemory {
		log.Warn(ctx, "memory store selected; the seeded data is discarded on exit")
		return repository.NewMemStore(), nil
	}
	store, err := repository.Open(ctx, cfg.StoreDriver, cfg.StoreDSN, repository.WithLogger(log.Named("store")))
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
	}
	return store, nil
}

func printStats(cmd *cobra.Command, s seed.Stats) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "users:        %d\n", s.Users)
	fmt.Fprintf(out, "edges:        %d (%d muted)\n", s.Edges, s.MutedEdges)
	fmt.Fprintf(out, "submissions:  %d\n", s.Submissions)
	fmt.Fprintf(out, "content:      %d\n", s.Content)
	fmt.Fprintf(out, "engagements:  %d\n", s.Engagements)
	fmt.Fprintf(out, "markers:      %d\n", s.Markers)
	fmt.Fprintf(out, "duplicates:   %d\n", s.Duplicates)
	fmt.Fprintf(out, "failed:       %d\n", s.Failed)
	fmt.Fprintf(out, "duration:     %s\n", s.Duration)
}
