package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/parcelops/shipledger/internal/adapters/redisx"
	"github.com/parcelops/shipledger/internal/cliconfig"
	"github.com/parcelops/shipledger/internal/domain"
	"github.com/parcelops/shipledger/pkg/log"
	"github.com/parcelops/shipledger/pkg/shipledger"
)

const helpDescription = `
Track shipment orders in a local embedded database with batch import,
integrity verification, and JSON snapshot backup.

Highlights:
  - Merge-on-write keyed by tracking number: re-importing a file is safe.
  - Degrades to an in-memory store when the database is unavailable.
  - Optional Redis mirror for multi-device sync (--mirror-addr).
  - Configure via file ($HOME/.shipledger/config.toml), env, or flags.
`

var exampleUsage = strings.TrimSpace(`
  shipledger import orders.json
  shipledger check
  shipledger set-status delivered PK-1001 PK-1002
  shipledger export backup.json --db-path /var/lib/shipledger/orders.db
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:           "shipledger",
		Short:         "Track shipment orders with durable local storage and reconciliation",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// File first, then env, then flags (tracked via the changed map).
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })
			cmd.Root().PersistentFlags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}
			return cfg.Validate()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.shipledger/config.toml)")
	pf.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "base directory for database and snapshots (default: $HOME/.shipledger)")
	pf.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "embedded database file (defaults to <data-dir>/orders.db)")
	pf.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	pf.IntVar(&cfg.ChunkSize, "chunk-size", cfg.ChunkSize, "records per store write during imports")
	pf.IntVar(&cfg.MaxAttempts, "max-attempts", cfg.MaxAttempts, "retry attempts per import chunk")
	pf.DurationVar(&cfg.RetryDelay, "retry-delay", cfg.RetryDelay, "base retry delay (grows linearly per attempt)")
	pf.DurationVar(&cfg.ChunkPause, "chunk-pause", cfg.ChunkPause, "pause between import chunks")
	pf.DurationVar(&cfg.OpTimeout, "op-timeout", cfg.OpTimeout, "per-operation store timeout")
	pf.IntVar(&cfg.VolatileLimit, "volatile-limit", cfg.VolatileLimit, "record cap of the in-memory fallback store")
	pf.BoolVar(&cfg.Preflight, "preflight", cfg.Preflight, "run advisory duplicate check before imports")
	pf.StringVar(&cfg.MirrorAddr, "mirror-addr", cfg.MirrorAddr, "Redis mirror address (empty disables mirroring)")
	pf.IntVar(&cfg.MirrorDB, "mirror-db", cfg.MirrorDB, "Redis mirror database number")
	pf.StringVar(&cfg.MirrorPrefix, "mirror-prefix", cfg.MirrorPrefix, "Redis mirror key prefix")

	root.AddCommand(
		newImportCmd(&cfg),
		newExportCmd(&cfg),
		newCheckCmd(&cfg),
		newFixCmd(&cfg),
		newInfoCmd(&cfg),
		newSetStatusCmd(&cfg),
		newWatchCmd(&cfg),
	)

	if err := root.Execute(); err != nil {
		zl := log.NewZerologAdapterWithLevel(cfg.LogLevel).Logger()
		zl.Error().Err(err).Msg("shipledger")
		os.Exit(1)
	}
}

// session bundles the engine with the resources behind it for one command.
type session struct {
	engine *shipledger.Engine
	mirror *redisx.Mirror
	logger zerolog.Logger
}

// openSession builds and opens the engine from the resolved configuration.
func openSession(ctx context.Context, cfg *cliconfig.Config) (*session, error) {
	adapter := log.NewZerologAdapterWithLevel(cfg.LogLevel)
	zl := adapter.Logger()

	opts := []shipledger.Option{shipledger.WithLogger(adapter)}

	var mirror *redisx.Mirror
	if cfg.MirrorAddr != "" {
		m, err := redisx.NewMirror(ctx, redisx.Config{
			Addr:      cfg.MirrorAddr,
			Password:  cfg.MirrorPassword,
			DB:        cfg.MirrorDB,
			KeyPrefix: cfg.MirrorPrefix,
		}, adapter)
		if err != nil {
			return nil, fmt.Errorf("connect mirror: %w", err)
		}
		mirror = m
		opts = append(opts, shipledger.WithMirror(m))
	}

	engCfg := shipledger.Config{
		DBPath:        cfg.DBPath,
		VolatileLimit: cfg.VolatileLimit,
		ChunkSize:     cfg.ChunkSize,
		MaxAttempts:   cfg.MaxAttempts,
		RetryDelay:    cfg.RetryDelay,
		ChunkPause:    cfg.ChunkPause,
		OpTimeout:     cfg.OpTimeout,
		Preflight:     cfg.Preflight,
	}
	eng, err := shipledger.New(engCfg, opts...)
	if err != nil {
		return nil, err
	}
	if err := eng.Open(ctx); err != nil {
		return nil, err
	}
	return &session{engine: eng, mirror: mirror, logger: zl}, nil
}

func (s *session) close() {
	if err := s.engine.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("close engine")
	}
	if s.mirror != nil {
		if err := s.mirror.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("close mirror")
		}
	}
}

func newImportCmd(cfg *cliconfig.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json>",
		Short: "Import orders from a snapshot file (wrapped document or bare array)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, cfg)
			if err != nil {
				return err
			}
			defer s.close()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			sum, err := s.engine.ImportSnapshot(ctx, data)
			if err != nil {
				return err
			}
			fmt.Printf("created: %d\nupdated: %d\nfailed: %d\nrejected: %d\n",
				sum.Created, sum.Updated, sum.Failed, sum.Rejected)
			if sum.Duplicates > 0 {
				fmt.Printf("in-file duplicates merged: %d\n", sum.Duplicates)
			}
			if sum.Preexisting > 0 {
				fmt.Printf("keys already present: %d\n", sum.Preexisting)
			}
			for _, fc := range sum.FailedChunks {
				s.logger.Warn().Int("offset", fc.Offset).Int("size", fc.Size).
					Err(fc.Err).Msg("chunk failed")
			}
			return nil
		},
	}
}

func newExportCmd(cfg *cliconfig.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file.json>",
		Short: "Export all orders to a snapshot file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, cfg)
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.engine.ExportSnapshotToFile(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("snapshot written to %s\n", args[0])
			return nil
		},
	}
}

func newCheckCmd(cfg *cliconfig.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run the integrity checks without changing any record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, cfg)
			if err != nil {
				return err
			}
			defer s.close()

			report, err := s.engine.RunIntegrityCheck(ctx)
			if err != nil {
				return err
			}
			printReport(report)
			if !report.Clean() {
				return fmt.Errorf("integrity check found problems (run 'shipledger fix' to repair)")
			}
			return nil
		},
	}
}

func newFixCmd(cfg *cliconfig.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "fix",
		Short: "Repair duplicate keys and provenance mismatches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, cfg)
			if err != nil {
				return err
			}
			defer s.close()

			res, err := s.engine.AutoFixIntegrity(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("duplicates removed: %d\nprovenance rewritten: %d\n",
				len(res.Removed), len(res.Rewritten))
			for _, e := range res.Errors {
				s.logger.Warn().Str("error", e).Msg("repair step failed")
			}

			report, err := s.engine.RunIntegrityCheck(ctx)
			if err != nil {
				return err
			}
			if !report.Clean() {
				return fmt.Errorf("problems remain after repair")
			}
			fmt.Println("ledger is clean")
			return nil
		},
	}
}

func newInfoCmd(cfg *cliconfig.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show storage usage and order statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, cfg)
			if err != nil {
				return err
			}
			defer s.close()

			info, err := s.engine.StorageInfo(ctx)
			if err != nil {
				return err
			}
			stats, err := s.engine.OrderStats(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("database: %s\n", cfg.DBPath)
			fmt.Printf("records: %d (~%d bytes)\n", info.Count, info.EstimatedSizeBytes)
			fmt.Printf("sent: %d  delivered: %d  returned: %d  pending: %d  cancelled: %d\n",
				stats.Sent, stats.Delivered, stats.Returned, stats.Pending, stats.Cancelled)
			fmt.Printf("delivery rate: %.1f%%\n", stats.DeliveryRate*100)
			fmt.Printf("cod total: %.2f  collected: %.2f  fees: %.2f  remainder: %.2f\n",
				stats.CODTotal, stats.ActualCODTotal, stats.ShippingFeeTotal, stats.Remainder)

			regions, err := s.engine.RegionStats(ctx)
			if err != nil {
				return err
			}
			for _, r := range regions {
				name := r.Region
				if name == "" {
					name = "(none)"
				}
				fmt.Printf("region %s: %d orders, %d delivered\n", name, r.Count, r.Delivered)
			}
			return nil
		},
	}
}

func newSetStatusCmd(cfg *cliconfig.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "set-status <status> <tracking-number>...",
		Short: "Set the status on orders by tracking number",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status := domain.Status(args[0])
			if !status.Valid() {
				return fmt.Errorf("unknown status %q (sent, delivered, returned, pending, cancelled)", args[0])
			}

			ctx := cmd.Context()
			s, err := openSession(ctx, cfg)
			if err != nil {
				return err
			}
			defer s.close()

			n, err := s.engine.UpdateStatus(ctx, args[1:], status)
			if err != nil {
				return err
			}
			fmt.Printf("updated: %d of %d\n", n, len(args)-1)
			return nil
		},
	}
}

func newWatchCmd(cfg *cliconfig.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow mirror updates and config changes until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			s, err := openSession(ctx, cfg)
			if err != nil {
				return err
			}
			defer s.close()

			if s.mirror == nil {
				return fmt.Errorf("watch requires a mirror (--mirror-addr)")
			}

			unsubscribe, err := s.mirror.Subscribe(ctx, func(orders []shipledger.Order) {
				s.logger.Info().Int("count", len(orders)).Msg("mirror updated")
			})
			if err != nil {
				return fmt.Errorf("subscribe: %w", err)
			}
			defer unsubscribe()

			cfgFile := cliconfig.DefaultConfigPath()
			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				watcher := cliconfig.NewWatcher(cfgFile, func() {
					s.logger.Info().Str("path", cfgFile).Msg("config file changed, restart to apply")
				}, log.NewZerologAdapterWithLogger(s.logger))
				if err := watcher.Start(ctx); err != nil {
					s.logger.Warn().Err(err).Msg("config watcher not started")
				} else {
					defer watcher.Stop()
				}
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			s.logger.Info().Msg("watching; press Ctrl-C to stop")
			<-sigCh
			s.logger.Info().Msg("received signal, stopping")
			return nil
		},
	}
}

func printReport(report shipledger.IntegrityReport) {
	fmt.Printf("records: %d\n", report.RecordCount)

	c := report.Accounting
	fmt.Printf("accounting: sent=%d abnormal=%d | delivered=%d inTransit=%d returned=%d partial=%d warning=%d (diff %+d)\n",
		c.TotalSent, c.Abnormal, c.Delivered, c.InTransit, c.Returned, c.Partial, c.Warning, c.Difference)

	for _, dup := range report.Duplicates {
		fmt.Printf("duplicate tracking number %s: %d records\n", dup.TrackingNumber, len(dup.Records))
	}
	for _, warn := range report.Provenance {
		fmt.Printf("provenance mismatch %s: status %s but source %s (expected %s)\n",
			warn.TrackingNumber, warn.Status, warn.Source, warn.ExpectedSource)
	}
	if report.Clean() {
		fmt.Println("ledger is clean")
	}
}
