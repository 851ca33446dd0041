package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/missingtv/missingtv/internal/config"
	"github.com/missingtv/missingtv/internal/mediaserver/plex"
	"github.com/missingtv/missingtv/internal/metadata/tvdb"
	"github.com/missingtv/missingtv/internal/pipeline"
	"github.com/missingtv/missingtv/internal/report"
)

// reportFlags are the per-run overrides shared by report and watch.
type reportFlags struct {
	format  string
	workers int
	ignore  []string
	grace   time.Duration
}

func (f *reportFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.format, "format", "f", "", "Output format (text, table, json, yaml)")
	cmd.Flags().IntVarP(&f.workers, "workers", "w", 0, "Shows compared in parallel")
	cmd.Flags().StringArrayVar(&f.ignore, "ignore", nil, "Show title to skip (repeatable)")
	cmd.Flags().DurationVar(&f.grace, "grace", 0, "Minimum time since air date before an episode counts as missing")
}

// apply copies flags the user set onto cfg. Ignored titles add to the
// configured list.
func (f *reportFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("format") {
		cfg.Report.Format = f.format
	}
	if cmd.Flags().Changed("workers") {
		cfg.Report.Workers = f.workers
	}
	if cmd.Flags().Changed("grace") {
		cfg.Report.GraceWindow = f.grace
	}
	cfg.Report.Ignore = append(cfg.Report.Ignore, f.ignore...)
}

func newReportCommand(ctx *commandContext) *cobra.Command {
	var flags reportFlags

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print aired episodes missing from the library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			flags.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}

			log := ctx.newLogger()
			defer log.Close()

			return runReport(cmd.Context(), cfg, log.Logger, cmd.OutOrStdout())
		},
	}
	flags.register(cmd)
	return cmd
}

// runReport performs one reconciliation and writes the report to out.
// Nothing is written when the run fails.
func runReport(ctx context.Context, cfg *config.Config, log zerolog.Logger, out io.Writer) error {
	renderer, err := report.NewRenderer(out, cfg.Report.Format)
	if err != nil {
		return err
	}

	tvdbClient := tvdb.NewClient(cfg.TVDB, cfg.HTTP, log)
	plexClient := plex.NewClient(cfg.Plex, cfg.HTTP, log, config.Version)

	result, err := pipeline.New(tvdbClient, plexClient, cfg.Report, log).Run(ctx)
	if err != nil {
		return err
	}

	if err := renderer.Render(result.Report); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
