package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/missingtv/missingtv/internal/scheduler"
)

const (
	defaultWatchCron = "0 6 * * *"
	watchTaskID      = "report"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var flags reportFlags
	var cronExpr string
	var runOnStart bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the report on a schedule until interrupted",
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

			runCtx := cmd.Context()
			sched, err := scheduler.New(runCtx, log.Logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			err = sched.RegisterTask(scheduler.TaskConfig{
				ID:         watchTaskID,
				Name:       "Missing episode report",
				Cron:       cronExpr,
				RunOnStart: runOnStart,
				Func: func(taskCtx context.Context) error {
					return runReport(taskCtx, cfg, log.Logger, out)
				},
			})
			if err != nil {
				return err
			}

			hup := make(chan os.Signal, 1)
			signal.Notify(hup, syscall.SIGHUP)
			defer signal.Stop(hup)

			sched.Start()
			watchLog := log.WithComponent("watch")
			if info, err := sched.GetTask(watchTaskID); err == nil && info.NextRun != nil {
				watchLog.Info().Time("nextRun", *info.NextRun).Msg("Watching for missing episodes (SIGHUP runs a report now)")
			}

			watchLoop(runCtx, sched, hup, watchLog.Logger)
			return sched.Stop()
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&cronExpr, "cron", defaultWatchCron, "Cron expression for report runs")
	cmd.Flags().BoolVar(&runOnStart, "run-on-start", false, "Run a report immediately")
	return cmd
}

// watchLoop blocks until ctx is done, starting an extra report run for each
// value received on trigger. A trigger while a run is in flight is dropped.
func watchLoop(ctx context.Context, sched *scheduler.Scheduler, trigger <-chan os.Signal, log zerolog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-trigger:
			err := sched.RunNow(watchTaskID)
			switch {
			case err == nil:
				log.Info().Msg("Report run requested")
			case errors.Is(err, scheduler.ErrTaskRunning):
				log.Info().Msg("Report already running, request ignored")
			default:
				log.Error().Err(err).Msg("Failed to start report run")
			}
		}
	}
}
