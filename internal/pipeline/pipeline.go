// Package pipeline runs one reconciliation: authenticate, enumerate the
// local library, build its catalog, fetch canonical episodes per show and
// diff them into a report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/missingtv/missingtv/internal/config"
	"github.com/missingtv/missingtv/internal/library"
	"github.com/missingtv/missingtv/internal/metadata/tvdb"
	"github.com/missingtv/missingtv/internal/missing"
	"github.com/missingtv/missingtv/internal/progress"
)

var (
	ErrAuthentication = errors.New("authentication failed")
	ErrEnumeration    = errors.New("library enumeration failed")
)

// EpisodeProvider is the canonical episode source.
type EpisodeProvider interface {
	Login(ctx context.Context) error
	GetEpisodes(ctx context.Context, seriesID int) ([]tvdb.Episode, error)
}

// MediaServer is the local library.
type MediaServer interface {
	SignIn(ctx context.Context) error
	library.SectionSource
	library.MetadataSource
}

// Result is the outcome of a run.
type Result struct {
	Report      *missing.Report
	Shows       int
	FailedShows []string
	Warnings    int
	Duration    time.Duration
}

// Runner executes the pipeline. A Runner may be reused; each Run starts
// from nothing.
type Runner struct {
	provider EpisodeProvider
	server   MediaServer
	cfg      config.ReportConfig
	differ   *missing.Differ
	base     zerolog.Logger
	logger   zerolog.Logger
}

// New creates a runner.
func New(provider EpisodeProvider, server MediaServer, cfg config.ReportConfig, logger zerolog.Logger) *Runner {
	return &Runner{
		provider: provider,
		server:   server,
		cfg:      cfg,
		differ:   missing.NewDiffer(cfg.GraceWindow, logger),
		base:     logger,
		logger:   logger.With().Str("component", "pipeline").Logger(),
	}
}

// SetClock replaces the time source used for the grace window.
func (r *Runner) SetClock(now func() time.Time) {
	r.differ.SetClock(now)
}

// Run performs one full reconciliation. Authentication and enumeration
// failures abort the run and wrap ErrAuthentication or ErrEnumeration.
// A show whose episodes cannot be fetched is left out of the report.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	tracker := progress.NewManager(r.base)

	if err := r.provider.Login(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuthentication, err)
	}
	if err := r.server.SignIn(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuthentication, err)
	}
	r.logger.Debug().Msg("Authenticated with both services")

	entries, err := library.NewEnumerator(r.server, r.cfg.Ignore, r.base).Enumerate(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEnumeration, err)
	}
	r.logger.Info().Int("entries", len(entries)).Msg("Enumerated library")

	catalog, err := library.NewCatalogBuilder(r.server, tracker, r.base).Build(ctx, entries)
	if err != nil {
		return nil, err
	}

	shows := catalog.Shows()
	results := make([][]*missing.Episode, len(shows))
	failed := make([]bool, len(shows))

	tracker.StartActivity("compare", progress.ActivityTypeCompare, "Comparing episodes", len(shows))

	workers := max(r.cfg.Workers, 1)
	var eg errgroup.Group
	eg.SetLimit(workers)

	for i, show := range shows {
		eg.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			results[i], failed[i] = r.compareShow(ctx, show)
			tracker.Step("compare", show.Title)
			return nil
		})
	}
	_ = eg.Wait()

	if err := ctx.Err(); err != nil {
		tracker.FailActivity("compare", err.Error())
		return nil, err
	}
	tracker.CompleteActivity("compare")

	var all []*missing.Episode
	var failedTitles []string
	for i, show := range shows {
		if failed[i] {
			failedTitles = append(failedTitles, show.Title)
			continue
		}
		all = append(all, results[i]...)
	}

	res := &Result{
		Report:      missing.NewReport(all),
		Shows:       len(shows),
		FailedShows: failedTitles,
		Warnings:    catalog.Warnings,
		Duration:    time.Since(start),
	}

	r.logger.Info().
		Int("shows", res.Shows).
		Int("failed", len(res.FailedShows)).
		Int("warnings", res.Warnings).
		Dur("duration", res.Duration).
		Msgf("found %d missing episodes across %d shows", res.Report.EpisodeCount(), len(res.Report.Series))

	return res, nil
}

// compareShow fetches the canonical episodes of one show and diffs them.
// failed is true when the episode list could not be fetched.
func (r *Runner) compareShow(ctx context.Context, show *library.LocalShow) (episodes []*missing.Episode, failed bool) {
	canonical, err := r.provider.GetEpisodes(ctx, int(show.Identity))
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Error().Err(err).
				Str("show", show.Title).
				Stringer("tvdbId", show.Identity).
				Msg("Failed to get episodes")
		}
		return nil, true
	}
	if len(canonical) == 0 {
		r.logger.Debug().Str("show", show.Title).Msg("No canonical episodes")
		return nil, false
	}
	return r.differ.Diff(show, canonical), false
}
