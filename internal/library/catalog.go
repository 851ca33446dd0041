package library

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/missingtv/missingtv/internal/mediaserver/plex"
	"github.com/missingtv/missingtv/internal/progress"
)

// MetadataSource returns per-show metadata and episode lists.
type MetadataSource interface {
	GetShowMetadata(ctx context.Context, ratingKey string) (*plex.ShowMetadata, error)
	GetAllLeaves(ctx context.Context, ratingKey string) ([]plex.Leaf, error)
}

const (
	activityShows    = "catalog-shows"
	activityEpisodes = "catalog-episodes"
)

// CatalogBuilder turns enumerated entries into a Catalog.
type CatalogBuilder struct {
	source   MetadataSource
	progress *progress.Manager
	logger   zerolog.Logger
}

// NewCatalogBuilder creates a builder. tracker may be nil.
func NewCatalogBuilder(source MetadataSource, tracker *progress.Manager, logger zerolog.Logger) *CatalogBuilder {
	return &CatalogBuilder{
		source:   source,
		progress: tracker,
		logger:   logger.With().Str("component", "library").Logger(),
	}
}

// Build fetches metadata for every entry, unifies entries sharing a TVDB
// identity into one show, then records each show's episodes. Per-entry
// failures are logged and skipped; only context cancellation is returned.
func (b *CatalogBuilder) Build(ctx context.Context, entries []Entry) (*Catalog, error) {
	catalog := NewCatalog()

	b.start(activityShows, progress.ActivityTypeShowData, "Collecting show data", len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			b.fail(activityShows, err)
			return nil, err
		}
		b.addEntry(ctx, catalog, entry)
		b.step(activityShows, entry.Title)
	}
	b.complete(activityShows)

	shows := catalog.Shows()
	b.start(activityEpisodes, progress.ActivityTypeEpisodeData, "Collecting episode data", len(shows))
	for _, show := range shows {
		for _, key := range show.EntryKeys {
			if err := ctx.Err(); err != nil {
				b.fail(activityEpisodes, err)
				return nil, err
			}
			b.addEpisodes(ctx, catalog, show, key)
		}
		b.step(activityEpisodes, show.Title)
	}
	b.complete(activityEpisodes)

	b.logger.Info().
		Int("entries", len(entries)).
		Int("shows", catalog.Len()).
		Int("warnings", catalog.Warnings).
		Msg("Local catalog built")

	return catalog, nil
}

func (b *CatalogBuilder) addEntry(ctx context.Context, catalog *Catalog, entry Entry) {
	meta, err := b.source.GetShowMetadata(ctx, entry.Key)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		catalog.Warnings++
		b.logger.Warn().Err(err).
			Str("ratingKey", entry.Key).
			Str("title", entry.Title).
			Msg("Failed to get show metadata, skipping entry")
		return
	}

	identity, err := ParseShowIdentity(meta)
	if err != nil {
		catalog.Warnings++
		b.logger.Warn().Err(err).
			Str("ratingKey", entry.Key).
			Str("title", meta.Title).
			Str("guid", meta.GUID).
			Msg("Show has no TVDB identity, skipping entry")
		return
	}

	title := meta.Title
	if title == "" {
		title = entry.Title
	}
	show, existed := catalog.merge(identity, title, entry.Key)
	if existed {
		b.logger.Debug().
			Str("title", show.Title).
			Stringer("tvdbId", identity).
			Strs("entries", show.EntryKeys).
			Msg("Merged duplicate library entry")
	}
}

func (b *CatalogBuilder) addEpisodes(ctx context.Context, catalog *Catalog, show *LocalShow, key string) {
	leaves, err := b.source.GetAllLeaves(ctx, key)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		catalog.Warnings++
		b.logger.Warn().Err(err).
			Str("title", show.Title).
			Str("ratingKey", key).
			Msg("Failed to get episodes, skipping entry")
		return
	}

	for _, leaf := range leaves {
		if leaf.ParentIndex != nil {
			show.ensureSeason(*leaf.ParentIndex)
		}
		if leaf.ParentIndex == nil || leaf.Index == nil {
			catalog.Warnings++
			b.logger.Warn().
				Str("show", show.Title).
				Stringer("tvdbId", show.Identity).
				Str("ratingKey", key).
				Str("episode", describeLeaf(leaf)).
				Msg("Episode has no season or episode number, skipping")
			continue
		}
		show.AddEpisode(*leaf.ParentIndex, *leaf.Index, leaf.Title)
	}
}

func describeLeaf(leaf plex.Leaf) string {
	season, episode := "?", "?"
	if leaf.ParentIndex != nil {
		season = fmt.Sprint(*leaf.ParentIndex)
	}
	if leaf.Index != nil {
		episode = fmt.Sprint(*leaf.Index)
	}
	return fmt.Sprintf("ratingKey=%s title=%q season=%s episode=%s", leaf.RatingKey, leaf.Title, season, episode)
}

func (b *CatalogBuilder) start(id string, t progress.ActivityType, title string, total int) {
	if b.progress != nil {
		b.progress.StartActivity(id, t, title, total)
	}
}

func (b *CatalogBuilder) step(id, subtitle string) {
	if b.progress != nil {
		b.progress.Step(id, subtitle)
	}
}

func (b *CatalogBuilder) complete(id string) {
	if b.progress != nil {
		b.progress.CompleteActivity(id)
	}
}

func (b *CatalogBuilder) fail(id string, err error) {
	if b.progress != nil {
		b.progress.FailActivity(id, err.Error())
	}
}
