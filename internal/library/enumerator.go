package library

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/missingtv/missingtv/internal/mediaserver/plex"
)

// SectionSource lists library sections and their items.
type SectionSource interface {
	GetLibrarySections(ctx context.Context) ([]plex.LibrarySection, error)
	GetSectionItems(ctx context.Context, sectionKey string) ([]plex.SectionItem, error)
}

// Enumerator walks the TV sections of a server.
type Enumerator struct {
	source SectionSource
	ignore map[string]struct{}
	logger zerolog.Logger
}

// NewEnumerator creates an enumerator skipping shows whose title is in ignore.
func NewEnumerator(source SectionSource, ignore []string, logger zerolog.Logger) *Enumerator {
	set := make(map[string]struct{}, len(ignore))
	for _, title := range ignore {
		set[title] = struct{}{}
	}
	return &Enumerator{
		source: source,
		ignore: set,
		logger: logger.With().Str("component", "library").Logger(),
	}
}

// Enumerate returns one entry per distinct rating key across all TV sections,
// ignored titles removed, sorted by key. Any listing failure aborts.
func (e *Enumerator) Enumerate(ctx context.Context) ([]Entry, error) {
	sections, err := e.source.GetLibrarySections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list library sections: %w", err)
	}

	seen := make(map[string]struct{})
	var entries []Entry

	for _, section := range sections {
		if !section.IsShowSection() {
			continue
		}

		items, err := e.source.GetSectionItems(ctx, section.Key)
		if err != nil {
			return nil, fmt.Errorf("failed to list section %q: %w", section.Title, err)
		}

		e.logger.Debug().
			Str("section", section.Title).
			Int("items", len(items)).
			Msg("Listed TV section")

		for _, item := range items {
			if _, ignored := e.ignore[item.Title]; ignored {
				e.logger.Debug().Str("title", item.Title).Msg("Ignoring show")
				continue
			}
			if item.RatingKey == "" {
				continue
			}
			if _, dup := seen[item.RatingKey]; dup {
				continue
			}
			seen[item.RatingKey] = struct{}{}
			entries = append(entries, Entry{Key: item.RatingKey, Title: item.Title, SectionKey: section.Key})
		}
	}

	slices.SortFunc(entries, func(a, b Entry) int { return compareKeys(a.Key, b.Key) })
	return entries, nil
}

// compareKeys orders numeric keys numerically and falls back to lexical order.
func compareKeys(a, b string) int {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		return cmp.Or(cmp.Compare(na, nb), cmp.Compare(a, b))
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	default:
		return cmp.Compare(a, b)
	}
}
