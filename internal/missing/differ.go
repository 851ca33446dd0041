package missing

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/missingtv/missingtv/internal/library"
	"github.com/missingtv/missingtv/internal/metadata/tvdb"
)

// Differ finds aired episodes a local show lacks.
type Differ struct {
	grace  time.Duration
	now    func() time.Time
	logger zerolog.Logger
}

// NewDiffer creates a differ. Episodes aired less than grace ago are never
// reported.
func NewDiffer(grace time.Duration, logger zerolog.Logger) *Differ {
	return &Differ{
		grace:  grace,
		now:    time.Now,
		logger: logger.With().Str("component", "missing").Logger(),
	}
}

// SetClock replaces the time source used for the grace window.
func (d *Differ) SetClock(now func() time.Time) {
	d.now = now
}

// Diff returns the canonical episodes missing from show, in provider order.
// A canonical episode counts as held when its season has an episode with the
// same title, or failing that, the same number. Title matching only looks at
// the season of the same number.
func (d *Differ) Diff(show *library.LocalShow, episodes []tvdb.Episode) []*Episode {
	now := d.now()
	var missing []*Episode

	for _, ep := range episodes {
		if ep.IsSpecial() {
			continue
		}

		aired, ok := ep.AirDate(now.Location())
		if !ok {
			if ep.FirstAired != "" {
				d.logger.Debug().
					Str("show", show.Title).
					Int("season", ep.AiredSeason).
					Int("episode", ep.AiredEpisodeNumber).
					Str("firstAired", ep.FirstAired).
					Msg("Unparseable air date, skipping")
			}
			continue
		}
		if now.Sub(aired) < d.grace {
			continue
		}

		season := show.Season(ep.AiredSeason)
		if season.HasTitle(ep.EpisodeName) {
			continue
		}
		if season.HasNumber(ep.AiredEpisodeNumber) {
			continue
		}

		missing = append(missing, &Episode{
			ShowTitle:     show.Title,
			TvdbID:        int(show.Identity),
			SeasonNumber:  ep.AiredSeason,
			EpisodeNumber: ep.AiredEpisodeNumber,
			Title:         ep.EpisodeName,
			FirstAired:    ep.FirstAired,
		})
	}

	return missing
}
