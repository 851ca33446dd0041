package missing

import (
	"cmp"
	"slices"
)

// NewReport groups episodes by show title and season. Shows sharing a title
// are merged. Input order is kept within a season.
func NewReport(episodes []*Episode) *Report {
	seriesMap := make(map[string]*Series)
	seasonMap := make(map[string]map[int]*Season) // title -> seasonNumber -> season

	for _, ep := range episodes {
		// Get or create series
		series, exists := seriesMap[ep.ShowTitle]
		if !exists {
			series = &Series{
				Title:          ep.ShowTitle,
				TvdbID:         ep.TvdbID,
				MissingSeasons: []*Season{},
			}
			seriesMap[ep.ShowTitle] = series
			seasonMap[ep.ShowTitle] = make(map[int]*Season)
		}

		// Get or create season
		season, exists := seasonMap[ep.ShowTitle][ep.SeasonNumber]
		if !exists {
			season = &Season{
				SeasonNumber:    ep.SeasonNumber,
				MissingEpisodes: []*Episode{},
			}
			seasonMap[ep.ShowTitle][ep.SeasonNumber] = season
			series.MissingSeasons = append(series.MissingSeasons, season)
		}

		season.MissingEpisodes = append(season.MissingEpisodes, ep)
		series.MissingCount++
	}

	result := make([]*Series, 0, len(seriesMap))
	for _, series := range seriesMap {
		slices.SortFunc(series.MissingSeasons, func(a, b *Season) int {
			return cmp.Compare(a.SeasonNumber, b.SeasonNumber)
		})
		result = append(result, series)
	}
	slices.SortFunc(result, func(a, b *Series) int {
		return cmp.Compare(a.Title, b.Title)
	})

	return &Report{Series: result}
}
