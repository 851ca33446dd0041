// Package missing compares the canonical episode list of a show with what the
// server holds and groups the aired-but-absent episodes into a report.
package missing

// Episode is an episode that has aired but is not held locally.
type Episode struct {
	ShowTitle     string `json:"seriesTitle" yaml:"seriesTitle"`
	TvdbID        int    `json:"seriesTvdbId,omitempty" yaml:"seriesTvdbId,omitempty"`
	SeasonNumber  int    `json:"seasonNumber" yaml:"seasonNumber"`
	EpisodeNumber int    `json:"episodeNumber" yaml:"episodeNumber"`
	Title         string `json:"title" yaml:"title"`
	FirstAired    string `json:"firstAired,omitempty" yaml:"firstAired,omitempty"`
}

// Season groups missing episodes by season.
type Season struct {
	SeasonNumber    int        `json:"seasonNumber" yaml:"seasonNumber"`
	MissingEpisodes []*Episode `json:"missingEpisodes" yaml:"missingEpisodes"`
}

// Series groups missing episodes by show.
type Series struct {
	Title          string    `json:"title" yaml:"title"`
	TvdbID         int       `json:"tvdbId,omitempty" yaml:"tvdbId,omitempty"`
	MissingCount   int       `json:"missingCount" yaml:"missingCount"`
	MissingSeasons []*Season `json:"missingSeasons" yaml:"missingSeasons"`
}

// Report is the ordered result of a run: shows by title, seasons ascending,
// episodes in provider order.
type Report struct {
	Series []*Series `json:"series" yaml:"series"`
}

// EpisodeCount returns the total number of missing episodes.
func (r *Report) EpisodeCount() int {
	n := 0
	for _, s := range r.Series {
		n += s.MissingCount
	}
	return n
}

// Episodes returns every missing episode in report order.
func (r *Report) Episodes() []*Episode {
	episodes := make([]*Episode, 0, r.EpisodeCount())
	for _, series := range r.Series {
		for _, season := range series.MissingSeasons {
			episodes = append(episodes, season.MissingEpisodes...)
		}
	}
	return episodes
}
