package tvdb

import "time"

const airDateLayout = "2006-01-02"

// LoginRequest is the request body for TVDB authentication.
type LoginRequest struct {
	APIKey   string `json:"apikey"`
	UserKey  string `json:"userkey"`
	Username string `json:"username"`
}

// LoginResponse is the response from TVDB authentication.
type LoginResponse struct {
	Token string `json:"token"`
}

// EpisodesResponse is one page of a series' episodes.
type EpisodesResponse struct {
	Data  []Episode `json:"data"`
	Links Links     `json:"links"`
}

// Links contains pagination links. Only the last page number is needed.
type Links struct {
	Last int `json:"last"`
}

// Episode is a canonical episode record.
type Episode struct {
	AiredSeason        int    `json:"airedSeason"`
	AiredEpisodeNumber int    `json:"airedEpisodeNumber"`
	EpisodeName        string `json:"episodeName"`
	FirstAired         string `json:"firstAired"` // YYYY-MM-DD, empty when unaired
}

// IsSpecial reports whether the episode sits outside the regular seasons.
// A missing airedSeason decodes as zero and counts as a special too.
func (e Episode) IsSpecial() bool {
	return e.AiredSeason == 0
}

// AirDate parses FirstAired as midnight in loc. ok is false for unaired
// episodes and unparseable dates.
func (e Episode) AirDate(loc *time.Location) (t time.Time, ok bool) {
	if e.FirstAired == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(airDateLayout, e.FirstAired, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ErrorResponse is an error from the TVDB API.
type ErrorResponse struct {
	Error string `json:"Error"`
}
