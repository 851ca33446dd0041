// Package library builds the local view of a Plex TV library: which shows
// are held, under which TVDB identity, and which episodes each season has.
package library

import (
	"cmp"
	"slices"
)

// Entry is one show listed in a Plex TV section.
type Entry struct {
	Key        string `json:"ratingKey"`
	Title      string `json:"title"`
	SectionKey string `json:"sectionKey"`
}

// LocalEpisode is an episode held on the server.
type LocalEpisode struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
}

// LocalSeason holds the episodes of one season keyed by number, in the
// order the server returned them. A nil season holds nothing.
type LocalSeason struct {
	Number   int            `json:"number"`
	Episodes []LocalEpisode `json:"episodes"`

	numbers map[int]string
	titles  map[string]struct{}
}

func newLocalSeason(number int) *LocalSeason {
	return &LocalSeason{
		Number:  number,
		numbers: make(map[int]string),
		titles:  make(map[string]struct{}),
	}
}

// add records an episode. A repeated number keeps its first title but the
// new title still counts for title matching.
func (s *LocalSeason) add(number int, title string) {
	if _, exists := s.numbers[number]; !exists {
		s.numbers[number] = title
		s.Episodes = append(s.Episodes, LocalEpisode{Number: number, Title: title})
	}
	s.titles[title] = struct{}{}
}

// HasNumber reports whether an episode with this number is held.
func (s *LocalSeason) HasNumber(number int) bool {
	if s == nil {
		return false
	}
	_, ok := s.numbers[number]
	return ok
}

// HasTitle reports whether an episode with this exact title is held.
// The empty title never matches.
func (s *LocalSeason) HasTitle(title string) bool {
	if s == nil || title == "" {
		return false
	}
	_, ok := s.titles[title]
	return ok
}

// Len returns the number of distinct episode numbers held.
func (s *LocalSeason) Len() int {
	if s == nil {
		return 0
	}
	return len(s.numbers)
}

// LocalShow is one real-world show, possibly spread over several library
// entries.
type LocalShow struct {
	Identity  ShowIdentity         `json:"tvdbId"`
	Title     string               `json:"title"`
	EntryKeys []string             `json:"entryKeys"`
	Seasons   map[int]*LocalSeason `json:"seasons"`
}

// NewLocalShow returns a show holding no seasons.
func NewLocalShow(identity ShowIdentity, title string) *LocalShow {
	return &LocalShow{
		Identity: identity,
		Title:    title,
		Seasons:  make(map[int]*LocalSeason),
	}
}

// Season returns the season with the given number, nil when not held.
func (s *LocalShow) Season(number int) *LocalSeason {
	return s.Seasons[number]
}

// AddEpisode records an episode under its season.
func (s *LocalShow) AddEpisode(season, number int, title string) {
	s.ensureSeason(season).add(number, title)
}

func (s *LocalShow) ensureSeason(number int) *LocalSeason {
	season, ok := s.Seasons[number]
	if !ok {
		season = newLocalSeason(number)
		s.Seasons[number] = season
	}
	return season
}

// Catalog is the local library keyed by show identity.
type Catalog struct {
	shows map[ShowIdentity]*LocalShow

	// Warnings counts data-quality problems and skipped entries seen
	// while building.
	Warnings int
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{shows: make(map[ShowIdentity]*LocalShow)}
}

// merge adds an entry to the show with the given identity, creating it on
// first sight. It reports whether the show already existed.
func (c *Catalog) merge(identity ShowIdentity, title, entryKey string) (*LocalShow, bool) {
	show, exists := c.shows[identity]
	if !exists {
		show = NewLocalShow(identity, title)
		c.shows[identity] = show
	}
	if !slices.Contains(show.EntryKeys, entryKey) {
		show.EntryKeys = append(show.EntryKeys, entryKey)
	}
	return show, exists
}

// Len returns the number of distinct shows.
func (c *Catalog) Len() int {
	return len(c.shows)
}

// Shows returns all shows sorted by title, then identity.
func (c *Catalog) Shows() []*LocalShow {
	shows := make([]*LocalShow, 0, len(c.shows))
	for _, show := range c.shows {
		shows = append(shows, show)
	}
	slices.SortFunc(shows, func(a, b *LocalShow) int {
		return cmp.Or(cmp.Compare(a.Title, b.Title), cmp.Compare(a.Identity, b.Identity))
	})
	return shows
}
