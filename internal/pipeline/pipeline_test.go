package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/missingtv/missingtv/internal/config"
	"github.com/missingtv/missingtv/internal/mediaserver/plex"
	"github.com/missingtv/missingtv/internal/metadata/tvdb"
	"github.com/missingtv/missingtv/internal/report"
	"github.com/missingtv/missingtv/internal/testutil"
)

var runTime = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

type fakeProvider struct {
	loginErr error
	episodes map[int][]tvdb.Episode
	errs     map[int]error
	calls    atomic.Int32
}

func (f *fakeProvider) Login(context.Context) error { return f.loginErr }

func (f *fakeProvider) GetEpisodes(_ context.Context, id int) ([]tvdb.Episode, error) {
	f.calls.Add(1)
	if err := f.errs[id]; err != nil {
		return nil, err
	}
	return f.episodes[id], nil
}

type fakeServer struct {
	signInErr   error
	sectionsErr error
	items       []plex.SectionItem
	metadata    map[string]*plex.ShowMetadata
	leaves      map[string][]plex.Leaf
}

func (f *fakeServer) SignIn(context.Context) error { return f.signInErr }

func (f *fakeServer) GetLibrarySections(context.Context) ([]plex.LibrarySection, error) {
	if f.sectionsErr != nil {
		return nil, f.sectionsErr
	}
	return []plex.LibrarySection{{Key: "2", Title: "TV Shows", Type: "show"}}, nil
}

func (f *fakeServer) GetSectionItems(context.Context, string) ([]plex.SectionItem, error) {
	return f.items, nil
}

func (f *fakeServer) GetShowMetadata(_ context.Context, key string) (*plex.ShowMetadata, error) {
	if m, ok := f.metadata[key]; ok {
		return m, nil
	}
	return nil, plex.ErrNotFound
}

func (f *fakeServer) GetAllLeaves(_ context.Context, key string) ([]plex.Leaf, error) {
	return f.leaves[key], nil
}

func ep(season, number int, title, aired string) tvdb.Episode {
	return tvdb.Episode{AiredSeason: season, AiredEpisodeNumber: number, EpisodeName: title, FirstAired: aired}
}

func leaf(season, episode int, title string) plex.Leaf {
	return plex.Leaf{ParentIndex: testutil.IntPtr(season), Index: testutil.IntPtr(episode), Title: title}
}

// library with Alpha (tvdb 1), Zeta (tvdb 2, listed twice) and an ignored show.
func newFixture() (*fakeProvider, *fakeServer) {
	provider := &fakeProvider{
		episodes: map[int][]tvdb.Episode{
			1: {ep(1, 1, "Start", "2019-05-05"), ep(1, 2, "Held", "2019-05-12")},
			2: {
				ep(0, 1, "Special", "2020-01-01"),
				ep(1, 1, "Pilot", "2020-01-01"),
				ep(1, 2, "Second", "2020-01-08"),
				ep(1, 3, "Gap", "2020-01-15"),
				ep(2, 1, "Return", "2021-01-01"),
				ep(2, 2, "Fresh", "2024-03-10"),
			},
			3: {ep(1, 1, "Ignored Pilot", "2018-01-01")},
		},
	}
	server := &fakeServer{
		items: []plex.SectionItem{
			{RatingKey: "10", Title: "Zeta"},
			{RatingKey: "11", Title: "Zeta"},
			{RatingKey: "20", Title: "Alpha"},
			{RatingKey: "30", Title: "Ignored"},
		},
		metadata: map[string]*plex.ShowMetadata{
			"10": {Title: "Zeta", GUID: "com.plexapp.agents.thetvdb://2?lang=en"},
			"11": {Title: "Zeta", GUID: "plex://show/x", GUIDs: []plex.ExternalGUID{{ID: "tvdb://2"}}},
			"20": {Title: "Alpha", GUID: "com.plexapp.agents.thetvdb://1?lang=en"},
			"30": {Title: "Ignored", GUID: "com.plexapp.agents.thetvdb://3?lang=en"},
		},
		leaves: map[string][]plex.Leaf{
			"10": {leaf(1, 2, "Second")},
			"11": {leaf(1, 7, "Pilot")},
			"20": {leaf(1, 2, "Held")},
		},
	}
	return provider, server
}

func newRunner(t *testing.T, provider EpisodeProvider, server MediaServer, workers int) *Runner {
	t.Helper()
	r := New(provider, server, config.ReportConfig{
		Ignore:      []string{"Ignored"},
		GraceWindow: 24 * time.Hour,
		Workers:     workers,
	}, testutil.NewTestLogger(t))
	r.SetClock(func() time.Time { return runTime })
	return r
}

func lines(t *testing.T, res *Result) []string {
	t.Helper()
	var out []string
	for _, e := range res.Report.Episodes() {
		out = append(out, report.FormatLine(e))
	}
	return out
}

func TestRunner_Run(t *testing.T) {
	for _, workers := range []int{1, 4} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			provider, server := newFixture()
			res, err := newRunner(t, provider, server, workers).Run(context.Background())
			require.NoError(t, err)

			assert.Equal(t, []string{
				"Alpha S01 E01 - Start",
				"Zeta S01 E03 - Gap",
				"Zeta S02 E01 - Return",
			}, lines(t, res))
			assert.Equal(t, 2, res.Shows)
			assert.Empty(t, res.FailedShows)
			assert.EqualValues(t, 2, provider.calls.Load(), "ignored show must never be fetched")
		})
	}
}

func TestRunner_IgnoredShowWithEmptyCatalog(t *testing.T) {
	provider, server := newFixture()
	server.leaves = nil

	res, err := newRunner(t, provider, server, 1).Run(context.Background())
	require.NoError(t, err)

	for _, line := range lines(t, res) {
		assert.False(t, strings.HasPrefix(line, "Ignored"), line)
	}
	assert.Len(t, res.Report.Series, 2)
}

func TestRunner_PerShowFailureIsExcluded(t *testing.T) {
	provider, server := newFixture()
	provider.errs = map[int]error{2: fmt.Errorf("series 2 page 2: %w", tvdb.ErrAPIError)}

	res, err := newRunner(t, provider, server, 2).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Alpha S01 E01 - Start"}, lines(t, res))
	assert.Equal(t, []string{"Zeta"}, res.FailedShows)
}

func TestRunner_FatalErrors(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name    string
		mutate  func(p *fakeProvider, s *fakeServer)
		wantErr error
	}{
		{"tvdb login", func(p *fakeProvider, _ *fakeServer) { p.loginErr = tvdb.ErrAuthFailed }, ErrAuthentication},
		{"plex sign-in", func(_ *fakeProvider, s *fakeServer) { s.signInErr = plex.ErrUnauthorized }, ErrAuthentication},
		{"sections", func(_ *fakeProvider, s *fakeServer) { s.sectionsErr = boom }, ErrEnumeration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, server := newFixture()
			tt.mutate(provider, server)

			res, err := newRunner(t, provider, server, 1).Run(context.Background())
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, provider.calls.Load())
		})
	}

	t.Run("plex unauthorized stays visible", func(t *testing.T) {
		provider, server := newFixture()
		server.signInErr = fmt.Errorf("%w: %w", plex.ErrSignInFailed, plex.ErrUnauthorized)

		_, err := newRunner(t, provider, server, 1).Run(context.Background())
		assert.ErrorIs(t, err, plex.ErrUnauthorized)
	})
}

func TestRunner_Canceled(t *testing.T) {
	provider, server := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newRunner(t, provider, server, 1).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

// TestRunner_EndToEnd drives the real clients against fake HTTP services.
func TestRunner_EndToEnd(t *testing.T) {
	tvdbServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/login":
			w.Write([]byte(`{"token":"jwt"}`))
		case r.URL.Path == "/series/71663/episodes":
			assert.Equal(t, "Bearer jwt", r.Header.Get("Authorization"))
			switch r.URL.Query().Get("page") {
			case "1":
				w.Write([]byte(`{"data":[
					{"airedSeason":1,"airedEpisodeNumber":1,"episodeName":"Simpsons Roasting on an Open Fire","firstAired":"1989-12-17"},
					{"airedSeason":1,"airedEpisodeNumber":2,"episodeName":"Bart the Genius","firstAired":"1990-01-14"}
				],"links":{"first":1,"last":2,"next":2}}`))
			case "2":
				w.Write([]byte(`{"data":[
					{"airedSeason":0,"airedEpisodeNumber":1,"episodeName":"Good Night","firstAired":"1987-04-19"},
					{"airedSeason":1,"airedEpisodeNumber":3,"episodeName":"Homer's Odyssey","firstAired":"1990-01-21"}
				],"links":{"first":1,"last":2,"prev":1}}`))
			default:
				t.Errorf("unexpected page %q", r.URL.Query().Get("page"))
			}
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer tvdbServer.Close()

	plexServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok", r.Header.Get("X-Plex-Token"))
		switch r.URL.Path {
		case "/library/sections":
			w.Write([]byte(`{"MediaContainer":{"Directory":[{"key":"2","title":"TV","type":"show"}]}}`))
		case "/library/sections/2/all/":
			w.Write([]byte(`{"MediaContainer":{"Metadata":[{"ratingKey":"100","title":"The Simpsons"}]}}`))
		case "/library/metadata/100/":
			w.Write([]byte(`{"MediaContainer":{"Metadata":[{"ratingKey":"100","title":"The Simpsons","guid":"com.plexapp.agents.thetvdb://71663?lang=en"}]}}`))
		case "/library/metadata/100/allLeaves":
			w.Write([]byte(`{"MediaContainer":{"Metadata":[{"parentIndex":1,"index":1,"title":"Simpsons Roasting on an Open Fire"},{"parentIndex":1,"title":"broken"}]}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer plexServer.Close()

	httpCfg := config.HTTPConfig{Timeout: 5 * time.Second}
	tvdbClient := tvdb.NewClient(config.TVDBConfig{APIKey: "k", UserKey: "u", Username: "n", BaseURL: tvdbServer.URL}, httpCfg, zerolog.Nop())
	plexClient := plex.NewClient(config.PlexConfig{URL: plexServer.URL, Token: "tok", ClientID: "id"}, httpCfg, zerolog.Nop(), "test")

	res, err := newRunner(t, tvdbClient, plexClient, 1).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"The Simpsons S01 E02 - Bart the Genius",
		"The Simpsons S01 E03 - Homer's Odyssey",
	}, lines(t, res))
	assert.Equal(t, 1, res.Warnings)
}
