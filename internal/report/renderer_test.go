package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/missingtv/missingtv/internal/missing"
)

func sampleReport() *missing.Report {
	return missing.NewReport([]*missing.Episode{
		{ShowTitle: "Zeta", TvdbID: 2, SeasonNumber: 2, EpisodeNumber: 1, Title: "Return", FirstAired: "2021-01-01"},
		{ShowTitle: "Zeta", TvdbID: 2, SeasonNumber: 1, EpisodeNumber: 3, Title: "Gap", FirstAired: "2020-01-15"},
		{ShowTitle: "Alpha", TvdbID: 1, SeasonNumber: 1, EpisodeNumber: 1, Title: "Start", FirstAired: "2019-05-05"},
	})
}

func render(t *testing.T, format string, rep *missing.Report) string {
	t.Helper()
	var buf bytes.Buffer
	r, err := NewRenderer(&buf, format)
	require.NoError(t, err)
	require.NoError(t, r.Render(rep))
	return buf.String()
}

func TestRenderer_Text(t *testing.T) {
	out := render(t, FormatText, sampleReport())

	want := "Alpha S01 E01 - Start\n" +
		"Zeta S01 E03 - Gap\n" +
		"Zeta S02 E01 - Return\n"
	assert.Equal(t, want, out)
}

func TestRenderer_TextEmpty(t *testing.T) {
	assert.Empty(t, render(t, FormatText, missing.NewReport(nil)))
}

func TestFormatLine_WideNumbers(t *testing.T) {
	line := FormatLine(&missing.Episode{ShowTitle: "One Piece", SeasonNumber: 21, EpisodeNumber: 1071, Title: "Gear 5"})
	assert.Equal(t, "One Piece S21 E1071 - Gear 5", line)
}

func TestRenderer_Table(t *testing.T) {
	out := render(t, FormatTable, sampleReport())

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Greater(t, len(lines), 4)
	header := strings.ToLower(lines[1])
	assert.Contains(t, header, "show")
	assert.Contains(t, header, "aired")
	assert.Contains(t, out, "Alpha")
	assert.Contains(t, out, "2020-01-15")
	assert.Less(t, strings.Index(out, "Alpha"), strings.Index(out, "Zeta"))
}

func TestRenderer_JSON(t *testing.T) {
	out := render(t, FormatJSON, sampleReport())

	var decoded missing.Report
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Len(t, decoded.Series, 2)
	assert.Equal(t, "Alpha", decoded.Series[0].Title)
	assert.Equal(t, 2, decoded.Series[1].MissingCount)
	assert.Contains(t, out, `"seasonNumber": 1`)
}

func TestRenderer_JSONEmpty(t *testing.T) {
	out := render(t, FormatJSON, missing.NewReport(nil))
	assert.JSONEq(t, `{"series":[]}`, out)
}

func TestRenderer_YAML(t *testing.T) {
	out := render(t, FormatYAML, sampleReport())

	var decoded missing.Report
	require.NoError(t, yaml.Unmarshal([]byte(out), &decoded))
	require.Len(t, decoded.Series, 2)
	assert.Equal(t, "Zeta", decoded.Series[1].Title)
	assert.Equal(t, "Gap", decoded.Series[1].MissingSeasons[0].MissingEpisodes[0].Title)
}

func TestNewRenderer_Formats(t *testing.T) {
	r, err := NewRenderer(&bytes.Buffer{}, "")
	require.NoError(t, err)
	assert.Equal(t, FormatText, r.format)

	_, err = NewRenderer(&bytes.Buffer{}, "xml")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}
