package library

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/missingtv/missingtv/internal/mediaserver/plex"
)

// ErrUnparseableGUID is returned when a show record carries no TVDB series ID.
var ErrUnparseableGUID = errors.New("unparseable show guid")

// ShowIdentity is the TVDB series ID a Plex show is matched to.
type ShowIdentity int

func (id ShowIdentity) String() string {
	return strconv.Itoa(int(id))
}

const tvdbScheme = "tvdb://"

// legacyGUIDPattern matches agent guids such as
// "com.plexapp.agents.thetvdb://78874?lang=en" or "...thetvdb://78874/1/2".
var legacyGUIDPattern = regexp.MustCompile(`^([^:/]+)://(\d+)(?:[/?].*)?$`)

// Agents whose numeric guid is not a TVDB series ID.
var foreignAgents = []string{"themoviedb", "imdb", "tmdb", "plex", "local"}

// ParseShowIdentity extracts the TVDB series ID from a show's metadata.
// A "tvdb://N" entry of the Guid array wins over the legacy guid field.
func ParseShowIdentity(meta *plex.ShowMetadata) (ShowIdentity, error) {
	if meta == nil {
		return 0, ErrUnparseableGUID
	}

	for _, g := range meta.GUIDs {
		if rest, ok := strings.CutPrefix(g.ID, tvdbScheme); ok {
			if id, err := parseID(rest); err == nil {
				return id, nil
			}
		}
	}

	m := legacyGUIDPattern.FindStringSubmatch(strings.TrimSpace(meta.GUID))
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrUnparseableGUID, meta.GUID)
	}
	agent := strings.ToLower(m[1])
	for _, foreign := range foreignAgents {
		if strings.HasSuffix(agent, foreign) {
			return 0, fmt.Errorf("%w: %q is not a tvdb guid", ErrUnparseableGUID, meta.GUID)
		}
	}
	return parseID(m[2])
}

func parseID(s string) (ShowIdentity, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: invalid series id %q", ErrUnparseableGUID, s)
	}
	return ShowIdentity(n), nil
}
