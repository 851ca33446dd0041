package plex

// SectionTypeShow is the library section type holding TV series.
const SectionTypeShow = "show"

// LibrarySection represents a Plex library section
type LibrarySection struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Type  string `json:"type"` // "movie", "show", "artist", etc.
	Agent string `json:"agent,omitempty"`
}

// IsShowSection reports whether the section holds TV series.
func (s LibrarySection) IsShowSection() bool {
	return s.Type == SectionTypeShow
}

// SectionItem is one entry of a section's directory listing.
type SectionItem struct {
	RatingKey string `json:"ratingKey"`
	Title     string `json:"title"`
	Type      string `json:"type,omitempty"`
}

// ExternalGUID is one entry of the Guid array returned with includeGuids=1.
type ExternalGUID struct {
	ID string `json:"id"` // e.g. "tvdb://78874", "imdb://tt0096697"
}

// ShowMetadata is the per-show record from /library/metadata/{ratingKey}.
type ShowMetadata struct {
	RatingKey string         `json:"ratingKey"`
	Title     string         `json:"title"`
	GUID      string         `json:"guid"`
	GUIDs     []ExternalGUID `json:"Guid,omitempty"`
}

// Leaf is one episode from /library/metadata/{ratingKey}/allLeaves.
// Season and episode numbers are pointers because Plex omits them for
// badly matched files.
type Leaf struct {
	RatingKey        string `json:"ratingKey"`
	Title            string `json:"title"`
	ParentIndex      *int   `json:"parentIndex,omitempty"`
	Index            *int   `json:"index,omitempty"`
	GrandparentTitle string `json:"grandparentTitle,omitempty"`
}

// signInResponse is the body of plex.tv/users/sign_in.json.
type signInResponse struct {
	User struct {
		AuthToken string `json:"authToken"`
		Username  string `json:"username"`
	} `json:"user"`
}

// mediaContainer wraps every Plex server listing. Current servers put items
// under Metadata; older ones use Directory for shows and Video for episodes.
type mediaContainer[T any] struct {
	MediaContainer struct {
		Size      int `json:"size"`
		Directory []T `json:"Directory"`
		Metadata  []T `json:"Metadata"`
		Video     []T `json:"Video"`
	} `json:"MediaContainer"`
}

func (m *mediaContainer[T]) items() []T {
	c := m.MediaContainer
	items := make([]T, 0, len(c.Metadata)+len(c.Directory)+len(c.Video))
	items = append(items, c.Metadata...)
	items = append(items, c.Directory...)
	items = append(items, c.Video...)
	return items
}
