package models

// Kind distinguishes the two content categories in the catalog.
type Kind string

const (
	KindMovie  Kind = "movie"
	KindSeries Kind = "series"
)

// Tab identifies the active catalog view.
type Tab string

const (
	TabHome      Tab = "home"
	TabMovies    Tab = "movies"
	TabSeries    Tab = "series"
	TabWatchlist Tab = "watchlist"
)

// Valid reports whether t is one of the known tabs.
func (t Tab) Valid() bool {
	switch t {
	case TabHome, TabMovies, TabSeries, TabWatchlist:
		return true
	}
	return false
}

// ContentItem is a single title in the catalog. Items are created at
// catalog-load time and never mutated afterwards; identity is ID.
type ContentItem struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Kind        Kind     `json:"kind"`
	Genres      []string `json:"genres"`
	Rating      float64  `json:"rating"`
	Year        int      `json:"year"`
	Duration    string   `json:"duration"`
	Thumbnail   string   `json:"thumbnail"`
	Description string   `json:"description"`
	Trending    bool     `json:"trending"`
	Featured    bool     `json:"featured"`
	VideoURL    string   `json:"video_url,omitempty"`
}

// HasGenre reports whether the item carries the given genre tag.
func (c ContentItem) HasGenre(genre string) bool {
	for _, g := range c.Genres {
		if g == genre {
			return true
		}
	}
	return false
}
