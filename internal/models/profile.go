package models

// HistoryLimit caps the watch history at the most recent entries.
const HistoryLimit = 50

// UserProfile aggregates a session's viewing state. It is only ever
// replaced wholesale by the reducer, never mutated in place.
type UserProfile struct {
	ID            string             `json:"id"`
	DisplayName   string             `json:"display_name"`
	WatchHistory  []string           `json:"watch_history"`
	Watchlist     []string           `json:"watchlist"`
	Preferences   []string           `json:"preferences"`
	WatchProgress map[string]float64 `json:"watch_progress"`
}

// InWatchlist reports whether the content id is on the watchlist.
func (p UserProfile) InWatchlist(id string) bool {
	for _, w := range p.Watchlist {
		if w == id {
			return true
		}
	}
	return false
}

// ProfilePatch is a partial profile update. Nil fields are left untouched
// by the merge; non-nil fields replace the existing value wholesale.
type ProfilePatch struct {
	DisplayName   *string            `json:"display_name,omitempty"`
	WatchHistory  []string           `json:"watch_history,omitempty"`
	Watchlist     []string           `json:"watchlist,omitempty"`
	Preferences   []string           `json:"preferences,omitempty"`
	WatchProgress map[string]float64 `json:"watch_progress,omitempty"`
}
