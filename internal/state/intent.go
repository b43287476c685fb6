package state

import "streamflix-catalog-service/internal/models"

// Intent is a described user or system action dispatched to the reducer.
// The set of intents is closed: one struct per transition, matched
// exhaustively in Reducer.Apply.
type Intent interface {
	isIntent()
}

// SetCatalog replaces the catalog wholesale.
type SetCatalog struct {
	Items []models.ContentItem
}

// SetProfile replaces the profile wholesale.
type SetProfile struct {
	Profile models.UserProfile
}

// UpdateProfile shallow-merges non-nil patch fields into the profile.
type UpdateProfile struct {
	Patch models.ProfilePatch
}

// SetSelectedContent selects a content item; an empty ID clears selection.
type SetSelectedContent struct {
	ID string
}

// SetSearchQuery replaces the raw search text.
type SetSearchQuery struct {
	Query string
}

// SetActiveTab switches the active catalog view.
type SetActiveTab struct {
	Tab models.Tab
}

// ToggleWatchlist removes the id from the watchlist if present, otherwise
// appends it.
type ToggleWatchlist struct {
	ID string
}

// AddToHistory moves or inserts the id at the head of the watch history,
// deduplicating and truncating to the most recent entries.
type AddToHistory struct {
	ID string
}

// UpdateWatchProgress records the percentage watched for a content id.
// The value is stored as supplied; callers provide 0-100.
type UpdateWatchProgress struct {
	ID      string
	Percent float64
}

// StartPlaying marks the given content as playing.
type StartPlaying struct {
	ID string
}

// StopPlaying resets the playback state.
type StopPlaying struct{}

// AddNotification appends a notification with a freshly generated id and
// timestamp.
type AddNotification struct {
	Message  string
	Severity models.Severity
}

// RemoveNotification filters the notification out by id.
type RemoveNotification struct {
	ID string
}

func (SetCatalog) isIntent()          {}
func (SetProfile) isIntent()          {}
func (UpdateProfile) isIntent()       {}
func (SetSelectedContent) isIntent()  {}
func (SetSearchQuery) isIntent()      {}
func (SetActiveTab) isIntent()        {}
func (ToggleWatchlist) isIntent()     {}
func (AddToHistory) isIntent()        {}
func (UpdateWatchProgress) isIntent() {}
func (StartPlaying) isIntent()        {}
func (StopPlaying) isIntent()         {}
func (AddNotification) isIntent()     {}
func (RemoveNotification) isIntent()  {}
