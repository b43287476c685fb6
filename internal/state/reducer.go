package state

import (
	"time"

	"github.com/google/uuid"

	"streamflix-catalog-service/internal/models"
)

// IDFunc generates an identifier for a new notification.
type IDFunc func() string

// NowFunc supplies the current time.
type NowFunc func() time.Time

// Reducer applies intents to state snapshots. Apply is pure: the only
// external inputs are the injected id and clock functions, so tests can
// pin both for determinism.
type Reducer struct {
	NewID IDFunc
	Now   NowFunc
}

// NewReducer returns a reducer using uuid identifiers and the wall clock.
func NewReducer() *Reducer {
	return &Reducer{NewID: uuid.NewString, Now: time.Now}
}

// Apply produces the next state from the current state and an intent.
// Unrecognized intents return the state unchanged. The input state is
// never mutated; transitions copy the slices and maps they touch and
// leave everything else sharing the previous snapshot's backing storage.
func (r *Reducer) Apply(s models.AppState, in Intent) models.AppState {
	switch v := in.(type) {
	case SetCatalog:
		s.Catalog = v.Items
		return s

	case SetProfile:
		s.Profile = v.Profile
		return s

	case UpdateProfile:
		s.Profile = mergeProfile(s.Profile, v.Patch)
		return s

	case SetSelectedContent:
		s.SelectedID = v.ID
		return s

	case SetSearchQuery:
		s.SearchQuery = v.Query
		return s

	case SetActiveTab:
		s.ActiveTab = v.Tab
		return s

	case ToggleWatchlist:
		s.Profile.Watchlist = toggle(s.Profile.Watchlist, v.ID)
		return s

	case AddToHistory:
		s.Profile.WatchHistory = pushHistory(s.Profile.WatchHistory, v.ID)
		return s

	case UpdateWatchProgress:
		progress := make(map[string]float64, len(s.Profile.WatchProgress)+1)
		for k, p := range s.Profile.WatchProgress {
			progress[k] = p
		}
		progress[v.ID] = v.Percent
		s.Profile.WatchProgress = progress
		return s

	case StartPlaying:
		s.Playback = models.PlaybackState{IsPlaying: true, CurrentID: v.ID}
		return s

	case StopPlaying:
		s.Playback = models.PlaybackState{}
		return s

	case AddNotification:
		n := models.Notification{
			ID:        r.NewID(),
			Message:   v.Message,
			Severity:  v.Severity,
			CreatedAt: r.Now(),
		}
		notifications := make([]models.Notification, 0, len(s.Notifications)+1)
		notifications = append(notifications, s.Notifications...)
		s.Notifications = append(notifications, n)
		return s

	case RemoveNotification:
		notifications := make([]models.Notification, 0, len(s.Notifications))
		for _, n := range s.Notifications {
			if n.ID != v.ID {
				notifications = append(notifications, n)
			}
		}
		s.Notifications = notifications
		return s
	}

	return s
}

func mergeProfile(p models.UserProfile, patch models.ProfilePatch) models.UserProfile {
	if patch.DisplayName != nil {
		p.DisplayName = *patch.DisplayName
	}
	if patch.WatchHistory != nil {
		p.WatchHistory = patch.WatchHistory
	}
	if patch.Watchlist != nil {
		p.Watchlist = patch.Watchlist
	}
	if patch.Preferences != nil {
		p.Preferences = patch.Preferences
	}
	if patch.WatchProgress != nil {
		p.WatchProgress = patch.WatchProgress
	}
	return p
}

func toggle(list []string, id string) []string {
	for i, existing := range list {
		if existing == id {
			next := make([]string, 0, len(list)-1)
			next = append(next, list[:i]...)
			return append(next, list[i+1:]...)
		}
	}
	next := make([]string, 0, len(list)+1)
	next = append(next, list...)
	return append(next, id)
}

func pushHistory(history []string, id string) []string {
	next := make([]string, 0, len(history)+1)
	next = append(next, id)
	for _, existing := range history {
		if existing != id {
			next = append(next, existing)
		}
	}
	if len(next) > models.HistoryLimit {
		next = next[:models.HistoryLimit]
	}
	return next
}
