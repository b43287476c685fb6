package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"streamflix-catalog-service/internal/config"
	"streamflix-catalog-service/internal/models"
	"streamflix-catalog-service/internal/playback"
	"streamflix-catalog-service/internal/query"
	"streamflix-catalog-service/internal/state"
	"streamflix-catalog-service/internal/views"
)

const catalogQueryKey = "content-library"

// SessionService owns one catalog fetch activation and a registry of
// per-session state stores. Profiles are persisted to the session cache
// on every mutation and rehydrated when a session reappears.
type SessionService struct {
	cache   query.SessionCache
	reducer *state.Reducer
	catalog *query.Query[[]models.ContentItem]
	cfg     config.SessionConfig

	ctx      context.Context
	mu       sync.Mutex
	sessions map[string]*Session
	stopped  bool
}

// NewSessionService builds the service around a catalog source. The
// source may be the mock generator or a database-backed repository; the
// fetch loader treats both identically.
func NewSessionService(
	cache query.SessionCache,
	source query.Fetcher[[]models.ContentItem],
	catalogCfg config.CatalogConfig,
	sessionCfg config.SessionConfig,
) *SessionService {
	s := &SessionService{
		cache:    cache,
		reducer:  state.NewReducer(),
		cfg:      sessionCfg,
		ctx:      context.Background(),
		sessions: make(map[string]*Session),
	}
	s.catalog = query.New(catalogQueryKey, cache, source, query.Options{
		StaleTime:       catalogCfg.StaleTime,
		CacheTime:       catalogCfg.CacheTime,
		RefetchInterval: catalogCfg.RefetchInterval,
	})
	s.catalog.OnData(s.broadcastCatalog)
	return s
}

// Start activates the catalog loader.
func (s *SessionService) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	s.catalog.Start(ctx)
}

// Stop tears down the catalog loader and every session. Pending timers
// are cancelled so nothing fires against discarded state.
func (s *SessionService) Stop() {
	s.catalog.Stop()

	s.mu.Lock()
	s.stopped = true
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.Close()
	}
}

func (s *SessionService) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// CatalogState returns the loader snapshot for the catalog.
func (s *SessionService) CatalogState() query.State[[]models.ContentItem] {
	return s.catalog.State()
}

// RefreshCatalog forces a catalog refetch.
func (s *SessionService) RefreshCatalog() {
	s.catalog.Refetch()
}

// Session returns the session for the given id, creating and hydrating
// it on first use. Each access resets the session's idle clock; sessions
// untouched for the session TTL are evicted and closed, so the registry
// stays bounded by the set of recently active sessions.
func (s *SessionService) Session(id string) *Session {
	s.mu.Lock()
	if sess, ok := s.sessions[id]; ok {
		s.mu.Unlock()
		sess.touch()
		return sess
	}
	s.mu.Unlock()

	// Cache reads happen outside the registry lock so a slow round-trip
	// cannot stall other sessions or the catalog broadcast.
	profile := s.hydrateProfile(id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		sess.touch()
		return sess
	}

	initial := models.AppState{
		Catalog:   s.catalog.State().Data,
		Profile:   profile,
		ActiveTab: models.TabHome,
	}
	sess := &Session{
		ID:     id,
		svc:    s,
		store:  state.NewStore(initial, s.reducer),
		views:  views.New(),
		expiry: make(map[string]*time.Timer),
	}
	sess.debouncer = views.NewDebouncer(s.cfg.SearchDebounce, func(q string) {
		sess.mu.Lock()
		sess.debouncedQuery = q
		sess.mu.Unlock()
	})
	sess.idle = time.AfterFunc(s.cfg.TTL, func() { s.evict(sess) })
	s.sessions[id] = sess
	return sess
}

// evict drops an idle session from the registry and closes it. The
// registry is re-checked so a session recreated under the same id is
// never torn down by a stale timer.
func (s *SessionService) evict(sess *Session) {
	s.mu.Lock()
	if current, ok := s.sessions[sess.ID]; !ok || current != sess {
		s.mu.Unlock()
		return
	}
	delete(s.sessions, sess.ID)
	s.mu.Unlock()

	slog.Debug("evicting idle session", "session", sess.ID)
	sess.Close()
}

func (s *SessionService) broadcastCatalog(items []models.ContentItem) {
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.store.Dispatch(state.SetCatalog{Items: items})
	}
}

func (s *SessionService) hydrateProfile(id string) models.UserProfile {
	raw, err := s.cache.Get(s.context(), profileKey(id))
	if err == nil {
		var profile models.UserProfile
		if json.Unmarshal([]byte(raw), &profile) == nil {
			return profile
		}
		slog.Warn("stored profile corrupt, starting fresh", "session", id)
	} else if err != query.ErrCacheMiss {
		slog.Warn("profile cache read failed", "session", id, "error", err)
	}
	return defaultProfile(id)
}

func defaultProfile(id string) models.UserProfile {
	return models.UserProfile{
		ID:            id,
		DisplayName:   "Guest",
		WatchHistory:  []string{},
		Watchlist:     []string{},
		Preferences:   []string{"Action", "Sci-Fi"},
		WatchProgress: map[string]float64{},
	}
}

func profileKey(id string) string {
	return fmt.Sprintf("session:%s:profile", id)
}

// Session is one browsing session: a state store, its projection cache,
// the search debouncer, and the expiry timers for transient
// notifications.
type Session struct {
	ID    string
	svc   *SessionService
	store *state.Store
	views *views.Views

	mu             sync.Mutex
	debouncer      *views.Debouncer
	debouncedQuery string
	expiry         map[string]*time.Timer
	tracker        *playback.Tracker
	idle           *time.Timer
	closed         bool
}

// touch resets the idle-eviction clock.
func (sess *Session) touch() {
	sess.mu.Lock()
	if sess.idle != nil && !sess.closed {
		sess.idle.Reset(sess.svc.cfg.TTL)
	}
	sess.mu.Unlock()
}

// State returns the current snapshot.
func (sess *Session) State() models.AppState {
	return sess.store.State()
}

// SetTab switches the active catalog view.
func (sess *Session) SetTab(tab models.Tab) models.AppState {
	return sess.store.Dispatch(state.SetActiveTab{Tab: tab})
}

// Search records the raw query immediately and propagates it into the
// browse projection once the input settles.
func (sess *Session) Search(text string) models.AppState {
	next := sess.store.Dispatch(state.SetSearchQuery{Query: text})
	sess.debouncer.Update(text)
	return next
}

// DebouncedQuery returns the settled search text.
func (sess *Session) DebouncedQuery() string {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.debouncedQuery
}

// Browse returns the tab- and search-filtered listing.
func (sess *Session) Browse() []models.ContentItem {
	return sess.views.Browse(sess.State(), sess.DebouncedQuery())
}

// Trending returns the trending rail.
func (sess *Session) Trending() []models.ContentItem {
	return sess.views.Trending(sess.State())
}

// Recommendations returns the preference-matched rail.
func (sess *Session) Recommendations() []models.ContentItem {
	return sess.views.Recommendations(sess.State())
}

// Featured returns the hero item, nil when the catalog is empty.
func (sess *Session) Featured() *models.ContentItem {
	return sess.views.Featured(sess.State())
}

// ContinueWatching returns partially watched history items.
func (sess *Session) ContinueWatching() []models.ContentItem {
	return sess.views.ContinueWatching(sess.State())
}

// GenreRail returns the rail for one genre.
func (sess *Session) GenreRail(genre string) []models.ContentItem {
	return sess.views.GenreRail(sess.State(), genre)
}

// ToggleWatchlist flips watchlist membership and emits the corresponding
// notification. It reports whether the id is now on the list.
func (sess *Session) ToggleWatchlist(id string) bool {
	wasListed := sess.State().Profile.InWatchlist(id)
	sess.store.Dispatch(state.ToggleWatchlist{ID: id})
	message := "Added to watchlist"
	if wasListed {
		message = "Removed from watchlist"
	}
	sess.Notify(message, models.SeveritySuccess)
	sess.persistProfile()
	return !wasListed
}

// AddToHistory records a view of the given content.
func (sess *Session) AddToHistory(id string) models.AppState {
	next := sess.store.Dispatch(state.AddToHistory{ID: id})
	sess.persistProfile()
	return next
}

// UpdateProgress records the percentage watched. The value is stored as
// supplied; the caller is responsible for the 0-100 range.
func (sess *Session) UpdateProgress(id string, percent float64) models.AppState {
	next := sess.store.Dispatch(state.UpdateWatchProgress{ID: id, Percent: percent})
	sess.persistProfile()
	return next
}

// UpdateProfile shallow-merges the patch into the profile.
func (sess *Session) UpdateProfile(patch models.ProfilePatch) models.AppState {
	next := sess.store.Dispatch(state.UpdateProfile{Patch: patch})
	sess.persistProfile()
	return next
}

// Play selects the content, records it in history and marks it playing.
// When a playback surface is supplied, progress sampling starts and
// playback resumes from any saved position.
func (sess *Session) Play(ctx context.Context, id string, surface playback.Surface) models.AppState {
	next := sess.store.Dispatch(
		state.SetSelectedContent{ID: id},
		state.AddToHistory{ID: id},
		state.StartPlaying{ID: id},
	)
	sess.persistProfile()

	if surface != nil {
		resume := next.Profile.WatchProgress[id]
		tracker := playback.NewTracker(surface, sess.store, id, playback.DefaultSampleInterval)
		sess.mu.Lock()
		if sess.tracker != nil {
			sess.tracker.Stop()
		}
		sess.tracker = tracker
		sess.mu.Unlock()
		tracker.Start(ctx, resume)
	}
	return next
}

// StopPlayback resets the player and clears the selection.
func (sess *Session) StopPlayback() models.AppState {
	sess.mu.Lock()
	tracker := sess.tracker
	sess.tracker = nil
	sess.mu.Unlock()
	if tracker != nil {
		tracker.Stop()
	}
	next := sess.store.Dispatch(state.StopPlaying{}, state.SetSelectedContent{})
	sess.persistProfile()
	return next
}

// Notify appends a notification and schedules its automatic expiry.
func (sess *Session) Notify(message string, severity models.Severity) models.Notification {
	next := sess.store.Dispatch(state.AddNotification{Message: message, Severity: severity})
	n := next.Notifications[len(next.Notifications)-1]

	sess.mu.Lock()
	if !sess.closed {
		sess.expiry[n.ID] = time.AfterFunc(sess.svc.cfg.NotificationTTL, func() {
			sess.Dismiss(n.ID)
		})
	}
	sess.mu.Unlock()
	return n
}

// Dismiss removes a notification and cancels its expiry timer.
func (sess *Session) Dismiss(id string) {
	sess.mu.Lock()
	if timer, ok := sess.expiry[id]; ok {
		timer.Stop()
		delete(sess.expiry, id)
	}
	sess.mu.Unlock()
	sess.store.Dispatch(state.RemoveNotification{ID: id})
}

// Close cancels the session's timers and persists the profile one final
// time.
func (sess *Session) Close() {
	sess.mu.Lock()
	if sess.closed {
		sess.mu.Unlock()
		return
	}
	sess.closed = true
	if sess.idle != nil {
		sess.idle.Stop()
	}
	for id, timer := range sess.expiry {
		timer.Stop()
		delete(sess.expiry, id)
	}
	tracker := sess.tracker
	sess.tracker = nil
	sess.mu.Unlock()

	if tracker != nil {
		tracker.Stop()
	}
	sess.debouncer.Stop()
	sess.persistProfile()
}

func (sess *Session) persistProfile() {
	profile := sess.State().Profile
	raw, err := json.Marshal(profile)
	if err != nil {
		slog.Error("failed to marshal profile", "session", sess.ID, "error", err)
		return
	}
	if err := sess.svc.cache.Set(sess.svc.context(), profileKey(sess.ID), string(raw), sess.svc.cfg.TTL); err != nil {
		slog.Error("failed to persist profile", "session", sess.ID, "error", err)
	}
}
