package service

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"streamflix-catalog-service/internal/config"
	"streamflix-catalog-service/internal/models"
	"streamflix-catalog-service/internal/query"
)

func testCatalogSource(calls *atomic.Int64) query.Fetcher[[]models.ContentItem] {
	return func(context.Context) ([]models.ContentItem, error) {
		if calls != nil {
			calls.Add(1)
		}
		return []models.ContentItem{
			{ID: "a", Title: "The Last Journey", Kind: models.KindMovie, Genres: []string{"Action"}, Trending: true},
			{ID: "b", Title: "Midnight Eclipse", Kind: models.KindSeries, Genres: []string{"Comedy"}},
			{ID: "c", Title: "Beyond Horizons", Kind: models.KindMovie, Genres: []string{"Sci-Fi"}, Featured: true},
		}, nil
	}
}

func testService(cache query.SessionCache, calls *atomic.Int64) *SessionService {
	return NewSessionService(cache, testCatalogSource(calls),
		config.CatalogConfig{
			StaleTime: time.Minute,
			CacheTime: 10 * time.Minute,
		},
		config.SessionConfig{
			TTL:             time.Minute,
			NotificationTTL: 40 * time.Millisecond,
			SearchDebounce:  10 * time.Millisecond,
		},
	)
}

func waitForCatalog(t *testing.T, sess *Session) {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(sess.State().Catalog) > 0
	}, time.Second, 5*time.Millisecond)
}

func TestSession_DefaultProfile(t *testing.T) {
	svc := testService(query.NewMemoryCache(), nil)
	svc.Start(context.Background())
	defer svc.Stop()

	sess := svc.Session("sess-1")
	profile := sess.State().Profile

	require.Equal(t, "sess-1", profile.ID)
	require.Equal(t, "Guest", profile.DisplayName)
	require.Empty(t, profile.WatchHistory)
	require.Empty(t, profile.Watchlist)
	require.NotEmpty(t, profile.Preferences)
}

func TestSession_ReceivesCatalogBroadcast(t *testing.T) {
	svc := testService(query.NewMemoryCache(), nil)
	sess := svc.Session("sess-1") // created before the loader starts
	svc.Start(context.Background())
	defer svc.Stop()

	waitForCatalog(t, sess)
	require.Len(t, sess.State().Catalog, 3)
}

func TestSession_ToggleWatchlistNotifies(t *testing.T) {
	svc := testService(query.NewMemoryCache(), nil)
	svc.Start(context.Background())
	defer svc.Stop()

	sess := svc.Session("sess-1")

	require.True(t, sess.ToggleWatchlist("a"))
	s := sess.State()
	require.Equal(t, []string{"a"}, s.Profile.Watchlist)
	require.Len(t, s.Notifications, 1)
	require.Equal(t, "Added to watchlist", s.Notifications[0].Message)
	require.Equal(t, models.SeveritySuccess, s.Notifications[0].Severity)

	require.False(t, sess.ToggleWatchlist("a"))
	s = sess.State()
	require.Empty(t, s.Profile.Watchlist)
	require.Equal(t, "Removed from watchlist", s.Notifications[len(s.Notifications)-1].Message)
}

func TestSession_NotificationExpires(t *testing.T) {
	svc := testService(query.NewMemoryCache(), nil)
	svc.Start(context.Background())
	defer svc.Stop()

	sess := svc.Session("sess-1")
	n := sess.Notify("transient", models.SeverityInfo)
	require.Len(t, sess.State().Notifications, 1)

	require.Eventually(t, func() bool {
		return len(sess.State().Notifications) == 0
	}, time.Second, 5*time.Millisecond)

	// Dismissing after expiry is harmless.
	sess.Dismiss(n.ID)
}

func TestSession_DismissCancelsExpiry(t *testing.T) {
	svc := testService(query.NewMemoryCache(), nil)
	svc.Start(context.Background())
	defer svc.Stop()

	sess := svc.Session("sess-1")
	n := sess.Notify("gone early", models.SeverityInfo)
	sess.Dismiss(n.ID)
	require.Empty(t, sess.State().Notifications)
}

func TestSession_ProfileRehydratesAcrossServices(t *testing.T) {
	cache := query.NewMemoryCache()

	svc1 := testService(cache, nil)
	svc1.Start(context.Background())
	sess := svc1.Session("sess-1")
	sess.ToggleWatchlist("a")
	sess.AddToHistory("b")
	sess.UpdateProgress("b", 35)
	svc1.Stop()

	svc2 := testService(cache, nil)
	svc2.Start(context.Background())
	defer svc2.Stop()

	profile := svc2.Session("sess-1").State().Profile
	require.Equal(t, []string{"a"}, profile.Watchlist)
	require.Equal(t, []string{"b"}, profile.WatchHistory)
	require.Equal(t, 35.0, profile.WatchProgress["b"])
}

func TestSession_CatalogServedFromCacheOnSecondService(t *testing.T) {
	cache := query.NewMemoryCache()

	var firstCalls atomic.Int64
	svc1 := testService(cache, &firstCalls)
	svc1.Start(context.Background())
	waitForCatalog(t, svc1.Session("sess-1"))
	svc1.Stop()
	require.EqualValues(t, 1, firstCalls.Load())

	// Within CacheTime the second activation hydrates without invoking
	// the producer.
	var secondCalls atomic.Int64
	svc2 := testService(cache, &secondCalls)
	svc2.Start(context.Background())
	defer svc2.Stop()

	require.Len(t, svc2.CatalogState().Data, 3)
	time.Sleep(30 * time.Millisecond)
	require.EqualValues(t, 0, secondCalls.Load())
}

func TestSession_SearchDebouncesIntoBrowse(t *testing.T) {
	svc := testService(query.NewMemoryCache(), nil)
	svc.Start(context.Background())
	defer svc.Stop()

	sess := svc.Session("sess-1")
	waitForCatalog(t, sess)

	sess.Search("ecl")
	sess.Search("eclipse")
	require.Equal(t, "eclipse", sess.State().SearchQuery)

	require.Eventually(t, func() bool {
		return sess.DebouncedQuery() == "eclipse"
	}, time.Second, 5*time.Millisecond)

	items := sess.Browse()
	require.Len(t, items, 1)
	require.Equal(t, "b", items[0].ID)
}

func TestSession_PlayFlow(t *testing.T) {
	svc := testService(query.NewMemoryCache(), nil)
	svc.Start(context.Background())
	defer svc.Stop()

	sess := svc.Session("sess-1")
	waitForCatalog(t, sess)

	s := sess.Play(context.Background(), "a", nil)
	require.Equal(t, "a", s.SelectedID)
	require.True(t, s.Playback.IsPlaying)
	require.Equal(t, "a", s.Playback.CurrentID)
	require.Equal(t, []string{"a"}, s.Profile.WatchHistory)

	s = sess.StopPlayback()
	require.False(t, s.Playback.IsPlaying)
	require.Empty(t, s.SelectedID)
}

func TestSession_Views(t *testing.T) {
	svc := testService(query.NewMemoryCache(), nil)
	svc.Start(context.Background())
	defer svc.Stop()

	sess := svc.Session("sess-1")
	waitForCatalog(t, sess)

	trending := sess.Trending()
	require.Len(t, trending, 1)
	require.Equal(t, "a", trending[0].ID)

	featured := sess.Featured()
	require.NotNil(t, featured)
	require.Equal(t, "c", featured.ID)

	// Default preferences include Action.
	recs := sess.Recommendations()
	require.NotEmpty(t, recs)
	require.Equal(t, "a", recs[0].ID)

	sess.AddToHistory("a")
	sess.UpdateProgress("a", 50)
	cont := sess.ContinueWatching()
	require.Len(t, cont, 1)
	require.Equal(t, "a", cont[0].ID)

	rail := sess.GenreRail("Sci-Fi")
	require.Len(t, rail, 1)
	require.Equal(t, "c", rail[0].ID)
}

func TestSession_SetTab(t *testing.T) {
	svc := testService(query.NewMemoryCache(), nil)
	svc.Start(context.Background())
	defer svc.Stop()

	sess := svc.Session("sess-1")
	waitForCatalog(t, sess)

	sess.SetTab(models.TabMovies)
	items := sess.Browse()
	require.Len(t, items, 2)
	for _, c := range items {
		require.Equal(t, models.KindMovie, c.Kind)
	}
}

// blockingCache stalls profile reads while blocked is set. Catalog keys
// pass through so the fetch loader is unaffected.
type blockingCache struct {
	query.SessionCache
	blocked atomic.Bool
	gate    chan struct{}
}

func newBlockingCache() *blockingCache {
	return &blockingCache{SessionCache: query.NewMemoryCache(), gate: make(chan struct{})}
}

func (c *blockingCache) Get(ctx context.Context, key string) (string, error) {
	if c.blocked.Load() && strings.HasPrefix(key, "session:") {
		<-c.gate
	}
	return c.SessionCache.Get(ctx, key)
}

func evictionService(cache query.SessionCache, ttl time.Duration) *SessionService {
	return NewSessionService(cache, testCatalogSource(nil),
		config.CatalogConfig{
			StaleTime: time.Minute,
			CacheTime: 10 * time.Minute,
		},
		config.SessionConfig{
			TTL:             ttl,
			NotificationTTL: time.Minute,
			SearchDebounce:  time.Millisecond,
		},
	)
}

func sessionCount(svc *SessionService) int {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return len(svc.sessions)
}

func TestService_EvictsIdleSessions(t *testing.T) {
	cache := query.NewMemoryCache()
	svc := evictionService(cache, 30*time.Millisecond)
	svc.Start(context.Background())
	defer svc.Stop()

	sess := svc.Session("sess-1")
	sess.ToggleWatchlist("a")

	require.Eventually(t, func() bool {
		return sessionCount(svc) == 0
	}, time.Second, 5*time.Millisecond, "idle session must leave the registry")

	// A fresh lookup rebuilds the session from the persisted profile.
	rehydrated := svc.Session("sess-1")
	require.NotSame(t, sess, rehydrated)
	require.Equal(t, []string{"a"}, rehydrated.State().Profile.Watchlist)
}

func TestService_AccessResetsIdleEviction(t *testing.T) {
	svc := evictionService(query.NewMemoryCache(), 60*time.Millisecond)
	svc.Start(context.Background())
	defer svc.Stop()

	sess := svc.Session("sess-1")
	for i := 0; i < 5; i++ {
		time.Sleep(25 * time.Millisecond)
		require.Same(t, sess, svc.Session("sess-1"), "active session must survive past the TTL")
	}

	require.Eventually(t, func() bool {
		return sessionCount(svc) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestService_HydrationDoesNotBlockRegistry(t *testing.T) {
	cache := newBlockingCache()
	svc := testService(cache, nil)
	svc.Start(context.Background())
	defer svc.Stop()

	sess1 := svc.Session("sess-1")

	cache.blocked.Store(true)
	stalled := make(chan *Session, 1)
	go func() { stalled <- svc.Session("sess-2") }()

	// An existing session stays reachable while another id's profile read
	// is in flight.
	got := make(chan *Session, 1)
	go func() { got <- svc.Session("sess-1") }()
	select {
	case sess := <-got:
		require.Same(t, sess1, sess)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("registry lookup blocked behind another session's hydration")
	}

	close(cache.gate)
	require.Same(t, <-stalled, svc.Session("sess-2"))
}

func TestService_ConcurrentCreateYieldsOneSession(t *testing.T) {
	cache := newBlockingCache()
	svc := testService(cache, nil)
	svc.Start(context.Background())
	defer svc.Stop()

	cache.blocked.Store(true)
	first := make(chan *Session, 1)
	second := make(chan *Session, 1)
	go func() { first <- svc.Session("sess-1") }()
	go func() { second <- svc.Session("sess-1") }()

	time.Sleep(20 * time.Millisecond)
	close(cache.gate)

	require.Same(t, <-first, <-second)
	require.Equal(t, 1, sessionCount(svc))
}

func TestService_SameSessionReturned(t *testing.T) {
	svc := testService(query.NewMemoryCache(), nil)
	svc.Start(context.Background())
	defer svc.Stop()

	require.Same(t, svc.Session("sess-1"), svc.Session("sess-1"))
	require.NotSame(t, svc.Session("sess-1"), svc.Session("sess-2"))
}
