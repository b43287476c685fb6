package views

import (
	"reflect"
	"strings"
	"sync"

	"streamflix-catalog-service/internal/models"
)

const (
	maxRecommended       = 20
	maxTrending          = 20
	maxContinueWatching  = 10
	maxGenreRail         = 20
	continueThresholdPct = 90
)

// Views computes pure projections of the catalog and profile. Each
// projection memoizes its last result against the identity of its
// declared inputs: referentially unchanged inputs return the cached
// slice without recomputation. The reducer's copy-on-write discipline
// guarantees a changed input always carries a fresh backing array.
//
// A Views value is safe for concurrent use.
type Views struct {
	mu        sync.Mutex
	browse    browseMemo
	recs      recsMemo
	trending  catalogMemo
	featured  featuredMemo
	cont      continueMemo
	genreRail map[string]catalogMemo
}

// New creates an empty projection cache.
func New() *Views {
	return &Views{genreRail: make(map[string]catalogMemo)}
}

type browseMemo struct {
	valid     bool
	catalog   []models.ContentItem
	tab       models.Tab
	watchlist []string
	query     string
	result    []models.ContentItem
}

type recsMemo struct {
	valid       bool
	catalog     []models.ContentItem
	preferences []string
	result      []models.ContentItem
}

type catalogMemo struct {
	valid   bool
	catalog []models.ContentItem
	result  []models.ContentItem
}

type featuredMemo struct {
	valid   bool
	catalog []models.ContentItem
	result  *models.ContentItem
}

type continueMemo struct {
	valid    bool
	catalog  []models.ContentItem
	history  []string
	progress map[string]float64
	result   []models.ContentItem
}

// Browse filters the catalog by the active tab, then by the debounced
// search query: a case-insensitive substring match against the title or
// any genre. Catalog order is preserved; there is no ranking.
func (v *Views) Browse(s models.AppState, query string) []models.ContentItem {
	v.mu.Lock()
	defer v.mu.Unlock()

	m := &v.browse
	if m.valid && sameItems(m.catalog, s.Catalog) && m.tab == s.ActiveTab &&
		sameStrings(m.watchlist, s.Profile.Watchlist) && m.query == query {
		return m.result
	}

	result := make([]models.ContentItem, 0, len(s.Catalog))
	needle := strings.ToLower(query)
	for _, c := range s.Catalog {
		switch s.ActiveTab {
		case models.TabMovies:
			if c.Kind != models.KindMovie {
				continue
			}
		case models.TabSeries:
			if c.Kind != models.KindSeries {
				continue
			}
		case models.TabWatchlist:
			if !s.Profile.InWatchlist(c.ID) {
				continue
			}
		}
		if needle != "" && !matchesQuery(c, needle) {
			continue
		}
		result = append(result, c)
	}

	*m = browseMemo{
		valid:     true,
		catalog:   s.Catalog,
		tab:       s.ActiveTab,
		watchlist: s.Profile.Watchlist,
		query:     query,
		result:    result,
	}
	return result
}

// Recommendations returns the first items sharing at least one genre with
// the profile preferences, in catalog order.
func (v *Views) Recommendations(s models.AppState) []models.ContentItem {
	v.mu.Lock()
	defer v.mu.Unlock()

	m := &v.recs
	if m.valid && sameItems(m.catalog, s.Catalog) && sameStrings(m.preferences, s.Profile.Preferences) {
		return m.result
	}

	preferred := make(map[string]bool, len(s.Profile.Preferences))
	for _, g := range s.Profile.Preferences {
		preferred[g] = true
	}

	var result []models.ContentItem
	for _, c := range s.Catalog {
		if len(result) == maxRecommended {
			break
		}
		for _, g := range c.Genres {
			if preferred[g] {
				result = append(result, c)
				break
			}
		}
	}

	*m = recsMemo{valid: true, catalog: s.Catalog, preferences: s.Profile.Preferences, result: result}
	return result
}

// Trending returns the first items flagged trending, in catalog order.
func (v *Views) Trending(s models.AppState) []models.ContentItem {
	v.mu.Lock()
	defer v.mu.Unlock()

	m := &v.trending
	if m.valid && sameItems(m.catalog, s.Catalog) {
		return m.result
	}

	var result []models.ContentItem
	for _, c := range s.Catalog {
		if len(result) == maxTrending {
			break
		}
		if c.Trending {
			result = append(result, c)
		}
	}

	*m = catalogMemo{valid: true, catalog: s.Catalog, result: result}
	return result
}

// Featured returns the first item flagged featured, falling back to the
// first catalog item, or nil for an empty catalog.
func (v *Views) Featured(s models.AppState) *models.ContentItem {
	v.mu.Lock()
	defer v.mu.Unlock()

	m := &v.featured
	if m.valid && sameItems(m.catalog, s.Catalog) {
		return m.result
	}

	var result *models.ContentItem
	for i := range s.Catalog {
		if s.Catalog[i].Featured {
			c := s.Catalog[i]
			result = &c
			break
		}
	}
	if result == nil && len(s.Catalog) > 0 {
		c := s.Catalog[0]
		result = &c
	}

	*m = featuredMemo{valid: true, catalog: s.Catalog, result: result}
	return result
}

// ContinueWatching returns items that are in the watch history with a
// recorded progress below the completion threshold. Ordering follows the
// catalog, not recency of history.
func (v *Views) ContinueWatching(s models.AppState) []models.ContentItem {
	v.mu.Lock()
	defer v.mu.Unlock()

	m := &v.cont
	if m.valid && sameItems(m.catalog, s.Catalog) && sameStrings(m.history, s.Profile.WatchHistory) &&
		sameProgress(m.progress, s.Profile.WatchProgress) {
		return m.result
	}

	inHistory := make(map[string]bool, len(s.Profile.WatchHistory))
	for _, id := range s.Profile.WatchHistory {
		inHistory[id] = true
	}

	var result []models.ContentItem
	for _, c := range s.Catalog {
		if len(result) == maxContinueWatching {
			break
		}
		if !inHistory[c.ID] {
			continue
		}
		progress, ok := s.Profile.WatchProgress[c.ID]
		if !ok || progress >= continueThresholdPct {
			continue
		}
		result = append(result, c)
	}

	*m = continueMemo{
		valid:    true,
		catalog:  s.Catalog,
		history:  s.Profile.WatchHistory,
		progress: s.Profile.WatchProgress,
		result:   result,
	}
	return result
}

// GenreRail returns the first items carrying the given genre, in catalog
// order.
func (v *Views) GenreRail(s models.AppState, genre string) []models.ContentItem {
	v.mu.Lock()
	defer v.mu.Unlock()

	if m, ok := v.genreRail[genre]; ok && m.valid && sameItems(m.catalog, s.Catalog) {
		return m.result
	}

	var result []models.ContentItem
	for _, c := range s.Catalog {
		if len(result) == maxGenreRail {
			break
		}
		if c.HasGenre(genre) {
			result = append(result, c)
		}
	}

	// Only genres present in the catalog are cached; the memo map stays
	// bounded by the catalog's own genre vocabulary no matter what genre
	// strings callers supply.
	if len(result) > 0 {
		v.genreRail[genre] = catalogMemo{valid: true, catalog: s.Catalog, result: result}
	}
	return result
}

func matchesQuery(c models.ContentItem, needle string) bool {
	if strings.Contains(strings.ToLower(c.Title), needle) {
		return true
	}
	for _, g := range c.Genres {
		if strings.Contains(strings.ToLower(g), needle) {
			return true
		}
	}
	return false
}

// sameItems reports whether two slices share the same backing array and
// length, i.e. are referentially the same input.
func sameItems(a, b []models.ContentItem) bool {
	if len(a) != len(b) {
		return false
	}
	return len(a) == 0 || &a[0] == &b[0]
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	return len(a) == 0 || &a[0] == &b[0]
}

func sameProgress(a, b map[string]float64) bool {
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}
