package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/require"

	"streamflix-catalog-service/internal/config"
	"streamflix-catalog-service/internal/middleware"
	"streamflix-catalog-service/internal/models"
	"streamflix-catalog-service/internal/query"
	"streamflix-catalog-service/internal/service"
)

func testApp(t *testing.T) *fiber.App {
	t.Helper()

	source := func(context.Context) ([]models.ContentItem, error) {
		return []models.ContentItem{
			{ID: "a", Title: "The Last Journey", Kind: models.KindMovie, Genres: []string{"Action"}, Trending: true},
			{ID: "b", Title: "Midnight Eclipse", Kind: models.KindSeries, Genres: []string{"Comedy"}},
			{ID: "c", Title: "Beyond Horizons", Kind: models.KindMovie, Genres: []string{"Sci-Fi"}, Featured: true},
		}, nil
	}
	svc := service.NewSessionService(query.NewMemoryCache(), source,
		config.CatalogConfig{StaleTime: time.Minute, CacheTime: 10 * time.Minute},
		config.SessionConfig{
			TTL:             time.Minute,
			NotificationTTL: time.Minute,
			SearchDebounce:  time.Millisecond,
		},
	)
	svc.Start(context.Background())
	t.Cleanup(svc.Stop)

	require.Eventually(t, func() bool {
		return len(svc.CatalogState().Data) > 0
	}, time.Second, 5*time.Millisecond)

	catalogHandler := NewCatalogHandler(svc)
	sessionHandler := NewSessionHandler(svc)

	app := fiber.New()
	app.Use(middleware.SessionMiddleware())

	api := app.Group("/api/v1")
	api.Get("/health", catalogHandler.Health)
	api.Get("/catalog", catalogHandler.GetCatalog)
	api.Get("/views/browse", catalogHandler.Browse)
	api.Get("/views/trending", catalogHandler.Trending)
	api.Get("/views/featured", catalogHandler.Featured)
	api.Get("/views/genres/:genre", catalogHandler.GenreRail)
	api.Get("/session", sessionHandler.GetState)
	api.Put("/session/tab", sessionHandler.SetTab)
	api.Put("/session/search", sessionHandler.Search)
	api.Get("/profile", sessionHandler.GetProfile)
	api.Post("/watchlist/:id/toggle", sessionHandler.ToggleWatchlist)
	api.Post("/history/:id", sessionHandler.AddHistory)
	api.Put("/progress/:id", sessionHandler.UpdateProgress)
	api.Post("/playback/:id/start", sessionHandler.StartPlayback)
	api.Post("/playback/stop", sessionHandler.StopPlayback)
	api.Get("/notifications", sessionHandler.ListNotifications)
	api.Post("/notifications", sessionHandler.CreateNotification)

	return app
}

func doJSON(t *testing.T, app *fiber.App, method, target, body string) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("X-Session-ID", "test-session")
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]any
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &decoded)
	}
	return resp, decoded
}

func TestHealth(t *testing.T) {
	app := testApp(t)
	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/health", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", body["status"])
}

func TestGetCatalog(t *testing.T) {
	app := testApp(t)
	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/catalog", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 3, body["count"])
	require.Equal(t, false, body["is_loading"])
}

func TestBrowse_DefaultTab(t *testing.T) {
	app := testApp(t)
	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/views/browse", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 3, body["total"])
}

func TestBrowse_TabAndSearch(t *testing.T) {
	app := testApp(t)

	resp, _ := doJSON(t, app, http.MethodPut, "/api/v1/session/tab", `{"tab":"movies"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/views/browse", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 2, body["total"])

	resp, _ = doJSON(t, app, http.MethodPut, "/api/v1/session/search", `{"query":"horizons"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The browse view follows once the debounced input settles.
	require.Eventually(t, func() bool {
		_, body := doJSON(t, app, http.MethodGet, "/api/v1/views/browse", "")
		total, ok := body["total"].(float64)
		return ok && total == 1
	}, time.Second, 10*time.Millisecond)
}

func TestSetTab_Invalid(t *testing.T) {
	app := testApp(t)
	resp, body := doJSON(t, app, http.MethodPut, "/api/v1/session/tab", `{"tab":"downloads"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "unknown tab", body["error"])
}

func TestTrendingAndFeatured(t *testing.T) {
	app := testApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/views/trending", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 1, body["total"])

	resp, body = doJSON(t, app, http.MethodGet, "/api/v1/views/featured", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "c", body["id"])
}

func TestGenreRail(t *testing.T) {
	app := testApp(t)
	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/views/genres/Comedy", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 1, body["total"])
}

func TestWatchlistToggleFlow(t *testing.T) {
	app := testApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/watchlist/a/toggle", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["in_watchlist"])

	// The toggle emitted a notification.
	resp, body = doJSON(t, app, http.MethodGet, "/api/v1/notifications", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	notifications := body["notifications"].([]any)
	require.Len(t, notifications, 1)

	resp, body = doJSON(t, app, http.MethodPost, "/api/v1/watchlist/a/toggle", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, false, body["in_watchlist"])
}

func TestProgressAndPlayback(t *testing.T) {
	app := testApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/playback/a/start", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["is_playing"])
	require.Equal(t, "a", body["current_id"])

	resp, body = doJSON(t, app, http.MethodPut, "/api/v1/progress/a", `{"percent":37.5}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 37.5, body["percent"])

	resp, body = doJSON(t, app, http.MethodPost, "/api/v1/playback/stop", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, false, body["is_playing"])

	// History recorded the playback.
	resp, body = doJSON(t, app, http.MethodGet, "/api/v1/profile", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	history := body["watch_history"].([]any)
	require.Equal(t, []any{"a"}, history)
}

func TestCreateNotification_Validation(t *testing.T) {
	app := testApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/v1/notifications", `{"message":"hi","severity":"info"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/notifications", `{"message":"","severity":"info"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "message is required", body["error"])

	resp, body = doJSON(t, app, http.MethodPost, "/api/v1/notifications", `{"message":"hi","severity":"shout"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "unknown severity", body["error"])
}

func TestSessionIsolation(t *testing.T) {
	app := testApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/watchlist/a/toggle", nil)
	req.Header.Set("X-Session-ID", "other-session")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The default test session is unaffected.
	_, body := doJSON(t, app, http.MethodGet, "/api/v1/profile", "")
	require.Empty(t, body["watchlist"])
}
