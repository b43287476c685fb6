package handler

import (
	"time"

	"github.com/gofiber/fiber/v3"

	"streamflix-catalog-service/internal/middleware"
	"streamflix-catalog-service/internal/models"
	"streamflix-catalog-service/internal/service"
)

// CatalogHandler serves catalog status and derived-view listings.
type CatalogHandler struct {
	svc *service.SessionService
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(svc *service.SessionService) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// CatalogStatus is the loader snapshot served to clients.
type CatalogStatus struct {
	Count       int    `json:"count"`
	IsLoading   bool   `json:"is_loading"`
	IsError     bool   `json:"is_error"`
	Error       string `json:"error,omitempty"`
	LastFetched string `json:"last_fetched,omitempty"`
}

// Health returns service health status.
func (h *CatalogHandler) Health(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"service": "streamflix-catalog-service",
	})
}

// GetCatalog returns the catalog loader status.
func (h *CatalogHandler) GetCatalog(c fiber.Ctx) error {
	return c.JSON(h.status())
}

// RefreshCatalog forces a catalog refetch and returns the new status.
func (h *CatalogHandler) RefreshCatalog(c fiber.Ctx) error {
	h.svc.RefreshCatalog()
	return c.JSON(h.status())
}

// Browse returns the tab- and search-filtered listing for the session.
func (h *CatalogHandler) Browse(c fiber.Ctx) error {
	limit := fiber.Query(c, "limit", 50)
	items := h.session(c).Browse()
	return c.JSON(fiber.Map{
		"total": len(items),
		"items": clip(items, limit),
	})
}

// Trending returns the trending rail.
func (h *CatalogHandler) Trending(c fiber.Ctx) error {
	return c.JSON(listBody(h.session(c).Trending()))
}

// Recommendations returns the preference-matched rail.
func (h *CatalogHandler) Recommendations(c fiber.Ctx) error {
	return c.JSON(listBody(h.session(c).Recommendations()))
}

// Featured returns the hero item.
func (h *CatalogHandler) Featured(c fiber.Ctx) error {
	featured := h.session(c).Featured()
	if featured == nil {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "catalog is empty"})
	}
	return c.JSON(featured)
}

// ContinueWatching returns partially watched history items.
func (h *CatalogHandler) ContinueWatching(c fiber.Ctx) error {
	return c.JSON(listBody(h.session(c).ContinueWatching()))
}

// GenreRail returns the rail for one genre.
func (h *CatalogHandler) GenreRail(c fiber.Ctx) error {
	genre := c.Params("genre")
	if genre == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "missing genre"})
	}
	return c.JSON(listBody(h.session(c).GenreRail(genre)))
}

func (h *CatalogHandler) session(c fiber.Ctx) *service.Session {
	return h.svc.Session(middleware.SessionID(c))
}

func (h *CatalogHandler) status() CatalogStatus {
	loader := h.svc.CatalogState()
	status := CatalogStatus{
		Count:     len(loader.Data),
		IsLoading: loader.IsLoading,
		IsError:   loader.IsError,
	}
	if loader.Err != nil {
		status.Error = loader.Err.Error()
	}
	if !loader.LastFetched.IsZero() {
		status.LastFetched = loader.LastFetched.UTC().Format(time.RFC3339)
	}
	return status
}

func listBody(items []models.ContentItem) fiber.Map {
	if items == nil {
		items = []models.ContentItem{}
	}
	return fiber.Map{
		"total": len(items),
		"items": items,
	}
}

func clip(items []models.ContentItem, limit int) []models.ContentItem {
	if items == nil {
		return []models.ContentItem{}
	}
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
