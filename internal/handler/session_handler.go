package handler

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"streamflix-catalog-service/internal/middleware"
	"streamflix-catalog-service/internal/models"
	"streamflix-catalog-service/internal/service"
)

// SessionHandler serves per-session state transitions.
type SessionHandler struct {
	svc *service.SessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(svc *service.SessionService) *SessionHandler {
	return &SessionHandler{svc: svc}
}

// SetTabRequest is the request body for switching tabs.
type SetTabRequest struct {
	Tab models.Tab `json:"tab"`
}

// SearchRequest is the request body for search input.
type SearchRequest struct {
	Query string `json:"query"`
}

// ProgressRequest is the request body for recording watch progress.
type ProgressRequest struct {
	Percent float64 `json:"percent"`
}

// NotifyRequest is the request body for creating a notification.
type NotifyRequest struct {
	Message  string          `json:"message"`
	Severity models.Severity `json:"severity"`
}

// GetState returns the full session state snapshot.
func (h *SessionHandler) GetState(c fiber.Ctx) error {
	return c.JSON(h.session(c).State())
}

// SetTab switches the active catalog view.
func (h *SessionHandler) SetTab(c fiber.Ctx) error {
	var req SetTabRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}
	if !req.Tab.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "unknown tab"})
	}
	next := h.session(c).SetTab(req.Tab)
	return c.JSON(fiber.Map{"active_tab": next.ActiveTab})
}

// Search records the search text; the filtered view follows once the
// input settles.
func (h *SessionHandler) Search(c fiber.Ctx) error {
	var req SearchRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}
	next := h.session(c).Search(req.Query)
	return c.JSON(fiber.Map{"search_query": next.SearchQuery})
}

// GetProfile returns the session profile.
func (h *SessionHandler) GetProfile(c fiber.Ctx) error {
	return c.JSON(h.session(c).State().Profile)
}

// PatchProfile shallow-merges the supplied fields into the profile.
func (h *SessionHandler) PatchProfile(c fiber.Ctx) error {
	var patch models.ProfilePatch
	if err := c.Bind().JSON(&patch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}
	next := h.session(c).UpdateProfile(patch)
	return c.JSON(next.Profile)
}

// ToggleWatchlist flips watchlist membership for a content id.
func (h *SessionHandler) ToggleWatchlist(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "missing content id"})
	}
	listed := h.session(c).ToggleWatchlist(id)
	return c.JSON(fiber.Map{"id": id, "in_watchlist": listed})
}

// AddHistory records a view of a content id.
func (h *SessionHandler) AddHistory(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "missing content id"})
	}
	next := h.session(c).AddToHistory(id)
	return c.JSON(fiber.Map{"watch_history": next.Profile.WatchHistory})
}

// UpdateProgress records the percentage watched for a content id.
func (h *SessionHandler) UpdateProgress(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "missing content id"})
	}
	var req ProgressRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}
	next := h.session(c).UpdateProgress(id, req.Percent)
	return c.JSON(fiber.Map{"id": id, "percent": next.Profile.WatchProgress[id]})
}

// StartPlayback selects the content, records history and marks it
// playing.
func (h *SessionHandler) StartPlayback(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "missing content id"})
	}
	// No server-side playback surface: progress arrives via UpdateProgress.
	next := h.session(c).Play(context.Background(), id, nil)
	return c.JSON(next.Playback)
}

// StopPlayback resets the player state.
func (h *SessionHandler) StopPlayback(c fiber.Ctx) error {
	next := h.session(c).StopPlayback()
	return c.JSON(next.Playback)
}

// ListNotifications returns the session's pending notifications.
func (h *SessionHandler) ListNotifications(c fiber.Ctx) error {
	notifications := h.session(c).State().Notifications
	if notifications == nil {
		notifications = []models.Notification{}
	}
	return c.JSON(fiber.Map{"notifications": notifications})
}

// CreateNotification appends a notification; it expires automatically
// unless dismissed first.
func (h *SessionHandler) CreateNotification(c fiber.Ctx) error {
	var req NotifyRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}
	if req.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "message is required"})
	}
	if !req.Severity.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "unknown severity"})
	}
	n := h.session(c).Notify(req.Message, req.Severity)
	slog.Debug("notification created", "session", middleware.SessionID(c), "id", n.ID)
	return c.Status(fiber.StatusCreated).JSON(n)
}

// DismissNotification removes a notification by id.
func (h *SessionHandler) DismissNotification(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "missing notification id"})
	}
	h.session(c).Dismiss(id)
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *SessionHandler) session(c fiber.Ctx) *service.Session {
	return h.svc.Session(middleware.SessionID(c))
}
