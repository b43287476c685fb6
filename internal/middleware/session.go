package middleware

import (
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

const (
	// SessionLocal is the Locals key holding the resolved session id.
	SessionLocal = "session_id"

	sessionHeader = "X-Session-ID"
	sessionCookie = "session_id"
)

// SessionMiddleware resolves the browsing session for a request from the
// X-Session-ID header or the session cookie, minting a fresh id when
// neither is present. The id is exposed via Locals and echoed back as a
// cookie so subsequent requests land in the same session.
func SessionMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		id := c.Get(sessionHeader)
		if id == "" {
			id = c.Cookies(sessionCookie)
		}
		if id == "" {
			id = uuid.NewString()
		}

		c.Locals(SessionLocal, id)
		c.Cookie(&fiber.Cookie{
			Name:     sessionCookie,
			Value:    id,
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
		return c.Next()
	}
}

// SessionID returns the session id resolved by SessionMiddleware.
func SessionID(c fiber.Ctx) string {
	if id, ok := c.Locals(SessionLocal).(string); ok {
		return id
	}
	return ""
}
