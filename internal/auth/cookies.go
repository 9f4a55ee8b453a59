package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// Cookie names shared by the login handlers and the gatekeeper.
const (
	AccessCookie  = "auth-token"
	RefreshCookie = "travelos_refresh"
	// OriginalCookie stashes the admin's own token while impersonating.
	OriginalCookie = "original-auth-token"
)

// CookieWriter centralizes cookie attributes so every issuer of auth
// cookies agrees on security flags.
type CookieWriter struct {
	secure bool
}

// NewCookieWriter builds a writer; secure toggles the Secure attribute and
// should be true in production.
func NewCookieWriter(secure bool) *CookieWriter {
	return &CookieWriter{secure: secure}
}

// SetAccess writes the short-lived access token cookie.
func (w *CookieWriter) SetAccess(c *fiber.Ctx, token string, ttl time.Duration) {
	w.set(c, AccessCookie, token, ttl, "Strict")
}

// SetRefresh writes the long-lived refresh token cookie.
func (w *CookieWriter) SetRefresh(c *fiber.Ctx, token string, ttl time.Duration) {
	w.set(c, RefreshCookie, token, ttl, "Strict")
}

// SetOriginal stashes the pre-impersonation access token. SameSite is Lax
// so the impersonation exit link works from a top-level navigation.
func (w *CookieWriter) SetOriginal(c *fiber.Ctx, token string, ttl time.Duration) {
	w.set(c, OriginalCookie, token, ttl, "Lax")
}

// ClearAuth strips both the access and refresh cookies. Any ambiguous
// session state forces a clean re-login.
func (w *CookieWriter) ClearAuth(c *fiber.Ctx) {
	w.clear(c, AccessCookie)
	w.clear(c, RefreshCookie)
}

// ClearOriginal removes the impersonation stash cookie.
func (w *CookieWriter) ClearOriginal(c *fiber.Ctx) {
	w.clear(c, OriginalCookie)
}

func (w *CookieWriter) set(c *fiber.Ctx, name, value string, ttl time.Duration, sameSite string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		Expires:  time.Now().Add(ttl),
		HTTPOnly: true,
		Secure:   w.secure,
		SameSite: sameSite,
	})
}

func (w *CookieWriter) clear(c *fiber.Ctx, name string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   w.secure,
		SameSite: "Strict",
	})
}
