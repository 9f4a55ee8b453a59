package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cookiesFromHandler(t *testing.T, handler fiber.Handler) []*http.Cookie {
	t.Helper()
	app := fiber.New()
	app.Get("/", handler)
	res, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
	require.NoError(t, err)
	return res.Cookies()
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, cookie := range cookies {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func TestCookieWriter_SetAccessAttributes(t *testing.T) {
	writer := NewCookieWriter(true)
	cookies := cookiesFromHandler(t, func(c *fiber.Ctx) error {
		writer.SetAccess(c, "token-value", 15*time.Minute)
		return c.SendStatus(fiber.StatusOK)
	})

	cookie := findCookie(cookies, AccessCookie)
	require.NotNil(t, cookie)
	assert.Equal(t, "token-value", cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, 15*60, cookie.MaxAge)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
}

func TestCookieWriter_OriginalCookieIsLax(t *testing.T) {
	writer := NewCookieWriter(false)
	cookies := cookiesFromHandler(t, func(c *fiber.Ctx) error {
		writer.SetOriginal(c, "stashed", 15*time.Minute)
		return c.SendStatus(fiber.StatusOK)
	})

	cookie := findCookie(cookies, OriginalCookie)
	require.NotNil(t, cookie)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.False(t, cookie.Secure)
}

func TestCookieWriter_ClearAuthExpiresBothCookies(t *testing.T) {
	writer := NewCookieWriter(false)
	cookies := cookiesFromHandler(t, func(c *fiber.Ctx) error {
		writer.ClearAuth(c)
		return c.SendStatus(fiber.StatusOK)
	})

	for _, name := range []string{AccessCookie, RefreshCookie} {
		cookie := findCookie(cookies, name)
		require.NotNil(t, cookie, "expected %s to be cleared", name)
		assert.Empty(t, strings.TrimSpace(cookie.Value))
		assert.Less(t, cookie.MaxAge, 0)
	}
}
