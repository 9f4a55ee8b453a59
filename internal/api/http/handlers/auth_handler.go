package handlers

import (
	"net"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/travelos/crm/internal/api/dto"
	"github.com/travelos/crm/internal/auth"
	"github.com/travelos/crm/internal/service"
	apperrors "github.com/travelos/crm/pkg/util"
)

// AuthHandler exposes the login, logout and refresh endpoints.
type AuthHandler struct {
	auth    *service.AuthService
	cookies *auth.CookieWriter
	tokens  *auth.TokenManager
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, cookies *auth.CookieWriter, tokens *auth.TokenManager) *AuthHandler {
	return &AuthHandler{auth: authService, cookies: cookies, tokens: tokens}
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Email == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "email and password required")
	}

	ip := clientIP(c)
	userAgent := headerValue(c, fiber.HeaderUserAgent)

	result, err := h.auth.Login(c.UserContext(), req.Email, req.Password, ip, userAgent)
	if err != nil {
		return err
	}

	h.cookies.SetAccess(c, result.AccessToken, h.tokens.TTL())
	h.cookies.SetRefresh(c, result.RefreshToken, h.auth.RefreshTTL())

	return c.JSON(dto.LoginResponse{
		Message: "Login successful",
		Role:    string(result.User.Role),
	})
}

// Logout handles POST /api/auth/logout. It revokes the presented refresh
// session and clears both cookies regardless.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.auth.Logout(c.UserContext(), c.Cookies(auth.RefreshCookie)); err != nil {
		return err
	}
	h.cookies.ClearAuth(c)
	return c.JSON(dto.MessageResponse{Message: "Logged out successfully"})
}

// Refresh handles POST /api/auth/refresh. Any rotation failure strips both
// cookies; a partial session must never be left standing.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	raw := c.Cookies(auth.RefreshCookie)
	if raw == "" {
		h.cookies.ClearAuth(c)
		return apperrors.NewUnauthorized("no refresh token provided")
	}

	result, err := h.auth.Refresh(c.UserContext(), raw)
	if err != nil {
		h.cookies.ClearAuth(c)
		return err
	}

	h.cookies.SetAccess(c, result.AccessToken, h.tokens.TTL())
	h.cookies.SetRefresh(c, result.RefreshToken, h.auth.RefreshTTL())

	return c.JSON(dto.MessageResponse{Message: "Token refreshed successfully"})
}

// clientIP extracts the source address, preferring the first hop of
// X-Forwarded-For when the service runs behind a proxy.
func clientIP(c *fiber.Ctx) *string {
	if xff := c.Get(fiber.HeaderXForwardedFor); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if first != "" {
			return &first
		}
	}
	addr := c.Context().RemoteAddr().String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return &host
	}
	if addr != "" {
		return &addr
	}
	return nil
}

func headerValue(c *fiber.Ctx, key string) *string {
	val := c.Get(key)
	if val == "" {
		return nil
	}
	return &val
}
