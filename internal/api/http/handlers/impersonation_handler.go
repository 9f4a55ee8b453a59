package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/travelos/crm/internal/auth"
	"github.com/travelos/crm/internal/service"
	apperrors "github.com/travelos/crm/pkg/util"
)

// ImpersonationHandler swaps auth cookies when a super-admin assumes or
// leaves another user's identity.
type ImpersonationHandler struct {
	impersonation *service.ImpersonationService
	cookies       *auth.CookieWriter
	tokens        *auth.TokenManager
}

// NewImpersonationHandler constructs handler.
func NewImpersonationHandler(impersonationService *service.ImpersonationService, cookies *auth.CookieWriter, tokens *auth.TokenManager) *ImpersonationHandler {
	return &ImpersonationHandler{impersonation: impersonationService, cookies: cookies, tokens: tokens}
}

// Start handles GET /api/super-admin/impersonate?userId=…
// The route sits behind the gatekeeper, so the current token is already
// verified; it is re-verified here because the claims, not the principal
// headers, carry the impersonation marker the service must inspect.
func (h *ImpersonationHandler) Start(c *fiber.Ctx) error {
	targetUserID := c.Query("userId")
	if targetUserID == "" {
		return fiber.NewError(http.StatusBadRequest, "target userId is required")
	}

	currentToken := c.Cookies(auth.AccessCookie)
	actor, err := h.tokens.Verify(currentToken)
	if err != nil {
		return apperrors.NewUnauthorized("no active session")
	}

	result, err := h.impersonation.Start(c.UserContext(), actor, targetUserID, clientIP(c), headerValue(c, fiber.HeaderUserAgent))
	if err != nil {
		return err
	}

	// Stash the admin's own token, then switch the primary credential.
	h.cookies.SetOriginal(c, currentToken, h.tokens.TTL())
	h.cookies.SetAccess(c, result.Token, h.tokens.TTL())

	return c.Redirect(auth.HomePath(result.Target.Role), fiber.StatusFound)
}

// Exit handles GET /api/super-admin/impersonate/exit.
func (h *ImpersonationHandler) Exit(c *fiber.Ctx) error {
	original, err := h.impersonation.Exit(
		c.UserContext(),
		c.Cookies(auth.OriginalCookie),
		c.Cookies(auth.AccessCookie),
		clientIP(c),
		headerValue(c, fiber.HeaderUserAgent),
	)
	if err != nil {
		return err
	}

	// Restore the admin's token for whatever lifetime it has left.
	h.cookies.SetAccess(c, c.Cookies(auth.OriginalCookie), h.tokens.TTL())
	h.cookies.ClearOriginal(c)

	return c.Redirect(auth.HomePath(original.Role), fiber.StatusFound)
}
