package auth

import (
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/travelos/crm/internal/domain"
	apperrors "github.com/travelos/crm/pkg/util"
)

const principalKey = "auth_principal"

// Trusted identity headers injected for downstream handlers. The gatekeeper
// is the only writer of these keys: any identically-named inbound header is
// overwritten before a request can reach a handler.
const (
	HeaderUserID   = "x-user-id"
	HeaderUserRole = "x-user-role"
	HeaderAgencyID = "x-agency-id"
)

// Principal represents the authenticated caller, derived solely from the
// verified access token.
type Principal struct {
	UserID         string
	Email          string
	Role           domain.Role
	AgencyID       *string
	OriginalUserID *string
}

// routeRule maps a path prefix to the roles allowed through it.
type routeRule struct {
	prefix string
	roles  []domain.Role
}

// Ordered; first match wins. API rules precede page rules so /api/agency is
// not swallowed by a page prefix.
var routeRules = []routeRule{
	{prefix: "/api/super-admin", roles: []domain.Role{domain.RoleSuperAdmin}},
	{prefix: "/api/agency", roles: []domain.Role{domain.RoleAgencyAdmin, domain.RoleAgencyEmployee}},
	{prefix: "/super-admin", roles: []domain.Role{domain.RoleSuperAdmin}},
	{prefix: "/agency-admin", roles: []domain.Role{domain.RoleAgencyAdmin}},
	{prefix: "/employee", roles: []domain.Role{domain.RoleAgencyEmployee}},
}

// billingPath is where lapsed-subscription tenants are parked.
const billingPath = "/agency-admin/expired"

// impersonationExitPath is the escape hatch out of impersonation. It must
// stay reachable while the primary token carries the target's role and
// tenant, so it skips the role and tenant gates; the exit handler verifies
// the stashed original token itself.
const impersonationExitPath = "/api/super-admin/impersonate/exit"

// Gatekeeper intercepts every request to a protected prefix, derives
// per-request trust from the access token and injects it downstream.
type Gatekeeper struct {
	tokens  *TokenManager
	cookies *CookieWriter
	now     func() time.Time
}

// NewGatekeeper constructs the edge middleware.
func NewGatekeeper(tokens *TokenManager, cookies *CookieWriter) *Gatekeeper {
	return &Gatekeeper{tokens: tokens, cookies: cookies, now: time.Now}
}

// Handle runs ahead of every request. Unprotected paths pass through with
// the trusted headers stripped; protected paths go through CSRF, token,
// role, and tenant gates in that order.
func (g *Gatekeeper) Handle(c *fiber.Ctx) error {
	path := c.Path()
	isAPI := strings.HasPrefix(path, "/api/")

	// Inbound copies of the trusted headers are never passed through,
	// whether or not the path is protected.
	stripTrustedHeaders(c)

	if isAPI && c.Method() != fiber.MethodGet {
		if err := checkOrigin(c); err != nil {
			return err
		}
	}

	rule, protected := matchRoute(path)
	if !protected {
		if path == "/login" {
			return g.redirectIfAuthenticated(c)
		}
		return c.Next()
	}

	claims, err := g.tokens.Verify(c.Cookies(AccessCookie))
	if err != nil || c.Cookies(AccessCookie) == "" {
		return g.unauthenticated(c, isAPI, path)
	}

	if path == impersonationExitPath {
		g.inject(c, claims)
		return c.Next()
	}

	if !roleAllowed(claims.Role, rule.roles) {
		if isAPI {
			return apperrors.NewForbidden("insufficient role for this route")
		}
		return c.Redirect(HomePath(claims.Role), fiber.StatusFound)
	}

	if err := g.checkAccountGates(c, claims, isAPI); err != nil {
		return err
	}
	if done, err := g.checkTenantGates(c, claims, isAPI); done || err != nil {
		return err
	}

	g.inject(c, claims)
	return c.Next()
}

// inject stores the principal and writes the trusted identity headers from
// the verified claims only.
func (g *Gatekeeper) inject(c *fiber.Ctx, claims *Claims) {
	principal := &Principal{
		UserID:         claims.UserID,
		Email:          claims.Email,
		Role:           claims.Role,
		AgencyID:       claims.AgencyID,
		OriginalUserID: claims.OriginalUserID,
	}
	c.Locals(principalKey, principal)

	c.Request().Header.Set(HeaderUserID, claims.UserID)
	c.Request().Header.Set(HeaderUserRole, string(claims.Role))
	if claims.AgencyID != nil {
		c.Request().Header.Set(HeaderAgencyID, *claims.AgencyID)
	}
}

// redirectIfAuthenticated sends a visitor holding a valid token away from
// the login page to their role's home area.
func (g *Gatekeeper) redirectIfAuthenticated(c *fiber.Ctx) error {
	token := c.Cookies(AccessCookie)
	if token == "" {
		return c.Next()
	}
	claims, err := g.tokens.Verify(token)
	if err != nil {
		// Invalid token holders may stay on the login form.
		return c.Next()
	}
	return c.Redirect(HomePath(claims.Role), fiber.StatusFound)
}

func (g *Gatekeeper) unauthenticated(c *fiber.Ctx, isAPI bool, path string) error {
	if isAPI {
		g.cookies.ClearAuth(c)
		return apperrors.NewUnauthorized("missing or invalid access token")
	}
	g.cookies.ClearAuth(c)
	loginURL := "/login?callbackUrl=" + url.QueryEscape(path)
	return c.Redirect(loginURL, fiber.StatusFound)
}

func (g *Gatekeeper) checkAccountGates(c *fiber.Ctx, claims *Claims, isAPI bool) error {
	if claims.UserIsActive {
		return nil
	}
	g.cookies.ClearAuth(c)
	if isAPI {
		return apperrors.NewAccountDisabled()
	}
	return c.Redirect("/login", fiber.StatusFound)
}

// checkTenantGates enforces agency activity and subscription expiry from
// claims alone. The bool result reports that a redirect was written.
func (g *Gatekeeper) checkTenantGates(c *fiber.Ctx, claims *Claims, isAPI bool) (bool, error) {
	if claims.AgencyID == nil {
		return false, nil
	}
	if !claims.AgencyIsActive {
		g.cookies.ClearAuth(c)
		if isAPI {
			return false, apperrors.NewDomainError("AGENCY_DISABLED", "agency is deactivated", fiber.StatusForbidden, nil)
		}
		return true, c.Redirect("/login", fiber.StatusFound)
	}
	if claims.SubscriptionEnds != nil && claims.SubscriptionEnds.Before(g.now()) {
		if isAPI {
			return false, apperrors.NewDomainError("SUBSCRIPTION_EXPIRED", "agency subscription has lapsed", fiber.StatusForbidden, nil)
		}
		if c.Path() == billingPath {
			// The billing page itself must stay reachable.
			return false, nil
		}
		return true, c.Redirect(billingPath, fiber.StatusFound)
	}
	return false, nil
}

// PrincipalFromContext retrieves the authenticated caller.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

func matchRoute(path string) (routeRule, bool) {
	for _, rule := range routeRules {
		if path == rule.prefix || strings.HasPrefix(path, rule.prefix+"/") {
			return rule, true
		}
	}
	return routeRule{}, false
}

func roleAllowed(role domain.Role, allowed []domain.Role) bool {
	for _, r := range allowed {
		if role == r {
			return true
		}
	}
	return false
}

// checkOrigin rejects cross-origin state-changing API requests before any
// auth state is touched. A missing Origin header is tolerated so non-browser
// clients keep working; a present mismatching one is not.
func checkOrigin(c *fiber.Ctx) error {
	origin := c.Get(fiber.HeaderOrigin)
	if origin == "" {
		return nil
	}
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" || parsed.Host != c.Hostname() {
		return apperrors.NewDomainError("CSRF_ORIGIN_MISMATCH", "cross-origin request rejected", fiber.StatusForbidden, nil)
	}
	return nil
}

func stripTrustedHeaders(c *fiber.Ctx) {
	c.Request().Header.Del(HeaderUserID)
	c.Request().Header.Del(HeaderUserRole)
	c.Request().Header.Del(HeaderAgencyID)
}
