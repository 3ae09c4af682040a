package accounts

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/soradyne/clipstream/internal/apperror"
	"github.com/soradyne/clipstream/internal/token"
)

// Context keys for storing the authenticated identity in Echo context.
// Other packages use these keys (via the exported getter functions below)
// to access the caller's identity.
const (
	contextKeyAuthUser = "auth_user"
	contextKeyUserID   = "auth_user_id"
)

// AccessVerifier verifies an access token and returns its claims.
// Implemented by *token.Issuer.
type AccessVerifier interface {
	VerifyAccess(accessToken string) (*token.AccessClaims, error)
}

// RequireAuth returns middleware that validates the access token and
// injects the caller's identity into the request context. The token is
// read from the accessToken cookie, falling back to an Authorization
// bearer header. Requests without a valid token get a 401.
func RequireAuth(verifier AccessVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			accessToken := getAccessToken(c)
			if accessToken == "" {
				return apperror.NewUnauthorized("authentication required")
			}

			claims, err := verifier.VerifyAccess(accessToken)
			if err != nil {
				return apperror.NewUnauthorized("invalid access token")
			}

			// Store the identity in context for downstream handlers.
			c.Set(contextKeyAuthUser, &AuthUser{
				ID:       claims.UserID,
				Username: claims.Username,
				Email:    claims.Email,
				FullName: claims.FullName,
			})
			c.Set(contextKeyUserID, claims.UserID)

			return next(c)
		}
	}
}

// getAccessToken extracts the access token from the cookie or the
// Authorization header.
func getAccessToken(c echo.Context) string {
	if cookie, err := c.Cookie(accessCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if rest, ok := strings.CutPrefix(header, "Bearer "); ok {
		return rest
	}
	return ""
}

// --- Exported getters for other packages ---

// GetAuthUser retrieves the authenticated identity from the Echo context.
// Returns nil if the request is not authenticated (middleware not applied).
func GetAuthUser(c echo.Context) *AuthUser {
	au, ok := c.Get(contextKeyAuthUser).(*AuthUser)
	if !ok {
		return nil
	}
	return au
}

// GetUserID retrieves the authenticated user's ID from the Echo context.
// Returns empty string if the request is not authenticated.
func GetUserID(c echo.Context) string {
	id, ok := c.Get(contextKeyUserID).(string)
	if !ok {
		return ""
	}
	return id
}
