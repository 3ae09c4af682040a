package accounts

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/soradyne/clipstream/internal/api"
	"github.com/soradyne/clipstream/internal/apperror"
	"github.com/soradyne/clipstream/internal/config"
	"github.com/soradyne/clipstream/internal/media"
)

// Cookie names for the token pair. HTTP-only so scripts can't read them.
const (
	accessCookieName  = "accessToken"
	refreshCookieName = "refreshToken"
)

// Handler handles HTTP requests for account operations. Handlers are thin:
// they bind the request, call the service, and write the response envelope.
// No business logic lives here.
type Handler struct {
	service AccountService
	auth    config.AuthConfig // Cookie lifetimes follow the token TTLs.
}

// NewHandler creates a new accounts handler.
func NewHandler(service AccountService, auth config.AuthConfig) *Handler {
	return &Handler{service: service, auth: auth}
}

// Register creates a new account (POST /api/v1/users/register).
// Multipart form: username, email, fullName, password, avatar (file,
// required), coverImage (file, optional).
func (h *Handler) Register(c echo.Context) error {
	input := RegisterInput{
		Username: c.FormValue("username"),
		Email:    c.FormValue("email"),
		FullName: c.FormValue("fullName"),
		Password: c.FormValue("password"),
	}

	avatarFile, err := c.FormFile("avatar")
	if err != nil {
		return apperror.NewBadRequest("avatar image is required")
	}
	input.Avatar, err = readUpload(avatarFile)
	if err != nil {
		return apperror.NewInternal(err)
	}

	// Cover image is optional -- only read it when present.
	if coverFile, err := c.FormFile("coverImage"); err == nil {
		input.CoverImage, err = readUpload(coverFile)
		if err != nil {
			return apperror.NewInternal(err)
		}
	}

	user, err := h.service.Register(c.Request().Context(), input)
	if err != nil {
		return err
	}

	return api.Respond(c, http.StatusCreated, user, "user registered")
}

// Login authenticates a user and sets the token cookies
// (POST /api/v1/users/login).
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	result, err := h.service.Login(c.Request().Context(), req)
	if err != nil {
		return err
	}

	h.setTokenCookies(c, result.AccessToken, result.RefreshToken)

	return api.Respond(c, http.StatusOK, result, "user logged in")
}

// Logout clears the stored refresh token and both cookies
// (POST /api/v1/users/logout).
func (h *Handler) Logout(c echo.Context) error {
	au := GetAuthUser(c)
	if au == nil {
		return apperror.NewUnauthorized("authentication required")
	}

	if err := h.service.Logout(c.Request().Context(), au.ID); err != nil {
		return err
	}

	clearTokenCookies(c)

	return api.Respond(c, http.StatusOK, nil, "user logged out")
}

// Refresh exchanges a refresh token for a new pair
// (POST /api/v1/users/refresh-token). The token is read from the cookie
// first, falling back to the request body.
func (h *Handler) Refresh(c echo.Context) error {
	presented := ""
	if cookie, err := c.Cookie(refreshCookieName); err == nil {
		presented = cookie.Value
	}
	if presented == "" {
		var req RefreshRequest
		if err := c.Bind(&req); err == nil {
			presented = req.RefreshToken
		}
	}

	pair, err := h.service.Refresh(c.Request().Context(), presented)
	if err != nil {
		return err
	}

	h.setTokenCookies(c, pair.AccessToken, pair.RefreshToken)

	return api.Respond(c, http.StatusOK, pair, "access token refreshed")
}

// ChangePassword verifies the old password and stores the new one
// (POST /api/v1/users/change-password).
func (h *Handler) ChangePassword(c echo.Context) error {
	au := GetAuthUser(c)
	if au == nil {
		return apperror.NewUnauthorized("authentication required")
	}

	var req ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	if err := h.service.ChangePassword(c.Request().Context(), au.ID, req.OldPassword, req.NewPassword); err != nil {
		return err
	}

	return api.Respond(c, http.StatusOK, nil, "password changed")
}

// CurrentUser returns the authenticated identity from the request context
// (GET /api/v1/users/current-user). No store access.
func (h *Handler) CurrentUser(c echo.Context) error {
	au := GetAuthUser(c)
	if au == nil {
		return apperror.NewUnauthorized("authentication required")
	}

	return api.Respond(c, http.StatusOK, au, "current user")
}

// UpdateAccount updates full name and email (PATCH /api/v1/users/update-account).
func (h *Handler) UpdateAccount(c echo.Context) error {
	au := GetAuthUser(c)
	if au == nil {
		return apperror.NewUnauthorized("authentication required")
	}

	var req UpdateAccountRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	user, err := h.service.UpdateAccount(c.Request().Context(), au.ID, req.FullName, req.Email)
	if err != nil {
		return err
	}

	return api.Respond(c, http.StatusOK, user, "account details updated")
}

// UpdateAvatar uploads a new avatar (PATCH /api/v1/users/avatar).
func (h *Handler) UpdateAvatar(c echo.Context) error {
	return h.updateImage(c, "avatar", h.service.UpdateAvatar, "avatar updated")
}

// UpdateCoverImage uploads a new cover image (PATCH /api/v1/users/cover-image).
func (h *Handler) UpdateCoverImage(c echo.Context) error {
	return h.updateImage(c, "coverImage", h.service.UpdateCoverImage, "cover image updated")
}

// updateImage is the shared flow for the two image update endpoints: read
// the uploaded file, delegate to the service, return the updated user.
func (h *Handler) updateImage(
	c echo.Context,
	field string,
	update func(ctx context.Context, userID string, up media.Upload) (*User, error),
	message string,
) error {
	au := GetAuthUser(c)
	if au == nil {
		return apperror.NewUnauthorized("authentication required")
	}

	fh, err := c.FormFile(field)
	if err != nil {
		return apperror.NewBadRequest(field + " file is required")
	}
	up, err := readUpload(fh)
	if err != nil {
		return apperror.NewInternal(err)
	}

	user, err := update(c.Request().Context(), au.ID, *up)
	if err != nil {
		return err
	}

	return api.Respond(c, http.StatusOK, user, message)
}

// Channel returns the channel profile for a username
// (GET /api/v1/users/c/:username).
func (h *Handler) Channel(c echo.Context) error {
	au := GetAuthUser(c)
	if au == nil {
		return apperror.NewUnauthorized("authentication required")
	}

	profile, err := h.service.ChannelProfile(c.Request().Context(), c.Param("username"), au.ID)
	if err != nil {
		return err
	}

	return api.Respond(c, http.StatusOK, profile, "channel profile")
}

// History returns the caller's watch history (GET /api/v1/users/history).
func (h *Handler) History(c echo.Context) error {
	au := GetAuthUser(c)
	if au == nil {
		return apperror.NewUnauthorized("authentication required")
	}

	history, err := h.service.WatchHistory(c.Request().Context(), au.ID)
	if err != nil {
		return err
	}

	return api.Respond(c, http.StatusOK, history, "watch history")
}

// RecordWatch adds a video to the caller's watch history
// (POST /api/v1/users/history/:videoID).
func (h *Handler) RecordWatch(c echo.Context) error {
	au := GetAuthUser(c)
	if au == nil {
		return apperror.NewUnauthorized("authentication required")
	}

	if err := h.service.RecordWatch(c.Request().Context(), au.ID, c.Param("videoID")); err != nil {
		return err
	}

	return api.Respond(c, http.StatusOK, nil, "watch recorded")
}

// --- Cookie helpers ---

// setTokenCookies sets both token cookies on the response. The cookies are
// HttpOnly (JS can't read them), Secure behind TLS, and SameSite=Lax.
// Lifetimes follow the token TTLs so cookies and tokens expire together.
func (h *Handler) setTokenCookies(c echo.Context, accessToken, refreshToken string) {
	secure := isSecureRequest(c)
	c.SetCookie(&http.Cookie{
		Name:     accessCookieName,
		Value:    accessToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.auth.AccessTokenTTL.Seconds()),
	})
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    refreshToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.auth.RefreshTokenTTL.Seconds()),
	})
}

// clearTokenCookies removes both token cookies by setting MaxAge to -1.
func clearTokenCookies(c echo.Context) {
	for _, name := range []string{accessCookieName, refreshCookieName} {
		c.SetCookie(&http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			MaxAge:   -1,
		})
	}
}

// isSecureRequest reports whether the request arrived over TLS, directly
// or via a terminating reverse proxy.
func isSecureRequest(c echo.Context) bool {
	req := c.Request()
	return req.TLS != nil || req.Header.Get("X-Forwarded-Proto") == "https"
}

// readUpload reads a multipart file into memory.
func readUpload(fh *multipart.FileHeader) (*media.Upload, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}

	return &media.Upload{
		OriginalName: fh.Filename,
		MimeType:     fh.Header.Get("Content-Type"),
		Size:         int64(len(data)),
		Bytes:        data,
	}, nil
}
