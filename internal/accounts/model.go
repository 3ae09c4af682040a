// Package accounts handles user registration, login, token refresh, and
// profile management for clipstream. Authentication is stateless: a signed
// access token proves identity per request, and a stored refresh token
// (single active per user) allows reissuing pairs without re-entering
// credentials.
package accounts

import (
	"time"

	"github.com/soradyne/clipstream/internal/media"
)

// User represents a registered clipstream user. This is the domain model
// used throughout the application. Database scanning and JSON marshaling
// use this struct directly.
type User struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"` // Stored lowercase.
	Email         string    `json:"email"`
	FullName      string    `json:"fullName"`
	PasswordHash  string    `json:"-"` // Never expose in JSON responses.
	AvatarURL     string    `json:"avatar"`
	CoverImageURL string    `json:"coverImage,omitempty"`
	RefreshToken  string    `json:"-"` // Never expose.
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// AuthUser is the authenticated identity attached to the request context by
// the auth middleware. Built entirely from verified access-token claims --
// no store access involved.
type AuthUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
}

// --- Request DTOs (bound from HTTP requests) ---

// LoginRequest holds the login credentials. Username or email, plus password.
type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// RefreshRequest carries a refresh token in the body for clients that don't
// use the cookie transport.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" form:"refreshToken"`
}

// ChangePasswordRequest holds the old and new password for a password change.
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" form:"oldPassword"`
	NewPassword string `json:"newPassword" form:"newPassword"`
}

// UpdateAccountRequest holds the editable account detail fields.
type UpdateAccountRequest struct {
	FullName string `json:"fullName" form:"fullName"`
	Email    string `json:"email" form:"email"`
}

// --- Service Input DTOs (passed from handler to service) ---

// RegisterInput is the input for creating a new user. Avatar is required,
// CoverImage is optional (nil when not provided).
type RegisterInput struct {
	Username   string
	Email      string
	FullName   string
	Password   string
	Avatar     *media.Upload
	CoverImage *media.Upload
}

// LoginResult bundles the sanitized user and the issued token pair so the
// handler can set cookies and build the response body in one step.
type LoginResult struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// --- Aggregation read models ---

// ChannelProfile is the public channel view of a user, with subscriber
// counts computed database-side and the viewer's subscription status.
type ChannelProfile struct {
	ID                string    `json:"id"`
	Username          string    `json:"username"`
	Email             string    `json:"email"`
	FullName          string    `json:"fullName"`
	AvatarURL         string    `json:"avatar"`
	CoverImageURL     string    `json:"coverImage,omitempty"`
	SubscribersCount  int       `json:"subscribersCount"`
	SubscribedToCount int       `json:"subscribedToCount"`
	IsSubscribed      bool      `json:"isSubscribed"`
	CreatedAt         time.Time `json:"createdAt"`
}

// VideoOwner is the reduced owner projection embedded in watch history
// entries: just enough to render an attribution line.
type VideoOwner struct {
	FullName  string `json:"fullName"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar"`
}

// WatchedVideo is one entry of a user's watch history, most recent first.
type WatchedVideo struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	VideoURL     string     `json:"videoFile"`
	ThumbnailURL string     `json:"thumbnail"`
	Duration     float64    `json:"duration"` // Seconds; fractional, matching encoder output.
	Views        int64      `json:"views"`
	WatchedAt    time.Time  `json:"watchedAt"`
	Owner        VideoOwner `json:"owner"`
}
