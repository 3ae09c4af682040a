package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/soradyne/clipstream/internal/apperror"
	"github.com/soradyne/clipstream/internal/media"
	"github.com/soradyne/clipstream/internal/token"
)

// AccountService defines the business logic contract for account and
// profile operations. Handlers call these methods -- they never touch the
// repository directly.
type AccountService interface {
	Register(ctx context.Context, input RegisterInput) (*User, error)
	Login(ctx context.Context, input LoginRequest) (*LoginResult, error)
	Logout(ctx context.Context, userID string) error
	Refresh(ctx context.Context, presented string) (*token.Pair, error)

	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
	UpdateAccount(ctx context.Context, userID, fullName, email string) (*User, error)
	UpdateAvatar(ctx context.Context, userID string, up media.Upload) (*User, error)
	UpdateCoverImage(ctx context.Context, userID string, up media.Upload) (*User, error)

	ChannelProfile(ctx context.Context, username, viewerID string) (*ChannelProfile, error)
	WatchHistory(ctx context.Context, userID string) ([]WatchedVideo, error)
	RecordWatch(ctx context.Context, userID, videoID string) error
}

// TokenIssuer is the slice of the token issuer the service depends on.
// Satisfied by *token.Issuer; tests substitute a mock.
type TokenIssuer interface {
	Issue(ctx context.Context, userID string) (*token.Pair, error)
	Rotate(ctx context.Context, presented string) (*token.Pair, error)
}

// accountService implements AccountService.
type accountService struct {
	repo    UserRepository
	tokens  TokenIssuer
	uploads media.Service
}

// NewAccountService creates an account service with the given dependencies.
func NewAccountService(repo UserRepository, tokens TokenIssuer, uploads media.Service) AccountService {
	return &accountService{
		repo:    repo,
		tokens:  tokens,
		uploads: uploads,
	}
}

// Register creates a new user account. It validates the required fields,
// rejects duplicate username/email, uploads the avatar (required) and cover
// image (optional) to object storage, hashes the password with argon2id,
// and persists the user.
func (s *accountService) Register(ctx context.Context, input RegisterInput) (*User, error) {
	username := strings.ToLower(strings.TrimSpace(input.Username))
	email := strings.ToLower(strings.TrimSpace(input.Email))
	fullName := strings.TrimSpace(input.FullName)

	if username == "" || email == "" || fullName == "" || strings.TrimSpace(input.Password) == "" {
		return nil, apperror.NewBadRequest("all fields are required")
	}
	if input.Avatar == nil {
		return nil, apperror.NewBadRequest("avatar image is required")
	}

	// Check for an existing user before doing expensive hashing and uploads.
	// A concurrent register slipping past this check is caught by the unique
	// indexes at insert time.
	exists, err := s.repo.UsernameOrEmailExists(ctx, username, email)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("checking user existence: %w", err))
	}
	if exists {
		return nil, apperror.NewBadRequest("a user with this username or email already exists")
	}

	hash, err := hashPassword(input.Password)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}

	avatarURL, err := s.uploads.UploadImage(ctx, "avatars", *input.Avatar)
	if err != nil {
		return nil, err
	}

	coverURL := ""
	if input.CoverImage != nil {
		coverURL, err = s.uploads.UploadImage(ctx, "covers", *input.CoverImage)
		if err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	user := &User{
		ID:            uuid.NewString(),
		Username:      username,
		Email:         email,
		FullName:      fullName,
		PasswordHash:  hash,
		AvatarURL:     avatarURL,
		CoverImageURL: coverURL,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		// Clean up stored objects on DB failure (e.g. the duplicate-at-insert
		// race) so the bucket doesn't accumulate orphans.
		s.removeUploads(ctx, avatarURL, coverURL)
		return nil, passThrough(err, "creating user")
	}

	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return user, nil
}

// Login authenticates a user by username or email plus password, then
// issues a fresh token pair. The issue persists the refresh token on the
// user record, superseding any previous one.
func (s *accountService) Login(ctx context.Context, input LoginRequest) (*LoginResult, error) {
	username := strings.ToLower(strings.TrimSpace(input.Username))
	email := strings.ToLower(strings.TrimSpace(input.Email))

	if username == "" && email == "" {
		return nil, apperror.NewBadRequest("username or email is required")
	}

	user, err := s.repo.FindByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return nil, passThrough(err, "finding user")
	}

	if !verifyPassword(input.Password, user.PasswordHash) {
		return nil, apperror.NewUnauthorized("incorrect password")
	}

	pair, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		return nil, passThrough(err, "issuing tokens")
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return &LoginResult{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

// Logout clears the stored refresh token entirely, so the previously issued
// refresh token can never be exchanged again.
func (s *accountService) Logout(ctx context.Context, userID string) error {
	if err := s.repo.ClearRefreshToken(ctx, userID); err != nil {
		return apperror.NewInternal(fmt.Errorf("clearing refresh token: %w", err))
	}

	slog.Info("user logged out", slog.String("user_id", userID))
	return nil
}

// Refresh exchanges a presented refresh token for a new pair. All failure
// modes surface as the same Unauthorized error.
func (s *accountService) Refresh(ctx context.Context, presented string) (*token.Pair, error) {
	if presented == "" {
		return nil, apperror.NewUnauthorized("refresh token required")
	}
	return s.tokens.Rotate(ctx, presented)
}

// ChangePassword verifies the caller's current password before accepting
// the new one.
func (s *accountService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if strings.TrimSpace(newPassword) == "" {
		return apperror.NewBadRequest("new password is required")
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return passThrough(err, "finding user")
	}

	if !verifyPassword(oldPassword, user.PasswordHash) {
		return apperror.NewUnauthorized("incorrect old password")
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}

	if err := s.repo.UpdatePassword(ctx, userID, hash); err != nil {
		return passThrough(err, "updating password")
	}

	slog.Info("password changed", slog.String("user_id", userID))
	return nil
}

// UpdateAccount updates the editable account details. Both fields are
// required; partial updates are not supported.
func (s *accountService) UpdateAccount(ctx context.Context, userID, fullName, email string) (*User, error) {
	fullName = strings.TrimSpace(fullName)
	email = strings.ToLower(strings.TrimSpace(email))

	if fullName == "" || email == "" {
		return nil, apperror.NewBadRequest("full name and email are required")
	}

	if err := s.repo.UpdateDetails(ctx, userID, fullName, email); err != nil {
		return nil, passThrough(err, "updating account details")
	}

	return s.sanitizedUser(ctx, userID)
}

// UpdateAvatar uploads a new avatar image and persists its URL.
func (s *accountService) UpdateAvatar(ctx context.Context, userID string, up media.Upload) (*User, error) {
	url, err := s.uploads.UploadImage(ctx, "avatars", up)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateAvatar(ctx, userID, url); err != nil {
		return nil, passThrough(err, "updating avatar")
	}

	return s.sanitizedUser(ctx, userID)
}

// UpdateCoverImage uploads a new cover image and persists its URL.
func (s *accountService) UpdateCoverImage(ctx context.Context, userID string, up media.Upload) (*User, error) {
	url, err := s.uploads.UploadImage(ctx, "covers", up)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateCoverImage(ctx, userID, url); err != nil {
		return nil, passThrough(err, "updating cover image")
	}

	return s.sanitizedUser(ctx, userID)
}

// ChannelProfile loads the channel view for a username, with subscriber
// counts and the viewer's subscription status.
func (s *accountService) ChannelProfile(ctx context.Context, username, viewerID string) (*ChannelProfile, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return nil, apperror.NewBadRequest("username is required")
	}

	profile, err := s.repo.ChannelProfile(ctx, username, viewerID)
	if err != nil {
		return nil, passThrough(err, "loading channel profile")
	}
	return profile, nil
}

// WatchHistory returns the caller's watched videos, most recent first.
func (s *accountService) WatchHistory(ctx context.Context, userID string) ([]WatchedVideo, error) {
	history, err := s.repo.WatchHistory(ctx, userID)
	if err != nil {
		return nil, passThrough(err, "loading watch history")
	}
	if history == nil {
		history = []WatchedVideo{}
	}
	return history, nil
}

// RecordWatch adds a video to the caller's watch history, moving it to the
// front if it was already there.
func (s *accountService) RecordWatch(ctx context.Context, userID, videoID string) error {
	exists, err := s.repo.VideoExists(ctx, videoID)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("checking video existence: %w", err))
	}
	if !exists {
		return apperror.NewNotFound("video not found")
	}

	if err := s.repo.RecordWatch(ctx, userID, videoID); err != nil {
		return apperror.NewInternal(fmt.Errorf("recording watch: %w", err))
	}
	return nil
}

// removeUploads best-effort deletes uploaded objects. Failures are logged,
// not returned: the caller is already on an error path.
func (s *accountService) removeUploads(ctx context.Context, urls ...string) {
	for _, url := range urls {
		if url == "" {
			continue
		}
		if err := s.uploads.DeleteImage(ctx, url); err != nil {
			slog.Warn("cleaning up uploaded image",
				slog.String("url", url),
				slog.Any("error", err),
			)
		}
	}
}

// sanitizedUser reloads a user for response building. The JSON tags strip
// the secret fields, so no extra scrubbing is needed.
func (s *accountService) sanitizedUser(ctx context.Context, userID string) (*User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, passThrough(err, "reloading user")
	}
	return user, nil
}

// passThrough preserves AppErrors for the error handler and wraps
// anything else as an opaque internal error.
func passThrough(err error, op string) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperror.NewInternal(fmt.Errorf("%s: %w", op, err))
}
