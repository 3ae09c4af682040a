package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/soradyne/clipstream/internal/apperror"
	"github.com/soradyne/clipstream/internal/token"
)

// UserRepository defines the data access contract for user operations.
// All SQL lives in the concrete implementation -- no SQL leaks out.
//
// It also satisfies token.UserStore (Identity, SaveRefreshToken) so the
// token issuer can be wired to the same repository.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*User, error)
	UsernameOrEmailExists(ctx context.Context, username, email string) (bool, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateDetails(ctx context.Context, id, fullName, email string) error
	UpdateAvatar(ctx context.Context, id, avatarURL string) error
	UpdateCoverImage(ctx context.Context, id, coverImageURL string) error

	// Refresh token lifecycle (token.UserStore).
	Identity(ctx context.Context, userID string) (*token.Identity, error)
	SaveRefreshToken(ctx context.Context, userID, tok string) error
	// ClearRefreshToken removes the stored token entirely (sets NULL, not
	// empty string) so a logged-out user has no refresh credential at all.
	ClearRefreshToken(ctx context.Context, userID string) error

	// Aggregation reads.
	ChannelProfile(ctx context.Context, username, viewerID string) (*ChannelProfile, error)
	WatchHistory(ctx context.Context, userID string) ([]WatchedVideo, error)

	// Watch history write path.
	RecordWatch(ctx context.Context, userID, videoID string) error
	VideoExists(ctx context.Context, videoID string) (bool, error)
}

// userRepository implements UserRepository with hand-written MySQL queries.
type userRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository backed by the given DB pool.
func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

// mysqlDuplicateEntry is the MySQL error number for unique index violations.
const mysqlDuplicateEntry = 1062

// isDuplicateEntry reports whether err is a unique index violation. The
// service pre-checks for existing users, but a concurrent register between
// the check and the insert still lands here.
func isDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}

// Create inserts a new user row into the users table.
func (r *userRepository) Create(ctx context.Context, user *User) error {
	query := `INSERT INTO users (id, username, email, full_name, password_hash, avatar_url, cover_image_url, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.FullName,
		user.PasswordHash,
		user.AvatarURL,
		nullable(user.CoverImageURL),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntry(err) {
			return apperror.NewBadRequest("a user with this username or email already exists")
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	return nil
}

const userColumns = `id, username, email, full_name, password_hash, avatar_url, cover_image_url, refresh_token, created_at, updated_at`

// scanUser scans one user row, normalizing nullable columns to empty strings.
func scanUser(row *sql.Row) (*User, error) {
	user := &User{}
	var coverImage, refreshToken sql.NullString
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.FullName,
		&user.PasswordHash,
		&user.AvatarURL,
		&coverImage,
		&refreshToken,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.CoverImageURL = coverImage.String
	user.RefreshToken = refreshToken.String
	return user, nil
}

// FindByID retrieves a user by their UUID.
// Returns apperror.NotFound if no user exists with this ID.
func (r *userRepository) FindByID(ctx context.Context, id string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying user by id: %w", err)
	}
	return user, nil
}

// FindByUsernameOrEmail retrieves a user matching either the username or
// the email. Either argument may be empty; empty strings never match
// because the columns are NOT NULL and non-empty.
func (r *userRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE (username = ? AND ? <> '') OR (email = ? AND ? <> '') LIMIT 1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, username, username, email, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying user by username/email: %w", err)
	}
	return user, nil
}

// UsernameOrEmailExists reports whether any user already holds the given
// username or email.
func (r *userRepository) UsernameOrEmailExists(ctx context.Context, username, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE username = ? OR email = ?)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, username, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking user existence: %w", err)
	}
	return exists, nil
}

// UpdatePassword replaces the stored password hash.
func (r *userRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query := `UPDATE users SET password_hash = ?, updated_at = NOW() WHERE id = ?`

	if _, err := r.db.ExecContext(ctx, query, passwordHash, id); err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	return nil
}

// UpdateDetails updates the editable account fields (full name, email).
func (r *userRepository) UpdateDetails(ctx context.Context, id, fullName, email string) error {
	query := `UPDATE users SET full_name = ?, email = ?, updated_at = NOW() WHERE id = ?`

	if _, err := r.db.ExecContext(ctx, query, fullName, email, id); err != nil {
		if isDuplicateEntry(err) {
			return apperror.NewBadRequest("a user with this email already exists")
		}
		return fmt.Errorf("updating account details: %w", err)
	}
	return nil
}

// UpdateAvatar replaces the avatar reference.
func (r *userRepository) UpdateAvatar(ctx context.Context, id, avatarURL string) error {
	query := `UPDATE users SET avatar_url = ?, updated_at = NOW() WHERE id = ?`

	if _, err := r.db.ExecContext(ctx, query, avatarURL, id); err != nil {
		return fmt.Errorf("updating avatar: %w", err)
	}
	return nil
}

// UpdateCoverImage replaces the cover image reference.
func (r *userRepository) UpdateCoverImage(ctx context.Context, id, coverImageURL string) error {
	query := `UPDATE users SET cover_image_url = ?, updated_at = NOW() WHERE id = ?`

	if _, err := r.db.ExecContext(ctx, query, coverImageURL, id); err != nil {
		return fmt.Errorf("updating cover image: %w", err)
	}
	return nil
}

// Identity loads the identity slice of a user needed by the token issuer.
func (r *userRepository) Identity(ctx context.Context, userID string) (*token.Identity, error) {
	query := `SELECT id, username, email, full_name, refresh_token FROM users WHERE id = ?`

	ident := &token.Identity{}
	var refreshToken sql.NullString
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&ident.ID,
		&ident.Username,
		&ident.Email,
		&ident.FullName,
		&refreshToken,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying identity: %w", err)
	}
	ident.RefreshToken = refreshToken.String
	return ident, nil
}

// SaveRefreshToken overwrites the stored refresh token. The row's
// updated_at is untouched: issuing tokens is not a profile edit.
func (r *userRepository) SaveRefreshToken(ctx context.Context, userID, tok string) error {
	query := `UPDATE users SET refresh_token = ? WHERE id = ?`

	if _, err := r.db.ExecContext(ctx, query, tok, userID); err != nil {
		return fmt.Errorf("saving refresh token: %w", err)
	}
	return nil
}

// ClearRefreshToken sets the stored refresh token to NULL.
func (r *userRepository) ClearRefreshToken(ctx context.Context, userID string) error {
	query := `UPDATE users SET refresh_token = NULL WHERE id = ?`

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("clearing refresh token: %w", err)
	}
	return nil
}

// ChannelProfile loads a user's public channel view with subscriber counts
// and the viewer's subscription status, all computed in one query.
func (r *userRepository) ChannelProfile(ctx context.Context, username, viewerID string) (*ChannelProfile, error) {
	query := `SELECT u.id, u.username, u.email, u.full_name, u.avatar_url,
	                 COALESCE(u.cover_image_url, ''), u.created_at,
	                 (SELECT COUNT(*) FROM subscriptions s WHERE s.channel_id = u.id),
	                 (SELECT COUNT(*) FROM subscriptions s WHERE s.subscriber_id = u.id),
	                 EXISTS(SELECT 1 FROM subscriptions s WHERE s.channel_id = u.id AND s.subscriber_id = ?)
	          FROM users u WHERE u.username = ?`

	profile := &ChannelProfile{}
	err := r.db.QueryRowContext(ctx, query, viewerID, username).Scan(
		&profile.ID,
		&profile.Username,
		&profile.Email,
		&profile.FullName,
		&profile.AvatarURL,
		&profile.CoverImageURL,
		&profile.CreatedAt,
		&profile.SubscribersCount,
		&profile.SubscribedToCount,
		&profile.IsSubscribed,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("channel not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying channel profile: %w", err)
	}
	return profile, nil
}

// WatchHistory loads the user's watched videos, most recent first, with
// each video's owner reduced to the attribution fields.
func (r *userRepository) WatchHistory(ctx context.Context, userID string) ([]WatchedVideo, error) {
	query := `SELECT v.id, v.title, v.video_url, v.thumbnail_url, v.duration_seconds, v.views,
	                 w.watched_at, o.full_name, o.username, o.avatar_url
	          FROM watch_history w
	          JOIN videos v ON v.id = w.video_id
	          JOIN users o ON o.id = v.owner_id
	          WHERE w.user_id = ?
	          ORDER BY w.watched_at DESC, w.id DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("querying watch history: %w", err)
	}
	defer rows.Close()

	var history []WatchedVideo
	for rows.Next() {
		var v WatchedVideo
		if err := rows.Scan(
			&v.ID,
			&v.Title,
			&v.VideoURL,
			&v.ThumbnailURL,
			&v.Duration,
			&v.Views,
			&v.WatchedAt,
			&v.Owner.FullName,
			&v.Owner.Username,
			&v.Owner.AvatarURL,
		); err != nil {
			return nil, fmt.Errorf("scanning watch history row: %w", err)
		}
		history = append(history, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating watch history: %w", err)
	}
	return history, nil
}

// RecordWatch inserts a watch entry or, if the user already watched this
// video, refreshes its timestamp so it moves to the front of the history.
func (r *userRepository) RecordWatch(ctx context.Context, userID, videoID string) error {
	query := `INSERT INTO watch_history (user_id, video_id, watched_at)
	          VALUES (?, ?, NOW())
	          ON DUPLICATE KEY UPDATE watched_at = NOW()`

	if _, err := r.db.ExecContext(ctx, query, userID, videoID); err != nil {
		return fmt.Errorf("recording watch: %w", err)
	}
	return nil
}

// VideoExists reports whether a video with the given ID exists.
func (r *userRepository) VideoExists(ctx context.Context, videoID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM videos WHERE id = ?)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, videoID).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking video existence: %w", err)
	}
	return exists, nil
}

// nullable converts an empty string to NULL for optional columns.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
