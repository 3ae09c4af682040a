package token

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/soradyne/clipstream/internal/apperror"
	"github.com/soradyne/clipstream/internal/config"
)

// --- Mock User Store ---

// mockUserStore implements UserStore for testing. The stored refresh token
// is captured so tests can simulate rotation and supersession.
type mockUserStore struct {
	identityFn func(ctx context.Context, userID string) (*Identity, error)

	// savedToken captures the last SaveRefreshToken call.
	savedToken string
	saveErr    error
	saveCount  int
}

func (m *mockUserStore) Identity(ctx context.Context, userID string) (*Identity, error) {
	if m.identityFn != nil {
		return m.identityFn(ctx, userID)
	}
	return nil, apperror.NewNotFound("user not found")
}

func (m *mockUserStore) SaveRefreshToken(ctx context.Context, userID, token string) error {
	m.saveCount++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.savedToken = token
	return nil
}

// --- Test Helpers ---

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		AccessTokenSecret:  "test-access-secret-0123456789abcdef",
		RefreshTokenSecret: "test-refresh-secret-0123456789abcde",
		AccessTokenTTL:     15 * time.Minute,
		RefreshTokenTTL:    240 * time.Hour,
	}
}

// storeWithUser returns a store that knows one user and tracks the
// refresh token the issuer persists for them.
func storeWithUser(id string) *mockUserStore {
	store := &mockUserStore{}
	store.identityFn = func(ctx context.Context, userID string) (*Identity, error) {
		if userID != id {
			return nil, apperror.NewNotFound("user not found")
		}
		return &Identity{
			ID:           id,
			Username:     "alice",
			Email:        "alice@example.com",
			FullName:     "Alice Example",
			RefreshToken: store.savedToken,
		}, nil
	}
	return store
}

func assertUnauthorized(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected unauthorized error, got nil")
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperror.AppError, got %T: %v", err, err)
	}
	if appErr.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d (message: %s)", appErr.Code, appErr.Message)
	}
}

// --- Issue Tests ---

func TestIssue_Success(t *testing.T) {
	store := storeWithUser("user-1")
	issuer := NewIssuer(store, testAuthConfig())

	pair, err := issuer.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens to be set")
	}
	if pair.AccessToken == pair.RefreshToken {
		t.Error("expected access and refresh tokens to differ")
	}
	if store.savedToken != pair.RefreshToken {
		t.Error("expected the refresh token to be persisted")
	}
}

func TestIssue_UnknownUser(t *testing.T) {
	issuer := NewIssuer(&mockUserStore{}, testAuthConfig())

	_, err := issuer.Issue(context.Background(), "nobody")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestIssue_PersistFailureIsInternal(t *testing.T) {
	store := storeWithUser("user-1")
	store.saveErr = errors.New("db down")
	issuer := NewIssuer(store, testAuthConfig())

	_, err := issuer.Issue(context.Background(), "user-1")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %v", err)
	}
}

func TestIssue_SupersedesPreviousToken(t *testing.T) {
	store := storeWithUser("user-1")
	issuer := NewIssuer(store, testAuthConfig())

	first, err := issuer.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Advance the clock so the second pair has a different signature.
	issuer.now = func() time.Time { return time.Now().Add(2 * time.Second) }

	second, err := issuer.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.RefreshToken == second.RefreshToken {
		t.Fatal("expected a fresh refresh token on reissue")
	}
	if store.savedToken != second.RefreshToken {
		t.Error("expected the stored token to be the latest one")
	}
}

// --- VerifyAccess Tests ---

func TestVerifyAccess_RoundTrip(t *testing.T) {
	store := storeWithUser("user-1")
	issuer := NewIssuer(store, testAuthConfig())

	pair, err := issuer.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	claims, err := issuer.VerifyAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Errorf("expected user ID user-1, got %s", claims.UserID)
	}
	if claims.Username != "alice" || claims.Email != "alice@example.com" || claims.FullName != "Alice Example" {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestVerifyAccess_Expired(t *testing.T) {
	store := storeWithUser("user-1")
	issuer := NewIssuer(store, testAuthConfig())
	issuer.now = func() time.Time { return time.Now().Add(-time.Hour) }

	pair, err := issuer.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = issuer.VerifyAccess(pair.AccessToken)
	assertUnauthorized(t, err)
}

func TestVerifyAccess_WrongSecret(t *testing.T) {
	store := storeWithUser("user-1")
	issuer := NewIssuer(store, testAuthConfig())

	pair, err := issuer.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	other := testAuthConfig()
	other.AccessTokenSecret = "a-completely-different-secret-value!"
	otherIssuer := NewIssuer(store, other)

	_, err = otherIssuer.VerifyAccess(pair.AccessToken)
	assertUnauthorized(t, err)
}

func TestVerifyAccess_RefreshTokenRejected(t *testing.T) {
	store := storeWithUser("user-1")
	issuer := NewIssuer(store, testAuthConfig())

	pair, err := issuer.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A refresh token is signed with a different secret, so it must not
	// pass access verification.
	_, err = issuer.VerifyAccess(pair.RefreshToken)
	assertUnauthorized(t, err)
}

func TestVerifyAccess_Garbage(t *testing.T) {
	issuer := NewIssuer(&mockUserStore{}, testAuthConfig())

	_, err := issuer.VerifyAccess("not-a-token")
	assertUnauthorized(t, err)
}

// --- Rotate Tests ---

func TestRotate_Success(t *testing.T) {
	store := storeWithUser("user-1")
	issuer := NewIssuer(store, testAuthConfig())

	first, err := issuer.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	issuer.now = func() time.Time { return time.Now().Add(2 * time.Second) }

	pair, err := issuer.Rotate(context.Background(), first.RefreshToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pair.RefreshToken == first.RefreshToken {
		t.Error("expected rotation to mint a new refresh token")
	}
	if store.savedToken != pair.RefreshToken {
		t.Error("expected the new refresh token to be persisted")
	}
}

func TestRotate_SupersededTokenRejected(t *testing.T) {
	store := storeWithUser("user-1")
	issuer := NewIssuer(store, testAuthConfig())

	first, err := issuer.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A later login replaces the stored token.
	issuer.now = func() time.Time { return time.Now().Add(2 * time.Second) }
	if _, err := issuer.Issue(context.Background(), "user-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The first token still verifies cryptographically but is no longer
	// the stored one.
	_, err = issuer.Rotate(context.Background(), first.RefreshToken)
	assertUnauthorized(t, err)
}

func TestRotate_AfterLogoutRejected(t *testing.T) {
	store := storeWithUser("user-1")
	issuer := NewIssuer(store, testAuthConfig())

	pair, err := issuer.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Logout clears the stored token.
	store.savedToken = ""

	_, err = issuer.Rotate(context.Background(), pair.RefreshToken)
	assertUnauthorized(t, err)
}

func TestRotate_ExpiredToken(t *testing.T) {
	store := storeWithUser("user-1")
	issuer := NewIssuer(store, testAuthConfig())
	issuer.now = func() time.Time { return time.Now().Add(-300 * time.Hour) }

	pair, err := issuer.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	issuer.now = time.Now
	_, err = issuer.Rotate(context.Background(), pair.RefreshToken)
	assertUnauthorized(t, err)
}

func TestRotate_AccessTokenRejected(t *testing.T) {
	store := storeWithUser("user-1")
	issuer := NewIssuer(store, testAuthConfig())

	pair, err := issuer.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = issuer.Rotate(context.Background(), pair.AccessToken)
	assertUnauthorized(t, err)
}

func TestRotate_UnknownUser(t *testing.T) {
	// Mint a valid refresh token, then make the store forget the user.
	store := storeWithUser("user-1")
	issuer := NewIssuer(store, testAuthConfig())

	pair, err := issuer.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	store.identityFn = func(ctx context.Context, userID string) (*Identity, error) {
		return nil, apperror.NewNotFound("user not found")
	}

	_, err = issuer.Rotate(context.Background(), pair.RefreshToken)
	assertUnauthorized(t, err)
}
