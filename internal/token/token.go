// Package token implements the access/refresh token lifecycle. An Issuer
// signs short-lived access tokens carrying identity claims and long-lived
// refresh tokens carrying only the user ID. The refresh token is persisted
// on the user record as the single currently-valid refresh credential:
// every reissue overwrites it, which implicitly invalidates the prior one.
package token

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/soradyne/clipstream/internal/apperror"
	"github.com/soradyne/clipstream/internal/config"
)

// tokenIssuer is the "iss" claim on every token this service signs.
// Validation rejects tokens minted by other applications sharing a secret.
const tokenIssuer = "clipstream"

// Identity is the user data the issuer needs: claims for the access token
// and the currently stored refresh token for rotation checks.
type Identity struct {
	ID           string
	Username     string
	Email        string
	FullName     string
	RefreshToken string // Empty when no refresh token is stored (logged out).
}

// UserStore is the persistence boundary the issuer depends on. Implemented
// by the accounts repository.
type UserStore interface {
	// Identity loads the identity for a user ID. Returns apperror.NewNotFound
	// when no such user exists.
	Identity(ctx context.Context, userID string) (*Identity, error)

	// SaveRefreshToken overwrites the stored refresh token for a user.
	SaveRefreshToken(ctx context.Context, userID, token string) error
}

// Pair bundles a freshly issued access and refresh token.
type Pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// AccessClaims is the identity extracted from a verified access token.
// No store access is needed to produce it -- everything is in the claims.
type AccessClaims struct {
	UserID   string
	Username string
	Email    string
	FullName string
}

// accessTokenClaims is the JWT payload for access tokens.
type accessTokenClaims struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	jwt.RegisteredClaims
}

// refreshTokenClaims is the JWT payload for refresh tokens. Only the user
// ID (subject) -- the rest of the identity is re-read at rotation time.
type refreshTokenClaims struct {
	jwt.RegisteredClaims
}

// Issuer signs, persists, verifies, and rotates token pairs. Access and
// refresh tokens use separate HMAC secrets.
type Issuer struct {
	store         UserStore
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration

	// now is overridable in tests to mint expired tokens.
	now func() time.Time
}

// NewIssuer creates an Issuer from the auth config and user store.
func NewIssuer(store UserStore, cfg config.AuthConfig) *Issuer {
	return &Issuer{
		store:         store,
		accessSecret:  []byte(cfg.AccessTokenSecret),
		refreshSecret: []byte(cfg.RefreshTokenSecret),
		accessTTL:     cfg.AccessTokenTTL,
		refreshTTL:    cfg.RefreshTokenTTL,
		now:           time.Now,
	}
}

// Issue creates a new token pair for the given user and persists the refresh
// token on the user record, superseding any previously stored one.
//
// Returns apperror.NewNotFound if the user does not exist. Signing or
// persistence failures surface as an opaque internal error; when the write
// fails, the previously stored refresh token is left untouched.
func (i *Issuer) Issue(ctx context.Context, userID string) (*Pair, error) {
	ident, err := i.store.Identity(ctx, userID)
	if err != nil {
		return nil, err
	}

	pair, err := i.sign(ident)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	if err := i.store.SaveRefreshToken(ctx, ident.ID, pair.RefreshToken); err != nil {
		return nil, apperror.NewInternal(err)
	}

	return pair, nil
}

// Rotate verifies a presented refresh token and exchanges it for a fresh
// pair. The presented token must be validly signed, unexpired, belong to an
// existing user, AND exactly equal the user's currently stored refresh token.
// The equality check is the single-active-token policy: a superseded token
// verifies cryptographically but is rejected because a later issue
// overwrote it.
//
// Every failure mode returns the same Unauthorized error so callers cannot
// distinguish expired from forged from superseded tokens.
func (i *Issuer) Rotate(ctx context.Context, presented string) (*Pair, error) {
	unauthorized := apperror.NewUnauthorized("invalid refresh token")

	var claims refreshTokenClaims
	if err := i.parse(presented, &claims, i.refreshSecret); err != nil {
		return nil, unauthorized
	}
	if claims.Subject == "" {
		return nil, unauthorized
	}

	ident, err := i.store.Identity(ctx, claims.Subject)
	if err != nil {
		return nil, unauthorized
	}

	if ident.RefreshToken == "" || presented != ident.RefreshToken {
		return nil, unauthorized
	}

	pair, err := i.Issue(ctx, ident.ID)
	if err != nil {
		return nil, unauthorized
	}
	return pair, nil
}

// VerifyAccess verifies an access token and returns the identity claims it
// carries. Used by the auth middleware -- no database access involved.
func (i *Issuer) VerifyAccess(tokenStr string) (*AccessClaims, error) {
	var claims accessTokenClaims
	if err := i.parse(tokenStr, &claims, i.accessSecret); err != nil {
		return nil, apperror.NewUnauthorized("invalid access token")
	}
	if claims.Subject == "" {
		return nil, apperror.NewUnauthorized("invalid access token")
	}

	return &AccessClaims{
		UserID:   claims.Subject,
		Username: claims.Username,
		Email:    claims.Email,
		FullName: claims.FullName,
	}, nil
}

// sign mints both tokens of a pair without touching the store.
func (i *Issuer) sign(ident *Identity) (*Pair, error) {
	now := i.now()

	access := jwt.NewWithClaims(jwt.SigningMethodHS256, accessTokenClaims{
		Username: ident.Username,
		Email:    ident.Email,
		FullName: ident.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ident.ID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.accessTTL)),
		},
	})
	accessStr, err := access.SignedString(i.accessSecret)
	if err != nil {
		return nil, err
	}

	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ident.ID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.refreshTTL)),
		},
	})
	refreshStr, err := refresh.SignedString(i.refreshSecret)
	if err != nil {
		return nil, err
	}

	return &Pair{AccessToken: accessStr, RefreshToken: refreshStr}, nil
}

// parse verifies signature, expiry, and issuer with the given secret.
// Restricting valid methods to HS256 prevents algorithm confusion attacks.
func (i *Issuer) parse(tokenStr string, claims jwt.Claims, secret []byte) error {
	_, err := jwt.ParseWithClaims(
		tokenStr,
		claims,
		func(t *jwt.Token) (any, error) {
			return secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	return err
}
