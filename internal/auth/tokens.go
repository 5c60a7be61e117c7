package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/taskforge/backend/domain"
)

const (
	// DefaultAccessTTL keeps access tokens short-lived so a leaked bearer
	// token ages out quickly.
	DefaultAccessTTL = 15 * time.Minute
	// DefaultRefreshTTL bounds how long a session can survive without a
	// full re-login.
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// TokenService signs and verifies the two JWT kinds used by the API:
// short-lived access tokens carried in the Authorization header and
// long-lived refresh tokens delivered via an http-only cookie. The two use
// separate secrets, so an access token can never pass refresh verification.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
}

type Config struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

func NewTokenService(cfg Config) *TokenService {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	return &TokenService{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		issuer:        cfg.Issuer,
	}
}

// RefreshToken couples a signed refresh token with the metadata the caller
// needs to set the cookie and to revoke the token on logout.
type RefreshToken struct {
	Signed    string
	ID        string
	ExpiresAt time.Time
}

// AccessTTL exposes the configured access-token lifetime.
func (s *TokenService) AccessTTL() time.Duration { return s.accessTTL }

// RefreshTTL exposes the configured refresh-token lifetime, used for the
// cookie max-age.
func (s *TokenService) RefreshTTL() time.Duration { return s.refreshTTL }

// IssueAccessToken signs a short-lived token whose subject is the user id.
func (s *TokenService) IssueAccessToken(userID string) (string, error) {
	return s.sign(s.accessSecret, jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.accessTTL)),
	})
}

// IssueRefreshToken signs a long-lived token carrying a unique jti so it can
// be revoked individually.
func (s *TokenService) IssueRefreshToken(userID string) (*RefreshToken, error) {
	expiresAt := time.Now().Add(s.refreshTTL)
	tokenID := uuid.NewString()
	signed, err := s.sign(s.refreshSecret, jwt.RegisteredClaims{
		Subject:   userID,
		ID:        tokenID,
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})
	if err != nil {
		return nil, err
	}
	return &RefreshToken{Signed: signed, ID: tokenID, ExpiresAt: expiresAt}, nil
}

// VerifyAccessToken returns the subject user id, or a domain error telling
// expired apart from otherwise invalid tokens.
func (s *TokenService) VerifyAccessToken(token string) (string, error) {
	claims, err := s.verify(s.accessSecret, token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// VerifyRefreshToken validates a refresh token and returns the subject user
// id plus the token's jti and remaining lifetime (for denylist TTLs).
func (s *TokenService) VerifyRefreshToken(token string) (userID, tokenID string, remaining time.Duration, err error) {
	claims, err := s.verify(s.refreshSecret, token)
	if err != nil {
		return "", "", 0, err
	}
	if claims.ExpiresAt != nil {
		remaining = time.Until(claims.ExpiresAt.Time)
	}
	return claims.Subject, claims.ID, remaining, nil
}

func (s *TokenService) sign(secret []byte, claims jwt.RegisteredClaims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (s *TokenService) verify(secret []byte, token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrTokenInvalid
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrTokenInvalid
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, domain.ErrTokenInvalid
	}
	return claims, nil
}
