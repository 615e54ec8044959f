package loginpage

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// MFAPending marks a session token issued before the second factor passed
const MFAPending = "pending"

// DefaultTokenIssuer is the iss claim of session tokens
const DefaultTokenIssuer = "loginpage"

// ErrTokenExpired is returned when a session token is past its expiration
var ErrTokenExpired = goerrors.New("session token expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed is returned when a session token cannot be parsed
var ErrTokenMalformed = goerrors.New("session token malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// SessionClaims are the claims carried by a session token
type SessionClaims struct {
	jwt.RegisteredClaims
	MFA string `json:"mfa,omitempty"`
}

// TokenIssuer signs and parses session tokens
type TokenIssuer struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
	now        func() time.Time
}

// TokenIssuerOption customizes a TokenIssuer
type TokenIssuerOption func(*TokenIssuer)

// WithTokenClock injects a custom clock (useful for tests).
func WithTokenClock(clock func() time.Time) TokenIssuerOption {
	return func(ti *TokenIssuer) {
		if clock != nil {
			ti.now = clock
		}
	}
}

// WithTokenIssuerName overrides the iss claim
func WithTokenIssuerName(issuer string) TokenIssuerOption {
	return func(ti *TokenIssuer) {
		if issuer != "" {
			ti.issuer = issuer
		}
	}
}

// NewTokenIssuer returns an HS256 issuer. A non positive ttl defaults to
// 15 minutes.
func NewTokenIssuer(signingKey []byte, ttl time.Duration, opts ...TokenIssuerOption) *TokenIssuer {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	ti := &TokenIssuer{
		signingKey: signingKey,
		issuer:     DefaultTokenIssuer,
		ttl:        ttl,
		now:        time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(ti)
		}
	}

	return ti
}

// Issue signs a token for userID with the second factor still pending
func (ti *TokenIssuer) Issue(userID string) (string, error) {
	now := ti.now()
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    ti.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.ttl)),
		},
		MFA: MFAPending,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(ti.signingKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}

	return signed, nil
}

// Parse validates tokenString and returns its claims
func (ti *TokenIssuer) Parse(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ti.signingKey, nil
	}, jwt.WithIssuer(ti.issuer), jwt.WithTimeFunc(ti.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}
