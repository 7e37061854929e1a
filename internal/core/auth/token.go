package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/devicemanager/api/internal/core/domain"
)

const (
	// DefaultValidityInMinutes replaces a non-positive configured lifetime.
	DefaultValidityInMinutes = 60
	// MinKeyLength is the shortest accepted HMAC-SHA256 secret, in bytes.
	MinKeyLength = 32
)

// NumericDate defaults to whole seconds. Millisecond precision keeps exp at
// iat+validity for tokens minted mid-second.
func init() {
	jwt.TimePrecision = time.Millisecond
}

// TokenConfig is the validated token configuration, built once at startup.
type TokenConfig struct {
	Issuer            string
	Audience          string
	Key               string
	ValidityInMinutes int
}

// Claims are the verified assertions carried by an access token.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// Username is the subject the token was issued to.
func (c *Claims) Username() string {
	return c.Subject
}

// TokenIssuer mints and validates HS256 bearer tokens. Issuer and verifier
// live in the same process, so a shared secret is sufficient.
type TokenIssuer struct {
	issuer   string
	audience string
	key      []byte
	validity time.Duration
	now      func() time.Time
	parser   *jwt.Parser
}

// NewTokenIssuer validates cfg and returns an issuer. Missing issuer, audience
// or key, or a key shorter than MinKeyLength, yields a *ConfigurationError.
func NewTokenIssuer(cfg TokenConfig) (*TokenIssuer, error) {
	return newTokenIssuer(cfg, time.Now)
}

func newTokenIssuer(cfg TokenConfig, now func() time.Time) (*TokenIssuer, error) {
	switch {
	case strings.TrimSpace(cfg.Key) == "":
		return nil, &ConfigurationError{Setting: "JWT_KEY", Reason: "is not configured"}
	case len(cfg.Key) < MinKeyLength:
		return nil, &ConfigurationError{Setting: "JWT_KEY", Reason: fmt.Sprintf("must be at least %d bytes", MinKeyLength)}
	case strings.TrimSpace(cfg.Issuer) == "":
		return nil, &ConfigurationError{Setting: "JWT_ISSUER", Reason: "is not configured"}
	case strings.TrimSpace(cfg.Audience) == "":
		return nil, &ConfigurationError{Setting: "JWT_AUDIENCE", Reason: "is not configured"}
	}

	minutes := cfg.ValidityInMinutes
	if minutes <= 0 {
		minutes = DefaultValidityInMinutes
	}

	t := &TokenIssuer{
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		key:      []byte(cfg.Key),
		validity: time.Duration(minutes) * time.Minute,
		now:      now,
	}
	t.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithAudience(cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return t.now() }),
	)
	return t, nil
}

// Validity returns the configured token lifetime.
func (t *TokenIssuer) Validity() time.Duration {
	return t.validity
}

// Issue mints a token for subject with the given role. Every token gets a
// fresh jti so tokens for the same subject are never identical.
func (t *TokenIssuer) Issue(subject, role string) (string, error) {
	if subject == "" {
		return "", errors.New("issue token: empty subject")
	}
	if role == "" {
		return "", errors.New("issue token: empty role")
	}

	issuedAt := t.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			Issuer:    t.issuer,
			Audience:  jwt.ClaimStrings{t.audience},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(t.validity)),
		},
		Role: role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate verifies signature, issuer, audience and expiry. Every failure
// wraps domain.ErrUnauthenticated; the wrapped detail is for logs only.
func (t *TokenIssuer) Validate(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := t.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return t.key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	if !parsed.Valid {
		return nil, domain.ErrUnauthenticated
	}
	if claims.Subject == "" || claims.Role == "" {
		return nil, fmt.Errorf("%w: missing subject or role", domain.ErrUnauthenticated)
	}
	return claims, nil
}
