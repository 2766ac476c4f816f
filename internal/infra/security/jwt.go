package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	uuid "github.com/google/uuid"
)

// ErrTokenInvalid indicates the token is malformed, carries an unexpected
// algorithm, or fails signature verification.
var ErrTokenInvalid = errors.New("jwt: token invalid")

// SessionClaims is the payload signed into a session token. The subject is
// the username; uid and roles travel alongside the registered claims.
type SessionClaims struct {
	UserID string   `json:"uid"`
	Roles  []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// SessionTokenOptions configures issuance of a session token.
type SessionTokenOptions struct {
	Subject  string
	UserID   string
	Roles    []string
	TTL      time.Duration
	IssuedAt time.Time
}

const defaultSessionTokenTTL = 12 * time.Hour

// TokenService issues and validates HMAC-signed session tokens. The signing
// key is process-wide and fixed at startup; tokens are stateless and remain
// valid until their embedded expiry regardless of account changes.
type TokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService constructs a TokenService for the given symmetric secret.
func NewTokenService(secret, issuer string, ttl time.Duration) (*TokenService, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("jwt: signing secret is required")
	}
	if ttl <= 0 {
		ttl = defaultSessionTokenTTL
	}

	return &TokenService{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// WithClock allows injection of a custom clock (primarily for testing).
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	if now != nil {
		s.now = now
	}
	return s
}

// TTL returns the configured default token lifetime.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a new session token binding the subject, an absolute UTC
// expiry, and an issued-at timestamp. A zero TTL falls back to the
// configured default; negative values are honored to mint pre-expired
// tokens for diagnostics.
func (s *TokenService) Issue(opts SessionTokenOptions) (string, error) {
	subject := strings.TrimSpace(opts.Subject)
	if subject == "" {
		return "", fmt.Errorf("jwt: subject is required")
	}

	now := opts.IssuedAt
	if now.IsZero() {
		now = s.now()
	}
	now = now.UTC()

	ttl := opts.TTL
	if ttl == 0 {
		ttl = s.ttl
	}

	claims := &SessionClaims{
		UserID: strings.TrimSpace(opts.UserID),
		Roles:  normalizeRoles(opts.Roles),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}

	return signed, nil
}

// Validate verifies signature, structure, and signing algorithm and returns
// the embedded claims. It deliberately does not reject expired tokens:
// expiry is a separate check (IsExpired) so callers can distinguish
// tampered-or-unparseable from well-formed-but-expired.
func (s *TokenService) Validate(tokenString string) (*SessionClaims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrTokenInvalid
	}

	claims := &SessionClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	parsed, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || parsed == nil || !parsed.Valid {
		return nil, ErrTokenInvalid
	}

	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// IsExpired reports whether the token's embedded expiry is in the past.
// Invalid or unparseable tokens are conservatively reported as expired.
// Comparison is against UTC wall-clock time to avoid timezone skew.
func (s *TokenService) IsExpired(tokenString string) bool {
	claims, err := s.Validate(tokenString)
	if err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return true
	}
	return s.now().UTC().After(claims.ExpiresAt.Time)
}

func normalizeRoles(input []string) []string {
	if len(input) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(input))
	result := make([]string, 0, len(input))
	for _, role := range input {
		role = strings.TrimSpace(role)
		if role == "" {
			continue
		}
		if _, exists := seen[role]; exists {
			continue
		}
		seen[role] = struct{}{}
		result = append(result, role)
	}

	if len(result) == 0 {
		return nil
	}

	return result
}
