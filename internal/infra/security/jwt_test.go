package security

import (
	"strings"
	"testing"
	"time"
)

func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()

	svc, err := NewTokenService("unit-test-secret", "iam-test", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService returned error: %v", err)
	}
	return svc
}

func TestTokenServiceIssueAndValidate(t *testing.T) {
	svc := newTestTokenService(t)

	token, err := svc.Issue(SessionTokenOptions{
		Subject: "alice",
		UserID:  "user-1",
		Roles:   []string{"user", "user", " admin "},
	})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	claims, err := svc.Validate(token)
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}

	if claims.Subject != "alice" {
		t.Fatalf("expected subject alice, got %s", claims.Subject)
	}
	if claims.UserID != "user-1" {
		t.Fatalf("expected uid user-1, got %s", claims.UserID)
	}
	if len(claims.Roles) != 2 {
		t.Fatalf("expected duplicate/blank roles normalized, got %v", claims.Roles)
	}
	if claims.IssuedAt == nil || claims.ExpiresAt == nil {
		t.Fatal("expected iat and exp claims to be set")
	}

	if svc.IsExpired(token) {
		t.Fatal("fresh token reported expired")
	}
}

func TestTokenServiceExpiredTokenStillValidates(t *testing.T) {
	svc := newTestTokenService(t)

	// Negative TTL mints an already-expired token.
	token, err := svc.Issue(SessionTokenOptions{Subject: "alice", TTL: -time.Minute})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	// Signature and structure are fine, so Validate succeeds.
	claims, err := svc.Validate(token)
	if err != nil {
		t.Fatalf("Validate rejected a well-formed expired token: %v", err)
	}
	if claims.Subject != "alice" {
		t.Fatalf("unexpected subject %s", claims.Subject)
	}

	// Expiry is the caller's separate check.
	if !svc.IsExpired(token) {
		t.Fatal("expired token not reported expired")
	}
}

func TestTokenServiceTamperedSignature(t *testing.T) {
	svc := newTestTokenService(t)

	token, err := svc.Issue(SessionTokenOptions{Subject: "alice"})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	last := token[len(token)-1]
	replacement := byte('A')
	if last == replacement {
		replacement = 'B'
	}
	tampered := token[:len(token)-1] + string(replacement)

	if _, err := svc.Validate(tampered); err == nil {
		t.Fatal("Validate accepted a tampered token")
	}
	if !svc.IsExpired(tampered) {
		t.Fatal("tampered token must be conservatively reported expired")
	}
}

func TestTokenServiceSigningKeyRotation(t *testing.T) {
	svc := newTestTokenService(t)

	token, err := svc.Issue(SessionTokenOptions{Subject: "alice"})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	rotated, err := NewTokenService("rotated-secret", "iam-test", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService returned error: %v", err)
	}

	if _, err := rotated.Validate(token); err == nil {
		t.Fatal("token issued under the old key validated after rotation")
	}
}

func TestTokenServiceMalformedInput(t *testing.T) {
	svc := newTestTokenService(t)

	for _, tokenString := range []string{"", "   ", "not.a.jwt", "a.b", strings.Repeat("x", 64)} {
		if _, err := svc.Validate(tokenString); err == nil {
			t.Fatalf("Validate accepted malformed input %q", tokenString)
		}
		if !svc.IsExpired(tokenString) {
			t.Fatalf("malformed input %q not reported expired", tokenString)
		}
	}
}

func TestTokenServiceDefaultTTL(t *testing.T) {
	base := time.Date(2025, 1, 2, 12, 0, 0, 0, time.UTC)
	svc := newTestTokenService(t)
	svc = svc.WithClock(func() time.Time { return base })

	token, err := svc.Issue(SessionTokenOptions{Subject: "alice"})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	claims, err := svc.Validate(token)
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}

	if got := claims.ExpiresAt.Time.Sub(claims.IssuedAt.Time); got != time.Hour {
		t.Fatalf("expected configured ttl of 1h, got %s", got)
	}

	// A clock one minute past expiry flips the expiry check.
	svc.WithClock(func() time.Time { return base.Add(time.Hour + time.Minute) })
	if !svc.IsExpired(token) {
		t.Fatal("token past its expiry not reported expired")
	}
}

func TestTokenServiceRequiresSubject(t *testing.T) {
	svc := newTestTokenService(t)

	if _, err := svc.Issue(SessionTokenOptions{Subject: "  "}); err == nil {
		t.Fatal("expected error for blank subject")
	}
}

func TestNewTokenServiceRequiresSecret(t *testing.T) {
	if _, err := NewTokenService("  ", "iam-test", time.Hour); err == nil {
		t.Fatal("expected error for empty secret")
	}
}
