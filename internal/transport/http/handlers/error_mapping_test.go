package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/attack-monitor/iam-service/internal/usecase"
)

func respondStatus(t *testing.T, err error, cases []errorCase) (int, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	respondWithMappedError(c, err, cases, http.StatusInternalServerError, "fallback")

	var body ErrorResponse
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
	}
	return w.Code, body.Error
}

func TestRespondWithMappedErrorMatchesSentinel(t *testing.T) {
	cases := []errorCase{
		{err: usecase.ErrUserNotFound, status: http.StatusNotFound, message: "user not found"},
	}

	code, msg := respondStatus(t, usecase.ErrUserNotFound, cases)
	if code != http.StatusNotFound || msg != "user not found" {
		t.Fatalf("expected 404 user not found, got %d %q", code, msg)
	}
}

func TestRespondWithMappedErrorMatchesWrappedSentinel(t *testing.T) {
	cases := []errorCase{
		{err: usecase.ErrUsernameTaken, status: http.StatusConflict, message: "username already taken"},
	}

	wrapped := fmt.Errorf("update user: %w", usecase.ErrUsernameTaken)
	code, _ := respondStatus(t, wrapped, cases)
	if code != http.StatusConflict {
		t.Fatalf("expected 409 for wrapped sentinel, got %d", code)
	}
}

func TestRespondWithMappedErrorAppliesCommonCases(t *testing.T) {
	// No handler-specific cases: the policy violation must still map to 400.
	wrapped := fmt.Errorf("%w: too short", usecase.ErrPasswordPolicyViolation)
	code, msg := respondStatus(t, wrapped, nil)
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for password policy violation, got %d", code)
	}
	if msg != "password does not meet requirements" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestRespondWithMappedErrorFallsBack(t *testing.T) {
	code, msg := respondStatus(t, errors.New("boom"), []errorCase{
		{err: usecase.ErrUserNotFound, status: http.StatusNotFound, message: "user not found"},
	})
	if code != http.StatusInternalServerError || msg != "fallback" {
		t.Fatalf("expected fallback 500, got %d %q", code, msg)
	}
}
