package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/attack-monitor/iam-service/internal/usecase"
)

// errorCase maps a sentinel error to an HTTP status code and response message.
type errorCase struct {
	err     error
	status  int
	message string
}

// commonErrorCases are consulted after every handler's own mapping table.
// Password policy failures surface from registration, self password change,
// and the admin paths alike, so the mapping lives here once.
var commonErrorCases = []errorCase{
	{err: usecase.ErrPasswordPolicyViolation, status: http.StatusBadRequest, message: "password does not meet requirements"},
}

// respondWithMappedError resolves err against the handler's cases, then the
// common cases, and falls back to a generic response. Wrapped sentinels
// match through errors.Is.
func respondWithMappedError(c *gin.Context, err error, cases []errorCase, fallbackStatus int, fallbackMessage string) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	for _, group := range [][]errorCase{cases, commonErrorCases} {
		for _, cs := range group {
			if cs.err == nil {
				continue
			}
			if errors.Is(err, cs.err) {
				c.JSON(cs.status, NewErrorResponse(c, cs.message))
				return
			}
		}
	}

	c.JSON(fallbackStatus, NewErrorResponse(c, fallbackMessage))
}
