package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Gladiston-Porto/GladPros-sub002/internal/usecase"
)

// ErrorCase maps a sentinel error to an HTTP status code and response message.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

// RespondWithMappedError resolves the provided error against known cases or
// falls back to a generic response. Rate-limit and policy errors carry extra
// detail and are handled before the sentinel table.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	var rateLimited *usecase.RateLimitedError
	if errors.As(err, &rateLimited) {
		retryAfter := int64(rateLimited.RetryAfter / time.Second)
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
		c.JSON(http.StatusTooManyRequests, NewErrorResponse(c, "too many attempts, try again later"))
		return
	}

	var policy *usecase.PasswordPolicyError
	if errors.As(err, &policy) {
		codes := make([]string, 0, len(policy.Violations))
		for _, violation := range policy.Violations {
			codes = append(codes, violation.Code)
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "password does not meet requirements",
			"violations": codes,
		})
		return
	}

	for _, cs := range cases {
		if cs.Err == nil {
			continue
		}
		if errors.Is(err, cs.Err) {
			c.JSON(cs.Status, NewErrorResponse(c, cs.Message))
			return
		}
	}

	c.JSON(fallbackStatus, NewErrorResponse(c, fallbackMessage))
}
