package errors_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/seekly/seekly-go/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrors(t *testing.T) {
	t.Run("wrap nil error", func(t *testing.T) {
		var err error
		err = errors.Wrap(err, errors.NotFound, "")
		assert.Nil(t, err)
	})
	t.Run("wrap error", func(t *testing.T) {
		var err = fmt.Errorf("not found")
		err = errors.Wrap(err, errors.NotFound, "")
		assert.Equal(t, errors.NotFound, errors.Extract(err).Code)
	})
	t.Run("new error", func(t *testing.T) {
		err := errors.New(errors.NotFound, "not found")
		assert.Equal(t, errors.NotFound, errors.Extract(err).Code)
	})
	t.Run("new error then wrap", func(t *testing.T) {
		err := errors.New(0, "not found")
		err = errors.Wrap(err, errors.NotFound, "")
		assert.Equal(t, errors.NotFound, errors.Extract(err).Code)
	})
	t.Run("new error then wrap then remove", func(t *testing.T) {
		err := errors.New(0, "not found")
		err = errors.Wrap(err, errors.NotFound, "")
		e := errors.Extract(err).RemoveError()
		assert.Empty(t, e.Err)
	})
	t.Run("wrapping a typed error keeps a printable message", func(t *testing.T) {
		err := errors.Wrap(errors.New(errors.RateLimit, "throttled"), errors.Exhausted, "retry budget exhausted after 5 attempts")
		assert.Equal(t, errors.Exhausted, errors.Extract(err).Code)
		assert.Contains(t, err.Error(), "retry budget exhausted after 5 attempts")
		assert.Contains(t, err.Error(), "throttled")
	})
	t.Run("wrapping a typed error leaves the original untouched", func(t *testing.T) {
		original := errors.New(errors.RateLimit, "throttled")
		wrapped := errors.Wrap(original, errors.Exhausted, "retry budget exhausted after 5 attempts")
		assert.Equal(t, errors.RateLimit, errors.Extract(original).Code)
		assert.Len(t, errors.Extract(original).Messages, 1)
		assert.Len(t, errors.Extract(wrapped).Messages, 2)
	})
	t.Run("from status", func(t *testing.T) {
		assert.Equal(t, errors.Authentication, errors.FromStatus(http.StatusUnauthorized))
		assert.Equal(t, errors.Forbidden, errors.FromStatus(http.StatusForbidden))
		assert.Equal(t, errors.NotFound, errors.FromStatus(http.StatusNotFound))
		assert.Equal(t, errors.Validation, errors.FromStatus(http.StatusUnprocessableEntity))
		assert.Equal(t, errors.RateLimit, errors.FromStatus(http.StatusTooManyRequests))
		assert.Equal(t, errors.Internal, errors.FromStatus(http.StatusBadGateway))
	})
	t.Run("retryable codes", func(t *testing.T) {
		assert.True(t, errors.IsRetryable(errors.New(errors.RateLimit, "throttled")))
		assert.True(t, errors.IsRetryable(errors.New(errors.Internal, "boom")))
		assert.True(t, errors.IsRetryable(errors.New(errors.Transport, "timeout")))
		assert.False(t, errors.IsRetryable(errors.New(errors.Authentication, "denied")))
		assert.False(t, errors.IsRetryable(errors.New(errors.Config, "bad clause")))
		assert.False(t, errors.IsRetryable(nil))
	})
}
