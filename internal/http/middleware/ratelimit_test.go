package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"boardkit-api/internal/auth"
	"boardkit-api/internal/http/middleware"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type countingLimiter struct {
	counts   map[string]int
	subjects []string
	err      error
}

func (l *countingLimiter) AllowRequest(_ context.Context, subject string, limit int, _ int) (bool, int, error) {
	if l.err != nil {
		return false, 0, l.err
	}
	l.counts[subject]++
	l.subjects = append(l.subjects, subject)
	remaining := limit - l.counts[subject]
	if remaining < 0 {
		remaining = 0
	}
	return l.counts[subject] <= limit, remaining, nil
}

func authed(req *http.Request, userID uuid.UUID) *http.Request {
	return req.WithContext(auth.SetAuthContextForTesting(req.Context(), &auth.AuthContext{UserID: userID, AuthMethod: auth.MethodJWT}))
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := &countingLimiter{counts: map[string]int{}}
	handler := middleware.RateLimitMiddleware(limiter, 2)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	alice, bob := uuid.New(), uuid.New()
	codes := []int{}
	for _, user := range []uuid.UUID{alice, alice, alice, bob} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodGet, "/v1/boards", nil), user))
		codes = append(codes, rec.Code)

		if rec.Code == http.StatusTooManyRequests {
			assert.Equal(t, "60", rec.Header().Get("Retry-After"))
			assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
		}
	}

	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests, http.StatusNoContent}, codes)
	assert.Equal(t, alice.String(), limiter.subjects[0], "limits are keyed by user id")
}

func TestRateLimitMiddleware_Failures(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	})

	t.Run("limiter error", func(t *testing.T) {
		limiter := &countingLimiter{err: errors.New("redis down")}
		rec := httptest.NewRecorder()
		middleware.RateLimitMiddleware(limiter, 10)(next).ServeHTTP(rec, authed(httptest.NewRequest(http.MethodGet, "/", nil), uuid.New()))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		limiter := &countingLimiter{counts: map[string]int{}}
		rec := httptest.NewRecorder()
		middleware.RateLimitMiddleware(limiter, 10)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
