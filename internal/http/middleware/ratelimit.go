package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"boardkit-api/internal/auth"
	"boardkit-api/internal/http/httperr"
	"boardkit-api/internal/observability/logger"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const rateLimitWindowSeconds = 60

// RateLimiter is satisfied by ratelimit.RedisRateLimiter.
type RateLimiter interface {
	AllowRequest(ctx context.Context, subject string, limit int, windowSeconds int) (bool, int, error)
}

// RateLimitMiddleware enforces limitPerMin requests per authenticated user.
// It must run after auth.AuthMiddleware.
func RateLimitMiddleware(limiter RateLimiter, limitPerMin int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := logger.GetLogger(ctx)

			authCtx, ok := auth.GetAuthContext(ctx)
			if !ok {
				httperr.InternalError500(w, ctx, "auth context missing for rate limiting")
				return
			}
			subject := authCtx.UserID.String()

			allowed, remaining, err := limiter.AllowRequest(ctx, subject, limitPerMin, rateLimitWindowSeconds)
			if err != nil {
				logger.SetRootError(ctx, err)
				httperr.InternalError500(w, ctx, "rate limit check failed")
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limitPerMin))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(rateLimitWindowSeconds*time.Second).Unix(), 10))

			if !allowed {
				trace.SpanFromContext(ctx).AddEvent("rate_limit_exceeded")
				log.Warn(ctx, "rate limit exceeded",
					logger.Module("http"),
					logger.Action("rate_limit"),
					zap.Int("limit", limitPerMin),
				)

				w.Header().Set("Retry-After", strconv.Itoa(rateLimitWindowSeconds))
				httperr.TooManyRequests429(w, ctx, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
