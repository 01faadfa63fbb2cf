package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"boardkit-api/internal/auth"
	"boardkit-api/internal/http/httperr"
	"boardkit-api/internal/observability/logger"
	"boardkit-api/internal/repo"

	"go.uber.org/zap"
)

const (
	maxIdempotencyKeyLength = 255
	maxIdempotentBodyBytes  = 1 << 20
)

// IdempotencyStore is satisfied by repo.IdempotencyRepo.
type IdempotencyStore interface {
	CheckKey(ctx context.Context, userID, keyHash string) (*repo.CachedResponse, error)
	StoreResult(ctx context.Context, e repo.StoreEntry) error
}

// IdempotencyMiddleware replays the first 2xx response stored for a user's
// Idempotency-Key. Requests without the header pass through. Reusing a key
// on a different method or path is rejected with 422.
func IdempotencyMiddleware(store IdempotencyStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := logger.GetLogger(ctx)

			if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodPatch {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get("Idempotency-Key")
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			if len(key) > maxIdempotencyKeyLength {
				httperr.BadRequest400(w, ctx, httperr.ErrCodeInvalidParameter, "Idempotency-Key must be 255 characters or less")
				return
			}

			authCtx, ok := auth.GetAuthContext(ctx)
			if !ok {
				httperr.InternalError500(w, ctx, "auth context missing for idempotency")
				return
			}
			userID := authCtx.UserID.String()

			keyHash := repo.HashKey(key)
			w.Header().Set("X-Idempotency-Key-Hash", keyHash)

			cached, err := store.CheckKey(ctx, userID, keyHash)
			if err != nil {
				logger.SetRootError(ctx, err)
				httperr.InternalError500(w, ctx, "failed to check idempotency key")
				return
			}
			if cached != nil && (cached.Method != r.Method || cached.Path != r.URL.Path) {
				log.Warn(ctx, "idempotency key reused on another route",
					logger.Module("http"),
					logger.Action("idempotency_mismatch"),
					zap.String("key_hash", keyHash),
					zap.String("stored_route", cached.Method+" "+cached.Path),
				)
				httperr.Unprocessable422(w, ctx, httperr.ErrCodeIdempotencyKeyReused, "Idempotency-Key was already used for a different request")
				return
			}
			if cached != nil {
				log.Info(ctx, "replaying idempotent response",
					logger.Module("http"),
					logger.Action("idempotency_replay"),
					zap.String("key_hash", keyHash),
					zap.Int("status", cached.Status),
				)
				for k, v := range cached.Headers {
					w.Header().Set(k, v)
				}
				w.Header().Set("X-Idempotency-Replay", "true")
				w.WriteHeader(cached.Status)
				_, _ = w.Write(cached.Body)
				return
			}

			if r.Body != nil {
				body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxIdempotentBodyBytes))
				if err != nil {
					var tooLarge *http.MaxBytesError
					if errors.As(err, &tooLarge) {
						httperr.WriteError(w, ctx, http.StatusRequestEntityTooLarge, httperr.ErrCodePayloadTooLarge, "request body too large")
						return
					}
					httperr.BadRequest400(w, ctx, httperr.ErrCodeInvalidFormat, "failed to read request body")
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
			}

			recorder := &responseRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
				body:           &bytes.Buffer{},
			}
			next.ServeHTTP(recorder, r)

			if recorder.statusCode < 200 || recorder.statusCode >= 300 {
				return
			}

			headers := map[string]string{}
			for _, h := range []string{"Content-Type", "Location"} {
				if v := recorder.Header().Get(h); v != "" {
					headers[h] = v
				}
			}
			err = store.StoreResult(ctx, repo.StoreEntry{
				UserID:      userID,
				KeyHash:     keyHash,
				OriginalKey: key,
				Method:      r.Method,
				Path:        r.URL.Path,
				Status:      recorder.statusCode,
				Body:        recorder.body.Bytes(),
				Headers:     headers,
			})
			if err != nil {
				// the response already went out
				log.Error(ctx, "failed to store idempotency result",
					logger.Module("http"),
					logger.Action("idempotency_store"),
					zap.Error(err),
				)
			}
		})
	}
}

// responseRecorder tees the response into a buffer.
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
	written    bool
}

func (rr *responseRecorder) WriteHeader(code int) {
	if !rr.written {
		rr.statusCode = code
		rr.written = true
	}
	rr.ResponseWriter.WriteHeader(code)
}

func (rr *responseRecorder) Write(b []byte) (int, error) {
	if !rr.written {
		rr.WriteHeader(http.StatusOK)
	}
	rr.body.Write(b)
	return rr.ResponseWriter.Write(b)
}
