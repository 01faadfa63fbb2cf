package repo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IdempotencyRepo stores replayable responses keyed by (user, key hash).
type IdempotencyRepo struct {
	pool *pgxpool.Pool
}

func NewIdempotencyRepo(pool *pgxpool.Pool) *IdempotencyRepo {
	return &IdempotencyRepo{pool: pool}
}

// CachedResponse is a stored response plus the request it answered.
type CachedResponse struct {
	Method  string
	Path    string
	Status  int
	Body    json.RawMessage
	Headers map[string]string
}

// HashKey returns the hex SHA-256 of an Idempotency-Key header value.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// CheckKey returns the cached response, or nil when none is stored.
func (r *IdempotencyRepo) CheckKey(ctx context.Context, userID, keyHash string) (*CachedResponse, error) {
	var (
		method, path string
		status       int
		body         json.RawMessage
		headersJSON  []byte
	)
	err := r.pool.QueryRow(ctx, `
		SELECT request_method, request_path, response_status, response_body, response_headers
		FROM idempotency_keys
		WHERE user_id = $1 AND key_hash = $2 AND expires_at > NOW()
	`, userID, keyHash).Scan(&method, &path, &status, &body, &headersJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check idempotency key: %w", err)
	}

	var headers map[string]string
	if headersJSON != nil {
		if err := json.Unmarshal(headersJSON, &headers); err != nil {
			return nil, fmt.Errorf("failed to unmarshal headers: %w", err)
		}
	}
	return &CachedResponse{Method: method, Path: path, Status: status, Body: body, Headers: headers}, nil
}

// StoreEntry is a response captured for replay.
type StoreEntry struct {
	UserID      string
	KeyHash     string
	OriginalKey string
	Method      string
	Path        string
	Status      int
	Body        json.RawMessage
	Headers     map[string]string
}

// StoreResult keeps the first response for a key; later writes are ignored.
func (r *IdempotencyRepo) StoreResult(ctx context.Context, e StoreEntry) error {
	headersJSON, err := json.Marshal(e.Headers)
	if err != nil {
		return fmt.Errorf("failed to marshal headers: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO idempotency_keys (
			key_hash, user_id, original_key, request_method, request_path,
			response_status, response_body, response_headers, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW() + INTERVAL '24 hours')
		ON CONFLICT (user_id, key_hash) DO NOTHING
	`, e.KeyHash, e.UserID, e.OriginalKey, e.Method, e.Path, e.Status, e.Body, headersJSON)
	if err != nil {
		return fmt.Errorf("failed to store idempotency result: %w", err)
	}
	return nil
}

// CleanupExpired removes keys past their 24h replay window.
func (r *IdempotencyRepo) CleanupExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE expires_at < NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired keys: %w", err)
	}
	return tag.RowsAffected(), nil
}
