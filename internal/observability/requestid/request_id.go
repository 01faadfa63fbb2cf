package requestid

import (
	"context"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

type contextKey string

const requestIDContextKey contextKey = "request_id"

const suffixAlphabet = "0123456789abcdef"

// NewRequestID returns req_<unix millis>_<20 hex chars>. The millisecond
// prefix keeps ids roughly sortable in log search.
func NewRequestID() string {
	ts := time.Now().UnixMilli()
	suffix, err := gonanoid.Generate(suffixAlphabet, 20)
	if err != nil {
		return fmt.Sprintf("req_%d", ts)
	}
	return fmt.Sprintf("req_%d_%s", ts, suffix)
}

func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}

func SetRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, id)
}
