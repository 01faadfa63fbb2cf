package requestid_test

import (
	"context"
	"regexp"
	"testing"

	"boardkit-api/internal/observability/requestid"

	"github.com/stretchr/testify/assert"
)

var idPattern = regexp.MustCompile(`^req_\d{13}_[0-9a-f]{20}$`)

func TestNewRequestID_Format(t *testing.T) {
	id := requestid.NewRequestID()
	assert.Regexp(t, idPattern, id)
}

func TestNewRequestID_Unique(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := requestid.NewRequestID()
		_, dup := seen[id]
		assert.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestRequestID_Context(t *testing.T) {
	assert.Empty(t, requestid.GetRequestID(context.Background()))

	ctx := requestid.SetRequestID(context.Background(), "req-abc")
	assert.Equal(t, "req-abc", requestid.GetRequestID(ctx))
}
