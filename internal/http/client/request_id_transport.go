package client

import (
	"net/http"

	"boardkit-api/internal/observability/logger"
	"boardkit-api/internal/observability/requestid"
)

const headerRequestID = "X-Request-Id"

// RequestIDTransport copies the request id from the outbound request's
// context into X-Request-Id. An explicit header on the request wins.
type RequestIDTransport struct {
	base http.RoundTripper
}

// NewRequestIDTransport wraps base, or http.DefaultTransport when base is nil.
func NewRequestIDTransport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &RequestIDTransport{base: base}
}

func (t *RequestIDTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get(headerRequestID) != "" {
		return t.base.RoundTrip(req)
	}

	ctx := req.Context()
	reqID := logger.GetRequestIDFromContext(ctx)
	if reqID == "" {
		reqID = requestid.GetRequestID(ctx)
	}
	if reqID == "" {
		// background jobs have no request id
		return t.base.RoundTrip(req)
	}

	// RoundTrippers must not modify the caller's request
	cloned := req.Clone(ctx)
	cloned.Header.Set(headerRequestID, reqID)
	return t.base.RoundTrip(cloned)
}
