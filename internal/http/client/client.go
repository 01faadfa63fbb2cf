package client

import (
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// WebhookTimeout bounds calls to third-party webhooks.
const WebhookTimeout = 10 * time.Second

const maxRedirects = 10

// New returns an http.Client for outbound calls made on behalf of a request.
// The request id is propagated and the trace context injected; the timeout
// bounds the whole exchange.
func New(timeout time.Duration) *http.Client {
	base := http.DefaultTransport.(*http.Transport).Clone()

	return &http.Client{
		Transport: otelhttp.NewTransport(NewRequestIDTransport(base)),
		Timeout:   timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}
