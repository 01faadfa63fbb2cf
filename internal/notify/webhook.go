// Package notify delivers invitation events to an external webhook, typically
// the mailer that sends the invitation email.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"boardkit-api/internal/domain"
	"boardkit-api/internal/http/client"
	"boardkit-api/internal/observability/logger"

	"go.uber.org/zap"
)

const EventInvitationCreated = "invitation.created"

// InvitationEvent is the webhook payload.
type InvitationEvent struct {
	Event      string          `json:"event"`
	OccurredAt time.Time       `json:"occurredAt"`
	Board      EventBoard      `json:"board"`
	Invitation EventInvitation `json:"invitation"`
}

type EventBoard struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type EventInvitation struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	InvitedBy string    `json:"invitedBy"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// WebhookNotifier posts invitation events to a fixed URL. Request ids travel
// with the call through the client transport.
type WebhookNotifier struct {
	httpClient *http.Client
	url        string
	now        func() time.Time
}

func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		httpClient: client.New(client.WebhookTimeout),
		url:        url,
		now:        time.Now,
	}
}

// InvitationCreated sends an invitation.created event. Any non-2xx answer is
// an error.
func (n *WebhookNotifier) InvitationCreated(ctx context.Context, board *domain.Board, inv *domain.BoardInvitation) error {
	log := logger.GetLogger(ctx)

	event := InvitationEvent{
		Event:      EventInvitationCreated,
		OccurredAt: n.now().UTC(),
		Board:      EventBoard{ID: board.ID.String(), Name: board.Name},
		Invitation: EventInvitation{
			ID:        inv.ID.String(),
			Email:     inv.Email,
			Role:      string(inv.Role),
			InvitedBy: inv.InvitedBy.String(),
			Token:     inv.Token,
			ExpiresAt: inv.ExpiresAt.UTC(),
		},
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status from webhook: %d", resp.StatusCode)
	}

	log.Debug(ctx, "invitation webhook delivered",
		logger.Module("notify"),
		logger.Action("invitation_created"),
		zap.String("invitation_id", inv.ID.String()),
		zap.Int("status", resp.StatusCode),
	)
	return nil
}
