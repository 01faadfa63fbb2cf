package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"boardkit-api/internal/domain"
	"boardkit-api/internal/observability/logger"
	"boardkit-api/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	store       *memStore
	clock       *fakeClock
	notifier    *recordingNotifier
	access      *service.Checker
	boards      *service.BoardService
	members     *service.MembershipService
	invitations *service.InvitationService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store := newMemStore()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	notifier := &recordingNotifier{}
	log := logger.Nop()

	access := service.NewChecker(store, store, log)
	return &harness{
		store:       store,
		clock:       clock,
		notifier:    notifier,
		access:      access,
		boards:      service.NewBoardService(access, store, store, log),
		members:     service.NewMembershipService(access, store, store, store, store, log),
		invitations: service.NewInvitationService(access, store, store, store, log, service.WithClock(clock.Now), service.WithNotifier(notifier)),
	}
}

// newBoard creates a board through the service so the owner row exists.
func (h *harness) newBoard(t *testing.T, owner uuid.UUID, vis domain.Visibility) uuid.UUID {
	t.Helper()
	b, err := h.boards.CreateBoard(context.Background(), owner, &domain.CreateBoardRequest{Name: "Roadmap", Visibility: vis})
	require.NoError(t, err)
	return b.ID
}

func (h *harness) mustAccess(t *testing.T, board, user uuid.UUID) domain.AccessResult {
	t.Helper()
	res, err := h.access.CheckAccess(context.Background(), board, user)
	require.NoError(t, err)
	return res
}

func (h *harness) caller(user uuid.UUID) domain.Caller {
	u, ok := h.store.users[user]
	if !ok {
		return domain.Caller{UserID: user}
	}
	return domain.Caller{UserID: u.ID, Email: u.Email, GlobalRole: u.Role}
}
