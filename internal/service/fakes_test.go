package service_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"boardkit-api/internal/domain"
	"boardkit-api/internal/repo"

	"github.com/google/uuid"
)

type memberKey struct {
	board uuid.UUID
	user  uuid.UUID
}

// memStore is an in-memory stand-in for the Postgres repositories. It keeps
// the same atomicity and conflict rules the SQL enforces.
type memStore struct {
	mu          sync.Mutex
	users       map[uuid.UUID]domain.User
	boards      map[uuid.UUID]domain.Board
	members     map[memberKey]domain.BoardMember
	invitations map[uuid.UUID]domain.BoardInvitation
	audit       []repo.AuditEntry

	failGetBoard error
	failAudit    error
}

func newMemStore() *memStore {
	return &memStore{
		users:       map[uuid.UUID]domain.User{},
		boards:      map[uuid.UUID]domain.Board{},
		members:     map[memberKey]domain.BoardMember{},
		invitations: map[uuid.UUID]domain.BoardInvitation{},
	}
}

func (s *memStore) addUser(email string) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	s.users[id] = domain.User{ID: id, Email: email, Name: email, Role: "user"}
	return id
}

// putBoard inserts a board without an owner membership row.
func (s *memStore) putBoard(owner uuid.UUID, vis domain.Visibility) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	s.boards[id] = domain.Board{ID: id, OwnerID: owner, Name: "board", Visibility: vis}
	return id
}

func (s *memStore) putMember(board, user uuid.UUID, role domain.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[memberKey{board, user}] = domain.BoardMember{BoardID: board, UserID: user, Role: role, AddedAt: time.Now()}
}

func (s *memStore) memberRows(board uuid.UUID) map[uuid.UUID]domain.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[uuid.UUID]domain.Role{}
	for k, m := range s.members {
		if k.board == board {
			out[k.user] = m.Role
		}
	}
	return out
}

func (s *memStore) auditActions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.audit))
	for _, e := range s.audit {
		out = append(out, e.Action)
	}
	return out
}

// BoardStore

func (s *memStore) GetBoard(_ context.Context, id uuid.UUID) (*domain.Board, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGetBoard != nil {
		return nil, s.failGetBoard
	}
	b, ok := s.boards[id]
	if !ok {
		return nil, repo.ErrBoardNotFound
	}
	return &b, nil
}

func (s *memStore) CreateBoard(_ context.Context, b *domain.Board) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[b.OwnerID]; !ok {
		return repo.ErrUserNotFound
	}
	now := time.Now()
	b.CreatedAt, b.UpdatedAt = now, now
	s.boards[b.ID] = *b
	owner := b.OwnerID
	s.members[memberKey{b.ID, b.OwnerID}] = domain.BoardMember{BoardID: b.ID, UserID: b.OwnerID, Role: domain.RoleOwner, AddedBy: &owner, AddedAt: now}
	return nil
}

func (s *memStore) UpdateBoard(_ context.Context, b *domain.Board) (*domain.Board, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.boards[b.ID]; !ok {
		return nil, repo.ErrBoardNotFound
	}
	b.UpdatedAt = time.Now()
	s.boards[b.ID] = *b
	out := *b
	return &out, nil
}

func (s *memStore) DeleteBoard(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.boards[id]; !ok {
		return repo.ErrBoardNotFound
	}
	delete(s.boards, id)
	for k := range s.members {
		if k.board == id {
			delete(s.members, k)
		}
	}
	for k, inv := range s.invitations {
		if inv.BoardID == id {
			delete(s.invitations, k)
		}
	}
	return nil
}

func (s *memStore) ListBoardsForUser(_ context.Context, userID uuid.UUID) ([]domain.Board, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Board{}
	for _, b := range s.boards {
		_, member := s.members[memberKey{b.ID, userID}]
		if b.OwnerID == userID || member {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (s *memStore) TransferOwnership(_ context.Context, boardID, from, to uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.boards[boardID]
	if !ok || b.OwnerID != from {
		return repo.ErrOwnershipChanged
	}
	if _, ok := s.users[to]; !ok {
		return repo.ErrUserNotFound
	}
	b.OwnerID = to
	s.boards[boardID] = b
	for k, m := range s.members {
		if k.board == boardID && m.Role == domain.RoleOwner && k.user != to {
			m.Role = domain.RoleAdmin
			s.members[k] = m
		}
	}
	s.members[memberKey{boardID, to}] = domain.BoardMember{BoardID: boardID, UserID: to, Role: domain.RoleOwner, AddedBy: &from, AddedAt: time.Now()}
	prev := s.members[memberKey{boardID, from}]
	prev.BoardID, prev.UserID, prev.Role = boardID, from, domain.RoleAdmin
	s.members[memberKey{boardID, from}] = prev
	return nil
}

// MemberStore

func (s *memStore) GetMember(_ context.Context, boardID, userID uuid.UUID) (*domain.BoardMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[memberKey{boardID, userID}]
	if !ok {
		return nil, repo.ErrMemberNotFound
	}
	return &m, nil
}

func (s *memStore) UpsertMember(_ context.Context, m *domain.BoardMember) (*domain.BoardMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertLocked(*m), nil
}

func (s *memStore) upsertLocked(m domain.BoardMember) *domain.BoardMember {
	key := memberKey{m.BoardID, m.UserID}
	if existing, ok := s.members[key]; ok {
		if existing.Role != domain.RoleOwner {
			existing.Role = m.Role
		}
		s.members[key] = existing
		return &existing
	}
	m.AddedAt = time.Now()
	s.members[key] = m
	return &m
}

func (s *memStore) EnsureOwner(_ context.Context, boardID, ownerID uuid.UUID) (*domain.BoardMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.boards[boardID]; !ok {
		return nil, repo.ErrBoardNotFound
	}
	for k, m := range s.members {
		if k.board == boardID && k.user != ownerID && m.Role == domain.RoleOwner {
			m.Role = domain.RoleAdmin
			s.members[k] = m
		}
	}
	key := memberKey{boardID, ownerID}
	m, ok := s.members[key]
	if !ok {
		m = domain.BoardMember{BoardID: boardID, UserID: ownerID, AddedBy: &ownerID, AddedAt: time.Now()}
	}
	m.Role = domain.RoleOwner
	s.members[key] = m
	return &m, nil
}

func (s *memStore) UpdateMemberRole(_ context.Context, boardID, userID uuid.UUID, role domain.Role) (*domain.BoardMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memberKey{boardID, userID}
	m, ok := s.members[key]
	if !ok || m.Role == domain.RoleOwner {
		return nil, repo.ErrMemberNotFound
	}
	m.Role = role
	s.members[key] = m
	return &m, nil
}

func (s *memStore) DeleteMember(_ context.Context, boardID, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memberKey{boardID, userID}
	m, ok := s.members[key]
	if !ok || m.Role == domain.RoleOwner {
		return repo.ErrMemberNotFound
	}
	delete(s.members, key)
	return nil
}

func (s *memStore) ListMembers(_ context.Context, boardID uuid.UUID) ([]domain.MemberWithUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.MemberWithUser{}
	for k, m := range s.members {
		if k.board != boardID {
			continue
		}
		u := s.users[k.user]
		out = append(out, domain.MemberWithUser{BoardMember: m, Email: u.Email, Name: u.Name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID.String() < out[j].UserID.String() })
	return out, nil
}

// InvitationStore

func (s *memStore) CreateInvitation(_ context.Context, inv *domain.BoardInvitation, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.boards[inv.BoardID]; !ok {
		return repo.ErrBoardNotFound
	}
	for id, existing := range s.invitations {
		if existing.BoardID != inv.BoardID || existing.Email != inv.Email || existing.Status != domain.InvitationPending {
			continue
		}
		if existing.IsActive(now) {
			return repo.ErrInvitationConflict
		}
		existing.Status = domain.InvitationExpired
		s.invitations[id] = existing
	}
	inv.Status = domain.InvitationPending
	inv.CreatedAt = now
	s.invitations[inv.ID] = *inv
	return nil
}

func (s *memStore) GetInvitation(_ context.Context, id uuid.UUID) (*domain.BoardInvitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invitations[id]
	if !ok {
		return nil, repo.ErrInvitationNotFound
	}
	return &inv, nil
}

func (s *memStore) DeletePendingInvitation(_ context.Context, boardID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invitations[id]
	if !ok || inv.BoardID != boardID || inv.Status != domain.InvitationPending {
		return repo.ErrInvitationNotFound
	}
	delete(s.invitations, id)
	return nil
}

func (s *memStore) listActive(now time.Time, match func(domain.BoardInvitation) bool) []domain.BoardInvitation {
	out := []domain.BoardInvitation{}
	for _, inv := range s.invitations {
		if inv.IsActive(now) && match(inv) {
			out = append(out, inv)
		}
	}
	return out
}

func (s *memStore) ListActiveForBoard(_ context.Context, boardID uuid.UUID, now time.Time) ([]domain.BoardInvitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listActive(now, func(inv domain.BoardInvitation) bool { return inv.BoardID == boardID }), nil
}

func (s *memStore) ListActiveForEmail(_ context.Context, email string, now time.Time) ([]domain.BoardInvitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = domain.NormalizeEmail(email)
	return s.listActive(now, func(inv domain.BoardInvitation) bool { return inv.Email == email }), nil
}

func (s *memStore) answerLocked(id uuid.UUID, email string, status domain.InvitationStatus, now time.Time) (*domain.BoardInvitation, error) {
	inv, ok := s.invitations[id]
	if !ok || inv.Email != domain.NormalizeEmail(email) || !inv.IsActive(now) {
		return nil, repo.ErrInvitationNotFound
	}
	inv.Status = status
	at := now
	if status == domain.InvitationAccepted {
		inv.AcceptedAt = &at
	} else {
		inv.DeclinedAt = &at
	}
	s.invitations[id] = inv
	return &inv, nil
}

func (s *memStore) AcceptInvitation(_ context.Context, id uuid.UUID, email string, userID uuid.UUID, now time.Time) (*domain.BoardInvitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, err := s.answerLocked(id, email, domain.InvitationAccepted, now)
	if err != nil {
		return nil, err
	}
	invitedBy := inv.InvitedBy
	s.upsertLocked(domain.BoardMember{BoardID: inv.BoardID, UserID: userID, Role: inv.Role, AddedBy: &invitedBy})
	return inv, nil
}

func (s *memStore) DeclineInvitation(_ context.Context, id uuid.UUID, email string, now time.Time) (*domain.BoardInvitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answerLocked(id, email, domain.InvitationDeclined, now)
}

// UserStore

func (s *memStore) GetUser(_ context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repo.ErrUserNotFound
	}
	return &u, nil
}

func (s *memStore) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if domain.NormalizeEmail(u.Email) == domain.NormalizeEmail(email) {
			return &u, nil
		}
	}
	return nil, repo.ErrUserNotFound
}

// AuditLogger

func (s *memStore) LogAction(_ context.Context, e repo.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAudit != nil {
		return s.failAudit
	}
	s.audit = append(s.audit, e)
	return nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []uuid.UUID
	err  error
}

func (n *recordingNotifier) InvitationCreated(_ context.Context, _ *domain.Board, inv *domain.BoardInvitation) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, inv.ID)
	return n.err
}

var errStoreDown = errors.New("store unavailable")
