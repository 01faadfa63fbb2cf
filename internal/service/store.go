package service

import (
	"context"
	"time"

	"boardkit-api/internal/domain"
	"boardkit-api/internal/repo"

	"github.com/google/uuid"
)

// The stores are implemented by the Postgres repositories in internal/repo.
// They return the repo sentinel errors for missing rows and conflicts.

type BoardStore interface {
	GetBoard(ctx context.Context, id uuid.UUID) (*domain.Board, error)
	CreateBoard(ctx context.Context, b *domain.Board) error
	UpdateBoard(ctx context.Context, b *domain.Board) (*domain.Board, error)
	DeleteBoard(ctx context.Context, id uuid.UUID) error
	ListBoardsForUser(ctx context.Context, userID uuid.UUID) ([]domain.Board, error)
	// TransferOwnership must apply the owner pointer and both membership
	// rows atomically.
	TransferOwnership(ctx context.Context, boardID, from, to uuid.UUID) error
}

type MemberStore interface {
	GetMember(ctx context.Context, boardID, userID uuid.UUID) (*domain.BoardMember, error)
	UpsertMember(ctx context.Context, m *domain.BoardMember) (*domain.BoardMember, error)
	EnsureOwner(ctx context.Context, boardID, ownerID uuid.UUID) (*domain.BoardMember, error)
	UpdateMemberRole(ctx context.Context, boardID, userID uuid.UUID, role domain.Role) (*domain.BoardMember, error)
	DeleteMember(ctx context.Context, boardID, userID uuid.UUID) error
	ListMembers(ctx context.Context, boardID uuid.UUID) ([]domain.MemberWithUser, error)
}

type InvitationStore interface {
	CreateInvitation(ctx context.Context, inv *domain.BoardInvitation, now time.Time) error
	GetInvitation(ctx context.Context, id uuid.UUID) (*domain.BoardInvitation, error)
	DeletePendingInvitation(ctx context.Context, boardID, id uuid.UUID) error
	ListActiveForBoard(ctx context.Context, boardID uuid.UUID, now time.Time) ([]domain.BoardInvitation, error)
	ListActiveForEmail(ctx context.Context, email string, now time.Time) ([]domain.BoardInvitation, error)
	// AcceptInvitation must mark the invitation accepted and upsert the
	// membership atomically.
	AcceptInvitation(ctx context.Context, id uuid.UUID, email string, userID uuid.UUID, now time.Time) (*domain.BoardInvitation, error)
	DeclineInvitation(ctx context.Context, id uuid.UUID, email string, now time.Time) (*domain.BoardInvitation, error)
}

type UserStore interface {
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
}

type AuditLogger interface {
	LogAction(ctx context.Context, e repo.AuditEntry) error
}

// InvitationNotifier delivers invitation events to an external channel.
type InvitationNotifier interface {
	InvitationCreated(ctx context.Context, board *domain.Board, inv *domain.BoardInvitation) error
}

var (
	_ BoardStore      = (*repo.BoardRepository)(nil)
	_ MemberStore     = (*repo.MemberRepository)(nil)
	_ InvitationStore = (*repo.InvitationRepository)(nil)
	_ UserStore       = (*repo.UserRepository)(nil)
	_ AuditLogger     = (*repo.AuditRepo)(nil)
)
