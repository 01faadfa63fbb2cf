package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"boardkit-api/internal/domain"
	"boardkit-api/internal/observability/logger"
	"boardkit-api/internal/repo"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
)

const invitationTokenLength = 32

type InvitationService struct {
	access      *Checker
	invitations InvitationStore
	users       UserStore
	audit       AuditLogger
	notifier    InvitationNotifier
	log         *logger.Logger
	now         func() time.Time
	newToken    func() (string, error)
}

type InvitationOption func(*InvitationService)

// WithClock overrides time.Now, mainly for expiry tests.
func WithClock(now func() time.Time) InvitationOption {
	return func(s *InvitationService) {
		s.now = now
	}
}

// WithNotifier sends invitation.created events after each invite.
func WithNotifier(n InvitationNotifier) InvitationOption {
	return func(s *InvitationService) {
		s.notifier = n
	}
}

func NewInvitationService(access *Checker, invitations InvitationStore, users UserStore, audit AuditLogger, log *logger.Logger, opts ...InvitationOption) *InvitationService {
	s := &InvitationService{
		access:      access,
		invitations: invitations,
		users:       users,
		audit:       audit,
		log:         log,
		now:         time.Now,
		newToken: func() (string, error) {
			return gonanoid.New(invitationTokenLength)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InviteMember creates a pending invitation for email valid for
// domain.InvitationTTL. Only one active invitation per (board, email) is
// allowed.
func (s *InvitationService) InviteMember(ctx context.Context, boardID, actorID uuid.UUID, email string, role domain.Role) (*domain.BoardInvitation, error) {
	if !role.IsAssignable() {
		return nil, ErrInvalidRole
	}
	email = domain.NormalizeEmail(email)

	board, access, err := s.access.require(ctx, boardID, actorID, domain.PermManageMembers)
	if err != nil {
		return nil, err
	}
	if role == domain.RoleAdmin && !access.Role.IsPrivileged() {
		return nil, ErrAdminRequired
	}

	invitee, err := s.users.GetUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, repo.ErrUserNotFound) {
		return nil, fmt.Errorf("load invitee: %w", err)
	}
	if invitee != nil && invitee.ID == board.OwnerID {
		return nil, ErrCannotInviteOwner
	}

	token, err := s.newToken()
	if err != nil {
		return nil, fmt.Errorf("generate invitation token: %w", err)
	}

	now := s.now().UTC()
	inv := &domain.BoardInvitation{
		ID:        uuid.New(),
		BoardID:   boardID,
		Email:     email,
		Role:      role,
		InvitedBy: actorID,
		Status:    domain.InvitationPending,
		Token:     token,
		ExpiresAt: now.Add(domain.InvitationTTL),
	}
	if err := s.invitations.CreateInvitation(ctx, inv, now); err != nil {
		switch {
		case errors.Is(err, repo.ErrInvitationConflict):
			return nil, ErrInvitationConflict
		case errors.Is(err, repo.ErrBoardNotFound):
			return nil, ErrBoardNotFound
		default:
			return nil, fmt.Errorf("create invitation: %w", err)
		}
	}

	s.log.Info(ctx, "invitation created",
		logger.Module("invitation"),
		logger.Action("invite_member"),
		zap.String("invitation_id", inv.ID.String()),
		zap.String("role", string(role)),
	)
	recordAudit(ctx, s.log, s.audit, repo.AuditEntry{
		BoardID:      boardID,
		ActorID:      actorID,
		Action:       auditInvitationCreated,
		ResourceType: "board_invitation",
		ResourceID:   idString(inv.ID),
		Metadata:     map[string]interface{}{"role": string(role)},
	})

	if s.notifier != nil {
		if err := s.notifier.InvitationCreated(ctx, board, inv); err != nil {
			s.log.Warn(ctx, "invitation notification failed",
				logger.Module("invitation"),
				logger.Action("notify"),
				zap.String("invitation_id", inv.ID.String()),
				zap.Error(err),
			)
		}
	}
	return inv, nil
}

// CancelInvitation deletes a pending invitation of the board.
func (s *InvitationService) CancelInvitation(ctx context.Context, boardID, actorID, invitationID uuid.UUID) error {
	if _, _, err := s.access.require(ctx, boardID, actorID, domain.PermManageMembers); err != nil {
		return err
	}

	inv, err := s.invitations.GetInvitation(ctx, invitationID)
	if err != nil {
		if errors.Is(err, repo.ErrInvitationNotFound) {
			return ErrInvitationNotFound
		}
		return fmt.Errorf("load invitation: %w", err)
	}
	if inv.BoardID != boardID || inv.Status != domain.InvitationPending {
		return ErrInvitationNotFound
	}

	// the delete re-checks board and status in case the invitation was answered meanwhile
	if err := s.invitations.DeletePendingInvitation(ctx, boardID, invitationID); err != nil {
		if errors.Is(err, repo.ErrInvitationNotFound) {
			return ErrInvitationNotFound
		}
		return fmt.Errorf("cancel invitation: %w", err)
	}

	recordAudit(ctx, s.log, s.audit, repo.AuditEntry{
		BoardID:      boardID,
		ActorID:      actorID,
		Action:       auditInvitationCancelled,
		ResourceType: "board_invitation",
		ResourceID:   idString(invitationID),
		Metadata:     map[string]interface{}{"role": string(inv.Role)},
	})
	return nil
}

// RespondInvitation accepts or declines an invitation addressed to the
// caller. Invitations of other users, expired ones and answered ones are
// all reported as ErrInvitationNotFound.
func (s *InvitationService) RespondInvitation(ctx context.Context, invitationID uuid.UUID, caller domain.Caller, action domain.InvitationAction) (*domain.RespondInvitationResult, error) {
	if action != domain.InvitationAccept && action != domain.InvitationDecline {
		return nil, ErrInvalidAction
	}

	email, err := s.callerEmail(ctx, caller)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()

	var inv *domain.BoardInvitation
	if action == domain.InvitationAccept {
		inv, err = s.invitations.AcceptInvitation(ctx, invitationID, email, caller.UserID, now)
	} else {
		inv, err = s.invitations.DeclineInvitation(ctx, invitationID, email, now)
	}
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrInvitationNotFound):
			return nil, ErrInvitationNotFound
		case errors.Is(err, repo.ErrUserNotFound):
			return nil, ErrUserNotFound
		default:
			return nil, fmt.Errorf("respond to invitation: %w", err)
		}
	}

	auditAction := auditInvitationDeclined
	if action == domain.InvitationAccept {
		auditAction = auditInvitationAccepted
	}
	s.log.Info(ctx, "invitation answered",
		logger.Module("invitation"),
		logger.Action("respond_invitation"),
		zap.String("invitation_id", inv.ID.String()),
		zap.String("status", string(inv.Status)),
	)
	recordAudit(ctx, s.log, s.audit, repo.AuditEntry{
		BoardID:      inv.BoardID,
		ActorID:      caller.UserID,
		Action:       auditAction,
		ResourceType: "board_invitation",
		ResourceID:   idString(inv.ID),
		Metadata:     map[string]interface{}{"role": string(inv.Role)},
	})

	result := &domain.RespondInvitationResult{Status: inv.Status}
	if action == domain.InvitationAccept {
		boardID := inv.BoardID
		result.BoardID = &boardID
	}
	return result, nil
}

// ListBoardInvitations returns the board's active invitations.
func (s *InvitationService) ListBoardInvitations(ctx context.Context, boardID, actorID uuid.UUID) ([]domain.BoardInvitation, error) {
	if _, _, err := s.access.require(ctx, boardID, actorID, domain.PermManageMembers); err != nil {
		return nil, err
	}
	invs, err := s.invitations.ListActiveForBoard(ctx, boardID, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("list board invitations: %w", err)
	}
	return invs, nil
}

// ListMyInvitations returns active invitations addressed to the caller.
func (s *InvitationService) ListMyInvitations(ctx context.Context, caller domain.Caller) ([]domain.BoardInvitation, error) {
	email, err := s.callerEmail(ctx, caller)
	if err != nil {
		return nil, err
	}
	invs, err := s.invitations.ListActiveForEmail(ctx, email, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	return invs, nil
}

// callerEmail reads the caller's address from the user store, never from
// the token claim.
func (s *InvitationService) callerEmail(ctx context.Context, caller domain.Caller) (string, error) {
	if caller.UserID == uuid.Nil {
		return "", ErrUserNotFound
	}
	user, err := s.users.GetUser(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("load caller: %w", err)
	}
	return domain.NormalizeEmail(user.Email), nil
}
