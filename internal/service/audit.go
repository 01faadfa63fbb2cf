package service

import (
	"context"

	"boardkit-api/internal/observability/logger"
	"boardkit-api/internal/repo"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	auditBoardCreated        = "board.created"
	auditBoardUpdated        = "board.updated"
	auditBoardDeleted        = "board.deleted"
	auditMemberAdded         = "member.added"
	auditMemberRoleChanged   = "member.role_changed"
	auditMemberRemoved       = "member.removed"
	auditOwnershipTransfer   = "board.ownership_transferred"
	auditInvitationCreated   = "invitation.created"
	auditInvitationCancelled = "invitation.cancelled"
	auditInvitationAccepted  = "invitation.accepted"
	auditInvitationDeclined  = "invitation.declined"
)

// recordAudit appends an audit entry. Failures are logged and swallowed so
// the mutation that already committed is still reported as successful.
func recordAudit(ctx context.Context, log *logger.Logger, audit AuditLogger, e repo.AuditEntry) {
	if audit == nil {
		return
	}
	if err := audit.LogAction(ctx, e); err != nil {
		log.Error(ctx, "failed to write audit log",
			logger.Module("audit"),
			logger.Action(e.Action),
			zap.String("board_id", e.BoardID.String()),
			zap.Error(err),
		)
	}
}

func idString(id uuid.UUID) *string {
	s := id.String()
	return &s
}
