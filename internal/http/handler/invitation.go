package handler

import (
	"context"
	"net/http"

	"boardkit-api/internal/domain"

	"github.com/google/uuid"
)

type InvitationService interface {
	InviteMember(ctx context.Context, boardID, actorID uuid.UUID, email string, role domain.Role) (*domain.BoardInvitation, error)
	CancelInvitation(ctx context.Context, boardID, actorID, invitationID uuid.UUID) error
	RespondInvitation(ctx context.Context, invitationID uuid.UUID, caller domain.Caller, action domain.InvitationAction) (*domain.RespondInvitationResult, error)
	ListBoardInvitations(ctx context.Context, boardID, actorID uuid.UUID) ([]domain.BoardInvitation, error)
	ListMyInvitations(ctx context.Context, caller domain.Caller) ([]domain.BoardInvitation, error)
}

type InvitationHandler struct {
	invitations InvitationService
}

func NewInvitationHandler(invitations InvitationService) *InvitationHandler {
	return &InvitationHandler{invitations: invitations}
}

// ListBoardInvitations handles GET /v1/boards/{boardId}/invitations
func (h *InvitationHandler) ListBoardInvitations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	boardID, ok := boardFrom(w, r)
	if !ok {
		return
	}

	invitations, err := h.invitations.ListBoardInvitations(ctx, boardID, caller.UserID)
	if err != nil {
		handleServiceError(w, ctx, err)
		return
	}
	writeInvitations(w, invitations)
}

// InviteMember handles POST /v1/boards/{boardId}/invitations
func (h *InvitationHandler) InviteMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	boardID, ok := boardFrom(w, r)
	if !ok {
		return
	}

	var req domain.InviteMemberRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	inv, err := h.invitations.InviteMember(ctx, boardID, caller.UserID, req.Email, req.Role)
	if err != nil {
		handleServiceError(w, ctx, err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

// CancelInvitation handles DELETE /v1/boards/{boardId}/invitations/{invitationId}
func (h *InvitationHandler) CancelInvitation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	boardID, ok := boardFrom(w, r)
	if !ok {
		return
	}
	invitationID, ok := uuidParam(w, r, "invitationId")
	if !ok {
		return
	}

	if err := h.invitations.CancelInvitation(ctx, boardID, caller.UserID, invitationID); err != nil {
		handleServiceError(w, ctx, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListMyInvitations handles GET /v1/invitations
func (h *InvitationHandler) ListMyInvitations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	invitations, err := h.invitations.ListMyInvitations(ctx, caller)
	if err != nil {
		handleServiceError(w, ctx, err)
		return
	}
	writeInvitations(w, invitations)
}

// RespondInvitation handles POST /v1/invitations/{invitationId}/respond
func (h *InvitationHandler) RespondInvitation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	invitationID, ok := uuidParam(w, r, "invitationId")
	if !ok {
		return
	}

	var req domain.RespondInvitationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.invitations.RespondInvitation(ctx, invitationID, caller, req.Action)
	if err != nil {
		handleServiceError(w, ctx, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writeInvitations(w http.ResponseWriter, invitations []domain.BoardInvitation) {
	if invitations == nil {
		invitations = []domain.BoardInvitation{}
	}
	writeJSON(w, http.StatusOK, listResponse{Data: invitations})
}
