package handler

import (
	"context"
	"net/http"

	"boardkit-api/internal/domain"
	"boardkit-api/internal/service"

	"github.com/google/uuid"
)

type MembershipService interface {
	ListMembers(ctx context.Context, boardID, actorID uuid.UUID) ([]domain.MemberWithUser, error)
	AddMember(ctx context.Context, boardID, actorID, userID uuid.UUID, role domain.Role) (*domain.BoardMember, error)
	UpdateMemberRole(ctx context.Context, boardID, actorID, memberID uuid.UUID, newRole domain.Role) (*domain.BoardMember, error)
	RemoveMember(ctx context.Context, boardID, actorID, memberID uuid.UUID) error
	TransferOwnership(ctx context.Context, boardID, actorID, newOwnerID uuid.UUID) (*service.TransferResult, error)
}

type MemberHandler struct {
	members MembershipService
}

func NewMemberHandler(members MembershipService) *MemberHandler {
	return &MemberHandler{members: members}
}

// ListMembers handles GET /v1/boards/{boardId}/members
func (h *MemberHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	boardID, ok := boardFrom(w, r)
	if !ok {
		return
	}

	members, err := h.members.ListMembers(ctx, boardID, caller.UserID)
	if err != nil {
		handleServiceError(w, ctx, err)
		return
	}
	if members == nil {
		members = []domain.MemberWithUser{}
	}
	writeJSON(w, http.StatusOK, listResponse{Data: members})
}

// AddMember handles POST /v1/boards/{boardId}/members
func (h *MemberHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	boardID, ok := boardFrom(w, r)
	if !ok {
		return
	}

	var req domain.AddMemberRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	member, err := h.members.AddMember(ctx, boardID, caller.UserID, req.UserID, req.Role)
	if err != nil {
		handleServiceError(w, ctx, err)
		return
	}
	writeJSON(w, http.StatusCreated, member)
}

// UpdateMemberRole handles PATCH /v1/boards/{boardId}/members/{memberId}
func (h *MemberHandler) UpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	boardID, ok := boardFrom(w, r)
	if !ok {
		return
	}
	memberID, ok := uuidParam(w, r, "memberId")
	if !ok {
		return
	}

	var req domain.UpdateMemberRoleRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	member, err := h.members.UpdateMemberRole(ctx, boardID, caller.UserID, memberID, req.Role)
	if err != nil {
		handleServiceError(w, ctx, err)
		return
	}
	writeJSON(w, http.StatusOK, member)
}

// RemoveMember handles DELETE /v1/boards/{boardId}/members/{memberId}
func (h *MemberHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	boardID, ok := boardFrom(w, r)
	if !ok {
		return
	}
	memberID, ok := uuidParam(w, r, "memberId")
	if !ok {
		return
	}

	if err := h.members.RemoveMember(ctx, boardID, caller.UserID, memberID); err != nil {
		handleServiceError(w, ctx, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TransferOwnership handles POST /v1/boards/{boardId}/transfer
func (h *MemberHandler) TransferOwnership(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	boardID, ok := boardFrom(w, r)
	if !ok {
		return
	}

	var req domain.TransferOwnershipRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.members.TransferOwnership(ctx, boardID, caller.UserID, req.NewOwnerID)
	if err != nil {
		handleServiceError(w, ctx, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
