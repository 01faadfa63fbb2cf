package handler

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"boardkit-api/internal/domain"
	"boardkit-api/internal/http/httperr"
	"boardkit-api/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleInvitation(email string, role domain.Role) *domain.BoardInvitation {
	return &domain.BoardInvitation{
		ID:        uuid.New(),
		BoardID:   testBoardID,
		Email:     email,
		Role:      role,
		InvitedBy: testUserID,
		Status:    domain.InvitationPending,
		Token:     "secret-invitation-token-000000000",
		ExpiresAt: time.Now().Add(domain.InvitationTTL),
	}
}

func TestInvitationHandler_InviteMember(t *testing.T) {
	var gotEmail string
	invitations := &stubInvitations{
		invite: func(boardID, actorID uuid.UUID, email string, role domain.Role) (*domain.BoardInvitation, error) {
			gotEmail = email
			if email == "dup@example.com" {
				return nil, service.ErrInvitationConflict
			}
			return sampleInvitation(email, role), nil
		},
	}
	r := newTestRouter(nil, nil, NewInvitationHandler(invitations))
	path := "/v1/boards/" + testBoardID.String() + "/invitations"

	t.Run("normalizes email and hides token", func(t *testing.T) {
		w := do(t, r, http.MethodPost, path, `{"email":"  Bob@Example.COM ","role":"viewer"}`, jwtAuth(testUserID, ""))

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Equal(t, "bob@example.com", gotEmail)
		assert.NotContains(t, w.Body.String(), "secret-invitation-token")
		assert.NotContains(t, w.Body.String(), `"token"`)
	})

	t.Run("duplicate pending invitation", func(t *testing.T) {
		w := do(t, r, http.MethodPost, path, `{"email":"dup@example.com","role":"viewer"}`, jwtAuth(testUserID, ""))

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, httperr.ErrCodeConflict, decodeError(t, w).Error.Code)
	})

	t.Run("invalid email", func(t *testing.T) {
		w := do(t, r, http.MethodPost, path, `{"email":"not-an-email","role":"viewer"}`, jwtAuth(testUserID, ""))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decodeError(t, w).Error.Fields, "email")
	})
}

func TestInvitationHandler_CancelInvitation(t *testing.T) {
	known := uuid.New()
	invitations := &stubInvitations{
		cancel: func(boardID, actorID, invitationID uuid.UUID) error {
			if invitationID != known {
				return service.ErrInvitationNotFound
			}
			return nil
		},
	}
	r := newTestRouter(nil, nil, NewInvitationHandler(invitations))
	base := "/v1/boards/" + testBoardID.String() + "/invitations/"

	w := do(t, r, http.MethodDelete, base+known.String(), "", jwtAuth(testUserID, ""))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, r, http.MethodDelete, base+uuid.NewString(), "", jwtAuth(testUserID, ""))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInvitationHandler_ListMyInvitations(t *testing.T) {
	var gotCaller domain.Caller
	invitations := &stubInvitations{
		listMine: func(caller domain.Caller) ([]domain.BoardInvitation, error) {
			gotCaller = caller
			return []domain.BoardInvitation{*sampleInvitation("bob@example.com", domain.RoleEditor)}, nil
		},
	}
	r := newTestRouter(nil, nil, NewInvitationHandler(invitations))

	w := do(t, r, http.MethodGet, "/v1/invitations", "", jwtAuth(testUserID, "bob@example.com"))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, testUserID, gotCaller.UserID)
	var got struct {
		Data []domain.BoardInvitation `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got.Data, 1)
	assert.Equal(t, domain.RoleEditor, got.Data[0].Role)
}

func TestInvitationHandler_ListBoardInvitations(t *testing.T) {
	invitations := &stubInvitations{
		listBoard: func(boardID, actorID uuid.UUID) ([]domain.BoardInvitation, error) {
			return nil, &service.PermissionError{Permission: domain.PermManageMembers, Role: domain.RoleEditor}
		},
	}
	r := newTestRouter(nil, nil, NewInvitationHandler(invitations))

	w := do(t, r, http.MethodGet, "/v1/boards/"+testBoardID.String()+"/invitations", "", jwtAuth(testUserID, ""))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, httperr.ErrCodeMissingPermission, decodeError(t, w).Error.Code)
}

func TestInvitationHandler_RespondInvitation(t *testing.T) {
	invitationID := uuid.New()
	var gotAction domain.InvitationAction
	invitations := &stubInvitations{
		respond: func(id uuid.UUID, caller domain.Caller, action domain.InvitationAction) (*domain.RespondInvitationResult, error) {
			if id != invitationID {
				return nil, service.ErrInvitationNotFound
			}
			gotAction = action
			if action == domain.InvitationDecline {
				return &domain.RespondInvitationResult{Status: domain.InvitationDeclined}, nil
			}
			boardID := testBoardID
			return &domain.RespondInvitationResult{Status: domain.InvitationAccepted, BoardID: &boardID}, nil
		},
	}
	r := newTestRouter(nil, nil, NewInvitationHandler(invitations))
	path := "/v1/invitations/" + invitationID.String() + "/respond"

	t.Run("accept returns board id", func(t *testing.T) {
		w := do(t, r, http.MethodPost, path, `{"action":"accept"}`, jwtAuth(testUserID, ""))

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, domain.InvitationAccept, gotAction)
		assert.JSONEq(t, `{"status":"accepted","boardId":"`+testBoardID.String()+`"}`, w.Body.String())
	})

	t.Run("decline", func(t *testing.T) {
		w := do(t, r, http.MethodPost, path, `{"action":"decline"}`, jwtAuth(testUserID, ""))

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"declined"}`, w.Body.String())
	})

	t.Run("unknown action", func(t *testing.T) {
		w := do(t, r, http.MethodPost, path, `{"action":"maybe"}`, jwtAuth(testUserID, ""))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decodeError(t, w).Error.Fields, "action")
	})

	t.Run("unknown invitation", func(t *testing.T) {
		w := do(t, r, http.MethodPost, "/v1/invitations/"+uuid.NewString()+"/respond", `{"action":"accept"}`, jwtAuth(testUserID, ""))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
