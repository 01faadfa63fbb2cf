package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"boardkit-api/internal/auth"
	"boardkit-api/internal/domain"
	"boardkit-api/internal/http/middleware"
	"boardkit-api/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var (
	testUserID  = uuid.MustParse("7c9e6679-7425-40de-944b-e07fc1f90ae7")
	testBoardID = uuid.MustParse("6f1c8a52-1d7e-4a50-9d57-1f2b3c4d5e6f")
)

type stubBoards struct {
	create func(actorID uuid.UUID, req *domain.CreateBoardRequest) (*domain.Board, error)
	get    func(boardID, actorID uuid.UUID) (*domain.BoardWithAccess, error)
	list   func(actorID uuid.UUID) ([]domain.Board, error)
	update func(boardID, actorID uuid.UUID, req *domain.UpdateBoardRequest) (*domain.Board, error)
	delete func(boardID, actorID uuid.UUID) error
}

func (s *stubBoards) CreateBoard(_ context.Context, actorID uuid.UUID, req *domain.CreateBoardRequest) (*domain.Board, error) {
	return s.create(actorID, req)
}

func (s *stubBoards) GetBoard(_ context.Context, boardID, actorID uuid.UUID) (*domain.BoardWithAccess, error) {
	return s.get(boardID, actorID)
}

func (s *stubBoards) ListBoards(_ context.Context, actorID uuid.UUID) ([]domain.Board, error) {
	return s.list(actorID)
}

func (s *stubBoards) UpdateBoard(_ context.Context, boardID, actorID uuid.UUID, req *domain.UpdateBoardRequest) (*domain.Board, error) {
	return s.update(boardID, actorID, req)
}

func (s *stubBoards) DeleteBoard(_ context.Context, boardID, actorID uuid.UUID) error {
	return s.delete(boardID, actorID)
}

type stubAccess func(boardID, userID uuid.UUID) (domain.AccessResult, error)

func (f stubAccess) CheckAccess(_ context.Context, boardID, userID uuid.UUID) (domain.AccessResult, error) {
	return f(boardID, userID)
}

type stubMembers struct {
	list     func(boardID, actorID uuid.UUID) ([]domain.MemberWithUser, error)
	add      func(boardID, actorID, userID uuid.UUID, role domain.Role) (*domain.BoardMember, error)
	update   func(boardID, actorID, memberID uuid.UUID, role domain.Role) (*domain.BoardMember, error)
	remove   func(boardID, actorID, memberID uuid.UUID) error
	transfer func(boardID, actorID, newOwnerID uuid.UUID) (*service.TransferResult, error)
}

func (s *stubMembers) ListMembers(_ context.Context, boardID, actorID uuid.UUID) ([]domain.MemberWithUser, error) {
	return s.list(boardID, actorID)
}

func (s *stubMembers) AddMember(_ context.Context, boardID, actorID, userID uuid.UUID, role domain.Role) (*domain.BoardMember, error) {
	return s.add(boardID, actorID, userID, role)
}

func (s *stubMembers) UpdateMemberRole(_ context.Context, boardID, actorID, memberID uuid.UUID, role domain.Role) (*domain.BoardMember, error) {
	return s.update(boardID, actorID, memberID, role)
}

func (s *stubMembers) RemoveMember(_ context.Context, boardID, actorID, memberID uuid.UUID) error {
	return s.remove(boardID, actorID, memberID)
}

func (s *stubMembers) TransferOwnership(_ context.Context, boardID, actorID, newOwnerID uuid.UUID) (*service.TransferResult, error) {
	return s.transfer(boardID, actorID, newOwnerID)
}

type stubInvitations struct {
	invite    func(boardID, actorID uuid.UUID, email string, role domain.Role) (*domain.BoardInvitation, error)
	cancel    func(boardID, actorID, invitationID uuid.UUID) error
	respond   func(invitationID uuid.UUID, caller domain.Caller, action domain.InvitationAction) (*domain.RespondInvitationResult, error)
	listBoard func(boardID, actorID uuid.UUID) ([]domain.BoardInvitation, error)
	listMine  func(caller domain.Caller) ([]domain.BoardInvitation, error)
}

func (s *stubInvitations) InviteMember(_ context.Context, boardID, actorID uuid.UUID, email string, role domain.Role) (*domain.BoardInvitation, error) {
	return s.invite(boardID, actorID, email, role)
}

func (s *stubInvitations) CancelInvitation(_ context.Context, boardID, actorID, invitationID uuid.UUID) error {
	return s.cancel(boardID, actorID, invitationID)
}

func (s *stubInvitations) RespondInvitation(_ context.Context, invitationID uuid.UUID, caller domain.Caller, action domain.InvitationAction) (*domain.RespondInvitationResult, error) {
	return s.respond(invitationID, caller, action)
}

func (s *stubInvitations) ListBoardInvitations(_ context.Context, boardID, actorID uuid.UUID) ([]domain.BoardInvitation, error) {
	return s.listBoard(boardID, actorID)
}

func (s *stubInvitations) ListMyInvitations(_ context.Context, caller domain.Caller) ([]domain.BoardInvitation, error) {
	return s.listMine(caller)
}

// newTestRouter mounts the handlers the way the server does, minus auth,
// rate limiting and idempotency.
func newTestRouter(boards *BoardHandler, members *MemberHandler, invitations *InvitationHandler) chi.Router {
	r := chi.NewRouter()
	r.Route("/v1/boards", func(r chi.Router) {
		if boards != nil {
			r.Post("/", boards.CreateBoard)
			r.Get("/", boards.ListBoards)
		}
		r.Route("/{boardId}", func(r chi.Router) {
			r.Use(middleware.BoardMiddleware)
			if boards != nil {
				r.Get("/", boards.GetBoard)
				r.Patch("/", boards.UpdateBoard)
				r.Delete("/", boards.DeleteBoard)
				r.Get("/access", boards.GetAccess)
			}
			if members != nil {
				r.Post("/transfer", members.TransferOwnership)
				r.Get("/members", members.ListMembers)
				r.Post("/members", members.AddMember)
				r.Patch("/members/{memberId}", members.UpdateMemberRole)
				r.Delete("/members/{memberId}", members.RemoveMember)
			}
			if invitations != nil {
				r.Get("/invitations", invitations.ListBoardInvitations)
				r.Post("/invitations", invitations.InviteMember)
				r.Delete("/invitations/{invitationId}", invitations.CancelInvitation)
			}
		})
	})
	if invitations != nil {
		r.Get("/v1/invitations", invitations.ListMyInvitations)
		r.Post("/v1/invitations/{invitationId}/respond", invitations.RespondInvitation)
	}
	return r
}

func jwtAuth(userID uuid.UUID, email string) *auth.AuthContext {
	return &auth.AuthContext{
		UserID:     userID,
		Email:      email,
		GlobalRole: "user",
		AuthMethod: auth.MethodJWT,
		Issuer:     "boardkit-web",
	}
}

// do sends a request through h. A nil authCtx leaves the request anonymous.
func do(t *testing.T, h http.Handler, method, path, body string, authCtx *auth.AuthContext) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authCtx != nil {
		req = req.WithContext(auth.SetAuthContextForTesting(req.Context(), authCtx))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

type errorBody struct {
	OK    bool `json:"ok"`
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}
