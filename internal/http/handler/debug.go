package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"boardkit-api/internal/auth"
	"boardkit-api/internal/domain"
	"boardkit-api/internal/http/httperr"
	"boardkit-api/internal/observability/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// DBPool is the slice of pgxpool used by the debug endpoints.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// DebugHandler serves development-only introspection endpoints. Outside dev
// every endpoint answers 404.
type DebugHandler struct {
	enabled bool
	pool    DBPool
	access  AccessChecker
}

func NewDebugHandler(enabled bool, pool DBPool, access AccessChecker) *DebugHandler {
	return &DebugHandler{enabled: enabled, pool: pool, access: access}
}

type DebugAuthResponse struct {
	OK   bool           `json:"ok"`
	Data *DebugAuthData `json:"data"`
}

type DebugAuthData struct {
	AuthMethod string  `json:"authMethod"`
	UserID     string  `json:"userId"`
	GlobalRole string  `json:"globalRole"`
	Issuer     *string `json:"tokenIssuer,omitempty"`
	Client     *string `json:"client,omitempty"`
	HasEmail   bool    `json:"hasEmail"`

	BoardID *string              `json:"boardId,omitempty"`
	Access  *domain.AccessResult `json:"access,omitempty"`
	Source  *string              `json:"accessSource,omitempty"`
}

// GetAuthDebug handles GET /debug/auth
func (h *DebugHandler) GetAuthDebug(w http.ResponseWriter, r *http.Request) {
	data, ok := h.authData(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, DebugAuthResponse{OK: true, Data: data})
}

// GetBoardAccessDebug handles GET /debug/auth/boards/{boardId}. It adds the
// caller's access decision, including where the role came from.
func (h *DebugHandler) GetBoardAccessDebug(w http.ResponseWriter, r *http.Request) {
	data, ok := h.authData(w, r)
	if !ok {
		return
	}
	boardID, ok := boardFrom(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	caller, _ := auth.CallerFromContext(ctx)
	access, err := h.access.CheckAccess(ctx, boardID, caller.UserID)
	if err != nil {
		handleServiceError(w, ctx, err)
		return
	}

	id := boardID.String()
	source := string(access.Source)
	data.BoardID = &id
	data.Access = &access
	data.Source = &source
	writeJSON(w, http.StatusOK, DebugAuthResponse{OK: true, Data: data})
}

func (h *DebugHandler) authData(w http.ResponseWriter, r *http.Request) (*DebugAuthData, bool) {
	ctx := r.Context()
	if !h.blockOutsideDev(w, r) {
		return nil, false
	}

	authCtx, ok := auth.GetAuthContext(ctx)
	if !ok {
		httperr.Unauthorized401(w, ctx, httperr.ErrCodeInvalidToken, "authentication required")
		return nil, false
	}

	logger.GetLogger(ctx).Info(ctx, "debug auth endpoint accessed",
		logger.Module("debug"),
		zap.String("auth_method", authCtx.AuthMethod),
	)

	data := &DebugAuthData{
		AuthMethod: authCtx.AuthMethod,
		UserID:     authCtx.UserID.String(),
		GlobalRole: authCtx.GlobalRole,
		HasEmail:   authCtx.Email != "",
	}
	switch authCtx.AuthMethod {
	case auth.MethodJWT:
		if authCtx.Issuer != "" {
			data.Issuer = &authCtx.Issuer
		}
	case auth.MethodS2S:
		if authCtx.Client != "" {
			data.Client = &authCtx.Client
		}
	}
	return data, true
}

// PingDB handles GET /debug/db/ping
func (h *DebugHandler) PingDB(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.blockOutsideDev(w, r) {
		return
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var result int
	if err := h.pool.QueryRow(pingCtx, "SELECT 1").Scan(&result); err != nil {
		fields := []zap.Field{logger.Module("debug"), zap.Error(err)}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			fields = append(fields, zap.String("pgcode", pgErr.Code))
		}
		logger.GetLogger(ctx).Error(ctx, "db_ping_failed", fields...)
		httperr.InternalError500(w, ctx, "database ping failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *DebugHandler) blockOutsideDev(w http.ResponseWriter, r *http.Request) bool {
	if h.enabled {
		return true
	}
	logger.GetLogger(r.Context()).Warn(r.Context(), "debug endpoint accessed outside dev",
		logger.Module("debug"),
	)
	http.NotFound(w, r)
	return false
}
