package auth

import (
	"context"
	"net/http"
	"strings"

	"boardkit-api/internal/domain"
	"boardkit-api/internal/http/httperr"
	"boardkit-api/internal/observability/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// S2S callers act on behalf of a user named by these headers.
const (
	HeaderActorID    = "X-Actor-Id"
	HeaderActorEmail = "X-Actor-Email"
)

// S2STokenStore maps static service tokens to client names.
type S2STokenStore struct {
	tokens map[string]string
}

func NewS2STokenStore() *S2STokenStore {
	return &S2STokenStore{
		tokens: make(map[string]string),
	}
}

// RegisterToken ignores empty tokens so unset env vars never authenticate.
func (s *S2STokenStore) RegisterToken(token, clientName string) {
	if token != "" {
		s.tokens[token] = clientName
	}
}

func (s *S2STokenStore) ValidateToken(token string) (string, bool) {
	client, ok := s.tokens[token]
	return client, ok
}

// isJWTToken checks if a token looks like a JWT (starts with "eyJ" and has two dots)
func isJWTToken(token string) bool {
	return strings.HasPrefix(token, "eyJ") && strings.Count(token, ".") == 2
}

// actorFromHeaders reads the acting user of an S2S request. The id is
// required and must be a UUID; the email is optional.
func actorFromHeaders(r *http.Request) (uuid.UUID, string, error) {
	raw := strings.TrimSpace(r.Header.Get(HeaderActorID))
	if raw == "" {
		return uuid.Nil, "", NewAuthError(AuthFailureInvalidActor, HeaderActorID+" is required", nil)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, "", NewAuthError(AuthFailureInvalidActor, HeaderActorID+" must be a UUID", err)
	}
	return id, domain.NormalizeEmail(r.Header.Get(HeaderActorEmail)), nil
}

// AuthMiddleware accepts either a JWT or a registered S2S token.
func AuthMiddleware(resolver *KeyResolver, s2sStore *S2STokenStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := logger.GetLogger(ctx)

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logFailure(ctx, log, r, AuthFailureMissingAuthorization, "")
				httperr.Unauthorized401(w, ctx, httperr.ErrCodeMissingAuthorization, "missing authorization header")
				return
			}

			scheme, tokenString, found := strings.Cut(authHeader, " ")
			if !found || scheme != "Bearer" || tokenString == "" {
				logFailure(ctx, log, r, AuthFailureInvalidScheme, "")
				httperr.Unauthorized401(w, ctx, httperr.ErrCodeInvalidScheme, "invalid authorization scheme, expected Bearer")
				return
			}

			var authCtx *AuthContext
			if isJWTToken(tokenString) {
				authCtx = authenticateJWT(ctx, resolver, tokenString, log, w, r)
			} else {
				authCtx = authenticateS2S(ctx, s2sStore, tokenString, log, w, r)
			}
			if authCtx == nil {
				return
			}

			ctx = withAuthContext(ctx, authCtx)
			ctx = logger.SetUserIDInContext(ctx, authCtx.UserID.String())

			log.Info(ctx, "authenticated request",
				logger.Module("auth"),
				logger.Action("authenticate"),
				zap.String("auth_method", authCtx.AuthMethod),
				zap.String("issuer", authCtx.Issuer),
				zap.String("client", authCtx.Client),
			)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func logFailure(ctx context.Context, log *logger.Logger, r *http.Request, reason AuthFailureReason, method string, fields ...zap.Field) {
	base := []zap.Field{
		logger.Module("auth"),
		logger.Action("authenticate"),
		zap.String("auth_failure_reason", string(reason)),
		zap.String("remote_addr", r.RemoteAddr),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	}
	if method != "" {
		base = append(base, zap.String("auth_type", method))
	}
	log.Warn(ctx, "authentication failed", append(base, fields...)...)
}

func authenticateJWT(ctx context.Context, resolver *KeyResolver, tokenString string, log *logger.Logger, w http.ResponseWriter, r *http.Request) *AuthContext {
	claims, err := resolver.Resolve(ctx, tokenString)
	if err != nil {
		authErr, _ := IsAuthError(err)
		reason := AuthFailureUnknown
		if authErr != nil {
			reason = authErr.Reason
		}
		logFailure(ctx, log, r, reason, MethodJWT,
			zap.String("token_prefix", maskToken(tokenString)),
			zap.Error(err),
		)
		httperr.Unauthorized401(w, ctx, authErr.Code(), "invalid or expired token")
		return nil
	}

	return &AuthContext{
		UserID:     claims.UserID(),
		Email:      domain.NormalizeEmail(claims.Email),
		GlobalRole: claims.Role,
		AuthMethod: MethodJWT,
		Issuer:     claims.Issuer,
	}
}

func authenticateS2S(ctx context.Context, s2sStore *S2STokenStore, tokenString string, log *logger.Logger, w http.ResponseWriter, r *http.Request) *AuthContext {
	client, ok := s2sStore.ValidateToken(tokenString)
	if !ok {
		logFailure(ctx, log, r, AuthFailureInvalidSignature, MethodS2S,
			zap.String("token_prefix", maskToken(tokenString)),
		)
		httperr.Unauthorized401(w, ctx, httperr.ErrCodeInvalidSignature, "invalid S2S token")
		return nil
	}

	actorID, actorEmail, err := actorFromHeaders(r)
	if err != nil {
		logFailure(ctx, log, r, AuthFailureInvalidActor, MethodS2S,
			zap.String("client", client),
			zap.Error(err),
		)
		httperr.BadRequest400(w, ctx, httperr.ErrCodeInvalidParameter, "invalid "+HeaderActorID+" header")
		return nil
	}

	return &AuthContext{
		UserID:     actorID,
		Email:      actorEmail,
		GlobalRole: "service",
		AuthMethod: MethodS2S,
		Client:     client,
	}
}
