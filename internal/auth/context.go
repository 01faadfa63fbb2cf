package auth

import (
	"context"

	"boardkit-api/internal/domain"

	"github.com/google/uuid"
)

type contextKey string

const authContextKey contextKey = "auth"

// Authentication methods.
const (
	MethodJWT = "jwt"
	MethodS2S = "s2s"
)

// AuthContext is the authenticated principal of a request.
type AuthContext struct {
	UserID     uuid.UUID
	Email      string
	GlobalRole string
	AuthMethod string
	Issuer     string // jwt only
	Client     string // s2s only
}

func GetAuthContext(ctx context.Context) (*AuthContext, bool) {
	authCtx, ok := ctx.Value(authContextKey).(*AuthContext)
	return authCtx, ok && authCtx != nil
}

// CallerFromContext converts the principal into the service layer's caller.
func CallerFromContext(ctx context.Context) (domain.Caller, bool) {
	authCtx, ok := GetAuthContext(ctx)
	if !ok {
		return domain.Caller{}, false
	}
	return domain.Caller{
		UserID:     authCtx.UserID,
		Email:      authCtx.Email,
		GlobalRole: authCtx.GlobalRole,
	}, true
}

func withAuthContext(ctx context.Context, authCtx *AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey, authCtx)
}
