package auth

import "context"

// SetAuthContextForTesting injects an AuthContext, skipping the middleware.
// Only tests should call it.
func SetAuthContextForTesting(ctx context.Context, authCtx *AuthContext) context.Context {
	return withAuthContext(ctx, authCtx)
}
