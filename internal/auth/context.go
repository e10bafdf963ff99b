package auth

import "context"

type contextKey string

const userIDContextKey contextKey = "auth-user-id"

// ContextWithUserID stores the id of the logged-in user in the context,
// done by the auth middleware after a successful token check
func ContextWithUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// UserIDFromContext returns the id of the logged-in user, or false when
// the request was not authenticated
func UserIDFromContext(ctx context.Context) (int, bool) {
	userID, ok := ctx.Value(userIDContextKey).(int)
	return userID, ok
}
