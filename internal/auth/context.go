package auth

import (
	"context"
	"strings"
)

type ctxKey string

const userIDKey ctxKey = "auth_user_id"

// ContextWithUserID stores the authenticated user id in the context.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, strings.TrimSpace(userID))
}

// UserIDFromContext extracts the authenticated user id from the context.
func UserIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(userIDKey).(string)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}
