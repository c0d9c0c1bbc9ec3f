package tenancy

import "context"

type ctxKey string

const appKey ctxKey = "careconnect.app_id"

// WithAppID stores the application partition id in context.
func WithAppID(ctx context.Context, appID string) context.Context {
	return context.WithValue(ctx, appKey, appID)
}

// AppIDFromContext extracts the application partition id if present.
func AppIDFromContext(ctx context.Context) (string, bool) {
	val := ctx.Value(appKey)
	if val == nil {
		return "", false
	}
	appID, ok := val.(string)
	return appID, ok && appID != ""
}
