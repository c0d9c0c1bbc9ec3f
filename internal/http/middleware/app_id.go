package middleware

import (
	"net/http"
	"strings"

	"github.com/careconnect-ai/platform/internal/tenancy"
)

// AppID resolves the application partition for a request from the X-App-Id
// header, falling back to defaultAppID when the header is absent.
func AppID(defaultAppID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			appID := strings.TrimSpace(r.Header.Get("X-App-Id"))
			if appID == "" {
				appID = defaultAppID
			}
			if appID != "" {
				r = r.WithContext(tenancy.WithAppID(r.Context(), appID))
			}
			next.ServeHTTP(w, r)
		})
	}
}
