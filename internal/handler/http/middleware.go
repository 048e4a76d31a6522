package http

import (
	"net/http"
	"strings"

	"github.com/Tinii1601/DA-SE347/pkg/middleware"
)

// ContentTypeJSON enforces that requests with a body have Content-Type: application/json.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 || r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnsupportedMediaType)
				_, _ = w.Write([]byte(`{"error":{"code":"UNSUPPORTED_MEDIA_TYPE","message":"Content-Type must be application/json"}}`))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// cartKey picks the cart storage key for the request: signed-in customers
// keep their cart under their user id, anonymous visitors under the session
// token.
func cartKey(r *http.Request) string {
	if uid := middleware.UserIDFromContext(r.Context()); uid != "" {
		return uid
	}
	return middleware.SessionIDFromContext(r.Context())
}
