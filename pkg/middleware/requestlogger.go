package middleware

import (
	"log/slog"
	"net/http"

	"github.com/Tinii1601/DA-SE347/pkg/logger"
)

// RequestLogger builds a request-scoped logger enriched with correlation_id,
// user_id, session_id, trace_id, and span_id, and stores it in context.
// Downstream handlers retrieve it with logger.FromContext.
//
// Mount this AFTER RequestLogging (sets correlation_id), Identity (sets the
// user and session), and Tracing (sets the span context).
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if userID := UserIDFromContext(ctx); userID != "" {
				ctx = logger.WithUserID(ctx, userID)
			}
			if sessionID := SessionIDFromContext(ctx); sessionID != "" {
				ctx = logger.WithSessionID(ctx, sessionID)
			}

			enriched := logger.WithContext(ctx, base)
			ctx = logger.NewContext(ctx, enriched)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
