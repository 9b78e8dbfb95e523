package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	dErrors "assettrack/pkg/domain-errors"
	"assettrack/pkg/requestcontext"
)

// ActorResolver resolves an opaque bearer token into an actor display name.
// Implementations live in internal/identity.
type ActorResolver interface {
	Resolve(ctx context.Context, token string) (string, error)
}

// PermissionGate answers capability checks for the acting user.
// Implementations live in internal/permission.
type PermissionGate interface {
	Check(ctx context.Context, capability string) error
}

// RequireAuth resolves the bearer token into an actor name and stores it in
// the request context. Requests without a resolvable actor are rejected.
func RequireAuth(resolver ActorResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				writeAuthError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			actor, err := resolver.Resolve(ctx, token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access: token not resolvable",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeAuthError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithActor(ctx, actor)))
		})
	}
}

// RequirePermission gates a route behind a capability check. It runs after
// RequireAuth so the gate can see the resolved actor in context.
func RequirePermission(gate PermissionGate, capability string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if err := gate.Check(ctx, capability); err != nil {
				logger.WarnContext(ctx, "capability denied",
					"capability", capability,
					"actor", requestcontext.Actor(ctx),
					"request_id", requestcontext.RequestID(ctx),
				)
				writeAuthError(w, dErrors.ToHTTPStatus(dErrors.CodePermission), "permission denied")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeAuthError(w http.ResponseWriter, status int, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + http.StatusText(status) + `","error_description":"` + description + `"}`))
}
