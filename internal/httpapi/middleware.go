package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/valorant-veto/internal/engine"
	"github.com/DoyleJ11/valorant-veto/internal/identity"
)

const requestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestID tags every request with an id, reusing the caller's when given.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func RequestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", requestIDFrom(r.Context())),
			}
			// Room polling is constant; keep reads out of info logs.
			if r.Method == http.MethodGet {
				log.Debug("request", fields...)
				return
			}
			log.Info("request", fields...)
		})
	}
}

// Authenticate attaches the bearer token's viewer to the request context.
// Requests without a token pass through; guard decides whether that is enough.
func Authenticate(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(secret) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || raw == "" {
				next.ServeHTTP(w, r)
				return
			}
			v, err := identity.Parse(raw, secret)
			if err != nil {
				writeError(w, http.StatusUnauthorized, CodeUnauthenticated, "invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(identity.WithViewer(r.Context(), v)))
		})
	}
}

// guard enforces who may act once tokens are enabled.
type guard struct {
	enabled bool
}

// allow reports whether the request's viewer is one of userIDs, writing
// 401/403 when not.
func (g guard) allow(w http.ResponseWriter, r *http.Request, userIDs ...string) bool {
	if !g.enabled {
		return true
	}
	v, ok := identity.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, CodeUnauthenticated, "sign in required")
		return false
	}
	for _, id := range userIDs {
		if id != "" && id == v.UserID {
			return true
		}
	}
	writeError(w, http.StatusForbidden, CodeForbidden, "not allowed to act in this room")
	return false
}

// visible strips the passkey unless the viewer is the signed-in room admin.
func (g guard) visible(r *http.Request, room engine.Room) engine.Room {
	if g.enabled {
		if v, ok := identity.FromContext(r.Context()); ok && v.UserID == room.AdminID {
			return room
		}
	}
	return room.Public()
}
