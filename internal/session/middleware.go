package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
)

type contextKey string

const sessionContextKey contextKey = "storefront.session"

// Middleware resolves the request's session from the Storefront-Session
// header, creating one when the header has no live id. The resolved id is
// echoed back in the response header and the session stored in the
// request context for handlers.
func Middleware(manager *Manager, serverVersion string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isExemptPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			var h Header
			if raw := r.Header.Get(HeaderName); raw != "" {
				parsed, err := ParseSessionHeader(raw)
				if err != nil {
					logger.Warn("invalid session header",
						slog.String("header", raw),
						slog.String("error", err.Error()))
					writeSessionError(w, http.StatusBadRequest, "INVALID_SESSION_HEADER", err.Error())
					return
				}
				h = parsed
			}

			if err := CompatibleVersion(serverVersion, h.Version); err != nil {
				writeSessionError(w, http.StatusBadRequest, "VERSION_UNSUPPORTED", err.Error())
				return
			}

			s, created, err := manager.GetOrCreate(h.ID)
			if err != nil {
				logger.Error("session unavailable", slog.String("error", err.Error()))
				writeSessionError(w, http.StatusInternalServerError, "SESSION_UNAVAILABLE", "could not open session")
				return
			}
			if norm, _ := NormalizeID(h.ID); created && h.ID != "" && norm != s.ID {
				logger.Warn("replaced malformed session id",
					slog.String("requested", h.ID),
					slog.String("session_id", s.ID))
			}

			if value, err := FormatSessionHeader(Header{ID: s.ID, Version: serverVersion}); err == nil {
				w.Header().Set(HeaderName, value)
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
		})
	}
}

// isExemptPath returns true for paths that never need a session.
// MCP tools carry their session id in the tool input instead.
func isExemptPath(path string) bool {
	switch path {
	case "/health", "/healthz", "/mcp":
		return true
	default:
		return false
	}
}

func writeSessionError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}{}
	resp.Error.Code = code
	resp.Error.Message = message

	json.NewEncoder(w).Encode(resp)
}

// WithSession returns a context carrying s.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, s)
}

// FromContext returns the request's session, or nil outside Middleware.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionContextKey).(*Session)
	return s
}
