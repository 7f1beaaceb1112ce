package middleware

import (
	"net/http"
	"strings"

	"crowdwatch/internal/service/session"
)

// SessionCookie carries the admin session token.
const SessionCookie = "session"

// protectedPrefixes are the only paths that require a login. Streams, snapshots and pages stay
// public.
var protectedPrefixes = []string{"/api/admin/", "/logs/"}

// AuthMiddleware checks that requests to admin paths carry a live session cookie.
func AuthMiddleware(sessions *session.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !protected(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			cookie, err := r.Cookie(SessionCookie)
			if err != nil || !sessions.Valid(cookie.Value) {
				// API and AJAX callers get a status, browsers get the login page
				if strings.HasPrefix(r.URL.Path, "/api/") ||
					r.Header.Get("X-Requested-With") == "XMLHttpRequest" ||
					r.Header.Get("Content-Type") == "application/json" {
					http.Error(w, "Unauthorized", http.StatusUnauthorized)
					return
				}
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func protected(path string) bool {
	for _, prefix := range protectedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
