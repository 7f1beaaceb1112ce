package handler

import (
	"crypto/subtle"
	"net/http"

	"crowdwatch/internal/config"
	"crowdwatch/internal/logger"
	"crowdwatch/internal/middleware"
	"crowdwatch/internal/service/session"
)

// LoginHandler handles POST /auth/login by validating password and issuing a session cookie.
func LoginHandler(cfg *config.Config, sessions *session.Store, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		password := r.FormValue("password")
		if subtle.ConstantTimeCompare([]byte(password), []byte(cfg.Password)) != 1 {
			logger.Warning("Failed login attempt from %s", r.RemoteAddr)
			http.Error(w, "Invalid password", http.StatusUnauthorized)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     middleware.SessionCookie,
			Value:    sessions.Create(),
			Path:     "/",
			MaxAge:   int(sessions.TTL().Seconds()),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		logger.Info("Admin logged in from %s", r.RemoteAddr)
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// LogoutHandler ends the session and redirects to the login page.
func LogoutHandler(sessions *session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(middleware.SessionCookie); err == nil {
			sessions.Revoke(cookie.Value)
		}

		http.SetCookie(w, &http.Cookie{
			Name:   middleware.SessionCookie,
			Value:  "",
			Path:   "/",
			MaxAge: -1,
		})
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	}
}
