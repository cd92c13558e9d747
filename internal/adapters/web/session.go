package web

import (
	"net/http"

	"penguindash/internal/dashboard"
)

// SessionCookie names the cookie carrying the dashboard session id.
const SessionCookie = "penguindash_session"

// session resolves the caller's session, issuing a cookie for a new one.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *dashboard.Session {
	var id string
	if c, err := r.Cookie(SessionCookie); err == nil {
		id = c.Value
	}
	sess, created := s.registry.GetOrCreate(id)
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    sess.ID(),
			Path:     "/",
			HttpOnly: true,
			Secure:   s.secure,
			SameSite: http.SameSiteLaxMode,
		})
		s.metrics.SetActiveSessions(s.registry.Len())
	}
	return sess
}
