package httpapi

import (
	"net/http"

	"github.com/gorilla/sessions"
)

const sessionName = "snackstand"

// newSessionStore builds the cookie store guarding the admin pages.
func newSessionStore(secret string) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// isAdmin reports whether the request carries an authenticated admin session.
func (s *Server) isAdmin(r *http.Request) bool {
	session, err := s.sessions.Get(r, sessionName)
	if err != nil {
		return false
	}
	admin, ok := session.Values["admin"].(bool)
	return ok && admin
}

// setAdmin records or clears the admin flag on the session cookie.
func (s *Server) setAdmin(w http.ResponseWriter, r *http.Request, admin bool) error {
	session, _ := s.sessions.Get(r, sessionName)
	if admin {
		session.Values["admin"] = true
	} else {
		delete(session.Values, "admin")
	}
	return session.Save(r, w)
}
