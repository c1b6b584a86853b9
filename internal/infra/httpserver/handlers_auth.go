package httpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/bryanwahyu/endoscan/internal/domain/auth"
	"github.com/bryanwahyu/endoscan/internal/middleware"
)

// POST /auth/sign-up
func (r *Router) handleSignUp(w http.ResponseWriter, req *http.Request) error {
	var body auth.SignUpRequest
	if err := decodeJSON(w, req, &body); err != nil {
		return err
	}
	body.FullName = middleware.SanitizeField(body.FullName)
	body.Organization = middleware.SanitizeField(body.Organization)

	sess, err := r.authn.SignUp(req.Context(), body)
	if err != nil {
		return err
	}
	r.setSessionCookie(w, sess)
	return writeJSON(w, http.StatusCreated, sess)
}

// POST /auth/sign-in
// Body: {"email": "...", "password": "..."}
func (r *Router) handleSignIn(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, req, &body); err != nil {
		return err
	}
	sess, err := r.authn.SignIn(req.Context(), body.Email, body.Password)
	if err != nil {
		return err
	}
	r.setSessionCookie(w, sess)
	return writeJSON(w, http.StatusOK, sess)
}

// POST /auth/sign-out revokes the token and clears the cookie. Signing out
// without a valid session is not an error.
func (r *Router) handleSignOut(w http.ResponseWriter, req *http.Request) error {
	if token := middleware.TokenFromRequest(req); token != "" {
		if err := r.authn.SignOut(req.Context(), token); err != nil && !errors.Is(err, auth.ErrUnauthenticated) {
			return err
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// GET /auth/me
func (r *Router) handleMe(w http.ResponseWriter, req *http.Request) error {
	return writeJSON(w, http.StatusOK, currentUser(req))
}

func (r *Router) setSessionCookie(w http.ResponseWriter, sess *auth.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   r.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
