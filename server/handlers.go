package server

import (
	"net/http"
	"time"

	"github.com/jrsteele09/dormportal/auth"
	apperrors "github.com/jrsteele09/dormportal/internal/errors"
	"github.com/jrsteele09/dormportal/tenants"
	"github.com/pkg/errors"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// FederatedLoginRequest carries an ID token from the identity provider. "idToken" is what the
// mobile app sends; "id_token" is accepted too.
type FederatedLoginRequest struct {
	IDToken      string `json:"idToken"`
	IDTokenSnake string `json:"id_token,omitempty"`
}

type LoginResponse struct {
	User         tenants.Profile `json:"user"`
	SessionToken string          `json:"session_token"`
	ExpiresAt    time.Time       `json:"expires_at"`
}

type MessageResponse struct {
	Message string `json:"message"`
	Revoked *int   `json:"revoked,omitempty"`
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func (s *Server) PreflightHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		result, err := s.login.LoginWithPassword(r.Context(), req.Email, req.Password, clientSource(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.writeLogin(w, r, result)
	}
}

func (s *Server) FederatedLoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req FederatedLoginRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		idToken := req.IDToken
		if idToken == "" {
			idToken = req.IDTokenSnake
		}
		result, err := s.login.LoginWithFederatedToken(r.Context(), idToken, clientSource(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.writeLogin(w, r, result)
	}
}

func (s *Server) writeLogin(w http.ResponseWriter, r *http.Request, result *auth.LoginResult) {
	s.SetSessionCookie(w, r, result.Token, result.ExpiresAt)
	writeJSON(w, http.StatusOK, LoginResponse{
		User:         result.Tenant,
		SessionToken: result.Token,
		ExpiresAt:    result.ExpiresAt,
	})
}

// MeHandler returns the caller's profile. It only runs behind authorizeStep.
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := auth.PrincipalFrom(r.Context())
		if !ok {
			writeError(w, r, apperrors.Authentication(apperrors.MsgNotAuthenticated, errors.New("no principal in context")))
			return
		}
		writeJSON(w, http.StatusOK, principal.Tenant.Public())
	}
}

// LogoutHandler revokes whatever session the request carries. A missing or unknown token
// still logs out successfully.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token := TokenFromRequest(r); token != "" {
			if err := s.login.Logout(r.Context(), token); err != nil {
				writeError(w, r, err)
				return
			}
		}
		s.ClearSessionCookie(w, r)
		writeJSON(w, http.StatusOK, MessageResponse{Message: "Logged out successfully"})
	}
}

func (s *Server) LogoutAllHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := auth.PrincipalFrom(r.Context())
		if !ok {
			writeError(w, r, apperrors.Authentication(apperrors.MsgNotAuthenticated, errors.New("no principal in context")))
			return
		}
		revoked, err := s.login.LogoutAll(r.Context(), principal.Tenant.ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.ClearSessionCookie(w, r)
		writeJSON(w, http.StatusOK, MessageResponse{Message: "Logged out of all devices", Revoked: &revoked})
	}
}
