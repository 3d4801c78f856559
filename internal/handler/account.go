package handler

import (
	"net/http"

	"stylehub/internal/model"
)

type accountResponse struct {
	Authenticated bool        `json:"authenticated"`
	User          *model.User `json:"user,omitempty"`
}

// handleLogin signs the session in.
// POST /auth/login
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}

	var creds model.Credentials
	if err := decodeJSON(r, &creds); err != nil {
		h.writeError(w, err)
		return
	}

	user, err := s.Login(r.Context(), creds)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, accountResponse{Authenticated: true, User: user})
}

// handleRegister creates an account and signs the session in.
// POST /auth/register
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}

	var reg model.Registration
	if err := decodeJSON(r, &reg); err != nil {
		h.writeError(w, err)
		return
	}

	user, err := s.Register(r.Context(), reg)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, accountResponse{Authenticated: true, User: user})
}

// handleLogout clears the session's auth state and keeps its cart.
// POST /auth/logout
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	if err := s.Logout(); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, accountResponse{Authenticated: false})
}

// handleMe reports who the session is signed in as.
// GET /auth/me
func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	user := s.Auth.User()
	h.writeJSON(w, http.StatusOK, accountResponse{Authenticated: user != nil, User: user})
}
