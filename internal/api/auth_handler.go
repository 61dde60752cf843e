package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/avdeev/postpilot/internal/instagram"
)

// Login выполняет вход в Instagram и сохраняет сессию.
// POST /api/v1/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" {
		BadRequest(w, "username and password are required")
		return
	}

	if err := h.publisher.Login(r.Context(), req.Username, req.Password); err != nil {
		if errors.Is(err, instagram.ErrAuthUnavailable) {
			Unauthorized(w, "login failed")
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	// новая сессия — dispatcher должен перечитать её с диска
	h.sessionCache.ResetSession()

	Success(w, AuthStatusResponse{Authenticated: true, Username: req.Username})
}

// AuthStatus возвращает статус сохранённой сессии.
// GET /api/v1/auth/status
func (h *Handler) AuthStatus(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Load()
	if err != nil {
		Success(w, AuthStatusResponse{Authenticated: false})
		return
	}

	if err := h.publisher.Verify(r.Context(), session); err != nil {
		h.logger.Warn("saved session failed verification", "username", session.Username, "error", err)
		Success(w, AuthStatusResponse{Authenticated: false, Username: session.Username})
		return
	}

	Success(w, AuthStatusResponse{Authenticated: true, Username: session.Username})
}

// Logout удаляет сохранённую сессию.
// POST /api/v1/auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.publisher.Logout(); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	h.sessionCache.ResetSession()

	NoContent(w)
}
