package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/navigation/internal/auth"
	"github.com/sakif/navigation/internal/service"
)

// AuthHandler exposes sign-in and sign-up. Both are relayed to the
// identity service; the upstream JSON (token and user) is returned as is.
type AuthHandler struct {
	service *service.AuthService
	logger  *slog.Logger
}

func NewAuthHandler(svc *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{service: svc, logger: logger}
}

// HTTP: POST /auth/login
// REQUEST BODY: {"username": "...", "password": "..."}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var creds auth.Credentials
	if err := decodeJSON(w, r, &creds); err != nil {
		writeError(w, err)
		return
	}

	body, err := h.service.Login(r.Context(), creds)
	if err != nil {
		writeError(w, err)
		return
	}
	writeRaw(w, http.StatusOK, body)
}

// HTTP: POST /auth/register
// REQUEST BODY: {"username": "...", "password": "...", "email": "..."}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var creds auth.Credentials
	if err := decodeJSON(w, r, &creds); err != nil {
		writeError(w, err)
		return
	}

	body, err := h.service.Register(r.Context(), creds)
	if err != nil {
		writeError(w, err)
		return
	}
	writeRaw(w, http.StatusCreated, body)
}

// writeRaw sends an already-encoded JSON body.
func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		slog.Error("failed to write response", slog.String("error", err.Error()))
	}
}
