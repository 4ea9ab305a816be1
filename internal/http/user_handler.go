package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/doanquockiet/be-exe-cho-do-cu/internal/auth"
	"github.com/doanquockiet/be-exe-cho-do-cu/internal/repository"
)

type authService interface {
	Register(ctx context.Context, email, password, username string) (string, error)
	Login(ctx context.Context, email, password string) (string, error)
}

type UserHandler struct {
	auth authService
}

func NewUserHandler(auth authService) *UserHandler {
	return &UserHandler{auth: auth}
}

type RegisterRequestDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username,omitempty"`
}

type LoginRequestDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponseDTO struct {
	Token   string `json:"token"`
	Message string `json:"message"`
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if !strings.Contains(req.Email, "@") {
		respondError(w, http.StatusBadRequest, "invalid_email", "a valid email is required")
		return
	}
	if len(req.Password) < 6 {
		respondError(w, http.StatusBadRequest, "invalid_password", "password must be at least 6 characters")
		return
	}

	token, err := h.auth.Register(r.Context(), req.Email, req.Password, req.Username)
	if errors.Is(err, repository.ErrEmailTaken) {
		respondError(w, http.StatusBadRequest, "email_taken", "email already exists")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal", "registration failed")
		return
	}

	respondJSON(w, http.StatusCreated, TokenResponseDTO{Token: token, Message: "Registration successful"})
}

func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	token, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		respondError(w, http.StatusBadRequest, "invalid_credentials", "invalid credentials")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal", "login failed")
		return
	}

	respondJSON(w, http.StatusOK, TokenResponseDTO{Token: token, Message: "Login successful"})
}
