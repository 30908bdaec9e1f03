package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"studioia-backend/internal/auth"
	"studioia-backend/internal/dto"
	"studioia-backend/internal/i18n"
	"studioia-backend/internal/middleware"
	"studioia-backend/utils/response"
)

type AuthHandler struct {
	service *auth.Service
	logger  *zap.Logger
}

func NewAuthHandler(service *auth.Service, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{service: service, logger: logger}
}

// Signup starts the email verification flow and returns the 6-digit code
// over the simulated delivery channel.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req dto.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !validEmail(req.Email) {
		response.Error(w, http.StatusBadRequest, "A valid email is required")
		return
	}

	code, err := h.service.BeginSignup(req.Email)
	if err != nil {
		h.logger.Error("failed to begin sign-up", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "Failed to start sign-up")
		return
	}

	response.JSON(w, http.StatusOK, response.SuccessResponse{
		Success: true,
		Data:    dto.SignupResponse{Email: req.Email, Code: code},
		Message: translationsFor(r).Auth.CodeSent,
	})
}

// Verify finalizes a pending sign-up. A wrong code is retryable and does
// not lock the flow.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, admin, err := h.service.Verify(r.Context(), req.Email, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrVerificationMismatch):
			response.Error(w, http.StatusUnauthorized, translationsFor(r).Auth.InvalidCode)
		case errors.Is(err, auth.ErrNoPendingSignup):
			response.Error(w, http.StatusBadRequest, "No sign-up in progress for this email")
		default:
			h.logger.Error("failed to verify sign-up", zap.Error(err))
			response.Error(w, http.StatusInternalServerError, "Failed to verify sign-up")
		}
		return
	}

	if err := h.setSessionCookie(w, user.Email, admin); err != nil {
		return
	}

	response.JSON(w, http.StatusOK, response.SuccessResponse{
		Success: true,
		Data:    dto.AuthResponse{User: user, Admin: admin},
		Message: "User signed up successfully",
	})
}

// Resend regenerates the verification code, invalidating the previous one.
func (h *AuthHandler) Resend(w http.ResponseWriter, r *http.Request) {
	var req dto.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	code, err := h.service.Resend(req.Email)
	if err != nil {
		if errors.Is(err, auth.ErrNoPendingSignup) {
			response.Error(w, http.StatusBadRequest, "No sign-up in progress for this email")
			return
		}
		h.logger.Error("failed to resend code", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "Failed to resend code")
		return
	}

	response.JSON(w, http.StatusOK, response.SuccessResponse{
		Success: true,
		Data:    dto.SignupResponse{Email: req.Email, Code: code},
		Message: translationsFor(r).Auth.CodeSent,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !validEmail(req.Email) {
		response.Error(w, http.StatusBadRequest, "A valid email is required")
		return
	}

	user, admin, err := h.service.Authenticate(r.Context(), req.Email)
	if err != nil {
		h.logger.Error("failed to authenticate", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "Failed to login user")
		return
	}

	if err := h.setSessionCookie(w, user.Email, admin); err != nil {
		return
	}

	response.JSON(w, http.StatusOK, response.SuccessResponse{
		Success: true,
		Data:    dto.AuthResponse{User: user, Admin: admin},
		Message: "User logged in successfully",
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context()); err != nil {
		h.logger.Error("failed to clear current user", zap.Error(err))
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})

	response.JSON(w, http.StatusOK, response.SuccessResponse{
		Success: true,
		Message: "User logged out successfully",
	})
}

func (h *AuthHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		response.Error(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	users, err := h.service.AllUsers(r.Context())
	if err != nil {
		h.logger.Error("failed to load users", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "Failed to get user")
		return
	}

	for i := range users {
		if users[i].Email == claims.Email {
			response.JSON(w, http.StatusOK, response.SuccessResponse{
				Success: true,
				Data:    dto.AuthResponse{User: &users[i], Admin: claims.Admin},
			})
			return
		}
	}

	response.Error(w, http.StatusNotFound, "User not found")
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, email string, admin bool) error {
	token, err := h.service.IssueToken(email, admin)
	if err != nil {
		h.logger.Error("failed to sign token", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "Failed to create session")
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   false,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   86400, // 24 hours
	})
	return nil
}

func validEmail(email string) bool {
	return email != "" && strings.Contains(email, "@")
}

// translationsFor resolves the request's language from the lang query
// parameter, falling back to the default table.
func translationsFor(r *http.Request) i18n.Translations {
	return i18n.Get(r.URL.Query().Get("lang"))
}
