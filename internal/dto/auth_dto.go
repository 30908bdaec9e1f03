package dto

import "studioia-backend/internal/models"

type SignupRequest struct {
	Email string `json:"email"`
}

type VerifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type LoginRequest struct {
	Email string `json:"email"`
}

type AuthResponse struct {
	User  *models.User `json:"user"`
	Admin bool         `json:"admin"`
}

// SignupResponse carries the simulated-delivery verification code so the
// operator can complete the flow without a mail channel.
type SignupResponse struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}
