package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"studioia-backend/internal/auth"
	"studioia-backend/utils/response"
)

type AdminHandler struct {
	service *auth.Service
	logger  *zap.Logger
}

func NewAdminHandler(service *auth.Service, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{service: service, logger: logger}
}

// ListUsers returns every registered user for the admin table.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.AllUsers(r.Context())
	if err != nil {
		h.logger.Error("failed to load users", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "Failed to load users")
		return
	}

	response.JSON(w, http.StatusOK, response.SuccessResponse{Success: true, Data: users})
}
