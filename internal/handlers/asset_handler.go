package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"studioia-backend/internal/dto"
	"studioia-backend/internal/studio"
	"studioia-backend/utils/filename"
	"studioia-backend/utils/response"
)

type AssetHandler struct {
	studio *studio.Studio
	logger *zap.Logger
}

func NewAssetHandler(s *studio.Studio, logger *zap.Logger) *AssetHandler {
	return &AssetHandler{studio: s, logger: logger}
}

// ListAssets returns the collection, most recent first.
func (h *AssetHandler) ListAssets(w http.ResponseWriter, r *http.Request) {
	assets := h.studio.Assets()

	resp := make([]dto.AssetResponse, 0, len(assets))
	for _, asset := range assets {
		resp = append(resp, assetResponse(asset))
	}

	response.JSON(w, http.StatusOK, response.SuccessResponse{Success: true, Data: resp})
}

// DeleteAsset removes an asset by id. Deleting an id that does not exist is
// a no-op, not an error.
func (h *AssetHandler) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid asset id")
		return
	}

	deleted := h.studio.DeleteAsset(id)

	message := "Asset deleted successfully"
	if !deleted {
		message = "Asset was already gone"
	}
	response.JSON(w, http.StatusOK, response.SuccessResponse{
		Success: true,
		Data:    deleted,
		Message: message,
	})
}

// DownloadAsset streams the asset's binary with a filename derived from its
// prompt.
func (h *AssetHandler) DownloadAsset(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid asset id")
		return
	}

	reader, contentType, asset, err := h.studio.OpenAsset(id)
	if err != nil {
		response.Error(w, http.StatusNotFound, "Asset not found")
		return
	}
	defer reader.Close()

	name := filename.ForAsset(asset.Prompt, asset.Kind)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Type", contentType)

	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, reader); err != nil {
		h.logger.Warn("failed to stream asset", zap.String("asset_id", id.String()), zap.Error(err))
	}
}
