package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"studioia-backend/internal/dto"
	"studioia-backend/internal/genai"
	"studioia-backend/internal/i18n"
	"studioia-backend/internal/models"
	"studioia-backend/internal/studio"
	"studioia-backend/utils/response"
)

const (
	maxUploadBytes    = 25 * 1024 * 1024 // reference images
	defaultImageCount = 4
	defaultAspect     = "16:9"
)

type StudioHandler struct {
	studio *studio.Studio
	logger *zap.Logger
}

func NewStudioHandler(s *studio.Studio, logger *zap.Logger) *StudioHandler {
	return &StudioHandler{studio: s, logger: logger}
}

// GenerateVideo accepts a multipart form with a prompt and an optional
// reference image, stages the image and starts the generation. While a
// generation is already running the submission is dropped, not queued.
func (h *StudioHandler) GenerateVideo(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(8 * 1024 * 1024); err != nil {
		response.Error(w, http.StatusBadRequest, fmt.Sprintf("Failed to parse multipart form: %v", err))
		return
	}

	prompt := r.FormValue("prompt")

	if file, header, err := r.FormFile("image"); err == nil {
		defer file.Close()
		if !h.stageFromUpload(w, file, header.Header.Get("Content-Type")) {
			return
		}
	}

	accepted, err := h.studio.GenerateVideo(prompt)
	if err != nil {
		if errors.Is(err, studio.ErrNothingToGenerate) {
			response.Error(w, http.StatusBadRequest, "A prompt or a reference image is required")
			return
		}
		h.logger.Error("failed to start video generation", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "Failed to start video generation")
		return
	}

	message := "Video generation started"
	if !accepted {
		message = "A video generation is already in progress"
	}
	response.Accepted(w, dto.GenerateVideoResponse{Accepted: accepted}, message)
}

func (h *StudioHandler) VideoStatus(w http.ResponseWriter, r *http.Request) {
	status := h.studio.VideoStatus()

	resp := dto.VideoStatusResponse{
		Generating:       status.Generating,
		LoadingMessage:   status.LoadingMessage,
		Error:            status.Error,
		NarrationPlaying: status.NarrationPlaying,
	}
	if status.Last != nil {
		last := assetResponse(status.Last)
		resp.Last = &last
	}

	response.JSON(w, http.StatusOK, response.SuccessResponse{Success: true, Data: resp})
}

// GenerateImages starts an image batch generation.
func (h *StudioHandler) GenerateImages(w http.ResponseWriter, r *http.Request) {
	var req dto.GenerateImagesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Count == 0 {
		req.Count = defaultImageCount
	}
	if req.AspectRatio == "" {
		req.AspectRatio = defaultAspect
	}

	if req.Count < 1 || req.Count > 10 {
		response.Error(w, http.StatusBadRequest, "'count' must be between 1 and 10")
		return
	}
	if !genai.AspectRatios[req.AspectRatio] {
		response.Error(w, http.StatusBadRequest, fmt.Sprintf("Unsupported aspect ratio %q", req.AspectRatio))
		return
	}

	accepted, err := h.studio.GenerateImages(req.Prompt, req.Count, req.AspectRatio)
	if err != nil {
		if errors.Is(err, studio.ErrEmptyPrompt) {
			response.Error(w, http.StatusBadRequest, "A prompt is required")
			return
		}
		h.logger.Error("failed to start image generation", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "Failed to start image generation")
		return
	}

	message := "Image generation started"
	if !accepted {
		message = "An image generation is already in progress"
	}
	response.Accepted(w, dto.GenerateVideoResponse{Accepted: accepted}, message)
}

func (h *StudioHandler) ImageStatus(w http.ResponseWriter, r *http.Request) {
	status := h.studio.ImageStatus()

	resp := dto.ImageStatusResponse{
		Generating: status.Generating,
		Error:      status.Error,
	}
	for _, asset := range status.Last {
		resp.Last = append(resp.Last, assetResponse(asset))
	}

	response.JSON(w, http.StatusOK, response.SuccessResponse{Success: true, Data: resp})
}

// StageReference uploads the image conditioning the next video generation.
func (h *StudioHandler) StageReference(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(8 * 1024 * 1024); err != nil {
		response.Error(w, http.StatusBadRequest, fmt.Sprintf("Failed to parse multipart form: %v", err))
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "'image' not present in form")
		return
	}
	defer file.Close()

	if !h.stageFromUpload(w, file, header.Header.Get("Content-Type")) {
		return
	}

	ref := h.studio.Reference()
	response.JSON(w, http.StatusOK, response.SuccessResponse{
		Success: true,
		Data: dto.ReferenceResponse{
			MimeType:   ref.MimeType,
			Size:       len(ref.Data),
			PreviewURL: "/api/videos/reference/preview",
		},
		Message: "Reference image staged",
	})
}

func (h *StudioHandler) RemoveReference(w http.ResponseWriter, r *http.Request) {
	h.studio.RemoveReference()
	response.JSON(w, http.StatusOK, response.SuccessResponse{
		Success: true,
		Message: "Reference image removed",
	})
}

func (h *StudioHandler) ReferencePreview(w http.ResponseWriter, r *http.Request) {
	reader, contentType, err := h.studio.OpenPreview()
	if err != nil {
		response.Error(w, http.StatusNotFound, "No reference image staged")
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	io.Copy(w, reader)
}

// PlayNarration reads the last video's narration aloud.
func (h *StudioHandler) PlayNarration(w http.ResponseWriter, r *http.Request) {
	if err := h.studio.PlayNarration(); err != nil {
		if errors.Is(err, studio.ErrNoNarration) {
			response.Error(w, http.StatusNotFound, "No narration available")
			return
		}
		h.logger.Error("failed to start narration playback", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "Failed to start narration playback")
		return
	}
	response.JSON(w, http.StatusOK, response.SuccessResponse{Success: true, Message: "Narration playing"})
}

func (h *StudioHandler) StopNarration(w http.ResponseWriter, r *http.Request) {
	h.studio.StopNarration()
	response.JSON(w, http.StatusOK, response.SuccessResponse{Success: true, Message: "Narration stopped"})
}

func (h *StudioHandler) SetLanguage(w http.ResponseWriter, r *http.Request) {
	var req dto.LanguageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !h.studio.SetLanguage(req.Language) {
		response.Error(w, http.StatusBadRequest, fmt.Sprintf("Unsupported language %q", req.Language))
		return
	}
	response.JSON(w, http.StatusOK, response.SuccessResponse{Success: true, Message: "Language updated"})
}

func (h *StudioHandler) GetTranslations(w http.ResponseWriter, r *http.Request) {
	lang := r.PathValue("lang")
	response.JSON(w, http.StatusOK, response.SuccessResponse{Success: true, Data: i18n.Get(lang)})
}

// stageFromUpload reads and stages an uploaded reference image, writing the
// error response itself on failure.
func (h *StudioHandler) stageFromUpload(w http.ResponseWriter, file io.Reader, contentType string) bool {
	data, err := io.ReadAll(file)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "Failed to read uploaded image")
		return false
	}

	if err := h.studio.StageReference(data, contentType); err != nil {
		if errors.Is(err, studio.ErrInvalidInput) {
			response.Error(w, http.StatusBadRequest, "Invalid file type. Please upload an image.")
			return false
		}
		h.logger.Error("failed to stage reference image", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "Failed to stage reference image")
		return false
	}
	return true
}

func assetResponse(asset *models.Asset) dto.AssetResponse {
	return dto.AssetResponse{
		ID:          asset.ID,
		Kind:        string(asset.Kind),
		Prompt:      asset.Prompt,
		CreatedAt:   asset.CreatedAt,
		Narration:   asset.Narration,
		Image:       asset.Image,
		DownloadURL: fmt.Sprintf("/api/assets/%s/download", asset.ID),
	}
}
