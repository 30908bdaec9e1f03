package dto

import (
	"time"

	"github.com/google/uuid"
)

type GenerateVideoResponse struct {
	Accepted bool `json:"accepted"`
}

type GenerateImagesRequest struct {
	Prompt      string `json:"prompt"`
	Count       int    `json:"count"`
	AspectRatio string `json:"aspect_ratio"`
}

type AssetResponse struct {
	ID          uuid.UUID `json:"id"`
	Kind        string    `json:"kind"`
	Prompt      string    `json:"prompt"`
	CreatedAt   time.Time `json:"created_at"`
	Narration   string    `json:"narration,omitempty"`
	Image       string    `json:"image,omitempty"` // base64 PNG for image assets
	DownloadURL string    `json:"download_url"`
}

type VideoStatusResponse struct {
	Generating       bool           `json:"generating"`
	LoadingMessage   string         `json:"loading_message,omitempty"`
	Error            string         `json:"error,omitempty"`
	Last             *AssetResponse `json:"last,omitempty"`
	NarrationPlaying bool           `json:"narration_playing"`
}

type ImageStatusResponse struct {
	Generating bool            `json:"generating"`
	Error      string          `json:"error,omitempty"`
	Last       []AssetResponse `json:"last,omitempty"`
}

type ReferenceResponse struct {
	MimeType   string `json:"mime_type"`
	Size       int    `json:"size"`
	PreviewURL string `json:"preview_url"`
}

type LanguageRequest struct {
	Language string `json:"language"`
}
