package genai

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigurationMissing means no backend credential is available; the
	// operation is never attempted.
	ErrConfigurationMissing = errors.New("GEMINI_API_KEY environment variable not set. Please add your key")

	// ErrMissingResult means the operation finished without a download link.
	ErrMissingResult = errors.New("video generation succeeded, but no download link was found")

	// ErrEmptyResult means the backend returned zero images.
	ErrEmptyResult = errors.New("image generation succeeded, but no images were returned")
)

// GenerationError carries an operation-level error message reported by the
// backend.
type GenerationError struct {
	Message string
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("video generation failed: %s", e.Message)
}

// DownloadError is a transport-level failure fetching the generated binary.
type DownloadError struct {
	Status string
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("failed to download the generated video. Status: %s", e.Status)
}
