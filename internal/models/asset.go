package models

import (
	"time"

	"github.com/google/uuid"

	"studioia-backend/internal/payload"
)

type AssetKind string

const (
	AssetKindVideo AssetKind = "video"
	AssetKindImage AssetKind = "image"
)

// Asset is a generated piece of media. Exactly one of Video/Image is set,
// according to Kind: video assets own a payload handle that must be released
// exactly once when the asset is removed, image assets carry base64 PNG data.
type Asset struct {
	ID        uuid.UUID `json:"id"`
	Kind      AssetKind `json:"kind"`
	Prompt    string    `json:"prompt"`
	CreatedAt time.Time `json:"created_at"`

	Video     payload.Handle `json:"video,omitempty"`
	Narration string         `json:"narration,omitempty"`

	Image string `json:"image,omitempty"`
}
