// Package filename derives download filenames from prompt text.
package filename

import (
	"regexp"
	"strings"

	"studioia-backend/internal/models"
)

const maxBaseLength = 50

var (
	nonAlnum   = regexp.MustCompile(`[^a-z0-9\s-]`)
	whitespace = regexp.MustCompile(`\s+`)
)

// Base lowercases the prompt, strips everything outside [a-z0-9 -],
// collapses whitespace to hyphens and truncates to 50 characters. An empty
// prompt uses the fallback instead.
func Base(prompt, fallback string) string {
	if prompt == "" {
		prompt = fallback
	}
	base := strings.ToLower(prompt)
	base = nonAlnum.ReplaceAllString(base, "")
	base = whitespace.ReplaceAllString(base, "-")
	if len(base) > maxBaseLength {
		base = base[:maxBaseLength]
	}
	return base
}

// ForAsset returns the full suggested filename for an asset download.
func ForAsset(prompt string, kind models.AssetKind) string {
	if kind == models.AssetKindVideo {
		return Base(prompt, "generated-video") + ".mp4"
	}
	return Base(prompt, "generated-image") + ".png"
}
