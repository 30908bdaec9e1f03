// Package studio sequences UI-visible state around the generation client:
// per-surface busy/error/result tracking, the in-memory asset collection and
// the ephemeral resources (pending reference image, narration playback) that
// need explicit release.
package studio

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"studioia-backend/internal/genai"
	"studioia-backend/internal/i18n"
	"studioia-backend/internal/metrics"
	"studioia-backend/internal/models"
	"studioia-backend/internal/payload"
	"studioia-backend/internal/speech"
)

var (
	// ErrInvalidInput rejects a non-image reference upload.
	ErrInvalidInput = errors.New("invalid file type, please upload an image")

	// ErrNothingToGenerate means neither a prompt nor a reference image was
	// provided.
	ErrNothingToGenerate = errors.New("a prompt or a reference image is required")

	// ErrEmptyPrompt rejects an image generation without a prompt.
	ErrEmptyPrompt = errors.New("a prompt is required")

	// ErrNoNarration means the last generated video has no narration to play.
	ErrNoNarration = errors.New("no narration available")
)

const previewWidth = 320

// Generator is the slice of the generation client the controller calls.
type Generator interface {
	GenerateVideo(ctx context.Context, prompt string, image *genai.ImageInput) (*genai.VideoResult, error)
	GenerateImages(ctx context.Context, prompt string, count int, aspectRatio string) ([]string, error)
}

// PendingReference is a staged image conditioning the next video
// generation. Preview owns a payload handle released on replace or removal.
type PendingReference struct {
	Data     []byte
	MimeType string
	Preview  payload.Handle
}

type VideoStatus struct {
	Generating       bool
	LoadingMessage   string
	Error            string
	Last             *models.Asset
	NarrationPlaying bool
}

type ImageStatus struct {
	Generating bool
	Error      string
	Last       []*models.Asset
}

type Config struct {
	Generator Generator
	Payloads  *payload.Store
	Speaker   speech.Speaker
	Logger    *zap.Logger
	Language  string
}

type Studio struct {
	generator Generator
	payloads  *payload.Store
	speaker   speech.Speaker
	logger    *zap.Logger

	mu       sync.Mutex
	language string
	closed   bool

	assets     []*models.Asset
	lastVideo  *models.Asset
	lastImages []*models.Asset

	pendingRef *PendingReference

	videoBusy      bool
	videoStartedAt time.Time
	videoErr       string

	imageBusy bool
	imageErr  string

	narrating    bool
	narrationSeq int

	lastCreatedAt time.Time

	wg sync.WaitGroup
}

func New(cfg Config) *Studio {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Language == "" {
		cfg.Language = i18n.DefaultLanguage
	}
	if cfg.Speaker == nil {
		cfg.Speaker = speech.Nop{}
	}
	return &Studio{
		generator: cfg.Generator,
		payloads:  cfg.Payloads,
		speaker:   cfg.Speaker,
		logger:    cfg.Logger,
		language:  cfg.Language,
	}
}

// SetLanguage switches the active translation; unsupported tags are ignored.
func (s *Studio) SetLanguage(lang string) bool {
	if !i18n.Supported(lang) {
		return false
	}
	s.mu.Lock()
	s.language = lang
	s.mu.Unlock()
	return true
}

func (s *Studio) Language() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language
}

// GenerateVideo starts a video generation for the prompt plus the staged
// reference image, if any. While a generation is already running the call
// is a silent no-op and returns false; no second backend call is issued.
func (s *Studio) GenerateVideo(prompt string) (bool, error) {
	s.mu.Lock()

	if s.videoBusy || s.closed {
		s.mu.Unlock()
		return false, nil
	}

	var image *genai.ImageInput
	if s.pendingRef != nil {
		image = &genai.ImageInput{
			Data:     append([]byte(nil), s.pendingRef.Data...),
			MimeType: s.pendingRef.MimeType,
		}
	}

	if strings.TrimSpace(prompt) == "" && image == nil {
		s.mu.Unlock()
		return false, ErrNothingToGenerate
	}

	s.videoBusy = true
	s.videoStartedAt = time.Now()
	s.videoErr = ""
	s.lastVideo = nil
	s.stopNarrationLocked()
	s.mu.Unlock()

	metrics.GenerationsStarted.WithLabelValues("video").Inc()
	s.logger.Info("video generation started", zap.String("prompt", prompt), zap.Bool("has_reference", image != nil))

	s.wg.Add(1)
	go s.runVideo(prompt, image)
	return true, nil
}

func (s *Studio) runVideo(prompt string, image *genai.ImageInput) {
	defer s.wg.Done()

	started := time.Now()
	result, err := s.generator.GenerateVideo(context.Background(), prompt, image)
	metrics.GenerationDuration.WithLabelValues("video").Observe(time.Since(started).Seconds())

	s.mu.Lock()
	defer s.mu.Unlock()

	s.videoBusy = false

	if err != nil {
		s.videoErr = i18n.Get(s.language).Error.Prefix + " " + err.Error()
		metrics.GenerationsFailed.WithLabelValues("video").Inc()
		s.logger.Error("video generation failed", zap.Error(err))
		return
	}

	if s.closed {
		// Nobody will ever see this asset; free its payload now.
		if relErr := s.payloads.Release(result.Handle); relErr != nil {
			s.logger.Warn("failed to release orphaned video payload", zap.Error(relErr))
		}
		return
	}

	asset := &models.Asset{
		ID:        uuid.New(),
		Kind:      models.AssetKindVideo,
		Prompt:    prompt,
		Video:     result.Handle,
		Narration: result.Narration,
		CreatedAt: s.nextCreatedAtLocked(),
	}
	s.lastVideo = asset
	s.assets = append([]*models.Asset{asset}, s.assets...)
	metrics.AssetsLive.Inc()

	s.logger.Info("video generation finished", zap.String("asset_id", asset.ID.String()))
}

// GenerateImages starts an image generation. Re-entrant submissions while
// one is running are silent no-ops, mirroring the video surface.
func (s *Studio) GenerateImages(prompt string, count int, aspectRatio string) (bool, error) {
	s.mu.Lock()

	if s.imageBusy || s.closed {
		s.mu.Unlock()
		return false, nil
	}

	if strings.TrimSpace(prompt) == "" {
		s.mu.Unlock()
		return false, ErrEmptyPrompt
	}

	s.imageBusy = true
	s.imageErr = ""
	s.lastImages = nil
	s.mu.Unlock()

	metrics.GenerationsStarted.WithLabelValues("image").Inc()
	s.logger.Info("image generation started",
		zap.String("prompt", prompt), zap.Int("count", count), zap.String("aspect_ratio", aspectRatio))

	s.wg.Add(1)
	go s.runImages(prompt, count, aspectRatio)
	return true, nil
}

func (s *Studio) runImages(prompt string, count int, aspectRatio string) {
	defer s.wg.Done()

	started := time.Now()
	images, err := s.generator.GenerateImages(context.Background(), prompt, count, aspectRatio)
	metrics.GenerationDuration.WithLabelValues("image").Observe(time.Since(started).Seconds())

	s.mu.Lock()
	defer s.mu.Unlock()

	s.imageBusy = false

	if err != nil {
		s.imageErr = i18n.Get(s.language).Error.ImagePrefix + " " + err.Error()
		metrics.GenerationsFailed.WithLabelValues("image").Inc()
		s.logger.Error("image generation failed", zap.Error(err))
		return
	}

	if s.closed {
		return
	}

	batch := make([]*models.Asset, 0, len(images))
	for _, data := range images {
		batch = append(batch, &models.Asset{
			ID:        uuid.New(),
			Kind:      models.AssetKindImage,
			Prompt:    prompt,
			Image:     data,
			CreatedAt: s.nextCreatedAtLocked(),
		})
	}

	s.lastImages = batch
	s.assets = append(append([]*models.Asset{}, batch...), s.assets...)
	metrics.AssetsLive.Add(float64(len(batch)))

	s.logger.Info("image generation finished", zap.Int("count", len(batch)))
}

func (s *Studio) VideoStatus() VideoStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := VideoStatus{
		Generating:       s.videoBusy,
		Error:            s.videoErr,
		Last:             s.lastVideo,
		NarrationPlaying: s.narrating,
	}
	if s.videoBusy {
		idx := int(time.Since(s.videoStartedAt)/(5*time.Second)) % len(i18n.LoadingMessages)
		status.LoadingMessage = i18n.LoadingMessages[idx]
	}
	return status
}

func (s *Studio) ImageStatus() ImageStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	return ImageStatus{
		Generating: s.imageBusy,
		Error:      s.imageErr,
		Last:       append([]*models.Asset(nil), s.lastImages...),
	}
}

// Assets returns the collection, most recent first.
func (s *Studio) Assets() []*models.Asset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.Asset(nil), s.assets...)
}

func (s *Studio) Asset(id uuid.UUID) (*models.Asset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, asset := range s.assets {
		if asset.ID == id {
			return asset, true
		}
	}
	return nil, false
}

// OpenAsset returns a reader over the asset's binary content and its MIME
// type. The reader borrows the payload; ownership stays with the asset.
func (s *Studio) OpenAsset(id uuid.UUID) (io.ReadCloser, string, *models.Asset, error) {
	asset, ok := s.Asset(id)
	if !ok {
		return nil, "", nil, errors.New("asset not found")
	}

	switch asset.Kind {
	case models.AssetKindVideo:
		reader, meta, err := s.payloads.Open(asset.Video)
		if err != nil {
			return nil, "", nil, err
		}
		return reader, meta.ContentType, asset, nil
	default:
		decoder := base64.NewDecoder(base64.StdEncoding, strings.NewReader(asset.Image))
		return io.NopCloser(decoder), "image/png", asset, nil
	}
}

// DeleteAsset removes the asset with the given id. Video payloads are
// released at the moment of removal; a nonexistent id is a no-op.
func (s *Studio) DeleteAsset(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, asset := range s.assets {
		if asset.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return false
	}

	asset := s.assets[idx]
	if asset.Kind == models.AssetKindVideo {
		if err := s.payloads.Release(asset.Video); err != nil {
			s.logger.Warn("failed to release video payload", zap.String("asset_id", id.String()), zap.Error(err))
		}
	}

	s.assets = append(s.assets[:idx], s.assets[idx+1:]...)
	metrics.AssetsLive.Dec()

	if s.lastVideo != nil && s.lastVideo.ID == id {
		s.lastVideo = nil
	}
	for i, img := range s.lastImages {
		if img.ID == id {
			s.lastImages = append(s.lastImages[:i], s.lastImages[i+1:]...)
			break
		}
	}
	return true
}

// StageReference installs a new pending reference image, building a preview
// thumbnail. The previous preview handle is released before the new one is
// installed.
func (s *Studio) StageReference(data []byte, mimeType string) error {
	if !strings.HasPrefix(mimeType, "image/") {
		return ErrInvalidInput
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return ErrInvalidInput
	}

	var buf bytes.Buffer
	thumb := imaging.Resize(img, previewWidth, 0, imaging.Lanczos)
	if err := imaging.Encode(&buf, thumb, imaging.PNG); err != nil {
		return err
	}

	preview, err := s.payloads.Put("image/png", &buf)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pendingRef != nil {
		if err := s.payloads.Release(s.pendingRef.Preview); err != nil {
			s.logger.Warn("failed to release previous preview", zap.Error(err))
		}
	}
	s.pendingRef = &PendingReference{
		Data:     append([]byte(nil), data...),
		MimeType: mimeType,
		Preview:  preview,
	}
	return nil
}

// RemoveReference drops the pending reference image, if any, releasing its
// preview handle.
func (s *Studio) RemoveReference() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pendingRef == nil {
		return
	}
	if err := s.payloads.Release(s.pendingRef.Preview); err != nil {
		s.logger.Warn("failed to release preview", zap.Error(err))
	}
	s.pendingRef = nil
}

func (s *Studio) Reference() *PendingReference {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pendingRef == nil {
		return nil
	}
	ref := *s.pendingRef
	return &ref
}

// OpenPreview returns a reader over the pending reference's preview image.
func (s *Studio) OpenPreview() (io.ReadCloser, string, error) {
	s.mu.Lock()
	ref := s.pendingRef
	s.mu.Unlock()

	if ref == nil {
		return nil, "", errors.New("no reference image staged")
	}
	reader, meta, err := s.payloads.Open(ref.Preview)
	if err != nil {
		return nil, "", err
	}
	return reader, meta.ContentType, nil
}

// PlayNarration reads the last generated video's narration aloud in the
// active language. Playback already in progress is restarted.
func (s *Studio) PlayNarration() error {
	s.mu.Lock()

	if s.lastVideo == nil || s.lastVideo.Narration == "" {
		s.mu.Unlock()
		return ErrNoNarration
	}

	s.stopNarrationLocked()
	s.narrationSeq++
	seq := s.narrationSeq
	s.narrating = true
	text := s.lastVideo.Narration
	lang := i18n.BaseLang(s.language)
	s.mu.Unlock()

	err := s.speaker.Speak(text, lang, func(error) {
		s.mu.Lock()
		if s.narrationSeq == seq {
			s.narrating = false
		}
		s.mu.Unlock()
	})
	if err != nil {
		s.mu.Lock()
		if s.narrationSeq == seq {
			s.narrating = false
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Studio) StopNarration() {
	s.mu.Lock()
	s.stopNarrationLocked()
	s.mu.Unlock()
}

// stopNarrationLocked bumps the sequence so stale completion callbacks
// cannot clobber a newer playback's state.
func (s *Studio) stopNarrationLocked() {
	s.narrationSeq++
	s.narrating = false
	s.speaker.Cancel()
}

// Close releases every video payload handle and the pending preview exactly
// once and stops narration playback. Generations still in flight finish in
// the background; their results are released on arrival.
func (s *Studio) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	s.stopNarrationLocked()

	var result *multierror.Error
	for _, asset := range s.assets {
		if asset.Kind == models.AssetKindVideo {
			if err := s.payloads.Release(asset.Video); err != nil {
				result = multierror.Append(result, err)
			}
		}
	}
	if s.pendingRef != nil {
		if err := s.payloads.Release(s.pendingRef.Preview); err != nil {
			result = multierror.Append(result, err)
		}
		s.pendingRef = nil
	}

	metrics.AssetsLive.Set(0)
	s.assets = nil
	s.lastVideo = nil
	s.lastImages = nil

	return result.ErrorOrNil()
}

// nextCreatedAtLocked hands out strictly increasing timestamps so the
// most-recent-first ordering is total even within one clock tick.
func (s *Studio) nextCreatedAtLocked() time.Time {
	now := time.Now()
	if !now.After(s.lastCreatedAt) {
		now = s.lastCreatedAt.Add(time.Nanosecond)
	}
	s.lastCreatedAt = now
	return now
}
