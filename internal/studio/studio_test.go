package studio

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studioia-backend/internal/genai"
	"studioia-backend/internal/models"
	"studioia-backend/internal/payload"
)

const eventuallyTick = 2 * time.Millisecond

type fakeGenerator struct {
	payloads *payload.Store

	mu         sync.Mutex
	videoCalls int
	imageCalls int

	blockVideo chan struct{} // when non-nil, GenerateVideo waits on it

	videoErr  error
	narration string

	images    []string
	imagesErr error
}

func (f *fakeGenerator) GenerateVideo(_ context.Context, _ string, _ *genai.ImageInput) (*genai.VideoResult, error) {
	f.mu.Lock()
	f.videoCalls++
	block := f.blockVideo
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if f.videoErr != nil {
		return nil, f.videoErr
	}

	handle, err := f.payloads.Put("video/mp4", bytes.NewReader([]byte("generated-video")))
	if err != nil {
		return nil, err
	}
	return &genai.VideoResult{Handle: handle, Narration: f.narration}, nil
}

func (f *fakeGenerator) GenerateImages(_ context.Context, _ string, _ int, _ string) ([]string, error) {
	f.mu.Lock()
	f.imageCalls++
	f.mu.Unlock()

	if f.imagesErr != nil {
		return nil, f.imagesErr
	}
	return f.images, nil
}

func (f *fakeGenerator) calls() (video, images int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.videoCalls, f.imageCalls
}

type fakeSpeaker struct {
	mu      sync.Mutex
	spoken  []string
	lang    string
	cancels int
}

func (f *fakeSpeaker) Speak(text, lang string, _ func(err error)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spoken = append(f.spoken, text)
	f.lang = lang
	return nil
}

func (f *fakeSpeaker) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
}

func (f *fakeSpeaker) cancelCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancels
}

func newTestStudio(t *testing.T) (*Studio, *fakeGenerator, *fakeSpeaker, *payload.Store) {
	payloads := payload.NewStore(t.TempDir())
	gen := &fakeGenerator{payloads: payloads, narration: "Gentle waves, distant gulls."}
	speaker := &fakeSpeaker{}
	s := New(Config{Generator: gen, Payloads: payloads, Speaker: speaker, Language: "en"})
	t.Cleanup(func() { s.Close() })
	return s, gen, speaker, payloads
}

func waitIdle(t *testing.T, s *Studio) {
	require.Eventually(t, func() bool {
		return !s.VideoStatus().Generating && !s.ImageStatus().Generating
	}, 2*time.Second, eventuallyTick)
}

func pngBytes(t *testing.T) []byte {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))))
	return buf.Bytes()
}

func TestGenerateVideo(t *testing.T) {
	s, _, _, payloads := newTestStudio(t)

	accepted, err := s.GenerateVideo("sunset over mountains")
	require.NoError(t, err)
	require.True(t, accepted)

	waitIdle(t, s)

	status := s.VideoStatus()
	require.NotNil(t, status.Last)
	assert.Empty(t, status.Error)
	assert.Equal(t, models.AssetKindVideo, status.Last.Kind)
	assert.Equal(t, "sunset over mountains", status.Last.Prompt)
	assert.Equal(t, "Gentle waves, distant gulls.", status.Last.Narration)
	assert.NotEmpty(t, status.Last.Video)

	assets := s.Assets()
	require.Len(t, assets, 1)
	assert.Equal(t, status.Last.ID, assets[0].ID)
	assert.Equal(t, 1, payloads.Len())
}

func TestGenerateVideoBusyIsNoOp(t *testing.T) {
	s, gen, _, _ := newTestStudio(t)
	gen.blockVideo = make(chan struct{})

	accepted, err := s.GenerateVideo("first")
	require.NoError(t, err)
	require.True(t, accepted)

	// Second submission while generating: silently dropped, no backend call.
	accepted, err = s.GenerateVideo("second")
	require.NoError(t, err)
	assert.False(t, accepted)

	close(gen.blockVideo)
	waitIdle(t, s)

	videoCalls, _ := gen.calls()
	assert.Equal(t, 1, videoCalls)
	assert.Len(t, s.Assets(), 1)

	// The surface is submittable again once idle.
	gen.blockVideo = nil
	accepted, err = s.GenerateVideo("third")
	require.NoError(t, err)
	assert.True(t, accepted)
	waitIdle(t, s)
	assert.Len(t, s.Assets(), 2)
}

func TestGenerateVideoFailureSetsPrefixedError(t *testing.T) {
	s, gen, _, _ := newTestStudio(t)
	gen.videoErr = &genai.GenerationError{Message: "backend said no"}

	accepted, err := s.GenerateVideo("doomed")
	require.NoError(t, err)
	require.True(t, accepted)
	waitIdle(t, s)

	status := s.VideoStatus()
	assert.Nil(t, status.Last)
	assert.Contains(t, status.Error, "Failed to generate video.")
	assert.Contains(t, status.Error, "backend said no")
	assert.Empty(t, s.Assets())

	// A new submission clears the previous error.
	gen.videoErr = nil
	_, err = s.GenerateVideo("retry")
	require.NoError(t, err)
	waitIdle(t, s)
	assert.Empty(t, s.VideoStatus().Error)
}

func TestGenerateVideoRequiresPromptOrReference(t *testing.T) {
	s, _, _, _ := newTestStudio(t)

	_, err := s.GenerateVideo("   ")
	assert.ErrorIs(t, err, ErrNothingToGenerate)

	require.NoError(t, s.StageReference(pngBytes(t), "image/png"))
	accepted, err := s.GenerateVideo("")
	require.NoError(t, err)
	assert.True(t, accepted)
	waitIdle(t, s)
}

func TestGenerateImagesBatch(t *testing.T) {
	s, gen, _, _ := newTestStudio(t)
	gen.images = []string{"aW1nMQ==", "aW1nMg==", "aW1nMw=="}

	accepted, err := s.GenerateImages("a red fox", 3, "16:9")
	require.NoError(t, err)
	require.True(t, accepted)
	waitIdle(t, s)

	assets := s.Assets()
	require.Len(t, assets, 3)
	// Backend order is preserved at the front of the collection.
	assert.Equal(t, "aW1nMQ==", assets[0].Image)
	assert.Equal(t, "aW1nMg==", assets[1].Image)
	assert.Equal(t, "aW1nMw==", assets[2].Image)
	assert.True(t, assets[0].CreatedAt.Before(assets[1].CreatedAt))
	assert.True(t, assets[1].CreatedAt.Before(assets[2].CreatedAt))

	status := s.ImageStatus()
	require.Len(t, status.Last, 3)

	// A video generated afterwards lands in front of the batch.
	_, err = s.GenerateVideo("newer")
	require.NoError(t, err)
	waitIdle(t, s)
	assets = s.Assets()
	require.Len(t, assets, 4)
	assert.Equal(t, models.AssetKindVideo, assets[0].Kind)
}

func TestGenerateImagesEmptyResult(t *testing.T) {
	s, gen, _, _ := newTestStudio(t)
	gen.imagesErr = genai.ErrEmptyResult

	accepted, err := s.GenerateImages("a red fox", 4, "1:1")
	require.NoError(t, err)
	require.True(t, accepted)
	waitIdle(t, s)

	status := s.ImageStatus()
	assert.Contains(t, status.Error, "Failed to generate images.")
	assert.Empty(t, s.Assets(), "collection unchanged on empty result")
}

func TestGenerateImagesRequiresPrompt(t *testing.T) {
	s, _, _, _ := newTestStudio(t)

	_, err := s.GenerateImages("  ", 2, "1:1")
	assert.ErrorIs(t, err, ErrEmptyPrompt)
}

func TestDeleteAsset(t *testing.T) {
	s, _, _, payloads := newTestStudio(t)

	_, err := s.GenerateVideo("to be deleted")
	require.NoError(t, err)
	waitIdle(t, s)

	asset := s.VideoStatus().Last
	require.NotNil(t, asset)
	require.Equal(t, 1, payloads.Len())

	assert.True(t, s.DeleteAsset(asset.ID))
	assert.Empty(t, s.Assets())
	assert.Equal(t, 0, payloads.Len(), "video payload released on delete")
	assert.Nil(t, s.VideoStatus().Last, "most-recent pointer cleared")

	// Nonexistent id (including the just-deleted one) is a no-op.
	assert.False(t, s.DeleteAsset(asset.ID))
	assert.False(t, s.DeleteAsset(uuid.New()))
}

func TestDeleteImageFromLastBatch(t *testing.T) {
	s, gen, _, _ := newTestStudio(t)
	gen.images = []string{"YQ==", "Yg=="}

	_, err := s.GenerateImages("pair", 2, "1:1")
	require.NoError(t, err)
	waitIdle(t, s)

	assets := s.Assets()
	require.Len(t, assets, 2)
	require.True(t, s.DeleteAsset(assets[0].ID))

	status := s.ImageStatus()
	require.Len(t, status.Last, 1)
	assert.Equal(t, assets[1].ID, status.Last[0].ID)
}

func TestStageReferenceReplaceReleasesPreview(t *testing.T) {
	s, _, _, payloads := newTestStudio(t)
	data := pngBytes(t)

	require.NoError(t, s.StageReference(data, "image/png"))
	first := s.Reference()
	require.NotNil(t, first)
	assert.Equal(t, 1, payloads.Len())

	require.NoError(t, s.StageReference(data, "image/png"))
	second := s.Reference()
	require.NotNil(t, second)
	assert.NotEqual(t, first.Preview, second.Preview)
	assert.Equal(t, 1, payloads.Len(), "old preview released before new install")

	s.RemoveReference()
	assert.Nil(t, s.Reference())
	assert.Equal(t, 0, payloads.Len())

	// Removing again is a no-op.
	s.RemoveReference()
}

func TestStageReferenceRejectsNonImage(t *testing.T) {
	s, _, _, payloads := newTestStudio(t)

	err := s.StageReference([]byte("plain text"), "text/plain")
	assert.ErrorIs(t, err, ErrInvalidInput)

	err = s.StageReference([]byte("not a png"), "image/png")
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.Equal(t, 0, payloads.Len())
}

func TestNarrationPlayback(t *testing.T) {
	s, _, speaker, _ := newTestStudio(t)

	assert.ErrorIs(t, s.PlayNarration(), ErrNoNarration)

	_, err := s.GenerateVideo("with narration")
	require.NoError(t, err)
	waitIdle(t, s)

	require.NoError(t, s.PlayNarration())
	assert.True(t, s.VideoStatus().NarrationPlaying)
	assert.Equal(t, []string{"Gentle waves, distant gulls."}, speaker.spoken)
	assert.Equal(t, "en", speaker.lang)

	s.StopNarration()
	assert.False(t, s.VideoStatus().NarrationPlaying)
}

func TestNewGenerationStopsNarration(t *testing.T) {
	s, _, speaker, _ := newTestStudio(t)

	_, err := s.GenerateVideo("first")
	require.NoError(t, err)
	waitIdle(t, s)

	require.NoError(t, s.PlayNarration())
	before := speaker.cancelCount()

	_, err = s.GenerateVideo("second")
	require.NoError(t, err)

	assert.Greater(t, speaker.cancelCount(), before)
	assert.False(t, s.VideoStatus().NarrationPlaying)
	waitIdle(t, s)
}

func TestCloseReleasesEverything(t *testing.T) {
	s, gen, _, payloads := newTestStudio(t)
	gen.images = []string{"YQ=="}

	_, err := s.GenerateVideo("video one")
	require.NoError(t, err)
	waitIdle(t, s)
	_, err = s.GenerateVideo("video two")
	require.NoError(t, err)
	waitIdle(t, s)
	_, err = s.GenerateImages("image", 1, "1:1")
	require.NoError(t, err)
	waitIdle(t, s)
	require.NoError(t, s.StageReference(pngBytes(t), "image/png"))

	require.Equal(t, 3, payloads.Len()) // two videos + one preview

	require.NoError(t, s.Close())
	assert.Equal(t, 0, payloads.Len())
	assert.Empty(t, s.Assets())

	// Close is idempotent and further submissions are dropped.
	require.NoError(t, s.Close())
	accepted, err := s.GenerateVideo("late")
	require.NoError(t, err)
	assert.False(t, accepted)
}

func TestLateResultAfterCloseIsReleased(t *testing.T) {
	s, gen, _, payloads := newTestStudio(t)
	gen.blockVideo = make(chan struct{})

	_, err := s.GenerateVideo("slow")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	close(gen.blockVideo)
	require.Eventually(t, func() bool { return payloads.Len() == 0 }, 2*time.Second, eventuallyTick)
	assert.Empty(t, s.Assets())
}

func TestSetLanguage(t *testing.T) {
	s, gen, _, _ := newTestStudio(t)

	assert.True(t, s.SetLanguage("pt"))
	assert.False(t, s.SetLanguage("tlh"))
	assert.Equal(t, "pt", s.Language())

	gen.videoErr = errors.New("boom")
	_, err := s.GenerateVideo("x")
	require.NoError(t, err)
	waitIdle(t, s)
	assert.Contains(t, s.VideoStatus().Error, "Falha ao gerar o vídeo.")
}

func TestOpenAssetImage(t *testing.T) {
	s, gen, _, _ := newTestStudio(t)
	gen.images = []string{"aGVsbG8="} // "hello"

	_, err := s.GenerateImages("greeting", 1, "1:1")
	require.NoError(t, err)
	waitIdle(t, s)

	assets := s.Assets()
	require.Len(t, assets, 1)

	reader, contentType, asset, err := s.OpenAsset(assets[0].ID)
	require.NoError(t, err)
	defer reader.Close()

	assert.Equal(t, "image/png", contentType)
	assert.Equal(t, assets[0].ID, asset.ID)

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}
