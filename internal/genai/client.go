package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"studioia-backend/internal/payload"
)

const (
	videoModel = "veo-2.0-generate-001"
	imageModel = "imagen-4.0-generate-001"
	textModel  = "gemini-2.5-flash"

	defaultBaseURL      = "https://generativelanguage.googleapis.com/v1beta"
	defaultPollInterval = 10 * time.Second

	narrationSystemInstruction = "You are an expert sound designer. Based on the following video description, " +
		"create a short, evocative audio script that describes the sounds and ambiance. The script should be " +
		"suitable for a text-to-speech engine to read aloud. Do not add any prefixes like 'Audio script:' or " +
		"formatting. Just provide the descriptive text."
)

// AspectRatios enumerates the ratios the image model accepts.
var AspectRatios = map[string]bool{
	"1:1":  true,
	"16:9": true,
	"9:16": true,
	"4:3":  true,
	"3:4":  true,
}

// ImageInput is an optional reference image conditioning a video generation.
type ImageInput struct {
	Data     []byte
	MimeType string
}

// VideoResult holds the materialized video payload and its narration script.
// The caller owns Handle and must release it.
type VideoResult struct {
	Handle    payload.Handle
	Narration string
}

type Config struct {
	APIKey       string
	BaseURL      string
	PollInterval time.Duration
	HTTPClient   *http.Client
	Logger       *zap.Logger
}

// Client talks to the hosted generation backend: long-running video
// operations, eager image generation and short text generation.
type Client struct {
	apiKey       string
	baseURL      string
	pollInterval time.Duration
	httpClient   *http.Client
	payloads     *payload.Store
	logger       *zap.Logger
}

func NewClient(cfg Config, payloads *payload.Store) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Client{
		apiKey:       cfg.APIKey,
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		pollInterval: cfg.PollInterval,
		httpClient:   cfg.HTTPClient,
		payloads:     payloads,
		logger:       cfg.Logger,
	}
}

// GenerateVideo submits a video generation, polls the operation until it
// resolves, downloads the binary into the payload store and joins it with a
// concurrently generated narration script. The narration sub-request can
// never fail the operation: its errors collapse into a fallback string.
func (c *Client) GenerateVideo(ctx context.Context, prompt string, image *ImageInput) (*VideoResult, error) {
	if c.apiKey == "" {
		return nil, ErrConfigurationMissing
	}

	c.logger.Info("starting video generation", zap.String("prompt", prompt), zap.Bool("has_image", image != nil))

	var (
		handle    payload.Handle
		narration string
	)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		narration = c.narrationOrFallback(gctx, prompt)
		return nil
	})

	g.Go(func() error {
		op, err := c.submitVideo(gctx, prompt, image)
		if err != nil {
			return err
		}

		for !op.Done {
			c.logger.Debug("operation not done yet, waiting", zap.String("operation", op.Name))
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-time.After(c.pollInterval):
			}
			op, err = c.pollOperation(gctx, op.Name)
			if err != nil {
				return err
			}
		}

		if op.Error != nil {
			return &GenerationError{Message: op.Error.Message}
		}

		uri := op.downloadURI()
		if uri == "" {
			return ErrMissingResult
		}

		handle, err = c.fetchVideo(gctx, uri)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &VideoResult{Handle: handle, Narration: narration}, nil
}

// GenerateImages requests count images at the given aspect ratio. The
// backend resolves this eagerly; there is no operation to poll.
func (c *Client) GenerateImages(ctx context.Context, prompt string, count int, aspectRatio string) ([]string, error) {
	if c.apiKey == "" {
		return nil, ErrConfigurationMissing
	}

	req := imageRequest{
		Instances: []imageInstance{{Prompt: prompt}},
		Parameters: imageParameters{
			SampleCount:    count,
			AspectRatio:    aspectRatio,
			OutputMimeType: "image/png",
		},
	}

	var resp imageResponse
	if err := c.post(ctx, fmt.Sprintf("/models/%s:predict", imageModel), req, &resp); err != nil {
		return nil, err
	}

	if len(resp.Predictions) == 0 {
		return nil, ErrEmptyResult
	}

	images := make([]string, 0, len(resp.Predictions))
	for _, p := range resp.Predictions {
		images = append(images, p.BytesBase64Encoded)
	}
	return images, nil
}

func (c *Client) submitVideo(ctx context.Context, prompt string, image *ImageInput) (*operation, error) {
	instance := videoInstance{Prompt: prompt}
	if image != nil {
		instance.Image = &inlineImage{
			BytesBase64Encoded: base64.StdEncoding.EncodeToString(image.Data),
			MimeType:           image.MimeType,
		}
	}

	req := videoRequest{
		Instances:  []videoInstance{instance},
		Parameters: videoParameters{SampleCount: 1},
	}

	var op operation
	if err := c.post(ctx, fmt.Sprintf("/models/%s:predictLongRunning", videoModel), req, &op); err != nil {
		return nil, err
	}
	return &op, nil
}

func (c *Client) pollOperation(ctx context.Context, name string) (*operation, error) {
	var op operation
	if err := c.get(ctx, "/"+name, &op); err != nil {
		return nil, err
	}
	return &op, nil
}

func (c *Client) fetchVideo(ctx context.Context, uri string) (payload.Handle, error) {
	// The download locator already carries its own query in most cases; the
	// credential rides along either way.
	sep := "?"
	if strings.Contains(uri, "?") {
		sep = "&"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri+sep+"key="+c.apiKey, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &DownloadError{Status: resp.Status}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "video/mp4"
	}

	return c.payloads.Put(contentType, resp.Body)
}

// narrationOrFallback asks the text model for a short audio script. Any
// failure, including an empty answer, yields a deterministic fallback
// derived from the prompt.
func (c *Client) narrationOrFallback(ctx context.Context, prompt string) string {
	req := generateContentRequest{
		SystemInstruction: &content{Parts: []part{{Text: narrationSystemInstruction}}},
		Contents:          []content{{Parts: []part{{Text: fmt.Sprintf("Video description: %q", prompt)}}}},
	}

	var resp generateContentResponse
	if err := c.post(ctx, fmt.Sprintf("/models/%s:generateContent", textModel), req, &resp); err != nil {
		c.logger.Warn("failed to generate audio description", zap.Error(err))
		return fmt.Sprintf("A scene depicting: %s", prompt)
	}

	text := strings.TrimSpace(resp.text())
	if text == "" {
		c.logger.Warn("audio description response contained no text")
		return fmt.Sprintf("A scene depicting: %s", prompt)
	}
	return text
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("backend returned %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
