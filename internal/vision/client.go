package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/boxlens/boxlens-go/internal/conf"
	"github.com/boxlens/boxlens-go/internal/errors"
	"github.com/boxlens/boxlens-go/internal/httpclient"
	"github.com/boxlens/boxlens-go/internal/logging"
	"github.com/boxlens/boxlens-go/internal/observability/metrics"
)

// maxResponseBody caps how much of the service response is read.
const maxResponseBody = 4 << 20 // 4 MiB

// supportedMIMETypes lists the image payload types the service accepts.
var supportedMIMETypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// Analyzer is the contract the pipeline depends on; satisfied by
// Client and by test fakes.
type Analyzer interface {
	Analyze(ctx context.Context, image []byte, mimeType string) (*Analysis, error)
}

// Client calls the external vision-understanding service. It performs
// no retries; disposition of failures is the caller's concern.
type Client struct {
	settings *conf.VisionSettings
	http     *httpclient.Client
	logger   *slog.Logger
	metrics  *metrics.VisionMetrics
}

// NewClient creates a vision client from settings. A nil metrics
// handle disables instrumentation.
func NewClient(settings *conf.VisionSettings, m *metrics.VisionMetrics) *Client {
	timeout := time.Duration(settings.Timeout) * time.Second
	return &Client{
		settings: settings,
		http: httpclient.New(&httpclient.Config{
			DefaultTimeout: timeout,
		}),
		logger:  logging.ForService("vision"),
		metrics: m,
	}
}

// chat-completions request/response shapes; only the fields this
// client reads or writes.
type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Analyze submits one image to the vision service and returns the
// parsed, normalized analysis. Failures are either a vision-service
// error (transport, timeout, non-success status) or a
// response-parsing error (no JSON object in the reply).
func (c *Client) Analyze(ctx context.Context, image []byte, mimeType string) (*Analysis, error) {
	if err := c.validateImage(image, mimeType); err != nil {
		return nil, err
	}

	start := time.Now()
	content, err := c.requestCompletion(ctx, image, mimeType)
	if err != nil {
		c.recordFailure(err, start)
		return nil, err
	}

	var analysis Analysis
	if !extractJSONObject(content, &analysis) {
		err := errors.Newf("no parseable JSON object in vision response").
			Component("vision").
			Category(errors.CategoryResponseParsing).
			Context("response_length", len(content)).
			Build()
		c.recordFailure(err, start)
		return nil, err
	}

	analysis.normalize(c.settings.MaxDetections)

	if c.metrics != nil {
		c.metrics.RecordRequest("success", time.Since(start).Seconds())
		c.metrics.RecordDetections(len(analysis.Items))
	}

	if c.settings.Debug && c.logger != nil {
		c.logger.Debug("vision analysis complete",
			"items", len(analysis.Items),
			"duration_ms", time.Since(start).Milliseconds())
	}

	return &analysis, nil
}

// recordFailure classifies a failed call for metrics. Parse failures
// are counted separately from transport and service errors.
func (c *Client) recordFailure(err error, start time.Time) {
	if c.metrics == nil {
		return
	}
	if errors.IsCategory(err, errors.CategoryResponseParsing) {
		c.metrics.RecordParseFailure()
		c.metrics.RecordRequest("parse_error", time.Since(start).Seconds())
		return
	}
	c.metrics.RecordRequest("service_error", time.Since(start).Seconds())
}

// validateImage checks payload type and size before spending a service call.
func (c *Client) validateImage(image []byte, mimeType string) error {
	if len(image) == 0 {
		return errors.Newf("empty image payload").
			Component("vision").
			Category(errors.CategoryImageValidation).
			Build()
	}
	if !supportedMIMETypes[mimeType] {
		return errors.Newf("unsupported image type %q", mimeType).
			Component("vision").
			Category(errors.CategoryImageValidation).
			Build()
	}
	if limit := c.settings.MaxImageSize; limit > 0 && int64(len(image)) > limit {
		return errors.Newf("image payload of %d bytes exceeds limit", len(image)).
			Component("vision").
			Category(errors.CategoryImageValidation).
			ImageContext(mimeType, int64(len(image))).
			Build()
	}
	return nil
}

// requestCompletion performs the HTTP round trip and returns the raw
// free-text content of the first choice.
func (c *Client) requestCompletion(ctx context.Context, image []byte, mimeType string) (string, error) {
	timeout := time.Duration(c.settings.Timeout) * time.Second

	payload := chatRequest{
		Model: c.settings.Model,
		Messages: []chatMessage{
			{
				Role: "user",
				Content: []contentPart{
					{Type: "text", Text: analysisInstructions},
					{
						Type: "image_url",
						ImageURL: &imageURL{
							URL: fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image)),
						},
					},
				},
			},
		},
		MaxTokens: 4096,
	}

	req, err := newJSONRequest(ctx, c.settings.Endpoint, payload)
	if err != nil {
		return "", errors.New(err).
			Component("vision").
			Category(errors.CategoryVisionService).
			Build()
	}
	if c.settings.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.settings.APIKey)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return "", errors.New(fmt.Errorf("vision service call failed: %w", err)).
			Component("vision").
			Category(errors.CategoryVisionService).
			NetworkContext(c.settings.Endpoint, timeout).
			Build()
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return "", errors.New(fmt.Errorf("reading vision response: %w", err)).
			Component("vision").
			Category(errors.CategoryVisionService).
			Build()
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errors.Newf("vision service returned status %d", resp.StatusCode).
			Component("vision").
			Category(errors.CategoryVisionService).
			Context("status_code", resp.StatusCode).
			NetworkContext(c.settings.Endpoint, timeout).
			Build()
	}

	var parsed chatResponse
	// The envelope itself is JSON; the interesting content inside it
	// is free text.
	if !extractJSONObject(string(body), &parsed) {
		return "", errors.Newf("vision response envelope is not JSON").
			Component("vision").
			Category(errors.CategoryResponseParsing).
			Build()
	}
	if parsed.Error != nil {
		return "", errors.Newf("vision service error: %s", parsed.Error.Message).
			Component("vision").
			Category(errors.CategoryVisionService).
			Context("error_type", parsed.Error.Type).
			Build()
	}
	if len(parsed.Choices) == 0 {
		return "", errors.Newf("vision response contains no choices").
			Component("vision").
			Category(errors.CategoryResponseParsing).
			Build()
	}

	return parsed.Choices[0].Message.Content, nil
}

// newJSONRequest builds a POST request with a JSON body.
func newJSONRequest(ctx context.Context, url string, payload any) (*http.Request, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}
