package anthropic

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/h2non/filetype"

	"shotsort/internal/logging"
	"shotsort/internal/services"
)

const (
	defaultBaseURL         = "https://api.anthropic.com/v1/messages"
	defaultModel           = "claude-opus-4-5-20251101"
	defaultMaxTokens       = 1024
	defaultRefineMaxTokens = 256
	defaultHTTPTimeout     = 60 * time.Second
	apiVersion             = "2023-06-01"
	fallbackMediaType      = "image/png"
)

// Config captures the runtime settings required to talk to the provider.
// The credential is supplied per call and never stored here.
type Config struct {
	BaseURL         string
	Model           string
	MaxTokens       int
	RefineMaxTokens int
	TimeoutSeconds  int
}

// Client issues classification requests to the Messages API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger attaches a logger for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient constructs a client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			BaseURL:         strings.TrimSpace(cfg.BaseURL),
			Model:           strings.TrimSpace(cfg.Model),
			MaxTokens:       cfg.MaxTokens,
			RefineMaxTokens: cfg.RefineMaxTokens,
			TimeoutSeconds:  cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	if client.cfg.Model == "" {
		client.cfg.Model = defaultModel
	}
	if client.cfg.MaxTokens <= 0 {
		client.cfg.MaxTokens = defaultMaxTokens
	}
	if client.cfg.RefineMaxTokens <= 0 {
		client.cfg.RefineMaxTokens = defaultRefineMaxTokens
	}
	return client
}

// StatusError reports a non-2xx provider response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("anthropic request: http %d: %s", e.StatusCode, summarizePayloadSnippet(e.Body))
}

// Is lets errors.Is(err, services.ErrTransport) match status failures.
func (e *StatusError) Is(target error) bool {
	return target == services.ErrTransport
}

// Classify asks the provider for a proposed filename and category.
func (c *Client) Classify(ctx context.Context, image []byte, credential string) (Classification, error) {
	text, err := c.complete(ctx, "classify", image, ClassifyPrompt(), c.cfg.MaxTokens, credential)
	if err != nil {
		return Classification{}, err
	}
	return ParseClassification(text)
}

// Subcategory asks the provider for a more specific label under parentCategory.
func (c *Client) Subcategory(ctx context.Context, image []byte, parentCategory, credential string) (string, error) {
	parentCategory = strings.TrimSpace(parentCategory)
	if parentCategory == "" {
		return "", errors.New("anthropic subcategory: parent category required")
	}
	text, err := c.complete(ctx, "subcategory", image, SubcategoryPrompt(parentCategory), c.cfg.RefineMaxTokens, credential)
	if err != nil {
		return "", err
	}
	return ParseSubcategory(text)
}

// MediaType sniffs the image format from its bytes, defaulting to PNG.
func MediaType(image []byte) string {
	kind, err := filetype.Match(image)
	if err != nil || kind == filetype.Unknown || kind.MIME.Type != "image" {
		return fallbackMediaType
	}
	return kind.MIME.Value
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (c *Client) complete(ctx context.Context, op string, image []byte, prompt string, maxTokens int, credential string) (string, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return "", services.Wrap(services.ErrValidation, "anthropic", op, "credential required", nil)
	}
	if len(image) == 0 {
		return "", services.Wrap(services.ErrValidation, "anthropic", op, "image required", nil)
	}
	mediaType := MediaType(image)
	payload := messagesRequest{
		Model:     c.cfg.Model,
		MaxTokens: maxTokens,
		Messages: []message{{
			Role: "user",
			Content: []contentBlock{
				{
					Type: "image",
					Source: &imageSource{
						Type:      "base64",
						MediaType: mediaType,
						Data:      base64.StdEncoding.EncodeToString(image),
					},
				},
				{Type: "text", Text: prompt},
			},
		}},
	}

	c.logger.Debug("anthropic request",
		logging.String("operation", op),
		logging.String("model", c.cfg.Model),
		logging.String("media_type", mediaType),
		logging.Int("image_bytes", len(image)),
		logging.Secret("credential", credential),
	)

	body, err := c.send(ctx, payload, credential)
	if err != nil {
		return "", err
	}
	var reply messagesResponse
	if err := json.Unmarshal(body, &reply); err != nil {
		return "", services.Wrap(services.ErrContract, "anthropic", op, "decode response", err)
	}
	if len(reply.Content) == 0 || strings.TrimSpace(reply.Content[0].Text) == "" {
		return "", ErrNoText
	}
	return reply.Content[0].Text, nil
}

func (c *Client) send(ctx context.Context, payload messagesRequest, credential string) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("anthropic request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("anthropic request: new request: %w", err)
	}
	req.Header.Set("x-api-key", credential)
	req.Header.Set("anthropic-version", apiVersion)
	req.Header.Set("content-type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, services.Wrap(services.ErrTimeout, "anthropic", "send", fmt.Sprintf("timeout=%s", c.timeoutDuration()), err)
		}
		return nil, services.Wrap(services.ErrTransport, "anthropic", "send", "http error", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, "anthropic", "send", "read body", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}

func (c *Client) timeoutDuration() time.Duration {
	if c == nil || c.httpClient == nil || c.httpClient.Timeout <= 0 {
		return defaultHTTPTimeout
	}
	return c.httpClient.Timeout
}
