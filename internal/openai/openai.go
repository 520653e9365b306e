package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pep299/article-bias-analyzer/internal/apperror"
)

// DefaultBaseURL is the public OpenAI API root
const DefaultBaseURL = "https://api.openai.com/v1"

// Client handles OpenAI API operations
type Client struct {
	baseURL      string
	model        string
	maxTokens    int
	temperature  float64
	probeTimeout time.Duration
	httpClient   *http.Client
	logger       *zap.Logger
}

// Options configures a Client
type Options struct {
	BaseURL        string
	Model          string
	MaxTokens      int
	Temperature    float64
	RequestTimeout time.Duration
	ProbeTimeout   time.Duration
}

// NewClient creates a new OpenAI API client
func NewClient(opts Options, logger *zap.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		model:        opts.Model,
		maxTokens:    opts.MaxTokens,
		temperature:  opts.Temperature,
		probeTimeout: opts.ProbeTimeout,
		httpClient: &http.Client{
			Timeout: opts.RequestTimeout,
		},
		logger: logger,
	}
}

// Model returns the chat model identifier
func (c *Client) Model() string {
	return c.model
}

// Message is one chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// APIError is a non-2xx answer from the provider
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Message)
}

// chatRequest represents the request structure for the chat completion API
type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
}

// chatResponse represents the response structure from the chat completion API
type chatResponse struct {
	Choices []struct {
		Message *Message `json:"message"`
	} `json:"choices"`
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// ListModels probes the model list endpoint with the given key. It is
// used only to check that the provider accepts the key.
func (c *Client) ListModels(ctx context.Context, apiKey string) error {
	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req, apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperror.Wrap(apperror.KindTransport, "probe", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readAPIError(resp)
	}

	// Drain so the connection can be reused
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// ChatCompletion sends messages and returns the first choice's content
func (c *Client) ChatCompletion(ctx context.Context, apiKey string, messages []Message) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(httpReq, apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", apperror.Wrap(apperror.KindTransport, "chat completion", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("chat completion returned",
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", readAPIError(resp)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", apperror.Wrap(apperror.KindMalformedResponse, "chat completion", fmt.Errorf("decoding response: %w", err))
	}

	if len(chatResp.Choices) == 0 || chatResp.Choices[0].Message == nil {
		return "", apperror.New(apperror.KindMalformedResponse, "chat completion", "no choices in response")
	}

	return chatResp.Choices[0].Message.Content, nil
}

func (c *Client) setHeaders(req *http.Request, apiKey string) {
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")
}

// readAPIError builds an APIError from a failed response, preferring the
// provider's error message over the raw body.
func readAPIError(resp *http.Response) error {
	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	message := strings.TrimSpace(string(bodyBytes))
	var eb errorBody
	if err := json.Unmarshal(bodyBytes, &eb); err == nil && eb.Error.Message != "" {
		message = eb.Error.Message
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	return &APIError{StatusCode: resp.StatusCode, Message: message}
}
