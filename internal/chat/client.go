// Package chat forwards free-form messages to an OpenAI-compatible
// completion API (Groq by default).
package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"xrpl-buy-bot/internal/observability"
)

// Default configuration values.
const (
	DefaultBaseURL           = "https://api.groq.com/openai/v1"
	DefaultModel             = "llama-3.3-70b-versatile"
	DefaultTemperature       = 0.7
	DefaultMaxTokens         = 1500
	DefaultRequestsPerMinute = 30
)

var (
	// ErrRateLimited is returned when the API or the local limiter refuses a request.
	ErrRateLimited = errors.New("completion rate limited")
	// ErrEmptyReply is returned when the API answers without content.
	ErrEmptyReply = errors.New("completion returned no content")
)

// SystemPrompt returns the persona prompt for a bot tracking currency.
func SystemPrompt(currency string) string {
	return fmt.Sprintf("You are helpful, truthful, witty AI like Grok. Talk in NYC street style: direct, fun, no fluff. "+
		"For %s/XRP: say /price or check XPMarket.", currency)
}

// Options contains configuration for creating a Client.
type Options struct {
	APIKey            string
	BaseURL           string // Default: Groq
	Model             string
	SystemPrompt      string
	Temperature       float32
	MaxTokens         int
	RequestsPerMinute int // <= 0 disables the local limiter
	HTTPClient        *http.Client
	Logger            *zap.Logger
}

// Client sends one completion request per message.
type Client struct {
	api          *openai.Client
	model        string
	systemPrompt string
	temperature  float32
	maxTokens    int
	limiter      *rate.Limiter
	logger       *zap.Logger
}

// NewClient creates a completion client.
func NewClient(opts Options) *Client {
	cfg := openai.DefaultConfig(opts.APIKey)
	cfg.BaseURL = DefaultBaseURL
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}

	model := opts.Model
	if model == "" {
		model = DefaultModel
	}
	temperature := opts.Temperature
	if temperature == 0 {
		temperature = DefaultTemperature
	}
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = DefaultMaxTokens
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if n := opts.RequestsPerMinute; n > 0 {
		burst := n
		if burst > 5 {
			burst = 5
		}
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), burst)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		api:          openai.NewClientWithConfig(cfg),
		model:        model,
		systemPrompt: opts.SystemPrompt,
		temperature:  temperature,
		maxTokens:    maxTokens,
		limiter:      limiter,
		logger:       logger.Named("chat"),
	}
}

// Complete returns the model's reply to text, trimmed of surrounding whitespace.
func (c *Client) Complete(ctx context.Context, text string) (string, error) {
	if !c.limiter.Allow() {
		return "", fmt.Errorf("%w: local limit", ErrRateLimited)
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if c.systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: c.systemPrompt})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: text})

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	observability.RecordCompletionLatency(time.Since(start).Seconds())
	if err != nil {
		err = classify(err)
		c.logger.Debug("completion failed", zap.String("model", c.model), zap.Error(err))
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyReply
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyReply
	}
	return content, nil
}

// classify maps HTTP 429 responses to ErrRateLimited.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %s", ErrRateLimited, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", ErrRateLimited, reqErr)
	}
	return fmt.Errorf("completion: %w", err)
}
