package analyst

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"MarketLens/internal/model"
)

const (
	DefaultBaseURL     = "https://api.openai.com/v1"
	DefaultModel       = "gpt-4"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 256

	systemPrompt = "You are a financial analyst assistant. Provide detailed technical analysis."
)

// Config configures the chat-completion client.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Client asks an OpenAI-compatible chat-completion endpoint for free-text analysis.
type Client struct {
	client      *resty.Client
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
}

// NewClient creates a Client, filling unset fields with defaults.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimRight(cfg.BaseURL, "/"))
	client.SetTimeout(cfg.Timeout)

	return &Client{
		client:      client,
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model            string        `json:"model"`
	Messages         []chatMessage `json:"messages"`
	Temperature      float64       `json:"temperature"`
	MaxTokens        int           `json:"max_tokens"`
	TopP             float64       `json:"top_p"`
	FrequencyPenalty float64       `json:"frequency_penalty"`
	PresencePenalty  float64       `json:"presence_penalty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// BuildContext describes the current selection for the analyst.
func BuildContext(symbols []string, start, end time.Time) string {
	return fmt.Sprintf("Analyzing %v from %s to %s", symbols, start.Format(model.DateLayout), end.Format(model.DateLayout))
}

// Analyze sends query together with a description of the current selection and
// returns the first choice's content.
func (c *Client) Analyze(ctx context.Context, query, about string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("analyst API key not configured")
	}
	if strings.TrimSpace(query) == "" {
		return "", fmt.Errorf("empty query")
	}

	body := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("Analyze this query: %s. Context: %s", query, about)},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		TopP:        1,
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(c.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	var out chatResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil && resp.IsSuccess() {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if resp.IsError() {
		if out.Error != nil && out.Error.Message != "" {
			return "", fmt.Errorf("chat API error %d: %s", resp.StatusCode(), out.Error.Message)
		}
		return "", fmt.Errorf("chat API error %d: %s", resp.StatusCode(), resp.String())
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("chat API returned no choices")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
