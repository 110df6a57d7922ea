package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-news-digest/internal/domain"
	"github.com/samvad-hq/samvad-news-digest/internal/logger"
	"github.com/samvad-hq/samvad-news-digest/internal/metrics"
	"github.com/samvad-hq/samvad-news-digest/pkg/httpclient"
)

// ProviderName labels LLM calls in errors, logs and metrics.
const ProviderName = "openai"

var (
	// ErrMissingAPIKey is returned by New when no key is configured.
	ErrMissingAPIKey = errors.New("llm api key is required")
	// ErrEmptyCompletion is wrapped when the provider answers without any content.
	ErrEmptyCompletion = errors.New("empty completion")
)

// Completer sends one prompt pair and returns the model's text reply.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Request is a single system+user exchange.
type Request struct {
	// Op names the calling stage ("summarize", "classify", ...) for logs and metrics.
	Op          string
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

// Options configures a Client.
type Options struct {
	Endpoint string
	Model    string
	APIKey   string
	Recorder *metrics.Recorder
	Logger   logger.Logger
}

// Client talks to an OpenAI compatible chat completions endpoint.
type Client struct {
	http     httpclient.Client
	endpoint string
	model    string
	apiKey   string
	rec      *metrics.Recorder
	log      logger.Logger
}

var _ Completer = (*Client)(nil)

// New builds a Client. The http client is usually httpclient.NewRestyClient(cfg.LLMTimeout).
func New(client httpclient.Client, opts Options) (*Client, error) {
	if client == nil {
		return nil, errors.New("llm: http client is nil")
	}
	key := strings.TrimSpace(opts.APIKey)
	if key == "" {
		return nil, ErrMissingAPIKey
	}
	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" {
		return nil, errors.New("llm: endpoint is required")
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		return nil, errors.New("llm: model is required")
	}
	return &Client{
		http:     client,
		endpoint: endpoint,
		model:    model,
		apiKey:   key,
		rec:      opts.Recorder,
		log:      logger.Ensure(opts.Logger),
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete posts the request and returns the trimmed content of the first choice.
func (c *Client) Complete(ctx context.Context, req Request) (reply string, err error) {
	op := req.Op
	if op == "" {
		op = "complete"
	}
	start := time.Now()
	defer func() {
		c.rec.ObserveCall(ProviderName, op, start, err)
		fields := map[string]any{
			"provider":    ProviderName,
			"op":          op,
			"model":       c.model,
			"duration_ms": time.Since(start).Milliseconds(),
		}
		if err != nil {
			fields["error"] = err.Error()
			c.log.WarnObj("llm call failed", "llm_call", fields)
			return
		}
		fields["reply_chars"] = len(reply)
		c.log.DebugObj("llm call completed", "llm_call", fields)
	}()

	messages := make([]chatMessage, 0, 2)
	if s := strings.TrimSpace(req.System); s != "" {
		messages = append(messages, chatMessage{Role: "system", Content: s})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.User})

	body := chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}

	resp, err := c.http.PostJSON(ctx, c.endpoint, headers, body)
	if err != nil {
		return "", domain.NewProviderError(ProviderName, op, 0, err)
	}

	var payload chatResponse
	decodeErr := json.Unmarshal(resp.Body(), &payload)

	if status := resp.StatusCode(); status < http.StatusOK || status >= http.StatusMultipleChoices {
		msg := snippet(resp.Body())
		if decodeErr == nil && payload.Error != nil && payload.Error.Message != "" {
			msg = payload.Error.Message
		}
		return "", domain.NewProviderError(ProviderName, op, status, errors.New(msg))
	}
	if decodeErr != nil {
		return "", domain.NewProviderError(ProviderName, op, resp.StatusCode(), fmt.Errorf("decode response: %w", decodeErr))
	}
	if len(payload.Choices) == 0 {
		return "", domain.NewProviderError(ProviderName, op, resp.StatusCode(), ErrEmptyCompletion)
	}

	reply = strings.TrimSpace(payload.Choices[0].Message.Content)
	if reply == "" {
		return "", domain.NewProviderError(ProviderName, op, resp.StatusCode(), ErrEmptyCompletion)
	}
	return reply, nil
}

func snippet(body []byte) string {
	const maxLen = 256
	s := strings.TrimSpace(string(body))
	if s == "" {
		return "<empty>"
	}
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}
