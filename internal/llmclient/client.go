// Package llmclient wraps the Anthropic Messages API behind the narrow
// synchronous interface spec §6.4 describes: one request in, either content
// or an error out, empty content treated as failure. Grounded on
// providers/anthropic/provider.go's request/response shape (system message
// passed separately from user content, x-api-key auth, bounded max_tokens)
// but built on the official SDK instead of a hand-rolled HTTP client, since
// the pipeline only ever needs one non-streaming call per analysis.
package llmclient

import (
	"context"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/goldnightmare/goldservice/internal/apperr"
)

// Request is the spec §6.4 provider-interface request shape.
type Request struct {
	Model       string
	System      string
	UserMessage string
	MaxTokens   int
	Temperature float64
	SessionID   string
}

// Response is the successful provider-interface result.
type Response struct {
	Content     string
	TokensUsed  int
}

// MessagesAPI is the slice of the SDK this client depends on, narrowed to
// one method so callers (tests, or the pipeline's own test doubles) can
// substitute a fake instead of hitting the network.
type MessagesAPI interface {
	New(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error)
}

// Client performs one synchronous Messages call per Generate invocation.
type Client struct {
	messages MessagesAPI
	logger   *zap.Logger
	timeout  time.Duration
}

// New builds a Client bound to apiKey. baseURL may be empty to use the
// SDK's default endpoint.
func New(apiKey, baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	sdk := anthropic.NewClient(opts...)
	return &Client{
		messages: &sdk.Messages,
		logger:   logger.With(zap.String("component", "llmclient")),
		timeout:  timeout,
	}
}

// NewWithMessagesAPI builds a Client around a caller-supplied MessagesAPI,
// bypassing the real SDK transport entirely — used by tests.
func NewWithMessagesAPI(m MessagesAPI, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{messages: m, logger: logger.With(zap.String("component", "llmclient")), timeout: timeout}
}

// Generate issues one Messages.New call and returns the text content.
// Empty content is treated as failure per spec §6.4, surfaced as
// ErrUpstreamSemantic rather than ErrUpstreamUnavailable since the
// transport succeeded but produced nothing usable.
func (c *Client) Generate(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4000
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.UserMessage)),
		},
		Temperature: anthropic.Float(req.Temperature),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if req.SessionID != "" {
		params.Metadata = anthropic.MetadataParam{UserID: anthropic.String(req.SessionID)}
	}

	msg, err := c.messages.New(ctx, params)
	if err != nil {
		c.logger.Error("anthropic request failed", zap.Error(err), zap.String("session_id", req.SessionID))
		return nil, apperr.New(apperr.ErrUpstreamUnavailable, "فشل الاتصال بخدمة الذكاء الاصطناعي").WithCause(err).WithRetryable(true)
	}

	var content string
	for _, block := range msg.Content {
		if text := block.Text; text != "" {
			content += text
		}
	}
	if content == "" {
		return nil, apperr.New(apperr.ErrUpstreamSemantic, "استجابة فارغة من خدمة الذكاء الاصطناعي")
	}

	tokens := 0
	if msg.Usage.OutputTokens > 0 {
		tokens = int(msg.Usage.OutputTokens)
	}

	return &Response{Content: content, TokensUsed: tokens}, nil
}

// String implements fmt.Stringer for debug logging without leaking content.
func (r Response) String() string {
	return fmt.Sprintf("llmclient.Response{len=%d tokens=%d}", len(r.Content), r.TokensUsed)
}
