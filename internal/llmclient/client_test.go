package llmclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/goldnightmare/goldservice/internal/apperr"
)

type fakeMessages struct {
	msg *anthropic.Message
	err error
}

func (f *fakeMessages) New(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	return f.msg, f.err
}

func textMessage(text string, outputTokens int64) *anthropic.Message {
	return &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{{Type: "text", Text: text}},
		Usage:   anthropic.Usage{OutputTokens: outputTokens},
	}
}

func TestClient_GenerateSuccess(t *testing.T) {
	t.Parallel()
	c := NewWithMessagesAPI(&fakeMessages{msg: textMessage("تحليل كامل", 42)}, time.Second, zap.NewNop())

	resp, err := c.Generate(context.Background(), Request{Model: "claude-3-5-sonnet", UserMessage: "حلل", MaxTokens: 100, Temperature: 0.7, SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, "تحليل كامل", resp.Content)
	assert.Equal(t, 42, resp.TokensUsed)
}

func TestClient_GenerateEmptyContentIsFailure(t *testing.T) {
	t.Parallel()
	c := NewWithMessagesAPI(&fakeMessages{msg: textMessage("", 0)}, time.Second, zap.NewNop())

	_, err := c.Generate(context.Background(), Request{Model: "m", UserMessage: "x"})
	require.Error(t, err)
	assert.Equal(t, apperr.ErrUpstreamSemantic, apperr.Code(err))
}

func TestClient_GenerateTransportError(t *testing.T) {
	t.Parallel()
	c := NewWithMessagesAPI(&fakeMessages{err: errors.New("connection refused")}, time.Second, zap.NewNop())

	_, err := c.Generate(context.Background(), Request{Model: "m", UserMessage: "x"})
	require.Error(t, err)
	assert.Equal(t, apperr.ErrUpstreamUnavailable, apperr.Code(err))
	assert.True(t, apperr.IsRetryable(err))
}
