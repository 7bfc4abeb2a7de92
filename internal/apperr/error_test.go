package apperr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_ChainingAndHelpers(t *testing.T) {
	t.Parallel()

	root := errors.New("root")
	err := New(ErrUpstreamUnavailable, "upstream failed").
		WithCause(root).
		WithHTTPStatus(502).
		WithRetryable(true)

	assert.Equal(t, ErrUpstreamUnavailable, Code(err))
	assert.True(t, IsRetryable(err))
	require.ErrorIs(t, err, root)
	assert.NotEmpty(t, err.Error())
}

func TestError_NonAppErrorHelpers(t *testing.T) {
	t.Parallel()

	plain := errors.New("plain")
	assert.False(t, IsRetryable(plain))
	assert.Equal(t, ErrorCode(""), Code(plain))

	_, ok := As(plain)
	assert.False(t, ok)
}

func TestError_AsExtractsConcreteType(t *testing.T) {
	t.Parallel()

	err := New(ErrValidation, "bad input")
	got, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, ErrValidation, got.Code)
}
