package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := NotFound("track record missing")
	assert.True(t, Is(err, ErrNotFound))
	assert.False(t, Is(err, ErrStorage))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(cause, CodeStorage, "put track failed")

	assert.True(t, Is(err, ErrStorage))
	assert.True(t, Is(err, cause))
	assert.Contains(t, err.Error(), "disk full")
}

func TestWrappedErrorSurvivesFmtWrapping(t *testing.T) {
	inner := Network("provider unreachable")
	outer := fmt.Errorf("play track: %w", inner)

	assert.True(t, Is(outer, ErrNetwork))

	var domainErr *Error
	require.True(t, As(outer, &domainErr))
	assert.Equal(t, CodeNetwork, domainErr.Code)
}

func TestWithCause(t *testing.T) {
	cause := stderrors.New("bad tag")
	err := ErrDecrypt.WithCause(cause)

	assert.True(t, Is(err, ErrDecrypt))
	assert.Equal(t, cause, Unwrap(err))
}
