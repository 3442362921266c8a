package errors_test

import (
	"fmt"
	"io"
	"testing"

	apperrors "github.com/jrsteele09/moneyguard/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestStorageError(t *testing.T) {
	t.Run("matches ErrStorage and the cause", func(t *testing.T) {
		err := apperrors.NewStorageError("get", "user_session", io.ErrUnexpectedEOF)
		require.ErrorIs(t, err, apperrors.ErrStorage)
		require.ErrorIs(t, err, io.ErrUnexpectedEOF)
		require.Contains(t, err.Error(), `vault get "user_session"`)

		var se *apperrors.StorageError
		require.True(t, apperrors.As(err, &se))
		require.Equal(t, "get", se.Op)
	})

	t.Run("nil cause stays nil", func(t *testing.T) {
		require.NoError(t, apperrors.NewStorageError("set", "k", nil))
	})

	t.Run("survives further wrapping", func(t *testing.T) {
		err := fmt.Errorf("[Manager.Validate] %w", apperrors.NewStorageError("get", "k", io.EOF))
		require.True(t, apperrors.Is(err, apperrors.ErrStorage))
	})
}

func TestWrapf(t *testing.T) {
	require.NoError(t, apperrors.Wrapf(nil, "ignored"))

	err := apperrors.Wrapf(apperrors.ErrStateMismatch, "[Flow.Complete] state %d", 1)
	require.EqualError(t, err, "[Flow.Complete] state 1: invalid state parameter")
	require.ErrorIs(t, err, apperrors.ErrStateMismatch)
}
