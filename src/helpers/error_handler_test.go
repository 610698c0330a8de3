package helpers

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

func TestErrorTypes_WrapAndUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := NewStorageError("sqlite set failed", cause)

	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "sqlite set failed")
	require.Contains(t, err.Error(), "disk full")

	var storageErr *StorageError
	require.ErrorAs(t, error(err), &storageErr)
}

// -----------------------------------------------------------------------------

func TestErrorTypes_AreDistinct(t *testing.T) {
	err := NewFetchError("upstream down", nil)

	var storageErr *StorageError
	require.False(t, errors.As(error(err), &storageErr))

	var fetchErr *FetchError
	require.True(t, errors.As(error(err), &fetchErr))
}

// -----------------------------------------------------------------------------

func TestRetryWithBackoff_SucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	res, err := RetryWithBackoff("op", 3, time.Millisecond, nil, func() (interface{}, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("transient")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	require.Equal(t, "ok", res)
	require.Equal(t, 3, attempts)
}

// -----------------------------------------------------------------------------

func TestRetryWithBackoff_ExhaustsAttempts(t *testing.T) {
	boom := errors.New("permanent")
	attempts := 0
	_, err := RetryWithBackoff("op", 2, time.Millisecond, nil, func() (interface{}, error) {
		attempts++
		return nil, boom
	})

	require.Error(t, err)
	require.ErrorIs(t, err, boom)
	require.Equal(t, 2, attempts)
}
