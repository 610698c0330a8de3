package helpers

import (
	"fmt"
	"market-cache/src/logger"
	"time"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type MarketCacheError struct {
	Message string
	Cause   error
}

func (e *MarketCacheError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *MarketCacheError) Unwrap() error {
	return e.Cause
}

// Helper to define distinct error types for errors.As checks
type ConfigurationError struct{ MarketCacheError }
type StorageError struct{ MarketCacheError }
type FetchError struct{ MarketCacheError }
type ValidationError struct{ MarketCacheError }

// -----------------------------------------------------------------------------

func NewStorageError(msg string, cause error) *StorageError {
	return &StorageError{MarketCacheError{Message: msg, Cause: cause}}
}

func NewFetchError(msg string, cause error) *FetchError {
	return &FetchError{MarketCacheError{Message: msg, Cause: cause}}
}

func NewValidationError(msg string) *ValidationError {
	return &ValidationError{MarketCacheError{Message: msg}}
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff attempts to execute the operation up to maxRetries times
// with exponential backoff. Used by the fetch layer, never by the cache
// itself (a failed fetch must propagate, not poison the tiers).
func RetryWithBackoff(operation string, maxRetries int, baseDelay time.Duration, log *logger.Logger, fn func() (interface{}, error)) (interface{}, error) {
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		res, err := fn()
		if err == nil {
			return res, nil
		}
		lastErr = err

		delay := baseDelay * time.Duration(1<<attempt)
		if log != nil {
			log.Warning("%s failed (attempt %d/%d): %v. Retrying in %v",
				operation, attempt+1, maxRetries, err, delay)
		}
		if attempt < maxRetries-1 {
			time.Sleep(delay)
		}
	}

	return nil, fmt.Errorf("%s failed after %d attempts: %w", operation, maxRetries, lastErr)
}
