// Package errors provides the coded error type used across minichain and helpers for categorizing errors.
package errors

import (
	"context"
	"errors"
)

// IsRetryableError determines if an error is transient and the operation should be retried.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var tErr *Error
	if As(err, &tErr) {
		switch tErr.Code() {
		case ERR_NETWORK_TIMEOUT,
			ERR_NETWORK_ERROR,
			ERR_SERVICE_UNAVAILABLE,
			ERR_STORAGE_UNAVAILABLE,
			ERR_STORAGE_ERROR:
			return true
		}
	}

	return false
}

// IsValidationError reports whether err was raised because a block or transaction failed validation.
// The sync coordinator answers these with a chain request instead of propagating them.
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}

	return Is(err, ErrBlockInvalid) || Is(err, ErrTxInvalid)
}

// IsContextError determines if an error is related to context cancellation or deadline.
func IsContextError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var tErr *Error
	if As(err, &tErr) {
		if tErr.Code() == ERR_CONTEXT_CANCELED || tErr.Code() == ERR_CONTEXT {
			return true
		}
	}

	return false
}

// GetErrorCategory returns a short label for the error, used for logging and metric labels.
func GetErrorCategory(err error) string {
	if err == nil {
		return "none"
	}

	if IsContextError(err) {
		return "context"
	}

	var tErr *Error
	if As(err, &tErr) {
		code := tErr.Code()
		switch {
		case code >= 10 && code <= 19:
			return "block"
		case code >= 30 && code <= 39:
			return "transaction"
		case code >= 40 && code <= 49:
			return "service"
		case code >= 60 && code <= 69:
			return "storage"
		case code >= 80 && code <= 89:
			return "network"
		}
	}

	return "unknown"
}
