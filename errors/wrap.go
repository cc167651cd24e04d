package errors

import (
	"errors"
	"fmt"
)

// Wrap wraps err with a code and message. The classification of a wrapped
// PlatformError is preserved; otherwise the default for code is used.
//
// Returns nil if err is nil.
//
// Example:
//
//	info, err := gw.GetItem(ctx, bucket, key, "")
//	if err != nil {
//	    return errors.Wrap(err, errors.CodeHydrationFailed, "failed to hydrate listing")
//	}
func Wrap(err error, code ErrorCode, message string) PlatformError {
	return WrapWithContext(err, code, message, nil)
}

// Wrapf wraps err with a formatted message. The wrapped error stays
// reachable through Unwrap, errors.Is and errors.As.
//
// Returns nil if err is nil.
//
// Example:
//
//	if err := ValidateObjectName(key); err != nil {
//	    return errors.Wrapf(err, errors.CodeInvalidInput, "cannot upload %s", key)
//	}
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) PlatformError {
	if err == nil {
		return nil
	}
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// WrapWithContext wraps err and attaches a copy of ctx in one step. Later
// changes to ctx do not affect the returned error.
//
// Returns nil if err is nil.
//
// Example:
//
//	if err := gw.DeleteObject(ctx, bucket, key, ""); err != nil {
//	    return errors.WrapWithContext(err, errors.CodeInternal, "delete failed", map[string]interface{}{
//	        "bucket": bucket,
//	        "key":    key,
//	    })
//	}
func WrapWithContext(err error, code ErrorCode, message string, ctx map[string]interface{}) PlatformError {
	if err == nil {
		return nil
	}

	// A wrapped PlatformError keeps its classification.
	classification := getDefaultClassification(code)
	var platformErr PlatformError
	if errors.As(err, &platformErr) {
		classification = platformErr.Classification()
	}

	return &platformError{
		code:           code,
		classification: classification,
		message:        message,
		context:        copyContext(ctx),
		cause:          err,
	}
}
