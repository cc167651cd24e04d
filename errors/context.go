package errors

import "errors"

// contextKeyStatusCode is the context key holding the remote HTTP status code.
const contextKeyStatusCode = "status_code"

// WithContext returns a copy of err with key set to value. A plain error is
// first converted to a PlatformError with CodeUnknown.
//
// Returns nil if err is nil.
func WithContext(err error, key string, value interface{}) PlatformError {
	if err == nil {
		return nil
	}
	return WithContextMap(err, map[string]interface{}{key: value})
}

// WithContextMap returns a copy of err with every entry of ctx merged into its
// existing context.
//
// Returns nil if err is nil.
func WithContextMap(err error, ctx map[string]interface{}) PlatformError {
	if err == nil {
		return nil
	}

	platformErr := asPlatformError(err)

	merged := make(map[string]interface{}, len(ctx))
	for k, v := range platformErr.Context() {
		merged[k] = v
	}
	for k, v := range ctx {
		merged[k] = v
	}

	return &platformError{
		code:           platformErr.Code(),
		classification: platformErr.Classification(),
		message:        platformErr.Message(),
		context:        merged,
		cause:          platformErr.Unwrap(),
	}
}

// WithStatusCode attaches the HTTP status code reported by the remote store.
func WithStatusCode(err error, status int) PlatformError {
	return WithContext(err, contextKeyStatusCode, status)
}

// StatusCode returns the remote HTTP status code attached anywhere in the
// error chain, or 0 when none was recorded.
func StatusCode(err error) int {
	for err != nil {
		var platformErr PlatformError
		if !errors.As(err, &platformErr) {
			return 0
		}
		if status, ok := platformErr.Context()[contextKeyStatusCode].(int); ok {
			return status
		}
		err = platformErr.Unwrap()
	}
	return 0
}

func asPlatformError(err error) PlatformError {
	var platformErr PlatformError
	if errors.As(err, &platformErr) {
		return platformErr
	}
	return &platformError{
		code:           CodeUnknown,
		classification: ClassificationPermanent,
		message:        err.Error(),
		cause:          err,
	}
}
