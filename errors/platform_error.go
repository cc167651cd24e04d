package errors

import "fmt"

// platformError implements PlatformError. Values are only built through the
// package constructors so the context map is never shared.
type platformError struct {
	code           ErrorCode
	classification ErrorClassification
	message        string
	context        map[string]interface{}
	cause          error
}

// Error formats the error as "[CODE] message", followed by ": cause" when a
// cause is wrapped.
func (e *platformError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.code, e.message)
}

// Code returns the error code.
func (e *platformError) Code() ErrorCode {
	return e.code
}

// Classification returns whether the error is retryable or permanent.
func (e *platformError) Classification() ErrorClassification {
	return e.classification
}

// Message returns the message without the code or cause.
func (e *platformError) Message() string {
	return e.message
}

// Context returns a copy of the attached context, or nil when none was
// attached. Changes to the returned map do not affect the error.
func (e *platformError) Context() map[string]interface{} {
	return copyContext(e.context)
}

// Unwrap returns the wrapped cause so errors.Is and errors.As can walk the
// chain.
func (e *platformError) Unwrap() error {
	return e.cause
}

// copyContext returns a shallow copy of ctx, or nil for a nil map.
func copyContext(ctx map[string]interface{}) map[string]interface{} {
	if ctx == nil {
		return nil
	}
	out := make(map[string]interface{}, len(ctx))
	for k, v := range ctx {
		out[k] = v
	}
	return out
}
