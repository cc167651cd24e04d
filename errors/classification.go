package errors

// ErrorClassification indicates whether an error is worth retrying.
// Nothing in this module retries internally; the classification is exposed
// so callers can decide.
type ErrorClassification string

const (
	// ClassificationRetryable marks temporary failures that may succeed later.
	ClassificationRetryable ErrorClassification = "RETRYABLE"

	// ClassificationPermanent marks failures that will not succeed on retry.
	ClassificationPermanent ErrorClassification = "PERMANENT"
)

// IsRetryable returns true if the classification indicates retry should be attempted.
func (c ErrorClassification) IsRetryable() bool {
	return c == ClassificationRetryable
}

var defaultClassifications = map[ErrorCode]ErrorClassification{
	CodeNetwork:       ClassificationRetryable,
	CodeTimeout:       ClassificationRetryable,
	CodeRateLimit:     ClassificationRetryable,
	CodeUnavailable:   ClassificationRetryable,
	CodeCacheDegraded: ClassificationRetryable,

	CodeNotFound:       ClassificationPermanent,
	CodeAlreadyExists:  ClassificationPermanent,
	CodeConflict:       ClassificationPermanent,
	CodeUnauthorized:   ClassificationPermanent,
	CodeForbidden:      ClassificationPermanent,
	CodeInvalidInput:   ClassificationPermanent,
	CodeInvalidConfig:  ClassificationPermanent,
	CodeNotImplemented: ClassificationPermanent,
	CodeInternal:       ClassificationPermanent,
	CodeUnknown:        ClassificationPermanent,
}

// getDefaultClassification returns the classification for code, falling back
// to ClassificationPermanent for codes without an explicit mapping.
func getDefaultClassification(code ErrorCode) ErrorClassification {
	if class, ok := defaultClassifications[code]; ok {
		return class
	}
	return ClassificationPermanent
}
