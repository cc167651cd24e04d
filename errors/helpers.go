package errors

import (
	stderrors "errors"
)

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// GetCode returns the code of the first PlatformError in the chain, or
// CodeUnknown.
func GetCode(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	var platformErr PlatformError
	if stderrors.As(err, &platformErr) {
		return platformErr.Code()
	}

	return CodeUnknown
}

// HasCode reports whether any PlatformError in the chain carries code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		var platformErr PlatformError
		if !stderrors.As(err, &platformErr) {
			return false
		}
		if platformErr.Code() == code {
			return true
		}
		err = platformErr.Unwrap()
	}
	return false
}

// GetClassification returns the classification of the first PlatformError in
// the chain, or ClassificationPermanent.
func GetClassification(err error) ErrorClassification {
	if err == nil {
		return ClassificationPermanent
	}

	var platformErr PlatformError
	if stderrors.As(err, &platformErr) {
		return platformErr.Classification()
	}

	return ClassificationPermanent
}

// IsRetryable reports whether err is classified as retryable.
func IsRetryable(err error) bool {
	return GetClassification(err).IsRetryable()
}
