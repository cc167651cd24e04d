package errors

import (
	"encoding/json"
)

// ErrorResponse is the flat, serializable form of an error, as printed by
// the CLI with --json. The cause chain is excluded so remote store internals
// are not echoed back.
type ErrorResponse struct {
	// Code identifies the kind of error.
	Code string `json:"code"`

	// Message is the human-readable message.
	Message string `json:"message"`

	// Classification is RETRYABLE or PERMANENT.
	Classification string `json:"classification"`

	// Context holds attached metadata such as bucket, key and status_code.
	// Omitted when empty.
	Context map[string]interface{} `json:"context,omitempty"`
}

// ToJSON converts any error to an ErrorResponse. A PlatformError contributes
// its code, message, classification and context. Plain errors are reported
// with CodeUnknown and their Error() text.
//
// Returns nil if err is nil.
//
// Example:
//
//	if err := cmd.Execute(); err != nil {
//	    _ = json.NewEncoder(os.Stderr).Encode(errors.ToJSON(err))
//	}
func ToJSON(err error) *ErrorResponse {
	if err == nil {
		return nil
	}

	message := err.Error()
	var context map[string]interface{}

	var platformErr PlatformError
	if As(err, &platformErr) {
		message = platformErr.Message()
		context = platformErr.Context()
	}

	return &ErrorResponse{
		Code:           string(GetCode(err)),
		Message:        message,
		Classification: string(GetClassification(err)),
		Context:        context,
	}
}

// MarshalJSON implements json.Marshaler, so a PlatformError can be passed to
// json.Marshal directly and serializes as an ErrorResponse.
func (e *platformError) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(&ErrorResponse{
		Code:           string(e.code),
		Message:        e.message,
		Classification: string(e.classification),
		Context:        e.context,
	})
	if err != nil {
		return nil, &platformError{
			code:           CodeInternal,
			classification: ClassificationPermanent,
			message:        "failed to marshal error response",
			cause:          err,
		}
	}
	return data, nil
}
