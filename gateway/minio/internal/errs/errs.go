// Package errs translates MinIO client errors into bucketcache errors.
package errs

import (
	"context"
	"net/http"

	"github.com/jmgilman/go/bucketcache/errors"
	"github.com/minio/minio-go/v7"
)

// codesByS3Code maps S3 error codes to error codes.
var codesByS3Code = map[string]errors.ErrorCode{
	"NoSuchKey":                errors.CodeNotFound,
	"NoSuchBucket":             errors.CodeNotFound,
	"NoSuchVersion":            errors.CodeNotFound,
	"AccessDenied":             errors.CodeForbidden,
	"AllAccessDisabled":        errors.CodeForbidden,
	"InvalidAccessKeyId":       errors.CodeUnauthorized,
	"SignatureDoesNotMatch":    errors.CodeUnauthorized,
	"ExpiredToken":             errors.CodeUnauthorized,
	"BucketAlreadyExists":      errors.CodeAlreadyExists,
	"BucketAlreadyOwnedByYou":  errors.CodeAlreadyExists,
	"BucketNotEmpty":           errors.CodeConflict,
	"RestoreAlreadyInProgress": errors.CodeConflict,
	"InvalidObjectState":       errors.CodeConflict,
	"SlowDown":                 errors.CodeRateLimit,
	"TooManyRequests":          errors.CodeRateLimit,
	"InvalidBucketName":        errors.CodeInvalidInput,
	"InvalidStorageClass":      errors.CodeInvalidInput,
	"NotImplemented":           errors.CodeNotImplemented,
	"ServiceUnavailable":       errors.CodeUnavailable,
	"InternalError":            errors.CodeUnavailable,
	"RequestTimeout":           errors.CodeTimeout,
}

// Translate converts a MinIO error into a PlatformError carrying the HTTP
// status code and the bucket/key it concerned. Returns nil if err is nil.
func Translate(err error, op, bucket, key string) error {
	if err == nil {
		return nil
	}

	ctx := map[string]interface{}{
		"operation": op,
		"bucket":    bucket,
	}
	if key != "" {
		ctx["key"] = key
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return errors.WrapWithContext(err, errors.CodeTimeout, op+" timed out", ctx)
	case errors.Is(err, context.Canceled):
		return errors.WrapWithContext(err, errors.CodeNetwork, op+" canceled", ctx)
	}

	resp := minio.ToErrorResponse(err)
	code := classify(resp)
	wrapped := errors.WrapWithContext(err, code, op+" failed", ctx)
	if resp.StatusCode != 0 {
		return errors.WithStatusCode(wrapped, resp.StatusCode)
	}
	return wrapped
}

// classify picks a code from the S3 error code, then the HTTP status.
// Responses with neither never reached the server.
func classify(resp minio.ErrorResponse) errors.ErrorCode {
	if code, ok := codesByS3Code[resp.Code]; ok {
		return code
	}

	switch status := resp.StatusCode; {
	case status == 0:
		return errors.CodeNetwork
	case status == http.StatusNotFound:
		return errors.CodeNotFound
	case status == http.StatusUnauthorized:
		return errors.CodeUnauthorized
	case status == http.StatusForbidden:
		return errors.CodeForbidden
	case status == http.StatusConflict:
		return errors.CodeConflict
	case status == http.StatusTooManyRequests:
		return errors.CodeRateLimit
	case status == http.StatusBadRequest:
		return errors.CodeInvalidInput
	case status >= http.StatusInternalServerError:
		return errors.CodeUnavailable
	default:
		return errors.CodeUnknown
	}
}
