package errors

// ErrorCode identifies a class of failure.
// Codes are strings so they read well in logs and serialize naturally.
type ErrorCode string

const (
	// Remote resource errors.

	// CodeNotFound indicates the bucket, object or version does not exist.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeAlreadyExists indicates the bucket or object already exists.
	CodeAlreadyExists ErrorCode = "ALREADY_EXISTS"

	// CodeConflict indicates the remote state prevents the operation
	// (for example deleting a bucket that is not empty).
	CodeConflict ErrorCode = "CONFLICT"

	// Permission errors.

	// CodeUnauthorized indicates missing or invalid credentials.
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// CodeForbidden indicates the credentials lack permission for the operation.
	CodeForbidden ErrorCode = "FORBIDDEN"

	// Validation errors.

	// CodeInvalidInput indicates a missing or malformed parameter. Returned
	// before any I/O takes place.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeInvalidConfig indicates the client or a backend is misconfigured.
	CodeInvalidConfig ErrorCode = "INVALID_CONFIGURATION"

	// Remote availability errors.

	// CodeNetwork indicates the remote store could not be reached.
	CodeNetwork ErrorCode = "NETWORK_ERROR"

	// CodeTimeout indicates the remote call exceeded its deadline.
	CodeTimeout ErrorCode = "TIMEOUT"

	// CodeRateLimit indicates the remote store throttled the request.
	CodeRateLimit ErrorCode = "RATE_LIMIT_EXCEEDED"

	// CodeUnavailable indicates the remote store reported a server-side failure.
	CodeUnavailable ErrorCode = "SERVICE_UNAVAILABLE"

	// Cache errors.

	// CodeCacheDegraded indicates the cache backend is unreachable or holds
	// malformed data. These errors are absorbed and only ever logged.
	CodeCacheDegraded ErrorCode = "CACHE_DEGRADED"

	// CodeHydrationFailed indicates a metadata fetch failed while hydrating a
	// listing. The whole listing fails.
	CodeHydrationFailed ErrorCode = "HYDRATION_FAILED"

	// System errors.

	// CodeInternal indicates an unexpected internal failure.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeNotImplemented indicates the backend does not support the operation.
	CodeNotImplemented ErrorCode = "NOT_IMPLEMENTED"

	// CodeUnknown indicates an unclassified failure.
	CodeUnknown ErrorCode = "UNKNOWN"
)
