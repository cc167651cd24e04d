// Package errors provides the structured error type used across bucketcache.
//
// Every exported operation returns a PlatformError carrying an ErrorCode, a
// retry classification, a message and optional context. Errors raised by the
// remote object store additionally carry the HTTP status code the store
// returned, available through StatusCode.
//
// The package mirrors the standard library where it overlaps (Is, As and
// Unwrap all work on PlatformError chains) so callers can mix it with
// fmt.Errorf wrapping.
//
// # Codes
//
//   - Remote resource: CodeNotFound, CodeAlreadyExists, CodeConflict
//   - Permission: CodeUnauthorized, CodeForbidden
//   - Validation: CodeInvalidInput, CodeInvalidConfig
//   - Remote availability: CodeNetwork, CodeTimeout, CodeRateLimit, CodeUnavailable
//   - Cache: CodeCacheDegraded, CodeHydrationFailed
//   - System: CodeInternal, CodeNotImplemented, CodeUnknown
//
// CodeCacheDegraded is never returned to callers. The cache layer logs it and
// falls back to the remote store.
//
// # Example
//
//	info, err := client.GetItem(ctx, "media", "img/logo.png", "")
//	if err != nil {
//	    if errors.GetCode(err) == errors.CodeNotFound {
//	        return nil
//	    }
//	    log.Printf("status %d, retryable %v", errors.StatusCode(err), errors.IsRetryable(err))
//	    return err
//	}
package errors
