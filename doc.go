// Package bucketcache is a client for S3-compatible object stores that keeps
// a per-bucket index of known keys so prefix listings can be answered without
// a remote round trip.
//
// The remote store stays authoritative. The index is filled from uploads and
// from every remote listing, expires by TTL, and may be stale or absent
// without affecting correctness: a listing whose prefix resolves to nothing
// in the index falls through to the remote store.
//
// Basic usage:
//
//	cfg, err := bucketcache.LoadConfig("bucketcache.yaml")
//	if err != nil {
//		return err
//	}
//	client, err := bucketcache.NewFromConfig(*cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	res, err := client.ListItems(ctx, listing.Request{Bucket: "media", Prefix: "photos/"})
//
// Errors returned by the client are errors.PlatformError values. Remote
// failures carry the HTTP status code returned by the store, see
// errors.StatusCode.
package bucketcache
