package bucketcache

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jmgilman/go/bucketcache/errors"
)

// MaxObjectNameLength is the longest object key S3 accepts, in bytes.
const MaxObjectNameLength = 1024

// Restore defaults.
const (
	DefaultRestoreDays = 5
	DefaultRestoreTier = "Expedited"
)

// StorageClasses lists the S3 storage classes accepted on upload.
var StorageClasses = []string{
	"STANDARD",
	"REDUCED_REDUNDANCY",
	"STANDARD_IA",
	"ONEZONE_IA",
	"INTELLIGENT_TIERING",
	"GLACIER",
	"GLACIER_IR",
	"DEEP_ARCHIVE",
	"OUTPOSTS",
	"SNOW",
	"EXPRESS_ONEZONE",
}

// RestoreTiers lists the accepted restore tiers.
var RestoreTiers = []string{"Bulk", "Expedited", "Standard"}

// ValidateObjectName checks that name is usable as an object key.
func ValidateObjectName(name string) error {
	var problems []string

	switch {
	case name == "":
		problems = append(problems, "name is empty")
	case len(name) > MaxObjectNameLength:
		problems = append(problems, fmt.Sprintf("name exceeds %d bytes", MaxObjectNameLength))
	}
	if !utf8.ValidString(name) {
		problems = append(problems, "name is not valid UTF-8")
	}
	if strings.IndexFunc(name, unicode.IsControl) >= 0 {
		problems = append(problems, "name contains control characters")
	}

	if len(problems) > 0 {
		return errors.WithContext(
			errors.Newf(errors.CodeInvalidInput, "%q is not a valid object name: %s", name, strings.Join(problems, ", ")),
			"problems", problems,
		)
	}
	return nil
}

// ValidateStorageClass checks class against StorageClasses.
func ValidateStorageClass(class string) error {
	return validateOneOf("storage class", class, StorageClasses)
}

// ValidateRestoreTier checks tier against RestoreTiers.
func ValidateRestoreTier(tier string) error {
	return validateOneOf("restore tier", tier, RestoreTiers)
}

func validateOneOf(what, value string, allowed []string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return errors.Newf(errors.CodeInvalidInput, "%s is not a valid %s value; allowed values are [%s]",
		value, what, strings.Join(allowed, ", "))
}

func requireBucket(bucket string) error {
	if bucket == "" {
		return errors.New(errors.CodeInvalidInput, "bucket is required")
	}
	return nil
}

func requireBucketAndKey(bucket, key string) error {
	if err := requireBucket(bucket); err != nil {
		return err
	}
	if key == "" {
		return errors.New(errors.CodeInvalidInput, "key is required")
	}
	return nil
}
