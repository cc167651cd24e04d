package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jmgilman/go/bucketcache"
	"github.com/jmgilman/go/bucketcache/errors"
	"github.com/jmgilman/go/bucketcache/listing"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configFile string
	logLevel   string
	json       bool
}

// clientLoader creates the client used by a command.
type clientLoader func(*rootOptions) (*bucketcache.Client, error)

func newRootCmd(opts *rootOptions, load clientLoader) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bucketcache",
		Short: "S3 client with a cached key index",
		Long: `bucketcache talks to MinIO and other S3-compatible stores, keeping an
index of known keys per bucket so prefix listings can skip the remote store.
The index lives in a bolt database under the user cache directory unless the
config file sets cache.backend.

Examples:
  # List a directory, from the index when possible
  bucketcache ls media photos/

  # Upload a file and record it in the index
  bucketcache upload media photos/cat.jpg ./cat.jpg

  # Drop a bucket's index
  bucketcache cache flush media`,
		Version:       fmt.Sprintf("%s (%s)", Version, Commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "config file path (default $BUCKETCACHE_CONFIG or bucketcache.yaml)")
	rootCmd.PersistentFlags().StringVarP(&opts.logLevel, "log-level", "l", "", "log level (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&opts.json, "json", false, "print results and errors as JSON")

	// withClient runs fn with a loaded client and closes it afterwards.
	withClient := func(fn func(cmd *cobra.Command, c *bucketcache.Client, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			c, err := load(opts)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()
			return fn(cmd, c, args)
		}
	}

	rootCmd.AddCommand(
		newLsCmd(opts, withClient),
		newGetCmd(opts, withClient),
		newUploadCmd(opts, withClient),
		newRestoreCmd(withClient),
		newLinkCmd(opts, withClient),
		newRmCmd(withClient),
		newBucketCmd(withClient),
		newCacheCmd(withClient),
	)

	return rootCmd
}

type runner func(fn func(cmd *cobra.Command, c *bucketcache.Client, args []string) error) func(*cobra.Command, []string) error

func newLsCmd(opts *rootOptions, withClient runner) *cobra.Command {
	var (
		hydrate      bool
		excludeCache bool
		delimiter    string
	)

	cmd := &cobra.Command{
		Use:   "ls <bucket> [prefix]",
		Short: "List keys in a bucket",
		Args:  cobra.RangeArgs(1, 2),
		RunE: withClient(func(cmd *cobra.Command, c *bucketcache.Client, args []string) error {
			req := listing.Request{
				Bucket:       args[0],
				Delimiter:    delimiter,
				ExcludeCache: excludeCache,
				Hydrate:      hydrate,
			}
			if len(args) > 1 {
				req.Prefix = args[1]
			}

			res, err := c.ListItems(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printListing(cmd.OutOrStdout(), res, opts.json)
		}),
	}
	cmd.Flags().BoolVar(&hydrate, "hydrate", false, "fetch metadata for every key")
	cmd.Flags().BoolVar(&excludeCache, "exclude-cache", false, "always list from the remote store")
	cmd.Flags().StringVar(&delimiter, "delimiter", "", "delimiter used with a prefix (default \"/\")")
	return cmd
}

func printListing(w io.Writer, res *listing.Result, asJSON bool) error {
	if asJSON {
		return writeJSON(w, res)
	}

	if res.Items == nil {
		for _, k := range res.Keys {
			fmt.Fprintln(w, k)
		}
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tSIZE\tLAST MODIFIED\tSTORAGE CLASS")
	for _, item := range res.Items {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n",
			item.ID, item.Info.Size, item.Info.LastModified.Format(time.RFC3339), item.Info.StorageClass)
	}
	return tw.Flush()
}

func newGetCmd(opts *rootOptions, withClient runner) *cobra.Command {
	var version string

	cmd := &cobra.Command{
		Use:   "get <bucket> <key>",
		Short: "Show the metadata of an object",
		Args:  cobra.ExactArgs(2),
		RunE: withClient(func(cmd *cobra.Command, c *bucketcache.Client, args []string) error {
			info, err := c.GetItem(cmd.Context(), args[0], args[1], version)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if opts.json {
				return writeJSON(w, info)
			}

			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "Key:\t%s\n", info.Key)
			if info.VersionID != "" {
				fmt.Fprintf(tw, "Version:\t%s\n", info.VersionID)
			}
			fmt.Fprintf(tw, "Size:\t%d\n", info.Size)
			fmt.Fprintf(tw, "Last modified:\t%s\n", info.LastModified.Format(time.RFC3339))
			fmt.Fprintf(tw, "ETag:\t%s\n", info.ETag)
			fmt.Fprintf(tw, "Content type:\t%s\n", info.ContentType)
			fmt.Fprintf(tw, "Storage class:\t%s\n", info.StorageClass)
			for k, v := range info.Metadata {
				fmt.Fprintf(tw, "Meta %s:\t%s\n", k, v)
			}
			return tw.Flush()
		}),
	}
	cmd.Flags().StringVar(&version, "version-id", "", "object version")
	return cmd
}

func newUploadCmd(opts *rootOptions, withClient runner) *cobra.Command {
	var (
		storageClass string
		contentType  string
		checkBucket  bool
		meta         []string
	)

	cmd := &cobra.Command{
		Use:   "upload <bucket> <key> <file>",
		Short: "Upload a file",
		Long: `Upload a file. Use "-" as the file to read from stdin.

Uploads with the default storage class are added to the key index.`,
		Args: cobra.ExactArgs(3),
		RunE: withClient(func(cmd *cobra.Command, c *bucketcache.Client, args []string) error {
			metadata, err := parseMeta(meta)
			if err != nil {
				return err
			}

			body, size, closeBody, err := openBody(cmd, args[2])
			if err != nil {
				return err
			}
			defer closeBody()

			res, err := c.UploadItem(cmd.Context(), bucketcache.UploadInput{
				Bucket:       args[0],
				Key:          args[1],
				Body:         body,
				Size:         size,
				ContentType:  contentType,
				StorageClass: storageClass,
				Metadata:     metadata,
				CheckBucket:  checkBucket,
			})
			if err != nil {
				return err
			}

			if opts.json {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s (%d bytes)", args[1], res.Size)
			if res.VersionID != "" {
				fmt.Fprintf(cmd.OutOrStdout(), " version %s", res.VersionID)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		}),
	}
	cmd.Flags().StringVar(&storageClass, "storage-class", "", "S3 storage class")
	cmd.Flags().StringVar(&contentType, "content-type", "", "content type")
	cmd.Flags().BoolVar(&checkBucket, "check-bucket", false, "create the bucket if it does not exist")
	cmd.Flags().StringArrayVar(&meta, "meta", nil, "user metadata as key=value (repeatable)")
	return cmd
}

// openBody opens the upload source. "-" reads stdin with unknown size.
func openBody(cmd *cobra.Command, name string) (io.Reader, int64, func(), error) {
	if name == "-" {
		return cmd.InOrStdin(), -1, func() {}, nil
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, 0, nil, errors.Wrapf(err, errors.CodeInvalidInput, "failed to open %s", name)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, nil, errors.Wrapf(err, errors.CodeInvalidInput, "failed to stat %s", name)
	}
	return f, st.Size(), func() { _ = f.Close() }, nil
}

func parseMeta(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, errors.Newf(errors.CodeInvalidInput, "invalid metadata %q: expected key=value", p)
		}
		out[k] = v
	}
	return out, nil
}

func newRestoreCmd(withClient runner) *cobra.Command {
	var (
		days    int
		tier    string
		version string
	)

	cmd := &cobra.Command{
		Use:   "restore <bucket> <key>",
		Short: "Request a temporary restore of an archived object",
		Args:  cobra.ExactArgs(2),
		RunE: withClient(func(cmd *cobra.Command, c *bucketcache.Client, args []string) error {
			err := c.RestoreItem(cmd.Context(), bucketcache.RestoreInput{
				Bucket:    args[0],
				Key:       args[1],
				VersionID: version,
				Days:      days,
				Tier:      tier,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restore of %s requested\n", args[1])
			return nil
		}),
	}
	cmd.Flags().IntVar(&days, "days", bucketcache.DefaultRestoreDays, "days the restored copy stays available")
	cmd.Flags().StringVar(&tier, "tier", bucketcache.DefaultRestoreTier, "restore tier: "+strings.Join(bucketcache.RestoreTiers, ", "))
	cmd.Flags().StringVar(&version, "version-id", "", "object version")
	return cmd
}

func newLinkCmd(opts *rootOptions, withClient runner) *cobra.Command {
	var expires time.Duration

	cmd := &cobra.Command{
		Use:   "link <bucket> <key>",
		Short: "Print a presigned download link",
		Args:  cobra.ExactArgs(2),
		RunE: withClient(func(cmd *cobra.Command, c *bucketcache.Client, args []string) error {
			link, err := c.GetPublicLink(cmd.Context(), args[0], args[1], expires)
			if err != nil {
				return err
			}
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"url": link})
			}
			fmt.Fprintln(cmd.OutOrStdout(), link)
			return nil
		}),
	}
	cmd.Flags().DurationVar(&expires, "expires", bucketcache.DefaultLinkExpiry, "link lifetime")
	return cmd
}

func newRmCmd(withClient runner) *cobra.Command {
	var version string

	cmd := &cobra.Command{
		Use:   "rm <bucket> <key>",
		Short: "Delete an object",
		Args:  cobra.ExactArgs(2),
		RunE: withClient(func(cmd *cobra.Command, c *bucketcache.Client, args []string) error {
			if err := c.DeleteItem(cmd.Context(), args[0], args[1], version); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[1])
			return nil
		}),
	}
	cmd.Flags().StringVar(&version, "version-id", "", "delete only this version")
	return cmd
}

func newBucketCmd(withClient runner) *cobra.Command {
	bucketCmd := &cobra.Command{
		Use:   "bucket",
		Short: "Manage buckets",
	}

	bucketCmd.AddCommand(&cobra.Command{
		Use:   "create <bucket>",
		Short: "Create a bucket if it does not exist",
		Args:  cobra.ExactArgs(1),
		RunE: withClient(func(cmd *cobra.Command, c *bucketcache.Client, args []string) error {
			if err := c.CreateBucketIfNotExists(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Bucket %s ready\n", args[0])
			return nil
		}),
	})

	bucketCmd.AddCommand(&cobra.Command{
		Use:     "delete <bucket>",
		Aliases: []string{"rm"},
		Short:   "Delete an empty bucket and its index",
		Args:    cobra.ExactArgs(1),
		RunE: withClient(func(cmd *cobra.Command, c *bucketcache.Client, args []string) error {
			if err := c.DeleteBucket(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "The bucket %s was successfully deleted\n", args[0])
			return nil
		}),
	})

	return bucketCmd
}

func newCacheCmd(withClient runner) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the key index",
	}

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "flush <bucket>",
		Short: "Drop a bucket's index",
		Args:  cobra.ExactArgs(1),
		RunE: withClient(func(cmd *cobra.Command, c *bucketcache.Client, args []string) error {
			if err := c.FlushCache(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Index of %s flushed\n", args[0])
			return nil
		}),
	})

	return cacheCmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
