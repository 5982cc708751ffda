package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/andresmejia3/facecrop/internal/app"
	"github.com/andresmejia3/facecrop/internal/utils"
	"github.com/andresmejia3/facecrop/internal/worker"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var (
	backfillBucket  string
	backfillPrefix  string
	backfillEngines int
	backfillDryRun  bool
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Run face detection over every photo already in the bucket",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runBackfill(cmd.Context()); err != nil {
			utils.Die("Backfill failed", err)
		}
	},
}

func init() {
	backfillCmd.Flags().StringVar(&backfillBucket, "bucket", "", "Bucket to scan (default: $PHOTO_BUCKET)")
	backfillCmd.Flags().StringVarP(&backfillPrefix, "prefix", "p", "", "Only process keys with this prefix")
	backfillCmd.Flags().IntVarP(&backfillEngines, "engines", "e", 4, "Number of parallel detection workers")
	backfillCmd.Flags().BoolVar(&backfillDryRun, "dry-run", false, "List matching keys without calling the vision API")
	rootCmd.AddCommand(backfillCmd)
}

type backfillResult struct {
	key   string
	faces int
	err   error
}

func runBackfill(ctx context.Context) error {
	bucket := backfillBucket
	if bucket == "" {
		bucket = cfg.PhotoBucket
	}
	if bucket == "" {
		return fmt.Errorf("--bucket or PHOTO_BUCKET is required")
	}

	keys, err := app.ObjectStore(cfg).List(ctx, bucket, backfillPrefix)
	if err != nil {
		return err
	}
	keys = photoKeys(keys)
	if len(keys) == 0 {
		fmt.Println("No photos found.")
		return nil
	}

	if backfillDryRun {
		for _, k := range keys {
			fmt.Println(k)
		}
		return nil
	}

	det, err := app.NewDetector(cfg, logger)
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions(len(keys),
		progressbar.OptionSetDescription("🔍 Detecting faces"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)

	results := worker.Run(ctx, backfillEngines, keys,
		func(ctx context.Context, workerID int, key string) backfillResult {
			defer bar.Add(1)
			n, err := det.HandleObject(ctx, bucket, key)
			return backfillResult{key: key, faces: n, err: err}
		},
		func(key string, err error) backfillResult {
			return backfillResult{key: key, err: err}
		},
	)
	bar.Finish()
	fmt.Fprintln(os.Stderr)

	faces, failed := 0, 0
	for _, r := range results {
		faces += r.faces
		if r.err != nil {
			failed++
			logger.Error("backfill object failed", "object_key", r.key, "error", r.err)
		}
	}
	fmt.Printf("✅ %d photo(s), %d face message(s) published, %d failure(s)\n", len(keys), faces, failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d photos failed", failed, len(keys))
	}
	return nil
}

// photoKeys drops empty keys and directory markers.
func photoKeys(keys []string) []string {
	out := keys[:0:0]
	for _, k := range keys {
		if k == "" || strings.HasSuffix(k, "/") {
			continue
		}
		out = append(out, k)
	}
	return out
}
