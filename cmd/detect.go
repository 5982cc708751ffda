package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/andresmejia3/facecrop/internal/app"
	"github.com/andresmejia3/facecrop/internal/types"
	"github.com/andresmejia3/facecrop/internal/utils"
	"github.com/spf13/cobra"
)

var (
	detectBucket string
	detectKey    string
	detectEvent  string
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Run face detection for one object or a stored trigger event",
	Long: `Runs the detector locally. Either name an object with --bucket/--key
or replay a storage trigger event with --event (use "-" for stdin).`,
	Run: func(cmd *cobra.Command, args []string) {
		event, err := detectInput(cmd.InOrStdin())
		if err != nil {
			utils.Die("Invalid detect input", err)
		}

		det, err := app.NewDetector(cfg, logger)
		if err != nil {
			utils.Die("Detector is not configured", err)
		}

		n, err := det.Handle(cmd.Context(), event)
		if err != nil {
			utils.Die("Detection failed", err)
		}
		fmt.Printf("✅ Published %d face message(s)\n", n)
	},
}

func init() {
	detectCmd.Flags().StringVar(&detectBucket, "bucket", "", "Bucket of the photo (default: $PHOTO_BUCKET)")
	detectCmd.Flags().StringVarP(&detectKey, "key", "k", "", "Object key of the photo")
	detectCmd.Flags().StringVarP(&detectEvent, "event", "e", "", "Path to a trigger event JSON file, or - for stdin")
	detectCmd.MarkFlagsMutuallyExclusive("key", "event")
	rootCmd.AddCommand(detectCmd)
}

// detectInput builds the event to run from the command flags.
func detectInput(stdin io.Reader) (types.UploadEvent, error) {
	switch {
	case detectEvent == "-":
		return readEvent(stdin)
	case detectEvent != "":
		f, err := os.Open(detectEvent)
		if err != nil {
			return types.UploadEvent{}, err
		}
		defer f.Close()
		return readEvent(f)
	case detectKey != "":
		bucket := detectBucket
		if bucket == "" && cfg != nil {
			bucket = cfg.PhotoBucket
		}
		if bucket == "" {
			return types.UploadEvent{}, errors.New("--bucket or PHOTO_BUCKET is required with --key")
		}
		return types.UploadEvent{Messages: []types.UploadMessage{types.NewUploadMessage(bucket, detectKey)}}, nil
	default:
		return types.UploadEvent{}, errors.New("one of --key or --event is required")
	}
}

func readEvent(r io.Reader) (types.UploadEvent, error) {
	var event types.UploadEvent
	if err := json.NewDecoder(r).Decode(&event); err != nil {
		return event, fmt.Errorf("failed to decode trigger event: %w", err)
	}
	if len(event.Messages) == 0 {
		return event, errors.New("trigger event has no messages")
	}
	return event, nil
}
