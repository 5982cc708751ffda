// Command detector-fn is the serverless entrypoint of the face detector.
// It is invoked once per object storage upload event.
package main

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/andresmejia3/facecrop/internal/app"
	"github.com/andresmejia3/facecrop/internal/config"
	"github.com/andresmejia3/facecrop/internal/detector"
	"github.com/andresmejia3/facecrop/internal/types"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger := cfg.Logger(os.Stderr)

	det, err := app.NewDetector(cfg, logger)
	if err != nil {
		log.Fatal(err)
	}

	lambda.Start(handler(det))
}

func handler(det *detector.Detector) func(ctx context.Context, event types.UploadEvent) error {
	return func(ctx context.Context, event types.UploadEvent) error {
		_, err := det.Handle(ctx, event)
		return err
	}
}
