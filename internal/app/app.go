// Package app builds the detector and the cropper service from a config snapshot.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/andresmejia3/facecrop/internal/config"
	"github.com/andresmejia3/facecrop/internal/crop"
	"github.com/andresmejia3/facecrop/internal/cropper"
	"github.com/andresmejia3/facecrop/internal/detector"
	"github.com/andresmejia3/facecrop/internal/queue"
	"github.com/andresmejia3/facecrop/internal/storage"
	"github.com/andresmejia3/facecrop/internal/store"
	"github.com/andresmejia3/facecrop/internal/vision"
)

// ObjectStore builds the S3-compatible client for both buckets.
func ObjectStore(cfg *config.Config) *storage.S3Store {
	return storage.New(storage.Options{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.Region,
		AccessKey:       cfg.AccessKey,
		SecretAccessKey: cfg.SecretAccessKey,
	})
}

func publisher(cfg *config.Config) *queue.SQSPublisher {
	return queue.New(queue.Options{
		Endpoint:        cfg.QueueEndpoint,
		Region:          cfg.Region,
		AccessKey:       cfg.AccessKey,
		SecretAccessKey: cfg.SecretAccessKey,
	})
}

// NewDetector wires the detector to S3, the vision API and the queue.
func NewDetector(cfg *config.Config, log *slog.Logger) (*detector.Detector, error) {
	if err := cfg.RequireDetector(); err != nil {
		return nil, err
	}
	return &detector.Detector{
		Objects:      ObjectStore(cfg),
		Faces:        vision.NewClient(cfg.VisionEndpoint, cfg.APIKey, cfg.VisionTimeout),
		Queue:        publisher(cfg),
		QueueURL:     cfg.QueueURL,
		DedupPerFace: cfg.DedupMode == config.DedupFace,
		Log:          log,
	}, nil
}

// OpenStore connects to the database named by DB_ENDPOINT.
func OpenStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	if cfg.DBEndpoint == "" {
		return nil, fmt.Errorf("DB_ENDPOINT is not set")
	}
	return store.New(ctx, cfg.DBEndpoint, cfg.DBPath)
}

// NewCropper wires the cropper service. The caller owns db and must close it.
func NewCropper(cfg *config.Config, db *store.Store, log *slog.Logger) (*cropper.Service, error) {
	if err := cfg.RequireCropper(); err != nil {
		return nil, err
	}
	svc := &cropper.Service{
		Objects:     ObjectStore(cfg),
		Crops:       db,
		PhotoBucket: cfg.PhotoBucket,
		FaceBucket:  cfg.FaceBucket,
		Mode:        crop.Mode(cfg.CropMode),
		Quality:     cfg.JPEGQuality,
		Concurrency: cfg.CropConcurrency,
		Log:         log,
	}
	if cfg.DeadLetterQueueURL != "" {
		svc.DeadLetter = publisher(cfg)
		svc.DeadLetterURL = cfg.DeadLetterQueueURL
	}
	return svc, nil
}
