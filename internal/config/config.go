package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	DedupFace   = "face"
	DedupObject = "object"

	CropSmallest = "smallest"
	CropBounds   = "bounds"
)

// Config is the environment snapshot shared by the detector and the cropper.
// It is read once at startup and treated as read-only afterwards.
type Config struct {
	PhotoBucket string `env:"PHOTO_BUCKET"`
	FaceBucket  string `env:"FACE_BUCKET"`

	DBEndpoint string `env:"DB_ENDPOINT"`
	DBPath     string `env:"DB_PATH" env-default:"public"`

	AccessKey       string `env:"AWS_ACCESS_KEY"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	Region          string `env:"AWS_REGION" env-default:"ru-central1"`
	S3Endpoint      string `env:"S3_ENDPOINT" env-default:"https://storage.yandexcloud.net"`

	QueueEndpoint      string `env:"QUEUE_ENDPOINT" env-default:"https://message-queue.api.cloud.yandex.net"`
	QueueURL           string `env:"QUEUE_URL"`
	DeadLetterQueueURL string `env:"DEAD_LETTER_QUEUE_URL"`
	DedupMode          string `env:"DEDUP_MODE" env-default:"face"`

	APIKey         string        `env:"API_SECRET_KEY"`
	VisionEndpoint string        `env:"VISION_ENDPOINT" env-default:"https://vision.api.cloud.yandex.net/vision/v1/batchAnalyze"`
	VisionTimeout  time.Duration `env:"VISION_TIMEOUT" env-default:"30s"`

	Port            int    `env:"PORT" env-default:"8080"`
	CropMode        string `env:"CROP_MODE" env-default:"smallest"`
	CropConcurrency int    `env:"CROP_CONCURRENCY" env-default:"1"`
	JPEGQuality     int    `env:"JPEG_QUALITY" env-default:"75"`

	LogLevel  string `env:"LOG_LEVEL" env-default:"info"`
	LogFormat string `env:"LOG_FORMAT" env-default:"text"`
}

// Load reads an optional .env file and then the process environment.
// A missing .env is expected in deployed functions and is not an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that have a closed set of valid settings.
func (c *Config) Validate() error {
	switch c.DedupMode {
	case DedupFace, DedupObject:
	default:
		return fmt.Errorf("DEDUP_MODE must be %q or %q, got %q", DedupFace, DedupObject, c.DedupMode)
	}
	switch c.CropMode {
	case CropSmallest, CropBounds:
	default:
		return fmt.Errorf("CROP_MODE must be %q or %q, got %q", CropSmallest, CropBounds, c.CropMode)
	}
	if c.CropConcurrency < 1 {
		return fmt.Errorf("CROP_CONCURRENCY must be at least 1, got %d", c.CropConcurrency)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("JPEG_QUALITY must be between 1 and 100, got %d", c.JPEGQuality)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT out of range: %d", c.Port)
	}
	return nil
}

// RequireDetector reports every variable the detector needs but is missing.
func (c *Config) RequireDetector() error {
	return missing(map[string]string{
		"AWS_ACCESS_KEY":        c.AccessKey,
		"AWS_SECRET_ACCESS_KEY": c.SecretAccessKey,
		"API_SECRET_KEY":        c.APIKey,
		"QUEUE_URL":             c.QueueURL,
	})
}

// RequireCropper reports every variable the cropper service needs but is missing.
func (c *Config) RequireCropper() error {
	return missing(map[string]string{
		"AWS_ACCESS_KEY":        c.AccessKey,
		"AWS_SECRET_ACCESS_KEY": c.SecretAccessKey,
		"PHOTO_BUCKET":          c.PhotoBucket,
		"FACE_BUCKET":           c.FaceBucket,
		"DB_ENDPOINT":           c.DBEndpoint,
	})
}

func missing(vars map[string]string) error {
	var names []string
	for name, v := range vars {
		if v == "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil
	}
	slices.Sort(names)
	return fmt.Errorf("missing required environment variables: %s", strings.Join(names, ", "))
}

// Logger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
