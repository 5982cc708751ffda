package detector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/andresmejia3/facecrop/internal/queue"
	"github.com/andresmejia3/facecrop/internal/types"
)

// ObjectGetter fetches object bytes.
type ObjectGetter interface {
	Get(ctx context.Context, bucket, key string) ([]byte, error)
}

// FaceFinder returns one bounding polygon per detected face.
type FaceFinder interface {
	DetectFaces(ctx context.Context, image []byte) ([]types.Polygon, error)
}

// Publisher sends one message to a queue.
type Publisher interface {
	Publish(ctx context.Context, queueURL string, msg queue.Message) error
}

var ErrEmptyEvent = errors.New("event carries no messages")

// Detector turns an uploaded photo into one queue message per face.
type Detector struct {
	Objects      ObjectGetter
	Faces        FaceFinder
	Queue        Publisher
	QueueURL     string
	DedupPerFace bool
	Log          *slog.Logger
}

// Handle processes a storage trigger event and returns how many face
// messages were published. Errors stop the invocation so the platform can
// retry it as a whole.
func (d *Detector) Handle(ctx context.Context, event types.UploadEvent) (int, error) {
	if len(event.Messages) == 0 {
		return 0, ErrEmptyEvent
	}

	total := 0
	for _, m := range event.Messages {
		n, err := d.HandleObject(ctx, m.Details.BucketID, m.Details.ObjectID)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// HandleObject runs detection for one object and publishes its faces.
func (d *Detector) HandleObject(ctx context.Context, bucket, key string) (int, error) {
	log := d.logger().With("bucket", bucket, "object_key", key)

	img, err := d.Objects.Get(ctx, bucket, key)
	if err != nil {
		return 0, err
	}

	faces, err := d.Faces.DetectFaces(ctx, img)
	if err != nil {
		return 0, fmt.Errorf("face detection for %s: %w", key, err)
	}
	if len(faces) == 0 {
		log.Info("no faces found")
		return 0, nil
	}

	for i, face := range faces {
		body, err := json.Marshal(types.FaceMessage{ObjectKey: key, Face: face})
		if err != nil {
			return i, err
		}
		err = d.Queue.Publish(ctx, d.QueueURL, queue.Message{
			Body:    string(body),
			DedupID: queue.DedupID(key, i, d.DedupPerFace),
			GroupID: key,
		})
		if err != nil {
			return i, fmt.Errorf("publish face %d of %s: %w", i, key, err)
		}
	}

	log.Info("faces published", "count", len(faces))
	return len(faces), nil
}

func (d *Detector) logger() *slog.Logger {
	if d.Log != nil {
		return d.Log
	}
	return slog.Default()
}
