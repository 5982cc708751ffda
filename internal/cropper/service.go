package cropper

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/andresmejia3/facecrop/internal/crop"
	"github.com/andresmejia3/facecrop/internal/queue"
	"github.com/andresmejia3/facecrop/internal/types"
	"github.com/andresmejia3/facecrop/internal/utils"
	"github.com/andresmejia3/facecrop/internal/worker"
)

// CropContentType is the content type crops are uploaded with.
const CropContentType = "application/octet-stream"

// maxLoggedBody caps the body logged for failures without an object key.
const maxLoggedBody = 200

var ErrBadMessage = errors.New("malformed face message")

// ObjectStore reads originals and writes crops.
type ObjectStore interface {
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Put(ctx context.Context, bucket, key string, body []byte, contentType string) error
}

// CropStore persists the link between an original and a crop.
type CropStore interface {
	InsertCrop(ctx context.Context, originalID, faceID string) (types.CropRecord, error)
}

// Publisher forwards failed messages to a dead-letter queue.
type Publisher interface {
	Publish(ctx context.Context, queueURL string, msg queue.Message) error
}

// Service holds everything one message needs. It is built once at startup
// and shared by all requests; it carries no per-request state.
type Service struct {
	Objects     ObjectStore
	Crops       CropStore
	PhotoBucket string
	FaceBucket  string
	Mode        crop.Mode
	Quality     int
	Concurrency int

	// DeadLetter and DeadLetterURL are optional.
	DeadLetter    Publisher
	DeadLetterURL string

	Log *slog.Logger
}

// Result is the outcome of one message. Err is nil on success.
type Result struct {
	ObjectKey string
	FaceKey   string
	Rect      image.Rectangle
	Record    types.CropRecord
	Err       error
}

// Process crops one face message, uploads the crop and records it.
func (s *Service) Process(ctx context.Context, msg types.TriggerMessage) Result {
	body := msg.Details.Message.Body
	fm, err := types.DecodeFaceMessage(body)
	if err != nil {
		return Result{Err: fmt.Errorf("%w: %v", ErrBadMessage, err)}
	}
	if fm.ObjectKey == "" {
		return Result{Err: fmt.Errorf("%w: empty object_key", ErrBadMessage)}
	}
	res := Result{ObjectKey: fm.ObjectKey}

	data, err := s.Objects.Get(ctx, s.PhotoBucket, fm.ObjectKey)
	if err != nil {
		res.Err = err
		return res
	}

	out, rect, err := crop.Face(data, fm.Face, s.Mode, s.Quality)
	res.Rect = rect
	if err != nil {
		res.Err = err
		return res
	}

	res.FaceKey = crop.FaceKey(fm.ObjectKey)
	if err := s.Objects.Put(ctx, s.FaceBucket, res.FaceKey, out, CropContentType); err != nil {
		res.Err = err
		return res
	}

	res.Record, res.Err = s.Crops.InsertCrop(ctx, fm.ObjectKey, res.FaceKey)
	return res
}

// batchItem is one message of a batch. err is set when the message could
// not be decoded from the envelope.
type batchItem struct {
	msg  types.TriggerMessage
	body string
	err  error
}

// ProcessBatch handles every message of a trigger batch. A failing message
// never stops the others; it is logged and, when configured, dead-lettered.
func (s *Service) ProcessBatch(ctx context.Context, batch types.TriggerBatch) []Result {
	items := make([]batchItem, len(batch.Messages))
	for i, m := range batch.Messages {
		items[i] = batchItem{msg: m, body: m.Details.Message.Body}
	}
	return s.run(ctx, items)
}

// ProcessEnvelope decodes each message of env on its own. A message of the
// wrong shape fails with ErrBadMessage and the rest are still processed.
func (s *Service) ProcessEnvelope(ctx context.Context, env types.TriggerEnvelope) []Result {
	items := make([]batchItem, len(env.Messages))
	for i, raw := range env.Messages {
		m, err := types.DecodeTriggerMessage(raw)
		if err != nil {
			items[i] = batchItem{body: string(raw), err: fmt.Errorf("%w: %v", ErrBadMessage, err)}
			continue
		}
		items[i] = batchItem{msg: m, body: m.Details.Message.Body}
	}
	return s.run(ctx, items)
}

func (s *Service) run(ctx context.Context, items []batchItem) []Result {
	log := s.logger()

	results := worker.Run(ctx, s.Concurrency, items,
		func(ctx context.Context, workerID int, it batchItem) Result {
			if it.err != nil {
				return Result{Err: it.err}
			}
			return s.Process(ctx, it.msg)
		},
		func(it batchItem, err error) Result {
			return Result{Err: err}
		},
	)

	failed := 0
	for i, res := range results {
		if res.Err == nil {
			log.Info("face stored",
				"object_key", res.ObjectKey,
				"face_key", res.FaceKey,
				"rect", res.Rect.String(),
				"id", res.Record.ID)
			continue
		}
		failed++
		attrs := []any{"index", i, "object_key", res.ObjectKey, "error", res.Err}
		if res.ObjectKey == "" {
			attrs = append(attrs, "body", utils.Truncate(items[i].body, maxLoggedBody))
		}
		log.Error("message dropped", attrs...)
		s.deadLetter(ctx, items[i].body, res)
	}

	log.Info("batch complete", "messages", len(results), "failed", failed)
	return results
}

func (s *Service) deadLetter(ctx context.Context, body string, res Result) {
	if s.DeadLetter == nil || s.DeadLetterURL == "" {
		return
	}
	// Sent even if the request was cancelled.
	err := s.DeadLetter.Publish(context.WithoutCancel(ctx), s.DeadLetterURL, queue.Message{Body: body})
	if err != nil {
		s.logger().Error("dead-letter publish failed", "object_key", res.ObjectKey, "error", err)
	}
}

// WithLogger returns a copy of s that logs to l.
func (s *Service) WithLogger(l *slog.Logger) *Service {
	c := *s
	c.Log = l
	return &c
}

func (s *Service) logger() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}
