package detector

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andresmejia3/facecrop/internal/queue"
	"github.com/andresmejia3/facecrop/internal/types"
	"github.com/andresmejia3/facecrop/internal/vision"
)

type memObjects map[string][]byte

func (m memObjects) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	data, ok := m[bucket+"/"+key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return data, nil
}

type published struct {
	queueURL string
	msg      queue.Message
}

type memQueue struct {
	sent []published
	err  error
}

func (q *memQueue) Publish(ctx context.Context, queueURL string, msg queue.Message) error {
	if q.err != nil {
		return q.err
	}
	q.sent = append(q.sent, published{queueURL, msg})
	return nil
}

type staticFaces struct {
	faces []types.Polygon
	err   error
}

func (s staticFaces) DetectFaces(ctx context.Context, image []byte) ([]types.Polygon, error) {
	return s.faces, s.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func uploadEvent(bucket, key string) types.UploadEvent {
	return types.UploadEvent{Messages: []types.UploadMessage{types.NewUploadMessage(bucket, key)}}
}

func TestHandleCatScenario(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[{"results":[{"faceDetection":{"faces":[{"boundingBox":{"vertices":[
			{"x":"10","y":"20"},{"x":"50","y":"20"},{"x":"50","y":"80"},{"x":"10","y":"80"}]}}]}}]}]}`))
	}))
	defer srv.Close()

	q := &memQueue{}
	d := &Detector{
		Objects:  memObjects{"photos/cat.jpg": []byte("jpeg bytes")},
		Faces:    vision.NewClient(srv.URL, "key", time.Second),
		Queue:    q,
		QueueURL: "https://mq.example/tasks",
		Log:      quietLogger(),
	}

	n, err := d.Handle(context.Background(), uploadEvent("photos", "cat.jpg"))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if n != 1 || len(q.sent) != 1 {
		t.Fatalf("Expected 1 published message, got n=%d sent=%d", n, len(q.sent))
	}

	want := `{"object_key":"cat.jpg","face":[{"x":10,"y":20},{"x":50,"y":20},{"x":50,"y":80},{"x":10,"y":80}]}`
	if q.sent[0].msg.Body != want {
		t.Errorf("Body = %s\nwant  %s", q.sent[0].msg.Body, want)
	}
	if q.sent[0].queueURL != "https://mq.example/tasks" {
		t.Errorf("Published to %q", q.sent[0].queueURL)
	}
	if q.sent[0].msg.GroupID != "cat.jpg" {
		t.Errorf("Expected group id cat.jpg, got %q", q.sent[0].msg.GroupID)
	}
}

func TestHandleMissingResultPath(t *testing.T) {
	responses := []string{
		`{"results":[{"results":[{}]}]}`,
		`{"results":[{"results":[{"faceDetection":{"faces":[{"boundingBox":{}}]}}]}]}`,
	}

	for _, body := range responses {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		}))

		q := &memQueue{}
		d := &Detector{
			Objects: memObjects{"photos/landscape.jpg": []byte("jpeg bytes")},
			Faces:   vision.NewClient(srv.URL, "key", time.Second),
			Queue:   q,
			Log:     quietLogger(),
		}

		n, err := d.Handle(context.Background(), uploadEvent("photos", "landscape.jpg"))
		srv.Close()
		if err != nil {
			t.Fatalf("Expected no error for %s, got %v", body, err)
		}
		if n != 0 || len(q.sent) != 0 {
			t.Errorf("Expected nothing published for %s, got %d", body, len(q.sent))
		}
	}
}

func TestHandleDedupModes(t *testing.T) {
	faces := []types.Polygon{
		{{X: 1, Y: 1}, {X: 5, Y: 5}},
		{{X: 10, Y: 10}, {X: 20, Y: 20}},
	}

	tests := []struct {
		name    string
		perFace bool
		want    []string
	}{
		{"Per face", true, []string{"group.jpg#0", "group.jpg#1"}},
		{"Per object", false, []string{"group.jpg", "group.jpg"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &memQueue{}
			d := &Detector{
				Objects:      memObjects{"photos/group.jpg": []byte("x")},
				Faces:        staticFaces{faces: faces},
				Queue:        q,
				DedupPerFace: tt.perFace,
				Log:          quietLogger(),
			}
			if _, err := d.HandleObject(context.Background(), "photos", "group.jpg"); err != nil {
				t.Fatal(err)
			}
			if len(q.sent) != 2 {
				t.Fatalf("Expected 2 messages, got %d", len(q.sent))
			}
			for i, w := range tt.want {
				if q.sent[i].msg.DedupID != w {
					t.Errorf("Message %d dedup id = %q, want %q", i, q.sent[i].msg.DedupID, w)
				}
			}
		})
	}
}

func TestHandleErrorsPropagate(t *testing.T) {
	faces := []types.Polygon{{{X: 1, Y: 1}, {X: 5, Y: 5}}}

	tests := []struct {
		name string
		d    *Detector
	}{
		{
			name: "Missing object",
			d:    &Detector{Objects: memObjects{}, Faces: staticFaces{}, Queue: &memQueue{}},
		},
		{
			name: "Vision failure",
			d: &Detector{
				Objects: memObjects{"photos/cat.jpg": []byte("x")},
				Faces:   staticFaces{err: errors.New("503")},
				Queue:   &memQueue{},
			},
		},
		{
			name: "Queue failure",
			d: &Detector{
				Objects: memObjects{"photos/cat.jpg": []byte("x")},
				Faces:   staticFaces{faces: faces},
				Queue:   &memQueue{err: errors.New("AccessDenied")},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.d.Log = quietLogger()
			if _, err := tt.d.Handle(context.Background(), uploadEvent("photos", "cat.jpg")); err == nil {
				t.Error("Expected error to propagate")
			}
		})
	}
}

func TestHandleEmptyEvent(t *testing.T) {
	d := &Detector{Log: quietLogger()}
	if _, err := d.Handle(context.Background(), types.UploadEvent{}); !errors.Is(err, ErrEmptyEvent) {
		t.Errorf("Expected ErrEmptyEvent, got %v", err)
	}
}
