package cmd

import (
	"bufio"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/andresmejia3/facecrop/internal/config"
)

func TestDetectInput(t *testing.T) {
	const event = `{"messages":[{"details":{"bucket_id":"photos","object_id":"cat.jpg"}}]}`

	dir := t.TempDir()
	eventFile := filepath.Join(dir, "event.json")
	if err := os.WriteFile(eventFile, []byte(event), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		bucket     string
		key        string
		eventPath  string
		stdin      string
		envBucket  string
		wantBucket string
		wantKey    string
		wantErr    bool
	}{
		{name: "Key with bucket flag", bucket: "photos", key: "cat.jpg", wantBucket: "photos", wantKey: "cat.jpg"},
		{name: "Key falls back to PHOTO_BUCKET", key: "dog.jpg", envBucket: "uploads", wantBucket: "uploads", wantKey: "dog.jpg"},
		{name: "Key without any bucket", key: "dog.jpg", wantErr: true},
		{name: "Event from file", eventPath: eventFile, wantBucket: "photos", wantKey: "cat.jpg"},
		{name: "Event from stdin", eventPath: "-", stdin: event, wantBucket: "photos", wantKey: "cat.jpg"},
		{name: "Empty event", eventPath: "-", stdin: `{"messages":[]}`, wantErr: true},
		{name: "Broken event", eventPath: "-", stdin: `{"messages":`, wantErr: true},
		{name: "Missing event file", eventPath: filepath.Join(dir, "nope.json"), wantErr: true},
		{name: "No input", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detectBucket, detectKey, detectEvent = tt.bucket, tt.key, tt.eventPath
			cfg = &config.Config{PhotoBucket: tt.envBucket}
			t.Cleanup(func() {
				detectBucket, detectKey, detectEvent = "", "", ""
				cfg = nil
			})

			got, err := detectInput(strings.NewReader(tt.stdin))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if len(got.Messages) != 1 {
				t.Fatalf("Expected 1 message, got %d", len(got.Messages))
			}
			d := got.Messages[0].Details
			if d.BucketID != tt.wantBucket || d.ObjectID != tt.wantKey {
				t.Errorf("Got %s/%s, want %s/%s", d.BucketID, d.ObjectID, tt.wantBucket, tt.wantKey)
			}
		})
	}
}

func TestPhotoKeys(t *testing.T) {
	in := []string{"a.jpg", "", "albums/", "albums/b.jpg"}
	got := photoKeys(in)
	want := []string{"a.jpg", "albums/b.jpg"}
	if !slices.Equal(got, want) {
		t.Errorf("photoKeys() = %v, want %v", got, want)
	}
	if len(in) != 4 || in[1] != "" {
		t.Error("photoKeys must not modify its input")
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"  yes  \n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"y", true},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			if got := confirm(bufio.NewReader(strings.NewReader(tt.input)), "sure?"); got != tt.want {
				t.Errorf("confirm(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
