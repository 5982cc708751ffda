package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestStoreIntegration runs a full integration test against a real Postgres container.
// It requires Docker to be running.
func TestStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	// Explicitly check for Docker availability and fail hard if missing
	// We wrap this in a function to recover from panics inside testcontainers (e.g. socket not found)
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("testcontainers panicked: %v", r)
			}
		}()
		_, err = testcontainers.NewDockerClientWithOpts(ctx)
		return
	}()
	if err != nil {
		t.Fatalf("Docker not available, cannot run integration test: %v", err)
	}

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("facecrop_test"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
		testcontainers.WithLogger(noopLogger{}),
	)
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Fatalf("Failed to terminate container: %v", err)
		}
	}()

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	// A non-default schema exercises the table path prefix
	s, err := New(ctx, connStr, "faces")
	if err != nil {
		t.Fatalf("Failed to connect to store: %v", err)
	}
	defer s.Close()

	// --- Test Scenarios ---

	rec, err := s.InsertCrop(ctx, "cat.jpg", "face_cat_42.jpg")
	if err != nil {
		t.Fatalf("InsertCrop failed: %v", err)
	}
	if rec.OriginalID != "cat.jpg" || rec.FaceID != "face_cat_42.jpg" {
		t.Errorf("Unexpected record %+v", rec)
	}
	if rec.CreatedAt.IsZero() {
		t.Error("Expected created_at to be populated")
	}

	// Quotes in keys must be stored verbatim, not interpolated
	if _, err := s.InsertCrop(ctx, "cat.jpg", "face_o'brien_1.jpg"); err != nil {
		t.Fatalf("InsertCrop with quote failed: %v", err)
	}
	if _, err := s.InsertCrop(ctx, "dog.jpg", "face_dog_7.jpg"); err != nil {
		t.Fatalf("InsertCrop failed: %v", err)
	}

	crops, err := s.ListCrops(ctx, "cat.jpg")
	if err != nil {
		t.Fatalf("ListCrops failed: %v", err)
	}
	if len(crops) != 2 {
		t.Fatalf("Expected 2 crops for cat.jpg, got %d", len(crops))
	}
	if crops[1].FaceID != "face_o'brien_1.jpg" && crops[0].FaceID != "face_o'brien_1.jpg" {
		t.Errorf("Quoted face id not found in %+v", crops)
	}

	all, err := s.ListCrops(ctx, "")
	if err != nil {
		t.Fatalf("ListCrops(all) failed: %v", err)
	}
	if len(all) < len(crops) {
		t.Errorf("Listing all crops returned %d rows, want at least %d", len(all), len(crops))
	}

	// Schema init is idempotent
	s2, err := New(ctx, connStr, "faces")
	if err != nil {
		t.Fatalf("Second New failed: %v", err)
	}
	s2.Close()

	if err := s.Reset(ctx); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if _, err := s.ListCrops(ctx, "cat.jpg"); err == nil {
		t.Error("Expected error listing after table drop")
	}
}

type noopLogger struct{}

func (n noopLogger) Printf(format string, v ...interface{}) {}
