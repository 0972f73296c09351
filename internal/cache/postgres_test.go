//go:build integration

package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/facegallery/facegallery/internal/config"
)

func setupTestContainer(t *testing.T) (*PostgresStore, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}
	if container == nil {
		t.Skip("Docker not available, skipping integration test")
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	cfg := &config.CacheConfig{
		DatabaseURL:  fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port()),
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	store, err := NewPostgresStore(cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create store: %v", err)
	}

	cleanup := func() {
		store.Close()
		container.Terminate(ctx)
	}

	return store, cleanup
}

func TestPostgresStore(t *testing.T) {
	store, cleanup := setupTestContainer(t)
	if store == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()

	t.Run("LoadEmpty", func(t *testing.T) {
		_, err := store.Load(ctx)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound on empty database, got %v", err)
		}
	})

	t.Run("SaveAndLoad", func(t *testing.T) {
		rec := testRecord()
		if err := store.Save(ctx, rec); err != nil {
			t.Fatalf("Failed to save snapshot: %v", err)
		}

		got, err := store.Load(ctx)
		if err != nil {
			t.Fatalf("Failed to load snapshot: %v", err)
		}
		if got.Fingerprint != rec.Fingerprint {
			t.Errorf("Expected fingerprint %q, got %q", rec.Fingerprint, got.Fingerprint)
		}
		if len(got.Photos) != len(rec.Photos) {
			t.Fatalf("Expected %d photos, got %d", len(rec.Photos), len(got.Photos))
		}
		if len(got.Photos[0].Faces) != 1 {
			t.Fatalf("Expected 1 face, got %d", len(got.Photos[0].Faces))
		}
		face := got.Photos[0].Faces[0]
		if face.Box != rec.Photos[0].Faces[0].Box {
			t.Errorf("Expected box %+v, got %+v", rec.Photos[0].Faces[0].Box, face.Box)
		}
		if len(face.Embedding) != 3 {
			t.Errorf("Expected 3 embedding dimensions, got %d", len(face.Embedding))
		}
	})

	t.Run("SaveReplaces", func(t *testing.T) {
		rec := testRecord()
		rec.Fingerprint = "replaced"
		rec.Photos = rec.Photos[:1]
		if err := store.Save(ctx, rec); err != nil {
			t.Fatalf("Failed to save replacement snapshot: %v", err)
		}

		got, err := store.Load(ctx)
		if err != nil {
			t.Fatalf("Failed to load snapshot: %v", err)
		}
		if got.Fingerprint != "replaced" {
			t.Errorf("Expected fingerprint 'replaced', got %q", got.Fingerprint)
		}
		if len(got.Photos) != 1 {
			t.Errorf("Expected 1 photo after replacement, got %d", len(got.Photos))
		}
	})

	t.Run("VersionMismatch", func(t *testing.T) {
		rec := testRecord()
		rec.Version = RecordVersion + 1
		if err := store.Save(ctx, rec); err != nil {
			t.Fatalf("Failed to save snapshot: %v", err)
		}

		_, err := store.Load(ctx)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound for version mismatch, got %v", err)
		}
	})
}
