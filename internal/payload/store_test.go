package payload

import (
	"bytes"
	"errors"
	"io"
	"os"
	"testing"
)

func setupTestStore(t *testing.T) *Store {
	tmpDir, err := os.MkdirTemp("", "payload-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })
	return NewStore(tmpDir)
}

func TestPut(t *testing.T) {
	store := setupTestStore(t)

	data := []byte("fake mp4 bytes")
	handle, err := store.Put("video/mp4", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if handle == "" {
		t.Error("handle should not be empty")
	}

	if _, err := os.Stat(store.filePath(handle)); os.IsNotExist(err) {
		t.Error("payload file should exist on disk")
	}

	reader, meta, err := store.Open(handle)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer reader.Close()

	if meta.ContentType != "video/mp4" {
		t.Errorf("expected ContentType video/mp4, got %s", meta.ContentType)
	}
	if meta.Size != int64(len(data)) {
		t.Errorf("expected Size %d, got %d", len(data), meta.Size)
	}
	if meta.Hash == "" {
		t.Error("Hash should not be empty")
	}

	content, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("failed to read payload: %v", err)
	}
	if !bytes.Equal(content, data) {
		t.Errorf("expected content %q, got %q", data, content)
	}
}

func TestPutDistinctHandles(t *testing.T) {
	store := setupTestStore(t)

	// Identical content still gets its own handle; ownership is never shared.
	h1, err := store.Put("video/mp4", bytes.NewReader([]byte("same")))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	h2, err := store.Put("video/mp4", bytes.NewReader([]byte("same")))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if h1 == h2 {
		t.Error("handles for separate Put calls should differ")
	}

	if err := store.Release(h1); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if _, _, err := store.Open(h2); err != nil {
		t.Errorf("second handle should still be open after releasing the first: %v", err)
	}
}

func TestRelease(t *testing.T) {
	store := setupTestStore(t)

	handle, err := store.Put("video/mp4", bytes.NewReader([]byte("payload")))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if err := store.Release(handle); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	if _, err := os.Stat(store.filePath(handle)); !os.IsNotExist(err) {
		t.Error("payload file should be deleted after release")
	}

	if _, _, err := store.Open(handle); !errors.Is(err, ErrUnknownHandle) {
		t.Errorf("expected ErrUnknownHandle after release, got %v", err)
	}

	// Second release must fail: the exactly-once contract.
	if err := store.Release(handle); !errors.Is(err, ErrUnknownHandle) {
		t.Errorf("expected ErrUnknownHandle on double release, got %v", err)
	}

	if store.Len() != 0 {
		t.Errorf("expected 0 live handles, got %d", store.Len())
	}
}

func TestReleaseUnknown(t *testing.T) {
	store := setupTestStore(t)

	if err := store.Release(Handle("never-issued")); !errors.Is(err, ErrUnknownHandle) {
		t.Errorf("expected ErrUnknownHandle, got %v", err)
	}
}
