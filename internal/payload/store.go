package payload

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Handle is an opaque reference to a stored binary. Each handle owns the
// underlying file and must be released exactly once; access after release
// fails with ErrUnknownHandle.
type Handle string

var ErrUnknownHandle = errors.New("unknown or already released payload handle")

type Metadata struct {
	ContentType string    `json:"content_type"`
	Hash        string    `json:"hash"`
	Size        int64     `json:"size"` // in bytes
	StoredAt    time.Time `json:"stored_at"`
}

// Store keeps payload binaries on disk under basePath and tracks live
// handles in memory. Handles are process-scoped: nothing survives a restart,
// which matches their role as local resource locators, not durable storage.
type Store struct {
	basePath string
	index    map[Handle]Metadata
	mutex    sync.RWMutex
}

func NewStore(basePath string) *Store {
	return &Store{
		basePath: basePath,
		index:    make(map[Handle]Metadata),
	}
}

// Put writes data to disk and returns a fresh handle owning it.
func (s *Store) Put(contentType string, data io.Reader) (Handle, error) {
	if err := os.MkdirAll(filepath.Join(s.basePath, "data"), 0755); err != nil {
		return "", err
	}
	tmpPath := filepath.Join(s.basePath, fmt.Sprintf("temp-%d", time.Now().UnixNano()))
	defer os.Remove(tmpPath)

	f, err := os.Create(tmpPath)
	if err != nil {
		return "", err
	}

	contentHash := sha256.New()
	buf := make([]byte, 1*1024*1024) // 1MB
	size, err := io.CopyBuffer(io.MultiWriter(f, contentHash), data, buf)
	f.Close()
	if err != nil {
		return "", err
	}

	handle := Handle(uuid.New().String())
	if err := os.Rename(tmpPath, s.filePath(handle)); err != nil {
		return "", err
	}

	metadata := Metadata{
		ContentType: contentType,
		Hash:        hex.EncodeToString(contentHash.Sum(nil)),
		Size:        size,
		StoredAt:    time.Now(),
	}

	s.mutex.Lock()
	s.index[handle] = metadata
	s.mutex.Unlock()

	return handle, nil
}

// Open returns a reader for a live handle. The caller closes the reader;
// the handle stays owned by whoever acquired it.
func (s *Store) Open(handle Handle) (io.ReadCloser, *Metadata, error) {
	s.mutex.RLock()
	metadata, exists := s.index[handle]
	s.mutex.RUnlock()

	if !exists {
		return nil, nil, ErrUnknownHandle
	}

	f, err := os.Open(s.filePath(handle))
	if err != nil {
		return nil, nil, err
	}
	return f, &metadata, nil
}

// Release frees the handle and deletes its file. Releasing a handle twice
// is an error, so owners can verify the exactly-once contract.
func (s *Store) Release(handle Handle) error {
	s.mutex.Lock()
	_, exists := s.index[handle]
	if exists {
		delete(s.index, handle)
	}
	s.mutex.Unlock()

	if !exists {
		return ErrUnknownHandle
	}

	if err := os.Remove(s.filePath(handle)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete payload file: %w", err)
	}
	return nil
}

// Len reports the number of live handles.
func (s *Store) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.index)
}

func (s *Store) filePath(handle Handle) string {
	return filepath.Join(s.basePath, "data", fmt.Sprintf("%s.dat", handle))
}
