package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var ErrDocumentNotFound = errors.New("document not found")

// DocumentMetadata describes an uploaded certification document
type DocumentMetadata struct {
	OwnerID     uint
	Filename    string
	ContentType string
}

// DocumentStore keeps certification documents as opaque blobs
type DocumentStore interface {
	Save(ctx context.Context, data []byte, meta DocumentMetadata) (string, error)
	Load(ctx context.Context, ref string) ([]byte, error)
	// Delete removes ref. Deleting a missing ref is not an error.
	Delete(ctx context.Context, ref string) error
}

// documentKey builds "<prefix>/<owner>/<uuid><ext>"
func documentKey(prefix string, meta DocumentMetadata) string {
	ext := strings.ToLower(filepath.Ext(meta.Filename))
	return fmt.Sprintf("%s/%d/%s%s", prefix, meta.OwnerID, uuid.New().String(), ext)
}

// MemoryDocumentStore is a DocumentStore for local development and tests
type MemoryDocumentStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func NewMemoryDocumentStore() *MemoryDocumentStore {
	return &MemoryDocumentStore{docs: make(map[string][]byte)}
}

func (s *MemoryDocumentStore) Save(ctx context.Context, data []byte, meta DocumentMetadata) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key := documentKey("memory", meta)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[key] = append([]byte(nil), data...)
	return key, nil
}

func (s *MemoryDocumentStore) Load(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.docs[ref]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	return append([]byte(nil), data...), nil
}

func (s *MemoryDocumentStore) Delete(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, ref)
	return nil
}

// Len reports the number of stored documents
func (s *MemoryDocumentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
