package docstore

import (
	"context"
	"sync"

	"github.com/santara-labs/statuta/internal/domain"
	"github.com/santara-labs/statuta/internal/domain/document"
)

// Memory is a process-local document store.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]document.Document
}

// NewMemory creates an empty in-memory document store.
func NewMemory() *Memory {
	return &Memory{docs: make(map[string]document.Document)}
}

// Save stores a document under its ID.
func (m *Memory) Save(_ context.Context, doc document.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.ID()] = doc
	return nil
}

// Get returns a document by ID.
func (m *Memory) Get(_ context.Context, id string) (document.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[id]
	if !ok {
		return document.Document{}, domain.ErrDocumentNotFound
	}
	return doc, nil
}

// Len reports how many documents are stored.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}
