// Package docstore persists extracted documents so search results can
// be fetched individually later. Two implementations: a process-local
// map for single-node deployments and a KV-backed store for shared
// ones.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/santara-labs/statuta/internal/db"
	"github.com/santara-labs/statuta/internal/domain"
	"github.com/santara-labs/statuta/internal/domain/document"
)

var docKeyPrefix = domain.KeyPrefix + "doc:"

// store is the consumer interface for document persistence (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// KV implements document storage on top of DB.
type KV struct {
	store store
	ttl   time.Duration
}

// NewKV creates a KV-backed document store. ttl <= 0 stores documents
// without expiry.
func NewKV(s store, ttl time.Duration) *KV {
	return &KV{store: s, ttl: ttl}
}

// docDTO is the persisted document shape.
type docDTO struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	SourceURL string `json:"source_url"`
	DocType   string `json:"doc_type"`
	Date      string `json:"date"`
	Preview   string `json:"preview,omitempty"`
	Content   string `json:"content"`
	PDFURL    string `json:"pdf_url,omitempty"`
	Page      int    `json:"page,omitempty"`
}

// Save stores a document under its ID.
func (r *KV) Save(ctx context.Context, doc document.Document) error {
	dto := docDTO{
		ID:        doc.ID(),
		Title:     doc.Title(),
		SourceURL: doc.SourceURL(),
		DocType:   doc.DocType(),
		Date:      doc.Date(),
		Preview:   doc.Preview(),
		Content:   doc.Content(),
		PDFURL:    doc.PDFURL(),
		Page:      doc.Page(),
	}
	data, err := json.Marshal(dto)
	if err != nil {
		return fmt.Errorf("marshal document %s: %w", doc.ID(), err)
	}

	key := docKeyPrefix + doc.ID()
	if r.ttl > 0 {
		if err := r.store.SetWithTTL(ctx, key, data, r.ttl); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
		return nil
	}
	if err := r.store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Get returns a document by ID.
func (r *KV) Get(ctx context.Context, id string) (document.Document, error) {
	key := docKeyPrefix + id
	data, err := r.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return document.Document{}, domain.ErrDocumentNotFound
		}
		return document.Document{}, fmt.Errorf("get %s: %w", key, err)
	}

	var dto docDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return document.Document{}, fmt.Errorf("unmarshal %s: %w", key, err)
	}

	return document.Reconstruct(
		dto.ID, dto.Title, dto.SourceURL, dto.DocType,
		dto.Date, dto.Preview, dto.Content, dto.PDFURL, dto.Page,
	), nil
}
