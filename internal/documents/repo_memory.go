package documents

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of DocumentsRepo, used in dev
// mode and tests. It mirrors the Postgres semantics, including the
// DONE-replacement refusal.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]map[Category]Document // userID -> category -> document
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[string]map[Category]Document),
	}
}

// Upsert creates or replaces the document for (user, category) in place.
func (r *MemoryRepo) Upsert(ctx context.Context, doc Document) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := doc.CreatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	byCategory, ok := r.data[doc.UserID]
	if !ok {
		byCategory = make(map[Category]Document)
		r.data[doc.UserID] = byCategory
	}

	if existing, ok := byCategory[doc.Category]; ok {
		if existing.State == StateDone {
			return Document{}, ErrConflict
		}
		existing.FileName = doc.FileName
		existing.MimeType = doc.MimeType
		existing.SizeBytes = doc.SizeBytes
		existing.State = doc.State
		existing.ExternalVerificationID = ""
		existing.ClassificationPayload = nil
		existing.VerificationPayload = nil
		existing.ErrorMessage = ""
		existing.UpdatedAt = now
		byCategory[doc.Category] = existing
		return existing, nil
	}

	doc.CreatedAt = now
	doc.UpdatedAt = now
	byCategory[doc.Category] = doc
	return doc, nil
}

// GetByUserAndCategory returns the document for (user, category).
func (r *MemoryRepo) GetByUserAndCategory(ctx context.Context, userID string, category Category) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if doc, ok := r.data[userID][category]; ok {
		return doc, nil
	}
	return Document{}, ErrNotFound
}

// GetByID returns a document by ID scoped to its owner.
func (r *MemoryRepo) GetByID(ctx context.Context, userID, documentID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, doc := range r.data[userID] {
		if doc.ID == documentID {
			return doc, nil
		}
	}
	return Document{}, ErrNotFound
}

// ListByUser returns the owner's documents, newest first.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Document, 0, len(r.data[userID]))
	for _, doc := range r.data[userID] {
		out = append(out, doc)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// UpdateState persists a lifecycle transition with its patch.
func (r *MemoryRepo) UpdateState(ctx context.Context, documentID string, state State, patch StatePatch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for userID, byCategory := range r.data {
		for category, doc := range byCategory {
			if doc.ID != documentID {
				continue
			}
			doc.State = state
			if patch.ExternalVerificationID != nil {
				doc.ExternalVerificationID = *patch.ExternalVerificationID
			}
			if patch.ClassificationPayload != nil {
				doc.ClassificationPayload = patch.ClassificationPayload
			}
			if patch.VerificationPayload != nil {
				doc.VerificationPayload = patch.VerificationPayload
			}
			if patch.ErrorMessage != nil {
				doc.ErrorMessage = *patch.ErrorMessage
			}
			doc.UpdatedAt = time.Now().UTC()
			r.data[userID][category] = doc
			return nil
		}
	}
	return ErrNotFound
}

var _ DocumentsRepo = (*MemoryRepo)(nil)
