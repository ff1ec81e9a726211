package documents

import "context"

// StatePatch carries the optional fields persisted alongside a state
// transition. Nil means leave the stored value unchanged.
type StatePatch struct {
	ExternalVerificationID *string
	ClassificationPayload  map[string]any
	VerificationPayload    map[string]any
	ErrorMessage           *string
}

// DocumentsRepo defines persistence operations for documents. All reads are
// scoped by owner; a document belonging to another owner yields ErrNotFound.
type DocumentsRepo interface {
	// Upsert creates the document for (user, category) or replaces the
	// existing record's mutable fields in place, preserving its ID. If the
	// existing record is already DONE it returns ErrConflict and leaves the
	// record untouched. Uniqueness of (user, category) is enforced here.
	Upsert(ctx context.Context, doc Document) (Document, error)

	GetByUserAndCategory(ctx context.Context, userID string, category Category) (Document, error)
	GetByID(ctx context.Context, userID, documentID string) (Document, error)
	ListByUser(ctx context.Context, userID string) ([]Document, error)

	// UpdateState persists a lifecycle transition with its patch.
	UpdateState(ctx context.Context, documentID string, state State, patch StatePatch) error
}
