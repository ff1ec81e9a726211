package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// PGRepo implements DocumentsRepo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const documentColumns = `id, user_id, category, file_name, mime_type, size_bytes, state, external_verification_id, classification_payload, verification_payload, error_message, created_at, updated_at`

// Upsert inserts or replaces the document for (user, category). The unique
// index on (user_id, category) resolves concurrent uploads; the WHERE guard
// refuses replacement once the record is DONE.
func (r *PGRepo) Upsert(ctx context.Context, doc Document) (Document, error) {
	const query = `
INSERT INTO documents (id, user_id, category, file_name, mime_type, size_bytes, state, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
ON CONFLICT (user_id, category) DO UPDATE SET
    file_name = EXCLUDED.file_name,
    mime_type = EXCLUDED.mime_type,
    size_bytes = EXCLUDED.size_bytes,
    state = EXCLUDED.state,
    external_verification_id = NULL,
    classification_payload = NULL,
    verification_payload = NULL,
    error_message = NULL,
    updated_at = EXCLUDED.updated_at
WHERE documents.state <> 'DONE'
RETURNING ` + documentColumns

	now := doc.CreatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	row := r.DB.QueryRowContext(ctx, query,
		doc.ID,
		doc.UserID,
		string(doc.Category),
		doc.FileName,
		doc.MimeType,
		doc.SizeBytes,
		string(doc.State),
		now,
	)
	stored, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Conflict target exists but the guard filtered it: already DONE.
			return Document{}, ErrConflict
		}
		return Document{}, err
	}
	return stored, nil
}

// GetByUserAndCategory returns the document for (user, category).
func (r *PGRepo) GetByUserAndCategory(ctx context.Context, userID string, category Category) (Document, error) {
	const query = `
SELECT ` + documentColumns + `
FROM documents
WHERE user_id = $1 AND category = $2`
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, userID, string(category)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return doc, nil
}

// GetByID fetches a document by ID scoped to its owner.
func (r *PGRepo) GetByID(ctx context.Context, userID, documentID string) (Document, error) {
	const query = `
SELECT ` + documentColumns + `
FROM documents
WHERE user_id = $1 AND id = $2`
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, userID, documentID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return doc, nil
}

// ListByUser lists the owner's documents ordered newest-first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string) ([]Document, error) {
	const query = `
SELECT ` + documentColumns + `
FROM documents
WHERE user_id = $1
ORDER BY created_at DESC`

	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// UpdateState persists a lifecycle transition. Patch fields passed as NULL
// leave the stored value unchanged.
func (r *PGRepo) UpdateState(ctx context.Context, documentID string, state State, patch StatePatch) error {
	const query = `
UPDATE documents SET
    state = $2,
    external_verification_id = COALESCE($3, external_verification_id),
    classification_payload = COALESCE($4, classification_payload),
    verification_payload = COALESCE($5, verification_payload),
    error_message = COALESCE($6, error_message),
    updated_at = $7
WHERE id = $1`

	classification, err := marshalPayload(patch.ClassificationPayload)
	if err != nil {
		return err
	}
	verification, err := marshalPayload(patch.VerificationPayload)
	if err != nil {
		return err
	}

	res, err := r.DB.ExecContext(ctx, query,
		documentID,
		string(state),
		patch.ExternalVerificationID,
		classification,
		verification,
		patch.ErrorMessage,
		time.Now().UTC(),
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var category, state string
	var externalID sql.NullString
	var classification, verification []byte
	var errorMessage sql.NullString
	if err := row.Scan(
		&doc.ID,
		&doc.UserID,
		&category,
		&doc.FileName,
		&doc.MimeType,
		&doc.SizeBytes,
		&state,
		&externalID,
		&classification,
		&verification,
		&errorMessage,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	); err != nil {
		return Document{}, err
	}
	doc.Category = Category(category)
	doc.State = State(state)
	if externalID.Valid {
		doc.ExternalVerificationID = externalID.String
	}
	if errorMessage.Valid {
		doc.ErrorMessage = errorMessage.String
	}
	if len(classification) > 0 {
		if err := json.Unmarshal(classification, &doc.ClassificationPayload); err != nil {
			return Document{}, err
		}
	}
	if len(verification) > 0 {
		if err := json.Unmarshal(verification, &doc.VerificationPayload); err != nil {
			return Document{}, err
		}
	}
	return doc, nil
}

func marshalPayload(payload map[string]any) ([]byte, error) {
	if payload == nil {
		return nil, nil
	}
	return json.Marshal(payload)
}

var _ DocumentsRepo = (*PGRepo)(nil)
