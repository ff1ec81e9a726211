package documents

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

// nullBytesConverter makes the mock driver treat a nil []byte as SQL NULL,
// matching how real drivers (e.g. pgx) bind it.
type nullBytesConverter struct{}

func (nullBytesConverter) ConvertValue(v any) (driver.Value, error) {
	if b, ok := v.([]byte); ok && b == nil {
		return nil, nil
	}
	return driver.DefaultParameterConverter.ConvertValue(v)
}

func newPGRepo(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.ValueConverterOption(nullBytesConverter{}))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &PGRepo{DB: db}, mock
}

func documentRows(t *testing.T, doc Document) *sqlmock.Rows {
	t.Helper()
	return sqlmock.NewRows([]string{
		"id", "user_id", "category", "file_name", "mime_type", "size_bytes",
		"state", "external_verification_id", "classification_payload",
		"verification_payload", "error_message", "created_at", "updated_at",
	}).AddRow(
		doc.ID, doc.UserID, string(doc.Category), doc.FileName, doc.MimeType, doc.SizeBytes,
		string(doc.State), nil, nil, nil, nil, doc.CreatedAt, doc.UpdatedAt,
	)
}

func TestPGUpsertReturnsStoredDocument(t *testing.T) {
	repo, mock := newPGRepo(t)

	now := time.Now().UTC()
	want := Document{
		ID: "doc-1", UserID: "user-1", Category: CategoryPassport,
		FileName: "passport.png", MimeType: "image/png", SizeBytes: 3,
		State: StatePending, CreatedAt: now, UpdatedAt: now,
	}

	mock.ExpectQuery("INSERT INTO documents").
		WithArgs("doc-1", "user-1", "PASSPORT", "passport.png", "image/png", int64(3), "PENDING", now).
		WillReturnRows(documentRows(t, want))

	got, err := repo.Upsert(context.Background(), want)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if got.ID != want.ID || got.State != StatePending {
		t.Fatalf("got %+v, want stored row back", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGUpsertDoneGuardMapsToConflict(t *testing.T) {
	repo, mock := newPGRepo(t)

	// The ON CONFLICT guard filters DONE rows, so the RETURNING set is empty.
	mock.ExpectQuery("INSERT INTO documents").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Upsert(context.Background(), Document{
		ID: "doc-1", UserID: "user-1", Category: CategoryPassport,
		FileName: "passport.png", MimeType: "image/png", SizeBytes: 3,
		State: StatePending,
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("Upsert error = %v, want ErrConflict", err)
	}
}

func TestPGGetByIDMapsNoRows(t *testing.T) {
	repo, mock := newPGRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM documents").
		WithArgs("user-1", "missing").
		WillReturnError(sql.ErrNoRows)

	if _, err := repo.GetByID(context.Background(), "user-1", "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetByID error = %v, want ErrNotFound", err)
	}
}

func TestPGGetByIDUnmarshalsPayloads(t *testing.T) {
	repo, mock := newPGRepo(t)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "user_id", "category", "file_name", "mime_type", "size_bytes",
		"state", "external_verification_id", "classification_payload",
		"verification_payload", "error_message", "created_at", "updated_at",
	}).AddRow(
		"doc-1", "user-1", "PASSPORT", "passport.png", "image/png", int64(3),
		"DONE", "ver-1", []byte(`{"country":{"code":"PHL"}}`),
		[]byte(`{"status":"DONE"}`), nil, now, now,
	)
	mock.ExpectQuery("SELECT (.+) FROM documents").
		WithArgs("user-1", "doc-1").
		WillReturnRows(rows)

	doc, err := repo.GetByID(context.Background(), "user-1", "doc-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if doc.ExternalVerificationID != "ver-1" {
		t.Fatalf("external id = %q", doc.ExternalVerificationID)
	}
	if doc.ClassificationPayload == nil || doc.VerificationPayload == nil {
		t.Fatalf("expected payloads decoded, got %+v", doc)
	}
	if status, _ := doc.VerificationPayload["status"].(string); status != "DONE" {
		t.Fatalf("verification payload = %v", doc.VerificationPayload)
	}
}

func TestPGListByUserOrdersNewestFirst(t *testing.T) {
	repo, mock := newPGRepo(t)

	now := time.Now().UTC()
	rows := documentRows(t, Document{
		ID: "doc-2", UserID: "user-1", Category: CategoryResume,
		FileName: "resume.png", MimeType: "image/png", SizeBytes: 3,
		State: StateDone, CreatedAt: now, UpdatedAt: now,
	}).AddRow(
		"doc-1", "user-1", "PASSPORT", "passport.png", "image/png", int64(3),
		"PROCESSING", nil, nil, nil, nil, now.Add(-time.Hour), now.Add(-time.Hour),
	)
	mock.ExpectQuery("SELECT (.+) FROM documents WHERE user_id = (.+) ORDER BY created_at DESC").
		WithArgs("user-1").
		WillReturnRows(rows)

	docs, err := repo.ListByUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(docs) != 2 || docs[0].ID != "doc-2" {
		t.Fatalf("docs = %+v", docs)
	}
}

func TestPGUpdateStatePatchSemantics(t *testing.T) {
	repo, mock := newPGRepo(t)

	extID := "ver-1"
	mock.ExpectExec("UPDATE documents SET").
		WithArgs("doc-1", "PROCESSING", extID, nil, nil, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateState(context.Background(), "doc-1", StateProcessing, StatePatch{
		ExternalVerificationID: &extID,
	})
	if err != nil {
		t.Fatalf("UpdateState: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGUpdateStateSerializesPayloads(t *testing.T) {
	repo, mock := newPGRepo(t)

	mock.ExpectExec("UPDATE documents SET").
		WithArgs("doc-1", "DONE", nil, nil, []byte(`{"status":"DONE"}`), nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateState(context.Background(), "doc-1", StateDone, StatePatch{
		VerificationPayload: map[string]any{"status": "DONE"},
	})
	if err != nil {
		t.Fatalf("UpdateState: %v", err)
	}
}

func TestPGUpdateStateMissingDocument(t *testing.T) {
	repo, mock := newPGRepo(t)

	mock.ExpectExec("UPDATE documents SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.UpdateState(context.Background(), "missing", StateDone, StatePatch{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("UpdateState error = %v, want ErrNotFound", err)
	}
}
