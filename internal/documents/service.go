package documents

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"kyc-backend/internal/gateway"
	"kyc-backend/internal/shared/metrics"
	"kyc-backend/internal/shared/resilience"
	"kyc-backend/internal/shared/telemetry"
)

// Service owns the per-document lifecycle state machine. Upload drives a
// document through classification and submission; Status advances a
// PROCESSING document by polling the external capability.
type Service struct {
	Repo     DocumentsRepo
	Verifier gateway.Verifier
	Exec     *resilience.Executor
}

// Upload validates the file, creates or replaces the (user, category)
// record, and runs the category's pipeline to a resting state. The returned
// document reflects the state reached; a non-nil error is returned only for
// caller mistakes, storage failures, or surfaced submission failures.
func (s *Service) Upload(ctx context.Context, userID string, category Category, fileName, mimeType string, data []byte) (Document, error) {
	if userID == "" {
		return Document{}, errors.New("user id required")
	}
	if err := validateUpload(category, mimeType, int64(len(data)), data); err != nil {
		return Document{}, err
	}

	doc, err := s.Repo.Upsert(ctx, Document{
		ID:        uuid.NewString(),
		UserID:    userID,
		Category:  category,
		FileName:  fileName,
		MimeType:  mimeType,
		SizeBytes: int64(len(data)),
		State:     StatePending,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return Document{}, err
	}
	metrics.IncDocumentUploaded(string(category))

	return pipelineFor(category).run(ctx, s, doc, data)
}

// Status returns the document, advancing it first when it is PROCESSING: one
// poll attempt is made against the external capability and a terminal answer
// is persisted. A failed poll never mutates state; the last known state is
// returned instead.
func (s *Service) Status(ctx context.Context, userID, documentID string) (Document, error) {
	doc, err := s.Repo.GetByID(ctx, userID, documentID)
	if err != nil {
		return Document{}, err
	}
	if doc.State != StateProcessing || doc.ExternalVerificationID == "" {
		return doc, nil
	}

	res, err := s.Verifier.PollResult(ctx, doc.ExternalVerificationID)
	if err != nil {
		// Degrade to the last known state; the poller will come back.
		telemetry.Warn("document.poll_degraded", map[string]any{
			"document_id": doc.ID,
			"error":       err.Error(),
		})
		return doc, nil
	}

	switch res.State {
	case gateway.ExternalDone:
		if err := s.transition(ctx, &doc, StateDone, StatePatch{VerificationPayload: res.Payload}); err != nil {
			return Document{}, err
		}
	case gateway.ExternalFailed:
		msg := "verification was not successful"
		if err := s.transition(ctx, &doc, StateFailed, StatePatch{VerificationPayload: res.Payload, ErrorMessage: &msg}); err != nil {
			return Document{}, err
		}
	}
	return doc, nil
}

// Get returns the document without advancing it.
func (s *Service) Get(ctx context.Context, userID, documentID string) (Document, error) {
	return s.Repo.GetByID(ctx, userID, documentID)
}

// Result returns the full document once it is terminal.
func (s *Service) Result(ctx context.Context, userID, documentID string) (Document, error) {
	doc, err := s.Repo.GetByID(ctx, userID, documentID)
	if err != nil {
		return Document{}, err
	}
	if !doc.State.Terminal() {
		return Document{}, ErrInvalidState
	}
	return doc, nil
}

// List returns the owner's documents, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]Document, error) {
	if userID == "" {
		return nil, errors.New("user id required")
	}
	return s.Repo.ListByUser(ctx, userID)
}

// transition persists a state change and applies it to the local copy.
func (s *Service) transition(ctx context.Context, doc *Document, to State, patch StatePatch) error {
	from := doc.State
	if err := s.Repo.UpdateState(ctx, doc.ID, to, patch); err != nil {
		return err
	}
	doc.State = to
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
	metrics.IncStateTransition(string(from), string(to))
	telemetry.Info("document.status", map[string]any{
		"document_id":       doc.ID,
		"applicant_id":      doc.UserID,
		"category":          string(doc.Category),
		"status":            string(to),
		"status_transition": string(from) + "->" + string(to),
	})
	return nil
}

// submit runs the submission call and persists PROCESSING on success. On
// failure the document is left in SUBMITTING; the calling pipeline decides
// the failure transition.
func (s *Service) submit(ctx context.Context, doc *Document, image []byte, countryCode, typeCode string) error {
	if err := s.transition(ctx, doc, StateSubmitting, StatePatch{}); err != nil {
		return err
	}

	ref := idempotencyRef(doc.ID)
	var res gateway.SubmitResult
	err := s.execute(ctx, "verifier.submit", func(ctx context.Context) error {
		var callErr error
		res, callErr = s.Verifier.Submit(ctx, image, doc.MimeType, countryCode, typeCode, ref)
		return callErr
	}, func(err error) bool {
		return errors.Is(err, gateway.ErrSubmit)
	})
	if err != nil {
		// An open breaker rejects before the verifier is called; the
		// pipelines branch on the submit sentinel, so keep it attached.
		if resilience.IsCircuitOpen(err) {
			return fmt.Errorf("%w: %v", gateway.ErrSubmit, err)
		}
		return err
	}

	return s.transition(ctx, doc, StateProcessing, StatePatch{ExternalVerificationID: &res.VerificationID})
}

func (s *Service) execute(ctx context.Context, operation string, fn func(context.Context) error, retryable func(error) bool) error {
	if s.Exec == nil {
		return fn(ctx)
	}
	return s.Exec.Execute(ctx, operation, fn, retryable)
}

// idempotencyRef derives a stable external reference from the document ID so
// repeated submission attempts deduplicate on the provider side.
func idempotencyRef(documentID string) string {
	sum := sha256.Sum256([]byte(documentID))
	return hex.EncodeToString(sum[:])[:32]
}

func validateUpload(category Category, mimeType string, size int64, data []byte) error {
	if !category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidInput, string(category))
	}
	if size == 0 {
		return fmt.Errorf("%w: file is empty", ErrInvalidInput)
	}
	if size > MaxUploadBytes(category) {
		return fmt.Errorf("%w: file exceeds %dMB limit", ErrInvalidInput, MaxUploadBytes(category)>>20)
	}
	mimeType = strings.TrimSpace(mimeType)
	if !AllowedMimeType(category, mimeType) {
		return fmt.Errorf("%w: media type %q is not accepted for %s", ErrInvalidInput, mimeType, string(category))
	}
	if mimeType == "application/pdf" {
		if err := validatePDF(data); err != nil {
			return err
		}
	}
	return nil
}
