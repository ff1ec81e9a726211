package gateway

import (
	"context"
	"errors"
)

// Capability call failures. The lifecycle engine branches on these with
// errors.Is; the underlying cause is wrapped for logs only.
var (
	ErrClassify = errors.New("classification call failed")
	ErrSubmit   = errors.New("verification submit call failed")
	ErrPoll     = errors.New("verification poll call failed")
)

// CodeName is a coded value with its display name, as returned by the
// classification capability.
type CodeName struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// ClassificationResult is the classifier's best guess at what a document is.
// A nil field means the classifier could not determine it, not an error.
type ClassificationResult struct {
	Country      *CodeName `json:"country,omitempty"`
	DocumentType *CodeName `json:"documentType,omitempty"`
}

// SubmitResult is returned when a verification is accepted by the capability.
type SubmitResult struct {
	VerificationID string `json:"verificationId"`
	Status         string `json:"status"`
}

// External verification states reported by the poll capability.
const (
	ExternalProcessing = "PROCESSING"
	ExternalDone       = "DONE"
	ExternalFailed     = "FAILED"
)

// PollResult is the current state of a submitted verification, along with
// the provider's full response body for audit.
type PollResult struct {
	State   string
	Payload map[string]any
}

// Verifier abstracts the two external capabilities: classifying a document
// image and submitting/polling a verification.
type Verifier interface {
	// Classify infers a document's country and type from its image.
	// It does not retry; the caller decides.
	Classify(ctx context.Context, image []byte, mimeType string) (ClassificationResult, error)

	// Submit sends a document for verification. idempotencyRef must be
	// stable across repeated attempts for the same document so the
	// capability can deduplicate.
	Submit(ctx context.Context, image []byte, mimeType, countryCode, documentTypeCode, idempotencyRef string) (SubmitResult, error)

	// PollResult fetches the current state of a verification. Read-only;
	// safe to call repeatedly.
	PollResult(ctx context.Context, verificationID string) (PollResult, error)
}
