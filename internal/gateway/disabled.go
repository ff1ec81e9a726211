package gateway

import (
	"context"
	"fmt"
)

// Disabled is the Verifier used when no provider credentials are configured
// (dev convenience). Every call fails, so identity documents land in
// CLASSIFICATION_FAILED and résumés complete as skipped.
type Disabled struct{}

func (Disabled) Classify(ctx context.Context, image []byte, mimeType string) (ClassificationResult, error) {
	return ClassificationResult{}, fmt.Errorf("%w: verifier not configured", ErrClassify)
}

func (Disabled) Submit(ctx context.Context, image []byte, mimeType, countryCode, documentTypeCode, idempotencyRef string) (SubmitResult, error) {
	return SubmitResult{}, fmt.Errorf("%w: verifier not configured", ErrSubmit)
}

func (Disabled) PollResult(ctx context.Context, verificationID string) (PollResult, error) {
	return PollResult{}, fmt.Errorf("%w: verifier not configured", ErrPoll)
}

var _ Verifier = Disabled{}
