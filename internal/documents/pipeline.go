package documents

import (
	"context"
	"errors"
	"fmt"

	"kyc-backend/internal/gateway"
)

// pipeline runs a freshly upserted document to a resting state. Two variants
// exist: identity documents classify before submitting, résumés submit
// directly. The variant is selected once at upload time.
type pipeline interface {
	run(ctx context.Context, svc *Service, doc Document, image []byte) (Document, error)
}

func pipelineFor(category Category) pipeline {
	if rule, ok := classificationRules[category]; ok {
		return classifySubmitPipeline{expect: rule}
	}
	return submitOnlyPipeline{}
}

// classifySubmitPipeline classifies the image first and refuses submission
// when the detected country/type does not match the category's rule.
type classifySubmitPipeline struct {
	expect expectedClassification
}

func (p classifySubmitPipeline) run(ctx context.Context, svc *Service, doc Document, image []byte) (Document, error) {
	if err := svc.transition(ctx, &doc, StateClassifying, StatePatch{}); err != nil {
		return Document{}, err
	}

	var res gateway.ClassificationResult
	err := svc.execute(ctx, "verifier.classify", func(ctx context.Context) error {
		var callErr error
		res, callErr = svc.Verifier.Classify(ctx, image, doc.MimeType)
		return callErr
	}, nil)
	if err != nil {
		msg := "could not classify the document; please try a clearer image"
		patch := StatePatch{
			ClassificationPayload: map[string]any{"error": err.Error()},
			ErrorMessage:          &msg,
		}
		if terr := svc.transition(ctx, &doc, StateClassificationFailed, patch); terr != nil {
			return Document{}, terr
		}
		return doc, nil
	}

	// The raw answer is kept for audit whether or not the rule passes.
	payload := classificationPayload(res)

	if !p.matches(res) {
		msg := fmt.Sprintf("document was detected as %s; expected a %s", detectedLabel(res), p.expect.Label)
		patch := StatePatch{ClassificationPayload: payload, ErrorMessage: &msg}
		if terr := svc.transition(ctx, &doc, StateClassificationFailed, patch); terr != nil {
			return Document{}, terr
		}
		return doc, nil
	}

	if err := svc.Repo.UpdateState(ctx, doc.ID, doc.State, StatePatch{ClassificationPayload: payload}); err != nil {
		return Document{}, err
	}
	doc.ClassificationPayload = payload

	if err := svc.submit(ctx, &doc, image, p.expect.CountryCode, p.expect.TypeCode); err != nil {
		if !errors.Is(err, gateway.ErrSubmit) {
			return Document{}, err
		}
		msg := "verification submission failed; please try again later"
		if terr := svc.transition(ctx, &doc, StateFailed, StatePatch{ErrorMessage: &msg}); terr != nil {
			return Document{}, terr
		}
		// Submission failure is reported, not silently absorbed.
		return doc, err
	}
	return doc, nil
}

func (p classifySubmitPipeline) matches(res gateway.ClassificationResult) bool {
	return res.Country != nil && res.DocumentType != nil &&
		res.Country.Code == p.expect.CountryCode &&
		res.DocumentType.Code == p.expect.TypeCode
}

// submitOnlyPipeline submits without classification. A submission failure is
// non-fatal for résumés: the capability is not guaranteed to support the
// document type, and résumés carry no compliance requirement.
type submitOnlyPipeline struct{}

func (submitOnlyPipeline) run(ctx context.Context, svc *Service, doc Document, image []byte) (Document, error) {
	if err := svc.submit(ctx, &doc, image, resumeCountryCode, resumeTypeCode); err != nil {
		if !errors.Is(err, gateway.ErrSubmit) {
			return Document{}, err
		}
		patch := StatePatch{VerificationPayload: map[string]any{"status": "SKIPPED"}}
		if terr := svc.transition(ctx, &doc, StateDone, patch); terr != nil {
			return Document{}, terr
		}
	}
	return doc, nil
}

func classificationPayload(res gateway.ClassificationResult) map[string]any {
	payload := make(map[string]any, 2)
	if res.Country != nil {
		payload["country"] = map[string]any{"code": res.Country.Code, "name": res.Country.Name}
	}
	if res.DocumentType != nil {
		payload["documentType"] = map[string]any{"code": res.DocumentType.Code, "name": res.DocumentType.Name}
	}
	return payload
}

func detectedLabel(res gateway.ClassificationResult) string {
	country := "an unknown country"
	if res.Country != nil && res.Country.Name != "" {
		country = res.Country.Name
	}
	docType := "document"
	if res.DocumentType != nil && res.DocumentType.Name != "" {
		docType = res.DocumentType.Name
	}
	return country + " " + docType
}
