package documents

import "time"

// DocumentResponse is the outward-facing summary of a document.
type DocumentResponse struct {
	DocumentID   string    `json:"documentId"`
	Category     string    `json:"category"`
	FileName     string    `json:"fileName"`
	MimeType     string    `json:"mimeType"`
	SizeBytes    int64     `json:"sizeBytes"`
	Status       string    `json:"status"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	UploadedAt   time.Time `json:"uploadedAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// StatusResponse is the poll-friendly shape returned by the status endpoint.
type StatusResponse struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	HasResult bool   `json:"hasResult"`
}

// ResultResponse is the full document including recorded payloads, served
// only once the document is terminal.
type ResultResponse struct {
	DocumentID             string         `json:"documentId"`
	Category               string         `json:"category"`
	FileName               string         `json:"fileName"`
	Status                 string         `json:"status"`
	ExternalVerificationID string         `json:"externalVerificationId,omitempty"`
	ClassificationPayload  map[string]any `json:"classificationPayload,omitempty"`
	VerificationPayload    map[string]any `json:"verificationPayload,omitempty"`
	ErrorMessage           string         `json:"errorMessage,omitempty"`
	UploadedAt             time.Time      `json:"uploadedAt"`
	UpdatedAt              time.Time      `json:"updatedAt"`
}

func toResponse(doc Document) DocumentResponse {
	return DocumentResponse{
		DocumentID:   doc.ID,
		Category:     string(doc.Category),
		FileName:     doc.FileName,
		MimeType:     doc.MimeType,
		SizeBytes:    doc.SizeBytes,
		Status:       string(doc.State),
		ErrorMessage: doc.ErrorMessage,
		UploadedAt:   doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}
}

func toStatusResponse(doc Document) StatusResponse {
	return StatusResponse{
		ID:        doc.ID,
		Status:    string(doc.State),
		HasResult: doc.HasResult(),
	}
}

func toResultResponse(doc Document) ResultResponse {
	return ResultResponse{
		DocumentID:             doc.ID,
		Category:               string(doc.Category),
		FileName:               doc.FileName,
		Status:                 string(doc.State),
		ExternalVerificationID: doc.ExternalVerificationID,
		ClassificationPayload:  doc.ClassificationPayload,
		VerificationPayload:    doc.VerificationPayload,
		ErrorMessage:           doc.ErrorMessage,
		UploadedAt:             doc.CreatedAt,
		UpdatedAt:              doc.UpdatedAt,
	}
}
