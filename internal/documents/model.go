package documents

import "time"

// Category identifies the kind of document an applicant can upload.
// Fixed enumeration, immutable after creation.
type Category string

const (
	CategoryPassport       Category = "PASSPORT"
	CategoryDriversLicence Category = "DRIVERS_LICENCE"
	CategoryResume         Category = "RESUME"
)

// Valid reports whether the category is one of the known three.
func (c Category) Valid() bool {
	switch c {
	case CategoryPassport, CategoryDriversLicence, CategoryResume:
		return true
	}
	return false
}

// State is a document's position in the verification lifecycle.
type State string

const (
	StatePending              State = "PENDING"
	StateClassifying          State = "CLASSIFYING"
	StateClassificationFailed State = "CLASSIFICATION_FAILED"
	StateSubmitting           State = "SUBMITTING"
	StateProcessing           State = "PROCESSING"
	StateDone                 State = "DONE"
	StateFailed               State = "FAILED"
)

// Terminal reports whether no further automatic transition occurs from s.
// CLASSIFICATION_FAILED is terminal for the current upload attempt; a fresh
// upload for the same category restarts from PENDING.
func (s State) Terminal() bool {
	switch s {
	case StateDone, StateFailed, StateClassificationFailed:
		return true
	}
	return false
}

// Document is one applicant document per (owner, category). Raw file bytes
// are never persisted; only metadata and lifecycle results are.
type Document struct {
	ID                     string
	UserID                 string
	Category               Category
	FileName               string
	MimeType               string
	SizeBytes              int64
	State                  State
	ExternalVerificationID string
	ClassificationPayload  map[string]any
	VerificationPayload    map[string]any
	ErrorMessage           string
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// HasResult reports whether a verification payload has been recorded.
func (d Document) HasResult() bool {
	return d.VerificationPayload != nil
}

const (
	maxUploadBytes   = 10 << 20 // 10MB
	maxIDUploadBytes = 5 << 20  // 5MB for identity documents
)

// MaxUploadBytes returns the upload size limit for a category.
func MaxUploadBytes(c Category) int64 {
	switch c {
	case CategoryPassport, CategoryDriversLicence:
		return maxIDUploadBytes
	default:
		return maxUploadBytes
	}
}

var imageMimeTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
}

// AllowedMimeType reports whether the declared media type is accepted for
// the category. Identity documents take images only; résumés also take PDF.
func AllowedMimeType(c Category, mimeType string) bool {
	if _, ok := imageMimeTypes[mimeType]; ok {
		return true
	}
	return c == CategoryResume && mimeType == "application/pdf"
}

// expectedClassification is the classification rule an identity document
// must satisfy before submission, plus the submit codes for the category.
type expectedClassification struct {
	CountryCode string
	TypeCode    string
	Label       string
}

var classificationRules = map[Category]expectedClassification{
	CategoryPassport:       {CountryCode: "PHL", TypeCode: "PASSPORT", Label: "Philippines Passport"},
	CategoryDriversLicence: {CountryCode: "PHL", TypeCode: "DRIVERS_LICENCE", Label: "Philippines Driving Licence"},
}

// Résumés are submitted with fixed codes; the capability has no résumé
// document type, so OTHER is used.
const (
	resumeCountryCode = "PHL"
	resumeTypeCode    = "OTHER"
)
