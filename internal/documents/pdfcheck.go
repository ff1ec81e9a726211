package documents

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// validatePDF rejects résumé uploads that declare application/pdf but are
// not readable PDF files, before anything is sent to the verifier.
func validatePDF(data []byte) error {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("%w: file is not a readable PDF", ErrInvalidInput)
	}
	if reader.NumPage() < 1 {
		return fmt.Errorf("%w: PDF has no pages", ErrInvalidInput)
	}
	return nil
}
