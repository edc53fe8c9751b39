package types

import "encoding/base64"

// PDFDataURIPrefix starts every pdfUrl in a JSON success body.
const PDFDataURIPrefix = "data:application/pdf;base64,"

// MessageCompiled is the message of a JSON success body.
const MessageCompiled = "PDF compiled successfully"

// CompileResult is the JSON success body.
type CompileResult struct {
	// Success is always true; failures use ErrorResult.
	Success bool `json:"success"`

	// PDFURL is the PDF encoded as a data URI.
	PDFURL string `json:"pdfUrl"`

	// Message is a human-readable status.
	Message string `json:"message"`
}

// NewCompileResult encodes pdf into a JSON success body.
func NewCompileResult(pdf []byte) *CompileResult {
	return &CompileResult{
		Success: true,
		PDFURL:  PDFDataURIPrefix + base64.StdEncoding.EncodeToString(pdf),
		Message: MessageCompiled,
	}
}
