package proxy

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"texrelay-hq/texrelay/pkg/proxy/types"
)

// PDFFilename is the download name offered for binary responses.
const PDFFilename = "document.pdf"

// Response is the outcome of one request, built once and written once.
// The concrete types are BinaryResponse and JSONResponse.
type Response interface {
	// StatusCode returns the HTTP status to send.
	StatusCode() int

	// Format returns FormatBinary or FormatJSON, for logs and metrics.
	Format() string

	write(w http.ResponseWriter) error
}

// BinaryResponse is a raw PDF download.
type BinaryResponse struct {
	PDF []byte
}

// StatusCode implements Response.
func (r *BinaryResponse) StatusCode() int { return http.StatusOK }

// Format implements Response.
func (r *BinaryResponse) Format() string { return FormatBinary }

func (r *BinaryResponse) write(w http.ResponseWriter) error {
	h := w.Header()
	h.Set("Content-Type", "application/pdf")
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", PDFFilename))
	h.Set("Content-Length", strconv.Itoa(len(r.PDF)))
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(r.PDF); err != nil {
		return fmt.Errorf("failed to write PDF response: %w", err)
	}
	return nil
}

// JSONResponse is any JSON body: a CompileResult or an ErrorResult.
type JSONResponse struct {
	Status int
	Body   any
}

// StatusCode implements Response.
func (r *JSONResponse) StatusCode() int { return r.Status }

// Format implements Response.
func (r *JSONResponse) Format() string { return FormatJSON }

func (r *JSONResponse) write(w http.ResponseWriter) error {
	return WriteJSONResponse(w, r.Status, r.Body)
}

// NewSuccessResponse wraps a compiled PDF in the negotiated format.
func NewSuccessResponse(pdf []byte, wantsBinary bool) Response {
	if wantsBinary {
		return &BinaryResponse{PDF: pdf}
	}
	return &JSONResponse{
		Status: http.StatusOK,
		Body:   types.NewCompileResult(pdf),
	}
}

// NewErrorResponse wraps an ErrorResult. Errors are always JSON, including
// when a binary response was requested.
func NewErrorResponse(status int, result *types.ErrorResult) Response {
	return &JSONResponse{Status: status, Body: result}
}

// Write renders resp. It is the only place a compile response is written.
func Write(w http.ResponseWriter, resp Response) {
	if err := resp.write(w); err != nil {
		slog.Warn("failed to write response",
			"status", resp.StatusCode(),
			"format", resp.Format(),
			"error", err,
		)
	}
}

// WriteJSONResponse writes a JSON response to the HTTP response writer.
// It sets the appropriate content-type header and handles marshaling errors.
func WriteJSONResponse(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON response: %w", err)
	}

	return nil
}

// WriteError writes an ErrorResult with the given status.
func WriteError(w http.ResponseWriter, statusCode int, message, details string) {
	Write(w, NewErrorResponse(statusCode, types.NewErrorResult(message, details)))
}
