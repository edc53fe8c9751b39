package types

import "fmt"

// ErrorResult is the body of every error response.
type ErrorResult struct {
	// Error is a fixed human-readable message for the failure class.
	Error string `json:"error"`

	// Details carries upstream diagnostics or the internal error message.
	Details string `json:"details,omitempty"`
}

// Error messages. Clients match on these strings.
const (
	MessageUnauthorized     = "Unauthorized: Invalid API key"
	MessageLatexRequired    = "Invalid request: latex field is required"
	MessageLatexTooLarge    = "LaTeX document too large (max 100KB)"
	MessageCompileFailed    = "LaTeX compilation failed. Please check your LaTeX syntax."
	MessageInternalError    = "Internal server error"
	MessageMethodNotAllowed = "Method not allowed"
	MessageNotFound         = "Not found"
)

// documentedMaxChars is the character limit named in MessageLatexTooLarge.
const documentedMaxChars = 100000

// LatexTooLargeMessage returns the too-large message for a character limit.
// The default limit keeps the fixed client-facing text.
func LatexTooLargeMessage(maxChars int) string {
	if maxChars == documentedMaxChars {
		return MessageLatexTooLarge
	}
	return fmt.Sprintf("LaTeX document too large (max %d characters)", maxChars)
}

// BodyTooLargeMessage returns the message for a request body over the byte cap.
func BodyTooLargeMessage(maxBytes int64) string {
	return fmt.Sprintf("Request body too large (max %d bytes)", maxBytes)
}

// NewErrorResult creates an error body.
func NewErrorResult(message, details string) *ErrorResult {
	return &ErrorResult{
		Error:   message,
		Details: details,
	}
}
