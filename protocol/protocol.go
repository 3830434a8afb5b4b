// Package protocol defines the wire types shared by the agent server and
// its clients.
package protocol

// Error codes returned in write responses.
const (
	ErrCodeInvalidRequest  = "INVALID_REQUEST"
	ErrCodePayloadTooLarge = "PAYLOAD_TOO_LARGE"
	ErrCodeReaderNotFound  = "READER_NOT_FOUND"
	ErrCodeCardTimeout     = "CARD_TIMEOUT"
	ErrCodeWriteFailed     = "WRITE_FAILED"
	ErrCodeInternal        = "INTERNAL_ERROR"
)

// WriteRequest asks the agent to write a URL to the next presented tag.
type WriteRequest struct {
	URL string `json:"url"`
}

// WriteResponse reports the outcome of a write request.
type WriteResponse struct {
	Success   bool   `json:"success"`
	URL       string `json:"url,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode string `json:"errorCode,omitempty"`
}
