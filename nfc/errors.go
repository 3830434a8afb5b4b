package nfc

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a specific type of NFC error for programmatic handling.
type ErrorCode int

const (
	// Session errors (100-199)
	ErrCodeReaderNotFound ErrorCode = iota + 100
	ErrCodeNoCard
	ErrCodeCardTimeout
)

// NFCError provides structured error information for programmatic handling.
type NFCError struct {
	Code    ErrorCode
	Op      string // Operation that failed (e.g., "FindReader", "Connect")
	Message string // Human-readable message
	Cause   error  // Underlying error
}

func (e *NFCError) Error() string {
	var sb strings.Builder
	if e.Op != "" {
		sb.WriteString(e.Op)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Message)
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

func (e *NFCError) Unwrap() error {
	return e.Cause
}

func (e *NFCError) Is(target error) bool {
	if t, ok := target.(*NFCError); ok {
		return e.Code == t.Code
	}
	return false
}

// NewReaderNotFoundError creates an error for when no attached reader
// matches the configured name pattern. This is fatal and never retried.
func NewReaderNotFoundError(pattern string, available []string) *NFCError {
	msg := fmt.Sprintf("no reader matching %q", pattern)
	if len(available) > 0 {
		msg += " (available: " + strings.Join(available, ", ") + ")"
	} else {
		msg += " (no readers attached)"
	}
	return &NFCError{
		Code:    ErrCodeReaderNotFound,
		Op:      "FindReader",
		Message: msg,
	}
}

// NewNoCardError creates an error for when the reader is up but no card is
// present on it. This is the only retryable connection failure.
func NewNoCardError(reader string) *NFCError {
	return &NFCError{
		Code:    ErrCodeNoCard,
		Op:      "Connect",
		Message: "no card on reader " + reader,
	}
}

// NewCardTimeoutError creates an error for when no card appeared within the
// retry budget.
func NewCardTimeoutError(attempts int) *NFCError {
	return &NFCError{
		Code:    ErrCodeCardTimeout,
		Op:      "WaitForCard",
		Message: fmt.Sprintf("no card detected after %d attempts", attempts),
	}
}

// IsReaderNotFoundError checks if an error indicates no matching reader.
func IsReaderNotFoundError(err error) bool {
	return hasErrorCode(err, ErrCodeReaderNotFound)
}

// IsNoCardError checks if an error indicates the retryable no-card condition.
func IsNoCardError(err error) bool {
	return hasErrorCode(err, ErrCodeNoCard)
}

// IsCardTimeoutError checks if an error indicates the card wait timed out.
func IsCardTimeoutError(err error) bool {
	return hasErrorCode(err, ErrCodeCardTimeout)
}

func hasErrorCode(err error, code ErrorCode) bool {
	var nfcErr *NFCError
	if errors.As(err, &nfcErr) {
		return nfcErr.Code == code
	}
	return false
}

// WriteError reports a failed page write and aborts the remaining sequence.
// Status holds the literal status word when the card answered; Cause holds
// the transport error when it did not.
type WriteError struct {
	Page   byte
	Status uint16
	Cause  error
}

func (e *WriteError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("write to page %d failed: %v", e.Page, e.Cause)
	}
	return fmt.Sprintf("write to page %d failed: SW=%04X", e.Page, e.Status)
}

func (e *WriteError) Unwrap() error {
	return e.Cause
}
