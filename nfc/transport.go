// Package nfc writes NDEF messages to NTAG216 tags through a smart-card
// reader, one 4-byte page per command/response exchange.
package nfc

// Transport is the narrow contract the tag writer depends on: reader
// enumeration and card connection. Implementations wrap a concrete stack
// such as PC/SC or libnfc.
type Transport interface {
	// ListReaders returns the names of the attached readers.
	ListReaders() ([]string, error)

	// Connect opens a connection to the card on the named reader. When the
	// reader is up but no card is present it returns an error satisfying
	// IsNoCardError, the only retryable connection failure.
	Connect(reader string) (Card, error)
}

// Card is a connected tag that exchanges one command/response pair at a
// time. The connection is owned by a single writer session and must be
// released with Disconnect exactly once.
type Card interface {
	// Transmit sends a command APDU and returns the full response,
	// including the trailing 2-byte status word.
	Transmit(cmd []byte) ([]byte, error)

	Disconnect() error
}
