package nfc

import (
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/dotside-studios/taglink/ndef"
)

// NTAG216 memory layout constants
const (
	// CapabilityPage holds the capability container, immediately before
	// the user data area.
	CapabilityPage = 3
	// UserStartPage is the first user data page.
	UserStartPage = 4
	// userEndPage is the last user data page (inclusive); pages 4-225 give
	// 888 bytes of user memory.
	userEndPage = 225
)

// capabilityContainer is the NTAG216 capability container: NDEF magic
// number 0xE1, version 1.0, data area size 0x6D (109 * 8 = 872 bytes),
// open read/write access.
var capabilityContainer = []byte{0xE1, 0x10, 0x6D, 0x00}

// Card presence polling bounds.
const (
	DefaultCardAttempts = 30
	DefaultCardInterval = time.Second
)

// DefaultReaderPattern selects the ACR1252U, the reader this writer targets.
const DefaultReaderPattern = "ACR1252"

// Writer writes NDEF URI messages to NTAG216 tags, one page per
// command/response exchange.
//
// A Writer is not safe for concurrent use: each write owns its card
// connection for the whole session, and a failure mid-sequence leaves the
// tag inconsistent until the next full write.
type Writer struct {
	transport Transport
	clock     clockwork.Clock
	pattern   string
	attempts  int
	interval  time.Duration
}

// NewWriter creates a Writer on the given transport. pattern is the
// substring used to select a reader by name; empty selects the default
// ACR1252U pattern.
func NewWriter(transport Transport, pattern string) *Writer {
	if pattern == "" {
		pattern = DefaultReaderPattern
	}
	return &Writer{
		transport: transport,
		clock:     clockwork.NewRealClock(),
		pattern:   pattern,
		attempts:  DefaultCardAttempts,
		interval:  DefaultCardInterval,
	}
}

// WriteURL writes url to a tag as a single NDEF URI record. It blocks until
// a card is presented or the retry budget runs out, writes the capability
// container, then the message pages in ascending order. There is no
// partial-write recovery: the caller restarts the whole sequence on error.
func (w *Writer) WriteURL(url string) error {
	// Encode before any tag I/O so an oversized URL never touches the card.
	msg, err := ndef.BuildURIMessage(url)
	if err != nil {
		return err
	}

	reader, err := w.findReader()
	if err != nil {
		return err
	}
	log.Info().Str("reader", reader).Msg("reader found")

	card, err := w.waitForCard(reader)
	if err != nil {
		return err
	}
	defer func() {
		// Best effort: a failed disconnect cannot undo pages already
		// committed.
		if err := card.Disconnect(); err != nil {
			log.Warn().Err(err).Msg("error disconnecting card")
		}
	}()

	if uid, err := w.readUID(card); err != nil {
		log.Warn().Err(err).Msg("could not read card UID")
	} else {
		log.Info().Str("uid", uid).Msg("card connected")
	}

	if err := w.writePage(card, CapabilityPage, capabilityContainer); err != nil {
		return err
	}

	return w.writeMessage(card, msg)
}

// findReader selects the first attached reader whose name contains the
// configured pattern.
func (w *Writer) findReader() (string, error) {
	readers, err := w.transport.ListReaders()
	if err != nil {
		return "", err
	}
	for _, r := range readers {
		if strings.Contains(r, w.pattern) {
			return r, nil
		}
	}
	return "", NewReaderNotFoundError(w.pattern, readers)
}

// waitForCard polls for card presence. Only the no-card condition is
// retried; any other connection error is fatal immediately.
func (w *Writer) waitForCard(reader string) (Card, error) {
	for attempt := 0; attempt < w.attempts; attempt++ {
		if attempt > 0 {
			w.clock.Sleep(w.interval)
		}

		card, err := w.transport.Connect(reader)
		if err == nil {
			return card, nil
		}
		if !IsNoCardError(err) {
			return nil, err
		}
		log.Debug().Int("attempt", attempt+1).Str("reader", reader).Msg("waiting for card")
	}
	return nil, NewCardTimeoutError(w.attempts)
}

// readUID fetches the card UID. Informational only; the write sequence does
// not depend on it.
func (w *Writer) readUID(card Card) (string, error) {
	resp, err := card.Transmit(GetUIDAPDU())
	if err != nil {
		return "", err
	}
	parsed, err := ParseAPDUResponse(resp)
	if err != nil {
		return "", err
	}
	if !parsed.IsSuccess() {
		return "", parsed.Error()
	}
	return BytesToHex(parsed.Data), nil
}

// writePage writes 4 bytes to a page. Short writes are zero-padded to the
// full page.
func (w *Writer) writePage(card Card, page byte, data []byte) error {
	buf := make([]byte, ndef.PageSize)
	copy(buf, data)

	resp, err := card.Transmit(UpdateBinaryAPDU(page, buf))
	if err != nil {
		return &WriteError{Page: page, Cause: err}
	}
	parsed, err := ParseAPDUResponse(resp)
	if err != nil {
		return &WriteError{Page: page, Cause: err}
	}
	if !parsed.IsSuccess() {
		return &WriteError{Page: page, Status: parsed.StatusWord()}
	}
	return nil
}

// writeMessage writes the padded message 4 bytes per page from the start of
// the user area, in strictly ascending page order with no gaps. NDEF
// parsers read pages contiguously, so order matters as much as content.
func (w *Writer) writeMessage(card Card, msg []byte) error {
	pages := len(msg) / ndef.PageSize

	// The short-record cap keeps any message far inside the user area;
	// pages past it hold lock and configuration bits.
	if UserStartPage+pages-1 > userEndPage {
		return fmt.Errorf("message of %d bytes exceeds tag user memory", len(msg))
	}

	page := byte(UserStartPage)
	for offset := 0; offset < len(msg); offset += ndef.PageSize {
		if err := w.writePage(card, page, msg[offset:offset+ndef.PageSize]); err != nil {
			return err
		}
		page++
	}

	log.Info().Int("bytes", len(msg)).Int("pages", pages).Msg("NDEF message written")
	return nil
}
