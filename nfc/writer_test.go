package nfc

import (
	"bytes"
	"errors"
	"testing"

	"github.com/jonboulle/clockwork"

	"github.com/dotside-studios/taglink/ndef"
)

// fakeCard records every transmit and answers via respond, or with a bare
// success status when respond is nil.
type fakeCard struct {
	transmits     [][]byte
	disconnects   int
	disconnectErr error
	respond       func(cmd []byte) ([]byte, error)
}

func (c *fakeCard) Transmit(cmd []byte) ([]byte, error) {
	c.transmits = append(c.transmits, append([]byte{}, cmd...))
	if c.respond != nil {
		return c.respond(cmd)
	}
	return []byte{0x90, 0x00}, nil
}

func (c *fakeCard) Disconnect() error {
	c.disconnects++
	return c.disconnectErr
}

// fakeTransport serves a fixed reader list and a scripted card.
type fakeTransport struct {
	readers     []string
	listErr     error
	card        *fakeCard
	connects    int
	noCardFirst int // first n connects fail with the retryable no-card error
	connectErr  error
}

func (t *fakeTransport) ListReaders() ([]string, error) {
	return t.readers, t.listErr
}

func (t *fakeTransport) Connect(reader string) (Card, error) {
	t.connects++
	if t.connectErr != nil {
		return nil, t.connectErr
	}
	if t.connects <= t.noCardFirst {
		return nil, NewNoCardError(reader)
	}
	return t.card, nil
}

func newTestWriter(ft *fakeTransport) *Writer {
	w := NewWriter(ft, "Fake")
	w.clock = clockwork.NewFakeClock()
	return w
}

func TestWriteURL_PageSequence(t *testing.T) {
	ft := &fakeTransport{
		readers: []string{"Fake Reader PICC 00 00"},
		card:    &fakeCard{},
	}
	w := newTestWriter(ft)

	url := "https://www.example.com"
	if err := w.WriteURL(url); err != nil {
		t.Fatalf("WriteURL failed: %v", err)
	}

	msg, err := ndef.BuildURIMessage(url)
	if err != nil {
		t.Fatalf("BuildURIMessage failed: %v", err)
	}
	dataPages := len(msg) / ndef.PageSize

	// One UID read, one capability container write, then one write per
	// message page.
	if got, want := len(ft.card.transmits), 2+dataPages; got != want {
		t.Fatalf("expected %d transmits, got %d", want, got)
	}

	if !bytes.Equal(ft.card.transmits[0], GetUIDAPDU()) {
		t.Errorf("first transmit should be GET UID, got % X", ft.card.transmits[0])
	}

	ccWrite := []byte{0xFF, 0xD6, 0x00, 0x03, 0x04, 0xE1, 0x10, 0x6D, 0x00}
	if !bytes.Equal(ft.card.transmits[1], ccWrite) {
		t.Errorf("capability container write mismatch:\ngot  % X\nwant % X", ft.card.transmits[1], ccWrite)
	}

	// Data page writes: strictly ascending pages from UserStartPage, no
	// gaps, 4 bytes each, reassembling to the exact message.
	var written []byte
	page := byte(UserStartPage)
	for i, cmd := range ft.card.transmits[2:] {
		if cmd[0] != CLAPCSC || cmd[1] != INSUpdateBin || cmd[2] != 0x00 || cmd[4] != 0x04 {
			t.Fatalf("transmit %d is not a page write: % X", i+2, cmd)
		}
		if cmd[3] != page {
			t.Fatalf("write %d addressed page %d, want %d", i, cmd[3], page)
		}
		written = append(written, cmd[5:]...)
		page++
	}
	if !bytes.Equal(written, msg) {
		t.Errorf("written bytes mismatch:\ngot  % X\nwant % X", written, msg)
	}

	if ft.card.disconnects != 1 {
		t.Errorf("expected exactly 1 disconnect, got %d", ft.card.disconnects)
	}
}

func TestWriteURL_ReaderNotFound(t *testing.T) {
	ft := &fakeTransport{readers: []string{"Some Other Reader"}}
	w := newTestWriter(ft)

	err := w.WriteURL("https://example.com")
	if !IsReaderNotFoundError(err) {
		t.Fatalf("expected reader-not-found error, got %v", err)
	}
	if ft.connects != 0 {
		t.Errorf("expected no connect attempts, got %d", ft.connects)
	}
}

func TestWriteURL_NoReadersAttached(t *testing.T) {
	ft := &fakeTransport{}
	w := newTestWriter(ft)

	if err := w.WriteURL("https://example.com"); !IsReaderNotFoundError(err) {
		t.Fatalf("expected reader-not-found error, got %v", err)
	}
}

func TestWriteURL_CardTimeout(t *testing.T) {
	ft := &fakeTransport{
		readers:     []string{"Fake Reader PICC 00 00"},
		noCardFirst: 1 << 30,
	}
	w := newTestWriter(ft)
	w.attempts = 5
	fc := clockwork.NewFakeClock()
	w.clock = fc

	done := make(chan error, 1)
	go func() { done <- w.WriteURL("https://example.com") }()

	// One sleep between each pair of attempts.
	for i := 0; i < w.attempts-1; i++ {
		fc.BlockUntil(1)
		fc.Advance(w.interval)
	}

	err := <-done
	if !IsCardTimeoutError(err) {
		t.Fatalf("expected card-timeout error, got %v", err)
	}
	if ft.connects != w.attempts {
		t.Errorf("expected %d connect attempts, got %d", w.attempts, ft.connects)
	}
}

func TestWriteURL_FatalConnectError(t *testing.T) {
	ft := &fakeTransport{
		readers:    []string{"Fake Reader PICC 00 00"},
		connectErr: errors.New("reader jammed"),
	}
	w := newTestWriter(ft)

	err := w.WriteURL("https://example.com")
	if err == nil || IsCardTimeoutError(err) {
		t.Fatalf("expected immediate fatal error, got %v", err)
	}
	if ft.connects != 1 {
		t.Errorf("fatal connect errors must not be retried, got %d attempts", ft.connects)
	}
}

func TestWriteURL_WriteFailedStatus(t *testing.T) {
	const failPage = 6
	card := &fakeCard{
		respond: func(cmd []byte) ([]byte, error) {
			if cmd[1] == INSUpdateBin && cmd[3] == failPage {
				return []byte{0x63, 0x00}, nil
			}
			return []byte{0x90, 0x00}, nil
		},
	}
	ft := &fakeTransport{readers: []string{"Fake Reader PICC 00 00"}, card: card}
	w := newTestWriter(ft)

	err := w.WriteURL("https://www.example.com") // 5 data pages, reaches page 6

	var writeErr *WriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("expected WriteError, got %v", err)
	}
	if writeErr.Page != failPage {
		t.Errorf("expected failing page %d, got %d", failPage, writeErr.Page)
	}
	if writeErr.Status != 0x6300 {
		t.Errorf("expected literal status 0x6300, got 0x%04X", writeErr.Status)
	}

	// The failing exchange must be the last one: no further pages written.
	last := card.transmits[len(card.transmits)-1]
	if last[1] != INSUpdateBin || last[3] != failPage {
		t.Errorf("writes continued past the failure: last transmit % X", last)
	}
	if card.disconnects != 1 {
		t.Errorf("expected exactly 1 disconnect on the failure path, got %d", card.disconnects)
	}
}

func TestWriteURL_PayloadTooLargeNoIO(t *testing.T) {
	ft := &fakeTransport{readers: []string{"Fake Reader PICC 00 00"}, card: &fakeCard{}}
	w := newTestWriter(ft)

	long := "https://" + string(bytes.Repeat([]byte{'a'}, 255))
	err := w.WriteURL(long)

	var sizeErr *ndef.PayloadSizeError
	if !errors.As(err, &sizeErr) {
		t.Fatalf("expected PayloadSizeError, got %v", err)
	}
	if ft.connects != 0 || len(ft.card.transmits) != 0 {
		t.Error("oversized payload must be rejected before any tag I/O")
	}
}

func TestWriteURL_DisconnectErrorSwallowed(t *testing.T) {
	card := &fakeCard{disconnectErr: errors.New("context lost")}
	ft := &fakeTransport{readers: []string{"Fake Reader PICC 00 00"}, card: card}
	w := newTestWriter(ft)

	if err := w.WriteURL("https://example.com"); err != nil {
		t.Fatalf("disconnect failure must not fail the write: %v", err)
	}
	if card.disconnects != 1 {
		t.Errorf("expected exactly 1 disconnect, got %d", card.disconnects)
	}
}

func TestWriteURL_UIDFailureNonFatal(t *testing.T) {
	card := &fakeCard{
		respond: func(cmd []byte) ([]byte, error) {
			if cmd[1] == INSGetUID {
				return []byte{0x6A, 0x82}, nil
			}
			return []byte{0x90, 0x00}, nil
		},
	}
	ft := &fakeTransport{readers: []string{"Fake Reader PICC 00 00"}, card: card}
	w := newTestWriter(ft)

	if err := w.WriteURL("https://example.com"); err != nil {
		t.Fatalf("UID read failure must not fail the write: %v", err)
	}
}

func TestWriteURL_RetriesThenSucceeds(t *testing.T) {
	ft := &fakeTransport{
		readers:     []string{"Fake Reader PICC 00 00"},
		card:        &fakeCard{},
		noCardFirst: 3,
	}
	w := newTestWriter(ft)
	fc := clockwork.NewFakeClock()
	w.clock = fc

	done := make(chan error, 1)
	go func() { done <- w.WriteURL("https://example.com") }()

	for i := 0; i < 3; i++ {
		fc.BlockUntil(1)
		fc.Advance(w.interval)
	}

	if err := <-done; err != nil {
		t.Fatalf("WriteURL failed after card appeared: %v", err)
	}
	if ft.connects != 4 {
		t.Errorf("expected 4 connect attempts, got %d", ft.connects)
	}
	if ft.card.disconnects != 1 {
		t.Errorf("expected exactly 1 disconnect, got %d", ft.card.disconnects)
	}
}
