package nfc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ebfe/scard"
)

// PCSCTransport implements Transport using PC/SC via ebfe/scard.
type PCSCTransport struct {
	ctx *scard.Context
}

// NewPCSCTransport establishes a PC/SC context.
func NewPCSCTransport() (*PCSCTransport, error) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, fmt.Errorf("failed to establish PC/SC context: %w", err)
	}
	return &PCSCTransport{ctx: ctx}, nil
}

func (t *PCSCTransport) ListReaders() ([]string, error) {
	readers, err := t.ctx.ListReaders()
	if err != nil {
		return nil, fmt.Errorf("failed to list readers: %w", err)
	}
	return readers, nil
}

// Connect opens a connection to the card on the named reader.
// ShareShared keeps the reader usable by other applications; ProtocolAny
// lets the reader pick the protocol.
func (t *PCSCTransport) Connect(reader string) (Card, error) {
	card, err := t.ctx.Connect(reader, scard.ShareShared, scard.ProtocolAny)
	if err != nil {
		if isNoCardPCSCError(err) {
			return nil, NewNoCardError(reader)
		}
		return nil, fmt.Errorf("failed to connect to reader %s: %w", reader, err)
	}
	return &pcscCard{card: card}, nil
}

// Release frees the PC/SC context. The transport is unusable afterwards.
func (t *PCSCTransport) Release() error {
	if err := t.ctx.Release(); err != nil {
		return fmt.Errorf("failed to release PC/SC context: %w", err)
	}
	return nil
}

type pcscCard struct {
	card *scard.Card
}

func (c *pcscCard) Transmit(cmd []byte) ([]byte, error) {
	resp, err := c.card.Transmit(cmd)
	if err != nil {
		return nil, fmt.Errorf("transmit failed: %w", err)
	}
	return resp, nil
}

func (c *pcscCard) Disconnect() error {
	return c.card.Disconnect(scard.LeaveCard)
}

// isNoCardPCSCError checks if a PC/SC error means the reader is up but no
// card is present. Typed errors first, with string matching fallback for
// platform-specific messages.
func isNoCardPCSCError(err error) bool {
	if errors.Is(err, scard.ErrNoSmartcard) {
		return true
	}
	if errors.Is(err, scard.ErrRemovedCard) {
		return true
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "no card") ||
		strings.Contains(lower, "no smart card") ||
		strings.Contains(lower, "card is not present") ||
		strings.Contains(lower, "card not present")
}
