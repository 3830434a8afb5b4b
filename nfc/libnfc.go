package nfc

import (
	"fmt"

	"github.com/clausecker/nfc/v2"
)

// LibnfcTransport implements Transport using libnfc via clausecker/nfc.
//
// The writer speaks PC/SC pseudo-APDUs. A libnfc device exchanges raw
// frames with the tag instead, so the connected card performs the same
// pseudo-APDU translation the ACR reader firmware does (FF D6 page writes
// become the native 0xA2 WRITE, FF CA answers from the cached UID). Both
// transports then present one contract to the writer.
type LibnfcTransport struct{}

// NewLibnfcTransport creates a libnfc-backed transport.
func NewLibnfcTransport() *LibnfcTransport {
	return &LibnfcTransport{}
}

func (t *LibnfcTransport) ListReaders() ([]string, error) {
	devices, err := nfc.ListDevices()
	if err != nil {
		return nil, fmt.Errorf("failed to list libnfc devices: %w", err)
	}
	return devices, nil
}

func (t *LibnfcTransport) Connect(reader string) (Card, error) {
	dev, err := nfc.Open(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to open libnfc device %s: %w", reader, err)
	}

	if err := dev.InitiatorInit(); err != nil {
		dev.Close()
		return nil, fmt.Errorf("initiator init failed: %w", err)
	}

	modulation := nfc.Modulation{Type: nfc.ISO14443a, BaudRate: nfc.Nbr106}
	targets, err := dev.InitiatorListPassiveTargets(modulation)
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("failed to poll for targets: %w", err)
	}
	if len(targets) == 0 {
		dev.Close()
		return nil, NewNoCardError(reader)
	}

	var uid []byte
	if isoA, ok := targets[0].(*nfc.ISO14443aTarget); ok && isoA.UIDLen > 0 {
		uid = append(uid, isoA.UID[:isoA.UIDLen]...)
	}

	if _, err := dev.InitiatorSelectPassiveTarget(modulation, nil); err != nil {
		dev.Close()
		return nil, fmt.Errorf("failed to select target: %w", err)
	}

	return &libnfcCard{device: dev, uid: uid}, nil
}

type libnfcCard struct {
	device nfc.Device
	uid    []byte
}

// Transmit accepts the PC/SC pseudo-APDU command set used by the writer and
// answers with response data plus a status word.
func (c *libnfcCard) Transmit(cmd []byte) ([]byte, error) {
	if len(cmd) < 4 || cmd[0] != CLAPCSC {
		return []byte{0x6E, 0x00}, nil // class not supported
	}

	switch cmd[1] {
	case INSGetUID:
		resp := append([]byte{}, c.uid...)
		return append(resp, SW1Success, SW2Success), nil
	case INSUpdateBin:
		if len(cmd) < 5 || int(cmd[4]) != len(cmd)-5 {
			return []byte{0x67, 0x00}, nil // wrong length
		}
		if err := c.writePage(cmd[3], cmd[5:]); err != nil {
			return nil, err
		}
		return []byte{SW1Success, SW2Success}, nil
	default:
		return []byte{0x6D, 0x00}, nil // instruction not supported
	}
}

// writePage sends the NTAG native WRITE command: 0xA2 [page] [4 bytes].
func (c *libnfcCard) writePage(page byte, data []byte) error {
	tx := append([]byte{0xA2, page}, data...)
	var rx [262]byte // Max buffer size for NFC
	if _, err := c.device.InitiatorTransceiveBytes(tx, rx[:], 0); err != nil {
		return fmt.Errorf("libnfc write to page %d: %w", page, err)
	}
	return nil
}

func (c *libnfcCard) Disconnect() error {
	return c.device.Close()
}
