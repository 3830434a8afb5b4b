package ndef

import "fmt"

// NDEF URI record constants.
const (
	// uriRecordHeader marks a single short record: MB=1, ME=1, SR=1,
	// TNF=Well Known.
	uriRecordHeader = 0xD1
	// uriRecordType is the well-known type byte for a URI record.
	uriRecordType = 'U'

	// MaxURIPayload is the largest payload (identifier code + remainder)
	// a short record can carry.
	MaxURIPayload = 255
)

// PayloadSizeError reports a URI whose encoded payload does not fit in a
// short record. The record builder rejects these outright instead of
// falling back to long-record framing, which Type 2 parsers targeting this
// layout do not expect.
type PayloadSizeError struct {
	Size int
}

func (e *PayloadSizeError) Error() string {
	return fmt.Sprintf("URI payload is %d bytes, short record limit is %d", e.Size, MaxURIPayload)
}

// BuildURIRecord encodes uri as a single short-format NDEF URI record:
// header, type length (1), payload length, type 'U', then the identifier
// code followed by the abbreviated URI bytes.
func BuildURIRecord(uri string) ([]byte, error) {
	code, remainder := AbbreviateURI(uri)

	payloadLen := 1 + len(remainder)
	if payloadLen > MaxURIPayload {
		return nil, &PayloadSizeError{Size: payloadLen}
	}

	record := make([]byte, 0, 4+payloadLen)
	record = append(record, uriRecordHeader, 0x01, byte(payloadLen), uriRecordType, code)
	record = append(record, remainder...)
	return record, nil
}
