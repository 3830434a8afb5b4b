package ndef

// TLV types for NDEF on Type 2 tag memory
const (
	TLVNull       = 0x00 // Null TLV
	TLVNDEF       = 0x03 // NDEF Message TLV
	TLVTerminator = 0xFE // Terminator TLV
)

// PageSize is the size of one tag memory page, the unit of each write
// command.
const PageSize = 4

// TLVEncode encodes data into TLV format.
// For NDEF, use type = 0x03 (TLVNDEF)
// Returns: [Type][Length][Value][Terminator (0xFE)]
func TLVEncode(data []byte, tlvType byte) []byte {
	length := len(data)
	var result []byte

	// Type byte
	result = append(result, tlvType)

	// Length field
	if length < 0xFF {
		// Short format: single byte length
		result = append(result, byte(length))
	} else {
		// Long format: 0xFF followed by 2-byte big-endian length
		result = append(result, 0xFF)
		result = append(result, byte(length>>8))
		result = append(result, byte(length&0xFF))
	}

	// Value
	result = append(result, data...)

	// Terminator TLV
	result = append(result, TLVTerminator)

	return result
}

// PadToPage appends zero bytes until the length is a multiple of PageSize.
// Padding always follows the terminator TLV, never precedes it.
func PadToPage(data []byte) []byte {
	for len(data)%PageSize != 0 {
		data = append(data, 0x00)
	}
	return data
}

// BuildURIMessage produces the complete on-tag byte image for uri: the NDEF
// URI record wrapped in an NDEF Message TLV and padded to a page boundary.
func BuildURIMessage(uri string) ([]byte, error) {
	record, err := BuildURIRecord(uri)
	if err != nil {
		return nil, err
	}
	return PadToPage(TLVEncode(record, TLVNDEF)), nil
}
