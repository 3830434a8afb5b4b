package nfc

import (
	"bytes"
	"testing"
)

func TestUpdateBinaryAPDU(t *testing.T) {
	apdu := UpdateBinaryAPDU(7, []byte{0xDE, 0xAD, 0xBE, 0xEF})
	expected := []byte{0xFF, 0xD6, 0x00, 0x07, 0x04, 0xDE, 0xAD, 0xBE, 0xEF}
	if !bytes.Equal(apdu, expected) {
		t.Errorf("UpdateBinaryAPDU mismatch:\ngot  % X\nwant % X", apdu, expected)
	}
}

func TestGetUIDAPDU(t *testing.T) {
	expected := []byte{0xFF, 0xCA, 0x00, 0x00, 0x00}
	if got := GetUIDAPDU(); !bytes.Equal(got, expected) {
		t.Errorf("GetUIDAPDU mismatch:\ngot  % X\nwant % X", got, expected)
	}
}

func TestParseAPDUResponse(t *testing.T) {
	tests := []struct {
		name     string
		raw      []byte
		wantData []byte
		wantSW1  byte
		wantSW2  byte
		success  bool
	}{
		{
			name:     "success with data",
			raw:      []byte{0x04, 0x12, 0x34, 0x90, 0x00},
			wantData: []byte{0x04, 0x12, 0x34},
			wantSW1:  0x90,
			wantSW2:  0x00,
			success:  true,
		},
		{
			name:     "success without data",
			raw:      []byte{0x90, 0x00},
			wantData: []byte{},
			wantSW1:  0x90,
			wantSW2:  0x00,
			success:  true,
		},
		{
			name:     "failure status",
			raw:      []byte{0x63, 0x00},
			wantData: []byte{},
			wantSW1:  0x63,
			wantSW2:  0x00,
			success:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := ParseAPDUResponse(tt.raw)
			if err != nil {
				t.Fatalf("ParseAPDUResponse failed: %v", err)
			}
			if !bytes.Equal(resp.Data, tt.wantData) {
				t.Errorf("data mismatch: got % X, want % X", resp.Data, tt.wantData)
			}
			if resp.SW1 != tt.wantSW1 || resp.SW2 != tt.wantSW2 {
				t.Errorf("status mismatch: got %02X%02X, want %02X%02X",
					resp.SW1, resp.SW2, tt.wantSW1, tt.wantSW2)
			}
			if resp.IsSuccess() != tt.success {
				t.Errorf("IsSuccess() = %v, want %v", resp.IsSuccess(), tt.success)
			}
		})
	}
}

func TestParseAPDUResponse_TooShort(t *testing.T) {
	if _, err := ParseAPDUResponse([]byte{0x90}); err == nil {
		t.Error("expected error for response shorter than a status word")
	}
	if _, err := ParseAPDUResponse(nil); err == nil {
		t.Error("expected error for empty response")
	}
}

func TestStatusWord(t *testing.T) {
	resp := &APDUResponse{SW1: 0x6A, SW2: 0x82}
	if got := resp.StatusWord(); got != 0x6A82 {
		t.Errorf("StatusWord() = 0x%04X, want 0x6A82", got)
	}
}

func TestBytesToHex(t *testing.T) {
	if got := BytesToHex([]byte{0x04, 0xA1, 0xFF}); got != "04A1FF" {
		t.Errorf("BytesToHex = %q, want %q", got, "04A1FF")
	}
}
