// Package ndef builds NDEF URI messages in the on-tag TLV format used by
// Type 2 tags such as the NTAG21x family.
package ndef

import "strings"

// URIPrefix pairs a well-known URI prefix with its NFC Forum identifier
// code. Storing the code instead of the literal prefix bytes saves tag
// space.
type URIPrefix struct {
	Prefix string
	Code   byte
}

// uriPrefixes is checked in order. Longer prefixes must come before any
// shorter prefix they start with ("https://www." before "https://"),
// otherwise the shorter code shadows the more specific one.
var uriPrefixes = []URIPrefix{
	{"http://www.", 0x01},
	{"https://www.", 0x02},
	{"http://", 0x03},
	{"https://", 0x04},
	{"tel:", 0x05},
	{"mailto:", 0x06},
	{"ftp://", 0x0D},
}

// AbbreviateURI returns the NFC Forum identifier code for the URI's scheme
// prefix and the remainder of the URI with that prefix removed. Matching is
// case-insensitive on the prefix only; the remainder keeps its original
// bytes. A URI with no known prefix gets code 0x00 and is kept verbatim.
func AbbreviateURI(uri string) (byte, string) {
	lower := strings.ToLower(uri)
	for _, p := range uriPrefixes {
		if strings.HasPrefix(lower, p.Prefix) {
			return p.Code, uri[len(p.Prefix):]
		}
	}
	return 0x00, uri
}

// ExpandURI is the inverse of AbbreviateURI: it rebuilds a URI string from
// an identifier code and the stored remainder. Unknown codes return the
// remainder unchanged.
func ExpandURI(code byte, remainder string) string {
	for _, p := range uriPrefixes {
		if p.Code == code {
			return p.Prefix + remainder
		}
	}
	return remainder
}
