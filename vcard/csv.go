package vcard

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"
)

// LoadCSV reads contacts from a CSV file. The header row names the fields
// using the same short keys the URL carries (fn, ln, email, ...); columns may
// appear in any order and missing columns are left empty.
func LoadCSV(path string) ([]*Contact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open contacts file: %w", err)
	}
	defer f.Close()

	var contacts []*Contact
	if err := gocsv.UnmarshalFile(f, &contacts); err != nil {
		return nil, fmt.Errorf("failed to parse contacts file %s: %w", path, err)
	}
	return contacts, nil
}
