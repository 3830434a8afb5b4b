// Package vcard generates URLs for a vCard landing page that renders
// contact details from query parameters. The generated URL is what gets
// written to a tag.
package vcard

import (
	"net/url"
	"strings"
)

// Contact holds the fields the vCard page understands. Only fn and ln are
// required; empty fields are omitted from the generated URL.
type Contact struct {
	FirstName string `csv:"fn" json:"fn"`
	LastName  string `csv:"ln" json:"ln"`

	// Local-language name
	LocalFirstName string `csv:"lfn" json:"lfn,omitempty"`
	LocalLastName  string `csv:"lln" json:"lln,omitempty"`
	NamePrefix     string `csv:"np" json:"np,omitempty"`

	// Organization
	Organization string `csv:"org" json:"org,omitempty"`
	BusinessUnit string `csv:"bu" json:"bu,omitempty"`
	Title        string `csv:"title" json:"title,omitempty"`

	// Contact details
	Email  string `csv:"email" json:"email,omitempty"`
	Tel    string `csv:"tel" json:"tel,omitempty"`
	Mobile string `csv:"mobile" json:"mobile,omitempty"`
	Tel2   string `csv:"tel2" json:"tel2,omitempty"`

	// Address
	Company  string `csv:"company" json:"company,omitempty"`
	Floor    string `csv:"floor" json:"floor,omitempty"`
	Street   string `csv:"street" json:"street,omitempty"`
	District string `csv:"district" json:"district,omitempty"`
	City     string `csv:"city" json:"city,omitempty"`
	Postal   string `csv:"postal" json:"postal,omitempty"`
	Country  string `csv:"country" json:"country,omitempty"`

	Website string `csv:"url" json:"url,omitempty"`
	Note    string `csv:"note" json:"note,omitempty"`
}

type param struct {
	key   string
	value string
}

// params returns the non-empty fields in a stable order. The page reads
// parameters by name, but a stable order keeps generated URLs reproducible
// across runs.
func (c *Contact) params() []param {
	all := []param{
		{"fn", c.FirstName},
		{"ln", c.LastName},
		{"lfn", c.LocalFirstName},
		{"lln", c.LocalLastName},
		{"np", c.NamePrefix},
		{"org", c.Organization},
		{"bu", c.BusinessUnit},
		{"title", c.Title},
		{"email", c.Email},
		{"tel", c.Tel},
		{"mobile", c.Mobile},
		{"tel2", c.Tel2},
		{"company", c.Company},
		{"floor", c.Floor},
		{"street", c.Street},
		{"district", c.District},
		{"city", c.City},
		{"postal", c.Postal},
		{"country", c.Country},
		{"url", c.Website},
		{"note", c.Note},
	}

	var out []param
	for _, p := range all {
		if p.value != "" {
			out = append(out, p)
		}
	}
	return out
}

// URL builds the full page URL for the contact. A trailing slash on the base
// URL is trimmed so the query string attaches cleanly.
func (c *Contact) URL(base string) string {
	base = strings.TrimRight(base, "/")

	var sb strings.Builder
	sb.WriteString(base)
	for i, p := range c.params() {
		if i == 0 {
			sb.WriteByte('?')
		} else {
			sb.WriteByte('&')
		}
		sb.WriteString(p.key)
		sb.WriteByte('=')
		sb.WriteString(escape(p.value))
	}
	return sb.String()
}

// escape percent-encodes a query value with %20 for spaces, matching what
// the vCard page decodes.
func escape(v string) string {
	return strings.ReplaceAll(url.QueryEscape(v), "+", "%20")
}
