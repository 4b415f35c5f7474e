// Package oclc models OCLC numbers: union-catalog identifiers that appear in
// bibliographic records with several historical prefix and zero-padding
// conventions. Parsing never fails; malformed input produces a Number with
// Valid=false and a reason, so callers can route bad rows to an errors
// bucket without aborting a batch.
package oclc

import (
	"strconv"
	"strings"
)

// OrgCodePrefix is the parenthesized organization code that introduces an
// OCLC number in an 035 $a value, e.g. "(OCoLC)01234567".
const OrgCodePrefix = "(OCoLC)"

// validPrefixes are the recognized OCLC number prefixes. The subfield
// delimiter "|a" is not a traditional prefix but occurs in real data as
// "(OCoLC)|a01234567" and is accepted so those records don't land in the
// errors bucket.
var validPrefixes = map[string]bool{
	"ocm": true,
	"ocn": true,
	"on":  true,
	"|a":  true,
}

// Number is one parsed OCLC number. It is immutable after Parse.
// Two Numbers identify the same record iff their Digits are equal,
// regardless of prefix, padding, or casing in the raw value.
type Number struct {
	// Raw is the original string as found in the record or API response.
	Raw string

	// Prefix is the recognized prefix found before the digits, lowercased
	// ("ocm", "ocn", "on" or "|a"), or "" if the value had none.
	Prefix string

	// Digits is the normalized numeric core with leading zeros stripped.
	// Empty when Valid is false.
	Digits string

	// Valid reports whether the raw value parsed to a usable number.
	Valid bool

	// Reason explains why the value is invalid; "" when Valid.
	Reason string
}

// Parse normalizes and validates a raw OCLC number string.
//
// The "(OCoLC)" organization code is removed first if present. Everything
// before the first digit is treated as the prefix and everything from the
// first digit on as the number itself. A value is valid when the number
// part is entirely digits (a single trailing '#' is tolerated and dropped)
// and the prefix, if any, is one of the recognized forms.
func Parse(raw string) Number {
	n := Number{Raw: raw}

	s := strings.TrimSpace(raw)
	if s == "" {
		n.Reason = "empty value"
		return n
	}

	if len(s) >= len(OrgCodePrefix) && strings.EqualFold(s[:len(OrgCodePrefix)], OrgCodePrefix) {
		s = strings.TrimSpace(s[len(OrgCodePrefix):])
		if s == "" {
			n.Reason = "nothing after " + OrgCodePrefix
			return n
		}
	}

	digitAt := strings.IndexFunc(s, isDigit)
	if digitAt < 0 {
		n.Reason = "no digits"
		return n
	}

	prefix := strings.ToLower(s[:digitAt])
	digits := s[digitAt:]

	// A single trailing '#' on an otherwise valid number is tolerated.
	if strings.HasSuffix(digits, "#") && allDigits(digits[:len(digits)-1]) {
		digits = digits[:len(digits)-1]
	}

	if !allDigits(digits) {
		n.Reason = "contains non-digit characters after the first digit"
		return n
	}

	if prefix != "" && !validPrefixes[prefix] {
		n.Reason = "unrecognized prefix " + strconv.Quote(prefix)
		return n
	}

	n.Prefix = prefix
	n.Digits = stripLeadingZeros(digits)
	n.Valid = true
	return n
}

// Recognized reports whether a raw 035 $a value is claimed by the OCLC
// reconciliation workflow at all: it carries the "(OCoLC)" organization
// code or one of the traditional prefixes. Values from other identifier
// systems (ISSN, local control numbers, other org codes) are not
// recognized and must be left untouched in the record.
func Recognized(raw string) bool {
	s := strings.TrimSpace(raw)
	if s == "" {
		return false
	}
	if len(s) >= len(OrgCodePrefix) && strings.EqualFold(s[:len(OrgCodePrefix)], OrgCodePrefix) {
		return true
	}
	lower := strings.ToLower(s)
	for _, prefix := range []string{"ocm", "ocn", "on"} {
		if strings.HasPrefix(lower, prefix) {
			rest := lower[len(prefix):]
			if rest != "" && isDigit(rune(rest[0])) {
				return true
			}
		}
	}
	return false
}

// Equal reports whether two numbers identify the same record.
// Invalid numbers are never equal to anything, including themselves.
func (n Number) Equal(other Number) bool {
	return n.Valid && other.Valid && n.Digits == other.Digits
}

// String returns the normalized digits for valid numbers and the raw value
// otherwise, so invalid values round-trip unchanged into error reports.
func (n Number) String() string {
	if n.Valid {
		return n.Digits
	}
	return n.Raw
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !isDigit(r) {
			return false
		}
	}
	return true
}

// stripLeadingZeros removes leading zeros but keeps a lone final zero, so
// "000" normalizes to "0" rather than the empty string.
func stripLeadingZeros(s string) string {
	i := 0
	for i < len(s)-1 && s[i] == '0' {
		i++
	}
	return s[i:]
}
