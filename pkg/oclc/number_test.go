package oclc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseValid(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		digits string
		prefix string
	}{
		{"digits only", "12345", "12345", ""},
		{"ocm prefix", "ocm00012345", "12345", "ocm"},
		{"ocn prefix", "ocn812345678", "812345678", "ocn"},
		{"on prefix", "on9123456789", "9123456789", "on"},
		{"org code", "(OCoLC)12345", "12345", ""},
		{"org code with zeros", "(OCoLC)00012345", "12345", ""},
		{"org code with ocm", "(OCoLC)ocm01234567", "1234567", "ocm"},
		{"org code lowercase", "(ocolc)12345", "12345", ""},
		{"uppercase prefix", "OCM00012345", "12345", "ocm"},
		{"subfield marker prefix", "(OCoLC)|a01234567", "1234567", "|a"},
		{"trailing hash", "01234567#", "1234567", ""},
		{"prefixed trailing hash", "ocm01234567#", "1234567", "ocm"},
		{"surrounding whitespace", "  12345  ", "12345", ""},
		{"all zeros", "000", "0", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := Parse(tt.raw)
			assert.True(t, n.Valid, "expected %q to be valid, got reason: %s", tt.raw, n.Reason)
			assert.Equal(t, tt.digits, n.Digits)
			assert.Equal(t, tt.prefix, n.Prefix)
			assert.Equal(t, tt.raw, n.Raw)
		})
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"no digits", "abc"},
		{"org code only", "(OCoLC)"},
		{"unrecognized prefix", "(OCoLC)ABC01234567"},
		{"non-digit tail", "(OCoLC)01234567def"},
		{"prefixed non-digit tail", "ocm01234567def"},
		{"double hash", "01234567##"},
		{"decimal point", "123.45"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := Parse(tt.raw)
			assert.False(t, n.Valid, "expected %q to be invalid", tt.raw)
			assert.NotEmpty(t, n.Reason)
			assert.Empty(t, n.Digits)
			assert.Equal(t, tt.raw, n.Raw)
		})
	}
}

func TestParseIdempotent(t *testing.T) {
	for _, raw := range []string{"ocm00012345", "(OCoLC)9281726", "12345", "on00000001"} {
		first := Parse(raw)
		second := Parse(first.Digits)
		assert.True(t, second.Valid)
		assert.Equal(t, first.Digits, second.Digits)
	}
}

func TestParsePrefixInsensitiveEquality(t *testing.T) {
	a := Parse("ocm00012345")
	b := Parse("(OCoLC)12345")
	c := Parse("12345")

	assert.Equal(t, "12345", a.Digits)
	assert.True(t, a.Equal(b))
	assert.True(t, b.Equal(c))
	assert.True(t, a.Equal(c))
}

func TestInvalidNumbersNeverEqual(t *testing.T) {
	a := Parse("abc")
	b := Parse("abc")
	assert.False(t, a.Equal(b))
	assert.False(t, a.Equal(a))
}

func TestRecognized(t *testing.T) {
	recognized := []string{
		"(OCoLC)12345",
		"(ocolc)ABC123", // claimed even though invalid; the field is still ours to clean up
		"ocm01234567",
		"OCN812345678",
		"on9123456789",
	}
	for _, raw := range recognized {
		assert.True(t, Recognized(raw), "expected %q to be recognized", raw)
	}

	notRecognized := []string{
		"",
		"12345",            // bare digits carry no OCLC marker in an 035
		"(DLC)79018162",    // other org code
		"onxyz",            // prefix without a following digit
		"oclc12345",        // not a known prefix
		"online resource1", // "on" must be followed by a digit
	}
	for _, raw := range notRecognized {
		assert.False(t, Recognized(raw), "expected %q to not be recognized", raw)
	}
}

func TestNumberString(t *testing.T) {
	assert.Equal(t, "12345", Parse("ocm00012345").String())
	assert.Equal(t, "bad-id", Parse("bad-id").String())
}

func TestSetNormalizedMembership(t *testing.T) {
	s := NewSet(Parse("ocm00000001"), Parse("(OCoLC)2"))

	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Contains(Parse("(OCoLC)1")))
	assert.True(t, s.Contains(Parse("2")))
	assert.False(t, s.Contains(Parse("3")))

	// Duplicate under a different convention is not re-added.
	assert.False(t, s.Add(Parse("1")))
	assert.Equal(t, 2, s.Len())

	// Invalid numbers are never members.
	assert.False(t, s.Add(Parse("abc")))
	assert.False(t, s.Contains(Parse("abc")))
}

func TestSetOrdering(t *testing.T) {
	s := NewSet(Parse("300"), Parse("21"), Parse("100"), Parse("9"))

	var insertion []string
	for _, n := range s.Numbers() {
		insertion = append(insertion, n.Digits)
	}
	assert.Equal(t, []string{"300", "21", "100", "9"}, insertion)

	assert.Equal(t, []string{"9", "21", "100", "300"}, s.SortedDigits())
}

func TestSetSortedDigitsBeyondInt64(t *testing.T) {
	s := NewSet(Parse("99999999999999999999"), Parse("2"))
	assert.Equal(t, []string{"2", "99999999999999999999"}, s.SortedDigits())
}
