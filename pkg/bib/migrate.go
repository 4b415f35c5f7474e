// Package bib decides identifier field placement for a bibliographic
// record: which OCLC number belongs in the primary control-number field and
// which historical numbers move to the secondary field. It is pure — the
// caller owns reading the record's fields and persisting the result.
package bib

import (
	"strings"

	"github.com/catalogops/oclcrecon/pkg/errors"
	"github.com/catalogops/oclcrecon/pkg/oclc"
)

// InvalidValue is an identifier dropped from the secondary field because it
// failed validation. An invalid identifier left in place would corrupt
// later reconciliation passes, so these are reported rather than kept.
type InvalidValue struct {
	Raw    string
	Reason string
}

// Migration is the post-update field layout for one record.
type Migration struct {
	// Updated is false when the record already carries the authoritative
	// number as its primary identifier.
	Updated bool

	// Primary is the normalized authoritative number.
	Primary string

	// Secondary holds the normalized historical numbers, deduplicated,
	// in order of first occurrence (previous primary first).
	Secondary []string

	// DroppedInvalid lists the values removed because they failed
	// validation.
	DroppedInvalid []InvalidValue
}

// Migrate computes the field layout after setting authoritative as the
// record's primary identifier.
//
// current is the record's existing primary value ("" when absent) and
// secondary its existing historical values in field order. When the
// authoritative number already equals the current primary, the record is
// reported unchanged and the existing secondary values pass through
// untouched. Otherwise every prior value that is valid and distinct from
// the new primary is retained in (or migrated to) the secondary list.
func Migrate(current string, secondary []string, authoritative oclc.Number) (Migration, error) {
	if !authoritative.Valid {
		return Migration{}, errors.NewValidationError("OCLC number", authoritative.Raw, authoritative.Reason)
	}

	currentNum := oclc.Parse(current)
	if currentNum.Equal(authoritative) {
		return Migration{
			Updated:   false,
			Primary:   currentNum.Digits,
			Secondary: append([]string(nil), secondary...),
		}, nil
	}

	m := Migration{
		Updated: true,
		Primary: authoritative.Digits,
	}

	seen := map[string]bool{authoritative.Digits: true}
	candidates := secondary
	if strings.TrimSpace(current) != "" {
		candidates = append([]string{current}, secondary...)
	}

	for _, raw := range candidates {
		n := oclc.Parse(raw)
		if !n.Valid {
			m.DroppedInvalid = append(m.DroppedInvalid, InvalidValue{Raw: raw, Reason: n.Reason})
			continue
		}
		if seen[n.Digits] {
			continue
		}
		seen[n.Digits] = true
		m.Secondary = append(m.Secondary, n.Digits)
	}

	return m, nil
}

// ValidateRecordID checks a local record identifier (an Alma MMS ID).
// It returns the trimmed identifier or a validation error when the value is
// empty or contains non-digit characters.
func ValidateRecordID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", errors.NewValidationError("MMS ID", raw, "empty value")
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return "", errors.NewValidationError("MMS ID", raw, "contains non-digit characters")
		}
	}
	return id, nil
}
