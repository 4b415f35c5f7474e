package pipeline

import (
	"github.com/catalogops/oclcrecon/pkg/diff"
	"github.com/catalogops/oclcrecon/pkg/oclc"
)

// Unparsed is an input value excluded from a comparison because it did not
// parse as an OCLC number.
type Unparsed struct {
	Raw    string
	Reason string
}

// Comparison is the outcome of comparing the local identifier universe
// against the remote one.
type Comparison struct {
	Result diff.Result

	// InvalidLocal and InvalidRemote list the values each side contributed
	// that could not be parsed, in input order.
	InvalidLocal  []Unparsed
	InvalidRemote []Unparsed
}

// Compare diffs two identifier universes given as raw values. Unparsable
// values are reported, not silently dropped; duplicates within a side
// collapse by normalized digits.
func Compare(local, remote []string) Comparison {
	localSet, invalidLocal := buildSet(local)
	remoteSet, invalidRemote := buildSet(remote)

	return Comparison{
		Result:        diff.Diff(localSet, remoteSet),
		InvalidLocal:  invalidLocal,
		InvalidRemote: invalidRemote,
	}
}

func buildSet(values []string) (*oclc.Set, []Unparsed) {
	set := oclc.NewSet()
	var invalid []Unparsed
	for _, raw := range values {
		n := oclc.Parse(raw)
		if !n.Valid {
			invalid = append(invalid, Unparsed{Raw: raw, Reason: n.Reason})
			continue
		}
		set.Add(n)
	}
	return set, invalid
}
