// Package diff computes set-reconciliation differences between two OCLC
// number universes: the numbers a library's local catalog says should be
// held, and the holdings currently registered in the remote union catalog.
package diff

import "github.com/catalogops/oclcrecon/pkg/oclc"

// Result partitions the two input universes into three disjoint buckets.
// Computed fresh each run; never mutated incrementally.
type Result struct {
	// Both holds numbers present in the local and the remote source.
	// No action is needed for these.
	Both *oclc.Set

	// LocalOnly holds numbers present only locally: holdings that should
	// be set in the remote catalog.
	LocalOnly *oclc.Set

	// RemoteOnly holds numbers present only remotely: holdings that
	// should be unset.
	RemoteOnly *oclc.Set
}

// Diff compares the local and remote sets using normalized-equality
// membership. It is pure and total: empty inputs yield empty buckets.
func Diff(local, remote *oclc.Set) Result {
	result := Result{
		Both:       oclc.NewSet(),
		LocalOnly:  oclc.NewSet(),
		RemoteOnly: oclc.NewSet(),
	}

	for _, n := range local.Numbers() {
		if remote.Contains(n) {
			result.Both.Add(n)
		} else {
			result.LocalOnly.Add(n)
		}
	}

	for _, n := range remote.Numbers() {
		if !local.Contains(n) {
			result.RemoteOnly.Add(n)
		}
	}

	return result
}
