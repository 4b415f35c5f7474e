package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompare(t *testing.T) {
	local := []string{"(OCoLC)1", "ocm00000002", "3", "bogus"}
	remote := []string{"2", "3", "4"}

	c := Compare(local, remote)

	assert.Equal(t, []string{"2", "3"}, c.Result.Both.SortedDigits())
	assert.Equal(t, []string{"1"}, c.Result.LocalOnly.SortedDigits())
	assert.Equal(t, []string{"4"}, c.Result.RemoteOnly.SortedDigits())

	require.Len(t, c.InvalidLocal, 1)
	assert.Equal(t, "bogus", c.InvalidLocal[0].Raw)
	assert.NotEmpty(t, c.InvalidLocal[0].Reason)
	assert.Empty(t, c.InvalidRemote)
}

func TestCompareCollapsesDuplicates(t *testing.T) {
	c := Compare([]string{"1", "(OCoLC)1", "ocm00000001"}, nil)
	assert.Equal(t, 1, c.Result.LocalOnly.Len())
}

func TestCompareEmpty(t *testing.T) {
	c := Compare(nil, nil)
	assert.Equal(t, 0, c.Result.Both.Len())
	assert.Equal(t, 0, c.Result.LocalOnly.Len())
	assert.Equal(t, 0, c.Result.RemoteOnly.Len())
}
