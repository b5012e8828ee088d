package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_LookupByAlias(t *testing.T) {
	r := NewRegistry()
	d, ok := r.Lookup("txs")
	require.True(t, ok)
	assert.Equal(t, "transactions", d.Name)
}

func TestRegistry_ExpandGroup(t *testing.T) {
	r := NewRegistry()
	datasets, err := r.Expand([]string{"state_diffs"})
	require.NoError(t, err)
	names := make([]string, len(datasets))
	for i, d := range datasets {
		names[i] = d.Name
	}
	assert.Equal(t, []string{"balance_diffs", "code_diffs", "nonce_diffs", "storage_diffs"}, names)
}

func TestRegistry_ExpandDedupsPreservingFirstOccurrence(t *testing.T) {
	r := NewRegistry()
	datasets, err := r.Expand([]string{"blocks", "state_diffs", "balance_diffs"})
	require.NoError(t, err)
	names := make([]string, len(datasets))
	for i, d := range datasets {
		names[i] = d.Name
	}
	assert.Equal(t, []string{"blocks", "balance_diffs", "code_diffs", "nonce_diffs", "storage_diffs"}, names)
}

func TestRegistry_ExpandDedupsCanonicalNameAgainstItsOwnAlias(t *testing.T) {
	r := NewRegistry()
	datasets, err := r.Expand([]string{"blocks", "block", "transactions", "txs"})
	require.NoError(t, err)
	names := make([]string, len(datasets))
	for i, d := range datasets {
		names[i] = d.Name
	}
	assert.Equal(t, []string{"blocks", "transactions"}, names)
}

func TestRegistry_ExpandUnknownDataset(t *testing.T) {
	r := NewRegistry()
	_, err := r.Expand([]string{"not_a_dataset"})
	assert.Error(t, err)
}
