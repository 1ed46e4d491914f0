package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryCoversAllEntityTypes(t *testing.T) {
	t.Parallel()

	r := NewRegistry()

	expected := []string{
		TypeFeedLog,
		TypeSleepLog,
		TypeNappyLog,
		TypeSolidsLog,
		TypePumpingLog,
		TypeGrowthLog,
	}
	assert.ElementsMatch(t, expected, r.Types())

	for _, name := range expected {
		h, ok := r.Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, name, h.Type())
	}
}

func TestRegistryLookupUnknown(t *testing.T) {
	t.Parallel()

	r := NewRegistry()

	_, ok := r.Lookup("bath_log")
	assert.False(t, ok)
}
