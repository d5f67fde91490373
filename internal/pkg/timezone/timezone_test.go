package timezone

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValid(t *testing.T) {
	assert.True(t, Valid("America/New_York"))
	assert.True(t, Valid("UTC"))

	assert.False(t, Valid(""))
	assert.False(t, Valid("Local"))
	assert.False(t, Valid("Mars/Olympus_Mons"))
}

func TestAvailable(t *testing.T) {
	zones := Available()
	require.NotEmpty(t, zones)

	assert.True(t, sort.StringsAreSorted(zones))

	for _, z := range zones {
		_, err := time.LoadLocation(z)
		assert.NoError(t, err, z)
	}

	// a caller mutating the result must not corrupt the list
	zones[0] = "mutated"
	assert.NotEqual(t, "mutated", Available()[0])
}
