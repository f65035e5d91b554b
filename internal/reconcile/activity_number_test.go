package reconcile

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var numberPattern = regexp.MustCompile(`^HA-\d{8}-\d{3}$`)

func TestActivityNumbersDistinct(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	gen := NewActivityNumbers(day, []string{"HA-20240301-001", "HA-20240301-004", "HA-20240229-050"})

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		n, err := gen.Next()
		require.NoError(t, err)
		assert.Regexp(t, numberPattern, n)
		assert.False(t, seen[n], n)
		seen[n] = true
	}
	first, _ := NewActivityNumbers(day, []string{"HA-20240301-004"}).Next()
	assert.Equal(t, "HA-20240301-005", first)
}

func TestActivityNumbersSkipsKnownGaps(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	gen := NewActivityNumbers(day, []string{"HA-20240301-garbage"})

	n, err := gen.Next()
	require.NoError(t, err)
	assert.Equal(t, "HA-20240301-001", n)
}

func TestActivityNumbersExhausted(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	gen := NewActivityNumbers(day, []string{"HA-20240301-999"})

	_, err := gen.Next()
	assert.ErrorIs(t, err, ErrSequenceExhausted)
}
