package dateutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCanonicalUnchanged(t *testing.T) {
	got, err := Normalize("2024-01-31")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-31", got)

	// idempotency
	again, err := Normalize(got)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestNormalizeIndonesianOrder(t *testing.T) {
	got, err := Normalize("31-01-2024")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-31", got)
}

func TestNormalizeSameDateEquivalence(t *testing.T) {
	a, err := Normalize("05-03-2024")
	require.NoError(t, err)
	b, err := Normalize("2024-03-05")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestNormalizeISOTimestamp(t *testing.T) {
	got, err := Normalize("2024-01-31T10:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-31", got)

	got, err = Normalize("2024-01-31 10:30:00")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-31", got)
}

func TestNormalizeRejectsMalformed(t *testing.T) {
	cases := []string{"", "2024/01/01", "32-13-2024", "2024-13-40", "next tuesday", "31-1-2024"}
	for _, raw := range cases {
		_, err := Normalize(raw)
		assert.Error(t, err, raw)
	}
}

func TestNormalizeTime(t *testing.T) {
	ts, err := NormalizeTime("01-02-2024")
	require.NoError(t, err)
	assert.Equal(t, 2024, ts.Year())
	assert.Equal(t, 2, int(ts.Month()))
	assert.Equal(t, 1, ts.Day())
}
