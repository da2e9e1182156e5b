package seed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecksumIgnoresKeyOrder(t *testing.T) {
	a, err := Checksum(map[string]any{"title": "Home", "slug": "home", "nav": map[string]any{"order": 1, "label": "Top"}})
	require.NoError(t, err)
	b, err := Checksum(map[string]any{"nav": map[string]any{"label": "Top", "order": 1}, "slug": "home", "title": "Home"})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestChecksumNormalizesUnicode(t *testing.T) {
	composed, err := Checksum(map[string]any{"name": "café"})
	require.NoError(t, err)
	decomposed, err := Checksum(map[string]any{"name": "café"})
	require.NoError(t, err)
	assert.Equal(t, composed, decomposed)
}

func TestChecksumNumberCanonicalization(t *testing.T) {
	// YAML hands back ints, JSON hands back float64; integral values must
	// hash the same either way.
	asInt, err := Checksum(map[string]any{"count": 2})
	require.NoError(t, err)
	asFloat, err := Checksum(map[string]any{"count": float64(2)})
	require.NoError(t, err)
	asInt64, err := Checksum(map[string]any{"count": int64(2)})
	require.NoError(t, err)
	assert.Equal(t, asInt, asFloat)
	assert.Equal(t, asInt, asInt64)

	fractional, err := Checksum(map[string]any{"count": 2.5})
	require.NoError(t, err)
	assert.NotEqual(t, asInt, fractional)
}

func TestChecksumDistinguishesValues(t *testing.T) {
	a, err := Checksum(map[string]any{"title": "Home"})
	require.NoError(t, err)
	b, err := Checksum(map[string]any{"title": "About"})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	// null is a value, not absence.
	withNull, err := Checksum(map[string]any{"title": "Home", "subtitle": nil})
	require.NoError(t, err)
	assert.NotEqual(t, a, withNull)
}

func TestChecksumArraysAreOrdered(t *testing.T) {
	a, err := Checksum(map[string]any{"tags": []any{"go", "cms"}})
	require.NoError(t, err)
	b, err := Checksum(map[string]any{"tags": []any{"cms", "go"}})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestChecksumRejectsUnsupportedTypes(t *testing.T) {
	_, err := Checksum(map[string]any{"ch": make(chan int)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported type")
}

func TestChecksumNoHTMLEscaping(t *testing.T) {
	// <, > and & must hash by their literal bytes; escaped and unescaped
	// renderings would otherwise disagree across serializers.
	a, err := Checksum(map[string]any{"html": "<b>&</b>"})
	require.NoError(t, err)
	b, err := Checksum(map[string]any{"html": "<b>&</b>"})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
