package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	got, err := Generate("trk")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "trk-"))
	assert.Len(t, got, len("trk-")+21)
}

func TestGenerateUnique(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		id, err := Generate("art")
		require.NoError(t, err)
		assert.False(t, seen[id], "duplicate id generated: %s", id)
		seen[id] = true
	}
}

func TestMustGenerate(t *testing.T) {
	assert.NotPanics(t, func() {
		id := MustGenerate("ses")
		assert.NotEmpty(t, id)
	})
}
