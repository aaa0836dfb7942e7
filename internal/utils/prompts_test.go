package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPromptWithContext(t *testing.T) {
	text, err := LoadPromptWithContext("assistant", map[string]string{"MaxFavorites": "5"})
	require.NoError(t, err)
	assert.Contains(t, text, "at most 5 favorite stocks")
	assert.NotContains(t, text, "{{.")
	// FString templates treat braces as variables.
	assert.NotContains(t, text, "{")

	_, err = LoadPrompt("missing")
	assert.Error(t, err)
}
