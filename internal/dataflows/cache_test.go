package dataflows

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadCacheExpires(t *testing.T) {
	now := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)
	c := NewPayloadCache(t.TempDir(), time.Hour, true)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Store("BALANCE_SHEET", "IBM", json.RawMessage(`{"symbol":"IBM"}`)))

	got, ok := c.Load("BALANCE_SHEET", "IBM")
	require.True(t, ok)
	assert.JSONEq(t, `{"symbol":"IBM"}`, string(got))

	_, ok = c.Load("INCOME_STATEMENT", "IBM")
	assert.False(t, ok)

	now = now.Add(2 * time.Hour)
	_, ok = c.Load("BALANCE_SHEET", "IBM")
	assert.False(t, ok)
}

func TestPayloadCacheDisabled(t *testing.T) {
	c := NewPayloadCache(t.TempDir(), time.Hour, false)
	require.NoError(t, c.Store("BALANCE_SHEET", "IBM", json.RawMessage(`{}`)))
	_, ok := c.Load("BALANCE_SHEET", "IBM")
	assert.False(t, ok)
}

func TestValidateSymbol(t *testing.T) {
	assert.NoError(t, ValidateSymbol(" brk.b "))
	assert.Equal(t, "BRK.B", NormalizeSymbol(" brk.b "))
	assert.ErrorIs(t, ValidateSymbol("  "), ErrInvalidSymbol)
	assert.ErrorIs(t, ValidateSymbol("ABCDEFGHIJK"), ErrInvalidSymbol)
	assert.ErrorIs(t, ValidateSymbol("A&B"), ErrInvalidSymbol)
}
