package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSerializedRecord_RequiresIDAndType(t *testing.T) {
	t.Parallel()

	now := time.Now()

	_, err := NewSerializedRecord("", "{}", "{}", "OrderPlaced", now)
	require.ErrorIs(t, err, ErrStringsRequired)

	_, err = NewSerializedRecord("e-1", "{}", "{}", "", now)
	require.ErrorIs(t, err, ErrStringsRequired)

	record, err := NewSerializedRecord("e-1", "", "", "OrderPlaced", now)
	require.NoError(t, err)
	assert.Equal(t, "e-1", record.EventID())
	assert.Empty(t, record.Data())
}

func TestSerializedRecord_EqualAndHash(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 3, 1, 12, 0, 0, 123456000, time.FixedZone("CET", 3600))

	a, err := NewSerializedRecord("e-1", `{"a":1}`, `{}`, "OrderPlaced", ts)
	require.NoError(t, err)

	b, err := NewSerializedRecord("e-1", `{"a":1}`, `{}`, "OrderPlaced", ts.UTC())
	require.NoError(t, err)

	c, err := NewSerializedRecord("e-1", `{"a":2}`, `{}`, "OrderPlaced", ts)
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Hash(), b.Hash())
	assert.False(t, a.Equal(c))
	assert.NotEqual(t, a.Hash(), c.Hash())
	assert.Equal(t, time.UTC, a.Timestamp().Location())
}

func TestSerializedRecord_HashSeparatesFields(t *testing.T) {
	t.Parallel()

	ts := time.Now()

	a, err := NewSerializedRecord("e-1", "ab", "c", "T", ts)
	require.NoError(t, err)

	b, err := NewSerializedRecord("e-1", "a", "bc", "T", ts)
	require.NoError(t, err)

	assert.NotEqual(t, a.Hash(), b.Hash())
}

func TestSerializedRecord_ToMap(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 3, 1, 12, 0, 0, 500000000, time.UTC)

	record, err := NewSerializedRecord("e-1", `{"a":1}`, `{"m":true}`, "OrderPlaced", ts)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"event_id":   "e-1",
		"data":       `{"a":1}`,
		"metadata":   `{"m":true}`,
		"event_type": "OrderPlaced",
		"timestamp":  "2024-03-01T12:00:00.5Z",
	}, record.ToMap())
}
